package lnlayer_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/soypat/lnlayer"
	"github.com/soypat/lnlayer/ipv4"
	"github.com/soypat/lnlayer/tcp"
)

func TestIPv4TCPChecksum(t *testing.T) {
	var tcpPackets = [][]byte{
		{0xc0, 0xff, 0xee, 0x00, 0xde, 0xad, 0x4e, 0x8b, 0x3a, 0xf9, 0xfb, 0x6b, 0x08, 0x00, 0x45, 0x00,
			0x00, 0x3c, 0x01, 0xbe, 0x40, 0x00, 0x40, 0x06, 0xa3, 0xaa, 0xc0, 0xa8, 0x0a, 0x01, 0xc0, 0xa8,
			0x0a, 0x02, 0xe7, 0x0a, 0x00, 0x50, 0x40, 0x60, 0xd5, 0xcc, 0x00, 0x00, 0x00, 0x00, 0xa0, 0x02,
			0xfa, 0xf0, 0x62, 0xbc, 0x00, 0x00, 0x02, 0x04, 0x05, 0xb4, 0x04, 0x02, 0x08, 0x0a, 0xbb, 0xac,
			0x9b, 0xca, 0x00, 0x00, 0x00, 0x00, 0x01, 0x03, 0x03, 0x07},
		{0xc0, 0xff, 0xee, 0x00, 0xde, 0xad, 0x4e, 0x8b, 0x3a, 0xf9, 0xfb, 0x6b, 0x08, 0x00, 0x45, 0x00,
			0x00, 0x3c, 0xfa, 0xfd, 0x40, 0x00, 0x40, 0x06, 0xaa, 0x6a, 0xc0, 0xa8, 0x0a, 0x01, 0xc0, 0xa8,
			0x0a, 0x02, 0xe7, 0x0e, 0x00, 0x50, 0x9c, 0xdc, 0xfe, 0x05, 0x00, 0x00, 0x00, 0x00, 0xa0, 0x02,
			0xfa, 0xf0, 0xde, 0x02, 0x00, 0x00, 0x02, 0x04, 0x05, 0xb4, 0x04, 0x02, 0x08, 0x0a, 0xbb, 0xac,
			0x9b, 0xca, 0x00, 0x00, 0x00, 0x00, 0x01, 0x03, 0x03, 0x07},
	}
	const ethHeaderLen = 14
	var vld lnlayer.Validator
	for _, ethPacket := range tcpPackets {
		ipPacket := ethPacket[ethHeaderLen:]
		pkt, err := ipv4.Decode(ipPacket)
		if err != nil {
			t.Fatal(err)
		}
		seg := pkt.Inner().(*tcp.Segment)
		if seg.ChecksumState() != tcp.CRCUser || seg.Options().Len() != 4 {
			t.Fatalf("unexpected decoded segment %v state=%s", seg, seg.ChecksumState())
		}
		captured := seg.Checksum()
		seg.ClearChecksum()
		// Re-encoding moves the NOP so only verify the new checksum.
		b, err := lnlayer.Marshal(pkt)
		if err != nil {
			t.Fatal(err)
		} else if seg.Checksum() == captured {
			t.Error("expected checksum to change with option layout")
		}
		var crc lnlayer.CRC791
		crc.AddPseudoHeader(pkt.SourceAddr(), pkt.DestinationAddr(), lnlayer.IPProtoTCP, uint16(len(b)-20))
		if crc.PayloadSum16(b[20:]) != 0 {
			t.Error("re-encoded segment checksum does not verify")
		}

		ifrm, _ := ipv4.NewFrame(ipPacket)
		ifrm.ValidateSize(&vld)
		tfrm, _ := tcp.NewFrame(ifrm.Payload())
		tfrm.ValidateExceptCRC(&vld)
		if err := vld.ErrPop(); err != nil {
			t.Fatal(err)
		}
		wantCRC := ifrm.CRC()
		// Zero the CRC field so its value does not add to the final result.
		ifrm.SetCRC(0)
		gotCRC := ifrm.CalculateHeaderCRC()
		if wantCRC != gotCRC {
			t.Errorf("IPv4 CRC miscalculated. want %x, got %x", wantCRC, gotCRC)
		}
		wantCRC = tfrm.CRC()
		var tcpCRC lnlayer.CRC791
		ifrm.CRCWriteTCPPseudo(&tcpCRC)
		// Zero the CRC field so its value does not add to the final result.
		tfrm.SetCRC(0)
		gotCRC = tcpCRC.PayloadSum16(tfrm.RawData())
		if wantCRC != gotCRC {
			t.Errorf("TCP CRC miscalculated. want %x, got %x", wantCRC, gotCRC)
		}
	}
}

func TestCRC791(t *testing.T) {
	// RFC 1071 example words.
	data := []byte{0x00, 0x01, 0xf2, 0x03, 0xf4, 0xf5, 0xf6, 0xf7}
	var crc lnlayer.CRC791
	crc.Write(data)
	if got := crc.Sum16(); got != ^uint16(0xddf2) {
		t.Errorf("want %#x, got %#x", ^uint16(0xddf2), got)
	}
	crc.Reset()
	crc.AddUint32(0x0001f203)
	crc.AddUint16(0xf4f5)
	if got := crc.PayloadSum16([]byte{0xf6, 0xf7}); got != ^uint16(0xddf2) {
		t.Errorf("split sum: want %#x, got %#x", ^uint16(0xddf2), got)
	}
	// PayloadSum16 does not modify the running sum.
	if got := crc.PayloadSum16([]byte{0xf6, 0xf7}); got != ^uint16(0xddf2) {
		t.Errorf("repeated sum: want %#x, got %#x", ^uint16(0xddf2), got)
	}
	crc.Reset()
	// Odd tail is padded with a zero octet.
	if got, want := crc.PayloadSum16([]byte{0x12, 0x34, 0x56}), ^uint16(0x1234+0x5600); got != want {
		t.Errorf("odd tail: want %#x, got %#x", want, got)
	}
	defer func() {
		if recover() == nil {
			t.Error("expected panic on odd length write")
		}
	}()
	crc.Write([]byte{1})
}

type protoLayer struct {
	lnlayer.Raw
	encodedWithParent lnlayer.Layer
	innerSeen         []byte
}

func (p *protoLayer) Encode(dst []byte, parent lnlayer.Layer) error {
	p.encodedWithParent = parent
	p.innerSeen = append([]byte(nil), dst[p.HeaderLength():]...)
	return p.Raw.Encode(dst, parent)
}

func TestEncodeChain(t *testing.T) {
	outer := &protoLayer{Raw: *lnlayer.NewRaw([]byte{1, 2})}
	middle := &protoLayer{Raw: *lnlayer.NewRaw([]byte{3})}
	inner := lnlayer.NewRaw([]byte{4, 5, 6})
	outer.SetInner(middle)
	middle.SetInner(inner)

	if n := lnlayer.Size(outer); n != 6 {
		t.Fatalf("want size 6, got %d", n)
	}
	b, err := lnlayer.Marshal(outer)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(b, []byte{1, 2, 3, 4, 5, 6}) {
		t.Errorf("unexpected encoding %x", b)
	}
	if middle.encodedWithParent != outer || outer.encodedWithParent != nil {
		t.Error("layers encoded with wrong parent")
	}
	if !bytes.Equal(outer.innerSeen, []byte{3, 4, 5, 6}) {
		t.Errorf("inner layers not encoded before outer, saw %x", outer.innerSeen)
	}

	_, err = lnlayer.Encode(make([]byte, 5), outer, nil)
	if !errors.Is(err, lnlayer.ErrShortBuffer) {
		t.Errorf("want ErrShortBuffer, got %v", err)
	}
	found := lnlayer.Find(outer, func(l lnlayer.Layer) bool { return l.HeaderLength() == 3 })
	if found != inner {
		t.Errorf("Find returned %v", found)
	}
	if lnlayer.Find(outer, func(lnlayer.Layer) bool { return false }) != nil {
		t.Error("Find returned layer without match")
	}
}

func TestRawClone(t *testing.T) {
	data := []byte("payload")
	raw := lnlayer.NewRaw(data)
	data[0] = 'X'
	clone := raw.Clone().(*lnlayer.Raw)
	raw.SetBytes([]byte("other"))
	if string(clone.Bytes()) != "payload" {
		t.Errorf("clone aliased original: %q", clone.Bytes())
	}
	if raw.String() != "Raw 6f74686572" {
		t.Errorf("unexpected string %q", raw.String())
	}
}

func TestFramingError(t *testing.T) {
	var err error = &lnlayer.FramingError{Layer: "tcp", Field: "options", Offset: 20, Need: 12, Have: 4, Err: lnlayer.ErrTruncatedFrame}
	const want = "tcp: truncated frame in options at offset 20 (need 12, have 4)"
	if err.Error() != want {
		t.Errorf("want %q, got %q", want, err.Error())
	}
	if !errors.Is(err, lnlayer.ErrTruncatedFrame) || errors.Is(err, lnlayer.ErrInvalidLengthField) {
		t.Error("framing error does not unwrap to its cause")
	}
}
