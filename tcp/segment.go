package tcp

import (
	"errors"
	"fmt"

	"github.com/soypat/lnlayer"
)

// Segment is a TCP layer: a fixed header, an ordered option list and an
// optional inner layer carrying the payload. A Segment owns all of its
// storage; [Segment.Clone] returns an independent deep copy.
//
// A Segment is not safe for concurrent use.
type Segment struct {
	hdr   [sizeHeaderTCP]byte
	opts  Options
	inner lnlayer.Layer
	crc   CRCState
}

var _ lnlayer.Layer = (*Segment)(nil)

// NewSegment returns a segment with the given ports, a window of [DefaultWindow],
// a 20 byte header and no options.
func NewSegment(srcPort, dstPort uint16) *Segment {
	seg := &Segment{}
	tfrm := seg.frame()
	tfrm.SetSourcePort(srcPort)
	tfrm.SetDestinationPort(dstPort)
	tfrm.SetOffsetAndFlags(sizeHeaderTCP/4, 0)
	tfrm.SetWindowSize(DefaultWindow)
	return seg
}

// Decode parses a TCP segment from buf. Options are copied into the segment and
// bytes following the header become an [lnlayer.Raw] inner layer. On a malformed
// buffer a [*lnlayer.FramingError] is returned and no segment.
func Decode(buf []byte) (*Segment, error) {
	tfrm, err := NewFrame(buf)
	if err != nil {
		return nil, &lnlayer.FramingError{Layer: "tcp", Field: "header", Need: sizeHeaderTCP, Have: len(buf), Err: lnlayer.ErrTruncatedFrame}
	}
	hl := tfrm.HeaderLength()
	if hl < sizeHeaderTCP {
		return nil, &lnlayer.FramingError{Layer: "tcp", Field: "data offset", Offset: 12, Need: sizeHeaderTCP, Have: hl, Err: lnlayer.ErrInvalidLengthField}
	} else if hl > len(buf) {
		return nil, &lnlayer.FramingError{Layer: "tcp", Field: "options", Offset: sizeHeaderTCP, Need: hl - sizeHeaderTCP, Have: len(buf) - sizeHeaderTCP, Err: lnlayer.ErrTruncatedFrame}
	}
	seg := &Segment{}
	codec := OptionCodec{Flags: OptFlagSkipSizeValidation}
	err = codec.ForEachOption(tfrm.Options(), func(kind OptionKind, value []byte) error {
		return seg.opts.Add(kind, value)
	})
	if err != nil {
		var fe *lnlayer.FramingError
		if errors.As(err, &fe) {
			fe.Offset += sizeHeaderTCP
		}
		return nil, err
	}
	copy(seg.hdr[:], buf)
	if tfrm.CRC() != 0 {
		seg.crc = CRCUser
	}
	if payload := tfrm.Payload(); len(payload) > 0 {
		seg.inner = lnlayer.NewRaw(payload)
	}
	return seg, nil
}

func (seg *Segment) frame() Frame { return Frame{buf: seg.hdr[:]} }

// HeaderLength returns the encoded header size: 20 bytes plus padded options.
func (seg *Segment) HeaderLength() int { return sizeHeaderTCP + seg.opts.PaddedSize() }

func (seg *Segment) Inner() lnlayer.Layer { return seg.inner }

func (seg *Segment) SetInner(l lnlayer.Layer) { seg.inner = l }

// SetPayload sets the inner layer to a raw layer holding a copy of payload.
// An empty payload removes the inner layer.
func (seg *Segment) SetPayload(payload []byte) {
	if len(payload) == 0 {
		seg.inner = nil
		return
	}
	seg.inner = lnlayer.NewRaw(payload)
}

// Protocol returns [lnlayer.IPProtoTCP]. Parent IP layers use it to fill their protocol field.
func (seg *Segment) Protocol() lnlayer.IPProto { return lnlayer.IPProtoTCP }

// Options returns the segment's option list for inspection and modification.
func (seg *Segment) Options() *Options { return &seg.opts }

func (seg *Segment) SourcePort() uint16          { return seg.frame().SourcePort() }
func (seg *Segment) SetSourcePort(port uint16)   { seg.frame().SetSourcePort(port) }
func (seg *Segment) DestinationPort() uint16     { return seg.frame().DestinationPort() }
func (seg *Segment) SetDestinationPort(p uint16) { seg.frame().SetDestinationPort(p) }
func (seg *Segment) Seq() Value                  { return seg.frame().Seq() }
func (seg *Segment) SetSeq(v Value)              { seg.frame().SetSeq(v) }
func (seg *Segment) Ack() Value                  { return seg.frame().Ack() }
func (seg *Segment) SetAck(v Value)              { seg.frame().SetAck(v) }
func (seg *Segment) WindowSize() uint16          { return seg.frame().WindowSize() }
func (seg *Segment) SetWindowSize(wnd uint16)    { seg.frame().SetWindowSize(wnd) }
func (seg *Segment) UrgentPtr() uint16           { return seg.frame().UrgentPtr() }
func (seg *Segment) SetUrgentPtr(up uint16)      { seg.frame().SetUrgentPtr(up) }
func (seg *Segment) Reserved() uint8             { return seg.frame().Reserved() }
func (seg *Segment) SetReserved(r uint8)         { seg.frame().SetReserved(r) }

// DataOffset returns the header length in 32-bit words as last decoded, set or encoded.
// Encode always overwrites it with the value implied by the options.
func (seg *Segment) DataOffset() uint8 {
	offset, _ := seg.frame().OffsetAndFlags()
	return offset
}

// SetDataOffset sets the data offset field. Only the low 4 bits are used.
func (seg *Segment) SetDataOffset(offset uint8) {
	tfrm := seg.frame()
	_, flags := tfrm.OffsetAndFlags()
	tfrm.SetOffsetAndFlags(offset, flags)
}

// Flags returns all eight flag bits.
func (seg *Segment) Flags() Flags {
	_, flags := seg.frame().OffsetAndFlags()
	return flags
}

// SetFlags replaces all eight flag bits.
func (seg *Segment) SetFlags(flags Flags) {
	tfrm := seg.frame()
	offset, _ := tfrm.OffsetAndFlags()
	tfrm.SetOffsetAndFlags(offset, flags)
}

// Flag reports whether flag f is set. f must be a single flag such as [FlagSYN];
// any other value returns false.
func (seg *Segment) Flag(f Flags) bool {
	if !f.isSingle() {
		return false
	}
	return seg.Flags().HasAll(f)
}

// SetFlag sets or clears a single flag. Values of f that are not a single flag are ignored.
func (seg *Segment) SetFlag(f Flags, on bool) {
	if !f.isSingle() {
		return
	}
	flags := seg.Flags()
	if on {
		flags |= f
	} else {
		flags &^= f
	}
	seg.SetFlags(flags)
}

// Checksum returns the checksum field. See [Segment.ChecksumState] for its provenance.
func (seg *Segment) Checksum() uint16 { return seg.frame().CRC() }

// SetChecksum sets a checksum to be written verbatim by the next encode.
// After that encode the checksum is computed again unless set anew.
// A zero checksum is equivalent to [Segment.ClearChecksum].
func (seg *Segment) SetChecksum(crc uint16) {
	seg.frame().SetCRC(crc)
	if crc == 0 {
		seg.crc = CRCUnset
	} else {
		seg.crc = CRCUser
	}
}

// ClearChecksum zeros the checksum field so the next encode computes it.
func (seg *Segment) ClearChecksum() {
	seg.frame().SetCRC(0)
	seg.crc = CRCUnset
}

// ChecksumState returns where the checksum field's value came from.
func (seg *Segment) ChecksumState() CRCState { return seg.crc }

// Encode writes the TCP header and options to dst. dst spans the segment and its
// already encoded inner layers. When no checksum was set by the caller and parent
// implements [lnlayer.PseudoHeaderer] the checksum is computed over dst; without
// pseudo-header addresses a zero checksum is written.
// Every byte of dst is checksummed, so dst must be sliced to exactly
// lnlayer.Size(seg) bytes, as [lnlayer.Encode] does.
func (seg *Segment) Encode(dst []byte, parent lnlayer.Layer) error {
	optLen := seg.opts.PaddedSize()
	hl := sizeHeaderTCP + optLen
	if hl > maxHeaderTCP {
		return lnlayer.ErrInvalidLengthField
	} else if len(dst) < hl {
		return lnlayer.ErrShortBuffer
	}
	err := seg.opts.put(dst[sizeHeaderTCP:hl])
	if err != nil {
		return err
	}
	seg.SetDataOffset(uint8(hl / 4))
	userCRC := seg.crc == CRCUser
	if !userCRC {
		seg.frame().SetCRC(0)
	}
	copy(dst[:sizeHeaderTCP], seg.hdr[:])
	if userCRC {
		seg.crc = CRCUnset
		return nil
	}
	ph, ok := parent.(lnlayer.PseudoHeaderer)
	if !ok {
		seg.crc = CRCUnset
		return nil
	}
	src, dstAddr := ph.PseudoHeaderAddrs()
	var crc lnlayer.CRC791
	crc.AddPseudoHeader(src, dstAddr, lnlayer.IPProtoTCP, uint16(len(dst)))
	sum := crc.PayloadSum16(dst)
	tfrm := Frame{buf: dst}
	tfrm.SetCRC(sum)
	seg.frame().SetCRC(sum)
	seg.crc = CRCComputed
	return nil
}

// Clone returns a deep copy of the segment, its options and inner layers.
func (seg *Segment) Clone() lnlayer.Layer {
	clone := &Segment{
		hdr:  seg.hdr,
		opts: seg.opts.Clone(),
		crc:  seg.crc,
	}
	if seg.inner != nil {
		clone.inner = seg.inner.Clone()
	}
	return clone
}

// Payload returns the bytes of the inner layer if it is an [lnlayer.Raw] layer, or nil.
func (seg *Segment) Payload() []byte {
	if raw, ok := seg.inner.(*lnlayer.Raw); ok {
		return raw.Bytes()
	}
	return nil
}

func (seg *Segment) String() string {
	return fmt.Sprintf("TCP :%d -> :%d SEQ=%d ACK=%d WND=%d %s OPT=%d LEN=%d",
		seg.SourcePort(), seg.DestinationPort(), seg.Seq(), seg.Ack(), seg.WindowSize(),
		seg.Flags().String(), seg.opts.Len(), lnlayer.Size(seg.inner))
}
