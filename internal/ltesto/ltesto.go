package ltesto

import (
	"math/rand"

	"github.com/soypat/lnlayer"
	"github.com/soypat/lnlayer/ipv4"
	"github.com/soypat/lnlayer/tcp"
)

const (
	sizeHeaderIPv4 = 20
	sizeHeaderTCP  = 20
)

// PacketGen generates deterministic pseudo-random IPv4+TCP packets for tests.
type PacketGen struct {
	SrcIPv4, DstIPv4 [4]byte // address
	SrcTCP, DstTCP   uint16  // ports
}

func (gen *PacketGen) RandomizeAddrs(rng *rand.Rand) {
	rng.Read(gen.SrcIPv4[:])
	rng.Read(gen.DstIPv4[:])
	ports := rng.Uint32()
	gen.SrcTCP = uint16(ports) | 1
	gen.DstTCP = uint16(ports>>16) | 1
}

// RandomOptions returns a wire encoded option region whose length is a multiple of 4.
// Options are packed back to back and NOP padding only appears at the end, which
// is the layout [tcp.Segment] encodes.
func RandomOptions(rng *rand.Rand) []byte {
	var codec tcp.OptionCodec
	buf := make([]byte, 40)
	off := 0
	put := func(n int, err error) {
		if err != nil {
			panic(err)
		}
		off += n
	}
	ri := rng.Int()
	if ri&(1<<0) != 0 {
		put(codec.PutOption16(buf[off:], tcp.OptMaxSegmentSize, uint16(rng.Intn(9000))))
	}
	if ri&(1<<1) != 0 {
		var ts [8]byte
		rng.Read(ts[:])
		put(codec.PutOption(buf[off:], tcp.OptTimestamps, ts[:]...))
	}
	if ri&(1<<2) != 0 {
		put(codec.PutOption(buf[off:], tcp.OptSACKPermitted))
		put(codec.PutOption(buf[off:], tcp.OptWindowScale, byte(rng.Intn(15))))
		put(codec.PutOption(buf[off:], tcp.OptAltChecksum, byte(tcp.AltChecksumFletcher8)))
	}
	if ri&(1<<3) != 0 {
		var edges [8]byte
		rng.Read(edges[:])
		put(codec.PutOption(buf[off:], tcp.OptSACK, edges[:]...))
	}
	for off%4 != 0 {
		buf[off] = byte(tcp.OptNop)
		off++
	}
	return buf[:off]
}

// AppendRandomIPv4TCPPacket appends a valid IPv4 packet carrying a TCP segment
// with the given flags, random options and a payload of datalen random bytes.
// Both checksums are set.
func (gen *PacketGen) AppendRandomIPv4TCPPacket(dst []byte, rng *rand.Rand, flags tcp.Flags, datalen int) []byte {
	tcpOpts := RandomOptions(rng)
	off := len(dst)
	total := sizeHeaderIPv4 + sizeHeaderTCP + len(tcpOpts) + datalen
	dst = append(dst, make([]byte, total)...)
	ifrm, err := ipv4.NewFrame(dst[off:])
	if err != nil {
		panic(err)
	}
	ifrm.SetVersionAndIHL(4, sizeHeaderIPv4/4)
	ifrm.SetTotalLength(uint16(total))
	ifrm.SetID(uint16(rng.Uint32()))
	ifrm.SetFlags(ipv4.FlagDontFragment)
	ifrm.SetTTL(64)
	ifrm.SetProtocol(lnlayer.IPProtoTCP)
	*ifrm.SourceAddr() = gen.SrcIPv4
	*ifrm.DestinationAddr() = gen.DstIPv4
	ifrm.SetCRC(ifrm.CalculateHeaderCRC())

	tfrm, err := tcp.NewFrame(ifrm.Payload())
	if err != nil {
		panic(err)
	}
	tfrm.SetSourcePort(gen.SrcTCP)
	tfrm.SetDestinationPort(gen.DstTCP)
	tfrm.SetSeq(tcp.Value(rng.Uint32()))
	tfrm.SetAck(tcp.Value(rng.Uint32()))
	tfrm.SetOffsetAndFlags(uint8((sizeHeaderTCP+len(tcpOpts))/4), flags)
	tfrm.SetWindowSize(uint16(rng.Uint32()))
	tfrm.SetUrgentPtr(uint16(rng.Uint32()))
	copy(tfrm.Options(), tcpOpts)
	rng.Read(tfrm.Payload())

	var crc lnlayer.CRC791
	ifrm.CRCWriteTCPPseudo(&crc)
	tfrm.SetCRC(0)
	tfrm.SetCRC(crc.PayloadSum16(tfrm.RawData()))

	var vld lnlayer.Validator
	ifrm.ValidateExceptCRC(&vld)
	tfrm.ValidateExceptCRC(&vld)
	if err = vld.ErrPop(); err != nil {
		panic(err)
	}
	return dst
}
