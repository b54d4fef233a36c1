package ipv4

import (
	"github.com/soypat/lnlayer"
	"github.com/soypat/lnlayer/tcp"
)

// Packet is an IPv4 layer. It supplies the pseudo-header addresses
// transport layers such as [tcp.Segment] need to compute their checksum.
type Packet struct {
	hdr   [sizeHeader]byte
	opts  []byte
	inner lnlayer.Layer
}

var (
	_ lnlayer.Layer          = (*Packet)(nil)
	_ lnlayer.PseudoHeaderer = (*Packet)(nil)
)

// NewPacket returns a packet from src to dst with no options,
// TTL of [DefaultTTL] and the don't fragment flag set.
func NewPacket(src, dst [4]byte) *Packet {
	p := &Packet{}
	ifrm := p.frame()
	ifrm.SetVersionAndIHL(4, sizeHeader/4)
	ifrm.SetTTL(DefaultTTL)
	ifrm.SetFlags(FlagDontFragment)
	*ifrm.SourceAddr() = src
	*ifrm.DestinationAddr() = dst
	return p
}

// Decode parses an IPv4 packet from buf. Bytes past the total length are ignored.
// TCP payloads are decoded with [tcp.Decode], other payloads become an [lnlayer.Raw] layer.
func Decode(buf []byte) (*Packet, error) {
	if len(buf) < sizeHeader {
		return nil, &lnlayer.FramingError{Layer: "ipv4", Field: "header", Need: sizeHeader, Have: len(buf), Err: lnlayer.ErrTruncatedFrame}
	}
	ifrm := Frame{buf: buf}
	var vld lnlayer.Validator
	ifrm.ValidateExceptCRC(&vld)
	if err := vld.ErrPop(); err != nil {
		return nil, err
	}
	p := &Packet{}
	copy(p.hdr[:], buf)
	if opts := ifrm.Options(); len(opts) > 0 {
		p.opts = append([]byte(nil), opts...)
	}
	payload := ifrm.Payload()
	switch {
	case len(payload) == 0:
	case ifrm.Protocol() == lnlayer.IPProtoTCP:
		seg, err := tcp.Decode(payload)
		if err != nil {
			return nil, err
		}
		p.inner = seg
	default:
		p.inner = lnlayer.NewRaw(payload)
	}
	return p, nil
}

func (p *Packet) frame() Frame { return Frame{buf: p.hdr[:]} }

// PseudoHeaderAddrs returns the source and destination addresses.
func (p *Packet) PseudoHeaderAddrs() (src, dst [4]byte) {
	return [4]byte(p.hdr[12:16]), [4]byte(p.hdr[16:20])
}

func (p *Packet) SourceAddr() [4]byte          { return *p.frame().SourceAddr() }
func (p *Packet) SetSourceAddr(addr [4]byte)   { *p.frame().SourceAddr() = addr }
func (p *Packet) DestinationAddr() [4]byte     { return *p.frame().DestinationAddr() }
func (p *Packet) SetDestinationAddr(a [4]byte) { *p.frame().DestinationAddr() = a }
func (p *Packet) TTL() uint8                   { return p.frame().TTL() }
func (p *Packet) SetTTL(ttl uint8)             { p.frame().SetTTL(ttl) }
func (p *Packet) ID() uint16                   { return p.frame().ID() }
func (p *Packet) SetID(id uint16)              { p.frame().SetID(id) }
func (p *Packet) ToS() uint8                   { return p.frame().ToS() }
func (p *Packet) SetToS(tos uint8)             { p.frame().SetToS(tos) }
func (p *Packet) Flags() Flags                 { return p.frame().Flags() }
func (p *Packet) SetFlags(flags Flags)         { p.frame().SetFlags(flags) }

// Protocol returns the protocol field. Encode overwrites it when the inner layer reports its protocol.
func (p *Packet) Protocol() lnlayer.IPProto         { return p.frame().Protocol() }
func (p *Packet) SetProtocol(proto lnlayer.IPProto) { p.frame().SetProtocol(proto) }

// TotalLength returns the total length field as last decoded or encoded.
func (p *Packet) TotalLength() uint16 { return p.frame().TotalLength() }

// CRC returns the header checksum as last decoded or encoded.
func (p *Packet) CRC() uint16 { return p.frame().CRC() }

// Options returns the IPv4 options. The returned slice must not be modified.
func (p *Packet) Options() []byte { return p.opts }

// SetOptions sets the IPv4 options. Their length must be a multiple of 4 and at most 40.
func (p *Packet) SetOptions(opts []byte) error {
	if len(opts)%4 != 0 || len(opts) > 40 {
		return lnlayer.ErrInvalidLengthField
	}
	p.opts = append(p.opts[:0], opts...)
	return nil
}

func (p *Packet) HeaderLength() int { return sizeHeader + len(p.opts) }

func (p *Packet) Inner() lnlayer.Layer { return p.inner }

func (p *Packet) SetInner(l lnlayer.Layer) { p.inner = l }

// Encode writes the IPv4 header to dst, which spans the whole packet.
// Total length, IHL and header checksum are computed.
func (p *Packet) Encode(dst []byte, _ lnlayer.Layer) error {
	hl := p.HeaderLength()
	if len(dst) < hl {
		return lnlayer.ErrShortBuffer
	} else if len(dst) > 0xffff {
		return lnlayer.ErrInvalidLengthField
	}
	ifrm := p.frame()
	version, _ := ifrm.VersionAndIHL()
	ifrm.SetVersionAndIHL(version, uint8(hl/4))
	ifrm.SetTotalLength(uint16(len(dst)))
	if proto, ok := p.inner.(interface{ Protocol() lnlayer.IPProto }); ok {
		ifrm.SetProtocol(proto.Protocol())
	}
	ifrm.SetCRC(0)
	copy(dst, p.hdr[:])
	copy(dst[sizeHeader:hl], p.opts)
	out := Frame{buf: dst}
	crc := out.CalculateHeaderCRC()
	out.SetCRC(crc)
	ifrm.SetCRC(crc)
	return nil
}

func (p *Packet) Clone() lnlayer.Layer {
	clone := &Packet{hdr: p.hdr}
	if len(p.opts) > 0 {
		clone.opts = append([]byte(nil), p.opts...)
	}
	if p.inner != nil {
		clone.inner = p.inner.Clone()
	}
	return clone
}

func (p *Packet) String() string { return p.frame().String() }
