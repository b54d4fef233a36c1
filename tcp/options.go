package tcp

import (
	"encoding/binary"
	"encoding/hex"
	"strconv"

	"github.com/soypat/lnlayer"
)

// OptionCodec writes and walks TCP options in their kind-length-value wire form.
// The zero value validates the sizes of well known options while walking.
type OptionCodec struct {
	Flags OptionFlags
}

type OptionFlags uint8

const (
	// OptFlagSkipSizeValidation accepts well known options of any size.
	OptFlagSkipSizeValidation OptionFlags = 1 << iota
	// OptFlagSkipObsolete does not call back for obsolete options.
	OptFlagSkipObsolete
)

func (flags OptionFlags) HasAny(ofTheseFlags OptionFlags) bool {
	return flags&ofTheseFlags != 0
}

func (op OptionCodec) PutOption16(dst []byte, kind OptionKind, v uint16) (int, error) {
	return op.PutOption(dst, kind, byte(v>>8), byte(v))
}

func (op OptionCodec) PutOption32(dst []byte, kind OptionKind, v uint32) (int, error) {
	return op.PutOption(dst, kind, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}

// PutOption writes a single option with the given value to dst and returns the amount of bytes written.
// The length byte written is the total option size including kind and length bytes.
func (op OptionCodec) PutOption(dst []byte, kind OptionKind, data ...byte) (int, error) {
	putSize := 2 + len(data)
	if len(dst) < putSize {
		return -1, lnlayer.ErrShortBuffer
	} else if putSize > 255 {
		return -1, lnlayer.ErrInvalidLengthField
	} else if kind == OptNop || kind == OptEnd {
		return -1, lnlayer.ErrInvalidField
	}
	dst[0] = byte(kind)
	dst[1] = byte(putSize)
	copy(dst[2:], data)
	return putSize, nil
}

// ForEachOption walks the options region opts calling fn with each option's
// kind and value. NOP bytes are skipped and an end of option list byte stops
// the walk, the remaining bytes being padding. Malformed options are reported
// as [*lnlayer.FramingError] with offsets relative to the start of opts.
func (op OptionCodec) ForEachOption(opts []byte, fn func(OptionKind, []byte) error) error {
	off := 0
	skipSizeValidation := op.Flags.HasAny(OptFlagSkipSizeValidation)
	skipObsolete := op.Flags.HasAny(OptFlagSkipObsolete)
	for off < len(opts) {
		start := off
		kind := OptionKind(opts[off])
		off++
		if kind == OptNop {
			continue
		} else if kind == OptEnd {
			break
		}
		if off >= len(opts) {
			return optionErr(kind, start, 2, len(opts)-start, lnlayer.ErrTruncatedFrame)
		}
		size := int(opts[off]) // Total option length including kind and length bytes.
		off++
		if size < 2 {
			return optionErr(kind, start, 2, size, lnlayer.ErrInvalidLengthField)
		}
		dataLen := size - 2
		if len(opts[off:]) < dataLen {
			return optionErr(kind, start, size, len(opts)-start, lnlayer.ErrTruncatedFrame)
		}
		if !skipSizeValidation {
			expectSize := wellKnownSize(kind)
			if expectSize != -1 && size != expectSize {
				return optionErr(kind, start, expectSize, size, lnlayer.ErrInvalidLengthField)
			}
		}
		if !(skipObsolete && kind.IsObsolete()) {
			err := fn(kind, opts[off:off+dataLen])
			if err != nil {
				return err
			}
		}
		off += dataLen
	}
	return nil
}

// wellKnownSize returns the total wire size of options with fixed size or -1.
func wellKnownSize(kind OptionKind) int {
	switch kind {
	case OptTimestamps:
		return 10
	case OptMaxSegmentSize, OptUserTimeout:
		return 4
	case OptWindowScale, OptAltChecksum:
		return 3
	case OptSACKPermitted:
		return 2
	}
	return -1
}

func optionErr(kind OptionKind, off, need, have int, err error) error {
	return &lnlayer.FramingError{
		Layer:  "tcp",
		Field:  "option " + kind.String(),
		Offset: off,
		Need:   need,
		Have:   have,
		Err:    err,
	}
}

// Option is a single TCP option record. Value holds exactly the option's
// data bytes, without the kind and length prefix.
type Option struct {
	Kind  OptionKind
	Value []byte
}

// Len returns the length of the option's value, not counting the kind and length bytes.
func (opt Option) Len() int { return len(opt.Value) }

func (opt Option) String() string {
	return opt.Kind.String() + " len=" + strconv.Itoa(opt.Len()) + " " + hex.EncodeToString(opt.Value)
}

// Options is an ordered list of TCP options as they appear on the wire.
// Options of the same kind may appear more than once. The zero value is an empty list.
type Options struct {
	list []Option
}

// Len returns the amount of options stored.
func (opts *Options) Len() int { return len(opts.list) }

// At returns the i'th option in wire order. The returned value must not be modified.
func (opts *Options) At(i int) Option { return opts.list[i] }

// Add appends an option with a copy of value. NOP and end of option list
// are framing bytes and cannot be added.
func (opts *Options) Add(kind OptionKind, value []byte) error {
	if kind == OptNop || kind == OptEnd {
		return lnlayer.ErrInvalidField
	} else if len(value) > maxOptionData {
		return lnlayer.ErrInvalidLengthField
	}
	var v []byte
	if len(value) > 0 {
		v = append(v, value...)
	}
	opts.list = append(opts.list, Option{Kind: kind, Value: v})
	return nil
}

// Find returns the first option of the given kind in wire order.
func (opts *Options) Find(kind OptionKind) (Option, bool) {
	for _, opt := range opts.list {
		if opt.Kind == kind {
			return opt, true
		}
	}
	return Option{}, false
}

// Reset removes all options.
func (opts *Options) Reset() {
	clear(opts.list)
	opts.list = opts.list[:0]
}

// Clone returns a deep copy of opts that shares no storage with it.
func (opts *Options) Clone() Options {
	if len(opts.list) == 0 {
		return Options{}
	}
	list := make([]Option, len(opts.list))
	for i, opt := range opts.list {
		list[i].Kind = opt.Kind
		if len(opt.Value) > 0 {
			list[i].Value = append([]byte(nil), opt.Value...)
		}
	}
	return Options{list: list}
}

// RawSize returns the amount of bytes the options occupy on the wire without padding.
func (opts *Options) RawSize() (n int) {
	for _, opt := range opts.list {
		n += 2 + len(opt.Value)
	}
	return n
}

// PaddedSize returns [Options.RawSize] rounded up to a multiple of 4,
// the size of the options region in an encoded header.
func (opts *Options) PaddedSize() int {
	return (opts.RawSize() + 3) &^ 3
}

// put writes the options followed by NOP padding to dst, which must be PaddedSize long.
func (opts *Options) put(dst []byte) error {
	var codec OptionCodec
	off := 0
	for _, opt := range opts.list {
		n, err := codec.PutOption(dst[off:], opt.Kind, opt.Value...)
		if err != nil {
			return err
		}
		off += n
	}
	for ; off < len(dst); off++ {
		dst[off] = byte(OptNop)
	}
	return nil
}

//
// Well known options.
//

// AddMSS adds a maximum segment size option.
func (opts *Options) AddMSS(mss uint16) {
	opts.mustAdd(OptMaxSegmentSize, byte(mss>>8), byte(mss))
}

// MSS returns the value of the first maximum segment size option.
// ok is false if there is none or its length is not 2.
func (opts *Options) MSS() (mss uint16, ok bool) {
	opt, ok := opts.Find(OptMaxSegmentSize)
	if !ok || len(opt.Value) != 2 {
		return 0, false
	}
	return binary.BigEndian.Uint16(opt.Value), true
}

// AddWindowScale adds a window scale option with the given shift count.
func (opts *Options) AddWindowScale(shift uint8) {
	opts.mustAdd(OptWindowScale, shift)
}

// WindowScale returns the shift count of the first window scale option.
// ok is false if there is none or its length is not 1.
func (opts *Options) WindowScale() (shift uint8, ok bool) {
	opt, ok := opts.Find(OptWindowScale)
	if !ok || len(opt.Value) != 1 {
		return 0, false
	}
	return opt.Value[0], true
}

// AddSACKPermitted adds a SACK permitted option.
func (opts *Options) AddSACKPermitted() {
	opts.mustAdd(OptSACKPermitted)
}

// SACKPermitted reports whether a SACK permitted option is present.
func (opts *Options) SACKPermitted() bool {
	_, ok := opts.Find(OptSACKPermitted)
	return ok
}

// AddSACK adds a selective acknowledgment option holding edges in order.
// Edges usually come in left/right pairs describing received blocks.
func (opts *Options) AddSACK(edges ...Value) error {
	value := make([]byte, 4*len(edges))
	for i, edge := range edges {
		binary.BigEndian.PutUint32(value[4*i:], uint32(edge))
	}
	return opts.Add(OptSACK, value)
}

// SACK returns the edges of the first selective acknowledgment option in the order stored.
// ok is false if there is none or its length is not a multiple of 4.
func (opts *Options) SACK() (edges []Value, ok bool) {
	opt, ok := opts.Find(OptSACK)
	if !ok || len(opt.Value)%4 != 0 {
		return nil, false
	}
	edges = make([]Value, len(opt.Value)/4)
	for i := range edges {
		edges[i] = Value(binary.BigEndian.Uint32(opt.Value[4*i:]))
	}
	return edges, true
}

// AddTimestamps adds a timestamps option. See RFC 7323.
func (opts *Options) AddTimestamps(value, echoReply uint32) {
	var buf [8]byte
	binary.BigEndian.PutUint32(buf[0:4], value)
	binary.BigEndian.PutUint32(buf[4:8], echoReply)
	opts.mustAdd(OptTimestamps, buf[:]...)
}

// Timestamps returns the timestamp value and echo reply of the first timestamps option.
// ok is false if there is none or its length is not 8.
func (opts *Options) Timestamps() (value, echoReply uint32, ok bool) {
	opt, ok := opts.Find(OptTimestamps)
	if !ok || len(opt.Value) != 8 {
		return 0, 0, false
	}
	return binary.BigEndian.Uint32(opt.Value[0:4]), binary.BigEndian.Uint32(opt.Value[4:8]), true
}

// AddAltChecksum adds an alternate checksum request option.
func (opts *Options) AddAltChecksum(alg AltChecksum) {
	opts.mustAdd(OptAltChecksum, byte(alg))
}

// AltChecksum returns the algorithm of the first alternate checksum request option.
// ok is false if there is none or its length is not 1.
func (opts *Options) AltChecksum() (alg AltChecksum, ok bool) {
	opt, ok := opts.Find(OptAltChecksum)
	if !ok || len(opt.Value) != 1 {
		return 0, false
	}
	return AltChecksum(opt.Value[0]), true
}

// mustAdd is used by helpers whose kind and value size are always valid.
func (opts *Options) mustAdd(kind OptionKind, value ...byte) {
	if err := opts.Add(kind, value); err != nil {
		panic(err)
	}
}
