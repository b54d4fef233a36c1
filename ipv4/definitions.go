package ipv4

const (
	sizeHeader = 20
	// DefaultTTL is the time to live of packets created with [NewPacket].
	DefaultTTL = 64
)

// Flags holds fragmentation field data of an IPv4 header. It is 16 bits long.
type Flags uint16

const (
	flagDontFragPos         = 14
	flagMoreFragPos         = 13
	FlagOffsetMask          = (1 << 13) - 1
	FlagDontFragment  Flags = 1 << flagDontFragPos
	FlagMoreFragments Flags = 1 << flagMoreFragPos
)

// DontFragment specifies whether the datagram can not be fragmented.
func (f Flags) DontFragment() bool { return f&FlagDontFragment != 0 }

// MoreFragments is cleared for unfragmented packets and for the last fragment.
func (f Flags) MoreFragments() bool { return f&FlagMoreFragments != 0 }

// FragmentOffset is the fragment's offset in units of 8 bytes.
func (f Flags) FragmentOffset() uint16 { return uint16(f) & FlagOffsetMask }
