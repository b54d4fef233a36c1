package tcp

import (
	"math/bits"
	"strconv"
	"strings"
)

const (
	sizeHeaderTCP = 20
	// maxHeaderTCP is the largest header a 4-bit data offset can describe.
	maxHeaderTCP = 60
	// maxOptionData is the largest option value a single length byte can describe.
	maxOptionData = 255 - 2

	// DefaultWindow is the window size of segments created with [NewSegment].
	DefaultWindow = 32678
)

// Value is a TCP sequence space value, i.e: a sequence or acknowledgment number.
type Value uint32

// Flags is a TCP flags bit-masked implementation i.e: SYN, FIN, ACK.
// Bit positions match the low byte of the header's offset/flags word.
type Flags uint16

const (
	FlagFIN Flags = 1 << iota // FlagFIN - No more data from sender.
	FlagSYN                   // FlagSYN - Synchronize sequence numbers.
	FlagRST                   // FlagRST - Reset the connection.
	FlagPSH                   // FlagPSH - Push function.
	FlagACK                   // FlagACK - Acknowledgment field significant.
	FlagURG                   // FlagURG - Urgent pointer field significant.
	FlagECE                   // FlagECE - ECN-Echo has a nonce-sum in the SYN/ACK.
	FlagCWR                   // FlagCWR - Congestion Window Reduced.
)

const flagMask = 0x00ff

// HasAll checks if mask bits are all set in the receiver flags.
func (flags Flags) HasAll(mask Flags) bool { return flags&mask == mask }

// HasAny checks if one or more mask bits are set in receiver flags.
func (flags Flags) HasAny(mask Flags) bool { return flags&mask != 0 }

// Mask returns the flags with non-flag bits unset.
func (flags Flags) Mask() Flags { return flags & flagMask }

// isSingle reports whether flags is exactly one known flag.
func (flags Flags) isSingle() bool {
	return flags != 0 && flags == flags.Mask() && flags&(flags-1) == 0
}

// String returns human readable flag string. i.e:
//
//	"[SYN,ACK]"
//
// Flags are printed in order from LSB (FIN) to MSB (CWR).
func (flags Flags) String() string {
	switch flags {
	case 0:
		return "[]"
	case FlagSYN | FlagACK:
		return "[SYN,ACK]"
	case FlagACK:
		return "[ACK]"
	case FlagSYN:
		return "[SYN]"
	}
	buf := make([]byte, 0, 2+4*bits.OnesCount16(uint16(flags)))
	buf = append(buf, '[')
	buf = flags.AppendFormat(buf)
	buf = append(buf, ']')
	return string(buf)
}

// AppendFormat appends a human readable flag string to b returning the extended buffer.
func (flags Flags) AppendFormat(b []byte) []byte {
	const flaglen = 3
	const strflags = "FINSYNRSTPSHACKURGECECWR"
	flags = flags.Mask()
	var addcommas bool
	for flags != 0 {
		i := bits.TrailingZeros16(uint16(flags))
		if addcommas {
			b = append(b, ',')
		} else {
			addcommas = true
		}
		b = append(b, strflags[i*flaglen:i*flaglen+flaglen]...)
		flags &= ^(1 << i)
	}
	return b
}

// ParseFlags parses a comma separated flag list such as "SYN,ACK". Brackets are optional.
func ParseFlags(s string) (Flags, bool) {
	if len(s) >= 2 && s[0] == '[' && s[len(s)-1] == ']' {
		s = s[1 : len(s)-1]
	}
	var flags Flags
	for s != "" {
		var name string
		name, s, _ = strings.Cut(s, ",")
		f := flagByName(strings.ToUpper(strings.TrimSpace(name)))
		if f == 0 {
			return 0, false
		}
		flags |= f
	}
	return flags, true
}

func flagByName(name string) Flags {
	switch name {
	case "FIN":
		return FlagFIN
	case "SYN":
		return FlagSYN
	case "RST":
		return FlagRST
	case "PSH":
		return FlagPSH
	case "ACK":
		return FlagACK
	case "URG":
		return FlagURG
	case "ECE":
		return FlagECE
	case "CWR":
		return FlagCWR
	}
	return 0
}

// OptionKind is the kind byte of a TCP option as registered by IANA.
type OptionKind uint8

const (
	OptEnd                   OptionKind = iota // end of option list
	OptNop                                     // no-operation
	OptMaxSegmentSize                          // maximum segment size
	OptWindowScale                             // window scale
	OptSACKPermitted                           // SACK permitted
	OptSACK                                    // SACK
	OptEcho                                    // echo(obsolete)
	OptEchoReply                               // echo reply(obsolete)
	OptTimestamps                              // timestamps
	OptPOCP                                    // partial order connection permitted(obsolete)
	OptPOSP                                    // partial order service profile(obsolete)
	OptCC                                      // CC(obsolete)
	OptCCNew                                   // CC.new(obsolete)
	OptCCEcho                                  // CC.echo(obsolete)
	OptAltChecksum                             // alternate checksum request(obsolete)
	OptAltChecksumData                         // alternate checksum data(obsolete)
	OptSkeeter                                 // skeeter
	OptBubba                                   // bubba
	OptTrailerChecksum                         // trailer checksum
	OptMD5Signature                            // MD5 signature(obsolete)
	OptSCPSCapabilities                        // SCPS capabilities
	OptSNA                                     // selective negative acks
	OptRecordBoundaries                        // record boundaries
	OptCorruptionExperienced                   // corruption experienced
	OptSNAP                                    // SNAP
	OptUnassigned                              // unassigned
	OptCompressionFilter                       // compression filter
	OptQuickStartResponse                      // quick-start response
	OptUserTimeout                             // user timeout or unauthorized use
	OptAuthentication                          // authentication TCP-AO
	OptMultipath                               // multipath TCP
)

const (
	OptFastOpenCookie        OptionKind = 34  // fast open cookie
	OptEncryptionNegotiation OptionKind = 69  // encryption negotiation
	OptAccurateECN0          OptionKind = 172 // accurate ECN order 0
	OptAccurateECN1          OptionKind = 174 // accurate ECN order 1
)

var optionKindNames = [...]string{
	OptEnd:                   "end of option list",
	OptNop:                   "no-operation",
	OptMaxSegmentSize:        "maximum segment size",
	OptWindowScale:           "window scale",
	OptSACKPermitted:         "SACK permitted",
	OptSACK:                  "SACK",
	OptEcho:                  "echo(obsolete)",
	OptEchoReply:             "echo reply(obsolete)",
	OptTimestamps:            "timestamps",
	OptPOCP:                  "partial order connection permitted(obsolete)",
	OptPOSP:                  "partial order service profile(obsolete)",
	OptCC:                    "CC(obsolete)",
	OptCCNew:                 "CC.new(obsolete)",
	OptCCEcho:                "CC.echo(obsolete)",
	OptAltChecksum:           "alternate checksum request(obsolete)",
	OptAltChecksumData:       "alternate checksum data(obsolete)",
	OptSkeeter:               "skeeter",
	OptBubba:                 "bubba",
	OptTrailerChecksum:       "trailer checksum",
	OptMD5Signature:          "MD5 signature(obsolete)",
	OptSCPSCapabilities:      "SCPS capabilities",
	OptSNA:                   "selective negative acks",
	OptRecordBoundaries:      "record boundaries",
	OptCorruptionExperienced: "corruption experienced",
	OptSNAP:                  "SNAP",
	OptUnassigned:            "unassigned",
	OptCompressionFilter:     "compression filter",
	OptQuickStartResponse:    "quick-start response",
	OptUserTimeout:           "user timeout or unauthorized use",
	OptAuthentication:        "authentication TCP-AO",
	OptMultipath:             "multipath TCP",
}

func (kind OptionKind) String() string {
	switch {
	case int(kind) < len(optionKindNames):
		return optionKindNames[kind]
	case kind == OptFastOpenCookie:
		return "fast open cookie"
	case kind == OptEncryptionNegotiation:
		return "encryption negotiation"
	case kind == OptAccurateECN0:
		return "accurate ECN order 0"
	case kind == OptAccurateECN1:
		return "accurate ECN order 1"
	}
	return "OptionKind(" + strconv.Itoa(int(kind)) + ")"
}

// IsObsolete returns true if option considered obsolete by newer TCP specifications.
func (kind OptionKind) IsObsolete() bool {
	if int(kind) >= len(optionKindNames) {
		return false
	}
	return strings.HasSuffix(optionKindNames[kind], "(obsolete)")
}

// IsDefined returns true if the option is a known unreserved option kind.
func (kind OptionKind) IsDefined() bool {
	return kind <= OptMultipath || kind == OptFastOpenCookie || kind == OptEncryptionNegotiation ||
		kind == OptAccurateECN0 || kind == OptAccurateECN1
}

// AltChecksum is the algorithm number carried by the alternate checksum request option. See RFC 1146.
type AltChecksum uint8

const (
	AltChecksumTCP        AltChecksum = iota // TCP checksum
	AltChecksumFletcher8                     // 8-bit Fletcher
	AltChecksumFletcher16                    // 16-bit Fletcher
)

func (ac AltChecksum) String() string {
	switch ac {
	case AltChecksumTCP:
		return "TCP checksum"
	case AltChecksumFletcher8:
		return "8-bit Fletcher"
	case AltChecksumFletcher16:
		return "16-bit Fletcher"
	}
	return "AltChecksum(" + strconv.Itoa(int(ac)) + ")"
}

// CRCState records where the checksum field value of a [Segment] came from.
type CRCState uint8

const (
	// CRCUnset means the checksum will be computed (or zeroed) on the next encode.
	CRCUnset CRCState = iota
	// CRCUser means the checksum was supplied by the caller or decoded from the
	// wire and will be written verbatim on the next encode.
	CRCUser
	// CRCComputed means the checksum field holds the value computed by the last encode.
	CRCComputed
)

func (cs CRCState) String() string {
	switch cs {
	case CRCUnset:
		return "unset"
	case CRCUser:
		return "user"
	case CRCComputed:
		return "computed"
	}
	return "CRCState(" + strconv.Itoa(int(cs)) + ")"
}
