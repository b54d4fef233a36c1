package lnlayer

import "strconv"

const (
	sizeHeaderIPv4 = 20
	sizeHeaderTCP  = 20
)

// IPProto represents the IP protocol number.
type IPProto uint8

// IP protocol numbers.
const (
	IPProtoICMP     IPProto = 1   // ICMP
	IPProtoIGMP     IPProto = 2   // IGMP
	IPProtoTCP      IPProto = 6   // TCP
	IPProtoUDP      IPProto = 17  // UDP
	IPProtoIPv6     IPProto = 41  // IPv6
	IPProtoGRE      IPProto = 47  // GRE
	IPProtoESP      IPProto = 50  // ESP
	IPProtoIPv6ICMP IPProto = 58  // ICMPv6
	IPProtoSCTP     IPProto = 132 // SCTP
	IPProtoUDPLite  IPProto = 136 // UDPLite
)

func (proto IPProto) String() string {
	switch proto {
	case IPProtoICMP:
		return "ICMP"
	case IPProtoIGMP:
		return "IGMP"
	case IPProtoTCP:
		return "TCP"
	case IPProtoUDP:
		return "UDP"
	case IPProtoIPv6:
		return "IPv6"
	case IPProtoGRE:
		return "GRE"
	case IPProtoESP:
		return "ESP"
	case IPProtoIPv6ICMP:
		return "ICMPv6"
	case IPProtoSCTP:
		return "SCTP"
	case IPProtoUDPLite:
		return "UDPLite"
	}
	return "IPProto(" + strconv.Itoa(int(proto)) + ")"
}
