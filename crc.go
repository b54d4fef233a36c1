package lnlayer

import (
	"encoding/binary"
)

// CRC791 function as defined by RFC 791. The Checksum field for TCP+IP
// is the 16-bit ones' complement of the ones' complement sum of
// all 16-bit words in the header. In case of uneven number of octet the
// last word is LSB padded with zeros.
//
// The zero value of CRC791 is ready to use.
type CRC791 struct {
	sum uint32
}

// fold adds the carries in the high 16 bits back into the low 16 bits until none remain.
func fold(sum uint32) uint16 {
	for sum>>16 != 0 {
		sum = (sum & 0xffff) + sum>>16
	}
	return uint16(sum)
}

func checksumWriteEven(sum uint32, buff []byte) uint32 {
	for i := 0; i+1 < len(buff); i += 2 {
		sum += uint32(binary.BigEndian.Uint16(buff[i:]))
		if sum&0x8000_0000 != 0 {
			// Keep headroom for very large buffers.
			sum = uint32(fold(sum))
		}
	}
	return sum
}

// Write adds the bytes in buff to the running checksum. The buffer length must be even
// so that words stay aligned across calls; use [CRC791.PayloadSum16] for the final odd tail.
func (c *CRC791) Write(buff []byte) {
	if len(buff)&1 != 0 {
		panic("CRC791.Write: odd length buffer")
	}
	c.sum = checksumWriteEven(c.sum, buff)
}

// AddUint32 adds a 32 bit value to the running checksum interpreted as BigEndian (network order).
func (c *CRC791) AddUint32(value uint32) {
	c.AddUint16(uint16(value >> 16))
	c.AddUint16(uint16(value))
}

// AddUint16 adds a 16 bit value to the running checksum interpreted as BigEndian (network order).
func (c *CRC791) AddUint16(value uint16) {
	c.sum += uint32(value)
}

// AddPseudoHeader adds an IPv4 style pseudo-header to the running checksum:
// source and destination addresses, the protocol number and the
// transport length (header plus data) in octets.
func (c *CRC791) AddPseudoHeader(src, dst [4]byte, proto IPProto, length uint16) {
	c.Write(src[:])
	c.Write(dst[:])
	c.AddUint16(uint16(proto))
	c.AddUint16(length)
}

// Sum16 calculates the checksum with the data written to c thus far.
func (c *CRC791) Sum16() uint16 {
	return ^fold(c.sum)
}

// PayloadSum16 returns the checksum resulting by adding the bytes in p to the running checksum.
// Does not modify the running checksum.
func (c *CRC791) PayloadSum16(buff []byte) uint16 {
	odd := len(buff) & 1
	sum := checksumWriteEven(c.sum, buff[:len(buff)-odd])
	if odd > 0 {
		sum += uint32(buff[len(buff)-1]) << 8
	}
	return ^fold(sum)
}

// Reset zeros out the CRC791, resetting it to the initial state.
func (c *CRC791) Reset() { *c = CRC791{} }
