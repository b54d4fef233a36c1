package lnlayer

import "strconv"

type errGeneric uint8

// Generic errors common to layer encoding and decoding.
const (
	_                     errGeneric = iota // non-initialized err
	ErrShortBuffer                          // short buffer
	ErrTruncatedFrame                       // truncated frame
	ErrInvalidLengthField                   // invalid length field
	ErrInvalidField                         // invalid field
	ErrBadCRC                               // incorrect checksum
)

func (err errGeneric) Error() string {
	return err.String()
}

func (err errGeneric) String() string {
	switch err {
	case ErrShortBuffer:
		return "short buffer"
	case ErrTruncatedFrame:
		return "truncated frame"
	case ErrInvalidLengthField:
		return "invalid length field"
	case ErrInvalidField:
		return "invalid field"
	case ErrBadCRC:
		return "incorrect checksum"
	}
	return "errGeneric(" + strconv.Itoa(int(err)) + ")"
}

// FramingError is returned by decoders when the sizes declared by a frame do not
// fit in the data available. No partially decoded layer accompanies it.
type FramingError struct {
	Layer  string // protocol name, i.e: "tcp".
	Field  string // what was being framed, i.e: "header", "options".
	Offset int    // byte offset within the layer where the region starts.
	Need   int    // bytes required by the declared size.
	Have   int    // bytes available.
	// Err is [ErrTruncatedFrame] or [ErrInvalidLengthField].
	Err error
}

func (fe *FramingError) Error() string {
	b := make([]byte, 0, 64)
	b = append(b, fe.Layer...)
	b = append(b, ": "...)
	b = append(b, fe.Err.Error()...)
	b = append(b, " in "...)
	b = append(b, fe.Field...)
	b = append(b, " at offset "...)
	b = strconv.AppendInt(b, int64(fe.Offset), 10)
	if fe.Need > 0 || fe.Have > 0 {
		b = append(b, " (need "...)
		b = strconv.AppendInt(b, int64(fe.Need), 10)
		b = append(b, ", have "...)
		b = strconv.AppendInt(b, int64(fe.Have), 10)
		b = append(b, ')')
	}
	return string(b)
}

func (fe *FramingError) Unwrap() error { return fe.Err }
