package lnlayer

import "encoding/hex"

// Raw is an opaque bytes layer. Decoders use it to hold data they do not
// interpret, such as a TCP segment's payload.
type Raw struct {
	data  []byte
	inner Layer
}

var _ Layer = (*Raw)(nil)

// NewRaw returns a Raw layer holding a copy of data.
func NewRaw(data []byte) *Raw {
	return &Raw{data: append([]byte(nil), data...)}
}

// Bytes returns the layer's data. The returned slice is owned by the layer.
func (r *Raw) Bytes() []byte { return r.data }

// SetBytes replaces the layer's data with a copy of data.
func (r *Raw) SetBytes(data []byte) { r.data = append(r.data[:0], data...) }

func (r *Raw) HeaderLength() int { return len(r.data) }

func (r *Raw) Inner() Layer { return r.inner }

func (r *Raw) SetInner(l Layer) { r.inner = l }

func (r *Raw) Encode(dst []byte, _ Layer) error {
	if len(dst) < len(r.data) {
		return ErrShortBuffer
	}
	copy(dst, r.data)
	return nil
}

func (r *Raw) Clone() Layer {
	clone := NewRaw(r.data)
	if r.inner != nil {
		clone.inner = r.inner.Clone()
	}
	return clone
}

func (r *Raw) String() string {
	const maxShow = 16
	if len(r.data) > maxShow {
		return "Raw " + hex.EncodeToString(r.data[:maxShow]) + "..."
	}
	return "Raw " + hex.EncodeToString(r.data)
}
