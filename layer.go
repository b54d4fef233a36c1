package lnlayer

// Layer is one level of a composable packet. A layer knows the size of its own
// header, optionally owns a single inner layer and can write itself to bytes.
//
// Layers are chained outermost first, i.e: IPv4 -> TCP -> Raw.
type Layer interface {
	// HeaderLength returns the number of bytes this layer occupies on the wire
	// without counting inner layers.
	HeaderLength() int
	// Inner returns the nested layer or nil.
	Inner() Layer
	// SetInner replaces the nested layer. A nil argument removes it.
	SetInner(Layer)
	// Encode writes the layer's header to dst[:HeaderLength()]. dst spans the
	// layer and its inner layers, which have already been encoded by the time
	// Encode is called. parent is the enclosing layer or nil.
	Encode(dst []byte, parent Layer) error
	// Clone returns a deep copy of the layer and its inner layers.
	Clone() Layer
}

// PseudoHeaderer is implemented by network layers that provide the addresses
// used to build transport checksum pseudo-headers.
type PseudoHeaderer interface {
	PseudoHeaderAddrs() (src, dst [4]byte)
}

// Size returns the total encoded length of l and all of its inner layers.
func Size(l Layer) (n int) {
	for ; l != nil; l = l.Inner() {
		n += l.HeaderLength()
	}
	return n
}

// Encode serializes l and its inner layers into dst and returns the number of
// bytes written. Inner layers are written first so that outer layers may
// checksum over them. parent is passed to l.Encode and may be nil.
func Encode(dst []byte, l Layer, parent Layer) (int, error) {
	n := Size(l)
	if len(dst) < n {
		return 0, ErrShortBuffer
	}
	dst = dst[:n]
	if inner := l.Inner(); inner != nil {
		_, err := Encode(dst[l.HeaderLength():], inner, l)
		if err != nil {
			return 0, err
		}
	}
	err := l.Encode(dst, parent)
	if err != nil {
		return 0, err
	}
	return n, nil
}

// Marshal allocates a buffer and encodes l into it. See [Encode].
func Marshal(l Layer) ([]byte, error) {
	buf := make([]byte, Size(l))
	_, err := Encode(buf, l, nil)
	if err != nil {
		return nil, err
	}
	return buf, nil
}

// Find returns the first layer in the chain starting at l, l included,
// for which match returns true.
func Find(l Layer, match func(Layer) bool) Layer {
	for ; l != nil; l = l.Inner() {
		if match(l) {
			return l
		}
	}
	return nil
}
