package zcode

import (
	"fmt"
)

// Iter iterates over a sequence of encoded Bytes.
type Iter Bytes

// Done returns true if no values remain.
func (i *Iter) Done() bool {
	return len(*i) == 0
}

// Next returns the next value as a Bytes type.  It returns an empty slice for
// an empty or zero-length value and nil for an unset value.  A tag announcing
// more bytes than remain is reported as an error rather than a panic so that
// truncated input can be rejected cleanly.
func (i *Iter) Next() (Bytes, bool, error) {
	u64, n := Uvarint(*i)
	if n <= 0 {
		return nil, false, fmt.Errorf("bad uvarint: %d", n)
	}
	if tagIsUnset(u64) {
		*i = (*i)[n:]
		return nil, tagIsContainer(u64), nil
	}
	length := tagLength(u64)
	if length < 0 || length > len(*i)-n {
		return nil, false, fmt.Errorf("value length %d exceeds remaining %d bytes", length, len(*i)-n)
	}
	end := n + length
	val := (*i)[n:end]
	*i = (*i)[end:]
	return Bytes(val), tagIsContainer(u64), nil
}
