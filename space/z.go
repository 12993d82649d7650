package space

import (
	"fmt"
	"math/bits"
	"strings"
)

const (
	// MaxZBits is the maximum number of interleaved bits a z-value can carry.
	MaxZBits = 57

	lengthBits = 6
	lengthMask = 1<<lengthBits - 1
	topBit     = 62
)

// Z is a z-value: a cell of the hierarchical decomposition of a space.
//
// The interleaved coordinate bits are left-justified starting at bit 62 and
// the resolution length (number of significant bits) lives in the low six
// bits. With this layout raw integer order is the depth-first, in-order
// traversal of the decomposition: an ancestor sorts immediately before the
// range [z, z.Hi()] holding all of its descendants.
type Z int64

// NewZ builds a z-value from the length most significant bits of a cell
// address. prefix must fit in length bits.
func NewZ(prefix uint64, length int) (Z, error) {
	if length < 0 || length > MaxZBits {
		return 0, fmt.Errorf("%w: %d", ErrInvalidLength, length)
	}
	if length < 64 && prefix>>uint(length) != 0 {
		return 0, fmt.Errorf("%w: prefix %#x does not fit in %d bits", ErrInvalidPrefix, prefix, length)
	}
	return makeZ(prefix, length), nil
}

// MustZ is like NewZ but panics on invalid input. Intended for tests and constants.
func MustZ(prefix uint64, length int) Z {
	z, err := NewZ(prefix, length)
	if err != nil {
		panic(err)
	}
	return z
}

func makeZ(prefix uint64, length int) Z {
	if length == 0 {
		return 0
	}
	return Z(prefix<<uint(topBit+1-length) | uint64(length))
}

// Length returns the resolution length of z.
func (z Z) Length() int {
	return int(z & lengthMask)
}

// Prefix returns the Length() significant bits of z, right-justified.
func (z Z) Prefix() uint64 {
	l := z.Length()
	if l == 0 {
		return 0
	}
	return uint64(z) >> uint(topBit+1-l)
}

// Ancestor returns the cell at the given level containing z.
// level must be in [0, z.Length()].
func (z Z) Ancestor(level int) Z {
	l := z.Length()
	if level >= l {
		return z
	}
	if level <= 0 {
		return 0
	}
	return makeZ(z.Prefix()>>uint(l-level), level)
}

// Parent returns the cell one level up. The root is its own parent.
func (z Z) Parent() Z {
	return z.Ancestor(z.Length() - 1)
}

// Child returns the left (bit 0) or right (bit 1) child of z.
func (z Z) Child(bit uint64) Z {
	return makeZ(z.Prefix()<<1|bit&1, z.Length()+1)
}

// Hi returns an upper bound of every z-value inside z, including
// descendants at full resolution.
func (z Z) Hi() Z {
	l := z.Length()
	return Z(uint64(z) | (uint64(1)<<uint(topBit+1-l) - 1))
}

// Contains reports whether z contains (or equals) other.
func (z Z) Contains(other Z) bool {
	l := z.Length()
	if l > other.Length() {
		return false
	}
	if l == 0 {
		return true
	}
	return uint64(other)>>uint(topBit+1-l) == z.Prefix()
}

// String renders z as its bit string, e.g. "z(0110)". The root prints as "z()".
func (z Z) String() string {
	l := z.Length()
	var b strings.Builder
	b.Grow(l + 3)
	b.WriteString("z(")
	p := z.Prefix()
	for i := l - 1; i >= 0; i-- {
		if p>>uint(i)&1 == 1 {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
	}
	b.WriteByte(')')
	return b.String()
}

// Relationship describes how two cells of the decomposition are nested.
type Relationship int

const (
	// Disjoint cells cover non-overlapping regions.
	Disjoint Relationship = iota
	// Ancestor means the first cell strictly contains the second.
	Ancestor
	// Descendant means the first cell is strictly contained by the second.
	Descendant
	// Equal cells are identical.
	Equal
)

// String returns a string representation of the Relationship.
func (r Relationship) String() string {
	switch r {
	case Disjoint:
		return "Disjoint"
	case Ancestor:
		return "Ancestor"
	case Descendant:
		return "Descendant"
	case Equal:
		return "Equal"
	default:
		return "Unknown"
	}
}

// Overlapping reports whether the relationship implies shared space.
func (r Relationship) Overlapping() bool {
	return r != Disjoint
}

// Relate computes the relationship of a to b from bit prefixes and lengths.
func Relate(a, b Z) Relationship {
	switch {
	case a == b:
		return Equal
	case a.Length() < b.Length() && a.Contains(b):
		return Ancestor
	case b.Length() < a.Length() && b.Contains(a):
		return Descendant
	default:
		return Disjoint
	}
}

// CommonPrefixLength returns the number of leading interleaved bits a and b
// share, capped at the shorter of the two lengths.
func CommonPrefixLength(a, b Z) int {
	n := min(a.Length(), b.Length())
	diff := (uint64(a) ^ uint64(b)) &^ lengthMask
	if diff == 0 {
		return n
	}
	// bit 63 is always clear, so the first interleaved bit is leading zero #1.
	return min(n, bits.LeadingZeros64(diff)-1)
}
