package space

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewZ(t *testing.T) {
	z, err := NewZ(0b101, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, z.Length())
	assert.Equal(t, uint64(0b101), z.Prefix())
	assert.Equal(t, "z(101)", z.String())

	root, err := NewZ(0, 0)
	require.NoError(t, err)
	assert.Equal(t, Z(0), root)
	assert.Equal(t, "z()", root.String())

	_, err = NewZ(0b100, 2)
	assert.ErrorIs(t, err, ErrInvalidPrefix)

	_, err = NewZ(0, MaxZBits+1)
	assert.ErrorIs(t, err, ErrInvalidLength)

	full := MustZ(1<<MaxZBits-1, MaxZBits)
	assert.Equal(t, MaxZBits, full.Length())
	assert.Greater(t, int64(full), int64(0))
}

func TestZ_AncestorAndParent(t *testing.T) {
	z := MustZ(0b110110, 6)

	assert.Equal(t, MustZ(0b110, 3), z.Ancestor(3))
	assert.Equal(t, Z(0), z.Ancestor(0))
	assert.Equal(t, z, z.Ancestor(6))
	assert.Equal(t, MustZ(0b11011, 5), z.Parent())
	assert.Equal(t, Z(0), Z(0).Parent())

	assert.Equal(t, MustZ(0b1100, 4), MustZ(0b110, 3).Child(0))
	assert.Equal(t, MustZ(0b1101, 4), MustZ(0b110, 3).Child(1))
}

func TestZ_OrderIsDepthFirst(t *testing.T) {
	// Every cell of a depth-3 tree, listed in pre-order.
	var preorder []Z
	var walk func(z Z)
	walk = func(z Z) {
		preorder = append(preorder, z)
		if z.Length() == 3 {
			return
		}
		walk(z.Child(0))
		walk(z.Child(1))
	}
	walk(0)

	sorted := slices.Clone(preorder)
	slices.Sort(sorted)
	assert.Equal(t, preorder, sorted)

	for _, a := range preorder {
		for _, b := range preorder {
			if a.Contains(b) {
				assert.LessOrEqual(t, a, b)
				assert.LessOrEqual(t, b, a.Hi(), "%s should lie below %s.Hi()", b, a)
			} else if a < b {
				assert.Less(t, a.Hi(), b, "%s and %s are disjoint", a, b)
			}
		}
	}
}

func TestRelate(t *testing.T) {
	a := MustZ(0b10, 2)
	tests := []struct {
		name string
		a, b Z
		want Relationship
	}{
		{"equal", a, a, Equal},
		{"ancestor", a, MustZ(0b1011, 4), Ancestor},
		{"descendant", MustZ(0b1011, 4), a, Descendant},
		{"disjoint sibling", a, MustZ(0b11, 2), Disjoint},
		{"disjoint cousin", MustZ(0b100, 3), MustZ(0b1011, 4), Disjoint},
		{"root ancestor", 0, a, Ancestor},
		{"root equal", 0, 0, Equal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Relate(tt.a, tt.b))
			assert.Equal(t, tt.want != Disjoint, Relate(tt.a, tt.b).Overlapping())
		})
	}
}

func TestCommonPrefixLength(t *testing.T) {
	assert.Equal(t, 2, CommonPrefixLength(MustZ(0b1011, 4), MustZ(0b1000, 4)))
	assert.Equal(t, 2, CommonPrefixLength(MustZ(0b10, 2), MustZ(0b1011, 4)))
	assert.Equal(t, 0, CommonPrefixLength(MustZ(0b0, 1), MustZ(0b1, 1)))
	assert.Equal(t, 0, CommonPrefixLength(0, MustZ(0b1, 1)))
	assert.Equal(t, 4, CommonPrefixLength(MustZ(0b1011, 4), MustZ(0b1011, 4)))
}
