package palette

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var hexColor = regexp.MustCompile(`^#[0-9a-f]{6}$`)

func TestColorsAreDistinctAndWellFormed(t *testing.T) {
	p := New(5, 24)
	require.Equal(t, 24, p.Size())

	seen := map[string]int{}
	for i := 0; i < p.Size(); i++ {
		c, ok := p.Color(i)
		require.True(t, ok)
		assert.Regexp(t, hexColor, c)
		if prev, dup := seen[c]; dup {
			t.Fatalf("indices %d and %d render the same color %s", prev, i, c)
		}
		seen[c] = i
	}
}

func TestColorIsDeterministic(t *testing.T) {
	a := New(5, 24)
	b := New(5, 24)
	for i := 0; i < a.Size(); i++ {
		ca, _ := a.Color(i)
		cb, _ := b.Color(i)
		assert.Equal(t, ca, cb)
	}
}

func TestColorOutOfRange(t *testing.T) {
	p := New(5, 8)
	_, ok := p.Color(-1)
	assert.False(t, ok)
	_, ok = p.Color(8)
	assert.False(t, ok)
}

func TestFreeExcludesUsedIndices(t *testing.T) {
	p := New(5, 4)

	free := p.Free([]int{1, 3})
	require.Len(t, free, 2)
	assert.Equal(t, 0, free[0].Index)
	assert.Equal(t, 2, free[1].Index)

	assert.Len(t, p.Free(nil), 4)
	assert.Empty(t, p.Free([]int{0, 1, 2, 3}))
}
