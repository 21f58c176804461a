package dimension

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefineAndLookup(t *testing.T) {
	c := NewCatalog()
	redefined, err := c.Define("geography", []string{"us", "eu", "apac"})
	require.NoError(t, err)
	assert.False(t, redefined)

	d, ok := c.Get("geography")
	require.True(t, ok)
	assert.Equal(t, 3, d.Size())

	idx, ok := d.Index("eu")
	require.True(t, ok)
	assert.Equal(t, 1, idx)

	_, ok = d.Index("mars")
	assert.False(t, ok)
}

func TestRedefineReplacesMembers(t *testing.T) {
	c := NewCatalog()
	_, err := c.Define("product", []string{"basic"})
	require.NoError(t, err)

	redefined, err := c.Define("product", []string{"basic", "pro", "enterprise"})
	require.NoError(t, err)
	assert.True(t, redefined)
	assert.Equal(t, 3, c.Size("product"))
}

func TestDefineRejectsBadInput(t *testing.T) {
	c := NewCatalog()

	_, err := c.Define("", []string{"a"})
	assert.Error(t, err)

	_, err = c.Define("empty", nil)
	assert.Error(t, err)

	_, err = c.Define("dup", []string{"a", "b", "a"})
	assert.Error(t, err)
}

func TestUnknownDimensionHasUnitSize(t *testing.T) {
	c := NewCatalog()
	assert.Equal(t, 1, c.Size("never-defined"))
}
