package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReferenceFormat(t *testing.T) {
	g := NewReferenceGenerator("L4D")
	g.now = func() time.Time { return time.UnixMilli(1760000000123) }
	g.random = func(int) (string, error) { return "K9QZ", nil }

	ref, err := g.Generate()
	require.NoError(t, err)
	assert.Equal(t, "L4D00000123K9QZ", ref)
	assert.LessOrEqual(t, len(ref), MaxReferenceLength)
}

func TestReferencesDistinctWithinSameMillisecond(t *testing.T) {
	fixed := time.UnixMilli(1760000000123)
	g := NewReferenceGenerator("L4D")
	g.now = func() time.Time { return fixed }

	a, err := g.Generate()
	require.NoError(t, err)
	b, err := g.Generate()
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	for _, ref := range []string{a, b} {
		assert.Regexp(t, `^L4D\d{8}[A-Z0-9]{4}$`, ref)
		assert.LessOrEqual(t, len(ref), MaxReferenceLength)
	}
}

func TestReferenceRejectsOverlongPrefix(t *testing.T) {
	g := NewReferenceGenerator("DETAILING")
	_, err := g.Generate()
	assert.Error(t, err)
}
