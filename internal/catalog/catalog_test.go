package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlternatives(t *testing.T) {
	c := Default()
	assert.Equal(t, []string{"Canva Pro", "Affinity Suite"}, c.Alternatives("Adobe Creative Cloud"))
	assert.Equal(t, []string{"Google One", "iCloud+"}, c.Alternatives("Dropbox Plus"))

	unknown := c.Alternatives("Netflix")
	assert.NotNil(t, unknown)
	assert.Empty(t, unknown)

	// exact name only
	assert.Empty(t, c.Alternatives("adobe creative cloud"))
}

func TestAlternativesReturnsCopy(t *testing.T) {
	c := Default()
	got := c.Alternatives("Dropbox Plus")
	got[0] = "changed"
	assert.Equal(t, "Google One", c.Alternatives("Dropbox Plus")[0])
}

func TestSuggestion(t *testing.T) {
	c := Default()
	s, ok := c.Suggestion("Adobe Creative Cloud")
	require.True(t, ok)
	assert.Equal(t, Suggestion{Alternative: "Canva Pro", Savings: 43}, s)

	s, ok = c.Suggestion("Dropbox Plus")
	require.True(t, ok)
	assert.Equal(t, 10.0, s.Savings)

	_, ok = c.Suggestion("Spotify")
	assert.False(t, ok)

	custom := New(Entry{Service: "X", Alternatives: []string{"Y"}})
	_, ok = custom.Suggestion("X")
	assert.False(t, ok)
	assert.Equal(t, []string{"Y"}, custom.Alternatives("X"))
}
