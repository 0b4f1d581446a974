package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "abc…", Truncate("abcdef", 3))
	// "ж" is two bytes; cutting inside it backs off to the rune start.
	assert.Equal(t, "a…", Truncate("aжb", 2))
}

func TestSHA256Hex(t *testing.T) {
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", SHA256Hex(nil))
}

func TestJSONHash_StableForEqualValues(t *testing.T) {
	type req struct {
		Parents [][]string `json:"parents"`
	}
	h1, b1, err := JSONHash(req{Parents: [][]string{{"m", "Aa"}}})
	require.NoError(t, err)
	h2, _, err := JSONHash(req{Parents: [][]string{{"m", "Aa"}}})
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
	assert.Equal(t, `{"parents":[["m","Aa"]]}`, string(b1))
	assert.Len(t, h1, 64)
}
