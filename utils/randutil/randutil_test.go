package randutil

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSuffix(t *testing.T) {
	require := require.New(t)

	s := Suffix(6)
	require.Len(s, 6)
	require.Regexp(regexp.MustCompile(`^[a-z0-9]{6}$`), s)
}

func TestHex(t *testing.T) {
	require := require.New(t)

	h := Hex(32)
	require.Len(h, 64)
	require.Regexp(regexp.MustCompile(`^[0-9a-f]{64}$`), h)
	require.NotEqual(h, Hex(32))
}
