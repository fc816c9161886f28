package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCountWords(t *testing.T) {
	assert.Equal(t, 0, CountWords(""))
	assert.Equal(t, 0, CountWords("  \n\t "))
	assert.Equal(t, 4, CountWords("Il était  une\nfois"))
}

func TestTruncateWords(t *testing.T) {
	cases := []struct {
		in   string
		n    int
		want string
	}{
		{"un deux trois quatre", 2, "un deux"},
		{"un\n\ndeux  trois", 2, "un\n\ndeux"},
		{"un deux", 5, "un deux"},
		{"un deux", 2, "un deux"},
		{"  un deux", 1, "  un"},
		{"un deux", 0, ""},
	}
	for _, c := range cases {
		got := TruncateWords(c.in, c.n)
		assert.Equal(t, c.want, got, c.in)
		assert.LessOrEqual(t, CountWords(got), c.n)
	}
}

func TestHeadTailRunes(t *testing.T) {
	s := "héllo wörld"
	assert.Equal(t, "hél", HeadRunes(s, 3))
	assert.Equal(t, "rld", TailRunes(s, 3))
	assert.Equal(t, s, TailRunes(s, 100))
	assert.Equal(t, "", TailRunes(s, 0))
	assert.Equal(t, strings.Repeat("é", 2), TailRunes(strings.Repeat("é", 5), 2))
}
