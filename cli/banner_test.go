package cli

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestBanner(t *testing.T) {
	t.Setenv("SIMULATION_NO_BANNER", "false")

	out := Banner("traveler\nrun 1", 12, AlignCenter)
	lines := strings.Split(out, "\n")

	assert.Len(t, lines, 4)

	for _, l := range lines {
		assert.Equal(t, 12, utf8.RuneCountInString(l), l)
	}

	assert.Equal(t, "│ traveler │", lines[1])
	assert.Equal(t, "│  run 1   │", lines[2])
}

func TestBannerAlignmentAndTruncation(t *testing.T) {
	t.Setenv("SIMULATION_NO_BANNER", "0")

	assert.Equal(t, "│ab  │", strings.Split(Banner("ab", 6, AlignLeft), "\n")[1])
	assert.Equal(t, "│  ab│", strings.Split(Banner("ab", 6, AlignRight), "\n")[1])
	assert.Equal(t, "│abc… │", strings.Split(Banner("abcdefgh", 7, AlignLeft), "\n")[1])
	assert.Empty(t, Banner("ab", 6, 42))
	assert.Empty(t, Banner("ab", 2, AlignLeft))
}

func TestBannerSuppressed(t *testing.T) {
	t.Setenv("SIMULATION_NO_BANNER", "true")

	assert.Equal(t, "plain\n", Banner("plain", 20, AlignCenter))
}

func TestPrefixSearcher(t *testing.T) {
	t.Parallel()

	search := prefixSearcher([]string{"traveler", "Attacker"})

	assert.True(t, search("", 0))
	assert.True(t, search("tra", 0))
	assert.False(t, search("tra", 1))
	assert.True(t, search("att", 1))
}
