package util

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short text", Truncate("  short \n text ", 160))
	assert.Equal(t, "", Truncate("", 10))

	long := strings.Repeat("word ", 60)
	got := Truncate(long, 160)
	assert.LessOrEqual(t, utf8.RuneCountInString(got), 160)
	assert.True(t, strings.HasSuffix(got, "word..."), got)

	// No space to cut at: hard cut on a rune boundary.
	got = Truncate(strings.Repeat("ü", 200), 20)
	assert.Equal(t, 20, utf8.RuneCountInString(got))
	assert.True(t, utf8.ValidString(got))
}
