package sandbox

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHereDocWriteCommand_EmbedsContentBetweenRandomDelimiters(t *testing.T) {
	cmd := hereDocWriteCommand("hello.txt", "Hello, World!")
	require := assert.New(t)
	require.Equal("sh", cmd[0])
	require.Equal("-c", cmd[1])
	script := cmd[2]
	require.True(strings.Contains(script, "Hello, World!"))
	require.True(strings.Contains(script, "LLMBENCH_EOF_"))
}

func TestHereDocWriteCommand_DifferentCallsUseDifferentDelimiters(t *testing.T) {
	a := hereDocWriteCommand("a.txt", "x")[2]
	b := hereDocWriteCommand("a.txt", "x")[2]
	assert.NotEqual(t, a, b, "delimiters must be randomized per write")
}

func TestShellQuote_EscapesEmbeddedSingleQuote(t *testing.T) {
	q := shellQuote("it's.txt")
	assert.Equal(t, `'it'\''s.txt'`, q)
}
