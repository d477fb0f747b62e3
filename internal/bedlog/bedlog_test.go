package bedlog

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTruncatingWriterPassesShortLinesThrough(t *testing.T) {
	SetMaxLength(0)
	var buf bytes.Buffer
	w := truncatingWriter{&buf}

	n, err := w.Write([]byte("short line"))
	require.NoError(t, err)
	assert.Equal(t, 10, n)
	assert.Equal(t, "short line", buf.String())
}

func TestTruncatingWriterCapsOversizedLines(t *testing.T) {
	SetMaxLength(5)
	defer SetMaxLength(0)
	var buf bytes.Buffer
	w := truncatingWriter{&buf}

	n, err := w.Write([]byte("a line far longer than the cap"))
	require.NoError(t, err)
	assert.Equal(t, len("a line far longer than the cap"), n) // claims the full write, per io.Writer
	assert.Equal(t, "a lin\n", buf.String())
}
