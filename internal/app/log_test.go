package app

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLogRing(t *testing.T) {
	b := newBuffer(2)

	_, err := b.Write([]byte("hello "))
	require.NoError(t, err)
	_, err = b.Write([]byte("world"))
	require.NoError(t, err)

	var out bytes.Buffer
	_, err = b.WriteTo(&out)
	require.NoError(t, err)
	require.Equal(t, "hello world", out.String())

	b.Reset()
	out.Reset()
	_, err = b.WriteTo(&out)
	require.NoError(t, err)
	require.Empty(t, out.String())
}

func TestLogRingOverflow(t *testing.T) {
	b := newBuffer(2)

	// more than 2 chunks of data, oldest must be dropped
	line := strings.Repeat("x", 1024)
	for i := 0; i < 3*chunkSize/len(line); i++ {
		_, err := b.Write([]byte(line))
		require.NoError(t, err)
	}

	var out bytes.Buffer
	_, err := b.WriteTo(&out)
	require.NoError(t, err)
	require.LessOrEqual(t, out.Len(), 2*chunkSize)
	require.NotZero(t, out.Len())
}
