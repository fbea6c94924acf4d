package klog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferCapturesLines(t *testing.T) {
	b := NewBuffer()

	_, err := b.Write([]byte("first line\nsecond line\n"))
	require.NoError(t, err)

	records := b.Seek(time.Minute)
	require.Len(t, records, 2)
	assert.Equal(t, "first line", records[0].Line)
	assert.Equal(t, "second line", records[1].Line)
}

func TestBufferSeekZeroReturnsNothing(t *testing.T) {
	b := NewBuffer()
	_, _ = b.Write([]byte("hello\n"))

	assert.Empty(t, b.Seek(0))
}

func TestBufferSince(t *testing.T) {
	b := NewBuffer()
	_, _ = b.Write([]byte("old\n"))

	cut := time.Now()
	time.Sleep(5 * time.Millisecond)
	_, _ = b.Write([]byte("new\n"))

	records := b.Since(cut)
	require.Len(t, records, 1)
	assert.Equal(t, "new", records[0].Line)
}

func TestBufferBounded(t *testing.T) {
	b := NewBuffer()
	for i := 0; i < maxRecords+100; i++ {
		_, _ = b.Write([]byte("x\n"))
	}

	assert.LessOrEqual(t, len(b.Seek(time.Hour)), maxRecords)
}

func TestNewFallsBackToInfoOnBadLevel(t *testing.T) {
	logger := New("nonsense", nil)
	require.NotNil(t, logger)
}
