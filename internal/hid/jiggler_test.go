package hid

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJigglerFiresAfterInactivity(t *testing.T) {
	var moves int32
	j := NewJiggler(true, func(dx, dy int) {
		atomic.AddInt32(&moves, 1)
		assert.True(t, dx == 100 || dx == -100 || dx == 0)
		assert.True(t, dy == 100 || dy == -100 || dy == 0)
	})
	j.SetParams(true, true, 50*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 600*time.Millisecond)
	defer cancel()

	go j.Run(ctx)

	<-ctx.Done()
	require.GreaterOrEqual(t, int(atomic.LoadInt32(&moves)), 4)
}

func TestJigglerResetsOnUserEvent(t *testing.T) {
	var moves int32
	j := NewJiggler(false, func(dx, dy int) {
		atomic.AddInt32(&moves, 1)
	})
	j.SetParams(true, true, 10*time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	go j.Run(ctx)
	j.NoteUserEvent()

	<-ctx.Done()
	assert.Equal(t, int32(0), atomic.LoadInt32(&moves))
}

func TestJigglerDisabledNeverFires(t *testing.T) {
	var moves int32
	j := NewJiggler(true, func(dx, dy int) { atomic.AddInt32(&moves, 1) })
	j.SetParams(false, true, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	go j.Run(ctx)
	<-ctx.Done()

	assert.Equal(t, int32(0), atomic.LoadInt32(&moves))
}
