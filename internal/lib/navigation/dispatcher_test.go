package navigation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoop_RunsInOrder(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	loop := NewLoop(4)
	var got []int
	for i := 1; i <= 3; i++ {
		require.NoError(t, loop.Dispatch(ctx, func() { got = append(got, i) }))
	}
	assert.Equal(t, 3, loop.Pending())

	require.NoError(t, loop.Dispatch(ctx, cancel))
	err := loop.Run(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []int{1, 2, 3}, got)
}

func TestLoop_DispatchGivesUp(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	loop := NewLoop(0)
	assert.ErrorIs(t, loop.Dispatch(ctx, func() {}), context.Canceled)
	assert.Zero(t, loop.Pending())
}
