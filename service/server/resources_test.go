package server

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadyGateRetriesAfterFailure(t *testing.T) {
	var (
		g              readyGate
		starts, waits  int
		errNotYet      = errors.New("not yet")
		readyAfterWait = 3
	)
	start := func() { starts++ }
	wait := func(context.Context) error {
		waits++
		if waits < readyAfterWait {
			return errNotYet
		}
		return nil
	}
	ctx := context.Background()

	assert.ErrorIs(t, g.wait(ctx, start, wait), errNotYet)
	assert.ErrorIs(t, g.wait(ctx, start, wait), errNotYet)
	require.NoError(t, g.wait(ctx, start, wait))
	require.NoError(t, g.wait(ctx, start, wait))

	assert.Equal(t, 1, starts)
	assert.Equal(t, readyAfterWait, waits, "ready gate must not wait again")
}

func TestResourcesCloseReverseOrder(t *testing.T) {
	cfg := testConfig(t)
	r := NewResources(cfg)
	var order []int
	for i := 0; i < 3; i++ {
		r.onClose(func(context.Context) error { order = append(order, i); return nil })
	}
	require.NoError(t, r.Close(context.Background()))
	assert.Equal(t, []int{2, 1, 0}, order)
}
