package collection

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoordinator_BusyGuard(t *testing.T) {
	var c Coordinator
	var calls atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)

	go func() {
		done <- c.Submit(context.Background(), c.Token(), func(ctx context.Context) error {
			calls.Add(1)
			close(started)
			<-release
			return nil
		})
	}()

	<-started
	assert.True(t, c.Busy())
	err := c.Submit(context.Background(), c.Token(), func(ctx context.Context) error {
		calls.Add(1)
		return nil
	})
	assert.ErrorIs(t, err, ErrSubmissionInProgress)

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, int32(1), calls.Load())
	assert.False(t, c.Busy())
}

func TestCoordinator_StaleResponse(t *testing.T) {
	var c Coordinator
	token := c.Token()

	err := c.Submit(context.Background(), token, func(ctx context.Context) error {
		c.Invalidate()
		return nil
	})
	assert.ErrorIs(t, err, ErrStaleResponse)
	assert.False(t, c.IsCurrent(token))
}

func TestCoordinator_ErrorMapping(t *testing.T) {
	var c Coordinator

	t.Run("remote message kept verbatim", func(t *testing.T) {
		err := c.Submit(context.Background(), c.Token(), func(ctx context.Context) error {
			return NewRemoteError("SALE_CLOSED", "Sale V-0012 is already settled", 409, nil)
		})
		var re *RemoteError
		require.ErrorAs(t, err, &re)
		assert.Equal(t, "Sale V-0012 is already settled", re.Error())
	})

	t.Run("transport error gets generic message", func(t *testing.T) {
		cause := errors.New("dial tcp: connection refused")
		err := c.Submit(context.Background(), c.Token(), func(ctx context.Context) error {
			return cause
		})
		var re *RemoteError
		require.ErrorAs(t, err, &re)
		assert.Equal(t, GenericRemoteMessage, re.Error())
		assert.ErrorIs(t, err, cause)
	})
}
