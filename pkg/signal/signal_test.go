package signal

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestShutdown(t *testing.T) {
	log := zap.NewNop()
	assert.NoError(t, Shutdown(log, time.Second, func(context.Context) error { return nil }))

	boom := errors.New("boom")
	assert.ErrorIs(t, Shutdown(log, time.Second, func(context.Context) error { return boom }), boom)

	err := Shutdown(log, 10*time.Millisecond, func(ctx context.Context) error {
		time.Sleep(200 * time.Millisecond)
		return nil
	})
	assert.ErrorIs(t, err, ErrShutdownTimeout)
}

func TestWaitForShutdownOnContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	err := WaitForShutdown(ctx, zap.NewNop(), time.Second, func(context.Context) error {
		called = true
		return nil
	})
	assert.NoError(t, err)
	assert.True(t, called)
}
