package registers

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingCollector struct {
	name     string
	initErr  error
	collects atomic.Int64
	closed   atomic.Bool
}

func (c *countingCollector) Name() string { return c.name }
func (c *countingCollector) Init() error  { return c.initErr }
func (c *countingCollector) Collect(context.Context) error {
	c.collects.Add(1)
	return nil
}
func (c *countingCollector) Close() error {
	c.closed.Store(true)
	return nil
}

func TestAgentLifecycle(t *testing.T) {
	agent := NewAgent(5 * time.Millisecond)
	c := &countingCollector{name: "counting"}
	agent.Register(c)

	require.NoError(t, agent.Start(context.Background()))
	assert.Error(t, agent.Start(context.Background()))
	require.Eventually(t, func() bool { return c.collects.Load() >= 3 }, time.Second, time.Millisecond)

	require.NoError(t, agent.Shutdown(context.Background()))
	assert.True(t, c.closed.Load())
}

func TestAgentInitFailure(t *testing.T) {
	agent := NewAgent(time.Second)
	agent.Register(&countingCollector{name: "broken", initErr: errors.New("no /proc")})
	assert.Error(t, agent.Start(context.Background()))
}

func TestInitPromRegistry(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reg, factory, agent, err := InitPromRegistry(ctx, Options{EnableProcess: true, Interval: time.Hour})
	require.NoError(t, err)
	require.NotNil(t, factory)
	defer agent.Shutdown(context.Background())

	// 首次采集在 Start 后立即执行
	require.Eventually(t, func() bool {
		n, err := testutil.GatherAndCount(reg, "jmx_collector_process_goroutines")
		return err == nil && n == 1
	}, time.Second, 5*time.Millisecond)
}
