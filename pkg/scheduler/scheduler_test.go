package scheduler_test

import (
	"context"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/jmx-collector/pkg/jmx"
	"github.com/jmx-collector/pkg/jmx/jmxtest"
	"github.com/jmx-collector/pkg/monitor"
	"github.com/jmx-collector/pkg/scheduler"
	"github.com/jmx-collector/pkg/sink"
	"github.com/jmx-collector/pkg/source"
)

const confDir = "/etc/jmx.d"

func writeSource(t *testing.T, fs afero.Fs, name, body string) {
	t.Helper()
	require.NoError(t, afero.WriteFile(fs, confDir+"/"+name, []byte(body), 0644))
}

func newScheduler(t *testing.T, fs afero.Fs, dialer jmx.Dialer, out sink.Sink, opts scheduler.Options) (*scheduler.Scheduler, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	opts.Loader = source.NewLoader(fs, confDir)
	opts.Dialer = dialer
	opts.Sink = out
	opts.Logger = zap.New(core)
	if opts.NbThread == 0 {
		opts.NbThread = 2
	}
	s, err := scheduler.New(opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Stop() })
	return s, logs
}

func TestNewRejectsBadParameters(t *testing.T) {
	base := scheduler.Options{
		Loader:           source.NewLoader(afero.NewMemMapFs(), confDir),
		Dialer:           jmxtest.NewDialer(),
		Sink:             sink.NewChannelSink(1),
		NbThread:         1,
		PollingFrequency: time.Second,
	}
	_, err := scheduler.New(base)
	require.NoError(t, err)

	bad := base
	bad.NbThread = 0
	_, err = scheduler.New(bad)
	assert.Error(t, err)

	bad = base
	bad.PollingFrequency = 0
	_, err = scheduler.New(bad)
	assert.Error(t, err)

	bad = base
	bad.Dialer = nil
	_, err = scheduler.New(bad)
	assert.Error(t, err)
}

func TestRunCycleEndToEnd(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeSource(t, fs, "app01.json", `{
		"host": "app01", "port": 8778, "alias": "billing",
		"queries": [
			{"object_name": "java.lang:type=Memory", "attributes": ["HeapMemoryUsage"]},
			{"object_name": "java.lang:type=GarbageCollector,*", "object_alias": "gc.${name}", "attributes": ["CollectionCount"]}
		]}`)
	writeSource(t, fs, "app02.yaml", `
host: app02
port: 9010
username: ops
password: pw
queries:
  - object_name: "java.lang:type=Threading"
`)
	writeSource(t, fs, "broken.json", `{"host": "app03"}`)

	dialer := jmxtest.NewDialer()
	dialer.AddEndpoint("app01", 8778).
		AddMBean("java.lang:type=Memory", map[string]jmx.Value{
			"HeapMemoryUsage": jmx.Composite(map[string]jmx.Value{"used": jmx.Number(100), "max": jmx.Number(400)}),
		}).
		AddMBean("java.lang:type=GarbageCollector,name=ParNew", map[string]jmx.Value{"CollectionCount": jmx.Number(7)}).
		AddMBean("java.lang:type=GarbageCollector,name=G1 Old", map[string]jmx.Value{"CollectionCount": jmx.Number(1)})
	dialer.AddEndpoint("app02", 9010).
		RequireAuth("ops", "pw").
		AddMBean("java.lang:type=Threading", map[string]jmx.Value{
			"ThreadCount":                     jmx.Number(42),
			"ThreadCpuTimeEnabled":            jmx.Boolean(true),
			"ThreadContentionMonitoringState": jmx.Text("disabled"),
		})

	out := sink.NewChannelSink(64)
	metrics := monitor.NewNopCollectionMetrics()
	s, _ := newScheduler(t, fs, dialer, out, scheduler.Options{
		PollingFrequency: time.Minute,
		DrainCheck:       5 * time.Millisecond,
		Type:             "jmx",
		Metrics:          metrics,
	})

	ctx := context.Background()
	assert.Equal(t, scheduler.StateIdle, s.State())
	s.Start(ctx)
	report, err := s.RunCycle(ctx)
	require.NoError(t, err)

	assert.NotEmpty(t, report.ID)
	assert.Equal(t, 3, report.Sources)
	assert.Equal(t, 2, report.Enqueued)
	assert.Equal(t, 1, report.Rejected)
	assert.False(t, report.Overrun)
	assert.Greater(t, report.Sleep, time.Duration(0))
	assert.Equal(t, scheduler.StatePace, s.State())

	var got []string
	for _, e := range out.Drain() {
		assert.Equal(t, confDir, e.Path)
		assert.Equal(t, "jmx", e.Type)
		got = append(got, fmt.Sprintf("%s %s=%v", e.Host, e.MetricPath, e.Value()))
	}
	sort.Strings(got)
	assert.Equal(t, []string{
		"app01 billing.gc.G1_Old.CollectionCount=1",
		"app01 billing.gc.ParNew.CollectionCount=7",
		"app01 billing.java.lang:type=Memory.HeapMemoryUsage.max=400",
		"app01 billing.java.lang:type=Memory.HeapMemoryUsage.used=100",
		"app02 app02_9010.java.lang:type=Threading.ThreadContentionMonitoringState=disabled",
		"app02 app02_9010.java.lang:type=Threading.ThreadCount=42",
		"app02 app02_9010.java.lang:type=Threading.ThreadCpuTimeEnabled_bool=1",
	}, got)

	last, ok := s.LastReport()
	require.True(t, ok)
	assert.Equal(t, report.ID, last.ID)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Errors.WithLabelValues(scheduler.StageSource)))

	// 第二轮复用同一个 worker 池，结果相同
	report2, err := s.RunCycle(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, report.ID, report2.ID)
	assert.Len(t, out.Drain(), 7)
	assert.Equal(t, int64(4), dialer.Dials())
}

func TestRunCycleOverrunDoesNotSleep(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeSource(t, fs, "slow.json", `{"host": "slow", "port": 8778, "queries": [{"object_name": "java.lang:type=Memory"}]}`)

	mock := clock.NewMock()
	dialer := jmxtest.NewDialer()
	dialer.AddEndpoint("slow", 8778).
		AddMBean("java.lang:type=Memory", map[string]jmx.Value{"Verbose": jmx.Boolean(false)}).
		OnRead(func(jmx.ObjectName, string) { mock.Add(90 * time.Second) })

	metrics := monitor.NewNopCollectionMetrics()
	s, logs := newScheduler(t, fs, dialer, sink.NewChannelSink(8), scheduler.Options{
		NbThread:         1,
		PollingFrequency: time.Minute,
		DrainCheck:       time.Second,
		Clock:            mock,
		Metrics:          metrics,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.Start(ctx)

	done := make(chan scheduler.CycleReport, 1)
	go func() {
		r, err := s.RunCycle(ctx)
		assert.NoError(t, err)
		done <- r
	}()

	var report scheduler.CycleReport
	require.Eventually(t, func() bool {
		mock.Add(time.Second)
		select {
		case report = <-done:
			return true
		default:
			return false
		}
	}, 3*time.Second, 5*time.Millisecond)

	assert.True(t, report.Overrun)
	assert.Zero(t, report.Sleep)
	assert.GreaterOrEqual(t, report.Elapsed, 90*time.Second)
	assert.Equal(t, 1, logs.FilterMessage("polling frequency too short for current workload, starting next cycle immediately").Len())
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.CycleOverruns))
}

func TestRunCycleSleepsRemainder(t *testing.T) {
	s, logs := newScheduler(t, afero.NewMemMapFs(), jmxtest.NewDialer(), sink.NewChannelSink(1), scheduler.Options{
		PollingFrequency: 200 * time.Millisecond,
		DrainCheck:       5 * time.Millisecond,
	})

	report, err := s.RunCycle(context.Background())
	require.NoError(t, err)
	assert.False(t, report.Overrun)
	assert.Greater(t, report.Sleep, 100*time.Millisecond)
	assert.LessOrEqual(t, report.Sleep, 200*time.Millisecond)
	// 配置目录不存在只记录错误，不中断轮次
	assert.Equal(t, 1, logs.FilterMessage("discover config sources failed").Len())
}

func TestRunLoopsUntilCancelled(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeSource(t, fs, "app01.json", `{"host": "app01", "port": 8778, "queries": [{"object_name": "java.lang:type=Runtime"}]}`)
	dialer := jmxtest.NewDialer()
	dialer.AddEndpoint("app01", 8778).AddMBean("java.lang:type=Runtime", map[string]jmx.Value{"Uptime": jmx.Number(1)})

	out := sink.NewChannelSink(64)
	s, _ := newScheduler(t, fs, dialer, out, scheduler.Options{
		PollingFrequency: 30 * time.Millisecond,
		DrainCheck:       time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return dialer.Dials() >= 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	require.NoError(t, s.Stop())
	assert.Equal(t, scheduler.StateStopped, s.State())

	events := out.Drain()
	require.NotEmpty(t, events)
	paths := make([]string, 0, len(events))
	for _, e := range events {
		paths = append(paths, e.MetricPath)
	}
	sort.Strings(paths)
	assert.Equal(t, "app01_8778.java.lang:type=Runtime.Uptime", paths[0])
}
