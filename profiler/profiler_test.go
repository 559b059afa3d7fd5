package profiler

import (
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartOperation(t *testing.T) {
	rp := NewRuntimeProfiler(ProfilingOptions{})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			done := rp.StartOperation("rectify")
			time.Sleep(time.Millisecond)
			done()
		}()
	}
	wg.Wait()

	rp.StartOperation("contours")()

	ops := rp.Operations()
	require.Len(t, ops, 2)
	assert.Equal(t, "contours", ops[0].Name)
	assert.Equal(t, "rectify", ops[1].Name)
	assert.Equal(t, int64(8), ops[1].Count)
	assert.GreaterOrEqual(t, ops[1].Min, time.Millisecond)
	assert.LessOrEqual(t, ops[1].Min, ops[1].Avg)
	assert.LessOrEqual(t, ops[1].Avg, ops[1].Max)
}

func TestRecordMetric(t *testing.T) {
	rp := NewRuntimeProfiler(ProfilingOptions{MaxSamples: 3})

	for _, v := range []float64{4, 1, 7, 2} {
		rp.RecordMetric("crops_per_image", v)
	}

	metrics := rp.Metrics()
	require.Len(t, metrics, 1)

	m := metrics[0]
	assert.Equal(t, int64(4), m.Count)
	// Only the last three samples are averaged.
	assert.InDelta(t, 10.0/3.0, m.Avg, 1e-9)
	assert.Equal(t, 1.0, m.Min)
	assert.Equal(t, 7.0, m.Max)
}

func TestNilProfiler(t *testing.T) {
	var rp *RuntimeProfiler

	assert.NotPanics(t, func() {
		rp.Start()
		rp.StartOperation("noop")()
		rp.RecordMetric("noop", 1)
		rp.Report()
		rp.Stop()
	})
	assert.Nil(t, rp.Operations())
	assert.Nil(t, rp.Metrics())
}

func TestReport(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.InfoLevel)

	rp := NewRuntimeProfiler(ProfilingOptions{Logger: logger})
	rp.StartOperation("deduplicate")()
	rp.RecordMetric("duplicates", 2)
	rp.Report()

	entries := hook.AllEntries()
	require.Len(t, entries, 3)
	assert.Equal(t, "profiler status", entries[0].Message)
	assert.Equal(t, "deduplicate", entries[1].Data["operation"])
	assert.Equal(t, "duplicates", entries[2].Data["metric"])
}

func TestStartStop(t *testing.T) {
	logger, hook := test.NewNullLogger()

	rp := NewRuntimeProfiler(ProfilingOptions{ReportInterval: 5 * time.Millisecond, Logger: logger})
	rp.Start()
	rp.Start()

	assert.Eventually(t, func() bool { return len(hook.AllEntries()) > 0 }, time.Second, 5*time.Millisecond)

	rp.Stop()
	rp.Stop()
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 B", formatBytes(512))
	assert.Equal(t, "1.5 KB", formatBytes(1536))
	assert.Equal(t, "2.0 MB", formatBytes(2*1024*1024))
}
