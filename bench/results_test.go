package bench

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"memprobe/config"
)

func TestCalculateSingleBandwidth(t *testing.T) {
	// 1 GB moved in 1 s = 1 GB/s (1e9 bytes/second definition).
	read, write, cp := CalculateSingleBandwidth(1_000_000_000, 1, 1.0, 2.0, 1.0)
	assert.InDelta(t, 1.0, read, 1e-9)
	assert.InDelta(t, 0.5, write, 1e-9)
	assert.InDelta(t, 2.0, cp, 1e-9, "copy counts read+write traffic")
}

func TestCalculateSingleBandwidthInvalidTimes(t *testing.T) {
	for _, badTime := range []float64{0, -1, math.NaN(), math.Inf(1), math.Inf(-1)} {
		read, write, cp := CalculateSingleBandwidth(1024, 10, badTime, badTime, badTime)
		assert.Equal(t, 0.0, read, "time=%v", badTime)
		assert.Equal(t, 0.0, write, "time=%v", badTime)
		assert.Equal(t, 0.0, cp, "time=%v", badTime)
	}
}

func TestCalculateSingleBandwidthZeroInputs(t *testing.T) {
	read, write, cp := CalculateSingleBandwidth(0, 100, 1, 1, 1)
	assert.Zero(t, read+write+cp)

	read, write, cp = CalculateSingleBandwidth(1024, 0, 1, 1, 1)
	assert.Zero(t, read+write+cp)

	read, write, cp = CalculateSingleBandwidth(1024, -5, 1, 1, 1)
	assert.Zero(t, read+write+cp)
}

func TestCalculateSingleBandwidthOverflowFallback(t *testing.T) {
	// iterations * bufferSize overflows uint64; the result must match the
	// float64 computation, not a silently wrapped integer.
	bufferSize := uint64(1) << 62
	iterations := 8
	read, _, _ := CalculateSingleBandwidth(bufferSize, iterations, 10.0, 0, 0)

	want := float64(iterations) * float64(bufferSize) / 10.0 / config.NanosecondsPerSecond
	assert.InDelta(t, want, read, want*1e-12)
	assert.Greater(t, read, 0.0)
}

func TestCalculateSingleBandwidthNeverNegative(t *testing.T) {
	read, write, cp := CalculateSingleBandwidth(1<<20, 100, 1e-300, 1e-300, 1e-300)
	for _, bw := range []float64{read, write, cp} {
		assert.False(t, math.IsNaN(bw))
		assert.False(t, math.IsInf(bw, 0))
		assert.GreaterOrEqual(t, bw, 0.0)
	}
}

func TestCalculateBandwidthResultsL1L2(t *testing.T) {
	cfg := &config.Benchmark{
		BufferSize:   1 << 20,
		Iterations:   100,
		L1BufferSize: 24 * 1024,
		L2BufferSize: 256 * 1024,
		Target:       config.L1L2Target(),
	}
	timings := &TimingResults{
		TotalReadTime: 1.0, TotalWriteTime: 1.0, TotalCopyTime: 1.0,
		L1ReadTime: 0.5, L2ReadTime: 0.25,
	}
	results := &Results{}
	CalculateBandwidthResults(cfg, timings, results)

	assert.Greater(t, results.ReadBWGBs, 0.0)
	assert.Greater(t, results.L1ReadBWGBs, 0.0)
	assert.Greater(t, results.L2ReadBWGBs, 0.0)
	assert.Zero(t, results.CustomReadBWGBs, "custom family inactive under L1L2 target")

	// Cache bandwidth uses the multiplied iteration count.
	wantL1 := float64(cfg.CacheIterations()) * float64(cfg.L1BufferSize) / 0.5 / config.NanosecondsPerSecond
	assert.InDelta(t, wantL1, results.L1ReadBWGBs, wantL1*1e-12)
}

func TestCalculateBandwidthResultsCustom(t *testing.T) {
	cfg := &config.Benchmark{
		BufferSize:       1 << 20,
		Iterations:       10,
		CustomBufferSize: 128 * 1024,
		Target:           config.CustomTarget(128 * 1024),
	}
	timings := &TimingResults{
		TotalReadTime:  1.0,
		CustomReadTime: 0.125,
	}
	results := &Results{}
	CalculateBandwidthResults(cfg, timings, results)

	assert.Greater(t, results.CustomReadBWGBs, 0.0)
	assert.Zero(t, results.L1ReadBWGBs, "L1 family inactive under custom target")
	assert.Zero(t, results.L2ReadBWGBs)
}
