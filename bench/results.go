package bench

import (
	"math"

	"memprobe/config"
)

// CalculateSingleBandwidth converts raw timings for one memory region into
// read/write/copy bandwidth in GB/s.
//
// Total bytes = iterations * bufferSize; when that product would overflow a
// uint64 the computation falls back to float64 instead of silently
// truncating. Copy traffic is multiplied by CopyOperationMultiplier because
// every copied byte crosses the bus twice. Non-positive times and NaN/Inf or
// negative quotients yield 0.0, never an error.
func CalculateSingleBandwidth(bufferSize uint64, iterations int,
	readTime, writeTime, copyTime float64) (readBW, writeBW, copyBW float64) {
	if iterations <= 0 || bufferSize == 0 {
		return 0, 0, 0
	}

	var totalBytes, copyBytes float64
	if uint64(iterations) > math.MaxUint64/bufferSize {
		// Integer product would overflow; compute in floating point.
		totalBytes = float64(iterations) * float64(bufferSize)
		copyBytes = totalBytes * config.CopyOperationMultiplier
	} else {
		bytes := uint64(iterations) * bufferSize
		totalBytes = float64(bytes)
		copyBytes = totalBytes * config.CopyOperationMultiplier
	}

	readBW = sanitizeBandwidth(totalBytes, readTime)
	writeBW = sanitizeBandwidth(totalBytes, writeTime)
	copyBW = sanitizeBandwidth(copyBytes, copyTime)
	return readBW, writeBW, copyBW
}

// sanitizeBandwidth computes GB/s and forces every invalid outcome to 0.0.
func sanitizeBandwidth(totalBytes, seconds float64) float64 {
	if seconds <= 0 || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return 0
	}
	bw := totalBytes / seconds / config.NanosecondsPerSecond
	if math.IsNaN(bw) || math.IsInf(bw, 0) || bw < 0 {
		return 0
	}
	return bw
}

// CalculateBandwidthResults fills the bandwidth fields of results from raw
// timings: main memory with the configured iteration count, then whichever
// cache family is active with the multiplied cache iteration count.
func CalculateBandwidthResults(cfg *config.Benchmark, timings *TimingResults, results *Results) {
	results.ReadBWGBs, results.WriteBWGBs, results.CopyBWGBs = CalculateSingleBandwidth(
		cfg.BufferSize, cfg.Iterations,
		timings.TotalReadTime, timings.TotalWriteTime, timings.TotalCopyTime)

	cacheIterations := cfg.CacheIterations()

	switch cfg.Target.Kind {
	case config.TargetCustom:
		if cfg.CustomBufferSize > 0 {
			results.CustomReadBWGBs, results.CustomWriteBWGBs, results.CustomCopyBWGBs = CalculateSingleBandwidth(
				cfg.CustomBufferSize, cacheIterations,
				timings.CustomReadTime, timings.CustomWriteTime, timings.CustomCopyTime)
		}
	default:
		if cfg.L1BufferSize > 0 {
			results.L1ReadBWGBs, results.L1WriteBWGBs, results.L1CopyBWGBs = CalculateSingleBandwidth(
				cfg.L1BufferSize, cacheIterations,
				timings.L1ReadTime, timings.L1WriteTime, timings.L1CopyTime)
		}
		if cfg.L2BufferSize > 0 {
			results.L2ReadBWGBs, results.L2WriteBWGBs, results.L2CopyBWGBs = CalculateSingleBandwidth(
				cfg.L2BufferSize, cacheIterations,
				timings.L2ReadTime, timings.L2WriteTime, timings.L2CopyTime)
		}
	}
}
