package config

import (
	"fmt"
	"math"

	"memprobe/sysinfo"
)

// Default returns a Benchmark with the reference defaults applied. Flags and
// config file values overwrite fields before Derive runs.
func Default() Benchmark {
	return Benchmark{
		BufferSizeMB:   DefaultBufferSizeMB,
		Iterations:     DefaultIterations,
		LoopCount:      DefaultLoopCount,
		LatencySamples: DefaultLatencySamples,
		Target:         L1L2Target(),
	}
}

// Validate checks user-supplied values before any allocation happens.
func (b *Benchmark) Validate() error {
	if b.OnlyBandwidth && b.OnlyLatency {
		return fmt.Errorf("bandwidth-only and latency-only modes are mutually exclusive")
	}
	if b.RunPatterns && (b.OnlyBandwidth || b.OnlyLatency) {
		return fmt.Errorf("pattern mode cannot be combined with bandwidth-only or latency-only")
	}
	if b.BufferSizeMB == 0 {
		return fmt.Errorf("buffer size must be at least 1 MB")
	}
	if b.Iterations <= 0 {
		return fmt.Errorf("iterations must be positive, got %d", b.Iterations)
	}
	if b.LoopCount <= 0 {
		return fmt.Errorf("loop count must be positive, got %d", b.LoopCount)
	}
	if b.LatencySamples < 0 {
		return fmt.Errorf("latency sample count cannot be negative, got %d", b.LatencySamples)
	}
	if b.NumThreads < 0 {
		return fmt.Errorf("thread count cannot be negative, got %d", b.NumThreads)
	}
	if b.Target.Kind == TargetCustom {
		kb := b.Target.CustomSize / 1024
		if kb < MinCacheSizeKB || kb > MaxCacheSizeKB {
			return fmt.Errorf("custom cache size %d KB out of range [%d, %d]",
				kb, MinCacheSizeKB, MaxCacheSizeKB)
		}
	}
	return nil
}

// Derive completes the configuration from detected system values: final
// buffer sizes, thread count, the memory cap, and latency access counts.
func (b *Benchmark) Derive(info sysinfo.Info) error {
	if b.NumThreads == 0 {
		b.NumThreads = info.LogicalCores
		if b.NumThreads <= 0 {
			b.NumThreads = 1
		}
	}

	b.L1CacheSize = info.Cache.L1Size
	b.L2CacheSize = info.Cache.L2Size

	// Cap total allocation at a fraction of available memory; fall back to a
	// fixed limit when detection failed.
	availMB := info.AvailMemory / (1024 * 1024)
	if availMB == 0 {
		b.MaxTotalAllowedMB = FallbackTotalLimitMB
	} else {
		b.MaxTotalAllowedMB = uint64(float64(availMB) * MemoryLimitFactor)
	}
	if b.MaxTotalAllowedMB < MinimumLimitMBPerBuffer {
		b.MaxTotalAllowedMB = MinimumLimitMBPerBuffer
	}

	// Three main-memory buffers (src, dst, lat) share the cap.
	if b.BufferSizeMB*3 > b.MaxTotalAllowedMB {
		return fmt.Errorf("buffer size %d MB x3 exceeds allowed total of %d MB",
			b.BufferSizeMB, b.MaxTotalAllowedMB)
	}

	b.BufferSize = b.BufferSizeMB * 1024 * 1024

	switch b.Target.Kind {
	case TargetCustom:
		b.CustomBufferSize = uint64(float64(b.Target.CustomSize) * CustomBufferSizeFactor)
		b.CustomAccesses = CustomLatencyAccesses
	default:
		b.L1BufferSize = uint64(float64(info.Cache.L1Size) * L1BufferSizeFactor)
		b.L2BufferSize = uint64(float64(info.Cache.L2Size) * L2BufferSizeFactor)
		b.L1Accesses = L1LatencyAccesses
		b.L2Accesses = L2LatencyAccesses
	}

	b.LatAccesses = scaledLatencyAccesses(b.BufferSizeMB)
	return nil
}

// scaledLatencyAccesses scales the main-memory pointer-chase length with the
// buffer size so small buffers do not run absurdly long chases and large
// ones still touch a representative fraction.
func scaledLatencyAccesses(bufferSizeMB uint64) uint64 {
	scale := float64(bufferSizeMB) / float64(DefaultBufferSizeMB)
	scaled := float64(BaseLatencyAccesses) * scale
	if scaled > math.MaxUint64 || scaled <= 0 {
		return BaseLatencyAccesses
	}
	accesses := uint64(scaled)
	if accesses == 0 {
		accesses = BaseLatencyAccesses
	}
	return accesses
}

// CacheIterations returns the iteration count used for cache-level tests.
func (b *Benchmark) CacheIterations() int {
	return b.Iterations * CacheIterationsMultiplier
}

// CacheThreads returns the thread count for cache-level tests: the user's
// explicit choice if they made one, otherwise single-threaded, because a
// per-core cache shared across threads measures contention, not the cache.
func (b *Benchmark) CacheThreads() int {
	if b.UserThreads {
		return b.NumThreads
	}
	return SingleThread
}
