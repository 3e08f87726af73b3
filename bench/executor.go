package bench

import (
	"fmt"
	"log/slog"

	"memprobe/buffers"
	"memprobe/config"
	"memprobe/partition"
	"memprobe/timer"
)

// Executor runs one full benchmark loop: main-memory bandwidth, cache
// bandwidth, cache latency, main-memory latency, in that fixed order.
// Bandwidth runs before latency and main memory before cache so the cache
// state left behind by one phase cannot pollute the next measurement.
type Executor struct {
	prims    Primitives
	timer    *timer.Timer
	progress Progress
}

// NewExecutor wires an executor with its primitive set, timer, and progress
// reporter. Pass NoProgress for silent operation.
func NewExecutor(prims Primitives, t *timer.Timer, progress Progress) *Executor {
	if progress == nil {
		progress = NoProgress{}
	}
	return &Executor{prims: prims, timer: t, progress: progress}
}

// RunLoop executes every configured phase once and returns the loop's
// calculated results. Any failure inside a phase aborts the remaining phases
// and propagates; no partial-phase results are kept.
func (e *Executor) RunLoop(bufs *buffers.Set, cfg *config.Benchmark) (res *Results, err error) {
	defer func() {
		if r := recover(); r != nil {
			res = nil
			err = fmt.Errorf("benchmark phase failed: %v", r)
		}
	}()

	results := &Results{}
	timings := &TimingResults{}

	switch {
	case cfg.OnlyBandwidth:
		e.runMainMemoryBandwidth(bufs, cfg, timings)
		e.runCacheBandwidth(bufs, cfg, timings)
	case cfg.OnlyLatency:
		e.runCacheLatency(bufs, cfg, timings, results)
		e.runMainMemoryLatency(bufs, cfg, timings)
	default:
		e.runMainMemoryBandwidth(bufs, cfg, timings)
		e.runCacheBandwidth(bufs, cfg, timings)
		e.runCacheLatency(bufs, cfg, timings, results)
		e.runMainMemoryLatency(bufs, cfg, timings)
	}

	CalculateBandwidthResults(cfg, timings, results)

	results.TotalReadTime = timings.TotalReadTime
	results.TotalWriteTime = timings.TotalWriteTime
	results.TotalCopyTime = timings.TotalCopyTime
	results.TotalLatTimeNs = timings.TotalLatTimeNs

	if cfg.LatAccesses > 0 {
		results.AverageLatencyNs = timings.TotalLatTimeNs / float64(cfg.LatAccesses)
	}

	return results, nil
}

// runMainMemoryBandwidth measures sequential read, write, and copy over the
// main buffers. Every measured test is immediately preceded by an unmeasured
// warmup pass that establishes a steady cache/TLB state; skipping warmup is
// never valid, even on repeated loops.
func (e *Executor) runMainMemoryBandwidth(bufs *buffers.Set, cfg *config.Benchmark, timings *TimingResults) {
	if bufs.Src == nil || bufs.Dst == nil {
		return
	}

	e.progress.Step()
	e.warmupRead(bufs.Src, cfg.NumThreads)
	timings.TotalReadTime = e.runReadTest(bufs.Src, cfg.Iterations, cfg.NumThreads, &timings.TotalReadChecksum)

	e.progress.Step()
	e.warmupWrite(bufs.Dst, cfg.NumThreads)
	timings.TotalWriteTime = e.runWriteTest(bufs.Dst, cfg.Iterations, cfg.NumThreads)

	e.progress.Step()
	e.warmupCopy(bufs.Dst, bufs.Src, cfg.NumThreads)
	timings.TotalCopyTime = e.runCopyTest(bufs.Dst, bufs.Src, cfg.Iterations, cfg.NumThreads)
}

// runCacheBandwidth measures the active cache family. Cache passes finish so
// quickly that the iteration count is multiplied up for a stable interval,
// and they run single-threaded unless the user explicitly asked otherwise.
func (e *Executor) runCacheBandwidth(bufs *buffers.Set, cfg *config.Benchmark, timings *TimingResults) {
	iterations := cfg.CacheIterations()
	threads := cfg.CacheThreads()

	switch cfg.Target.Kind {
	case config.TargetCustom:
		if cfg.CustomBufferSize > 0 && bufs.CustomSrc != nil && bufs.CustomDst != nil {
			e.runSingleCacheBandwidth(bufs.CustomSrc, bufs.CustomDst, iterations, threads,
				&timings.CustomReadTime, &timings.CustomWriteTime, &timings.CustomCopyTime,
				&timings.CustomReadChecksum)
		}
	default:
		if cfg.L1BufferSize > 0 && bufs.L1Src != nil && bufs.L1Dst != nil {
			e.runSingleCacheBandwidth(bufs.L1Src, bufs.L1Dst, iterations, threads,
				&timings.L1ReadTime, &timings.L1WriteTime, &timings.L1CopyTime,
				&timings.L1ReadChecksum)
		}
		if cfg.L2BufferSize > 0 && bufs.L2Src != nil && bufs.L2Dst != nil {
			e.runSingleCacheBandwidth(bufs.L2Src, bufs.L2Dst, iterations, threads,
				&timings.L2ReadTime, &timings.L2WriteTime, &timings.L2CopyTime,
				&timings.L2ReadChecksum)
		}
	}
}

func (e *Executor) runSingleCacheBandwidth(src, dst []byte, iterations, threads int,
	readTime, writeTime, copyTime *float64, checksum *partition.Checksum) {
	e.progress.Step()
	e.warmupRead(src, threads)
	*readTime = e.runReadTest(src, iterations, threads, checksum)

	e.warmupWrite(dst, threads)
	*writeTime = e.runWriteTest(dst, iterations, threads)

	e.warmupCopy(dst, src, threads)
	*copyTime = e.runCopyTest(dst, src, iterations, threads)
}

// runCacheLatency measures pointer-chase latency for the active cache
// family, collecting up to cfg.LatencySamples individual per-access samples
// per test for distribution analysis.
func (e *Executor) runCacheLatency(bufs *buffers.Set, cfg *config.Benchmark, timings *TimingResults, results *Results) {
	switch cfg.Target.Kind {
	case config.TargetCustom:
		if cfg.CustomBufferSize > 0 && bufs.CustomLat != nil && cfg.CustomAccesses > 0 {
			e.runSingleCacheLatency(bufs.CustomLat, cfg.CustomAccesses, cfg.LatencySamples,
				&timings.CustomLatTimeNs, &results.CustomLatencyNs, &results.CustomLatencySamples)
		}
	default:
		if cfg.L1BufferSize > 0 && bufs.L1Lat != nil && cfg.L1Accesses > 0 {
			e.runSingleCacheLatency(bufs.L1Lat, cfg.L1Accesses, cfg.LatencySamples,
				&timings.L1LatTimeNs, &results.L1LatencyNs, &results.L1LatencySamples)
		}
		if cfg.L2BufferSize > 0 && bufs.L2Lat != nil && cfg.L2Accesses > 0 {
			e.runSingleCacheLatency(bufs.L2Lat, cfg.L2Accesses, cfg.LatencySamples,
				&timings.L2LatTimeNs, &results.L2LatencyNs, &results.L2LatencySamples)
		}
	}
}

func (e *Executor) runSingleCacheLatency(chain []byte, accesses uint64, sampleCount int,
	latTimeNs, latencyNs *float64, samples *[]float64) {
	e.progress.Step()
	e.warmupLatency(chain)
	*latTimeNs = e.runLatencyTest(chain, accesses, samples, sampleCount)
	if accesses > 0 {
		*latencyNs = *latTimeNs / float64(accesses)
	} else {
		*latencyNs = 0
	}
}

// runMainMemoryLatency measures one long chase over the main latency buffer.
// No per-sample collection here: main-memory latency variance is already
// high enough that the aggregate is the useful number.
func (e *Executor) runMainMemoryLatency(bufs *buffers.Set, cfg *config.Benchmark, timings *TimingResults) {
	if bufs.Lat == nil {
		return
	}
	e.progress.Step()
	e.warmupLatency(bufs.Lat)
	timings.TotalLatTimeNs = e.runLatencyTest(bufs.Lat, cfg.LatAccesses, nil, 0)
}

// --- measured tests ---

// runReadTest measures iterations full read sweeps fanned out across
// threads. Each worker folds its checksums locally and combines once at the
// end, so the hot loop carries no atomics.
func (e *Executor) runReadTest(buf []byte, iterations, threads int, checksum *partition.Checksum) float64 {
	checksum.Reset()
	return partition.Run(uint64(len(buf)), threads, iterations, e.timer,
		func(offset, size uint64, iters int) {
			chunk := buf[offset : offset+size]
			var local uint64
			for i := 0; i < iters; i++ {
				local ^= e.prims.Read(chunk)
			}
			checksum.Combine(local)
		})
}

func (e *Executor) runWriteTest(buf []byte, iterations, threads int) float64 {
	return partition.Run(uint64(len(buf)), threads, iterations, e.timer,
		func(offset, size uint64, iters int) {
			chunk := buf[offset : offset+size]
			for i := 0; i < iters; i++ {
				e.prims.Write(chunk)
			}
		})
}

// runCopyTest partitions src and dst identically, so every worker copies
// between corresponding disjoint ranges.
func (e *Executor) runCopyTest(dst, src []byte, iterations, threads int) float64 {
	return partition.Run(uint64(len(src)), threads, iterations, e.timer,
		func(offset, size uint64, iters int) {
			srcChunk := src[offset : offset+size]
			dstChunk := dst[offset : offset+size]
			for i := 0; i < iters; i++ {
				e.prims.Copy(dstChunk, srcChunk)
			}
		})
}

// runLatencyTest drives the pointer chase. With sample collection the chase
// is broken into sampleCount shorter chases and the per-access latency of
// each is recorded; the sum of the pieces is still the total reported time.
func (e *Executor) runLatencyTest(chain []byte, accesses uint64, samples *[]float64, sampleCount int) float64 {
	if accesses == 0 {
		return 0
	}

	if samples != nil && sampleCount > 0 {
		perSample := accesses / uint64(sampleCount)
		if perSample == 0 {
			perSample = 1
		}
		*samples = make([]float64, 0, sampleCount)
		total := 0.0
		for i := 0; i < sampleCount; i++ {
			elapsed := e.prims.LatencyChase(chain, perSample)
			*samples = append(*samples, elapsed/float64(perSample))
			total += elapsed
		}
		return total
	}

	return e.prims.LatencyChase(chain, accesses)
}

// --- warmups ---
// Warmup results are discarded; only the side effect matters (caches and TLB
// in a steady state before the measured pass).

func (e *Executor) warmupRead(buf []byte, threads int) {
	var scratch partition.Checksum
	partition.Run(uint64(len(buf)), threads, 1, e.timer,
		func(offset, size uint64, _ int) {
			scratch.Combine(e.prims.Read(buf[offset : offset+size]))
		})
}

func (e *Executor) warmupWrite(buf []byte, threads int) {
	partition.Run(uint64(len(buf)), threads, 1, e.timer,
		func(offset, size uint64, _ int) {
			e.prims.Write(buf[offset : offset+size])
		})
}

func (e *Executor) warmupCopy(dst, src []byte, threads int) {
	partition.Run(uint64(len(src)), threads, 1, e.timer,
		func(offset, size uint64, _ int) {
			e.prims.Copy(dst[offset:offset+size], src[offset:offset+size])
		})
}

// warmupLatency walks one full cycle of the chain so every node is resident
// before measurement.
func (e *Executor) warmupLatency(chain []byte) {
	nodes := uint64(len(chain)) / config.LatencyStrideBytes
	if nodes == 0 {
		return
	}
	elapsed := e.prims.LatencyChase(chain, nodes)
	slog.Debug("latency warmup", "nodes", nodes, "elapsed_ns", elapsed)
}
