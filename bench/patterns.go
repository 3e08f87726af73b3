package bench

import (
	"fmt"
	"log/slog"
	"math/rand"

	"memprobe/buffers"
	"memprobe/config"
	"memprobe/partition"
	"memprobe/timer"
)

// PatternPrimitives extends the sequential kernels with the access-pattern
// variants: backward sweeps, fixed-stride hops, and table-driven random
// accesses.
type PatternPrimitives interface {
	Primitives
	ReadReverse(buf []byte) uint64
	WriteReverse(buf []byte)
	CopyReverse(dst, src []byte)
	ReadStrided(buf []byte, stride uint64) uint64
	WriteStrided(buf []byte, stride uint64)
	CopyStrided(dst, src []byte, stride uint64)
	ReadRandom(buf []byte, indices []uint64) uint64
	WriteRandom(buf []byte, indices []uint64)
	CopyRandom(dst, src []byte, indices []uint64)
}

// PatternTriple is one pattern's read/write/copy bandwidth in GB/s.
type PatternTriple struct {
	ReadGBs  float64
	WriteGBs float64
	CopyGBs  float64
}

// PatternResults is one loop's finished pattern-suite output. A zero triple
// means that pattern was skipped, usually because the buffer is too small
// for its stride.
type PatternResults struct {
	Forward     PatternTriple // sequential forward, the baseline
	Reverse     PatternTriple
	Strided64   PatternTriple // cache-line stride
	Strided4096 PatternTriple // page stride
	Random      PatternTriple
}

// PatternEfficiency derives comparative percentages from one loop's results.
// Every value is relative to a baseline; a zero baseline yields zero.
type PatternEfficiency struct {
	SequentialCoherencePct   float64 // reverse vs forward
	PrefetchEffectivenessPct float64 // cache-line stride vs forward
	CacheThrashingPct        float64 // page stride vs forward
	TLBPressurePct           float64 // random vs page stride
}

// Efficiency summarizes how the access patterns compare against each other.
func (r *PatternResults) Efficiency() PatternEfficiency {
	total := func(t PatternTriple) float64 { return t.ReadGBs + t.WriteGBs + t.CopyGBs }
	ratio := func(value, baseline float64) float64 {
		if baseline == 0 {
			return 0
		}
		return value / baseline * 100.0
	}

	forward := total(r.Forward)
	strided4096 := total(r.Strided4096)
	return PatternEfficiency{
		SequentialCoherencePct:   ratio(total(r.Reverse), forward),
		PrefetchEffectivenessPct: ratio(total(r.Strided64), forward),
		CacheThrashingPct:        ratio(strided4096, forward),
		TLBPressurePct:           ratio(total(r.Random), strided4096),
	}
}

// PatternSeries collects one pattern's per-loop bandwidth sequences.
type PatternSeries struct {
	ReadGBs  []float64
	WriteGBs []float64
	CopyGBs  []float64
}

func (s *PatternSeries) collect(t PatternTriple) {
	s.ReadGBs = append(s.ReadGBs, t.ReadGBs)
	s.WriteGBs = append(s.WriteGBs, t.WriteGBs)
	s.CopyGBs = append(s.CopyGBs, t.CopyGBs)
}

// PatternStatistics aggregates pattern results across loops, one ordered
// per-loop sequence per metric.
type PatternStatistics struct {
	Forward     PatternSeries
	Reverse     PatternSeries
	Strided64   PatternSeries
	Strided4096 PatternSeries
	Random      PatternSeries
}

// Collect appends one loop's pattern results in loop order.
func (st *PatternStatistics) Collect(r *PatternResults) {
	st.Forward.collect(r.Forward)
	st.Reverse.collect(r.Reverse)
	st.Strided64.collect(r.Strided64)
	st.Strided4096.collect(r.Strided4096)
	st.Random.collect(r.Random)
}

// PatternExecutor runs one pattern-suite loop over the main src/dst buffers.
// The forward baseline uses the standard multithreaded sweeps; the other
// patterns are deliberately single-threaded so the access shape, not thread
// scaling, dominates the number.
type PatternExecutor struct {
	*Executor
	prims    PatternPrimitives
	checksum partition.Checksum
}

// NewPatternExecutor wires a pattern executor. Pass NoProgress for silent
// operation.
func NewPatternExecutor(prims PatternPrimitives, t *timer.Timer, progress Progress) *PatternExecutor {
	return &PatternExecutor{
		Executor: NewExecutor(prims, t, progress),
		prims:    prims,
	}
}

// RunLoop executes the five patterns in fixed order: forward, reverse,
// cache-line stride, page stride, random. Each measured test gets an
// unmeasured warmup pass immediately before it.
func (e *PatternExecutor) RunLoop(bufs *buffers.Set, cfg *config.Benchmark) (res *PatternResults, err error) {
	defer func() {
		if r := recover(); r != nil {
			res = nil
			err = fmt.Errorf("pattern benchmark failed: %v", r)
		}
	}()

	if bufs.Src == nil || bufs.Dst == nil {
		return nil, fmt.Errorf("pattern benchmarks need src and dst buffers")
	}

	results := &PatternResults{}
	e.runForward(bufs, cfg, &results.Forward)
	e.runReverse(bufs, cfg, &results.Reverse)
	e.runStrided(bufs, cfg, config.PatternStrideCacheLine, &results.Strided64)
	e.runStrided(bufs, cfg, config.PatternStridePage, &results.Strided4096)
	e.runRandom(bufs, cfg, &results.Random)
	return results, nil
}

// runForward measures the sequential baseline with the standard partitioned
// sweeps, so the other patterns compare against the same number the main
// benchmark would report.
func (e *PatternExecutor) runForward(bufs *buffers.Set, cfg *config.Benchmark, out *PatternTriple) {
	size := float64(len(bufs.Src))

	e.progress.Step()
	e.warmupRead(bufs.Src, cfg.NumThreads)
	readTime := e.runReadTest(bufs.Src, cfg.Iterations, cfg.NumThreads, &e.checksum)
	out.ReadGBs = patternBandwidth(size, cfg.Iterations, readTime)

	e.progress.Step()
	e.warmupWrite(bufs.Dst, cfg.NumThreads)
	writeTime := e.runWriteTest(bufs.Dst, cfg.Iterations, cfg.NumThreads)
	out.WriteGBs = patternBandwidth(size, cfg.Iterations, writeTime)

	e.progress.Step()
	e.warmupCopy(bufs.Dst, bufs.Src, cfg.NumThreads)
	copyTime := e.runCopyTest(bufs.Dst, bufs.Src, cfg.Iterations, cfg.NumThreads)
	out.CopyGBs = patternBandwidth(size, cfg.Iterations, copyTime)
}

func (e *PatternExecutor) runReverse(bufs *buffers.Set, cfg *config.Benchmark, out *PatternTriple) {
	size := float64(len(bufs.Src))

	e.progress.Step()
	e.checksum.Combine(e.prims.ReadReverse(bufs.Src))
	e.timer.Start()
	var local uint64
	for i := 0; i < cfg.Iterations; i++ {
		local ^= e.prims.ReadReverse(bufs.Src)
	}
	readTime := e.timer.Stop()
	e.checksum.Combine(local)
	out.ReadGBs = patternBandwidth(size, cfg.Iterations, readTime)

	e.progress.Step()
	e.prims.WriteReverse(bufs.Dst)
	e.timer.Start()
	for i := 0; i < cfg.Iterations; i++ {
		e.prims.WriteReverse(bufs.Dst)
	}
	out.WriteGBs = patternBandwidth(size, cfg.Iterations, e.timer.Stop())

	e.progress.Step()
	e.prims.CopyReverse(bufs.Dst, bufs.Src)
	e.timer.Start()
	for i := 0; i < cfg.Iterations; i++ {
		e.prims.CopyReverse(bufs.Dst, bufs.Src)
	}
	out.CopyGBs = patternBandwidth(size, cfg.Iterations, e.timer.Stop())
}

func (e *PatternExecutor) runStrided(bufs *buffers.Set, cfg *config.Benchmark, stride uint64, out *PatternTriple) {
	accesses, ok := stridedAccessCount(uint64(len(bufs.Src)), stride)
	if !ok {
		// Buffer too small for this stride: skipped, not an error.
		slog.Debug("strided pattern skipped", "stride", stride, "buffer", len(bufs.Src))
		return
	}
	dataBytes := float64(accesses * config.PatternAccessBytes)

	e.progress.Step()
	e.checksum.Combine(e.prims.ReadStrided(bufs.Src, stride))
	e.timer.Start()
	var local uint64
	for i := 0; i < cfg.Iterations; i++ {
		local ^= e.prims.ReadStrided(bufs.Src, stride)
	}
	readTime := e.timer.Stop()
	e.checksum.Combine(local)
	out.ReadGBs = patternBandwidth(dataBytes, cfg.Iterations, readTime)

	e.progress.Step()
	e.prims.WriteStrided(bufs.Dst, stride)
	e.timer.Start()
	for i := 0; i < cfg.Iterations; i++ {
		e.prims.WriteStrided(bufs.Dst, stride)
	}
	out.WriteGBs = patternBandwidth(dataBytes, cfg.Iterations, e.timer.Stop())

	e.progress.Step()
	e.prims.CopyStrided(bufs.Dst, bufs.Src, stride)
	e.timer.Start()
	for i := 0; i < cfg.Iterations; i++ {
		e.prims.CopyStrided(bufs.Dst, bufs.Src, stride)
	}
	// Strided copy traffic counts both directions.
	out.CopyGBs = patternBandwidth(dataBytes*config.CopyOperationMultiplier, cfg.Iterations, e.timer.Stop())
}

func (e *PatternExecutor) runRandom(bufs *buffers.Set, cfg *config.Benchmark, out *PatternTriple) {
	size := uint64(len(bufs.Src))
	indices := GenerateRandomIndices(size, randomAccessCount(size))
	if len(indices) == 0 {
		slog.Debug("random pattern skipped", "buffer", len(bufs.Src))
		return
	}
	warm := warmupIndices(indices)
	dataBytes := float64(uint64(len(indices)) * config.PatternAccessBytes)

	e.progress.Step()
	e.checksum.Combine(e.prims.ReadRandom(bufs.Src, warm))
	e.timer.Start()
	var local uint64
	for i := 0; i < cfg.Iterations; i++ {
		local ^= e.prims.ReadRandom(bufs.Src, indices)
	}
	readTime := e.timer.Stop()
	e.checksum.Combine(local)
	out.ReadGBs = patternBandwidth(dataBytes, cfg.Iterations, readTime)

	e.progress.Step()
	e.prims.WriteRandom(bufs.Dst, warm)
	e.timer.Start()
	for i := 0; i < cfg.Iterations; i++ {
		e.prims.WriteRandom(bufs.Dst, indices)
	}
	out.WriteGBs = patternBandwidth(dataBytes, cfg.Iterations, e.timer.Stop())

	e.progress.Step()
	e.prims.CopyRandom(bufs.Dst, bufs.Src, warm)
	e.timer.Start()
	for i := 0; i < cfg.Iterations; i++ {
		e.prims.CopyRandom(bufs.Dst, bufs.Src, indices)
	}
	out.CopyGBs = patternBandwidth(dataBytes, cfg.Iterations, e.timer.Stop())
}

// patternBandwidth converts one pattern test's timing into GB/s. Totals are
// computed in float64 throughout; pattern access counts are derived values
// that can exceed what the integer fast path in CalculateSingleBandwidth
// assumes.
func patternBandwidth(bytesPerIteration float64, iterations int, seconds float64) float64 {
	if iterations <= 0 {
		return 0
	}
	return sanitizeBandwidth(bytesPerIteration*float64(iterations), seconds)
}

// stridedAccessCount returns how many 32-byte accesses one strided pass
// performs, or false when the buffer cannot fit even one stride.
func stridedAccessCount(size, stride uint64) (uint64, bool) {
	if size < config.PatternMinBufferBytes || stride < config.PatternMinBufferBytes || stride > size {
		return 0, false
	}
	effective := size - config.PatternAccessBytes
	if effective < stride {
		return 0, false
	}
	return (effective + stride - 1) / stride, true
}

// randomAccessCount scales the random working set with the buffer, clamped
// so tiny buffers still produce a measurable run and huge ones stay bounded.
func randomAccessCount(size uint64) uint64 {
	n := size / config.PatternAccessBytes
	if n < config.PatternRandomAccessesMin {
		n = config.PatternRandomAccessesMin
	}
	if n > config.PatternRandomAccessesMax {
		n = config.PatternRandomAccessesMax
	}
	return n
}

// GenerateRandomIndices draws count uniform 32-aligned byte offsets such that
// every 32-byte access stays inside a buffer of the given size. Returns nil
// when the buffer cannot hold a single access.
func GenerateRandomIndices(size, count uint64) []uint64 {
	if size < config.PatternMinBufferBytes {
		return nil
	}
	maxUnits := (size - config.PatternAccessBytes) / config.PatternAccessBytes

	indices := make([]uint64, count)
	for i := range indices {
		indices[i] = uint64(rand.Int63n(int64(maxUnits+1))) * config.PatternAccessBytes
	}
	return indices
}

// warmupIndices takes a short prefix of the index table for the unmeasured
// warmup pass, at least one entry.
func warmupIndices(indices []uint64) []uint64 {
	n := len(indices) / config.PatternWarmupIndicesDivisor
	if n > config.PatternWarmupIndicesMax {
		n = config.PatternWarmupIndicesMax
	}
	if n == 0 {
		n = 1
	}
	return indices[:n]
}

// PatternSink receives each loop's finished pattern results.
type PatternSink func(loop int, results *PatternResults)

// RunAllPatterns drives the configured number of pattern loops sequentially,
// mirroring RunAll: the first failing loop stops the run and the returned
// error names it.
func RunAllPatterns(bufs *buffers.Set, cfg *config.Benchmark, st *PatternStatistics, ex *PatternExecutor, sink PatternSink) error {
	for loop := 0; loop < cfg.LoopCount; loop++ {
		slog.Debug("starting pattern loop", "loop", loop+1, "of", cfg.LoopCount)

		results, err := ex.RunLoop(bufs, cfg)
		if err != nil {
			return fmt.Errorf("pattern loop %d: %w", loop+1, err)
		}

		st.Collect(results)

		if sink != nil {
			sink(loop, results)
		}
	}
	return nil
}
