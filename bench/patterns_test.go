package bench

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"memprobe/buffers"
	"memprobe/config"
	"memprobe/timer"
)

// stubPatternPrims extends stubPrims with counters for the pattern kernels.
type stubPatternPrims struct {
	stubPrims
	revReads, revWrites, revCopies int
	strideReads                    []uint64
	strideWrites                   []uint64
	strideCopies                   []uint64
	randReadLens                   []int
	randWriteLens                  []int
	randCopyLens                   []int
	panicRevReadAt                 int // panic on the Nth reverse read, 0 = never
}

func (s *stubPatternPrims) ReadReverse(buf []byte) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revReads++
	if s.panicRevReadAt > 0 && s.revReads == s.panicRevReadAt {
		panic("injected reverse read failure")
	}
	return uint64(len(buf))
}

func (s *stubPatternPrims) WriteReverse(buf []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revWrites++
}

func (s *stubPatternPrims) CopyReverse(dst, src []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revCopies++
}

func (s *stubPatternPrims) ReadStrided(buf []byte, stride uint64) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.strideReads = append(s.strideReads, stride)
	return stride
}

func (s *stubPatternPrims) WriteStrided(buf []byte, stride uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.strideWrites = append(s.strideWrites, stride)
}

func (s *stubPatternPrims) CopyStrided(dst, src []byte, stride uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.strideCopies = append(s.strideCopies, stride)
}

func (s *stubPatternPrims) ReadRandom(buf []byte, indices []uint64) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.randReadLens = append(s.randReadLens, len(indices))
	return uint64(len(indices))
}

func (s *stubPatternPrims) WriteRandom(buf []byte, indices []uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.randWriteLens = append(s.randWriteLens, len(indices))
}

func (s *stubPatternPrims) CopyRandom(dst, src []byte, indices []uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.randCopyLens = append(s.randCopyLens, len(indices))
}

func newTestPatternExecutor(t *testing.T, prims PatternPrimitives) *PatternExecutor {
	t.Helper()
	tmr, err := timer.New()
	require.NoError(t, err)
	return NewPatternExecutor(prims, tmr, nil)
}

func patternTestConfig() *config.Benchmark {
	cfg := testConfig()
	// Large enough for the page stride: effective size must cover one hop.
	cfg.BufferSize = 8192
	return cfg
}

func patternTestBuffers(cfg *config.Benchmark) *buffers.Set {
	return &buffers.Set{
		Src: make([]byte, cfg.BufferSize),
		Dst: make([]byte, cfg.BufferSize),
	}
}

func TestPatternRunLoopFullPass(t *testing.T) {
	cfg := patternTestConfig()
	bufs := patternTestBuffers(cfg)
	stub := &stubPatternPrims{}
	ex := newTestPatternExecutor(t, stub)

	results, err := ex.RunLoop(bufs, cfg)
	require.NoError(t, err)
	require.NotNil(t, results)

	// Every measured test is one warmup pass plus the configured iterations.
	wantCalls := 1 + cfg.Iterations

	// Forward baseline goes through the standard sequential kernels.
	assert.Equal(t, wantCalls, stub.reads)
	assert.Equal(t, wantCalls, stub.writes)
	assert.Equal(t, wantCalls, stub.copies)

	assert.Equal(t, wantCalls, stub.revReads)
	assert.Equal(t, wantCalls, stub.revWrites)
	assert.Equal(t, wantCalls, stub.revCopies)

	// Cache-line stride runs first, page stride second.
	require.Len(t, stub.strideReads, 2*wantCalls)
	assert.Equal(t, uint64(64), stub.strideReads[0])
	assert.Equal(t, uint64(4096), stub.strideReads[wantCalls])
	assert.Len(t, stub.strideWrites, 2*wantCalls)
	assert.Len(t, stub.strideCopies, 2*wantCalls)

	// Random warms up over a short index prefix, then measures the full table.
	require.Len(t, stub.randReadLens, wantCalls)
	assert.Equal(t, 100, stub.randReadLens[0], "warmup uses a tenth of the table")
	assert.Equal(t, 1000, stub.randReadLens[1])
	assert.Equal(t, 1000, stub.randReadLens[len(stub.randReadLens)-1])

	assert.Greater(t, results.Forward.ReadGBs, 0.0)
	assert.Greater(t, results.Reverse.WriteGBs, 0.0)
	assert.Greater(t, results.Strided64.CopyGBs, 0.0)
	assert.Greater(t, results.Strided4096.ReadGBs, 0.0)
	assert.Greater(t, results.Random.CopyGBs, 0.0)
}

func TestPatternRunLoopSkipsOversizedStride(t *testing.T) {
	cfg := patternTestConfig()
	cfg.BufferSize = 4096 // effective span is under one page hop
	bufs := patternTestBuffers(cfg)
	stub := &stubPatternPrims{}
	ex := newTestPatternExecutor(t, stub)

	results, err := ex.RunLoop(bufs, cfg)
	require.NoError(t, err)

	assert.Equal(t, PatternTriple{}, results.Strided4096, "skipped pattern reports zeros")
	assert.Greater(t, results.Strided64.ReadGBs, 0.0)
	for _, stride := range stub.strideReads {
		assert.Equal(t, uint64(64), stride, "page-stride kernel must never run")
	}
}

func TestPatternRunLoopNeedsBuffers(t *testing.T) {
	cfg := patternTestConfig()
	ex := newTestPatternExecutor(t, &stubPatternPrims{})

	results, err := ex.RunLoop(&buffers.Set{}, cfg)
	require.Error(t, err)
	assert.Nil(t, results)
	assert.Contains(t, err.Error(), "src and dst")
}

func TestRunAllPatternsReportsFailingLoop(t *testing.T) {
	cfg := patternTestConfig()
	cfg.LoopCount = 3
	bufs := patternTestBuffers(cfg)
	// Loop 1 issues five reverse reads; the sixth is loop 2's warmup.
	stub := &stubPatternPrims{panicRevReadAt: 6}
	ex := newTestPatternExecutor(t, stub)
	st := &PatternStatistics{}

	var loops []int
	err := RunAllPatterns(bufs, cfg, st, ex, func(loop int, _ *PatternResults) {
		loops = append(loops, loop)
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pattern loop 2")
	assert.Equal(t, []int{0}, loops, "only the completed loop reaches the sink")
	assert.Len(t, st.Forward.ReadGBs, 1)
}

func TestRunAllPatternsCollectsEveryLoop(t *testing.T) {
	cfg := patternTestConfig()
	cfg.LoopCount = 3
	bufs := patternTestBuffers(cfg)
	ex := newTestPatternExecutor(t, &stubPatternPrims{})
	st := &PatternStatistics{}

	require.NoError(t, RunAllPatterns(bufs, cfg, st, ex, nil))

	assert.Len(t, st.Forward.ReadGBs, cfg.LoopCount)
	assert.Len(t, st.Reverse.WriteGBs, cfg.LoopCount)
	assert.Len(t, st.Strided4096.CopyGBs, cfg.LoopCount)
	assert.Len(t, st.Random.ReadGBs, cfg.LoopCount)
}

func TestStridedAccessCount(t *testing.T) {
	cases := []struct {
		size, stride uint64
		want         uint64
		ok           bool
	}{
		{256, 64, 4, true},    // effective 224, hops at 0/64/128/192
		{96, 64, 1, true},     // effective 64, exactly one hop
		{64, 64, 0, false},    // effective 32 cannot cover the stride
		{2048, 4096, 0, false},
		{31, 64, 0, false},
		{4096, 0, 0, false},
	}
	for _, c := range cases {
		got, ok := stridedAccessCount(c.size, c.stride)
		assert.Equal(t, c.ok, ok, "size=%d stride=%d", c.size, c.stride)
		assert.Equal(t, c.want, got, "size=%d stride=%d", c.size, c.stride)
	}
}

func TestRandomAccessCount(t *testing.T) {
	assert.Equal(t, uint64(1000), randomAccessCount(32), "tiny buffers clamp up")
	assert.Equal(t, uint64(2000), randomAccessCount(64000))
	assert.Equal(t, uint64(1_000_000), randomAccessCount(64*1024*1024), "huge buffers clamp down")
}

func TestGenerateRandomIndices(t *testing.T) {
	indices := GenerateRandomIndices(1024, 64)
	require.Len(t, indices, 64)
	for _, off := range indices {
		assert.Zero(t, off%32, "offsets stay 32-aligned")
		assert.LessOrEqual(t, off+32, uint64(1024), "accesses stay in bounds")
	}

	assert.Nil(t, GenerateRandomIndices(16, 10), "no room for a single access")
}

func TestWarmupIndices(t *testing.T) {
	full := make([]uint64, 1000)
	assert.Len(t, warmupIndices(full), 100)

	short := make([]uint64, 5)
	assert.Len(t, warmupIndices(short), 1, "warmup takes at least one entry")

	huge := make([]uint64, 200_000)
	assert.Len(t, warmupIndices(huge), 10_000, "warmup prefix is capped")
}

func TestPatternEfficiency(t *testing.T) {
	r := &PatternResults{
		Forward:     PatternTriple{ReadGBs: 4, WriteGBs: 3, CopyGBs: 3},     // 10
		Reverse:     PatternTriple{ReadGBs: 2, WriteGBs: 2, CopyGBs: 1},     // 5
		Strided64:   PatternTriple{ReadGBs: 3, WriteGBs: 3, CopyGBs: 2},     // 8
		Strided4096: PatternTriple{ReadGBs: 2, WriteGBs: 1, CopyGBs: 1},     // 4
		Random:      PatternTriple{ReadGBs: 1, WriteGBs: 0.5, CopyGBs: 0.5}, // 2
	}

	eff := r.Efficiency()
	assert.InDelta(t, 50.0, eff.SequentialCoherencePct, 1e-9)
	assert.InDelta(t, 80.0, eff.PrefetchEffectivenessPct, 1e-9)
	assert.InDelta(t, 40.0, eff.CacheThrashingPct, 1e-9)
	assert.InDelta(t, 50.0, eff.TLBPressurePct, 1e-9, "random vs page stride")
}

func TestPatternEfficiencyZeroBaseline(t *testing.T) {
	r := &PatternResults{
		Reverse: PatternTriple{ReadGBs: 2},
		Random:  PatternTriple{ReadGBs: 1},
	}
	assert.Equal(t, PatternEfficiency{}, r.Efficiency(), "zero baselines yield zero, not Inf")
}

func TestPatternStatisticsCollect(t *testing.T) {
	st := &PatternStatistics{}
	st.Collect(&PatternResults{
		Forward: PatternTriple{ReadGBs: 10, WriteGBs: 9, CopyGBs: 8},
		Random:  PatternTriple{ReadGBs: 1},
	})
	st.Collect(&PatternResults{
		Forward: PatternTriple{ReadGBs: 12, WriteGBs: 11, CopyGBs: 10},
		Random:  PatternTriple{ReadGBs: 2},
	})

	assert.Equal(t, []float64{10, 12}, st.Forward.ReadGBs)
	assert.Equal(t, []float64{9, 11}, st.Forward.WriteGBs)
	assert.Equal(t, []float64{1, 2}, st.Random.ReadGBs)
	assert.Equal(t, []float64{0, 0}, st.Strided4096.CopyGBs, "skipped patterns still keep loop order")
}
