package config

// Defaults and tuning constants for the benchmark matrix.
const (
	DefaultBufferSizeMB   = 512
	DefaultIterations     = 1000
	DefaultLoopCount      = 1
	DefaultLatencySamples = 1000

	// Fraction of each detected cache actually used for its buffer. L1 stays
	// under the full cache so the working set survives incidental evictions;
	// L2 uses a small fraction so the set does not spill into L3.
	L1BufferSizeFactor     = 0.75
	L2BufferSizeFactor     = 0.10
	CustomBufferSizeFactor = 1.0

	// Cache tests run far faster per pass than main memory, so they need more
	// repetitions for the timer to see a stable interval.
	CacheIterationsMultiplier = 10
	SingleThread              = 1

	// Copy moves every byte twice over the bus (one read, one write), so the
	// reported bandwidth accounts for 2N bytes of traffic.
	CopyOperationMultiplier = 2

	NanosecondsPerSecond = 1e9

	// Latency chain parameters. The stride keeps consecutive chain nodes on
	// different cache lines and TLB-relevant distances apart.
	LatencyStrideBytes   = 128
	MinLatencyBufferSize = LatencyStrideBytes * 2

	// Pointer-chase access counts. Main memory scales with buffer size from
	// this base (set for the default 512 MB buffer); caches are fixed.
	BaseLatencyAccesses   = 200_000_000
	L1LatencyAccesses     = 100_000_000
	L2LatencyAccesses     = 50_000_000
	CustomLatencyAccesses = 100_000_000

	// Allocation limits.
	MemoryLimitFactor       = 0.80
	FallbackTotalLimitMB    = 2048
	MinimumLimitMBPerBuffer = 64
	MinCacheSizeKB          = 16
	MaxCacheSizeKB          = 524288

	// Access-pattern test parameters. Strided and random tests touch
	// PatternAccessBytes per access; the two fixed strides probe prefetcher
	// behavior (one cache line) and TLB behavior (one page).
	PatternAccessBytes          = 32
	PatternMinBufferBytes       = 32
	PatternStrideCacheLine      = 64
	PatternStridePage           = 4096
	PatternRandomAccessesMin    = 1000
	PatternRandomAccessesMax    = 1_000_000
	PatternWarmupIndicesMax     = 10000
	PatternWarmupIndicesDivisor = 10
)

// CacheTargetKind discriminates which cache-buffer family a run exercises.
type CacheTargetKind int

const (
	// TargetL1L2 tests the detected L1 and L2 data caches.
	TargetL1L2 CacheTargetKind = iota
	// TargetCustom tests a single user-sized buffer instead.
	TargetCustom
)

// CacheTarget is a tagged variant: either the detected L1+L2 pair or one
// custom-sized buffer. Exactly one family is active per run, so code never
// has to cross-check parallel boolean flags.
type CacheTarget struct {
	Kind       CacheTargetKind
	CustomSize uint64 // bytes, only meaningful for TargetCustom
}

// L1L2Target selects the detected-cache family.
func L1L2Target() CacheTarget {
	return CacheTarget{Kind: TargetL1L2}
}

// CustomTarget selects a single custom-sized cache buffer.
func CustomTarget(sizeBytes uint64) CacheTarget {
	return CacheTarget{Kind: TargetCustom, CustomSize: sizeBytes}
}

// Benchmark holds the full configuration for one run. It is populated from
// flags/config file, completed by Derive, and treated as immutable afterward.
type Benchmark struct {
	// User-provided settings.
	BufferSizeMB   uint64
	Iterations     int
	LoopCount      int
	LatencySamples int
	NumThreads     int
	UserThreads    bool   // user explicitly requested a thread count
	OnlyBandwidth  bool
	OnlyLatency    bool
	RunPatterns    bool   // access-pattern suite instead of the standard tests
	NonCacheable   bool   // hint allocations away from aggressive caching
	OutputFile     string // JSON export path, empty = no export
	Debug          bool

	Target CacheTarget

	// Derived sizes (bytes) and access counts, filled by Derive.
	BufferSize       uint64
	L1BufferSize     uint64
	L2BufferSize     uint64
	CustomBufferSize uint64
	LatAccesses      uint64
	L1Accesses       uint64
	L2Accesses       uint64
	CustomAccesses   uint64

	// Detected system values, filled by Derive.
	L1CacheSize       uint64
	L2CacheSize       uint64
	MaxTotalAllowedMB uint64
}
