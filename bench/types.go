package bench

import "memprobe/partition"

// Primitives is the access-kernel surface the executor drives. The real
// implementation lives in the kernels package; tests substitute stubs.
// Checksums returned by Read are opaque and only exist to keep the traffic
// observable.
type Primitives interface {
	Read(buf []byte) uint64
	Write(buf []byte)
	Copy(dst, src []byte)
	// LatencyChase walks the pointer chain for count dependent accesses and
	// returns the elapsed time in nanoseconds.
	LatencyChase(chain []byte, count uint64) float64
}

// Progress is notified once per phase transition so a console frontend can
// show activity without the core knowing anything about terminals.
type Progress interface {
	Step()
}

// NoProgress is the silent Progress used in tests and quiet runs.
type NoProgress struct{}

func (NoProgress) Step() {}

// TimingResults is the per-loop scratch record: raw elapsed times straight
// from the measurement brackets, before any bandwidth math. Created fresh
// each loop and discarded once the calculator has consumed it.
type TimingResults struct {
	// Main memory bandwidth, seconds for the full iteration loop.
	TotalReadTime  float64
	TotalWriteTime float64
	TotalCopyTime  float64

	// Latency totals, nanoseconds.
	TotalLatTimeNs  float64
	L1LatTimeNs     float64
	L2LatTimeNs     float64
	CustomLatTimeNs float64

	// Cache bandwidth, seconds.
	L1ReadTime      float64
	L1WriteTime     float64
	L1CopyTime      float64
	L2ReadTime      float64
	L2WriteTime     float64
	L2CopyTime      float64
	CustomReadTime  float64
	CustomWriteTime float64
	CustomCopyTime  float64

	// Read checksums; never interpreted, they only pin the read loops.
	TotalReadChecksum  partition.Checksum
	L1ReadChecksum     partition.Checksum
	L2ReadChecksum     partition.Checksum
	CustomReadChecksum partition.Checksum
}

// Results is one loop's finished output: bandwidth in GB/s, latency in
// nanoseconds, and (for cache latency tests) the individual per-access
// samples. Immutable once the executor returns it.
type Results struct {
	// Main memory bandwidth.
	ReadBWGBs      float64
	WriteBWGBs     float64
	CopyBWGBs      float64
	TotalReadTime  float64
	TotalWriteTime float64
	TotalCopyTime  float64

	// Main memory latency.
	AverageLatencyNs float64
	TotalLatTimeNs   float64
	LatencySamples   []float64

	// Cache latency.
	L1LatencyNs          float64
	L2LatencyNs          float64
	CustomLatencyNs      float64
	L1LatencySamples     []float64
	L2LatencySamples     []float64
	CustomLatencySamples []float64

	// Cache bandwidth.
	L1ReadBWGBs      float64
	L1WriteBWGBs     float64
	L1CopyBWGBs      float64
	L2ReadBWGBs      float64
	L2WriteBWGBs     float64
	L2CopyBWGBs      float64
	CustomReadBWGBs  float64
	CustomWriteBWGBs float64
	CustomCopyBWGBs  float64
}

// Statistics aggregates every loop's results for cross-loop analysis: one
// ordered per-loop sequence per metric plus one concatenated raw-sample
// sequence per latency region. Sequences only ever grow; order is loop order.
type Statistics struct {
	AllReadBWGBs  []float64
	AllWriteBWGBs []float64
	AllCopyBWGBs  []float64

	AllL1LatencyNs      []float64
	AllL2LatencyNs      []float64
	AllAverageLatencyNs []float64

	AllL1ReadBWGBs  []float64
	AllL1WriteBWGBs []float64
	AllL1CopyBWGBs  []float64
	AllL2ReadBWGBs  []float64
	AllL2WriteBWGBs []float64
	AllL2CopyBWGBs  []float64

	AllCustomLatencyNs  []float64
	AllCustomReadBWGBs  []float64
	AllCustomWriteBWGBs []float64
	AllCustomCopyBWGBs  []float64

	AllMainMemLatencySamples []float64
	AllL1LatencySamples      []float64
	AllL2LatencySamples      []float64
	AllCustomLatencySamples  []float64
}
