// Package kernels holds the raw memory-access primitives the benchmark
// drives: sequential read/write/copy sweeps and the pointer-chase latency
// walk. Buffers come in as byte slices backed by page-aligned mappings; all
// bulk traffic moves in 64-bit words.
package kernels

import (
	"time"
	"unsafe"
)

// Sink receives otherwise-dead results so the compiler cannot elide the
// access loops. Its content has no meaning.
var Sink uint64

// Kernels is the concrete primitive set used for real measurements. The
// benchmark core only sees the bench.Primitives interface, so tests can swap
// these out for stubs.
type Kernels struct{}

func asWords(buf []byte) []uint64 {
	if len(buf) < 8 {
		return nil
	}
	return unsafe.Slice((*uint64)(unsafe.Pointer(&buf[0])), len(buf)/8)
}

// Read sweeps the buffer sequentially and folds every 64-bit word into an
// XOR checksum. The checksum is opaque; it exists so the read traffic stays
// observable.
func (Kernels) Read(buf []byte) uint64 {
	var sum uint64
	words := asWords(buf)
	for _, w := range words {
		sum ^= w
	}
	// Tail bytes past the last full word still have to be touched.
	for i := len(words) * 8; i < len(buf); i++ {
		sum ^= uint64(buf[i])
	}
	return sum
}

// Write sweeps the buffer sequentially, storing a word-dependent pattern.
func (Kernels) Write(buf []byte) {
	words := asWords(buf)
	for i := range words {
		words[i] = uint64(i)*0x9e3779b97f4a7c15 + 1
	}
	for i := len(words) * 8; i < len(buf); i++ {
		buf[i] = byte(i)
	}
}

// Copy moves src into dst. The runtime copy lowers to the platform memmove,
// which is the fastest bulk path available without hand-written assembly.
func (Kernels) Copy(dst, src []byte) {
	copy(dst, src)
}

// LatencyChase walks the pointer chain for count dependent loads and returns
// the elapsed wall time in nanoseconds. Each load's address comes from the
// previous load's value, so the hardware prefetcher gets nothing to work
// with. The chain must have been built by the buffer provider.
func (Kernels) LatencyChase(chain []byte, count uint64) float64 {
	words := asWords(chain)
	if len(words) == 0 || count == 0 {
		return 0
	}

	idx := uint64(0)
	start := time.Now()
	for i := uint64(0); i < count; i++ {
		idx = words[idx]
	}
	elapsed := time.Since(start)

	Sink = idx
	return float64(elapsed.Nanoseconds())
}
