package partition

import (
	"sync"
	"sync/atomic"

	"memprobe/timer"
)

// Chunk is one worker's contiguous byte range within a shared buffer.
type Chunk struct {
	Offset uint64
	Size   uint64
}

// Chunks splits size bytes into n contiguous, non-overlapping ranges.
// Every chunk gets size/n bytes and the first size%n chunks one extra byte,
// so the sizes always sum back to size. Zero-size chunks may appear when
// n > size; Run never dispatches them.
func Chunks(size uint64, n int) []Chunk {
	if n <= 0 {
		n = 1
	}
	chunks := make([]Chunk, n)
	base := size / uint64(n)
	remainder := size % uint64(n)

	offset := uint64(0)
	for i := 0; i < n; i++ {
		chunkSize := base
		if uint64(i) < remainder {
			chunkSize++
		}
		chunks[i] = Chunk{Offset: offset, Size: chunkSize}
		offset += chunkSize
	}
	return chunks
}

// WorkFunc runs one worker's share of a bandwidth operation. It receives the
// chunk bounds and the iteration count; the measured timer brackets all
// iterations of all workers, not individual passes.
type WorkFunc func(offset, size uint64, iterations int)

// Run fans work out across one goroutine per non-empty chunk and blocks
// until all of them finish. Workers are held at a start gate so the timer
// only starts once every worker is spawned and ready; spawn cost still lands
// inside the measurement, matching how callers actually pay for threading.
// Returns the elapsed wall time in seconds.
//
// A panic inside a worker is caught there and re-raised on the calling
// goroutine after all workers have joined, so callers see worker faults the
// same way they see their own.
func Run(size uint64, threads, iterations int, t *timer.Timer, work WorkFunc) float64 {
	var wg sync.WaitGroup
	var workerPanic atomic.Pointer[any]
	start := make(chan struct{})

	for _, chunk := range Chunks(size, threads) {
		if chunk.Size == 0 {
			continue
		}
		wg.Add(1)
		go func(c Chunk) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					workerPanic.CompareAndSwap(nil, &r)
				}
			}()
			<-start
			work(c.Offset, c.Size, iterations)
		}(chunk)
	}

	t.Start()
	close(start)
	wg.Wait()
	elapsed := t.Stop()

	if p := workerPanic.Load(); p != nil {
		panic(*p)
	}
	return elapsed
}

// Checksum is a race-free XOR accumulator shared by read workers. XOR is
// commutative and associative, so the combination order across workers does
// not matter; only "every byte contributed" matters.
type Checksum struct {
	v atomic.Uint64
}

// Combine folds a worker's local checksum into the shared value.
func (c *Checksum) Combine(x uint64) {
	for {
		old := c.v.Load()
		if c.v.CompareAndSwap(old, old^x) {
			return
		}
	}
}

// Value returns the accumulated checksum.
func (c *Checksum) Value() uint64 {
	return c.v.Load()
}

// Reset clears the accumulator before a measurement pass.
func (c *Checksum) Reset() {
	c.v.Store(0)
}
