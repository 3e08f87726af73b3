// Package buffers owns every memory region a benchmark run touches:
// page-backed anonymous mappings for the main-memory and cache-level
// src/dst pairs, plus latency buffers pre-threaded with a randomized
// pointer-chase chain.
package buffers

import (
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"

	"memprobe/config"
)

// Allocate maps all regions the configured run needs, touches every page so
// first-fault cost never lands inside a measurement, and builds the pointer
// chains for the active latency buffers.
func Allocate(cfg *config.Benchmark) (*Set, error) {
	s := &Set{}

	alloc := func(name string, size uint64) ([]byte, error) {
		if size == 0 {
			return nil, nil
		}
		buf, err := mapRegion(size, cfg.NonCacheable)
		if err != nil {
			s.Release()
			return nil, fmt.Errorf("allocating %s buffer (%d bytes): %w", name, size, err)
		}
		s.mapped = append(s.mapped, buf)
		return buf, nil
	}

	var err error
	if !cfg.OnlyLatency {
		if s.Src, err = alloc("src", cfg.BufferSize); err != nil {
			return nil, err
		}
		if s.Dst, err = alloc("dst", cfg.BufferSize); err != nil {
			return nil, err
		}
	}

	// Pattern runs exercise only the main src/dst pair; latency and
	// cache-level regions stay unmapped.
	if cfg.RunPatterns {
		return s, nil
	}

	if !cfg.OnlyBandwidth {
		if s.Lat, err = alloc("latency", cfg.BufferSize); err != nil {
			return nil, err
		}
	}

	switch cfg.Target.Kind {
	case config.TargetCustom:
		if !cfg.OnlyLatency {
			if s.CustomSrc, err = alloc("custom src", cfg.CustomBufferSize); err != nil {
				return nil, err
			}
			if s.CustomDst, err = alloc("custom dst", cfg.CustomBufferSize); err != nil {
				return nil, err
			}
		}
		if !cfg.OnlyBandwidth {
			if s.CustomLat, err = alloc("custom latency", cfg.CustomBufferSize); err != nil {
				return nil, err
			}
		}
	default:
		if !cfg.OnlyLatency {
			if s.L1Src, err = alloc("L1 src", cfg.L1BufferSize); err != nil {
				return nil, err
			}
			if s.L1Dst, err = alloc("L1 dst", cfg.L1BufferSize); err != nil {
				return nil, err
			}
			if s.L2Src, err = alloc("L2 src", cfg.L2BufferSize); err != nil {
				return nil, err
			}
			if s.L2Dst, err = alloc("L2 dst", cfg.L2BufferSize); err != nil {
				return nil, err
			}
		}
		if !cfg.OnlyBandwidth {
			if s.L1Lat, err = alloc("L1 latency", cfg.L1BufferSize); err != nil {
				return nil, err
			}
			if s.L2Lat, err = alloc("L2 latency", cfg.L2BufferSize); err != nil {
				return nil, err
			}
		}
	}

	for _, lat := range [][]byte{s.Lat, s.L1Lat, s.L2Lat, s.CustomLat} {
		if lat == nil {
			continue
		}
		if err := SetupLatencyChain(lat, config.LatencyStrideBytes); err != nil {
			s.Release()
			return nil, err
		}
	}

	return s, nil
}

// mapRegion maps an anonymous read/write region and pre-faults every page.
// With nonCacheable set, the kernel is advised the region will be accessed
// randomly, discouraging readahead and aggressive caching; user space cannot
// get truly uncached normal memory, so this is best-effort by nature.
func mapRegion(size uint64, nonCacheable bool) ([]byte, error) {
	buf, err := unix.Mmap(-1, 0, int(size),
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		return nil, fmt.Errorf("mmap: %w", err)
	}

	// Advisory only: failure is logged and ignored.
	advice := unix.MADV_HUGEPAGE
	if nonCacheable {
		advice = unix.MADV_RANDOM
	}
	if err := unix.Madvise(buf, advice); err != nil {
		slog.Debug("madvise rejected", "advice", advice, "err", err)
	}

	pageSize := os.Getpagesize()
	for i := 0; i < len(buf); i += pageSize {
		buf[i] = byte(i)
	}
	if len(buf) > 0 {
		buf[len(buf)-1] = 0xff
	}

	return buf, nil
}

// Release unmaps every region. Safe to call more than once.
func (s *Set) Release() {
	for _, buf := range s.mapped {
		if err := unix.Munmap(buf); err != nil {
			slog.Warn("munmap failed", "err", err)
		}
	}
	s.mapped = nil
	s.Src, s.Dst, s.Lat = nil, nil, nil
	s.L1Src, s.L1Dst, s.L1Lat = nil, nil, nil
	s.L2Src, s.L2Dst, s.L2Lat = nil, nil, nil
	s.CustomSrc, s.CustomDst, s.CustomLat = nil, nil, nil
}

// SetupLatencyChain threads a randomized cyclic chain through buf. Chain
// nodes sit stride bytes apart; each node stores the word index of its
// successor in shuffled order, so a chase visits every node exactly once per
// cycle in an order the prefetcher cannot predict.
func SetupLatencyChain(buf []byte, stride uint64) error {
	numNodes := uint64(len(buf)) / stride
	if numNodes < 2 {
		return fmt.Errorf("buffer of %d bytes too small for latency chain (stride %d)", len(buf), stride)
	}

	order := make([]uint64, numNodes)
	for i := range order {
		order[i] = uint64(i)
	}
	rand.Shuffle(len(order), func(i, j int) {
		order[i], order[j] = order[j], order[i]
	})

	words := unsafe.Slice((*uint64)(unsafe.Pointer(&buf[0])), len(buf)/8)
	strideWords := stride / 8
	for i := uint64(0); i < numNodes; i++ {
		next := order[(i+1)%numNodes]
		words[order[i]*strideWords] = next * strideWords
	}
	return nil
}
