package buffers

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"memprobe/config"
)

func chainNodes(t *testing.T, buf []byte, stride uint64) []uint64 {
	t.Helper()
	numNodes := uint64(len(buf)) / stride
	strideWords := stride / 8

	// Follow the chain from node 0 for one full cycle.
	visited := make(map[uint64]bool, numNodes)
	idx := uint64(0)
	order := []uint64{}
	for i := uint64(0); i < numNodes; i++ {
		node := idx / strideWords
		require.False(t, visited[node], "node %d visited twice before the cycle closed", node)
		visited[node] = true
		order = append(order, node)
		idx = binary.LittleEndian.Uint64(buf[idx*8:])
	}
	require.Zero(t, idx%strideWords, "chain links must land on node boundaries")
	return order
}

func TestSetupLatencyChainFullCycle(t *testing.T) {
	buf := make([]byte, 4096)
	require.NoError(t, SetupLatencyChain(buf, config.LatencyStrideBytes))

	numNodes := uint64(len(buf)) / config.LatencyStrideBytes
	order := chainNodes(t, buf, config.LatencyStrideBytes)
	assert.Len(t, order, int(numNodes), "one cycle visits every node exactly once")

	// One more hop from the last node must close the cycle back to the start.
	strideWords := uint64(config.LatencyStrideBytes / 8)
	last := order[len(order)-1]
	next := binary.LittleEndian.Uint64(buf[last*config.LatencyStrideBytes:])
	assert.Equal(t, order[0]*strideWords, next)
}

func TestSetupLatencyChainRejectsTinyBuffers(t *testing.T) {
	assert.Error(t, SetupLatencyChain(make([]byte, config.LatencyStrideBytes), config.LatencyStrideBytes))
	assert.Error(t, SetupLatencyChain(make([]byte, 8), config.LatencyStrideBytes))
}

func TestAllocateFullSet(t *testing.T) {
	cfg := &config.Benchmark{
		BufferSize:   64 * 1024,
		L1BufferSize: 16 * 1024,
		L2BufferSize: 32 * 1024,
		Target:       config.L1L2Target(),
	}

	s, err := Allocate(cfg)
	require.NoError(t, err)
	defer s.Release()

	assert.Len(t, s.Src, int(cfg.BufferSize))
	assert.Len(t, s.Dst, int(cfg.BufferSize))
	assert.Len(t, s.Lat, int(cfg.BufferSize))
	assert.Len(t, s.L1Src, int(cfg.L1BufferSize))
	assert.Len(t, s.L2Lat, int(cfg.L2BufferSize))
	assert.Nil(t, s.CustomSrc)

	// Latency buffers come pre-threaded.
	order := chainNodes(t, s.Lat, config.LatencyStrideBytes)
	assert.Len(t, order, int(cfg.BufferSize/config.LatencyStrideBytes))
}

func TestAllocateBandwidthOnlySkipsLatency(t *testing.T) {
	cfg := &config.Benchmark{
		BufferSize:    64 * 1024,
		L1BufferSize:  16 * 1024,
		OnlyBandwidth: true,
		Target:        config.L1L2Target(),
	}

	s, err := Allocate(cfg)
	require.NoError(t, err)
	defer s.Release()

	assert.NotNil(t, s.Src)
	assert.Nil(t, s.Lat)
	assert.Nil(t, s.L1Lat)
}

func TestAllocateLatencyOnlySkipsBandwidth(t *testing.T) {
	cfg := &config.Benchmark{
		BufferSize:  64 * 1024,
		OnlyLatency: true,
		Target:      config.CustomTarget(192 * 1024),
	}
	cfg.CustomBufferSize = 192 * 1024

	s, err := Allocate(cfg)
	require.NoError(t, err)
	defer s.Release()

	assert.Nil(t, s.Src)
	assert.Nil(t, s.Dst)
	assert.NotNil(t, s.Lat)
	assert.NotNil(t, s.CustomLat)
	assert.Nil(t, s.CustomSrc)
}

func TestAllocatePatternsOnlyMainPair(t *testing.T) {
	cfg := &config.Benchmark{
		BufferSize:   64 * 1024,
		L1BufferSize: 16 * 1024,
		L2BufferSize: 32 * 1024,
		RunPatterns:  true,
		Target:       config.L1L2Target(),
	}

	s, err := Allocate(cfg)
	require.NoError(t, err)
	defer s.Release()

	assert.Len(t, s.Src, int(cfg.BufferSize))
	assert.Len(t, s.Dst, int(cfg.BufferSize))
	assert.Nil(t, s.Lat, "pattern runs never chase")
	assert.Nil(t, s.L1Src)
	assert.Nil(t, s.L1Lat)
	assert.Nil(t, s.L2Src)
}

func TestAllocateNonCacheable(t *testing.T) {
	cfg := &config.Benchmark{
		BufferSize:    64 * 1024,
		OnlyBandwidth: true,
		NonCacheable:  true,
		Target:        config.L1L2Target(),
	}

	// The advice is best-effort; allocation must succeed either way.
	s, err := Allocate(cfg)
	require.NoError(t, err)
	defer s.Release()

	assert.Len(t, s.Src, int(cfg.BufferSize))
	assert.Len(t, s.Dst, int(cfg.BufferSize))
}

func TestReleaseIdempotent(t *testing.T) {
	cfg := &config.Benchmark{
		BufferSize:    64 * 1024,
		OnlyBandwidth: true,
		Target:        config.L1L2Target(),
	}
	s, err := Allocate(cfg)
	require.NoError(t, err)

	s.Release()
	s.Release()
	assert.Nil(t, s.Src)
}
