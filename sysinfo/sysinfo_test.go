package sysinfo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCacheSize(t *testing.T) {
	cases := []struct {
		in   string
		want uint64
	}{
		{"32K", 32 * 1024},
		{"48K", 48 * 1024},
		{"1M", 1024 * 1024},
		{"4M", 4 * 1024 * 1024},
		{"1G", 1024 * 1024 * 1024},
		{" 256K\n", 256 * 1024},
	}
	for _, tc := range cases {
		got, err := ParseCacheSize(tc.in)
		require.NoError(t, err, "input %q", tc.in)
		assert.Equal(t, tc.want, got, "input %q", tc.in)
	}
}

func TestParseCacheSizeInvalid(t *testing.T) {
	for _, in := range []string{"", "K", "32", "32X", "abcK"} {
		_, err := ParseCacheSize(in)
		assert.Error(t, err, "input %q", in)
	}
}

func TestDetectNeverPanics(t *testing.T) {
	info := Detect()

	// Detection degrades, never fails: cores and cache sizes always end up
	// with usable values.
	assert.Greater(t, info.LogicalCores, 0)
	assert.Greater(t, info.PhysicalCores, 0)
	assert.NotZero(t, info.Cache.L1Size)
	assert.NotZero(t, info.Cache.L2Size)
}
