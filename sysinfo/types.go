package sysinfo

// CacheInfo stores the sizes of L1, L2, and L3 data caches in bytes.
type CacheInfo struct {
	L1Size uint64
	L2Size uint64
	L3Size uint64
}

// Info describes the host the benchmark runs on. Cache sizes fall back to
// conservative defaults when sysfs is unavailable.
type Info struct {
	CPUName       string
	PhysicalCores int
	LogicalCores  int
	FrequencyMHz  float64
	TotalMemory   uint64
	AvailMemory   uint64
	Hostname      string
	KernelVersion string
	Cache         CacheInfo
}
