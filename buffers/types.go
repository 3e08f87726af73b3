package buffers

// Set holds every mapped region a run needs. A nil slice means the region is
// inactive and its tests are skipped without error.
type Set struct {
	// Main memory regions.
	Src []byte
	Dst []byte
	Lat []byte

	// Per-cache-level regions (L1/L2 family).
	L1Src []byte
	L1Dst []byte
	L1Lat []byte
	L2Src []byte
	L2Dst []byte
	L2Lat []byte

	// Custom cache-size family.
	CustomSrc []byte
	CustomDst []byte
	CustomLat []byte

	mapped [][]byte
}
