package kernels

// Pattern kernels cover the non-sequential access shapes: backward sweeps,
// fixed-stride hops, and table-driven random accesses. Strided and random
// kernels move patternAccessWords words (32 bytes) per access.

const patternAccessWords = 4

// ReadReverse sweeps the buffer from the last word to the first, folding
// every word into an XOR checksum.
func (Kernels) ReadReverse(buf []byte) uint64 {
	var sum uint64
	words := asWords(buf)
	for i := len(words) - 1; i >= 0; i-- {
		sum ^= words[i]
	}
	for i := len(buf) - 1; i >= len(words)*8; i-- {
		sum ^= uint64(buf[i])
	}
	return sum
}

// WriteReverse stores the same word pattern as Write, walking backward.
func (Kernels) WriteReverse(buf []byte) {
	words := asWords(buf)
	for i := len(words) - 1; i >= 0; i-- {
		words[i] = uint64(i)*0x9e3779b97f4a7c15 + 1
	}
	for i := len(buf) - 1; i >= len(words)*8; i-- {
		buf[i] = byte(i)
	}
}

// CopyReverse copies src into dst word by word from the end of the buffer.
func (Kernels) CopyReverse(dst, src []byte) {
	n := len(src)
	if len(dst) < n {
		n = len(dst)
	}
	s := asWords(src[:n])
	d := asWords(dst[:n])
	for i := len(s) - 1; i >= 0; i-- {
		d[i] = s[i]
	}
	for i := n - 1; i >= len(s)*8; i-- {
		dst[i] = src[i]
	}
}

// ReadStrided reads one 32-byte block at every stride boundary. Offsets stop
// before len(buf)-32 so every block stays in bounds; both the stride and the
// offsets are multiples of 8, keeping accesses word-aligned.
func (Kernels) ReadStrided(buf []byte, stride uint64) uint64 {
	words := asWords(buf)
	if stride == 0 || uint64(len(buf)) <= patternAccessWords*8 {
		return 0
	}
	effective := uint64(len(buf)) - patternAccessWords*8

	var sum uint64
	for off := uint64(0); off < effective; off += stride {
		base := off / 8
		for k := uint64(0); k < patternAccessWords; k++ {
			sum ^= words[base+k]
		}
	}
	return sum
}

// WriteStrided stores one 32-byte block at every stride boundary.
func (Kernels) WriteStrided(buf []byte, stride uint64) {
	words := asWords(buf)
	if stride == 0 || uint64(len(buf)) <= patternAccessWords*8 {
		return
	}
	effective := uint64(len(buf)) - patternAccessWords*8

	for off := uint64(0); off < effective; off += stride {
		base := off / 8
		for k := uint64(0); k < patternAccessWords; k++ {
			words[base+k] = (base+k)*0x9e3779b97f4a7c15 + 1
		}
	}
}

// CopyStrided copies one 32-byte block at every stride boundary.
func (Kernels) CopyStrided(dst, src []byte, stride uint64) {
	n := len(src)
	if len(dst) < n {
		n = len(dst)
	}
	if stride == 0 || uint64(n) <= patternAccessWords*8 {
		return
	}
	effective := uint64(n) - patternAccessWords*8

	for off := uint64(0); off < effective; off += stride {
		copy(dst[off:off+patternAccessWords*8], src[off:off+patternAccessWords*8])
	}
}

// ReadRandom reads one 32-byte block at each byte offset in indices. The
// caller guarantees offsets are 32-aligned and in bounds.
func (Kernels) ReadRandom(buf []byte, indices []uint64) uint64 {
	words := asWords(buf)
	var sum uint64
	for _, off := range indices {
		base := off / 8
		for k := uint64(0); k < patternAccessWords; k++ {
			sum ^= words[base+k]
		}
	}
	return sum
}

// WriteRandom stores one 32-byte block at each byte offset in indices.
func (Kernels) WriteRandom(buf []byte, indices []uint64) {
	words := asWords(buf)
	for _, off := range indices {
		base := off / 8
		for k := uint64(0); k < patternAccessWords; k++ {
			words[base+k] = (base+k)*0x9e3779b97f4a7c15 + 1
		}
	}
}

// CopyRandom copies one 32-byte block at each byte offset in indices.
func (Kernels) CopyRandom(dst, src []byte, indices []uint64) {
	for _, off := range indices {
		copy(dst[off:off+patternAccessWords*8], src[off:off+patternAccessWords*8])
	}
}
