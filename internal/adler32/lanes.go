package adler32

const maxLanes = 64

// Lanes returns a kernel that folds width-byte blocks the way a vector unit
// of that width does: each lane keeps its own byte sum, the running total
// before every block is accumulated once per block, and the positional
// weights width..1 are applied when the chunk is reduced. Trailing bytes that
// do not fill a block go through Reference.
//
// width must be in [1, 64].
func Lanes(width int) Func {
	if width < 1 || width > maxLanes {
		panic("adler32: lane width out of range")
	}
	span := (NMax / width) * width

	return func(adler uint32, p []byte) uint32 {
		if len(p) < width {
			return Reference(adler, p)
		}

		s1, s2 := uint64(adler&0xffff), uint64(adler>>16)
		var lane [maxLanes]uint64

		for len(p) >= width {
			n := min(len(p)-len(p)%width, span)
			blocks := p[:n]
			p = p[n:]

			clear(lane[:width])
			var sum, prefix uint64
			for len(blocks) >= width {
				prefix += sum
				for i, c := range blocks[:width] {
					lane[i] += uint64(c)
					sum += uint64(c)
				}
				blocks = blocks[width:]
			}

			s2 += s1*uint64(n) + uint64(width)*prefix
			for i := 0; i < width; i++ {
				s2 += uint64(width-i) * lane[i]
			}
			s1 += sum

			s1 %= Modulus
			s2 %= Modulus
		}

		return Reference(uint32(s2)<<16|uint32(s1), p)
	}
}
