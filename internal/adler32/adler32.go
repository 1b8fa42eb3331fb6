// Package adler32 implements the Adler-32 checksum used by zlib trailers.
//
// Reference is the portable, numerically exact definition every other
// kernel in this package is measured against.
package adler32

const (
	// Modulus is the largest prime smaller than 65536.
	Modulus = 65521
	// NMax is the largest n such that 255n(n+1)/2 + (n+1)(Modulus-1) fits
	// in 32 bits, i.e. the longest run of bytes that can be folded before
	// s1 and s2 must be reduced.
	NMax = 5552
	// Initial is the state of an empty stream.
	Initial = 1
)

// Func folds p into an Adler-32 state.
type Func func(adler uint32, p []byte) uint32

// Reference folds p into adler using only 32-bit arithmetic. Empty input
// returns adler unchanged.
func Reference(adler uint32, p []byte) uint32 {
	s1, s2 := adler&0xffff, adler>>16
	for len(p) > 0 {
		n := min(len(p), NMax)
		s1, s2 = chunk(s1, s2, p[:n])
		p = p[n:]
	}
	return s2<<16 | s1
}

// chunk folds at most NMax bytes and reduces both sums exactly once.
func chunk(s1, s2 uint32, p []byte) (uint32, uint32) {
	for len(p) >= 16 {
		b := p[:16:16]
		s2 += s1*16 +
			uint32(b[0])*16 + uint32(b[1])*15 + uint32(b[2])*14 + uint32(b[3])*13 +
			uint32(b[4])*12 + uint32(b[5])*11 + uint32(b[6])*10 + uint32(b[7])*9 +
			uint32(b[8])*8 + uint32(b[9])*7 + uint32(b[10])*6 + uint32(b[11])*5 +
			uint32(b[12])*4 + uint32(b[13])*3 + uint32(b[14])*2 + uint32(b[15])
		s1 += uint32(b[0]) + uint32(b[1]) + uint32(b[2]) + uint32(b[3]) +
			uint32(b[4]) + uint32(b[5]) + uint32(b[6]) + uint32(b[7]) +
			uint32(b[8]) + uint32(b[9]) + uint32(b[10]) + uint32(b[11]) +
			uint32(b[12]) + uint32(b[13]) + uint32(b[14]) + uint32(b[15])
		p = p[16:]
	}

	for len(p) >= 4 {
		b := p[:4:4]
		s2 += s1*4 + uint32(b[0])*4 + uint32(b[1])*3 + uint32(b[2])*2 + uint32(b[3])
		s1 += uint32(b[0]) + uint32(b[1]) + uint32(b[2]) + uint32(b[3])
		p = p[4:]
	}

	for _, c := range p {
		s1 += uint32(c)
		s2 += s1
	}

	return s1 % Modulus, s2 % Modulus
}
