// Package crc32 implements the reflected IEEE CRC-32 used by gzip trailers.
//
// Every function here operates on the raw register; callers complement the
// state on entry and exit (see pkg/checksum). All table lookups index a
// [256]uint32 with a byte, so each index is masked to 8 bits by its type.
package crc32

import (
	"encoding/binary"
)

// Func folds p into a raw (already complemented) CRC-32 register.
type Func func(crc uint32, p []byte) uint32

// slice8Min is the shortest input worth handing to Slice8.
const slice8Min = 4

// Reference is the portable kernel: slice-by-8, or slice-by-1 for inputs
// too short to fill one 4-byte word.
func Reference(crc uint32, p []byte) uint32 {
	if len(p) < slice8Min {
		return Slice1(crc, p)
	}
	return Slice8(crc, p)
}

// Slice1 folds one byte per table lookup.
func Slice1(crc uint32, p []byte) uint32 {
	t := &ieeeTable
	for _, c := range p {
		crc = t[byte(crc)^c] ^ crc>>8
	}
	return crc
}

// Slice8 folds eight bytes per round using eight sub-tables.
func Slice8(crc uint32, p []byte) uint32 {
	t := &ieeeSlicing

	for len(p) >= 64 {
		b := p[:64:64]
		va := binary.LittleEndian.Uint64(b[0:])
		vb := binary.LittleEndian.Uint64(b[8:])
		vc := binary.LittleEndian.Uint64(b[16:])
		vd := binary.LittleEndian.Uint64(b[24:])
		ve := binary.LittleEndian.Uint64(b[32:])
		vf := binary.LittleEndian.Uint64(b[40:])
		vg := binary.LittleEndian.Uint64(b[48:])
		vh := binary.LittleEndian.Uint64(b[56:])

		// The high halves only depend on input, so look them up before
		// walking the dependent chain through crc.
		ha := high(t, uint32(va>>32))
		hb := high(t, uint32(vb>>32))
		hc := high(t, uint32(vc>>32))
		hd := high(t, uint32(vd>>32))

		crc = low(t, crc^uint32(va)) ^ ha
		crc = low(t, crc^uint32(vb)) ^ hb
		crc = low(t, crc^uint32(vc)) ^ hc
		crc = low(t, crc^uint32(vd)) ^ hd

		he := high(t, uint32(ve>>32))
		hf := high(t, uint32(vf>>32))
		hg := high(t, uint32(vg>>32))
		hh := high(t, uint32(vh>>32))

		crc = low(t, crc^uint32(ve)) ^ he
		crc = low(t, crc^uint32(vf)) ^ hf
		crc = low(t, crc^uint32(vg)) ^ hg
		crc = low(t, crc^uint32(vh)) ^ hh

		p = p[64:]
	}

	for len(p) >= 8 {
		v := binary.LittleEndian.Uint64(p)
		crc = low(t, crc^uint32(v)) ^ high(t, uint32(v>>32))
		p = p[8:]
	}

	if len(p) >= 4 {
		crc ^= binary.LittleEndian.Uint32(p)
		crc = high(t, crc)
		p = p[4:]
	}

	switch len(p) {
	case 3:
		crc = crc>>24 ^
			t[2][byte(crc)^p[0]] ^
			t[1][byte(crc>>8)^p[1]] ^
			t[0][byte(crc>>16)^p[2]]
	case 2:
		crc = crc>>16 ^
			t[1][byte(crc)^p[0]] ^
			t[0][byte(crc>>8)^p[1]]
	case 1:
		crc = crc>>8 ^ t[0][byte(crc)^p[0]]
	}
	return crc
}

// low looks up the four bytes of v in sub-tables 7..4: v is the first half
// of a word, already XORed with the register.
func low(t *SlicingTable, v uint32) uint32 {
	return (t[7][byte(v)] ^ t[6][byte(v>>8)]) ^ (t[5][byte(v>>16)] ^ t[4][byte(v>>24)])
}

// high looks up the four bytes of v in sub-tables 3..0: v is the second
// half of a word, or a lone trailing word.
func high(t *SlicingTable, v uint32) uint32 {
	return (t[3][byte(v)] ^ t[2][byte(v>>8)]) ^ (t[1][byte(v>>16)] ^ t[0][byte(v>>24)])
}
