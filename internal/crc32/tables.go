package crc32

// Polynomial is the bit-reflected IEEE 802.3 generator polynomial.
const Polynomial = 0xedb88320

// Table holds the contribution of each byte value to the register.
type Table [256]uint32

// SlicingTable holds eight tables; entry k is the contribution of a byte
// that has k more bytes after it within an 8-byte little-endian word.
type SlicingTable [8]Table

var (
	ieeeTable   = makeTable(Polynomial)
	ieeeSlicing = makeSlicingTable(&ieeeTable)
)

// IEEETable returns the byte-at-a-time table. The result must not be
// modified.
func IEEETable() *Table {
	return &ieeeTable
}

// IEEESlicingTable returns the slice-by-8 tables. The result must not be
// modified.
func IEEESlicingTable() *SlicingTable {
	return &ieeeSlicing
}

func makeTable(poly uint32) Table {
	var t Table
	for i := range t {
		crc := uint32(i)
		for j := 0; j < 8; j++ {
			if crc&1 == 1 {
				crc = crc>>1 ^ poly
			} else {
				crc >>= 1
			}
		}
		t[i] = crc
	}
	return t
}

func makeSlicingTable(base *Table) SlicingTable {
	var st SlicingTable
	st[0] = *base
	for i := range base {
		crc := base[i]
		for k := 1; k < 8; k++ {
			crc = base[byte(crc)] ^ crc>>8
			st[k][i] = crc
		}
	}
	return st
}
