// Package trailer encodes and checks the integrity trailers of zlib and
// gzip containers.
package trailer

import (
	"encoding/binary"

	"github.com/cockroachdb/errors"
	"github.com/rivetq/rivetsum/pkg/checksum"
)

const (
	// ZlibSize is the length of a zlib trailer: Adler-32, big-endian.
	ZlibSize = 4
	// GzipSize is the length of a gzip trailer: CRC-32 then ISIZE, both
	// little-endian.
	GzipSize = 8
)

var (
	ErrShortTrailer     = errors.New("short trailer")
	ErrChecksumMismatch = errors.New("checksum mismatch")
	ErrLengthMismatch   = errors.New("length mismatch")
)

// AppendZlib appends the zlib trailer for adler to dst.
func AppendZlib(dst []byte, adler uint32) []byte {
	return binary.BigEndian.AppendUint32(dst, adler)
}

// AppendGzip appends the gzip trailer for crc and the uncompressed size.
// ISIZE is the size modulo 2^32.
func AppendGzip(dst []byte, crc uint32, size uint64) []byte {
	dst = binary.LittleEndian.AppendUint32(dst, crc)
	return binary.LittleEndian.AppendUint32(dst, uint32(size))
}

// Zlib holds a decoded zlib trailer.
type Zlib struct {
	Adler32 uint32
}

// ParseZlib decodes the first ZlibSize bytes of b.
func ParseZlib(b []byte) (Zlib, error) {
	if len(b) < ZlibSize {
		return Zlib{}, errors.Wrapf(ErrShortTrailer, "zlib trailer needs %d bytes, have %d", ZlibSize, len(b))
	}
	return Zlib{Adler32: binary.BigEndian.Uint32(b)}, nil
}

// Gzip holds a decoded gzip trailer.
type Gzip struct {
	CRC32 uint32
	Size  uint32
}

// ParseGzip decodes the first GzipSize bytes of b.
func ParseGzip(b []byte) (Gzip, error) {
	if len(b) < GzipSize {
		return Gzip{}, errors.Wrapf(ErrShortTrailer, "gzip trailer needs %d bytes, have %d", GzipSize, len(b))
	}
	return Gzip{
		CRC32: binary.LittleEndian.Uint32(b),
		Size:  binary.LittleEndian.Uint32(b[4:]),
	}, nil
}

// VerifyZlib checks data against the zlib trailer in b.
func VerifyZlib(b []byte, data []byte) error {
	t, err := ParseZlib(b)
	if err != nil {
		return err
	}
	if got := checksum.Adler32(checksum.KindAdler32.Initial(), data); got != t.Adler32 {
		return errors.Wrapf(ErrChecksumMismatch, "adler32: computed %08x, trailer %08x", got, t.Adler32)
	}
	return nil
}

// VerifyGzip checks data against the gzip trailer in b.
func VerifyGzip(b []byte, data []byte) error {
	t, err := ParseGzip(b)
	if err != nil {
		return err
	}
	if got := checksum.CRC32(checksum.KindCRC32.Initial(), data); got != t.CRC32 {
		return errors.Wrapf(ErrChecksumMismatch, "crc32: computed %08x, trailer %08x", got, t.CRC32)
	}
	if size := uint32(len(data)); size != t.Size {
		return errors.Wrapf(ErrLengthMismatch, "isize: computed %d, trailer %d", size, t.Size)
	}
	return nil
}
