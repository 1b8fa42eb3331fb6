package codec

import (
	"bytes"

	"github.com/cockroachdb/errors"
	"github.com/klauspost/compress/flate"
	"github.com/rivetq/rivetsum/internal/trailer"
	"github.com/rivetq/rivetsum/pkg/checksum"
)

const (
	MinLevel     = 0
	MaxLevel     = 12
	DefaultLevel = 6

	// flate stops at 9; 10..12 run as 9.
	maxFlateLevel = 9

	// Stored blocks cost 5 bytes each and the encoder never emits one
	// shorter than this, except the last.
	boundBlock   = 4096
	boundSlack   = 16
	zlibOverhead = 2 + 4
	gzipOverhead = 10 + 8

	gzipID1       = 0x1f
	gzipID2       = 0x8b
	methodFlate   = 8
	gzipOSUnknown = 255
	zlibCMF       = 0x78 // CM=8, CINFO=7 (32K window)
)

// Compressor produces complete deflate, zlib and gzip streams at a fixed level.
type Compressor struct {
	level int
}

// NewCompressor creates a new compressor. Level must be in 0..12.
func NewCompressor(level int) (*Compressor, error) {
	if level < MinLevel || level > MaxLevel {
		return nil, errors.Wrapf(ErrInvalidLevel, "%d not in %d..%d", level, MinLevel, MaxLevel)
	}
	return &Compressor{level: level}, nil
}

// Level returns the compression level.
func (c *Compressor) Level() int {
	return c.level
}

// Bound returns an upper limit on the size of a stream of the given format
// holding n input bytes, at any level.
func Bound(format Format, n int) int {
	if n < 0 {
		n = 0
	}
	b := n + 5*((n+boundBlock-1)/boundBlock) + boundSlack
	switch format {
	case FormatZlib:
		b += zlibOverhead
	case FormatGzip:
		b += gzipOverhead
	}
	return b
}

func flateLevel(level int) int {
	if level > maxFlateLevel {
		return maxFlateLevel
	}
	return level
}

// Compress produces a stream of the given format.
func (c *Compressor) Compress(format Format, data []byte) ([]byte, error) {
	switch format {
	case FormatDeflate:
		return c.Deflate(data)
	case FormatZlib:
		return c.Zlib(data)
	case FormatGzip:
		return c.Gzip(data)
	}
	return nil, errors.Wrapf(ErrUnsupportedFormat, "format %d", int(format))
}

// Deflate produces a raw DEFLATE stream.
func (c *Compressor) Deflate(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(Bound(FormatDeflate, len(data)))
	if err := c.deflateTo(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Zlib produces a zlib stream: header, DEFLATE body, Adler-32 trailer.
func (c *Compressor) Zlib(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(Bound(FormatZlib, len(data)))
	buf.Write(zlibHeader(c.level))
	if err := c.deflateTo(&buf, data); err != nil {
		return nil, err
	}
	sum := checksum.Sum(checksum.KindAdler32, data)
	return trailer.AppendZlib(buf.Bytes(), sum), nil
}

// Gzip produces a single-member gzip stream with no optional header fields.
func (c *Compressor) Gzip(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(Bound(FormatGzip, len(data)))
	buf.Write(gzipHeader(c.level))
	if err := c.deflateTo(&buf, data); err != nil {
		return nil, err
	}
	sum := checksum.Sum(checksum.KindCRC32, data)
	return trailer.AppendGzip(buf.Bytes(), sum, uint64(len(data))), nil
}

func (c *Compressor) deflateTo(buf *bytes.Buffer, data []byte) error {
	w, err := flate.NewWriter(buf, flateLevel(c.level))
	if err != nil {
		return errors.Wrap(err, "failed to create deflate writer")
	}
	if _, err := w.Write(data); err != nil {
		return errors.Wrap(err, "failed to deflate")
	}
	if err := w.Close(); err != nil {
		return errors.Wrap(err, "failed to finish deflate stream")
	}
	return nil
}

// zlibHeader builds CMF/FLG. FLEVEL follows the usual level buckets and
// FCHECK makes the 16-bit header a multiple of 31.
func zlibHeader(level int) []byte {
	var flevel byte
	level = flateLevel(level)
	switch {
	case level < 2:
		flevel = 0
	case level < 6:
		flevel = 1
	case level == 6:
		flevel = 2
	default:
		flevel = 3
	}
	flg := flevel << 6
	flg += byte(31 - (uint16(zlibCMF)<<8|uint16(flg))%31)
	return []byte{zlibCMF, flg}
}

func gzipHeader(level int) []byte {
	var xfl byte
	switch flateLevel(level) {
	case maxFlateLevel:
		xfl = 2
	case 1:
		xfl = 4
	}
	// ID1 ID2 CM FLG MTIME(4) XFL OS
	return []byte{gzipID1, gzipID2, methodFlate, 0, 0, 0, 0, 0, xfl, gzipOSUnknown}
}
