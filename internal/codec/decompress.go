package codec

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"

	"github.com/cockroachdb/errors"
	"github.com/klauspost/compress/flate"
	"github.com/rivetq/rivetsum/internal/governor"
	"github.com/rivetq/rivetsum/internal/metrics"
	"github.com/rivetq/rivetsum/internal/trailer"
	"github.com/rivetq/rivetsum/pkg/checksum"
	"github.com/rs/zerolog/log"
)

const (
	gzipHeaderSize = 10

	gzipFlagHCRC     = 1 << 1
	gzipFlagExtra    = 1 << 2
	gzipFlagName     = 1 << 3
	gzipFlagComment  = 1 << 4
	gzipFlagReserved = 0xe0

	zlibFlagDict = 1 << 5
)

// Decompressor inflates deflate, zlib and gzip streams into buffers whose
// size is approved by a governor before allocation.
type Decompressor struct {
	gov *governor.Governor
}

// NewDecompressor creates a new decompressor. A nil governor uses the
// default limits.
func NewDecompressor(gov *governor.Governor) *Decompressor {
	if gov == nil {
		gov = governor.New(governor.DefaultConfig())
	}
	return &Decompressor{gov: gov}
}

// Governor returns the governor in force.
func (d *Decompressor) Governor() *governor.Governor {
	return d.gov
}

// Decompress inflates a stream of the given format. Expected is the output
// capacity: shorter output is returned as is, longer output fails with
// ErrSizeMismatch.
func (d *Decompressor) Decompress(format Format, data []byte, expected uint64) ([]byte, error) {
	switch format {
	case FormatDeflate:
		return d.Deflate(data, expected)
	case FormatZlib:
		return d.Zlib(data, expected)
	case FormatGzip:
		return d.Gzip(data, expected)
	}
	return nil, errors.Wrapf(ErrUnsupportedFormat, "format %d", int(format))
}

// Deflate inflates a raw DEFLATE stream. Bytes after the final block are
// ignored.
func (d *Decompressor) Deflate(data []byte, expected uint64) ([]byte, error) {
	out, err := d.admit(FormatDeflate, data, expected)
	if err != nil {
		return nil, err
	}
	if _, err := inflate(out, data, expected); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// Zlib inflates a zlib stream and verifies its Adler-32 trailer.
func (d *Decompressor) Zlib(data []byte, expected uint64) ([]byte, error) {
	out, err := d.admit(FormatZlib, data, expected)
	if err != nil {
		return nil, err
	}
	if len(data) < 2 {
		return nil, errors.Wrap(ErrBadHeader, "zlib header truncated")
	}
	cmf, flg := data[0], data[1]
	switch {
	case cmf&0x0f != methodFlate:
		return nil, errors.Wrapf(ErrBadHeader, "zlib compression method %d", cmf&0x0f)
	case cmf>>4 > 7:
		return nil, errors.Wrapf(ErrBadHeader, "zlib window size 2^%d", cmf>>4+8)
	case (uint16(cmf)<<8|uint16(flg))%31 != 0:
		return nil, errors.Wrap(ErrBadHeader, "zlib header check failed")
	case flg&zlibFlagDict != 0:
		return nil, errors.Wrap(ErrBadHeader, "zlib preset dictionary not supported")
	}

	body := data[2:]
	n, err := inflate(out, body, expected)
	if err != nil {
		return nil, err
	}
	if err := trailer.VerifyZlib(body[n:], out.Bytes()); err != nil {
		return nil, errors.Wrap(err, "zlib trailer")
	}
	return out.Bytes(), nil
}

// Gzip inflates every member of a gzip stream, verifying each member's
// CRC-32 and ISIZE.
func (d *Decompressor) Gzip(data []byte, expected uint64) ([]byte, error) {
	out, err := d.admit(FormatGzip, data, expected)
	if err != nil {
		return nil, err
	}

	rest := data
	for member := 0; member == 0 || len(rest) > 0; member++ {
		hdr, err := gzipHeaderLen(rest)
		if err != nil {
			return nil, errors.Wrapf(err, "gzip member %d", member)
		}
		body := rest[hdr:]

		start := out.Len()
		n, err := inflate(out, body, expected-uint64(start))
		if err != nil {
			return nil, errors.Wrapf(err, "gzip member %d", member)
		}
		if err := trailer.VerifyGzip(body[n:], out.Bytes()[start:]); err != nil {
			return nil, errors.Wrapf(err, "gzip member %d trailer", member)
		}
		rest = body[n+trailer.GzipSize:]
	}
	return out.Bytes(), nil
}

func (d *Decompressor) admit(format Format, data []byte, expected uint64) (*bytes.Buffer, error) {
	if err := d.gov.Check(uint64(len(data)), expected); err != nil {
		reason := "ratio"
		if errors.Is(err, governor.ErrMemoryLimit) {
			reason = "memory"
		}
		metrics.DecompressRejectionsTotal.WithLabelValues(reason).Inc()
		log.Debug().
			Str("format", format.String()).
			Int("input", len(data)).
			Uint64("expected", expected).
			Str("reason", reason).
			Msg("Decompression rejected")
		return nil, err
	}
	if expected > math.MaxInt {
		return nil, errors.Wrapf(governor.ErrMemoryLimit, "%d bytes not addressable", expected)
	}
	out := new(bytes.Buffer)
	out.Grow(int(expected))
	return out, nil
}

// inflate appends the DEFLATE stream at the start of body to out and
// returns how many bytes of body it consumed. bytes.Reader is an
// io.ByteReader, so the inflater never reads past the final block.
func inflate(out *bytes.Buffer, body []byte, limit uint64) (int, error) {
	br := bytes.NewReader(body)
	fr := flate.NewReader(br)
	defer fr.Close()

	window := int64(math.MaxInt64)
	if limit < math.MaxInt64 {
		window = int64(limit) + 1
	}
	n, err := io.Copy(out, io.LimitReader(fr, window))
	if err != nil {
		return 0, errors.Mark(errors.Wrap(err, "failed to inflate"), ErrCorrupt)
	}
	if uint64(n) > limit {
		return 0, errors.Wrapf(ErrSizeMismatch, "more than %d bytes", limit)
	}
	return len(body) - br.Len(), nil
}

// gzipHeaderLen validates a gzip member header and returns its length.
func gzipHeaderLen(b []byte) (int, error) {
	if len(b) < gzipHeaderSize {
		return 0, errors.Wrap(ErrBadHeader, "gzip header truncated")
	}
	if b[0] != gzipID1 || b[1] != gzipID2 {
		return 0, errors.Wrap(ErrBadHeader, "gzip magic mismatch")
	}
	if b[2] != methodFlate {
		return 0, errors.Wrapf(ErrBadHeader, "gzip compression method %d", b[2])
	}
	flags := b[3]
	if flags&gzipFlagReserved != 0 {
		return 0, errors.Wrapf(ErrBadHeader, "gzip reserved flags %#x", flags)
	}

	off := gzipHeaderSize
	if flags&gzipFlagExtra != 0 {
		if len(b) < off+2 {
			return 0, errors.Wrap(ErrBadHeader, "gzip extra field truncated")
		}
		xlen := int(binary.LittleEndian.Uint16(b[off:]))
		off += 2
		if len(b) < off+xlen {
			return 0, errors.Wrap(ErrBadHeader, "gzip extra field truncated")
		}
		off += xlen
	}
	for _, flag := range []byte{gzipFlagName, gzipFlagComment} {
		if flags&flag == 0 {
			continue
		}
		i := bytes.IndexByte(b[off:], 0)
		if i < 0 {
			return 0, errors.Wrap(ErrBadHeader, "gzip string field unterminated")
		}
		off += i + 1
	}
	if flags&gzipFlagHCRC != 0 {
		if len(b) < off+2 {
			return 0, errors.Wrap(ErrBadHeader, "gzip header crc truncated")
		}
		want := binary.LittleEndian.Uint16(b[off:])
		if got := uint16(checksum.Sum(checksum.KindCRC32, b[:off])); got != want {
			return 0, errors.Wrapf(ErrBadHeader, "gzip header crc %04x, computed %04x", want, got)
		}
		off += 2
	}
	return off, nil
}
