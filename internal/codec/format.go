package codec

import (
	"strings"

	"github.com/cockroachdb/errors"
)

// Format is a compressed stream container.
type Format int

const (
	FormatDeflate Format = iota
	FormatZlib
	FormatGzip
)

var (
	ErrInvalidLevel      = errors.New("invalid compression level")
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrBadHeader         = errors.New("bad stream header")
	ErrSizeMismatch      = errors.New("decompressed size exceeds expected size")
	ErrCorrupt           = errors.New("corrupt compressed stream")
)

func (f Format) String() string {
	switch f {
	case FormatDeflate:
		return "deflate"
	case FormatZlib:
		return "zlib"
	case FormatGzip:
		return "gzip"
	default:
		return "unknown"
	}
}

// ParseFormat maps a format name to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "deflate", "raw":
		return FormatDeflate, nil
	case "zlib":
		return FormatZlib, nil
	case "gzip", "gz":
		return FormatGzip, nil
	}
	return 0, errors.Wrapf(ErrUnsupportedFormat, "%q", s)
}
