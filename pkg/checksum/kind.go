package checksum

import (
	"strings"

	"github.com/cockroachdb/errors"
)

// ErrUnknownKind is returned when parsing an unsupported checksum name.
var ErrUnknownKind = errors.New("unknown checksum kind")

// Kind identifies a checksum algorithm.
type Kind uint8

const (
	// KindAdler32 is the zlib trailer checksum.
	KindAdler32 Kind = iota + 1
	// KindCRC32 is the gzip trailer checksum (IEEE, reflected).
	KindCRC32
)

// Kinds lists every supported kind.
func Kinds() []Kind {
	return []Kind{KindAdler32, KindCRC32}
}

func (k Kind) String() string {
	switch k {
	case KindAdler32:
		return "adler32"
	case KindCRC32:
		return "crc32"
	default:
		return "unknown"
	}
}

// Initial returns the state of an empty stream.
func (k Kind) Initial() uint32 {
	if k == KindAdler32 {
		return 1
	}
	return 0
}

// Valid reports whether k is a supported kind.
func (k Kind) Valid() bool {
	return k == KindAdler32 || k == KindCRC32
}

// ParseKind accepts "adler32" or "crc32" (case-insensitive, optional dash).
func ParseKind(s string) (Kind, error) {
	switch strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "") {
	case "adler32", "adler":
		return KindAdler32, nil
	case "crc32", "crc":
		return KindCRC32, nil
	default:
		return 0, errors.Wrapf(ErrUnknownKind, "%q", s)
	}
}
