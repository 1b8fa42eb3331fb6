package manifest

import (
	"encoding/binary"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rivetq/rivetsum/pkg/checksum"
)

var (
	ErrInvalidEntry   = errors.New("invalid entry")
	ErrCorruptedEntry = errors.New("corrupted entry")
)

// Entry records the checksums of one file.
type Entry struct {
	Path    string    `json:"path"` // slash-separated, relative to the indexed root
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
	Adler32 uint32    `json:"adler32"`
	CRC32   uint32    `json:"crc32"`
}

const entryFixedSize = 2 + 8 + 8 + 4 + 4 + 4

// Marshal serializes an entry.
// Format: [path_len:2][path][size:8][mtime_unix_ns:8][adler32:4][crc32:4][check:4]
// where check is the CRC-32 of everything before it.
func (e *Entry) Marshal() ([]byte, error) {
	if e.Path == "" || len(e.Path) > 0xffff {
		return nil, errors.Wrapf(ErrInvalidEntry, "path length %d", len(e.Path))
	}

	buf := make([]byte, 0, entryFixedSize+len(e.Path))
	buf = binary.LittleEndian.AppendUint16(buf, uint16(len(e.Path)))
	buf = append(buf, e.Path...)
	buf = binary.LittleEndian.AppendUint64(buf, uint64(e.Size))
	buf = binary.LittleEndian.AppendUint64(buf, uint64(e.ModTime.UnixNano()))
	buf = binary.LittleEndian.AppendUint32(buf, e.Adler32)
	buf = binary.LittleEndian.AppendUint32(buf, e.CRC32)
	return binary.LittleEndian.AppendUint32(buf, checksum.Sum(checksum.KindCRC32, buf)), nil
}

// Unmarshal deserializes an entry, rejecting truncated or corrupted data.
func (e *Entry) Unmarshal(data []byte) error {
	if len(data) < entryFixedSize {
		return ErrInvalidEntry
	}

	body := data[:len(data)-4]
	want := binary.LittleEndian.Uint32(data[len(body):])
	if got := checksum.Sum(checksum.KindCRC32, body); got != want {
		return errors.Wrapf(ErrCorruptedEntry, "check %08x, computed %08x", want, got)
	}

	pathLen := int(binary.LittleEndian.Uint16(body))
	if len(body) != entryFixedSize-4+pathLen {
		return ErrInvalidEntry
	}
	offset := 2
	e.Path = string(body[offset : offset+pathLen])
	offset += pathLen
	e.Size = int64(binary.LittleEndian.Uint64(body[offset:]))
	offset += 8
	e.ModTime = time.Unix(0, int64(binary.LittleEndian.Uint64(body[offset:])))
	offset += 8
	e.Adler32 = binary.LittleEndian.Uint32(body[offset:])
	offset += 4
	e.CRC32 = binary.LittleEndian.Uint32(body[offset:])
	return nil
}

// Same reports whether two entries describe identical content.
func (e *Entry) Same(o *Entry) bool {
	return e.Size == o.Size && e.Adler32 == o.Adler32 && e.CRC32 == o.CRC32
}
