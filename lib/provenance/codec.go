package provenance

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/ValentinKolb/dHook/lib/cell"
)

var (
	// ErrTruncated is returned if the input ends before all fields were read.
	ErrTruncated = errors.New("provenance: truncated input")
	// ErrTrailingBytes is returned if the input holds data after the last field.
	ErrTrailingBytes = errors.New("provenance: trailing bytes")
	// ErrFieldTooLong is returned if a field does not fit into its length prefix.
	ErrFieldTooLong = errors.New("provenance: field too long")
)

// Source is the decoded identity of a source cell.
type Source struct {
	Table     string
	Timestamp int64
	Row       []byte
	Family    []byte
	Qualifier []byte
}

func (s Source) String() string {
	return fmt.Sprintf("%s/%q/%s:%q@%d", s.Table, s.Row, s.Family, s.Qualifier, s.Timestamp)
}

// fixed part of the encoding: table len + timestamp + row len + family len + qualifier len
const fixedSize = 4 + 8 + 2 + 2 + 4

// SizeBytes returns the exact number of bytes Encode produces for the cell.
func SizeBytes(table string, c cell.Cell) int {
	return fixedSize + len(table) + len(c.Row) + len(c.Family) + len(c.Qualifier)
}

// Encode returns the provenance encoding of a cell written to table.
func Encode(table string, c cell.Cell) ([]byte, error) {
	if uint64(len(table)) > math.MaxUint32 {
		return nil, fmt.Errorf("%w: table (%d bytes)", ErrFieldTooLong, len(table))
	}
	if len(c.Row) > math.MaxUint16 {
		return nil, fmt.Errorf("%w: row (%d bytes)", ErrFieldTooLong, len(c.Row))
	}
	if len(c.Family) > math.MaxUint16 {
		return nil, fmt.Errorf("%w: family (%d bytes)", ErrFieldTooLong, len(c.Family))
	}
	if uint64(len(c.Qualifier)) > math.MaxUint32 {
		return nil, fmt.Errorf("%w: qualifier (%d bytes)", ErrFieldTooLong, len(c.Qualifier))
	}

	result := make([]byte, SizeBytes(table, c))
	pos := 0

	// table
	binary.BigEndian.PutUint32(result[pos:pos+4], uint32(len(table)))
	pos += 4
	pos += copy(result[pos:], table)

	// timestamp
	binary.BigEndian.PutUint64(result[pos:pos+8], uint64(c.Timestamp))
	pos += 8

	// row
	binary.BigEndian.PutUint16(result[pos:pos+2], uint16(len(c.Row)))
	pos += 2
	pos += copy(result[pos:], c.Row)

	// family
	binary.BigEndian.PutUint16(result[pos:pos+2], uint16(len(c.Family)))
	pos += 2
	pos += copy(result[pos:], c.Family)

	// qualifier
	binary.BigEndian.PutUint32(result[pos:pos+4], uint32(len(c.Qualifier)))
	pos += 4
	copy(result[pos:], c.Qualifier)

	return result, nil
}

// Decode extracts the source identity from an encoding produced by Encode.
func Decode(data []byte) (Source, error) {
	var (
		src Source
		r   = reader{data: data}
	)

	table, err := r.field(4)
	if err != nil {
		return Source{}, fmt.Errorf("table: %w", err)
	}
	src.Table = string(table)

	ts, err := r.next(8)
	if err != nil {
		return Source{}, fmt.Errorf("timestamp: %w", err)
	}
	src.Timestamp = int64(binary.BigEndian.Uint64(ts))

	if src.Row, err = r.field(2); err != nil {
		return Source{}, fmt.Errorf("row: %w", err)
	}
	if src.Family, err = r.field(2); err != nil {
		return Source{}, fmt.Errorf("family: %w", err)
	}
	if src.Qualifier, err = r.field(4); err != nil {
		return Source{}, fmt.Errorf("qualifier: %w", err)
	}

	if r.pos != len(data) {
		return Source{}, fmt.Errorf("%w: %d bytes after qualifier", ErrTrailingBytes, len(data)-r.pos)
	}
	return src, nil
}

// reader walks over an encoding and hands out copies of its fields.
type reader struct {
	data []byte
	pos  int
}

func (r *reader) next(n int) ([]byte, error) {
	if n < 0 || len(r.data)-r.pos < n {
		return nil, ErrTruncated
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

// field reads a length prefix of the given width followed by that many bytes.
func (r *reader) field(width int) ([]byte, error) {
	prefix, err := r.next(width)
	if err != nil {
		return nil, err
	}

	var n uint64
	switch width {
	case 2:
		n = uint64(binary.BigEndian.Uint16(prefix))
	case 4:
		n = uint64(binary.BigEndian.Uint32(prefix))
	default:
		return nil, fmt.Errorf("unsupported prefix width %d", width)
	}
	if n > uint64(len(r.data)-r.pos) {
		return nil, ErrTruncated
	}

	b, _ := r.next(int(n))
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}
