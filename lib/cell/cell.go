package cell

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
)

// LatestTimestamp marks a cell whose timestamp is assigned by the host at commit time.
const LatestTimestamp int64 = math.MaxInt64

// Cell is a single versioned entry of a row.
type Cell struct {
	Row       []byte
	Family    []byte
	Qualifier []byte
	Timestamp int64
	Value     []byte
}

// Clone returns a deep copy of the cell.
func (c Cell) Clone() Cell {
	return Cell{
		Row:       bytes.Clone(c.Row),
		Family:    bytes.Clone(c.Family),
		Qualifier: bytes.Clone(c.Qualifier),
		Timestamp: c.Timestamp,
		Value:     bytes.Clone(c.Value),
	}
}

// SameColumn reports whether both cells address the same row and column.
func (c Cell) SameColumn(o Cell) bool {
	return bytes.Equal(c.Row, o.Row) &&
		bytes.Equal(c.Family, o.Family) &&
		bytes.Equal(c.Qualifier, o.Qualifier)
}

func (c Cell) String() string {
	ts := strconv.FormatInt(c.Timestamp, 10)
	if c.Timestamp == LatestTimestamp {
		ts = "latest"
	}
	return fmt.Sprintf("%q/%s:%s/%s/vlen=%d", c.Row, c.Family, c.Qualifier, ts, len(c.Value))
}

// --------------------------------------------------------------------------
// Value helpers
// --------------------------------------------------------------------------

// Int32 returns the 4 byte big-endian representation of v.
func Int32(v int32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, uint32(v))
	return b
}

// ToInt32 decodes a 4 byte big-endian value.
func ToInt32(b []byte) (int32, error) {
	if len(b) != 4 {
		return 0, fmt.Errorf("expected 4 bytes, got %d", len(b))
	}
	return int32(binary.BigEndian.Uint32(b)), nil
}

// Int64 returns the 8 byte big-endian representation of v.
func Int64(v int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(v))
	return b
}

// ToInt64 decodes an 8 byte big-endian value.
func ToInt64(b []byte) (int64, error) {
	if len(b) != 8 {
		return 0, fmt.Errorf("expected 8 bytes, got %d", len(b))
	}
	return int64(binary.BigEndian.Uint64(b)), nil
}
