package serializer

import (
	"encoding/binary"
	"fmt"

	"github.com/ValentinKolb/dHook/lib/cell"
	"github.com/ValentinKolb/dHook/rpc/common"
)

// NewBinarySerializer creates a new serializer using a custom binary format
// optimized for speed and efficiency
func NewBinarySerializer() IRPCSerializer {
	return &binarySerializerImpl{}
}

// binarySerializerImpl implements IRPCSerializer using a custom binary format.
//
// Layout (big endian): type(1) | flags(2) | present fields in flag order.
// Byte fields are length prefixed (u32), cells are encoded as a u32 count
// followed by row, family, qualifier (u32 prefixed), timestamp (i64) and
// value (u32 prefixed) per cell.
type binarySerializerImpl struct {
}

// Bit flags to indicate which optional fields are present
const (
	hasTable     uint16 = 1 << 0
	hasRow       uint16 = 1 << 1
	hasFamily    uint16 = 1 << 2
	hasQualifier uint16 = 1 << 3
	hasDelta     uint16 = 1 << 4
	hasCells     uint16 = 1 << 5
	hasCounter   uint16 = 1 << 6
	hasOk        uint16 = 1 << 7
	hasCode      uint16 = 1 << 8
	hasPartial   uint16 = 1 << 9
	hasErr       uint16 = 1 << 10
	hasMeta      uint16 = 1 << 11
)

const headerSize = 3

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

func (b binarySerializerImpl) Serialize(msg common.Message) ([]byte, error) {
	// Calculate total size needed
	result := make([]byte, b.sizeBytes(msg))

	// Write message type
	result[0] = byte(msg.MsgType)

	var flags uint16
	pos := headerSize

	if msg.Table != "" {
		flags |= hasTable
		pos = putBytes(result, pos, []byte(msg.Table))
	}
	if msg.Row != nil {
		flags |= hasRow
		pos = putBytes(result, pos, msg.Row)
	}
	if msg.Family != nil {
		flags |= hasFamily
		pos = putBytes(result, pos, msg.Family)
	}
	if msg.Qualifier != nil {
		flags |= hasQualifier
		pos = putBytes(result, pos, msg.Qualifier)
	}
	if msg.Delta != 0 {
		flags |= hasDelta
		binary.BigEndian.PutUint64(result[pos:pos+8], uint64(msg.Delta))
		pos += 8
	}
	if msg.Cells != nil {
		flags |= hasCells
		binary.BigEndian.PutUint32(result[pos:pos+4], uint32(len(msg.Cells)))
		pos += 4
		for _, c := range msg.Cells {
			pos = putBytes(result, pos, c.Row)
			pos = putBytes(result, pos, c.Family)
			pos = putBytes(result, pos, c.Qualifier)
			binary.BigEndian.PutUint64(result[pos:pos+8], uint64(c.Timestamp))
			pos += 8
			pos = putBytes(result, pos, c.Value)
		}
	}
	if msg.Counter != 0 {
		flags |= hasCounter
		binary.BigEndian.PutUint64(result[pos:pos+8], uint64(msg.Counter))
		pos += 8
	}
	if msg.Ok {
		flags |= hasOk
		result[pos] = 1
		pos += 1
	}
	if msg.Code != 0 {
		flags |= hasCode
		binary.BigEndian.PutUint64(result[pos:pos+8], msg.Code)
		pos += 8
	}
	if msg.Partial {
		flags |= hasPartial
		result[pos] = 1
		pos += 1
	}
	if msg.Err != "" {
		flags |= hasErr
		pos = putBytes(result, pos, []byte(msg.Err))
	}
	if msg.Meta != nil {
		flags |= hasMeta
		putBytes(result, pos, msg.Meta)
	}

	// Set flags after knowing which fields are present
	binary.BigEndian.PutUint16(result[1:3], flags)

	return result, nil
}

func (b binarySerializerImpl) Deserialize(data []byte, msg *common.Message) error {
	// Check minimum size (MsgType + flags)
	if len(data) < headerSize {
		return fmt.Errorf("data too short for message header")
	}

	*msg = common.Message{MsgType: common.MessageType(data[0])}
	flags := binary.BigEndian.Uint16(data[1:3])
	r := &reader{data: data, pos: headerSize}

	if flags&hasTable != 0 {
		msg.Table = string(r.bytes("table"))
	}
	if flags&hasRow != 0 {
		msg.Row = r.bytes("row")
	}
	if flags&hasFamily != 0 {
		msg.Family = r.bytes("family")
	}
	if flags&hasQualifier != 0 {
		msg.Qualifier = r.bytes("qualifier")
	}
	if flags&hasDelta != 0 {
		msg.Delta = int64(r.uint64("delta"))
	}
	if flags&hasCells != 0 {
		n := r.uint32("cell count")
		// every cell needs at least 24 bytes, reject counts the data cannot hold
		if r.err == nil && uint64(n)*24 > uint64(len(data)-r.pos) {
			r.err = fmt.Errorf("data too short for %d cells", n)
		}
		if r.err == nil {
			msg.Cells = make([]cell.Cell, n)
			for i := range msg.Cells {
				c := &msg.Cells[i]
				c.Row = r.optBytes("cell row")
				c.Family = r.optBytes("cell family")
				c.Qualifier = r.optBytes("cell qualifier")
				c.Timestamp = int64(r.uint64("cell timestamp"))
				c.Value = r.optBytes("cell value")
			}
		}
	}
	if flags&hasCounter != 0 {
		msg.Counter = int64(r.uint64("counter"))
	}
	if flags&hasOk != 0 {
		msg.Ok = r.byte("Ok flag") != 0
	}
	if flags&hasCode != 0 {
		msg.Code = r.uint64("code")
	}
	if flags&hasPartial != 0 {
		msg.Partial = r.byte("Partial flag") != 0
	}
	if flags&hasErr != 0 {
		msg.Err = string(r.bytes("error"))
	}
	if flags&hasMeta != 0 {
		msg.Meta = r.bytes("meta")
	}

	return r.err
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// sizeBytes calculates the total size needed for serialization
func (b binarySerializerImpl) sizeBytes(msg common.Message) int {
	size := headerSize

	if msg.Table != "" {
		size += 4 + len(msg.Table)
	}
	if msg.Row != nil {
		size += 4 + len(msg.Row)
	}
	if msg.Family != nil {
		size += 4 + len(msg.Family)
	}
	if msg.Qualifier != nil {
		size += 4 + len(msg.Qualifier)
	}
	if msg.Delta != 0 {
		size += 8
	}
	if msg.Cells != nil {
		size += 4
		for _, c := range msg.Cells {
			size += 4 + len(c.Row) + 4 + len(c.Family) + 4 + len(c.Qualifier) + 8 + 4 + len(c.Value)
		}
	}
	if msg.Counter != 0 {
		size += 8
	}
	if msg.Ok {
		size += 1
	}
	if msg.Code != 0 {
		size += 8
	}
	if msg.Partial {
		size += 1
	}
	if msg.Err != "" {
		size += 4 + len(msg.Err)
	}
	if msg.Meta != nil {
		size += 4 + len(msg.Meta)
	}

	return size
}

// putBytes writes a length prefixed byte slice at pos and returns the new position
func putBytes(dst []byte, pos int, b []byte) int {
	binary.BigEndian.PutUint32(dst[pos:pos+4], uint32(len(b)))
	pos += 4
	return pos + copy(dst[pos:], b)
}

// reader decodes fields sequentially, the first error stops all further reads
type reader struct {
	data []byte
	pos  int
	err  error
}

func (r *reader) need(n int, field string) bool {
	if r.err != nil {
		return false
	}
	if n < 0 || r.pos+n > len(r.data) {
		r.err = fmt.Errorf("data too short for %s", field)
		return false
	}
	return true
}

func (r *reader) byte(field string) byte {
	if !r.need(1, field) {
		return 0
	}
	v := r.data[r.pos]
	r.pos += 1
	return v
}

func (r *reader) uint32(field string) uint32 {
	if !r.need(4, field) {
		return 0
	}
	v := binary.BigEndian.Uint32(r.data[r.pos : r.pos+4])
	r.pos += 4
	return v
}

func (r *reader) uint64(field string) uint64 {
	if !r.need(8, field) {
		return 0
	}
	v := binary.BigEndian.Uint64(r.data[r.pos : r.pos+8])
	r.pos += 8
	return v
}

// bytes reads a length prefixed field, a present field is never nil
func (r *reader) bytes(field string) []byte {
	n := r.uint32(field + " length")
	if !r.need(int(n), field+" data") {
		return nil
	}
	v := make([]byte, n)
	copy(v, r.data[r.pos:r.pos+int(n)])
	r.pos += int(n)
	return v
}

// optBytes reads a length prefixed cell field, empty fields decode as nil
func (r *reader) optBytes(field string) []byte {
	v := r.bytes(field)
	if len(v) == 0 {
		return nil
	}
	return v
}
