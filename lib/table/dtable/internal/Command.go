package internal

import (
	"encoding/binary"
	"fmt"

	"github.com/ValentinKolb/dHook/lib/cell"
)

// CommandType defines the possible operations for the state machine.
type CommandType uint8

const (
	CommandTPut       CommandType = iota // Write a batch of cells.
	CommandTIncrement                    // Atomically increment a counter.
)

func (ct CommandType) String() string {
	switch ct {
	case CommandTPut:
		return "Put"
	case CommandTIncrement:
		return "Increment"
	default:
		return fmt.Sprintf("Unknown(%d)", ct)
	}
}

const (
	headerSize  = 1 + 8 + 8 + 4     // Type + Now + Delta + CellCount
	cellMinSize = 4 + 4 + 4 + 8 + 4 // RowLen + FamLen + QualLen + Timestamp + ValueLen
)

// Command represents a command to be executed by the state machine (a single entry in the raft log)
type Command struct {
	Type  CommandType
	Now   int64 // proposer clock in ms
	Delta int64
	Cells []cell.Cell
}

// SizeBytes returns the exact number of bytes needed to serialize this command
func (command *Command) SizeBytes() int {
	size := headerSize
	for _, c := range command.Cells {
		size += cellMinSize + len(c.Row) + len(c.Family) + len(c.Qualifier) + len(c.Value)
	}
	return size
}

// Serialize serializes a command into a byte array (see package docs for the layout).
func (command *Command) Serialize() []byte {
	result := make([]byte, command.SizeBytes())

	result[0] = byte(command.Type)
	binary.BigEndian.PutUint64(result[1:9], uint64(command.Now))
	binary.BigEndian.PutUint64(result[9:17], uint64(command.Delta))
	binary.BigEndian.PutUint32(result[17:21], uint32(len(command.Cells)))

	offset := headerSize
	putBytes := func(b []byte) {
		binary.BigEndian.PutUint32(result[offset:offset+4], uint32(len(b)))
		offset += 4
		offset += copy(result[offset:], b)
	}

	for _, c := range command.Cells {
		putBytes(c.Row)
		putBytes(c.Family)
		putBytes(c.Qualifier)
		binary.BigEndian.PutUint64(result[offset:offset+8], uint64(c.Timestamp))
		offset += 8
		putBytes(c.Value)
	}

	return result
}

// Deserialize extracts all Command fields from a byte array.
func (command *Command) Deserialize(data []byte) error {
	if len(data) < headerSize {
		return fmt.Errorf("data too short for command")
	}

	command.Type = CommandType(data[0])
	command.Now = int64(binary.BigEndian.Uint64(data[1:9]))
	command.Delta = int64(binary.BigEndian.Uint64(data[9:17]))
	count := binary.BigEndian.Uint32(data[17:21])

	// every cell needs at least cellMinSize bytes
	if uint64(count)*cellMinSize > uint64(len(data)-headerSize) {
		return fmt.Errorf("data too short for %d cells", count)
	}

	offset := headerSize
	nextBytes := func(field string) ([]byte, error) {
		if len(data) < offset+4 {
			return nil, fmt.Errorf("data too short for %s length", field)
		}
		n := int(binary.BigEndian.Uint32(data[offset : offset+4]))
		offset += 4
		if len(data)-offset < n {
			return nil, fmt.Errorf("data too short for %s of length %d", field, n)
		}
		b := make([]byte, n)
		copy(b, data[offset:offset+n])
		offset += n
		return b, nil
	}

	command.Cells = make([]cell.Cell, 0, count)
	for i := uint32(0); i < count; i++ {
		var c cell.Cell
		var err error
		if c.Row, err = nextBytes("row"); err != nil {
			return err
		}
		if c.Family, err = nextBytes("family"); err != nil {
			return err
		}
		if c.Qualifier, err = nextBytes("qualifier"); err != nil {
			return err
		}
		if len(data) < offset+8 {
			return fmt.Errorf("data too short for timestamp")
		}
		c.Timestamp = int64(binary.BigEndian.Uint64(data[offset : offset+8]))
		offset += 8
		if c.Value, err = nextBytes("value"); err != nil {
			return err
		}
		command.Cells = append(command.Cells, c)
	}

	if offset != len(data) {
		return fmt.Errorf("%d trailing bytes after command", len(data)-offset)
	}
	return nil
}
