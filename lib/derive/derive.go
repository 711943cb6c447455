package derive

import (
	"errors"
	"fmt"

	"github.com/ValentinKolb/dHook/lib/cell"
)

// ErrValueShape is returned if a source cell value cannot be interpreted by a deriver.
// It usually means the target specification points at the wrong column.
var ErrValueShape = errors.New("derive: unexpected value shape")

// Kind distinguishes put requests from counter increments.
type Kind uint8

const (
	KindPut       Kind = iota // versioned put of a single cell
	KindIncrement             // atomic counter increment
)

func (k Kind) String() string {
	switch k {
	case KindPut:
		return "Put"
	case KindIncrement:
		return "Increment"
	default:
		return fmt.Sprintf("Unknown(%d)", k)
	}
}

// WriteRequest is a single write a deriver asks the dispatcher to issue.
type WriteRequest struct {
	Kind      Kind
	Table     string
	Row       []byte
	Family    []byte
	Qualifier []byte
	Value     []byte // KindPut only
	Timestamp int64  // KindPut only, cell.LatestTimestamp lets the table assign one
	Delta     int64  // KindIncrement only
}

// Cell returns the cell a KindPut request writes.
func (r WriteRequest) Cell() cell.Cell {
	return cell.Cell{
		Row:       r.Row,
		Family:    r.Family,
		Qualifier: r.Qualifier,
		Timestamp: r.Timestamp,
		Value:     r.Value,
	}
}

func (r WriteRequest) String() string {
	if r.Kind == KindIncrement {
		return fmt.Sprintf("%s{table=%s, row=%q, column=%s:%s, delta=%d}", r.Kind, r.Table, r.Row, r.Family, r.Qualifier, r.Delta)
	}
	return fmt.Sprintf("%s{table=%s, row=%q, family=%s, qlen=%d, ts=%d}", r.Kind, r.Table, r.Row, r.Family, len(r.Qualifier), r.Timestamp)
}

// Deriver turns a matched source cell into write requests.
//
// Thread-safety: implementations must be safe for concurrent use.
type Deriver interface {
	// Derive returns the write requests for a cell committed to sourceTable.
	// An error aborts the derivation of the whole mutation.
	Derive(sourceTable string, c cell.Cell) ([]WriteRequest, error)
}

// DeriverFunc adapts a function to the Deriver interface.
type DeriverFunc func(sourceTable string, c cell.Cell) ([]WriteRequest, error)

// Derive calls f(sourceTable, c).
func (f DeriverFunc) Derive(sourceTable string, c cell.Cell) ([]WriteRequest, error) {
	return f(sourceTable, c)
}
