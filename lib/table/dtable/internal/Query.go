package internal

import "github.com/ValentinKolb/dHook/lib/cell"

// QueryType defines the possible queries for the state machine.
type QueryType uint8

const (
	QueryTGet  QueryType = iota // Retrieve the latest version of a column.
	QueryTRow                   // Retrieve the latest version of every column of a row.
	QueryTInfo                  // Retrieve metadata about the table underlying the machine.
)

func (q QueryType) String() string {
	switch q {
	case QueryTGet:
		return "Get"
	case QueryTRow:
		return "Row"
	case QueryTInfo:
		return "Info"
	default:
		return "Unknown"
	}
}

// Query defines the structure for lookup requests (read-only) sent via SyncRead or StaleRead
type Query struct {
	Type      QueryType // The type of Query to perform.
	Row       []byte    // The row for the Query (empty for QueryTInfo).
	Family    []byte
	Qualifier []byte
}

// QueryResult is the result of a QueryTGet operation.
// All other query results are predefined types ([]cell.Cell, mtable.TableInfo).
type QueryResult struct {
	Found bool
	Cell  cell.Cell
}
