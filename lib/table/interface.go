package table

import (
	"context"
	"fmt"

	"github.com/ValentinKolb/dHook/lib/cell"
)

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// Factory opens a handle to the table with the given name.
// This is the only way a hook reaches a table; handles must be closed after use.
type Factory func(ctx context.Context, name string) (Handle, error)

// Handle is the write interface of a table.
// All methods return a *Error (nil on success) for errors reported by the table itself.
type Handle interface {
	// Put writes a single cell. A cell with cell.LatestTimestamp is stamped by the table.
	// Writing an existing (row, family, qualifier, timestamp) overwrites that version.
	Put(ctx context.Context, c cell.Cell) (err error)
	// PutBatch writes all cells. Cells may address different rows.
	PutBatch(ctx context.Context, cells []cell.Cell) (err error)
	// IncrementColumn atomically adds delta to the 8 byte counter in (row, family, qualifier)
	// and returns the new value. A missing counter starts at 0.
	IncrementColumn(ctx context.Context, row, family, qualifier []byte, delta int64) (value int64, err error)
	// Close releases the handle. The handle must not be used afterward.
	Close() (err error)
}

// Reader is the read interface of a table.
type Reader interface {
	// Get returns the latest version of a single column.
	Get(ctx context.Context, row, family, qualifier []byte) (c cell.Cell, found bool, err error)
	// Row returns the latest version of every column of a row, sorted by family and qualifier.
	Row(ctx context.Context, row []byte) (cells []cell.Cell, err error)
}

// ReadWriter combines Handle and Reader.
type ReadWriter interface {
	Handle
	Reader
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is a custom error type that wraps a return code (of type RetCode)
// and an error message.
type Error struct {
	Code RetCode // The return code
	Msg  string  // The error message.
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("TableError (code %s): %s", e.Code, e.Msg)
}

// Is reports whether target is a *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// NewError creates a new table error with the given code and message.
func NewError(code RetCode, msg string) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
	}
}

// Errorf creates a new table error with a formatted message.
func Errorf(code RetCode, format string, args ...any) *Error {
	return NewError(code, fmt.Sprintf(format, args...))
}

// --------------------------------------------------------------------------
// Return Codes
// --------------------------------------------------------------------------

type RetCode uint64

const (
	RetCSuccess              RetCode = iota // 0: Command executed successfully.
	RetCInternalError                       // 1: Command failed due to an internal error.
	RetCUnsupportedOperation                // 2: Operation is not supported by the table.
	RetCInvalidOperation                    // 3: Invalid operation.
	RetCTableNotFound                       // 4: The table does not exist.
	RetCNoSuchFamily                        // 5: The column family does not exist.
	RetCClosed                              // 6: The handle was closed.
)

func (c RetCode) String() string {
	switch c {
	case RetCSuccess:
		return "Success"
	case RetCInternalError:
		return "InternalError"
	case RetCUnsupportedOperation:
		return "UnsupportedOperation"
	case RetCInvalidOperation:
		return "InvalidOperation"
	case RetCTableNotFound:
		return "TableNotFound"
	case RetCNoSuchFamily:
		return "NoSuchFamily"
	case RetCClosed:
		return "Closed"
	default:
		return "Unknown"
	}
}

// Common error values usable with errors.Is.
var (
	ErrTableNotFound = NewError(RetCTableNotFound, "table not found")
	ErrNoSuchFamily  = NewError(RetCNoSuchFamily, "no such column family")
	ErrClosed        = NewError(RetCClosed, "handle closed")
	ErrInvalid       = NewError(RetCInvalidOperation, "invalid operation")
)
