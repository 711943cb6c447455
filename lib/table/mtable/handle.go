package mtable

import (
	"context"
	"sync/atomic"

	"github.com/ValentinKolb/dHook/lib/cell"
	"github.com/ValentinKolb/dHook/lib/table"
)

// handle is a table.ReadWriter bound to a local table.
type handle struct {
	t      *Table
	closed atomic.Bool
}

// check returns an error if the handle is closed or the context is done.
func (h *handle) check(ctx context.Context) error {
	if h.closed.Load() {
		return table.ErrClosed
	}
	return ctx.Err()
}

// --------------------------------------------------------------------------
// Interface Methods (docu see table/interface.go)
// --------------------------------------------------------------------------

func (h *handle) Put(ctx context.Context, c cell.Cell) error {
	if err := h.check(ctx); err != nil {
		return err
	}
	return h.t.Apply([]cell.Cell{c}, nowMillis())
}

func (h *handle) PutBatch(ctx context.Context, cells []cell.Cell) error {
	if err := h.check(ctx); err != nil {
		return err
	}
	if len(cells) == 0 {
		return nil
	}
	return h.t.Apply(cells, nowMillis())
}

func (h *handle) IncrementColumn(ctx context.Context, row, family, qualifier []byte, delta int64) (int64, error) {
	if err := h.check(ctx); err != nil {
		return 0, err
	}
	return h.t.Increment(row, family, qualifier, delta, nowMillis())
}

func (h *handle) Get(ctx context.Context, row, family, qualifier []byte) (cell.Cell, bool, error) {
	if err := h.check(ctx); err != nil {
		return cell.Cell{}, false, err
	}
	c, ok := h.t.Get(row, family, qualifier)
	return c, ok, nil
}

func (h *handle) Row(ctx context.Context, row []byte) ([]cell.Cell, error) {
	if err := h.check(ctx); err != nil {
		return nil, err
	}
	return h.t.Row(row), nil
}

func (h *handle) Close() error {
	h.closed.Store(true)
	return nil
}
