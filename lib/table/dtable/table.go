package dtable

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/dHook/lib/cell"
	"github.com/ValentinKolb/dHook/lib/table"
	"github.com/ValentinKolb/dHook/lib/table/dtable/internal"
	"github.com/ValentinKolb/dHook/lib/table/mtable"
	"github.com/lni/dragonboat/v4"
	"github.com/lni/dragonboat/v4/client"
	"github.com/lni/dragonboat/v4/logger"
)

var (
	retries = 5
	log     = logger.GetLogger("table")
)

// Table is a handle to a table replicated by a raft shard.
// It encapsulates a Dragonboat NodeHost which is used to communicate with the state machine.
type Table struct {
	nh      *dragonboat.NodeHost
	shardID uint64
	cs      *client.Session
	timeout time.Duration
	closed  atomic.Bool
}

// New creates a handle to the table replicated by shardID. Writes are linearizable
// across all replicas of the shard.
func New(nh *dragonboat.NodeHost, shardID uint64, timeout time.Duration) *Table {
	return &Table{
		nh:      nh,
		shardID: shardID,
		cs:      nh.GetNoOPSession(shardID),
		timeout: timeout,
	}
}

// Factory returns a table.Factory opening a new handle on every call.
// The name is resolved to a shard by shardOf.
func Factory(nh *dragonboat.NodeHost, timeout time.Duration, shardOf func(name string) (uint64, bool)) table.Factory {
	return func(ctx context.Context, name string) (table.Handle, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		shardID, ok := shardOf(name)
		if !ok {
			return nil, table.Errorf(table.RetCTableNotFound, "table %s not found", name)
		}
		return New(nh, shardID, timeout), nil
	}
}

// --------------------------------------------------------------------------
// Internal write and read operations (used by interface methods)
// --------------------------------------------------------------------------

// check returns an error if the handle is closed or the context is done.
func (t *Table) check(ctx context.Context) error {
	if t.closed.Load() {
		return table.ErrClosed
	}
	return ctx.Err()
}

// write serializes a Command and sends it via SyncPropose.
// It returns the result data on success or a *table.Error.
func (t *Table) write(ctx context.Context, cmd internal.Command) ([]byte, error) {
	if err := t.check(ctx); err != nil {
		return nil, err
	}

	data := cmd.Serialize()
	for i := 0; i < retries; i++ {
		proposeCtx, cancel := context.WithTimeout(ctx, t.timeout)
		res, err := t.nh.SyncPropose(proposeCtx, t.cs, data)
		cancel()

		// Check for system busy errors
		if errors.Is(err, dragonboat.ErrSystemBusy) {
			log.Infof("SyncPropose: System busy, retrying (%d/%d)...", i+1, retries)
			time.Sleep(t.timeout / 10)
			continue
		}

		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, table.NewError(table.RetCInternalError, err.Error())
		}
		if res.Value != uint64(table.RetCSuccess) {
			return nil, table.NewError(table.RetCode(res.Value), string(res.Data))
		}
		return res.Data, nil
	}
	return nil, table.NewError(table.RetCInternalError, "timeout")
}

// read is a generic helper function that queries the state machine
// and attempts to convert the response into the expected type R.
//
// This function uses SyncRead by default. If linearizability is not required,
// stale can be set to use the faster StaleRead.
//
// If the read fails due to a system busy error, the function retries up to 5 times.
func read[R any](ctx context.Context, t *Table, q internal.Query, stale bool) (R, error) {
	var zero R
	if err := t.check(ctx); err != nil {
		return zero, err
	}

	for i := 0; i < retries; i++ {
		var res interface{}
		var err error

		if stale {
			res, err = t.nh.StaleRead(t.shardID, q)
		} else {
			readCtx, cancel := context.WithTimeout(ctx, t.timeout)
			res, err = t.nh.SyncRead(readCtx, t.shardID, q)
			cancel()
		}

		// Check for system busy errors
		if errors.Is(err, dragonboat.ErrSystemBusy) {
			log.Infof("SyncRead: System busy, retrying (%d/%d)...", i+1, retries)
			time.Sleep(t.timeout / 10)
			continue
		}

		if err != nil {
			var tErr *table.Error
			if errors.As(err, &tErr) {
				return zero, tErr
			}
			return zero, table.NewError(table.RetCInternalError, err.Error())
		}

		// The state machine is expected to return the response in the expected type R.
		casted, ok := res.(R)
		if !ok {
			return zero, table.NewError(table.RetCInternalError,
				fmt.Sprintf("unexpected type: received %T, expected %T", res, zero))
		}
		return casted, nil
	}
	return zero, table.NewError(table.RetCInternalError, "timeout")
}

// now is the proposer clock used to stamp cells with cell.LatestTimestamp.
func now() int64 {
	return time.Now().UnixMilli()
}

// --------------------------------------------------------------------------
// Interface Methods (docu see table/interface.go)
// --------------------------------------------------------------------------

func (t *Table) Put(ctx context.Context, c cell.Cell) error {
	return t.PutBatch(ctx, []cell.Cell{c})
}

func (t *Table) PutBatch(ctx context.Context, cells []cell.Cell) error {
	if len(cells) == 0 {
		return t.check(ctx)
	}
	_, err := t.write(ctx, internal.Command{
		Type:  internal.CommandTPut,
		Now:   now(),
		Cells: cells,
	})
	return err
}

func (t *Table) IncrementColumn(ctx context.Context, row, family, qualifier []byte, delta int64) (int64, error) {
	data, err := t.write(ctx, internal.Command{
		Type:  internal.CommandTIncrement,
		Now:   now(),
		Delta: delta,
		Cells: []cell.Cell{{Row: row, Family: family, Qualifier: qualifier}},
	})
	if err != nil {
		return 0, err
	}
	value, err := cell.ToInt64(data)
	if err != nil {
		return 0, table.Errorf(table.RetCInternalError, "invalid increment result: %v", err)
	}
	return value, nil
}

func (t *Table) Get(ctx context.Context, row, family, qualifier []byte) (cell.Cell, bool, error) {
	res, err := read[internal.QueryResult](ctx, t, internal.Query{
		Type:      internal.QueryTGet,
		Row:       row,
		Family:    family,
		Qualifier: qualifier,
	}, false)
	if err != nil {
		return cell.Cell{}, false, err
	}
	return res.Cell, res.Found, nil
}

func (t *Table) Row(ctx context.Context, row []byte) ([]cell.Cell, error) {
	return read[[]cell.Cell](ctx, t, internal.Query{
		Type: internal.QueryTRow,
		Row:  row,
	}, false)
}

func (t *Table) Close() error {
	t.closed.Store(true)
	return nil
}

// Info returns statistics about the table.
func (t *Table) Info(ctx context.Context) (mtable.TableInfo, error) {
	return read[mtable.TableInfo](
		ctx,
		t,
		internal.Query{
			Type: internal.QueryTInfo,
		},
		true, // Note: allow for stale reads
	)
}
