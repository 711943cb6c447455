package dtable

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/ValentinKolb/dHook/lib/cell"
	"github.com/ValentinKolb/dHook/lib/table"
	"github.com/ValentinKolb/dHook/lib/table/dtable/internal"
	"github.com/ValentinKolb/dHook/lib/table/mtable"
	sm "github.com/lni/dragonboat/v4/statemachine"
)

// --------------------------------------------------------------------------
// State Machine Implementation
// --------------------------------------------------------------------------

// TableStateMachine is a state machine implementation for Dragonboat RAFT.
// Every replica holds a full copy of the table in an mtable.Table.
type TableStateMachine struct {
	replicaID uint64
	shardID   uint64
	table     *mtable.Table // the actual data storage
}

// CreateStateMachineFactory returns a function that can be used by dragonboat to create a new state machine for a node host.
// Every replica of the shard hosts the table name with the given families.
func CreateStateMachineFactory(name string, opts *mtable.Options, families ...string) func(shardID uint64, replicaID uint64) sm.IConcurrentStateMachine {
	return func(shardID uint64, replicaID uint64) sm.IConcurrentStateMachine {
		return &TableStateMachine{
			replicaID: replicaID,
			shardID:   shardID,
			table:     mtable.NewTable(name, opts, families...),
		}
	}
}

// resultOf converts an error returned by the table into a raft result.
func resultOf(err error) sm.Result {
	var tErr *table.Error
	if errors.As(err, &tErr) {
		return sm.Result{Value: uint64(tErr.Code), Data: []byte(tErr.Msg)}
	}
	return sm.Result{Value: uint64(table.RetCInternalError), Data: []byte(err.Error())}
}

// Lookup handles read-only queries by mapping each Query operation to the corresponding table method.
func (fsm *TableStateMachine) Lookup(itf interface{}) (interface{}, error) {

	// try to parse Query into Query struct
	q, ok := itf.(internal.Query)
	if !ok {
		return nil, table.Errorf(table.RetCInternalError, "invalid Query type: %T", itf)
	}

	switch q.Type {
	case internal.QueryTGet:
		c, found := fsm.table.Get(q.Row, q.Family, q.Qualifier)
		return internal.QueryResult{
			Found: found,
			Cell:  c,
		}, nil
	case internal.QueryTRow:
		return fsm.table.Row(q.Row), nil
	case internal.QueryTInfo:
		return fsm.table.Info(), nil
	default:
		return nil, table.Errorf(table.RetCInvalidOperation, "unknown Query operation: %d", q.Type)
	}
}

// Update handles write commands on the table.
// All write operations are serialized into []byte and are accessible via the entries struct.
// Timestamps are taken from the command so every replica applies the same cells.
func (fsm *TableStateMachine) Update(entries []sm.Entry) ([]sm.Entry, error) {

	// Nothing to do
	if len(entries) == 0 {
		return entries, nil
	}

	// Stats
	start := time.Now()

	for idx, e := range entries {
		if len(e.Cmd) == 0 {
			entries[idx].Result = sm.Result{Value: uint64(table.RetCInvalidOperation), Data: []byte("empty command ignored")}
			continue
		}

		// Deserialize the command
		cmd := internal.Command{}
		if err := cmd.Deserialize(e.Cmd); err != nil {
			entries[idx].Result = sm.Result{Value: uint64(table.RetCInternalError), Data: []byte(fmt.Sprintf("failed to deserialize command: %v", err))}
			continue
		}

		switch cmd.Type {
		case internal.CommandTPut:
			if err := fsm.table.Apply(cmd.Cells, cmd.Now); err != nil {
				entries[idx].Result = resultOf(err)
				continue
			}
			entries[idx].Result = sm.Result{
				Value: uint64(table.RetCSuccess),
				Data:  []byte(fmt.Sprintf("put: cells=%d", len(cmd.Cells))),
			}
		case internal.CommandTIncrement:
			if len(cmd.Cells) != 1 {
				entries[idx].Result = sm.Result{
					Value: uint64(table.RetCInvalidOperation),
					Data:  []byte(fmt.Sprintf("increment expects 1 cell, got %d", len(cmd.Cells))),
				}
				continue
			}
			c := cmd.Cells[0]
			value, err := fsm.table.Increment(c.Row, c.Family, c.Qualifier, cmd.Delta, cmd.Now)
			if err != nil {
				entries[idx].Result = resultOf(err)
				continue
			}
			entries[idx].Result = sm.Result{
				Value: uint64(table.RetCSuccess),
				Data:  cell.Int64(value),
			}
		default:
			entries[idx].Result = sm.Result{
				Value: uint64(table.RetCInvalidOperation),
				Data:  []byte(fmt.Sprintf("unknown Command operation: %s", cmd.Type)),
			}
		}
	}

	// Log if the update took long
	if elapsed := time.Since(start); elapsed > time.Millisecond {
		log.Infof("State machine took long to update. Batch updated %d entries, took %.2fms:", len(entries), float64(elapsed)/float64(time.Millisecond))
	}
	return entries, nil
}

// PrepareSnapshot is not used. We don't need to prepare anything since we use fuzzy snapshotting
func (fsm *TableStateMachine) PrepareSnapshot() (interface{}, error) {
	return nil, nil
}

// SaveSnapshot saves a fuzzy table snapshot to the writer
func (fsm *TableStateMachine) SaveSnapshot(_ interface{}, writer io.Writer, _ sm.ISnapshotFileCollection, _ <-chan struct{}) error {
	return fsm.table.Save(writer)
}

// RecoverFromSnapshot replaces the table content with the snapshot.
func (fsm *TableStateMachine) RecoverFromSnapshot(r io.Reader, _ []sm.SnapshotFile, _ <-chan struct{}) error {
	return fsm.table.Load(r)
}

// Close performs any necessary cleanup.
func (fsm *TableStateMachine) Close() error {
	return nil
}
