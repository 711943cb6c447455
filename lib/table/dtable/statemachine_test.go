package dtable

import (
	"bytes"
	"testing"

	"github.com/ValentinKolb/dHook/lib/cell"
	"github.com/ValentinKolb/dHook/lib/table"
	"github.com/ValentinKolb/dHook/lib/table/dtable/internal"
	"github.com/ValentinKolb/dHook/lib/table/mtable"
	sm "github.com/lni/dragonboat/v4/statemachine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMachine(t *testing.T) *TableStateMachine {
	t.Helper()
	fsm, ok := CreateStateMachineFactory("test", nil, "cf")(1, 1).(*TableStateMachine)
	require.True(t, ok)
	return fsm
}

func apply(t *testing.T, fsm *TableStateMachine, cmds ...internal.Command) []sm.Entry {
	t.Helper()
	entries := make([]sm.Entry, len(cmds))
	for i, cmd := range cmds {
		entries[i] = sm.Entry{Index: uint64(i + 1), Cmd: cmd.Serialize()}
	}
	out, err := fsm.Update(entries)
	require.NoError(t, err)
	return out
}

func TestUpdatePutStampsWithProposerClock(t *testing.T) {
	fsm := newTestMachine(t)

	out := apply(t, fsm, internal.Command{
		Type: internal.CommandTPut,
		Now:  1234,
		Cells: []cell.Cell{
			{Row: []byte("r"), Family: []byte("cf"), Qualifier: []byte("q"), Timestamp: cell.LatestTimestamp, Value: []byte("v")},
		},
	})
	assert.Equal(t, uint64(table.RetCSuccess), out[0].Result.Value)

	res, err := fsm.Lookup(internal.Query{Type: internal.QueryTGet, Row: []byte("r"), Family: []byte("cf"), Qualifier: []byte("q")})
	require.NoError(t, err)
	qr := res.(internal.QueryResult)
	require.True(t, qr.Found)
	assert.Equal(t, int64(1234), qr.Cell.Timestamp)
	assert.Equal(t, []byte("v"), qr.Cell.Value)
}

func TestUpdateIncrement(t *testing.T) {
	fsm := newTestMachine(t)

	inc := internal.Command{
		Type:  internal.CommandTIncrement,
		Now:   1,
		Delta: 2,
		Cells: []cell.Cell{{Row: []byte("word"), Family: []byte("cf")}},
	}
	out := apply(t, fsm, inc, inc, inc)
	for _, e := range out {
		assert.Equal(t, uint64(table.RetCSuccess), e.Result.Value)
	}
	assert.Equal(t, cell.Int64(6), out[2].Result.Data)

	res, err := fsm.Lookup(internal.Query{Type: internal.QueryTRow, Row: []byte("word")})
	require.NoError(t, err)
	row := res.([]cell.Cell)
	require.Len(t, row, 1)
	assert.Equal(t, cell.Int64(6), row[0].Value)
}

func TestUpdateErrors(t *testing.T) {
	fsm := newTestMachine(t)

	out := apply(t, fsm,
		internal.Command{Type: internal.CommandTPut, Cells: []cell.Cell{{Row: []byte("r"), Family: []byte("bogus")}}},
		internal.Command{Type: internal.CommandTIncrement, Cells: nil},
		internal.Command{Type: internal.CommandType(42)},
	)
	assert.Equal(t, uint64(table.RetCNoSuchFamily), out[0].Result.Value)
	assert.Equal(t, uint64(table.RetCInvalidOperation), out[1].Result.Value)
	assert.Equal(t, uint64(table.RetCInvalidOperation), out[2].Result.Value)

	entries, err := fsm.Update([]sm.Entry{{Index: 1, Cmd: nil}, {Index: 2, Cmd: []byte{1, 2}}})
	require.NoError(t, err)
	assert.Equal(t, uint64(table.RetCInvalidOperation), entries[0].Result.Value)
	assert.Equal(t, uint64(table.RetCInternalError), entries[1].Result.Value)
}

func TestLookupErrors(t *testing.T) {
	fsm := newTestMachine(t)

	_, err := fsm.Lookup("not a query")
	assert.ErrorIs(t, err, table.NewError(table.RetCInternalError, ""))

	_, err = fsm.Lookup(internal.Query{Type: internal.QueryType(42)})
	assert.ErrorIs(t, err, table.ErrInvalid)
}

func TestLookupInfo(t *testing.T) {
	fsm := newTestMachine(t)
	apply(t, fsm, internal.Command{Type: internal.CommandTPut, Cells: []cell.Cell{{Row: []byte("r"), Family: []byte("cf"), Timestamp: 1}}})

	res, err := fsm.Lookup(internal.Query{Type: internal.QueryTInfo})
	require.NoError(t, err)
	info := res.(mtable.TableInfo)
	assert.Equal(t, "test", info.Name)
	assert.Equal(t, 1, info.Rows)
}

func TestSnapshot(t *testing.T) {
	src := newTestMachine(t)
	apply(t, src, internal.Command{Type: internal.CommandTPut, Cells: []cell.Cell{
		{Row: []byte("a"), Family: []byte("cf"), Timestamp: 1, Value: []byte("1")},
		{Row: []byte("b"), Family: []byte("cf"), Timestamp: 2, Value: []byte("2")},
	}})

	var buf bytes.Buffer
	require.NoError(t, src.SaveSnapshot(nil, &buf, nil, nil))

	dst := newTestMachine(t)
	require.NoError(t, dst.RecoverFromSnapshot(&buf, nil, nil))

	for _, r := range []string{"a", "b"} {
		want, err := src.Lookup(internal.Query{Type: internal.QueryTRow, Row: []byte(r)})
		require.NoError(t, err)
		got, err := dst.Lookup(internal.Query{Type: internal.QueryTRow, Row: []byte(r)})
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	require.NoError(t, dst.Close())
}
