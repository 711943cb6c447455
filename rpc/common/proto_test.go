package common

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/ValentinKolb/dHook/lib/cell"
	"github.com/ValentinKolb/dHook/lib/region"
	"github.com/ValentinKolb/dHook/lib/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMutateRequestRoundTrip(t *testing.T) {
	m := cell.NewMutation("numbers", []byte("r1")).
		Add([]byte("n"), []byte("a"), 10, cell.Int32(3)).
		Add([]byte("n"), []byte("b"), 11, cell.Int32(5))

	msg := NewMutateRequest(m)
	assert.Equal(t, MsgTMutate, msg.MsgType)

	got := msg.Mutation()
	assert.Equal(t, m.Table, got.Table)
	assert.Equal(t, m.Row, got.Row)
	assert.Equal(t, m.Cells(), got.Cells())
}

func TestAsError(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		assert.NoError(t, NewPutResponse(nil).AsError())
	})

	t.Run("TableErrorKeepsCode", func(t *testing.T) {
		err := NewPutResponse(table.Errorf(table.RetCNoSuchFamily, "no family %s", "x")).AsError()
		require.Error(t, err)
		assert.ErrorIs(t, err, table.ErrNoSuchFamily)
		assert.Contains(t, err.Error(), "no family x")
	})

	t.Run("WrappedTableError", func(t *testing.T) {
		err := NewGetResponse(cell.Cell{}, false, fmt.Errorf("get: %w", table.ErrClosed)).AsError()
		assert.ErrorIs(t, err, table.ErrClosed)
	})

	t.Run("PlainErrorIsInternal", func(t *testing.T) {
		msg := NewRowResponse(nil, errors.New("boom"))
		assert.Equal(t, uint64(table.RetCInternalError), msg.Code)
		err := msg.AsError()
		var tErr *table.Error
		require.ErrorAs(t, err, &tErr)
		assert.Equal(t, table.RetCInternalError, tErr.Code)
		assert.Equal(t, "boom", tErr.Msg)
	})

	t.Run("Partial", func(t *testing.T) {
		committed := cell.NewMutation("docs", []byte("d")).Add([]byte("text"), nil, 5, []byte("a b"))
		hookErr := fmt.Errorf("%w: observer wordcount: %w", region.ErrDerivedIncomplete, table.ErrTableNotFound)

		msg := NewMutateResponse(committed, hookErr)
		assert.True(t, msg.Partial)
		assert.Equal(t, committed.Cells(), msg.Cells)

		err := msg.AsError()
		assert.ErrorIs(t, err, region.ErrDerivedIncomplete)
		assert.ErrorIs(t, err, table.ErrTableNotFound)
	})

	t.Run("ErrorResponse", func(t *testing.T) {
		err := NewErrorResponse("bad request").AsError()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bad request")
	})
}

func TestMessageTypeJSON(t *testing.T) {
	for mt, name := range messageTypeNames {
		data, err := json.Marshal(mt)
		require.NoError(t, err)
		assert.Equal(t, `"`+name+`"`, string(data))

		var got MessageType
		require.NoError(t, json.Unmarshal(data, &got))
		assert.Equal(t, mt, got)
	}

	var mt MessageType
	assert.Error(t, json.Unmarshal([]byte(`"nope"`), &mt))
	assert.Equal(t, "unknown", MessageType(200).String())
}
