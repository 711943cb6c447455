package server

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/ValentinKolb/dHook/lib/region"
	"github.com/ValentinKolb/dHook/lib/table"
	"github.com/ValentinKolb/dHook/rpc/common"
)

func NewTableServerAdapter() IRPCServerAdapter {
	return &tableServerAdapterImpl{}
}

type tableServerAdapterImpl struct{}

func (adapter *tableServerAdapterImpl) Handle(ctx context.Context, req *common.Message, t *serverTable) *common.Message {
	// Check for nil table
	if t == nil {
		return common.NewErrorResponse("handler: table is nil")
	}

	switch req.MsgType {
	case common.MsgTMutate:
		committed, err := t.region.Mutate(ctx, req.Mutation())
		if errors.Is(err, region.ErrEmptyMutation) {
			err = table.NewError(table.RetCInvalidOperation, err.Error())
		}
		return common.NewMutateResponse(committed, err)
	case common.MsgTPut:
		return common.NewPutResponse(t.rw.PutBatch(ctx, req.Cells))
	case common.MsgTIncrement:
		value, err := t.rw.IncrementColumn(ctx, req.Row, req.Family, req.Qualifier, req.Delta)
		return common.NewIncrementResponse(value, err)
	case common.MsgTGet:
		c, ok, err := t.rw.Get(ctx, req.Row, req.Family, req.Qualifier)
		return common.NewGetResponse(c, ok, err)
	case common.MsgTRow:
		cells, err := t.rw.Row(ctx, req.Row)
		return common.NewRowResponse(cells, err)
	case common.MsgTInfo:
		info, err := t.info(ctx)
		if err != nil {
			return common.NewInfoResponse(nil, err)
		}
		meta, err := json.Marshal(common.TableInfo{
			TableInfo: info,
			ID:        t.id,
			Type:      t.typ,
			Hooks:     t.region.Observers(),
		})
		return common.NewInfoResponse(meta, err)
	default:
		return common.NewErrorResponseFor(
			table.Errorf(table.RetCUnsupportedOperation, "unsupported message type: %s", req.MsgType),
		)
	}
}
