package client

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"

	"github.com/ValentinKolb/dHook/lib/cell"
	"github.com/ValentinKolb/dHook/lib/table"
	"github.com/ValentinKolb/dHook/rpc/common"
	"github.com/ValentinKolb/dHook/rpc/serializer"
	"github.com/ValentinKolb/dHook/rpc/transport"
)

// NewRPCTable creates a new RPC table client
// The function takes a table id, a config, a transport and a serializer as parameters
// The transport is connected here and closed by RPCTable.Close
func NewRPCTable(
	shardId uint64,
	config common.ClientConfig,
	transport transport.IRPCClientTransport,
	serializer serializer.IRPCSerializer,
) (*RPCTable, error) {

	// Connect the transport
	if err := transport.Connect(config); err != nil {
		return nil, err
	}

	return &RPCTable{
		rpcClientAdapter: rpcClientAdapter{
			shardId:    shardId,
			config:     config,
			transport:  transport,
			serializer: serializer,
		},
	}, nil
}

// RPCTable is a client for a table served by an RPC server.
// It implements table.ReadWriter, so it can be used wherever a local table handle is used.
type RPCTable struct {
	rpcClientAdapter
	closed atomic.Bool
}

var _ table.ReadWriter = (*RPCTable)(nil)

func (i *RPCTable) call(ctx context.Context, req *common.Message) (*common.Message, error) {
	if i.closed.Load() {
		return nil, table.ErrClosed
	}
	return i.invokeRPCRequest(ctx, req)
}

// Mutate commits a mutation through the hooks of the table and returns the committed mutation.
// If only the hooks failed, the committed mutation is returned together with an
// error matching region.ErrDerivedIncomplete.
func (i *RPCTable) Mutate(ctx context.Context, m *cell.Mutation) (*cell.Mutation, error) {
	resp, err := i.call(ctx, common.NewMutateRequest(m))
	if resp == nil || (err != nil && !resp.Partial) {
		return nil, err
	}
	return resp.Mutation(), err
}

// Info returns statistics about the table
func (i *RPCTable) Info(ctx context.Context) (common.TableInfo, error) {
	var info common.TableInfo
	resp, err := i.call(ctx, common.NewInfoRequest())
	if err != nil {
		return info, err
	}
	if err := json.Unmarshal(resp.Meta, &info); err != nil {
		return info, fmt.Errorf("rpc client: invalid table info: %w", err)
	}
	return info, nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see table/interface.go)
// --------------------------------------------------------------------------

func (i *RPCTable) Put(ctx context.Context, c cell.Cell) error {
	return i.PutBatch(ctx, []cell.Cell{c})
}

func (i *RPCTable) PutBatch(ctx context.Context, cells []cell.Cell) error {
	_, err := i.call(ctx, common.NewPutRequest(cells))
	return err
}

func (i *RPCTable) IncrementColumn(ctx context.Context, row, family, qualifier []byte, delta int64) (int64, error) {
	resp, err := i.call(ctx, common.NewIncrementRequest(row, family, qualifier, delta))
	if err != nil {
		return 0, err
	}
	return resp.Counter, nil
}

func (i *RPCTable) Get(ctx context.Context, row, family, qualifier []byte) (cell.Cell, bool, error) {
	resp, err := i.call(ctx, common.NewGetRequest(row, family, qualifier))
	if err != nil {
		return cell.Cell{}, false, err
	}
	if !resp.Ok || len(resp.Cells) == 0 {
		return cell.Cell{}, false, nil
	}
	return resp.Cells[0], true, nil
}

func (i *RPCTable) Row(ctx context.Context, row []byte) ([]cell.Cell, error) {
	resp, err := i.call(ctx, common.NewRowRequest(row))
	if err != nil {
		return nil, err
	}
	return resp.Cells, nil
}

// Close closes the transport, further calls return table.ErrClosed
func (i *RPCTable) Close() error {
	if i.closed.Swap(true) {
		return nil
	}
	return i.transport.Close()
}
