package client

import (
	"context"
	"fmt"

	"github.com/ValentinKolb/dHook/rpc/common"
	"github.com/ValentinKolb/dHook/rpc/serializer"
	"github.com/ValentinKolb/dHook/rpc/transport"
)

// rpcClientAdapter is a struct that stores all data needed for an implementation of an RPC client
type rpcClientAdapter struct {
	shardId    uint64
	config     common.ClientConfig
	transport  transport.IRPCClientTransport
	serializer serializer.IRPCSerializer
}

// invokeRPCRequest is a helper function used by all RPC clients to send requests.
// If the server answered with an error the decoded response is returned together
// with the error rebuilt by common.Message.AsError.
// This method also checks if the type of the response is the expected type.
func (a *rpcClientAdapter) invokeRPCRequest(ctx context.Context, req *common.Message) (*common.Message, error) {
	// Serialize the request
	reqBytes, err := a.serializer.Serialize(*req)
	if err != nil {
		return nil, err
	}

	respBytes, err := a.transport.Send(ctx, a.shardId, reqBytes)
	if err != nil {
		return nil, err
	}

	// Deserialize the response
	resp := &common.Message{}
	if err = a.serializer.Deserialize(respBytes, resp); err != nil {
		return nil, fmt.Errorf("rpc client: invalid response: %w", err)
	}

	// Check if the response is an error response
	if err := resp.AsError(); err != nil {
		return resp, err
	}

	// Check if the type of the response is the expected type
	if resp.MsgType != req.MsgType {
		return nil, fmt.Errorf("rpc client: unexpected message type: %s, expected %s", resp.MsgType, req.MsgType)
	}

	return resp, nil
}
