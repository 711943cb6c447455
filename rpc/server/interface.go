package server

import (
	"context"

	"github.com/ValentinKolb/dHook/rpc/common"
)

// IRPCServerAdapter is the interface for all RPC server adapters
// It is responsible for handling requests and responses
type IRPCServerAdapter interface {
	// Handle handles a request for a table and returns a response
	// If an error occurs, it should be set in the response
	Handle(ctx context.Context, req *common.Message, t *serverTable) (resp *common.Message)
}
