// Package http implements the HTTP transport of the table RPC system.
//
// Key Components:
//
//   - httpClientTransport: Implements IRPCClientTransport. Requests are spread
//     over all endpoints round-robin, a failed attempt is retried on the next
//     endpoint until the retry count is used up or the context is done.
//
//   - httpServerTransport: Implements IRPCServerTransport. The handler returned
//     by NewHandler routes POST /{shardId} to the registered handler and serves
//     the process metrics on GET /metrics.
//
// Thread Safety:
//
//	The client transport is safe for concurrent use once connected. It uses an
//	atomic counter for the round-robin endpoint selection.
package http
