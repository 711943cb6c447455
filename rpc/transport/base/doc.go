// Package base provides the framed socket transport shared by the tcp and unix
// transports. It carries opaque request bytes addressed to a table id, the
// protocol-specific parts (listening, dialing, socket options) are injected
// through connectors.
//
// Frame format (all integers big endian):
//
//	shardId (8) | requestID (8) | length (4) | payload (length bytes)
//
// A response frame repeats the shardId and requestID of its request.
//
// Key Components:
//
//   - IClientConnector/IServerConnector: Interfaces for protocol-specific operations.
//
//   - ClientTransport: Sends requests over a fixed set of connections with
//     round-robin load balancing. Requests are pipelined and matched to their
//     responses by request id, so a single connection serves many concurrent
//     callers. A broken connection fails its waiting requests and is dialed again
//     by the next request. Failed requests are retried with exponential backoff.
//
//   - ServerTransport: Accepts connections and hands every request to the
//     registered handler. Each connection runs up to WorkersPerConn handlers
//     concurrently (errgroup with a limit), responses are written as soon as they
//     are ready. Canceling the context of Listen closes the listener and every
//     connection and waits for running handlers.
//
// Thread Safety:
//
//	All public methods are thread-safe.
package base
