// Package transport defines the interfaces for RPC communication between
// table clients and servers. It provides a common contract that transport
// implementations fulfill, so clients and servers stay protocol agnostic.
//
// Key Components:
//
//   - IRPCClientTransport: Interface for client-side transport implementations that
//     handles connection management and request sending.
//
//   - IRPCServerTransport: Interface for server-side transport implementations that
//     receives requests and routes them to the handler by table id.
//
//   - ServerHandleFunc: Function type for request handling callbacks.
//
// Implementations:
//
//   - http: one POST request per call, also serves the metrics endpoint.
//
//   - tcp, unix: pipelined framed requests over long lived sockets, both built
//     on the base package.
package transport
