// Package tcp implements the TCP socket transport of the RPC system on top of the
// base package. The server disables Nagle's algorithm and enables keep-alive on
// every accepted connection.
//
// Key Components:
//
//   - clientConnector: TCP implementation of base.IClientConnector
//
//   - serverConnector: TCP implementation of base.IServerConnector
//
// The server read buffer is 512 KB per connection.
package tcp
