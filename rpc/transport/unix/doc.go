// Package unix implements the Unix domain socket transport of the RPC system on top
// of the base package. The endpoint is the path of the socket file, an existing
// file at that path is removed before listening.
//
// Key Components:
//
//   - clientConnector: Unix socket implementation of base.IClientConnector
//
//   - serverConnector: Unix socket implementation of base.IServerConnector
//
// The server read buffer is 64 KB per connection.
package unix
