// Package rpc exposes dHook tables over the network. A node serves the tables
// of its layout, clients address a table by its numeric id and send one
// request per table operation.
//
// Subpackages:
//
//   - common: the request/response Message, the YAML Layout of tables and
//     hooks, server and client configuration and the shared logger.
//
//   - transport: the client and server transport interfaces plus the http,
//     tcp and unix implementations. tcp and unix share the framed socket
//     transport of transport/base.
//
//   - serializer: encodes Messages as binary, JSON or GOB.
//
//   - client: RPCTable, a table.ReadWriter backed by a remote table. Mutate
//     commits a mutation through the hooks of the remote table.
//
//   - server: builds the tables of a layout, wraps each in a region.Region
//     that runs its FizzBuzz and WordCount hooks, and answers requests.
package rpc
