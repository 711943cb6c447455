// Package common provides the data structures shared by the RPC server,
// the RPC client and the command line tool.
//
// Key Components:
//
//   - Message: the single structure used for every request and response.
//     Factory functions create the messages for mutate, put, increment,
//     get, row and info operations. Errors travel as a table.RetCode plus
//     a message, so a client can rebuild a *table.Error, and a Partial flag
//     marks a mutation whose primary write committed but whose hooks failed.
//
//   - Layout: the YAML description of the tables served by a node, their
//     column families and the hooks attached to each table.
//
//   - ServerConfig / ClientConfig: configuration of server nodes and clients,
//     including helpers that convert the server config to Dragonboat configs.
//
//   - Logger: a dragonboat logger.ILogger implementation used by all packages
//     so that raft and application logs share one format.
package common
