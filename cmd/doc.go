// Package cmd implements the command-line interface of dHook. It provides a
// hierarchical command structure for running the server and interacting with
// its tables as a client.
//
// The package is organized into several subpackages:
//
//   - serve: starts a dHook server for a table layout
//   - table: table operations (mutate, put, get, row, incr, info)
//   - util: shared utilities for flags and configuration (internal use)
//
// See dhook --help for a list of all commands.
package cmd
