// Package table defines the narrow interface the write-path hooks use to reach a
// table: a Handle to issue puts and atomic increments, a Reader for lookups and a
// Factory that opens handles by table name.
//
// The package focuses on:
//   - A unified interface (Handle, Reader) over local and replicated tables
//   - Dependency injection of table access through the Factory function type
//   - A structured error type with return codes
//   - A thread-safe handle Pool
//
// Key Components:
//
//   - Handle: Put, PutBatch, IncrementColumn and Close. Counters are stored as
//     8 byte big-endian values; incrementing a cell that holds anything else is an
//     invalid operation.
//
//   - Factory: a function type that opens a Handle for a table name. Hooks never
//     create or administer tables, they only open handles through a Factory.
//
//   - Error System: errors reported by a table are *Error values carrying a RetCode.
//     Error implements Is, so errors.Is(err, table.ErrNoSuchFamily) compares codes.
//
//   - Pool: wraps a Factory, bounds the number of open handles per table and reuses
//     idle handles. Pool.Factory returns a Factory whose handles go back into the pool
//     when they are closed.
//
// Implementations:
//
//   - In-memory table (mtable): a versioned, sorted, concurrent in-memory table engine.
//     Available in the "github.com/ValentinKolb/dHook/lib/table/mtable" package.
//
//   - Distributed table (dtable): an mtable replicated with the Dragonboat RAFT library.
//     Available in the "github.com/ValentinKolb/dHook/lib/table/dtable" package.
//
//   - RPC table: a remote table reached through the rpc client.
//     Available in the "github.com/ValentinKolb/dHook/rpc/client" package.
//
// The testing package (github.com/ValentinKolb/dHook/lib/table/testing) provides a
// conformance suite that every implementation runs.
package table
