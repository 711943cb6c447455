// Package internal defines the messages exchanged between a dtable handle and the
// replicated state machine.
//
// Commands are raft log entries and are serialized with a fixed binary layout
// (big endian):
//
//	1 byte   command type
//	8 bytes  proposer timestamp (ms), used for cells with cell.LatestTimestamp
//	8 bytes  delta (increments only, 0 otherwise)
//	4 bytes  number of cells
//	per cell:
//	  4 bytes row length,       row
//	  4 bytes family length,    family
//	  4 bytes qualifier length, qualifier
//	  8 bytes timestamp
//	  4 bytes value length,     value
//
// An increment carries exactly one cell addressing the counter; its value is empty.
//
// Queries are never serialized since dragonboat passes them to Lookup in-process.
package internal
