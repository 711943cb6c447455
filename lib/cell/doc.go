// Package cell defines the data model shared by the tables and the write-path hooks:
// a Cell is a single versioned (family, qualifier, timestamp, value) entry of a row,
// and a Mutation is a batch of cells written to one row of one table.
//
// A Mutation keeps an ordered multi-map from (family, qualifier) to one or more
// timestamped values. Families are kept in the order in which they were first added
// and cells inside a family keep their insertion order. Hooks observe committed
// mutations only and must treat them as immutable input.
//
// Timestamps:
//
//	Cells may be added with the LatestTimestamp sentinel. The host replaces the
//	sentinel with its commit time (see Mutation.Stamp) before the mutation is applied,
//	so every cell a hook observes carries a concrete timestamp.
//
// Value helpers:
//
//	Int32/ToInt32 and Int64/ToInt64 convert between integers and their fixed-width
//	big-endian representations. Counters are always stored as 8 byte values.
package cell
