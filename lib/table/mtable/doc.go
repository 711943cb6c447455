// Package mtable implements a sorted, versioned, in-memory table engine and a Store
// that hosts named tables.
//
// Data model:
//
//	Every table holds rows addressed by a byte key. A row holds columns addressed by
//	(family, qualifier) and every column keeps up to Options.MaxVersions versions,
//	newest first. Writing a version with an existing timestamp replaces it.
//	A table created with a list of families rejects writes to any other family
//	(table.RetCNoSuchFamily); a table created without families accepts every family.
//
// Concurrency:
//
//	Rows live in a concurrent map (xsync.MapOf) and each row has its own lock. Puts
//	and increments on the same row are serialized, so IncrementColumn is an atomic
//	read-modify-write and concurrent increments of a counter never lose updates.
//	Operations on different rows run in parallel.
//
// Timestamps:
//
//	Cells carrying cell.LatestTimestamp are stamped with the wall-clock time in
//	milliseconds. Increments write their new version at max(now, latest version), so
//	the result of an increment is always the latest version of its counter.
//
// Persistence:
//
//	Save writes a binary snapshot of a table (magic number, format version, rows),
//	Load replaces the content of a table with a snapshot. Snapshots are used by the
//	replicated table implementation (dtable).
//
// Statistics:
//
//	Every table counts puts and increments and samples batch sizes with go-metrics.
//	Info returns these statistics together with size estimates.
package mtable
