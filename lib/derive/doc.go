// Package derive defines the contract between the hook dispatcher and the derivers.
//
// A Deriver turns one matched source cell into zero or more WriteRequests against a
// secondary table. Derivers are pure: they hold only immutable configuration, never
// touch a table themselves and are safe for concurrent use. Issuing the requests is
// the job of the dispatcher (see package hook).
//
// There are two disjoint kinds of requests:
//
//   - KindPut: a versioned put of a single cell. Derivers that bucket source cells
//     use a provenance encoding as qualifier so puts from different sources never
//     overwrite each other.
//   - KindIncrement: an atomic add of Delta to a counter cell. Increments are not
//     idempotent, re-deriving the same cell counts it again.
//
// Implementations live in the sub packages fizzbuzz and wordcount.
package derive
