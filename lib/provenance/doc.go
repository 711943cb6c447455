// Package provenance encodes the identity of a source cell into an opaque byte string.
//
// Derived writes use the encoding as their qualifier, so a derived row can hold one cell
// per distinct source write without collisions and every derived cell points back to
// the write it was derived from.
//
// Layout (all integers big-endian):
//
//	4 bytes   table length
//	N bytes   table name
//	8 bytes   timestamp of the source cell
//	2 bytes   row length
//	N bytes   row
//	2 bytes   family length
//	N bytes   family
//	4 bytes   qualifier length
//	N bytes   qualifier
//
// The widths of the length prefixes are part of the persisted format and must not be
// changed. Every variable-length field is preceded by its length, so the encoding is
// injective and can be decoded without any separator.
package provenance
