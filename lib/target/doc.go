// Package target parses target specifications and selects the cells of a mutation
// that a hook derives from.
//
// A target specification has the form "family[:qualifier]". The configuration value
// is a space separated list of specifications, e.g. "a:x b c:".
//
//   - "b" (no colon) matches every cell of family b, including cells with an empty
//     qualifier.
//   - "a:x" matches only cells of family a with qualifier x.
//   - "c:" matches only cells of family c whose qualifier is the empty byte string.
//
// Only the first colon separates family and qualifier, so "a:x:y" names qualifier
// "x:y". Entries that are empty after trimming are skipped; an entry with an empty
// family is a configuration error.
//
// Specs.Match returns the qualifying cells in specification order. A cell that is
// matched by more than one specification is returned only once, at the position of the
// first specification that matched it.
package target
