// Package wordcount splits text cells into words and counts every occurrence with an
// atomic increment on a counter table.
//
// A word is a maximal run of ASCII letters, digits and underscores; every other byte
// separates words. Each occurrence produces its own increment of 1 (occurrences are
// not summed up first), so the counter of a word equals its frequency over all
// derived cells. Re-deriving the same cell counts it again.
//
// The counter lives in row = word, column = the configured family and qualifier
// (defaults: table "words", family "count", empty qualifier).
package wordcount
