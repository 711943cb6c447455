package wordcount

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/ValentinKolb/dHook/lib/cell"
	"github.com/ValentinKolb/dHook/lib/derive"
)

const (
	DefaultTable  = "words"
	DefaultColumn = "count"
)

// ErrEmptyColumnFamily is returned for a column specification without a family.
var ErrEmptyColumnFamily = errors.New("wordcount: empty column family")

var wordPattern = regexp.MustCompile(`\w+`)

// Tokenize returns the words of text in order of appearance.
func Tokenize(text []byte) [][]byte {
	return wordPattern.FindAll(text, -1)
}

// Column is the counter column of the count table.
type Column struct {
	Family    []byte
	Qualifier []byte
}

// ParseColumn parses a "family[:qualifier]" column specification.
// A missing qualifier means the empty qualifier.
func ParseColumn(s string) (Column, error) {
	family, qualifier, _ := strings.Cut(strings.TrimSpace(s), ":")
	if family == "" {
		return Column{}, fmt.Errorf("%w: %q", ErrEmptyColumnFamily, s)
	}
	return Column{Family: []byte(family), Qualifier: []byte(qualifier)}, nil
}

func (c Column) String() string {
	if len(c.Qualifier) == 0 {
		return string(c.Family)
	}
	return string(c.Family) + ":" + string(c.Qualifier)
}

// Deriver implements derive.Deriver for the wordcount hook.
type Deriver struct {
	table  string
	column Column
}

// New creates a deriver counting words into the given table and column.
func New(table string, column Column) *Deriver {
	return &Deriver{
		table: table,
		column: Column{
			Family:    bytes.Clone(column.Family),
			Qualifier: bytes.Clone(column.Qualifier),
		},
	}
}

// Table returns the name of the count table.
func (d *Deriver) Table() string {
	return d.table
}

// Derive returns one increment request per word occurrence.
func (d *Deriver) Derive(_ string, c cell.Cell) ([]derive.WriteRequest, error) {
	words := Tokenize(c.Value)
	if len(words) == 0 {
		return nil, nil
	}

	reqs := make([]derive.WriteRequest, len(words))
	for i, word := range words {
		reqs[i] = derive.WriteRequest{
			Kind:      derive.KindIncrement,
			Table:     d.table,
			Row:       bytes.Clone(word),
			Family:    d.column.Family,
			Qualifier: d.column.Qualifier,
			Delta:     1,
		}
	}
	return reqs, nil
}
