package cell

import (
	"bytes"
	"fmt"
)

// familyCells holds all cells of one family in insertion order.
type familyCells struct {
	family []byte
	cells  []Cell
}

// Mutation is a batch of cell writes applied atomically to one row of one table.
type Mutation struct {
	Table    string
	Row      []byte
	families []familyCells
}

// NewMutation creates an empty mutation for the given table and row.
func NewMutation(table string, row []byte) *Mutation {
	return &Mutation{
		Table: table,
		Row:   bytes.Clone(row),
	}
}

// Add appends a cell to the mutation and returns the mutation for chaining.
// The row of the cell is always the row of the mutation.
func (m *Mutation) Add(family, qualifier []byte, timestamp int64, value []byte) *Mutation {
	c := Cell{
		Row:       m.Row,
		Family:    bytes.Clone(family),
		Qualifier: bytes.Clone(qualifier),
		Timestamp: timestamp,
		Value:     bytes.Clone(value),
	}
	for i := range m.families {
		if bytes.Equal(m.families[i].family, family) {
			m.families[i].cells = append(m.families[i].cells, c)
			return m
		}
	}
	m.families = append(m.families, familyCells{family: c.Family, cells: []Cell{c}})
	return m
}

// AddLatest appends a cell whose timestamp is assigned at commit time.
func (m *Mutation) AddLatest(family, qualifier, value []byte) *Mutation {
	return m.Add(family, qualifier, LatestTimestamp, value)
}

// Family returns all cells of a family in insertion order, or nil if the mutation
// does not write to the family.
func (m *Mutation) Family(family []byte) []Cell {
	for _, f := range m.families {
		if bytes.Equal(f.family, family) {
			out := make([]Cell, len(f.cells))
			copy(out, f.cells)
			return out
		}
	}
	return nil
}

// Get returns all cells written to exactly (family, qualifier), or nil.
func (m *Mutation) Get(family, qualifier []byte) []Cell {
	var out []Cell
	for _, f := range m.families {
		if !bytes.Equal(f.family, family) {
			continue
		}
		for _, c := range f.cells {
			if bytes.Equal(c.Qualifier, qualifier) {
				out = append(out, c)
			}
		}
	}
	return out
}

// Families returns the families of the mutation in first-insertion order.
func (m *Mutation) Families() [][]byte {
	out := make([][]byte, len(m.families))
	for i, f := range m.families {
		out[i] = f.family
	}
	return out
}

// Cells returns every cell of the mutation, family by family.
func (m *Mutation) Cells() []Cell {
	out := make([]Cell, 0, m.Len())
	for _, f := range m.families {
		out = append(out, f.cells...)
	}
	return out
}

// Len returns the number of cells in the mutation.
func (m *Mutation) Len() int {
	n := 0
	for _, f := range m.families {
		n += len(f.cells)
	}
	return n
}

// IsEmpty reports whether the mutation holds no cells.
func (m *Mutation) IsEmpty() bool {
	return m.Len() == 0
}

// Stamp returns a copy of the mutation in which every LatestTimestamp cell carries ts.
// The receiver is not modified.
func (m *Mutation) Stamp(ts int64) *Mutation {
	out := &Mutation{
		Table:    m.Table,
		Row:      m.Row,
		families: make([]familyCells, len(m.families)),
	}
	for i, f := range m.families {
		cells := make([]Cell, len(f.cells))
		for j, c := range f.cells {
			if c.Timestamp == LatestTimestamp {
				c.Timestamp = ts
			}
			cells[j] = c
		}
		out.families[i] = familyCells{family: f.family, cells: cells}
	}
	return out
}

func (m *Mutation) String() string {
	return fmt.Sprintf("Mutation{table=%s, row=%q, families=%d, cells=%d}", m.Table, m.Row, len(m.families), m.Len())
}
