package target

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/ValentinKolb/dHook/lib/cell"
)

// ErrEmptyFamily is returned for a specification without a family.
var ErrEmptyFamily = errors.New("target: empty family")

// Spec selects cells by family and optionally by qualifier.
type Spec struct {
	Family       []byte
	Qualifier    []byte
	AnyQualifier bool // true if the spec names only a family
}

// ParseSpec parses a single "family[:qualifier]" token.
func ParseSpec(s string) (Spec, error) {
	s = strings.TrimSpace(s)
	family, qualifier, hasQualifier := strings.Cut(s, ":")
	if family == "" {
		return Spec{}, fmt.Errorf("%w: %q", ErrEmptyFamily, s)
	}
	if !hasQualifier {
		return Spec{Family: []byte(family), AnyQualifier: true}, nil
	}
	return Spec{Family: []byte(family), Qualifier: []byte(qualifier)}, nil
}

// Matches reports whether the cell is selected by the spec.
func (s Spec) Matches(c cell.Cell) bool {
	if !bytes.Equal(s.Family, c.Family) {
		return false
	}
	return s.AnyQualifier || bytes.Equal(s.Qualifier, c.Qualifier)
}

// Equal reports whether both specs select the same cells.
func (s Spec) Equal(o Spec) bool {
	if s.AnyQualifier != o.AnyQualifier || !bytes.Equal(s.Family, o.Family) {
		return false
	}
	return s.AnyQualifier || bytes.Equal(s.Qualifier, o.Qualifier)
}

func (s Spec) String() string {
	if s.AnyQualifier {
		return string(s.Family)
	}
	return string(s.Family) + ":" + string(s.Qualifier)
}

// Specs is an ordered set of target specifications.
type Specs []Spec

// ParseSpecs parses a space separated list of specifications.
// Exact duplicates are dropped, the first occurrence keeps its position.
func ParseSpecs(s string) (Specs, error) {
	var specs Specs
	for _, token := range strings.Fields(s) {
		spec, err := ParseSpec(token)
		if err != nil {
			return nil, err
		}
		if specs.contains(spec) {
			continue
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

func (specs Specs) contains(spec Spec) bool {
	for _, s := range specs {
		if s.Equal(spec) {
			return true
		}
	}
	return false
}

// Match returns the cells of the mutation selected by the specs in specification order.
// Families absent from the mutation contribute nothing.
func (specs Specs) Match(m *cell.Mutation) []cell.Cell {
	if len(specs) == 0 || m == nil {
		return nil
	}

	// index every cell once so overlapping specs do not select a cell twice
	all := m.Cells()
	seen := make([]bool, len(all))

	var out []cell.Cell
	for _, spec := range specs {
		for i, c := range all {
			if seen[i] || !spec.Matches(c) {
				continue
			}
			seen[i] = true
			out = append(out, c)
		}
	}
	return out
}

func (specs Specs) String() string {
	parts := make([]string, len(specs))
	for i, s := range specs {
		parts[i] = s.String()
	}
	return strings.Join(parts, " ")
}
