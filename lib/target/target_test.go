package target

import (
	"testing"

	"github.com/ValentinKolb/dHook/lib/cell"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func columns(cells []cell.Cell) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = string(c.Family) + ":" + string(c.Qualifier)
	}
	return out
}

func TestParseSpec(t *testing.T) {
	tests := []struct {
		in        string
		family    string
		qualifier string
		any       bool
	}{
		{in: "a", family: "a", any: true},
		{in: "a:x", family: "a", qualifier: "x"},
		{in: "a:", family: "a", qualifier: ""},
		{in: "a:x:y", family: "a", qualifier: "x:y"},
		{in: "  a:x ", family: "a", qualifier: "x"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			spec, err := ParseSpec(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.family, string(spec.Family))
			assert.Equal(t, tt.qualifier, string(spec.Qualifier))
			assert.Equal(t, tt.any, spec.AnyQualifier)
		})
	}

	_, err := ParseSpec(":x")
	assert.ErrorIs(t, err, ErrEmptyFamily)
}

func TestParseSpecs(t *testing.T) {
	specs, err := ParseSpecs("  a:x   b  a:x c: ")
	require.NoError(t, err)
	assert.Equal(t, "a:x b c:", specs.String())

	specs, err = ParseSpecs("")
	require.NoError(t, err)
	assert.Empty(t, specs)

	_, err = ParseSpecs("a :b")
	assert.ErrorIs(t, err, ErrEmptyFamily)
}

func TestFamilyOnlyMatchesEveryQualifier(t *testing.T) {
	m := cell.NewMutation("t", []byte("r")).
		Add([]byte("a"), []byte("x"), 1, nil).
		Add([]byte("a"), []byte(""), 1, nil).
		Add([]byte("b"), []byte("x"), 1, nil)

	specs, err := ParseSpecs("a")
	require.NoError(t, err)
	assert.Equal(t, []string{"a:x", "a:"}, columns(specs.Match(m)))
}

func TestExactQualifier(t *testing.T) {
	m := cell.NewMutation("t", []byte("r")).
		Add([]byte("a"), []byte("x"), 1, nil).
		Add([]byte("a"), []byte(""), 1, nil).
		Add([]byte("a"), []byte("y"), 1, nil)

	specs, err := ParseSpecs("a:x")
	require.NoError(t, err)
	assert.Equal(t, []string{"a:x"}, columns(specs.Match(m)))

	// an explicit empty qualifier is a distinct target from "any qualifier"
	specs, err = ParseSpecs("a:")
	require.NoError(t, err)
	assert.Equal(t, []string{"a:"}, columns(specs.Match(m)))
}

func TestMatchOrderAndOverlap(t *testing.T) {
	m := cell.NewMutation("t", []byte("r")).
		Add([]byte("a"), []byte("x"), 1, nil).
		Add([]byte("b"), []byte("y"), 1, nil).
		Add([]byte("a"), []byte("z"), 1, nil)

	specs, err := ParseSpecs("b a:z a")
	require.NoError(t, err)
	assert.Equal(t, []string{"b:y", "a:z", "a:x"}, columns(specs.Match(m)))
}

func TestMatchMultipleVersions(t *testing.T) {
	m := cell.NewMutation("t", []byte("r")).
		Add([]byte("a"), []byte("x"), 1, []byte("1")).
		Add([]byte("a"), []byte("x"), 2, []byte("2"))

	specs, err := ParseSpecs("a:x")
	require.NoError(t, err)
	cells := specs.Match(m)
	require.Len(t, cells, 2)
	assert.Equal(t, int64(1), cells[0].Timestamp)
	assert.Equal(t, int64(2), cells[1].Timestamp)
}

func TestAbsentFamilyIsNoOp(t *testing.T) {
	m := cell.NewMutation("t", []byte("r")).Add([]byte("a"), []byte("x"), 1, nil)

	specs, err := ParseSpecs("z z:x")
	require.NoError(t, err)
	assert.Empty(t, specs.Match(m))

	var none Specs
	assert.Empty(t, none.Match(m))
}
