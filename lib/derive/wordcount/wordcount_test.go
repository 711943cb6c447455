package wordcount

import (
	"testing"

	"github.com/ValentinKolb/dHook/lib/cell"
	"github.com/ValentinKolb/dHook/lib/derive"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func words(tokens [][]byte) []string {
	out := make([]string, len(tokens))
	for i, t := range tokens {
		out[i] = string(t)
	}
	return out
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{in: "a a a", want: []string{"a", "a", "a"}},
		{in: "", want: []string{}},
		{in: "c-c", want: []string{"c", "c"}},
		{in: "  leading and trailing  ", want: []string{"leading", "and", "trailing"}},
		{in: "snake_case v2", want: []string{"snake_case", "v2"}},
		{in: "Hello, World!", want: []string{"Hello", "World"}},
		{in: "---", want: []string{}},
		{in: "tab\tnew\nline", want: []string{"tab", "new", "line"}},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, words(Tokenize([]byte(tt.in))))
		})
	}
}

func TestParseColumn(t *testing.T) {
	col, err := ParseColumn("count")
	require.NoError(t, err)
	assert.Equal(t, "count", string(col.Family))
	assert.Empty(t, col.Qualifier)

	col, err = ParseColumn("stats:total")
	require.NoError(t, err)
	assert.Equal(t, "stats", string(col.Family))
	assert.Equal(t, "total", string(col.Qualifier))
	assert.Equal(t, "stats:total", col.String())

	_, err = ParseColumn(":total")
	assert.ErrorIs(t, err, ErrEmptyColumnFamily)
	_, err = ParseColumn("")
	assert.ErrorIs(t, err, ErrEmptyColumnFamily)
}

func TestDeriveOneIncrementPerOccurrence(t *testing.T) {
	d := New(DefaultTable, Column{Family: []byte("count")})

	reqs, err := d.Derive("test", cell.Cell{Row: []byte("r"), Family: []byte("b"), Value: []byte("a b a")})
	require.NoError(t, err)
	require.Len(t, reqs, 3)

	rows := make([]string, len(reqs))
	for i, r := range reqs {
		assert.Equal(t, derive.KindIncrement, r.Kind)
		assert.Equal(t, "words", r.Table)
		assert.Equal(t, []byte("count"), r.Family)
		assert.Empty(t, r.Qualifier)
		assert.Equal(t, int64(1), r.Delta)
		rows[i] = string(r.Row)
	}
	assert.Equal(t, []string{"a", "b", "a"}, rows)
}

func TestDeriveEmptyValue(t *testing.T) {
	d := New(DefaultTable, Column{Family: []byte("count")})
	reqs, err := d.Derive("test", cell.Cell{Row: []byte("r"), Family: []byte("b")})
	require.NoError(t, err)
	assert.Empty(t, reqs)
}
