package provenance

import (
	"bytes"
	"testing"

	"github.com/ValentinKolb/dHook/lib/cell"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeLayout(t *testing.T) {
	c := cell.Cell{
		Row:       []byte("a015"),
		Family:    []byte("a"),
		Qualifier: []byte("b"),
		Timestamp: 15,
	}

	got, err := Encode("test", c)
	require.NoError(t, err)

	want := []byte{
		0, 0, 0, 4, 't', 'e', 's', 't', // table
		0, 0, 0, 0, 0, 0, 0, 15, // timestamp
		0, 4, 'a', '0', '1', '5', // row
		0, 1, 'a', // family
		0, 0, 0, 1, 'b', // qualifier
	}
	assert.Equal(t, want, got)
	assert.Equal(t, len(want), SizeBytes("test", c))
}

func TestDecodeInvertsEncode(t *testing.T) {
	tests := []struct {
		name  string
		table string
		cell  cell.Cell
	}{
		{
			name:  "Plain",
			table: "test",
			cell:  cell.Cell{Row: []byte("row"), Family: []byte("fam"), Qualifier: []byte("q"), Timestamp: 42},
		},
		{
			name:  "Empty qualifier",
			table: "test",
			cell:  cell.Cell{Row: []byte("row"), Family: []byte("fam"), Qualifier: []byte{}, Timestamp: 1},
		},
		{
			name:  "Negative timestamp",
			table: "t",
			cell:  cell.Cell{Row: []byte("r"), Family: []byte("f"), Qualifier: []byte("q"), Timestamp: -1},
		},
		{
			name:  "Binary fields",
			table: "bin",
			cell:  cell.Cell{Row: []byte{0, 1, 0xff}, Family: []byte{0}, Qualifier: []byte{0, 0, 0, 1}, Timestamp: 7},
		},
		{
			name:  "Empty table",
			table: "",
			cell:  cell.Cell{Row: []byte("r"), Family: []byte("f"), Timestamp: 3},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := Encode(tt.table, tt.cell)
			require.NoError(t, err)

			src, err := Decode(data)
			require.NoError(t, err)
			assert.Equal(t, tt.table, src.Table)
			assert.Equal(t, tt.cell.Timestamp, src.Timestamp)
			assert.True(t, bytes.Equal(tt.cell.Row, src.Row))
			assert.True(t, bytes.Equal(tt.cell.Family, src.Family))
			assert.True(t, bytes.Equal(tt.cell.Qualifier, src.Qualifier))
		})
	}
}

// Shifting bytes between adjacent fields must never produce the same encoding.
func TestEncodeIsInjective(t *testing.T) {
	type source struct {
		table          string
		row, fam, qual string
		ts             int64
	}
	sources := []source{
		{"ab", "c", "d", "e", 1},
		{"a", "bc", "d", "e", 1},
		{"a", "b", "cd", "e", 1},
		{"a", "b", "c", "de", 1},
		{"a", "b", "c", "d", 1},
		{"a", "b", "c", "d", 2},
		{"a", "b", "c", "", 1},
		{"a", "b", "", "c", 1},
		{"a", "", "b", "c", 1},
		{"", "a", "b", "c", 1},
		{"t", "row", "f", "q", 0},
		{"t", "ro", "wf", "q", 0},
	}

	seen := make(map[string]source)
	for _, s := range sources {
		data, err := Encode(s.table, cell.Cell{
			Row:       []byte(s.row),
			Family:    []byte(s.fam),
			Qualifier: []byte(s.qual),
			Timestamp: s.ts,
		})
		require.NoError(t, err)
		if other, ok := seen[string(data)]; ok {
			t.Fatalf("collision between %+v and %+v", s, other)
		}
		seen[string(data)] = s
	}
}

func TestDecodeRejectsMalformedInput(t *testing.T) {
	data, err := Encode("test", cell.Cell{Row: []byte("r"), Family: []byte("f"), Qualifier: []byte("q"), Timestamp: 1})
	require.NoError(t, err)

	for i := 0; i < len(data); i++ {
		_, err := Decode(data[:i])
		assert.ErrorIs(t, err, ErrTruncated, "prefix of length %d", i)
	}

	_, err = Decode(append(data, 0))
	assert.ErrorIs(t, err, ErrTrailingBytes)
}

func TestEncodeRejectsOversizedFields(t *testing.T) {
	_, err := Encode("t", cell.Cell{Row: make([]byte, 1<<16), Family: []byte("f")})
	assert.ErrorIs(t, err, ErrFieldTooLong)

	_, err = Encode("t", cell.Cell{Row: []byte("r"), Family: make([]byte, 1<<16)})
	assert.ErrorIs(t, err, ErrFieldTooLong)

	_, err = Encode("t", cell.Cell{Row: make([]byte, 1<<16-1), Family: []byte("f")})
	assert.NoError(t, err)
}
