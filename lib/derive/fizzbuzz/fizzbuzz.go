package fizzbuzz

import (
	"fmt"
	"strconv"

	"github.com/ValentinKolb/dHook/lib/cell"
	"github.com/ValentinKolb/dHook/lib/derive"
	"github.com/ValentinKolb/dHook/lib/provenance"
)

// TableName is the table all classified cells are written to.
const TableName = "fizzbuzz"

// Category is the classification of a number.
type Category uint8

const (
	CategoryNum Category = iota
	CategoryFizz
	CategoryBuzz
	CategoryFizzBuzz
)

func (c Category) String() string {
	switch c {
	case CategoryNum:
		return "Num"
	case CategoryFizz:
		return "Fizz"
	case CategoryBuzz:
		return "Buzz"
	case CategoryFizzBuzz:
		return "FizzBuzz"
	default:
		return fmt.Sprintf("Unknown(%d)", c)
	}
}

// Family returns the column family of the fizzbuzz table for the category.
func (c Category) Family() []byte {
	switch c {
	case CategoryFizz:
		return []byte("fizz")
	case CategoryBuzz:
		return []byte("buzz")
	case CategoryFizzBuzz:
		return []byte("fizzbuzz")
	default:
		return []byte("num")
	}
}

// Families lists every column family the fizzbuzz table needs.
func Families() []string {
	return []string{"num", "fizz", "buzz", "fizzbuzz"}
}

// Classify returns the category of v. Multiples of 15 are checked first.
func Classify(v int32) Category {
	switch {
	case v%15 == 0:
		return CategoryFizzBuzz
	case v%5 == 0:
		return CategoryBuzz
	case v%3 == 0:
		return CategoryFizz
	default:
		return CategoryNum
	}
}

// Suffix returns the row key suffix for v.
func Suffix(v int32) []byte {
	c := Classify(v)
	if c == CategoryNum {
		return []byte(":" + strconv.FormatInt(int64(v), 10))
	}
	return []byte(":" + c.String())
}

// RowKey returns the derived row key for v.
func RowKey(v int32) []byte {
	return append(cell.Int32(v), Suffix(v)...)
}

// Deriver implements derive.Deriver for the fizzbuzz hook.
type Deriver struct {
	table string
}

// New creates a deriver writing into the fizzbuzz table.
func New() *Deriver {
	return &Deriver{table: TableName}
}

// Derive classifies the cell value and returns a single put request.
// Values that are not exactly 4 bytes long fail with derive.ErrValueShape.
func (d *Deriver) Derive(sourceTable string, c cell.Cell) ([]derive.WriteRequest, error) {
	v, err := cell.ToInt32(c.Value)
	if err != nil {
		return nil, fmt.Errorf("%w: cell %s: %v", derive.ErrValueShape, c, err)
	}

	qualifier, err := provenance.Encode(sourceTable, c)
	if err != nil {
		return nil, err
	}

	return []derive.WriteRequest{{
		Kind:      derive.KindPut,
		Table:     d.table,
		Row:       RowKey(v),
		Family:    Classify(v).Family(),
		Qualifier: qualifier,
		Value:     cell.Int32(v),
		Timestamp: c.Timestamp,
	}}, nil
}
