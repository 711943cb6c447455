package table

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/ValentinKolb/dHook/lib/cell"
	"github.com/ValentinKolb/dHook/lib/derive/wordcount"
	"github.com/ValentinKolb/dHook/lib/provenance"
)

// valueFormat is the encoding of values on the command line
type valueFormat string

const (
	formatString valueFormat = "string"
	formatInt32  valueFormat = "int32"
	formatInt64  valueFormat = "int64"
	formatHex    valueFormat = "hex"
)

func parseFormat(s string) (valueFormat, error) {
	switch f := valueFormat(strings.ToLower(s)); f {
	case formatString, formatInt32, formatInt64, formatHex:
		return f, nil
	default:
		return "", fmt.Errorf("invalid format %q (string, int32, int64, hex)", s)
	}
}

// encode converts a command line argument into a cell value
func (f valueFormat) encode(s string) ([]byte, error) {
	switch f {
	case formatInt32:
		v, err := strconv.ParseInt(s, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("value must be an int32: %w", err)
		}
		return cell.Int32(int32(v)), nil
	case formatInt64:
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("value must be an int64: %w", err)
		}
		return cell.Int64(v), nil
	case formatHex:
		return hex.DecodeString(s)
	default:
		return []byte(s), nil
	}
}

// decode renders a cell value, values that do not fit the format are printed as hex
func (f valueFormat) decode(b []byte) string {
	switch f {
	case formatInt32:
		if v, err := cell.ToInt32(b); err == nil {
			return strconv.FormatInt(int64(v), 10)
		}
	case formatInt64:
		if v, err := cell.ToInt64(b); err == nil {
			return strconv.FormatInt(v, 10)
		}
	case formatString:
		return strconv.Quote(string(b))
	}
	return "0x" + hex.EncodeToString(b)
}

// parseColumn parses a "family[:qualifier]" argument
func parseColumn(s string) (family, qualifier []byte, err error) {
	c, err := wordcount.ParseColumn(s)
	if err != nil {
		return nil, nil, err
	}
	return c.Family, c.Qualifier, nil
}

// formatCell renders a cell as a single line
func formatCell(c cell.Cell, f valueFormat, withProvenance bool) string {
	qualifier := strconv.Quote(string(c.Qualifier))
	if withProvenance {
		if src, err := provenance.Decode(c.Qualifier); err == nil {
			qualifier = src.String()
		}
	}
	return fmt.Sprintf("row=%q column=%s:%s ts=%d value=%s", c.Row, c.Family, qualifier, c.Timestamp, f.decode(c.Value))
}
