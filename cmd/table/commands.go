package table

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ValentinKolb/dHook/lib/cell"
	"github.com/ValentinKolb/dHook/lib/region"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	mutateCmd = &cobra.Command{
		Use:   "mutate [row] [family[:qualifier]=value]...",
		Short: "Commits a mutation of one row and runs the hooks of the table",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext()
			defer cancel()

			f, err := currentFormat()
			if err != nil {
				return err
			}

			info, err := rpcTable.Info(ctx)
			if err != nil {
				return err
			}

			m, err := buildMutation(info.Name, rowKey(args[0]), args[1:], f)
			if err != nil {
				return err
			}

			committed, err := rpcTable.Mutate(ctx, m)
			if err != nil && !errors.Is(err, region.ErrDerivedIncomplete) {
				return err
			}
			if committed != nil {
				for _, c := range committed.Cells() {
					fmt.Println(formatCell(c, f, false))
				}
			}
			if err != nil {
				return fmt.Errorf("mutation committed, hooks incomplete: %w", err)
			}
			fmt.Println("mutate successfully")
			return nil
		},
	}
	putCmd = &cobra.Command{
		Use:   "put [row] [family[:qualifier]] [value]",
		Short: "Writes a single cell without running hooks",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext()
			defer cancel()

			f, err := currentFormat()
			if err != nil {
				return err
			}
			family, qualifier, err := parseColumn(args[1])
			if err != nil {
				return err
			}
			value, err := f.encode(args[2])
			if err != nil {
				return err
			}

			if err := rpcTable.Put(ctx, cell.Cell{
				Row:       rowKey(args[0]),
				Family:    family,
				Qualifier: qualifier,
				Timestamp: cell.LatestTimestamp,
				Value:     value,
			}); err != nil {
				return err
			}
			fmt.Println("put successfully")
			return nil
		},
	}
	getCmd = &cobra.Command{
		Use:   "get [row] [family[:qualifier]]",
		Short: "Reads the latest version of a column",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext()
			defer cancel()

			f, err := currentFormat()
			if err != nil {
				return err
			}
			family, qualifier, err := parseColumn(args[1])
			if err != nil {
				return err
			}

			c, ok, err := rpcTable.Get(ctx, rowKey(args[0]), family, qualifier)
			if err != nil {
				return err
			}
			if !ok {
				fmt.Printf("row=%q column=%s found=false\n", args[0], args[1])
				return nil
			}
			fmt.Println(formatCell(c, f, viper.GetBool("provenance")))
			return nil
		},
	}
	rowCmd = &cobra.Command{
		Use:   "row [row]",
		Short: "Reads the latest version of every column of a row",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext()
			defer cancel()

			f, err := currentFormat()
			if err != nil {
				return err
			}

			cells, err := rpcTable.Row(ctx, rowKey(args[0]))
			if err != nil {
				return err
			}
			for _, c := range cells {
				fmt.Println(formatCell(c, f, viper.GetBool("provenance")))
			}
			fmt.Printf("%d cells\n", len(cells))
			return nil
		},
	}
	incrCmd = &cobra.Command{
		Use:   "incr [row] [family[:qualifier]] [delta]",
		Short: "Atomically increments a counter column",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext()
			defer cancel()

			family, qualifier, err := parseColumn(args[1])
			if err != nil {
				return err
			}
			delta := int64(1)
			if len(args) == 3 {
				if delta, err = strconv.ParseInt(args[2], 10, 64); err != nil {
					return fmt.Errorf("delta must be a number: %w", err)
				}
			}

			value, err := rpcTable.IncrementColumn(ctx, rowKey(args[0]), family, qualifier, delta)
			if err != nil {
				return err
			}
			fmt.Printf("row=%q column=%s value=%d\n", args[0], args[1], value)
			return nil
		},
	}
	infoCmd = &cobra.Command{
		Use:   "info",
		Short: "Prints statistics of the table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext()
			defer cancel()

			info, err := rpcTable.Info(ctx)
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(info, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}
)

// commandContext bounds a command by the client timeout
func commandContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), time.Duration(max(1, viper.GetInt("timeout")))*time.Second)
}

func currentFormat() (valueFormat, error) {
	return parseFormat(viper.GetString("format"))
}

// rowKey allows binary row keys: an argument starting with 0x is hex decoded
func rowKey(s string) []byte {
	if b, err := formatHex.encode(strings.TrimPrefix(s, "0x")); err == nil && strings.HasPrefix(s, "0x") {
		return b
	}
	return []byte(s)
}

// buildMutation creates a mutation from "family[:qualifier]=value" arguments
func buildMutation(tableName string, row []byte, args []string, f valueFormat) (*cell.Mutation, error) {
	m := cell.NewMutation(tableName, row)
	for _, arg := range args {
		column, raw, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, fmt.Errorf("invalid cell %q (expected family[:qualifier]=value)", arg)
		}
		family, qualifier, err := parseColumn(column)
		if err != nil {
			return nil, err
		}
		value, err := f.encode(raw)
		if err != nil {
			return nil, err
		}
		m.AddLatest(family, qualifier, value)
	}
	return m, nil
}
