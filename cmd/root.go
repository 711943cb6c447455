package cmd

import (
	"fmt"
	"os"

	"github.com/ValentinKolb/dHook/cmd/serve"
	"github.com/ValentinKolb/dHook/cmd/table"
	"github.com/ValentinKolb/dHook/cmd/util"
	"github.com/spf13/cobra"
)

const (
	Version = "0.1.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "dhook",
		Short: "versioned table store with write-path derivation hooks",
		Long: fmt.Sprintf(`dHook (v%s)

A versioned table store written in Go. Hooks attached to a table derive
secondary writes from every committed mutation: FizzBuzz classifies numbers
into a provenance keyed table, WordCount counts words with atomic increments.`, Version),
		SilenceUsage: true,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of dHook",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("dHook v%s\n", Version)
		},
	}
)

func init() {
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(table.TableCommands)
	RootCmd.AddCommand(versionCmd)

	key := "serializer"
	RootCmd.PersistentFlags().String(key, "binary", util.WrapString("serializer to use (json, gob, binary)"))

	key = "transport"
	RootCmd.PersistentFlags().String(key, "http", util.WrapString("transport to use (http, tcp, unix)"))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
