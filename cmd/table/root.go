package table

import (
	"github.com/ValentinKolb/dHook/cmd/util"
	"github.com/ValentinKolb/dHook/rpc/client"
	"github.com/spf13/cobra"
)

var (
	rpcTable *client.RPCTable

	// TableCommands represents the table command group
	TableCommands = &cobra.Command{
		Use:                "table",
		Short:              "Perform table operations",
		PersistentPreRunE:  setupTableClient,
		PersistentPostRunE: closeTableClient,
	}
)

func init() {
	cobra.OnInitialize(util.InitConfig)

	util.SetupRPCClientFlags(TableCommands)

	TableCommands.PersistentFlags().Uint64("id", 1, util.WrapString("ID of the table to connect to"))
	TableCommands.PersistentFlags().String("format", "string", util.WrapString("Encoding of values given and printed (string, int32, int64, hex)"))
	TableCommands.PersistentFlags().Bool("provenance", false, util.WrapString("Decode qualifiers as provenance references when printing cells"))

	TableCommands.AddCommand(mutateCmd)
	TableCommands.AddCommand(putCmd)
	TableCommands.AddCommand(getCmd)
	TableCommands.AddCommand(rowCmd)
	TableCommands.AddCommand(incrCmd)
	TableCommands.AddCommand(infoCmd)
}

// setupTableClient initializes the RPC table client
func setupTableClient(cmd *cobra.Command, _ []string) error {
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	s, err := util.GetSerializer()
	if err != nil {
		return err
	}

	t, err := util.GetTransport()
	if err != nil {
		return err
	}

	rpcTable, err = client.NewRPCTable(
		util.GetTableID(),
		*util.GetClientConfig(),
		t,
		s,
	)
	return err
}

func closeTableClient(_ *cobra.Command, _ []string) error {
	if rpcTable == nil {
		return nil
	}
	return rpcTable.Close()
}
