package cli

import (
	"github.com/ValentinKolb/kvproxy/cmd/util"
	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

var (
	rdb *goredis.Client

	// ClientCommands represents the client command group
	ClientCommands = &cobra.Command{
		Use:                "cli",
		Short:              "Send commands to a running kvproxy",
		PersistentPreRunE:  setupClient,
		PersistentPostRunE: closeClient,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitConfig)

	// Add connection flags
	util.SetupClientFlags(ClientCommands)

	// Add subcommands
	for _, cmd := range commands {
		ClientCommands.AddCommand(cmd)
	}
	ClientCommands.AddCommand(perfTestCmd)
}

// setupClient creates the RESP client talking to the proxy
func setupClient(cmd *cobra.Command, _ []string) error {
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	rdb = util.NewRedisClient(util.GetClientConfig())
	return nil
}

func closeClient(_ *cobra.Command, _ []string) error {
	if rdb == nil {
		return nil
	}
	return rdb.Close()
}
