package cmd

import (
	"fmt"
	"os"

	"github.com/ValentinKolb/kvproxy/cmd/cli"
	"github.com/ValentinKolb/kvproxy/cmd/serve"
	"github.com/spf13/cobra"
)

const (
	Version = "0.3.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "kvproxy",
		Short: "protocol-translating cache proxy",
		Long: fmt.Sprintf(`kvproxy (v%s)

A cache proxy written in Go that speaks RESP (or a minimal memcache text
protocol) to its clients and translates every command into calls against
a remote cache backend with a coarse operation set.`, Version),
		SilenceUsage: true,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of kvproxy",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "kvproxy v%s\n", Version)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(cli.ClientCommands)
	RootCmd.AddCommand(versionCmd)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
