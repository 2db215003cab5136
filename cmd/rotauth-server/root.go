package main

import (
	"github.com/spf13/cobra"
)

type rootFlags struct {
	configFile string
	envFile    string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:          "rotauth-server",
		Short:        "Token-rotation authentication server",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&flags.configFile, "config", "", "config file (yaml, toml or json)")
	cmd.PersistentFlags().StringVar(&flags.envFile, "env-file", ".env", "dotenv file, ignored when missing")

	cmd.AddCommand(newServeCmd(flags))
	cmd.AddCommand(newHashPasswordCmd())
	return cmd
}
