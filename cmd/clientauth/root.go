package main

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for the clientauth CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clientauth",
		Short: "clientauth - client account authentication service",
		Long: `clientauth registers client accounts, exchanges credentials for
signed bearer tokens and resolves the identity behind each request.
All settings are read from the environment.`,
		SilenceUsage: true,
	}

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())

	return cmd
}
