package main

import (
	"os"

	"github.com/spf13/cobra"

	"lumina/internal/interfaces/cli/migrate"
	"lumina/internal/interfaces/cli/server"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "lumina",
		Short: "Lumina - subscription backend",
		Long:  `Lumina is the subscription backend: receipt verification, vendor webhook processing, entitlement checks and the notification pipeline.`,
	}

	rootCmd.AddCommand(
		server.NewCommand(),
		migrate.NewCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
