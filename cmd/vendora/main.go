package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/vendora-inc/vendora/internal/interfaces/cli/events"
	"github.com/vendora-inc/vendora/internal/interfaces/cli/migrate"
	"github.com/vendora-inc/vendora/internal/interfaces/cli/seed"
	"github.com/vendora-inc/vendora/internal/interfaces/cli/server"
	"github.com/vendora-inc/vendora/internal/shared/version"
)

// @title Vendora API
// @version 1.0
// @description Entitlement resolution and access gating for the Vendora business app.
// @BasePath /
// @securityDefinitions.apikey Bearer
// @in header
// @name Authorization
func main() {
	rootCmd := &cobra.Command{
		Use:     "vendora",
		Short:   "Vendora - subscription entitlements and access gating",
		Long:    `Vendora resolves who is calling and what their subscription allows, and gates routes and features accordingly.`,
		Version: version.Get().Version,
	}

	rootCmd.AddCommand(
		server.NewCommand(),
		migrate.NewCommand(),
		seed.NewCommand(),
		events.NewCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
