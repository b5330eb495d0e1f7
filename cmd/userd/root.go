// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ShopNest Contributors

package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/shopnest/userd/internal/xdg"
)

// Global flags available to all subcommands.
var configFile string

// resolveConfigPath returns the --config flag value, or the XDG config file
// when the flag is unset and the file exists. An empty result means run on
// defaults, env fallbacks, and flags alone.
func resolveConfigPath() string {
	if configFile != "" {
		return configFile
	}
	if path := xdg.DefaultConfigPath(); path != "" {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// NewRootCmd creates the root command for the userd CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "userd",
		Short: "ShopNest user service",
		Long: `userd is the ShopNest user service: credential registration, login,
and session-token validation backed by PostgreSQL and Redis.`,
	}

	// Global flag for config file path
	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")

	// Add subcommands
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())

	return cmd
}
