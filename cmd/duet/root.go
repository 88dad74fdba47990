// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Duet Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/duetrooms/duet/internal/config"
)

// NewRootCmd creates the root command for the Duet CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "duet",
		Short: "Duet - accounts and two-party rooms",
		Long: `Duet registers users, issues bearer tokens, and pairs users in
private rooms reachable by a connect key.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().String("config", "", "config file path (default: XDG_CONFIG_HOME/duet/config.yaml)")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())

	return cmd
}

// loadConfig reads the layered configuration for cmd. Only flags the user
// set on cmd override lower layers.
func loadConfig(cmd *cobra.Command, storeOnly bool) (*config.Config, error) {
	file, err := cmd.Flags().GetString("config")
	if err != nil {
		file = ""
	}
	return config.Load(config.LoadOptions{
		File:      file,
		Flags:     cmd.Flags(),
		StoreOnly: storeOnly,
	})
}
