// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package app provides the entry point for the configsvc command-line application.
package app

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stacklok/configsvc/pkg/config"
	"github.com/stacklok/configsvc/pkg/logger"
)

// NewRootCmd creates a new root command for the configsvc CLI.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:               "configsvc",
		DisableAutoGenTag: true,
		Short:             "HTTP service for managing Kubernetes ConfigMaps",
		Long: `configsvc exposes create, read, update, delete and search operations on
Kubernetes ConfigMaps in a single namespace over a JSON HTTP API.`,
		Run: func(cmd *cobra.Command, _ []string) {
			// If no subcommand is provided, print help
			if err := cmd.Help(); err != nil {
				logger.Errorf("Error displaying help: %v", err)
			}
		},
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			// Re-initialize so --debug takes effect.
			logger.Initialize()
		},
	}

	// Add persistent flags
	rootCmd.PersistentFlags().Bool(config.KeyDebug, false, "Enable debug logging")
	if err := viper.BindPFlag(config.KeyDebug, rootCmd.PersistentFlags().Lookup(config.KeyDebug)); err != nil {
		logger.Errorf("Error binding debug flag: %v", err)
	}

	// Add subcommands
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newVersionCmd())

	// Silence printing the usage on error
	rootCmd.SilenceUsage = true

	return rootCmd
}
