// Package config implements configuration management subcommands.
package config

import (
	"github.com/spf13/cobra"
)

// Cmd is the config subcommand.
var Cmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management",
	Long: `Inspect hes configuration.

Use 'hes init' to create a new configuration file.

Subcommands:
  show  Display current configuration`,
}

func init() {
	Cmd.AddCommand(showCmd)
}
