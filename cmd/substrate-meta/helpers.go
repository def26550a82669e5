package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dmagro/substrate-meta/internal/config"
	"github.com/dmagro/substrate-meta/internal/display"
)

// loadConfig reads the --config file. A missing default file is not an error.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	flags := cmd.Root().PersistentFlags()
	path, _ := flags.GetString("config")

	cfg, err := config.LoadOrDefault(path, flags.Changed("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if level, _ := flags.GetString("log-level"); level != "" {
		cfg.Logging.Level = level
	}
	if noColor, _ := flags.GetBool("no-color"); noColor {
		display.DisableColors()
	}
	return cfg, nil
}
