package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dmagro/substrate-meta/internal/display"
	"github.com/dmagro/substrate-meta/internal/metadata"
)

func inspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect [file]",
		Short: "Summarize a metadata file written by fetch",
		Long: `Read a metadata file in either output format and print one row per pallet.
Without an argument the configured output path is read.

Example:
  substrate-meta inspect meta.json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			path := cfg.Output.Path
			if len(args) == 1 {
				path = args[0]
			}
			return runInspect(cmd, path)
		},
	}
	return cmd
}

func runInspect(cmd *cobra.Command, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read metadata: %w", err)
	}

	doc, err := metadata.ParseDocument(data)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}

	return (&display.PalletsFormatter{Source: path, Doc: doc}).Format(cmd.OutOrStdout())
}
