package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dmagro/substrate-meta/internal/config"
	"github.com/dmagro/substrate-meta/internal/display"
	"github.com/dmagro/substrate-meta/internal/fetch"
	"github.com/dmagro/substrate-meta/internal/logging"
	"github.com/dmagro/substrate-meta/internal/metadata"
)

type fetchFlags struct {
	endpoint      string
	output        string
	format        string
	pretty        bool
	versionOutput string
	timeout       time.Duration
}

func fetchCmd() *cobra.Command {
	var f fetchFlags

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch runtime metadata and write it to a file",
		Long: `Connect to the node, call state_getMetadata once and write the decoded
metadata to the output file. The file is replaced only when every step
succeeds.

Exit codes:
  2  connection error
  3  request error
  4  serialization error
  5  I/O error

Example:
  substrate-meta fetch --endpoint wss://rpc.example.org --output meta.json --pretty`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			applyFetchFlags(cmd, cfg, &f)
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			return runFetch(cmd, cfg)
		},
	}

	cmd.Flags().StringVar(&f.endpoint, "endpoint", "", "Node websocket endpoint (ws:// or wss://)")
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "Output file path")
	cmd.Flags().StringVar(&f.format, "format", "", "Output format: human|raw")
	cmd.Flags().BoolVar(&f.pretty, "pretty", false, "Indent the JSON output")
	cmd.Flags().StringVar(&f.versionOutput, "version-output", "", "Also write the runtime version to this file")
	cmd.Flags().DurationVar(&f.timeout, "timeout", 0, "Deadline for the whole run (0 = none)")

	return cmd
}

// applyFetchFlags overrides cfg with the flags set on the command line.
func applyFetchFlags(cmd *cobra.Command, cfg *config.Config, f *fetchFlags) {
	flags := cmd.Flags()
	if flags.Changed("endpoint") {
		cfg.Node.Endpoint = f.endpoint
	}
	if flags.Changed("output") {
		cfg.Output.Path = f.output
	}
	if flags.Changed("format") {
		cfg.Output.Format = f.format
	}
	if flags.Changed("pretty") {
		cfg.Output.Pretty = f.pretty
	}
	if flags.Changed("version-output") {
		cfg.Output.VersionPath = f.versionOutput
	}
	if flags.Changed("timeout") {
		cfg.Node.Timeout = f.timeout
	}
}

func runFetch(cmd *cobra.Command, cfg *config.Config) error {
	log, err := logging.New(cfg.Logging.Level, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	decoder, err := metadata.ForFormat(cfg.Output.Format)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := fetch.New(decoder, log).Run(ctx, cfg)
	if err != nil {
		return err
	}

	return (&display.FetchFormatter{Result: res}).Format(cmd.ErrOrStderr())
}
