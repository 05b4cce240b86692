package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kirillkom/paperpulse/internal/bootstrap"
	"github.com/kirillkom/paperpulse/internal/config"
	"github.com/kirillkom/paperpulse/internal/core/ports"
	"github.com/kirillkom/paperpulse/internal/observability/logging"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "paperctl",
		Short:         "Operate the paperpulse document pipeline from the command line",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(newProcessCommand(), newExportCommand(), newVersionCommand())
	return root
}

func loadConfig(level string) (config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, err
	}
	if level == "" {
		level = cfg.LogLevel
	}
	logger := logging.New(os.Stderr, "paperctl", level)
	slog.SetDefault(logger)
	return cfg, logger, nil
}

func newProcessCommand() *cobra.Command {
	var logLevel string
	cmd := &cobra.Command{
		Use:   "process <file>",
		Short: "Classify a file and print the extracted record as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(logLevel)
			if err != nil {
				return err
			}
			rec, closeRecognizer, err := bootstrap.NewRecognizer(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer closeRecognizer()

			return processFile(cmd.Context(), bootstrap.NewProcessor(rec, nil, logger), args[0], cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&logLevel, "log-level", "warn", "log level written to stderr")
	return cmd
}

// processFile prints the record even when processing failed, then returns
// the error so the exit code reflects it.
func processFile(ctx context.Context, processor ports.DocumentProcessor, path string, out io.Writer) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	meta, procErr := processor.ProcessDocument(ctx, f, filepath.Base(path))
	if meta != nil {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(meta); err != nil {
			return fmt.Errorf("encode record: %w", err)
		}
	}
	return procErr
}

func newExportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "export <out.xlsx>",
		Short: "Write every stored record to a spreadsheet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig("")
			if err != nil {
				return err
			}
			app, err := bootstrap.New(cmd.Context(), cfg, logger, bootstrap.Options{})
			if err != nil {
				return err
			}
			defer app.Close()

			content, err := app.ExportUC.ExportXLSX(cmd.Context())
			if err != nil {
				return err
			}
			if err := os.WriteFile(args[0], content, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported to %s\n", args[0])
			return nil
		},
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the paperctl version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}
