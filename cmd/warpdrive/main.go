package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/cloudcopper/warpdrive"
	"github.com/cloudcopper/warpdrive/infra/config"
	"github.com/cloudcopper/warpdrive/lib"
)

const (
	retNoErrorCode      = 0
	retGenericErrorCode = 1
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "warpdrive",
	Short: "Upload build assets to object storage",
	Long:  `Rewrite asset references of already built output directory to public urls, and upload the assets to S3 compatible storage.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			setDefaultLogger(slog.LevelDebug)
		}
		if cmd.Flags().Changed("dry-run") {
			config.OverrideDryRunExplicit = true
		}
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Run single export over the output directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		return warpdrive.Export(cmd.Context(), slog.Default())
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run export every time the trigger file appears in the output directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		return warpdrive.Watch(cmd.Context(), slog.Default())
	},
}

func init() {
	// Use config file name from env WARPDRIVE_CONFIG
	// or warpdrive.yml
	config.ConfigFileName = lib.GetEnvDefault("WARPDRIVE_CONFIG", config.ConfigFileName)
	// Env WARPDRIVE_DRY_RUN overrides config same way as --dry-run
	if _, ok := os.LookupEnv("WARPDRIVE_DRY_RUN"); ok {
		config.OverrideDryRun = lib.GetEnvBool("WARPDRIVE_DRY_RUN", config.OverrideDryRun)
		config.OverrideDryRunExplicit = true
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&config.ConfigFileName, "config", config.ConfigFileName, "config file name")
	flags.StringVar(&config.OverrideOutDir, "out-dir", config.OverrideOutDir, "build output directory (overrides config)")
	flags.BoolVar(&config.OverrideDryRun, "dry-run", config.OverrideDryRun, "log intended uploads only (overrides config)")
	flags.BoolVarP(&verbose, "verbose", "v", verbose, "debug logging")
	watchCmd.Flags().DurationVar(&config.WatchDebounce, "debounce", config.WatchDebounce, "delay between trigger and build")

	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(watchCmd)
}

func main() {
	err := rootCmd.ExecuteContext(context.Background())

	code := retNoErrorCode
	if err != nil {
		code = retGenericErrorCode
		if i, ok := err.(lib.ErrorCode); ok {
			code = i.Code()
		}
		slog.Error("exit", slog.Int("code", code), slog.Any("err", err))
	} else {
		slog.Debug("exit")
	}

	os.Exit(code)
}
