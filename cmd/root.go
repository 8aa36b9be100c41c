// =============================================================================
// EPC QR Code Generator - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. Every other command
// is attached to it.
//
// COBRA CLI STRUCTURE:
//   rootCmd (epcqr)
//   ├── generateCmd (epcqr generate)
//   ├── payloadCmd  (epcqr payload)
//   ├── batchCmd    (epcqr batch)
//   ├── validateCmd (epcqr validate)
//   └── versionCmd  (epcqr version)
//
// CONFIGURATION:
//   Settings are resolved in this order, later wins:
//   1. Built-in defaults
//   2. The main configuration file (--config)
//   3. EPCQR_* environment variables (e.g. EPCQR_OUTPUT_DIR)
//   4. Persistent flags (--log-level, --log-format)
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ginjaninja78/epc-qr-code-generator/internal/config"
	"github.com/ginjaninja78/epc-qr-code-generator/internal/logger"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the main configuration file.
var cfgFile string

// verbose forces debug logging.
var verbose bool

// overrides collects environment variables and bound persistent flags.
var overrides = config.NewViper()

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "epcqr",
	Short: "EPC QR Code Generator - SEPA credit transfer QR codes (EPC069-12)",
	Long: `epcqr builds the EPC069-12 payload for a SEPA credit transfer and renders
it as a QR code image that banking apps can scan.

Key Features:
  - Complete payload validation, all field errors reported at once
  - PNG, JPEG and QOI output
  - Batch generation from CSV and XLSX files with per-source mappings
  - Per-row error logs and run summaries

Example Usage:
  epcqr generate "Jane Doe" "DE02 1203 0000 0000 2020 51" -a 12.50 -t "Invoice 42"
  epcqr payload "Jane Doe" DE02120300000000202051 -b BYLADEM1001
  epcqr batch --dry-run
  epcqr validate`,

	SilenceUsage:  true,
	SilenceErrors: true,

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute runs the root command. Errors are printed to stderr and the
// process exits with status 1. An interrupt cancels a running batch between
// rows.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"config.yaml",
		"Path to the main configuration file",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable verbose output for debugging",
	)

	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "", "Log format: console or json")

	// BindPFlag only fails for a nil flag.
	_ = overrides.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = overrides.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))
}

// =============================================================================
// SHARED SETUP
// =============================================================================

// loadConfig loads the main configuration and applies environment and flag
// overrides. The single-payment commands pass allowMissing so that they work
// without any configuration file.
func loadConfig(allowMissing bool) (*config.MainConfig, error) {
	cfg, err := config.LoadMainConfig(cfgFile, allowMissing)
	if err != nil {
		return nil, err
	}
	if err := config.ApplyOverrides(cfg, overrides); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger builds the command logger. The returned function flushes it.
func newLogger(cfg *config.MainConfig) (*zap.SugaredLogger, func(), error) {
	log, err := logger.New(cfg.Log, verbose)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return log.Sugar(), func() { _ = log.Sync() }, nil
}
