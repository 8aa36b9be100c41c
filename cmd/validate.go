// =============================================================================
// EPC QR Code Generator - Validate Command
// =============================================================================
//
// COMMAND USAGE:
//   epcqr validate
//
// Loads the main configuration and every source configuration and reports
// problems without processing any file. Input files waiting in the input
// directory are listed with the source they would be processed with.
//
// =============================================================================

package cmd

import (
	"fmt"
	"io"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/epc-qr-code-generator/internal/config"
	"github.com/ginjaninja78/epc-qr-code-generator/internal/converter"
	"github.com/ginjaninja78/epc-qr-code-generator/pkg/utils"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration files without processing",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(false)
		if err != nil {
			return err
		}
		return runValidate(cmd.OutOrStdout(), cfg)
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

// runValidate checks the source configurations referenced by cfg and prints
// a report to out.
func runValidate(out io.Writer, cfg *config.MainConfig) error {
	fmt.Fprintf(out, "Main configuration OK (%s)\n", cfgFile)

	sources, err := config.LoadSourceConfigs(cfg.SourcesDir)
	if err != nil {
		return fmt.Errorf("failed to load source configs: %w", err)
	}

	codes := make([]string, 0, len(sources))
	for code := range sources {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	fmt.Fprintf(out, "Loaded %d source configuration(s) from %s\n", len(sources), cfg.SourcesDir)
	for _, code := range codes {
		source := sources[code]
		if _, err := converterOptions(cfg, source, true); err != nil {
			return err
		}
		// Regex patterns are compiled at run time; compile them once here.
		for _, rule := range source.TransformationRules {
			for _, action := range rule.Actions {
				if action.Type != "regex_replace" {
					continue
				}
				if _, err := converter.ApplyTransformation("", action); err != nil {
					return fmt.Errorf("source %s, field %s: %w", code, rule.Field, err)
				}
			}
		}
		fmt.Fprintf(out, "  %-10s %s %v\n", code, source.SourceName, source.FileMatchingPatterns)
	}

	fm := utils.NewFileManager(cfg.InputDir, cfg.OutputDir, cfg.InputArchiveDir, cfg.OutputArchiveDir)
	files, err := fm.DiscoverInputFiles()
	if err != nil {
		// A missing input directory is created by the batch command.
		fmt.Fprintf(out, "Input directory %s not readable: %v\n", cfg.InputDir, err)
		return nil
	}

	fmt.Fprintf(out, "Found %d input file(s) in %s\n", len(files), cfg.InputDir)
	for _, file := range files {
		if source, ok := config.FindSourceConfig(sources, filepath.Base(file)); ok {
			fmt.Fprintf(out, "  %s -> %s\n", filepath.Base(file), source.SourceCode)
		} else {
			fmt.Fprintf(out, "  %s -> no matching source\n", filepath.Base(file))
		}
	}
	return nil
}
