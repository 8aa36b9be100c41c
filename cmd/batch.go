// =============================================================================
// EPC QR Code Generator - Batch Command
// =============================================================================
//
// This file defines the 'batch' command, which generates one QR code image per
// row of every CSV or XLSX file in the input directory.
//
// COMMAND USAGE:
//   epcqr batch [flags]
//
// FLAGS:
//   --dry-run : Validate and render every row without writing images or
//               moving input files
//   --file    : Process a single file instead of scanning the input directory
//   --source  : Process only files of the given source code
//
// PROCESSING PIPELINE:
//   1. Load the main configuration and all source configurations
//   2. Discover input files
//   3. Match each file to a source configuration
//   4. Convert files concurrently, at most max_concurrency at a time
//   5. Archive inputs (and optionally images) of successful files
//   6. Write the error log and the summary
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/ginjaninja78/epc-qr-code-generator/internal/config"
	"github.com/ginjaninja78/epc-qr-code-generator/internal/converter"
	"github.com/ginjaninja78/epc-qr-code-generator/internal/imagewriter"
	"github.com/ginjaninja78/epc-qr-code-generator/internal/validation"
	"github.com/ginjaninja78/epc-qr-code-generator/pkg/utils"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

// batchOptions are the command line options of a batch run.
type batchOptions struct {
	DryRun     bool
	File       string
	SourceCode string
}

var batchFlags batchOptions

// =============================================================================
// BATCH COMMAND DEFINITION
// =============================================================================

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Generate QR codes for every row of the input files",
	Long: `The batch command scans the input directory for CSV and XLSX files, matches
each to a source configuration and writes one QR code image per row.

Files are processed concurrently. A failing row is recorded in the error log;
with continue_on_error the remaining rows and files are still processed.

On success:
  - Images are written to the output directory
  - The input file is moved to the input archive
  - A summary report is written to the output directory

On error:
  - An error log is written to the output directory
  - Files that could not be read remain in the input directory`,

	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(true)
		if err != nil {
			return err
		}
		log, flush, err := newLogger(cfg)
		if err != nil {
			return err
		}
		defer flush()

		summary, err := runBatch(cmd.Context(), cfg, log, batchFlags)
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), "\n=== Processing Complete ===")
		fmt.Fprintf(cmd.OutOrStdout(), "Total files:     %d\n", summary.TotalFiles)
		fmt.Fprintf(cmd.OutOrStdout(), "Successful:      %d\n", summary.SuccessfulFiles)
		fmt.Fprintf(cmd.OutOrStdout(), "Failed:          %d\n", summary.FailedFiles)
		fmt.Fprintf(cmd.OutOrStdout(), "Rows:            %d\n", summary.TotalRows)
		fmt.Fprintf(cmd.OutOrStdout(), "Images written:  %d\n", summary.ImagesWritten)
		fmt.Fprintf(cmd.OutOrStdout(), "Row errors:      %d\n", summary.RowErrors)
		fmt.Fprintf(cmd.OutOrStdout(), "Total amount:    EUR %s\n", summary.TotalAmount.StringFixed(2))
		fmt.Fprintf(cmd.OutOrStdout(), "Time elapsed:    %s\n", summary.EndTime.Sub(summary.StartTime))

		if summary.FailedFiles > 0 || summary.RowErrors > 0 {
			return fmt.Errorf("%d file(s) and %d row(s) failed, see the error log in %s",
				summary.FailedFiles, summary.RowErrors, cfg.OutputDir)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().BoolVar(&batchFlags.DryRun, "dry-run", false,
		"Validate and render without writing images or archiving inputs")
	batchCmd.Flags().StringVar(&batchFlags.File, "file", "",
		"Process a single file instead of the input directory")
	batchCmd.Flags().StringVar(&batchFlags.SourceCode, "source", "",
		"Process only files of this source code")
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// job is one input file with its source.
type job struct {
	path   string
	source *config.SourceConfig
}

// runBatch processes the input files and writes the error log and summary.
// It returns an error only when the run could not start; per-file and per-row
// failures are reported in the summary.
func runBatch(ctx context.Context, cfg *config.MainConfig, log converter.Logger, opts batchOptions) (utils.ProcessingSummary, error) {
	summary := utils.ProcessingSummary{
		StartTime:   time.Now(),
		DryRun:      opts.DryRun,
		TotalAmount: decimal.Zero,
	}
	if ctx == nil {
		ctx = context.Background()
	}

	// =========================================================================
	// STEP 1: LOAD CONFIGURATION
	// =========================================================================

	if err := cfg.EnsureDirectories(); err != nil {
		return summary, err
	}

	sources, err := config.LoadSourceConfigs(cfg.SourcesDir)
	if err != nil {
		return summary, fmt.Errorf("failed to load source configs: %w", err)
	}
	if opts.SourceCode != "" {
		if _, ok := sources[opts.SourceCode]; !ok {
			return summary, fmt.Errorf("unknown source code %q", opts.SourceCode)
		}
	}
	log.Infof("Loaded %d source configuration(s)", len(sources))

	fm := utils.NewFileManager(cfg.InputDir, cfg.OutputDir, cfg.InputArchiveDir, cfg.OutputArchiveDir)
	fm.UseTimestampSubdirs = cfg.ArchiveTimestampSubdirs

	// =========================================================================
	// STEP 2: DISCOVER INPUT FILES
	// =========================================================================

	var inputFiles []string
	if opts.File != "" {
		if !utils.FileExists(opts.File) {
			return summary, fmt.Errorf("input file %s does not exist", opts.File)
		}
		inputFiles = []string{opts.File}
	} else {
		inputFiles, err = fm.DiscoverInputFiles()
		if err != nil {
			return summary, err
		}
	}

	// =========================================================================
	// STEP 3: MATCH SOURCES
	// =========================================================================

	var errorEntries []utils.ErrorLogEntry
	var jobs []job
	for _, path := range inputFiles {
		source, ok := matchSource(sources, path, opts.SourceCode)
		if !ok {
			if opts.SourceCode != "" {
				log.Debugf("Skipping %s: not a %s file", filepath.Base(path), opts.SourceCode)
				continue
			}
			summary.TotalFiles++
			summary.FailedFiles++
			summary.FailedFilesList = append(summary.FailedFilesList, utils.FailedFileInfo{
				InputFile:    path,
				ErrorMessage: "no matching source configuration found",
				ErrorType:    "no_source",
			})
			errorEntries = append(errorEntries, utils.ErrorLogEntry{
				Timestamp:    time.Now(),
				FileName:     filepath.Base(path),
				ErrorType:    "no_source",
				ErrorMessage: "no matching source configuration found",
			})
			log.Warnf("No source configuration matches %s", filepath.Base(path))
			continue
		}
		jobs = append(jobs, job{path: path, source: source})
	}

	if len(jobs) == 0 && summary.FailedFiles == 0 {
		log.Infof("No input files found in %s", cfg.InputDir)
	}

	// =========================================================================
	// STEP 4: PROCESS FILES CONCURRENTLY
	// =========================================================================

	results := make(chan converter.Result, len(jobs))
	sem := make(chan struct{}, cfg.MaxConcurrency)
	var wg sync.WaitGroup

	for _, j := range jobs {
		wg.Add(1)
		go func(j job) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			convOpts, err := converterOptions(cfg, j.source, opts.DryRun)
			if err != nil {
				results <- converter.Result{
					FilePath:   j.path,
					SourceCode: j.source.SourceCode,
					Error:      err,
					ErrorType:  "config",
				}
				return
			}
			results <- converter.New(j.path, j.source, convOpts).WithLogger(log).Run(ctx)
		}(j)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	var collected []converter.Result
	for result := range results {
		collected = append(collected, result)
	}
	sort.Slice(collected, func(a, b int) bool { return collected[a].FilePath < collected[b].FilePath })

	// =========================================================================
	// STEP 5: ARCHIVE AND COLLECT STATISTICS
	// =========================================================================

	for _, result := range collected {
		summary.TotalFiles++
		base := filepath.Base(result.FilePath)

		for _, row := range result.Rows {
			if !row.Failed() {
				continue
			}
			errs := row.Problems
			errorEntries = append(errorEntries, utils.ErrorLogEntry{
				Timestamp:    time.Now(),
				FileName:     base,
				SourceCode:   result.SourceCode,
				ErrorType:    errs[0].Rule,
				ErrorMessage: rowMessage(errs),
				RowNumber:    row.RowNumber,
				Fields:       validation.Fields(errs),
			})
		}

		if !result.Success {
			summary.FailedFiles++
			summary.FailedFilesList = append(summary.FailedFilesList, utils.FailedFileInfo{
				InputFile:    result.FilePath,
				ErrorMessage: result.Error.Error(),
				ErrorType:    result.ErrorType,
			})
			errorEntries = append(errorEntries, utils.ErrorLogEntry{
				Timestamp:    time.Now(),
				FileName:     base,
				SourceCode:   result.SourceCode,
				ErrorType:    result.ErrorType,
				ErrorMessage: result.Error.Error(),
			})
			summary.TotalRows += result.Stats.RowsProcessed
			summary.RowErrors += result.Stats.RowErrors
			continue
		}

		info := utils.ProcessedFileInfo{
			InputFile:   result.FilePath,
			SourceCode:  result.SourceCode,
			Rows:        result.Stats.RowsProcessed,
			Images:      result.Stats.ImagesWritten,
			RowErrors:   result.Stats.RowErrors,
			TotalAmount: result.Stats.TotalAmount,
			ProcessTime: result.Stats.ProcessingTime,
		}

		if !opts.DryRun && cfg.ArchiveInputs {
			archived, err := fm.ArchiveInputFile(result.FilePath)
			if err != nil {
				log.Errorf("Failed to archive %s: %v", base, err)
			} else {
				info.ArchivePath = archived
			}
		}
		if !opts.DryRun && cfg.ArchiveOutputs && result.Stats.RowErrors == 0 {
			for _, image := range result.OutputFiles() {
				if _, err := fm.ArchiveOutputFile(image); err != nil {
					log.Errorf("Failed to archive %s: %v", filepath.Base(image), err)
				}
			}
		}

		summary.SuccessfulFiles++
		summary.TotalRows += info.Rows
		summary.ImagesWritten += info.Images
		summary.RowErrors += info.RowErrors
		summary.TotalAmount = summary.TotalAmount.Add(info.TotalAmount)
		summary.ProcessedFiles = append(summary.ProcessedFiles, info)
	}

	// =========================================================================
	// STEP 6: WRITE LOGS
	// =========================================================================

	summary.EndTime = time.Now()

	if logPath, err := utils.WriteErrorLog(errorEntries, cfg.OutputDir); err != nil {
		log.Errorf("Failed to write error log: %v", err)
	} else if logPath != "" {
		log.Warnf("%d error(s) logged to %s", len(errorEntries), logPath)
	}

	if summaryPath, err := utils.WriteSummaryLog(summary, cfg.OutputDir); err != nil {
		log.Errorf("Failed to write summary: %v", err)
	} else {
		log.Infof("Summary written to %s", summaryPath)
	}

	return summary, nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// matchSource finds the source configuration of a file. With a source code
// filter only that source is considered.
func matchSource(sources map[string]*config.SourceConfig, path, sourceCode string) (*config.SourceConfig, bool) {
	if sourceCode == "" {
		return config.FindSourceConfig(sources, filepath.Base(path))
	}
	source := sources[sourceCode]
	if source == nil || !source.Matches(filepath.Base(path)) {
		return nil, false
	}
	return source, true
}

// converterOptions combines main and source configuration. Source settings
// win over main settings.
func converterOptions(cfg *config.MainConfig, source *config.SourceConfig, dryRun bool) (converter.Options, error) {
	formatName := cfg.ImageFormat
	if source.ImageFormat != "" {
		formatName = source.ImageFormat
	}
	format, err := imagewriter.ParseFormat(formatName)
	if err != nil {
		return converter.Options{}, fmt.Errorf("source %s: %w", source.SourceCode, err)
	}

	nameFormat := cfg.BatchFileNameFormat
	if source.FileNameFormat != "" {
		nameFormat = source.FileNameFormat
	}

	return converter.Options{
		OutputDir:       cfg.OutputDir,
		FileNameFormat:  nameFormat,
		ImageFormat:     format,
		Image:           imageOptions(cfg),
		DryRun:          dryRun,
		ContinueOnError: cfg.ContinueOnError,
		Validation:      validation.DefaultOptions(),
	}, nil
}

// rowMessage joins the error messages of a failed row.
func rowMessage(errs []*validation.RowError) string {
	var msg string
	for _, e := range errs {
		if e.Severity != validation.SeverityError {
			continue
		}
		if msg != "" {
			msg += "; "
		}
		if e.Field != "" {
			msg += e.Field + ": "
		}
		msg += e.Message
	}
	return msg
}
