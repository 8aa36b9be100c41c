// =============================================================================
// EPC QR Code Generator - File Manager Utility
// =============================================================================
//
// This module provides file management utilities for the generator:
//   - Input file discovery for batch runs
//   - File archival (moving processed inputs and finished images)
//   - Output file naming
//   - Error log and summary log generation
//
// ARCHIVAL STRATEGY:
//   - Input files are moved to input_archive once processed
//   - Images are moved to output_archive when archive_outputs is set
//   - Files that failed to parse remain in the input directory
//   - Error logs and summaries are written to the output directory
//
// =============================================================================

package utils

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InputExtensions are the file types picked up by DiscoverInputFiles.
var InputExtensions = []string{".csv", ".xlsx"}

// =============================================================================
// FILE MANAGER
// =============================================================================

// FileManager handles file operations for batch runs.
type FileManager struct {
	InputDir         string
	OutputDir        string
	InputArchiveDir  string
	OutputArchiveDir string

	// UseTimestampSubdirs creates date-based subdirectories in archives.
	// Example: input_archive/2026/10/18/donations.csv
	UseTimestampSubdirs bool

	now func() time.Time
}

// NewFileManager creates a new FileManager with the specified directories.
func NewFileManager(inputDir, outputDir, inputArchiveDir, outputArchiveDir string) *FileManager {
	return &FileManager{
		InputDir:         inputDir,
		OutputDir:        outputDir,
		InputArchiveDir:  inputArchiveDir,
		OutputArchiveDir: outputArchiveDir,
		now:              time.Now,
	}
}

// EnsureDirectories creates all required directories if they don't exist.
func (fm *FileManager) EnsureDirectories() error {
	for _, dir := range []string{fm.InputDir, fm.OutputDir, fm.InputArchiveDir, fm.OutputArchiveDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// =============================================================================
// FILE DISCOVERY
// =============================================================================

// DiscoverInputFiles lists the CSV and XLSX files directly inside the input
// directory, sorted by name. Hidden files and Excel lock files ("~$...") are
// skipped.
func (fm *FileManager) DiscoverInputFiles() ([]string, error) {
	entries, err := os.ReadDir(fm.InputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to scan input directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || strings.HasPrefix(name, "~$") {
			continue
		}
		if IsInputFile(name) {
			files = append(files, filepath.Join(fm.InputDir, name))
		}
	}
	sort.Strings(files)

	return files, nil
}

// IsInputFile reports whether name has a supported input extension.
func IsInputFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, allowed := range InputExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

// =============================================================================
// FILE ARCHIVAL
// =============================================================================

// ArchiveInputFile moves an input file to the input archive directory.
//
// RETURNS:
//   - The path to the archived file.
//   - An error if archival fails.
func (fm *FileManager) ArchiveInputFile(filePath string) (string, error) {
	return fm.moveTo(fm.InputArchiveDir, filePath)
}

// ArchiveOutputFile moves a generated image to the output archive directory.
func (fm *FileManager) ArchiveOutputFile(filePath string) (string, error) {
	return fm.moveTo(fm.OutputArchiveDir, filePath)
}

func (fm *FileManager) moveTo(archiveDir, filePath string) (string, error) {
	archivePath := fm.getArchivePath(archiveDir, filePath)

	if err := os.MkdirAll(filepath.Dir(archivePath), 0755); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}

	if err := os.Rename(filePath, archivePath); err != nil {
		// Rename fails across devices; fall back to copy and delete.
		if err := copyFile(filePath, archivePath); err != nil {
			return "", fmt.Errorf("failed to copy file to archive: %w", err)
		}
		if err := os.Remove(filePath); err != nil {
			return "", fmt.Errorf("failed to remove original file: %w", err)
		}
	}

	return archivePath, nil
}

// getArchivePath builds the archive path for a file. An existing archive
// entry of the same name is never overwritten; a timestamp is appended
// instead.
func (fm *FileManager) getArchivePath(archiveDir, filePath string) string {
	now := fm.now()
	fileName := filepath.Base(filePath)

	dir := archiveDir
	if fm.UseTimestampSubdirs {
		dir = filepath.Join(
			archiveDir,
			fmt.Sprintf("%d", now.Year()),
			fmt.Sprintf("%02d", now.Month()),
			fmt.Sprintf("%02d", now.Day()),
		)
	}

	path := filepath.Join(dir, fileName)
	if !FileExists(path) {
		return path
	}

	ext := filepath.Ext(fileName)
	stem := strings.TrimSuffix(fileName, ext)
	return filepath.Join(dir, fmt.Sprintf("%s_%s%s", stem, now.Format("20060102_150405.000000"), ext))
}

// =============================================================================
// OUTPUT FILE NAMING
// =============================================================================

var fileNameReplacer = strings.NewReplacer("/", "_", "\\", "_", " ", "_")

// SanitizeFileName replaces path separators and spaces with underscores.
func SanitizeFileName(name string) string {
	return fileNameReplacer.Replace(name)
}

// DeriveFileName builds the conventional image name without extension:
//
//	epc-[<bic>-]<account>[-<remittance>]-qr-code
//
// Empty bic or remittance are left out. The account is used as typed, so
// spaces in it become underscores.
func DeriveFileName(bic, account, remittance string) string {
	parts := []string{"epc"}
	if bic != "" {
		parts = append(parts, bic)
	}
	parts = append(parts, account)
	if remittance != "" {
		parts = append(parts, remittance)
	}
	parts = append(parts, "qr-code")
	return SanitizeFileName(strings.Join(parts, "-"))
}

// GenerateOutputFileName expands a file name format.
//
// PARAMETERS:
//   - format: The format string. Built-in placeholders:
//     {uuid}      - A random UUID
//     {timestamp} - Current timestamp (YYYYMMDD_HHMMSS)
//     {date}      - Current date (YYYYMMDD)
//     {time}      - Current time (HHMMSS)
//   - params: Additional placeholder values, e.g. {"derived": ..., "row": "12"}.
//     Values are sanitized before substitution.
//   - ext: The extension to ensure, including the dot.
//
// EXAMPLE:
//
//	format: "{source}_{row}_{derived}"
//	params: {"source": "DON", "row": "2", "derived": "epc-DE02-qr-code"}
//	ext:    ".png"
//	output: "DON_2_epc-DE02-qr-code.png"
func GenerateOutputFileName(format string, params map[string]string, ext string) string {
	now := time.Now()

	replacements := map[string]string{
		"{uuid}":      uuid.New().String(),
		"{timestamp}": now.Format("20060102_150405"),
		"{date}":      now.Format("20060102"),
		"{time}":      now.Format("150405"),
	}
	for key, value := range params {
		replacements["{"+key+"}"] = SanitizeFileName(value)
	}

	pairs := make([]string, 0, 2*len(replacements))
	for placeholder, value := range replacements {
		pairs = append(pairs, placeholder, value)
	}
	result := SanitizeFileName(strings.NewReplacer(pairs...).Replace(format))

	if ext != "" && !strings.EqualFold(filepath.Ext(result), ext) {
		result += ext
	}
	return result
}

// =============================================================================
// ERROR LOG GENERATION
// =============================================================================

// ErrorLogEntry is a single failed row or file.
type ErrorLogEntry struct {
	Timestamp    time.Time
	FileName     string
	SourceCode   string
	ErrorType    string
	ErrorMessage string
	RowNumber    int
	Fields       []string
}

// WriteErrorLog writes error entries to a timestamped log file in outputDir.
//
// RETURNS:
//   - The path to the error log file, or "" when there were no entries.
//   - An error if writing fails.
func WriteErrorLog(entries []ErrorLogEntry, outputDir string) (string, error) {
	if len(entries) == 0 {
		return "", nil
	}

	now := time.Now()
	logPath := filepath.Join(outputDir, fmt.Sprintf("error_log_%s.txt", now.Format("20060102_150405")))

	return logPath, writeTextFile(logPath, func(w *bufio.Writer) {
		fmt.Fprintf(w, "EPC QR Code Generator - Error Log\n"+
			"Generated: %s\n"+
			"Total Errors: %d\n"+
			"%s\n\n",
			now.Format("2006-01-02 15:04:05"), len(entries), rule)

		for i, entry := range entries {
			fmt.Fprintf(w, "Error #%d\n", i+1)
			fmt.Fprintf(w, "  Timestamp:  %s\n", entry.Timestamp.Format("2006-01-02 15:04:05"))
			fmt.Fprintf(w, "  File:       %s\n", entry.FileName)
			if entry.SourceCode != "" {
				fmt.Fprintf(w, "  Source:     %s\n", entry.SourceCode)
			}
			fmt.Fprintf(w, "  Error Type: %s\n", entry.ErrorType)
			fmt.Fprintf(w, "  Message:    %s\n", entry.ErrorMessage)
			if entry.RowNumber > 0 {
				fmt.Fprintf(w, "  Row Number: %d\n", entry.RowNumber)
			}
			if len(entry.Fields) > 0 {
				fmt.Fprintf(w, "  Fields:     %s\n", strings.Join(entry.Fields, ", "))
			}
			w.WriteString("\n")
		}

		fmt.Fprintf(w, "%s\nEnd of Error Log\n", rule)
	})
}

// =============================================================================
// PROCESSING SUMMARY
// =============================================================================

const rule = "================================================================================"

// ProcessingSummary contains summary information about a batch run.
type ProcessingSummary struct {
	StartTime       time.Time
	EndTime         time.Time
	DryRun          bool
	TotalFiles      int
	SuccessfulFiles int
	FailedFiles     int
	TotalRows       int
	ImagesWritten   int
	RowErrors       int
	TotalAmount     decimal.Decimal
	ProcessedFiles  []ProcessedFileInfo
	FailedFilesList []FailedFileInfo
}

// ProcessedFileInfo describes an input file that could be read.
type ProcessedFileInfo struct {
	InputFile   string
	SourceCode  string
	ArchivePath string
	Rows        int
	Images      int
	RowErrors   int
	TotalAmount decimal.Decimal
	ProcessTime time.Duration
}

// FailedFileInfo describes an input file that could not be processed.
type FailedFileInfo struct {
	InputFile    string
	ErrorMessage string
	ErrorType    string
}

// WriteSummaryLog writes a processing summary to a timestamped file in outputDir.
func WriteSummaryLog(summary ProcessingSummary, outputDir string) (string, error) {
	summaryPath := filepath.Join(outputDir,
		fmt.Sprintf("processing_summary_%s.txt", time.Now().Format("20060102_150405")))

	return summaryPath, writeTextFile(summaryPath, func(w *bufio.Writer) {
		mode := "write"
		if summary.DryRun {
			mode = "dry run"
		}
		fmt.Fprintf(w, "EPC QR Code Generator - Processing Summary\n%s\n\n", rule)
		fmt.Fprintf(w, "Run Information:\n"+
			"  Start Time:     %s\n"+
			"  End Time:       %s\n"+
			"  Duration:       %s\n"+
			"  Mode:           %s\n\n",
			summary.StartTime.Format("2006-01-02 15:04:05"),
			summary.EndTime.Format("2006-01-02 15:04:05"),
			summary.EndTime.Sub(summary.StartTime).String(),
			mode)
		fmt.Fprintf(w, "Statistics:\n"+
			"  Total Files:    %d\n"+
			"  Successful:     %d\n"+
			"  Failed:         %d\n"+
			"  Total Rows:     %d\n"+
			"  Images Written: %d\n"+
			"  Row Errors:     %d\n"+
			"  Total Amount:   EUR %s\n\n",
			summary.TotalFiles,
			summary.SuccessfulFiles,
			summary.FailedFiles,
			summary.TotalRows,
			summary.ImagesWritten,
			summary.RowErrors,
			summary.TotalAmount.StringFixed(2))

		if len(summary.ProcessedFiles) > 0 {
			w.WriteString("Processed Files:\n")
			w.WriteString(strings.Repeat("-", len(rule)) + "\n")
			for _, pf := range summary.ProcessedFiles {
				fmt.Fprintf(w, "  Input:        %s\n", pf.InputFile)
				fmt.Fprintf(w, "  Source:       %s\n", pf.SourceCode)
				if pf.ArchivePath != "" {
					fmt.Fprintf(w, "  Archived To:  %s\n", pf.ArchivePath)
				}
				fmt.Fprintf(w, "  Rows:         %d\n", pf.Rows)
				fmt.Fprintf(w, "  Images:       %d\n", pf.Images)
				fmt.Fprintf(w, "  Row Errors:   %d\n", pf.RowErrors)
				fmt.Fprintf(w, "  Amount:       EUR %s\n", pf.TotalAmount.StringFixed(2))
				fmt.Fprintf(w, "  Process Time: %s\n\n", pf.ProcessTime.String())
			}
		}

		if len(summary.FailedFilesList) > 0 {
			w.WriteString("Failed Files:\n")
			w.WriteString(strings.Repeat("-", len(rule)) + "\n")
			for _, ff := range summary.FailedFilesList {
				fmt.Fprintf(w, "  File:  %s\n", ff.InputFile)
				fmt.Fprintf(w, "  Type:  %s\n", ff.ErrorType)
				fmt.Fprintf(w, "  Error: %s\n\n", ff.ErrorMessage)
			}
		}

		fmt.Fprintf(w, "%s\nEnd of Summary\n", rule)
	})
}

// =============================================================================
// UTILITY FUNCTIONS
// =============================================================================

func writeTextFile(path string, write func(w *bufio.Writer)) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Base(path), err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	w := bufio.NewWriter(file)
	write(w)
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to flush %s: %w", filepath.Base(path), err)
	}
	return nil
}

// copyFile copies a file from src to dst.
func copyFile(src, dst string) error {
	sourceFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer sourceFile.Close()

	destFile, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer destFile.Close()

	if _, err := io.Copy(destFile, sourceFile); err != nil {
		return err
	}
	return destFile.Sync()
}

// FileExists checks if a file exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}
