package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/epc-qr-code-generator/internal/config"
	"github.com/ginjaninja78/epc-qr-code-generator/internal/logger"
)

const donationsSource = `source_name: Donations
source_code: DON
file_matching_patterns:
  - "donations_*.csv"
csv_settings:
  delimiter: ";"
column_mapping:
  name: Name
  account: IBAN
  amount: Betrag
  text: Zweck
transformation_rules:
  - field: amount
    actions:
      - type: decimal_comma
static_fields:
  - field: purpose
    value: GDDS
`

// batchWorkspace creates the batch directories under a temp dir, writes the
// donations source and the given input files.
func batchWorkspace(t *testing.T, inputs map[string]string) *config.MainConfig {
	t.Helper()
	root := t.TempDir()

	cfg := config.DefaultMainConfig()
	cfg.InputDir = filepath.Join(root, "input")
	cfg.OutputDir = filepath.Join(root, "output")
	cfg.InputArchiveDir = filepath.Join(root, "input_archive")
	cfg.OutputArchiveDir = filepath.Join(root, "output_archive")
	cfg.SourcesDir = filepath.Join(root, "sources")
	require.NoError(t, cfg.EnsureDirectories())

	require.NoError(t, os.WriteFile(filepath.Join(cfg.SourcesDir, "donations.yaml"), []byte(donationsSource), 0644))
	for name, content := range inputs {
		require.NoError(t, os.WriteFile(filepath.Join(cfg.InputDir, name), []byte(content), 0644))
	}
	return cfg
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func countPrefix(names []string, prefix string) int {
	n := 0
	for _, name := range names {
		if strings.HasPrefix(name, prefix) {
			n++
		}
	}
	return n
}

var batchInputs = map[string]string{
	"donations_01.csv": "Name;IBAN;Betrag;Zweck\n" +
		"Jane Doe;DE02120300000000202051;12,50;Invoice 42\n" +
		";DE02120300000000202051;1,00;Missing name\n",
	"unknown.csv": "a,b\n1,2\n",
}

func TestRunBatch(t *testing.T) {
	cfg := batchWorkspace(t, batchInputs)

	summary, err := runBatch(context.Background(), cfg, logger.Nop(), batchOptions{})
	require.NoError(t, err)

	assert.Equal(t, 2, summary.TotalFiles)
	assert.Equal(t, 1, summary.SuccessfulFiles)
	assert.Equal(t, 1, summary.FailedFiles)
	assert.Equal(t, 2, summary.TotalRows)
	assert.Equal(t, 1, summary.ImagesWritten)
	assert.Equal(t, 1, summary.RowErrors)
	assert.True(t, decimal.RequireFromString("12.50").Equal(summary.TotalAmount))

	require.Len(t, summary.FailedFilesList, 1)
	assert.Equal(t, "no_source", summary.FailedFilesList[0].ErrorType)

	// The processed file is archived, the unmatched one stays.
	assert.Equal(t, []string{"unknown.csv"}, listDir(t, cfg.InputDir))
	assert.Equal(t, []string{"donations_01.csv"}, listDir(t, cfg.InputArchiveDir))

	output := listDir(t, cfg.OutputDir)
	assert.Contains(t, output, "DON_2_epc-DE02120300000000202051-Invoice_42-qr-code.png")
	assert.Equal(t, 1, countPrefix(output, "error_log_"))
	assert.Equal(t, 1, countPrefix(output, "processing_summary_"))

	var errorLog string
	for _, name := range output {
		if strings.HasPrefix(name, "error_log_") {
			data, err := os.ReadFile(filepath.Join(cfg.OutputDir, name))
			require.NoError(t, err)
			errorLog = string(data)
		}
	}
	assert.Contains(t, errorLog, "Row Number: 3")
	assert.Contains(t, errorLog, "Fields:     name")
	assert.Contains(t, errorLog, "no matching source configuration found")
}

func TestRunBatch_DryRun(t *testing.T) {
	cfg := batchWorkspace(t, batchInputs)

	summary, err := runBatch(context.Background(), cfg, logger.Nop(), batchOptions{DryRun: true, SourceCode: "DON"})
	require.NoError(t, err)

	assert.True(t, summary.DryRun)
	assert.Equal(t, 1, summary.TotalFiles)
	assert.Equal(t, 0, summary.FailedFiles)
	assert.Equal(t, 0, summary.ImagesWritten)

	assert.ElementsMatch(t, []string{"donations_01.csv", "unknown.csv"}, listDir(t, cfg.InputDir))
	assert.Empty(t, listDir(t, cfg.InputArchiveDir))

	output := listDir(t, cfg.OutputDir)
	assert.Equal(t, 0, countPrefix(output, "DON_"))
	assert.Equal(t, 1, countPrefix(output, "processing_summary_"))
}

func TestRunBatch_ArchiveOutputs(t *testing.T) {
	cfg := batchWorkspace(t, map[string]string{
		"donations_02.csv": "Name;IBAN;Betrag;Zweck\nJane Doe;DE02120300000000202051;3,00;\n",
	})
	cfg.ArchiveOutputs = true
	cfg.ImageFormat = "jpeg"

	summary, err := runBatch(context.Background(), cfg, logger.Nop(), batchOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.ImagesWritten)

	assert.Equal(t, []string{"DON_2_epc-DE02120300000000202051-qr-code.jpg"}, listDir(t, cfg.OutputArchiveDir))
	assert.Equal(t, 0, countPrefix(listDir(t, cfg.OutputDir), "DON_"))
}

func TestRunBatch_ArchiveTimestampSubdirs(t *testing.T) {
	cfg := batchWorkspace(t, map[string]string{
		"donations_01.csv": "Name;IBAN;Betrag;Zweck\nJane Doe;DE02120300000000202051;3,00;\n",
	})
	cfg.ArchiveTimestampSubdirs = true

	before := time.Now()
	_, err := runBatch(context.Background(), cfg, logger.Nop(), batchOptions{})
	require.NoError(t, err)
	after := time.Now()

	archived := func(at time.Time) string {
		return filepath.Join(cfg.InputArchiveDir, at.Format("2006"), at.Format("01"), at.Format("02"), "donations_01.csv")
	}
	_, errBefore := os.Stat(archived(before))
	_, errAfter := os.Stat(archived(after))
	assert.True(t, errBefore == nil || errAfter == nil, "input not archived under a date subdirectory")
	assert.NotContains(t, listDir(t, cfg.InputArchiveDir), "donations_01.csv")
}

func TestRunBatch_StartErrors(t *testing.T) {
	cfg := batchWorkspace(t, nil)

	_, err := runBatch(context.Background(), cfg, logger.Nop(), batchOptions{SourceCode: "NOPE"})
	assert.ErrorContains(t, err, "unknown source code")

	_, err = runBatch(context.Background(), cfg, logger.Nop(), batchOptions{File: filepath.Join(cfg.InputDir, "missing.csv")})
	assert.ErrorContains(t, err, "does not exist")
}

func TestRunValidate(t *testing.T) {
	cfg := batchWorkspace(t, batchInputs)

	var out bytes.Buffer
	require.NoError(t, runValidate(&out, cfg))

	assert.Contains(t, out.String(), "Loaded 1 source configuration(s)")
	assert.Contains(t, out.String(), "donations_01.csv -> DON")
	assert.Contains(t, out.String(), "unknown.csv -> no matching source")
}
