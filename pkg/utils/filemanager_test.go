package utils

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFileManager(t *testing.T) *FileManager {
	t.Helper()
	root := t.TempDir()
	fm := NewFileManager(
		filepath.Join(root, "input"),
		filepath.Join(root, "output"),
		filepath.Join(root, "input_archive"),
		filepath.Join(root, "output_archive"),
	)
	require.NoError(t, fm.EnsureDirectories())
	return fm
}

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
}

func TestDeriveFileName(t *testing.T) {
	tests := []struct {
		name       string
		bic        string
		account    string
		remittance string
		want       string
	}{
		{"account only", "", "DE02120300000000202051", "", "epc-DE02120300000000202051-qr-code"},
		{"with remittance", "", "DE02120300000000202051", "Invoice 4711", "epc-DE02120300000000202051-Invoice_4711-qr-code"},
		{"with bic", "BYLADEM1001", "DE02120300000000202051", "", "epc-BYLADEM1001-DE02120300000000202051-qr-code"},
		{"all", "BYLADEM1001", "DE02 1203", "a/b\\c", "epc-BYLADEM1001-DE02_1203-a_b_c-qr-code"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveFileName(tt.bic, tt.account, tt.remittance))
		})
	}
}

func TestGenerateOutputFileName(t *testing.T) {
	name := GenerateOutputFileName("{source}_{row}_{derived}", map[string]string{
		"source":  "DON",
		"row":     "12",
		"derived": "epc-DE02-qr-code",
	}, ".png")
	assert.Equal(t, "DON_12_epc-DE02-qr-code.png", name)

	name = GenerateOutputFileName("{date}-{uuid}", nil, ".qoi")
	assert.Regexp(t, regexp.MustCompile(`^\d{8}-[0-9a-f-]{36}\.qoi$`), name)

	name = GenerateOutputFileName("{timestamp}_{time}", nil, ".jpg")
	assert.Regexp(t, regexp.MustCompile(`^\d{8}_\d{6}_\d{6}\.jpg$`), name)

	// The extension is not doubled and parameter values cannot add directories.
	name = GenerateOutputFileName("{derived}.PNG", map[string]string{"derived": "../x"}, ".png")
	assert.Equal(t, ".._x.PNG", name)
}

func TestDiscoverInputFiles(t *testing.T) {
	fm := newTestFileManager(t)
	for _, name := range []string{"b.csv", "a.XLSX", "notes.txt", ".hidden.csv", "~$a.xlsx"} {
		touch(t, filepath.Join(fm.InputDir, name))
	}
	require.NoError(t, os.Mkdir(filepath.Join(fm.InputDir, "dir.csv"), 0755))

	files, err := fm.DiscoverInputFiles()
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(fm.InputDir, "a.XLSX"),
		filepath.Join(fm.InputDir, "b.csv"),
	}, files)
}

func TestArchiveInputFile(t *testing.T) {
	fm := newTestFileManager(t)
	fm.now = func() time.Time { return time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC) }

	src := filepath.Join(fm.InputDir, "donations.csv")
	touch(t, src)

	archived, err := fm.ArchiveInputFile(src)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(fm.InputArchiveDir, "donations.csv"), archived)
	assert.NoFileExists(t, src)
	assert.FileExists(t, archived)

	// A second file of the same name does not overwrite the first.
	touch(t, src)
	second, err := fm.ArchiveInputFile(src)
	require.NoError(t, err)
	assert.NotEqual(t, archived, second)
	assert.Contains(t, second, "donations_20261018_093000")
	assert.FileExists(t, archived)
	assert.FileExists(t, second)
}

func TestArchiveOutputFile_TimestampSubdirs(t *testing.T) {
	fm := newTestFileManager(t)
	fm.UseTimestampSubdirs = true
	fm.now = func() time.Time { return time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC) }

	src := filepath.Join(fm.OutputDir, "code.png")
	touch(t, src)

	archived, err := fm.ArchiveOutputFile(src)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(fm.OutputArchiveDir, "2026", "01", "05", "code.png"), archived)
}

func TestWriteErrorLog(t *testing.T) {
	dir := t.TempDir()

	path, err := WriteErrorLog(nil, dir)
	require.NoError(t, err)
	assert.Empty(t, path)

	path, err = WriteErrorLog([]ErrorLogEntry{{
		Timestamp:    time.Now(),
		FileName:     "donations.csv",
		SourceCode:   "DON",
		ErrorType:    "validation",
		ErrorMessage: "at least one field had an invalid length: iban",
		RowNumber:    7,
		Fields:       []string{"iban"},
	}}, dir)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, "Total Errors: 1")
	assert.Contains(t, text, "Row Number: 7")
	assert.Contains(t, text, "Fields:     iban")
	assert.Contains(t, text, "Source:     DON")
}

func TestWriteSummaryLog(t *testing.T) {
	start := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	summary := ProcessingSummary{
		StartTime:       start,
		EndTime:         start.Add(3 * time.Second),
		TotalFiles:      2,
		SuccessfulFiles: 1,
		FailedFiles:     1,
		TotalRows:       3,
		ImagesWritten:   2,
		RowErrors:       1,
		TotalAmount:     decimal.RequireFromString("25.5"),
		ProcessedFiles: []ProcessedFileInfo{{
			InputFile:   "donations.csv",
			SourceCode:  "DON",
			Rows:        3,
			Images:      2,
			RowErrors:   1,
			TotalAmount: decimal.RequireFromString("25.5"),
		}},
		FailedFilesList: []FailedFileInfo{{InputFile: "x.csv", ErrorType: "no_source", ErrorMessage: "no source config"}},
	}

	path, err := WriteSummaryLog(summary, t.TempDir())
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, "Duration:       3s")
	assert.Contains(t, text, "Images Written: 2")
	assert.Contains(t, text, "Total Amount:   EUR 25.50")
	assert.Contains(t, text, "Source:       DON")
	assert.Contains(t, text, "Error: no source config")
}
