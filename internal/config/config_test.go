package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadMainConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadMainConfig(filepath.Join(t.TempDir(), "config.yaml"), true)
	require.NoError(t, err)

	assert.Equal(t, DefaultMainConfig(), cfg)
	assert.Equal(t, "png", cfg.ImageFormat)
	assert.Equal(t, 8, cfg.ModuleSize)
	assert.Equal(t, 4, cfg.QuietZone)
	assert.Equal(t, 4, cfg.MaxConcurrency)
	assert.Equal(t, "{derived}", cfg.FileNameFormat)
	assert.Equal(t, "{source}_{row}_{derived}", cfg.BatchFileNameFormat)
	assert.True(t, cfg.ContinueOnError)
	assert.True(t, cfg.ArchiveInputs)
	assert.Equal(t, LogConfig{Level: "info", Format: "console", Output: "stderr"}, cfg.Log)
}

func TestLoadMainConfig_MissingFileRequired(t *testing.T) {
	_, err := LoadMainConfig(filepath.Join(t.TempDir(), "config.yaml"), false)
	assert.Error(t, err)
}

func TestLoadMainConfig_FileOverridesDefaults(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yaml", `
output_dir: ./codes
image_format: QOI
quiet_zone: 0
continue_on_error: false
log:
  level: debug
  format: json
`)

	cfg, err := LoadMainConfig(path, false)
	require.NoError(t, err)

	assert.Equal(t, "./codes", cfg.OutputDir)
	assert.Equal(t, "./input", cfg.InputDir)
	assert.Equal(t, "qoi", cfg.ImageFormat)
	assert.Equal(t, 0, cfg.QuietZone)
	assert.False(t, cfg.ContinueOnError)
	assert.True(t, cfg.ArchiveInputs)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "stderr", cfg.Log.Output)
}

func TestLoadMainConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"image format", "image_format: gif\n", "ImageFormat"},
		{"module size", "module_size: 100\n", "ModuleSize"},
		{"log format", "log:\n  format: xml\n", "Format"},
		{"concurrency", "max_concurrency: -1\n", "MaxConcurrency"},
		{"yaml", "output_dir: [\n", "parse"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "config.yaml", tt.content)
			_, err := LoadMainConfig(path, false)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestApplyOverrides(t *testing.T) {
	t.Setenv("EPCQR_OUTPUT_DIR", "/tmp/epc")
	t.Setenv("EPCQR_LOG_LEVEL", "warn")

	v := NewViper()
	v.Set("image_format", "JPEG")
	v.Set("module_size", 4)
	v.Set("archive_outputs", true)
	v.Set("archive_timestamp_subdirs", true)

	cfg := DefaultMainConfig()
	require.NoError(t, ApplyOverrides(cfg, v))

	assert.Equal(t, "/tmp/epc", cfg.OutputDir)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "jpeg", cfg.ImageFormat)
	assert.Equal(t, 4, cfg.ModuleSize)
	assert.True(t, cfg.ArchiveOutputs)
	assert.True(t, cfg.ArchiveTimestampSubdirs)
	assert.Equal(t, "./input", cfg.InputDir)
	assert.Equal(t, 4, cfg.QuietZone)
}

func TestApplyOverrides_Invalid(t *testing.T) {
	v := NewViper()
	v.Set("image_format", "bmp")

	err := ApplyOverrides(DefaultMainConfig(), v)
	assert.Error(t, err)
}

func TestEnsureDirectories(t *testing.T) {
	root := t.TempDir()
	cfg := DefaultMainConfig()
	cfg.InputDir = filepath.Join(root, "in")
	cfg.OutputDir = filepath.Join(root, "out")
	cfg.InputArchiveDir = filepath.Join(root, "in_archive")
	cfg.OutputArchiveDir = filepath.Join(root, "out_archive")
	cfg.SourcesDir = filepath.Join(root, "sources")

	require.NoError(t, cfg.EnsureDirectories())
	for _, dir := range []string{cfg.InputDir, cfg.OutputDir, cfg.InputArchiveDir, cfg.OutputArchiveDir, cfg.SourcesDir} {
		assert.DirExists(t, dir)
	}
}

const donationsSource = `
source_name: Donations
source_code: DON
file_matching_patterns:
  - "donations_*.csv"
  - "donations_*.xlsx"
csv_settings:
  delimiter: ";"
  encoding: ISO-8859-1
column_mapping:
  name: Empfaenger
  account: IBAN
  amount: Betrag
  text: Verwendungszweck
transformation_rules:
  - field: account
    actions:
      - type: remove_spaces
      - type: uppercase
static_fields:
  - field: purpose
    value: CHAR
`

func TestLoadSourceConfigs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "donations.yaml", donationsSource)
	writeFile(t, dir, "invoices.yml", `
file_matching_patterns: ["invoices_*.csv"]
column_mapping:
  name: Name
  account: Account
`)
	writeFile(t, dir, "notes.txt", "ignored")

	configs, err := LoadSourceConfigs(dir)
	require.NoError(t, err)
	require.Len(t, configs, 2)

	don := configs["DON"]
	require.NotNil(t, don)
	assert.Equal(t, "Donations", don.SourceName)
	assert.Equal(t, ";", don.CSVSettings.Delimiter)
	assert.Equal(t, 1, don.CSVSettings.HeaderRows)
	assert.Equal(t, 2, don.CSVSettings.DataStartRow)
	assert.Equal(t, "ISO-8859-1", don.CSVSettings.Encoding)
	assert.Equal(t, 1, don.XLSXSettings.HeaderRow)
	assert.Equal(t, 2, don.XLSXSettings.DataStartRow)
	assert.Equal(t, "1", don.CharacterSet)
	assert.Equal(t, map[string]string{
		FieldName:    "Empfaenger",
		FieldAccount: "IBAN",
		FieldAmount:  "Betrag",
		FieldText:    "Verwendungszweck",
	}, don.ColumnMapping.Columns())
	require.Len(t, don.TransformationRules, 1)
	assert.Len(t, don.TransformationRules[0].Actions, 2)
	assert.Equal(t, []StaticField{{Field: FieldPurpose, Value: "CHAR"}}, don.StaticFields)

	inv := configs["invoices"]
	require.NotNil(t, inv)
	assert.Equal(t, "invoices", inv.SourceName)
	assert.Equal(t, ",", inv.CSVSettings.Delimiter)
}

func TestLoadSourceConfigs_Errors(t *testing.T) {
	tests := []struct {
		name    string
		files   map[string]string
		wantErr string
	}{
		{
			name: "duplicate source code",
			files: map[string]string{
				"a.yaml": donationsSource,
				"b.yaml": donationsSource,
			},
			wantErr: "duplicate source code",
		},
		{
			name: "missing account column",
			files: map[string]string{
				"a.yaml": "file_matching_patterns: [\"*.csv\"]\ncolumn_mapping:\n  name: Name\n",
			},
			wantErr: "Account",
		},
		{
			name: "no patterns",
			files: map[string]string{
				"a.yaml": "column_mapping:\n  name: Name\n  account: IBAN\n",
			},
			wantErr: "FileMatchingPatterns",
		},
		{
			name: "unknown transformation",
			files: map[string]string{
				"a.yaml": "file_matching_patterns: [\"*.csv\"]\ncolumn_mapping: {name: N, account: A}\ntransformation_rules:\n  - field: name\n    actions: [{type: explode}]\n",
			},
			wantErr: "Type",
		},
		{
			name: "unknown static field",
			files: map[string]string{
				"a.yaml": "file_matching_patterns: [\"*.csv\"]\ncolumn_mapping: {name: N, account: A}\nstatic_fields: [{field: iban, value: x}]\n",
			},
			wantErr: "Field",
		},
		{
			name: "multi-character delimiter",
			files: map[string]string{
				"a.yaml": "file_matching_patterns: [\"*.csv\"]\ncolumn_mapping: {name: N, account: A}\ncsv_settings: {delimiter: \";;\"}\n",
			},
			wantErr: "Delimiter",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			for name, content := range tt.files {
				writeFile(t, dir, name, content)
			}
			_, err := LoadSourceConfigs(dir)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestFindSourceConfig(t *testing.T) {
	configs := map[string]*SourceConfig{
		"DON": {SourceCode: "DON", FileMatchingPatterns: []string{"donations_*.csv"}},
		"INV": {SourceCode: "INV", FileMatchingPatterns: []string{"*.csv", "*.xlsx"}},
	}

	src, ok := FindSourceConfig(configs, filepath.Join("input", "donations_2026.csv"))
	require.True(t, ok)
	assert.Equal(t, "DON", src.SourceCode)

	src, ok = FindSourceConfig(configs, "march.xlsx")
	require.True(t, ok)
	assert.Equal(t, "INV", src.SourceCode)

	_, ok = FindSourceConfig(configs, "readme.md")
	assert.False(t, ok)
}
