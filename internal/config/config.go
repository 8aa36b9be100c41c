// =============================================================================
// EPC QR Code Generator - Configuration Module
// =============================================================================
//
// This module loads the main application configuration and the per-source
// batch configurations.
//
// CONFIGURATION FILES:
//   1. Main Config (config.yaml): directories, logging, image defaults
//   2. Source Configs (sources/*.yaml): how one kind of input file maps to
//      payment records
//
// PRECEDENCE (highest first):
//   1. Command line flags
//   2. EPCQR_* environment variables
//   3. config.yaml
//   4. Built-in defaults
//
// The main config file is optional. Without one the built-in defaults are
// used, which is all the generate and payload commands need.
//
// =============================================================================

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of environment variables overriding the main config.
const EnvPrefix = "EPCQR"

// Payment field names used in column mappings, transformation rules and
// static fields.
const (
	FieldName      = "name"
	FieldAccount   = "account"
	FieldBIC       = "bic"
	FieldAmount    = "amount"
	FieldPurpose   = "purpose"
	FieldReference = "reference"
	FieldText      = "text"
	FieldInfo      = "info"
)

// PaymentFields lists every payment field in payload order.
var PaymentFields = []string{
	FieldBIC, FieldName, FieldAccount, FieldAmount,
	FieldPurpose, FieldReference, FieldText, FieldInfo,
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// =============================================================================
// MAIN CONFIGURATION STRUCTURE
// =============================================================================

// MainConfig holds the global application configuration.
type MainConfig struct {
	// =========================================================================
	// DIRECTORY SETTINGS
	// =========================================================================

	// InputDir is scanned by the batch command for CSV and XLSX files.
	// Default: "./input"
	InputDir string `yaml:"input_dir" validate:"required"`

	// OutputDir receives generated images, error logs and summaries.
	// Default: "./output"
	OutputDir string `yaml:"output_dir" validate:"required"`

	// InputArchiveDir receives input files after they were processed.
	// Default: "./input_archive"
	InputArchiveDir string `yaml:"input_archive_dir" validate:"required"`

	// OutputArchiveDir is where ArchiveOutputs moves finished images.
	// Default: "./output_archive"
	OutputArchiveDir string `yaml:"output_archive_dir" validate:"required"`

	// SourcesDir contains one YAML file per input source.
	// Default: "./sources"
	SourcesDir string `yaml:"sources_dir" validate:"required"`

	// =========================================================================
	// LOGGING SETTINGS
	// =========================================================================

	Log LogConfig `yaml:"log"`

	// =========================================================================
	// OUTPUT SETTINGS
	// =========================================================================

	// FileNameFormat names images written by the generate command when no
	// --output is given. Placeholders:
	//   {derived}   - epc-[<bic>-]<account>[-<text>]-qr-code
	//   {account}   - beneficiary account
	//   {bic}       - BIC, empty when absent
	//   {uuid}      - a random UUID
	//   {timestamp} - YYYYMMDD_HHMMSS
	//   {date}      - YYYYMMDD
	//   {time}      - HHMMSS
	// The image extension is appended.
	// Default: "{derived}"
	FileNameFormat string `yaml:"file_name_format" validate:"required"`

	// BatchFileNameFormat names images written by the batch command. It
	// accepts the placeholders above plus {source} and {row}.
	// Default: "{source}_{row}_{derived}"
	BatchFileNameFormat string `yaml:"batch_file_name_format" validate:"required"`

	// ImageFormat is the default output format.
	// Valid values: "png", "jpeg", "qoi"
	// Default: "png"
	ImageFormat string `yaml:"image_format" validate:"oneof=png jpeg qoi"`

	// ModuleSize is the edge length of one QR module in pixels.
	// Default: 8
	ModuleSize int `yaml:"module_size" validate:"min=1,max=64"`

	// QuietZone is the light border width in modules. An explicit 0 in the
	// config file disables the border.
	// Default: 4
	QuietZone int `yaml:"quiet_zone" validate:"min=0,max=16"`

	// JPEGQuality is used when ImageFormat is "jpeg".
	// Default: 90
	JPEGQuality int `yaml:"jpeg_quality" validate:"min=1,max=100"`

	// =========================================================================
	// PROCESSING SETTINGS
	// =========================================================================

	// MaxConcurrency bounds the number of input files processed at once.
	// Set to 1 for sequential processing.
	// Default: 4
	MaxConcurrency int `yaml:"max_concurrency" validate:"min=1"`

	// ContinueOnError keeps processing the remaining rows and files after a
	// row fails.
	// Default: true
	ContinueOnError bool `yaml:"continue_on_error"`

	// ArchiveInputs moves processed input files to InputArchiveDir.
	// Default: true
	ArchiveInputs bool `yaml:"archive_inputs"`

	// ArchiveOutputs moves generated images to OutputArchiveDir once a file
	// completed without errors.
	// Default: false
	ArchiveOutputs bool `yaml:"archive_outputs"`

	// ArchiveTimestampSubdirs files archived inputs and images under
	// YYYY/MM/DD subdirectories of the archive directories.
	// Default: false
	ArchiveTimestampSubdirs bool `yaml:"archive_timestamp_subdirs"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	// Level: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level" validate:"oneof=debug info warn warning error"`

	// Format: "console" or "json"
	// Default: "console"
	Format string `yaml:"format" validate:"oneof=console json"`

	// Output: "stdout", "stderr" or a file path.
	// Default: "stderr"
	Output string `yaml:"output" validate:"required"`
}

// DefaultMainConfig returns the built-in configuration.
func DefaultMainConfig() *MainConfig {
	config := &MainConfig{
		QuietZone:       4,
		ContinueOnError: true,
		ArchiveInputs:   true,
	}
	applyMainConfigDefaults(config)
	return config
}

// =============================================================================
// SOURCE CONFIGURATION STRUCTURE
// =============================================================================

// SourceConfig describes one kind of batch input file.
type SourceConfig struct {
	// SourceName is the human-readable name used in logs.
	SourceName string `yaml:"source_name"`

	// SourceCode is a short code used for {source} in file names and for
	// --source. Defaults to the config file name without extension.
	SourceCode string `yaml:"source_code" validate:"required"`

	// FileMatchingPatterns are glob patterns matched against input file names.
	//
	// CUSTOMIZATION: Examples:
	//   - "donations_*.csv"
	//   - "*_invoices.xlsx"
	FileMatchingPatterns []string `yaml:"file_matching_patterns" validate:"required,min=1,dive,required"`

	CSVSettings  CSVSettings  `yaml:"csv_settings"`
	XLSXSettings XLSXSettings `yaml:"xlsx_settings"`

	// ColumnMapping maps payment fields to input column headers.
	ColumnMapping ColumnMapping `yaml:"column_mapping"`

	// TransformationRules are applied to mapped field values before the
	// payment record is built.
	TransformationRules []TransformationRule `yaml:"transformation_rules" validate:"dive"`

	// StaticFields set a payment field to a constant for every row. A mapped
	// column value takes precedence when it is not empty.
	StaticFields []StaticField `yaml:"static_fields" validate:"dive"`

	// CharacterSet is the EPC character set code written to the payload.
	// Default: 1 (UTF-8)
	CharacterSet string `yaml:"character_set"`

	// FileNameFormat overrides MainConfig.BatchFileNameFormat for this source.
	FileNameFormat string `yaml:"file_name_format,omitempty"`

	// ImageFormat overrides MainConfig.ImageFormat for this source.
	ImageFormat string `yaml:"image_format,omitempty" validate:"omitempty,oneof=png jpeg qoi"`
}

// CSVSettings contains settings for parsing CSV files.
type CSVSettings struct {
	// Delimiter separates fields. Common values: ",", ";", "|", or the
	// names "tab", "pipe" and "semicolon".
	// Default: ","
	Delimiter string `yaml:"delimiter" validate:"len=1|oneof=tab pipe semicolon"`

	// HeaderRows is the number of header rows. The last one names the columns.
	// Default: 1
	HeaderRows int `yaml:"header_rows" validate:"min=1"`

	// DataStartRow is the 1-based row where data begins.
	// Default: HeaderRows + 1
	DataStartRow int `yaml:"data_start_row" validate:"gtfield=HeaderRows"`

	// Encoding of the file: "UTF-8", "ISO-8859-1", "ISO-8859-15", "Windows-1252"
	// Default: "UTF-8"
	Encoding string `yaml:"encoding"`

	// TrimSpace trims leading and trailing whitespace from every value.
	// Default: false
	TrimSpace bool `yaml:"trim_space"`
}

// XLSXSettings contains settings for reading XLSX workbooks.
type XLSXSettings struct {
	// SheetName is the sheet holding the payment rows.
	// Default: the first sheet
	SheetName string `yaml:"sheet_name"`

	// HeaderRow is the 1-based row naming the columns.
	// Default: 1
	HeaderRow int `yaml:"header_row" validate:"min=1"`

	// DataStartRow is the 1-based row where data begins.
	// Default: HeaderRow + 1
	DataStartRow int `yaml:"data_start_row" validate:"gtfield=HeaderRow"`
}

// ColumnMapping maps payment fields to input column headers. Name and
// Account are required; unmapped optional fields are absent from every record
// unless a static field sets them.
type ColumnMapping struct {
	Name      string `yaml:"name" validate:"required"`
	Account   string `yaml:"account" validate:"required"`
	BIC       string `yaml:"bic,omitempty"`
	Amount    string `yaml:"amount,omitempty"`
	Purpose   string `yaml:"purpose,omitempty"`
	Reference string `yaml:"reference,omitempty"`
	Text      string `yaml:"text,omitempty"`
	Info      string `yaml:"info,omitempty"`
}

// Columns returns the mapped column header for each payment field.
func (m ColumnMapping) Columns() map[string]string {
	columns := map[string]string{
		FieldName:      m.Name,
		FieldAccount:   m.Account,
		FieldBIC:       m.BIC,
		FieldAmount:    m.Amount,
		FieldPurpose:   m.Purpose,
		FieldReference: m.Reference,
		FieldText:      m.Text,
		FieldInfo:      m.Info,
	}
	for field, column := range columns {
		if column == "" {
			delete(columns, field)
		}
	}
	return columns
}

// TransformationRule defines the actions applied to one payment field.
type TransformationRule struct {
	Field   string                 `yaml:"field" validate:"oneof=name account bic amount purpose reference text info"`
	Actions []TransformationAction `yaml:"actions" validate:"required,min=1,dive"`
}

// TransformationAction defines a single transformation.
type TransformationAction struct {
	// Type is one of:
	//   - "trim", "uppercase", "lowercase"
	//   - "remove_spaces"        : strip all whitespace (IBANs, BICs)
	//   - "prepend_string"       : Value is prepended
	//   - "append_string"        : Value is appended
	//   - "replace"              : Find is replaced by Value
	//   - "regex_replace"        : pattern Find is replaced by Value
	//   - "truncate"             : cut to Value characters
	//   - "format_number"        : round to Value decimal places
	//   - "decimal_comma"        : "1.234,50" -> "1234.50"
	//   - "lookup"               : replace through LookupTable
	//   - "if_empty_use_default" : Value when the field is empty
	Type string `yaml:"type" validate:"oneof=trim uppercase lowercase remove_spaces prepend_string append_string replace regex_replace truncate format_number decimal_comma lookup if_empty_use_default"`

	Value       string            `yaml:"value"`
	Find        string            `yaml:"find,omitempty"`
	LookupTable map[string]string `yaml:"lookup_table,omitempty"`
}

// StaticField sets a payment field to a constant.
type StaticField struct {
	Field string `yaml:"field" validate:"oneof=name account bic amount purpose reference text info"`
	Value string `yaml:"value"`
}

// =============================================================================
// CONFIGURATION LOADING FUNCTIONS
// =============================================================================

// LoadMainConfig loads the main configuration from a YAML file.
//
// PARAMETERS:
//   - configPath: The path to the main configuration file. A missing file
//     yields the built-in defaults when allowMissing is set.
//
// RETURNS:
//   - A pointer to the MainConfig struct.
//   - An error if the file cannot be read, parsed or validated.
func LoadMainConfig(configPath string, allowMissing bool) (*MainConfig, error) {
	config := DefaultMainConfig()

	data, err := os.ReadFile(configPath)
	if err != nil {
		if allowMissing && errors.Is(err, os.ErrNotExist) {
			return config, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Unmarshal over the defaults so unset booleans keep their defaults.
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyMainConfigDefaults(config)

	if err := ValidateMainConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// applyMainConfigDefaults sets default values for any unset configuration options.
func applyMainConfigDefaults(config *MainConfig) {
	if config.InputDir == "" {
		config.InputDir = "./input"
	}
	if config.OutputDir == "" {
		config.OutputDir = "./output"
	}
	if config.InputArchiveDir == "" {
		config.InputArchiveDir = "./input_archive"
	}
	if config.OutputArchiveDir == "" {
		config.OutputArchiveDir = "./output_archive"
	}
	if config.SourcesDir == "" {
		config.SourcesDir = "./sources"
	}
	if config.Log.Level == "" {
		config.Log.Level = "info"
	}
	if config.Log.Format == "" {
		config.Log.Format = "console"
	}
	if config.Log.Output == "" {
		config.Log.Output = "stderr"
	}
	if config.FileNameFormat == "" {
		config.FileNameFormat = "{derived}"
	}
	if config.BatchFileNameFormat == "" {
		config.BatchFileNameFormat = "{source}_{row}_{derived}"
	}
	if config.ImageFormat == "" {
		config.ImageFormat = "png"
	}
	if config.ModuleSize == 0 {
		config.ModuleSize = 8
	}
	if config.JPEGQuality == 0 {
		config.JPEGQuality = 90
	}
	if config.MaxConcurrency == 0 {
		config.MaxConcurrency = 4
	}
	config.ImageFormat = strings.ToLower(config.ImageFormat)
}

// ValidateMainConfig checks the struct constraints of the main configuration.
func ValidateMainConfig(config *MainConfig) error {
	return describe(validate.Struct(config))
}

// EnsureDirectories creates the batch directories if they do not exist.
func (c *MainConfig) EnsureDirectories() error {
	for _, dir := range []string{c.InputDir, c.OutputDir, c.InputArchiveDir, c.OutputArchiveDir, c.SourcesDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// ApplyOverrides copies values set through flags or EPCQR_* environment
// variables from v onto config and re-validates it. Keys use the YAML names,
// with "log.level" style keys for the log section.
func ApplyOverrides(config *MainConfig, v *viper.Viper) error {
	strs := map[string]*string{
		"input_dir":              &config.InputDir,
		"output_dir":             &config.OutputDir,
		"input_archive_dir":      &config.InputArchiveDir,
		"output_archive_dir":     &config.OutputArchiveDir,
		"sources_dir":            &config.SourcesDir,
		"file_name_format":       &config.FileNameFormat,
		"batch_file_name_format": &config.BatchFileNameFormat,
		"image_format":           &config.ImageFormat,
		"log.level":              &config.Log.Level,
		"log.format":             &config.Log.Format,
		"log.output":             &config.Log.Output,
	}
	for key, dst := range strs {
		if v.IsSet(key) {
			*dst = v.GetString(key)
		}
	}

	ints := map[string]*int{
		"module_size":     &config.ModuleSize,
		"quiet_zone":      &config.QuietZone,
		"jpeg_quality":    &config.JPEGQuality,
		"max_concurrency": &config.MaxConcurrency,
	}
	for key, dst := range ints {
		if v.IsSet(key) {
			*dst = v.GetInt(key)
		}
	}

	bools := map[string]*bool{
		"continue_on_error":         &config.ContinueOnError,
		"archive_inputs":            &config.ArchiveInputs,
		"archive_outputs":           &config.ArchiveOutputs,
		"archive_timestamp_subdirs": &config.ArchiveTimestampSubdirs,
	}
	for key, dst := range bools {
		if v.IsSet(key) {
			*dst = v.GetBool(key)
		}
	}

	config.ImageFormat = strings.ToLower(config.ImageFormat)
	if err := ValidateMainConfig(config); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// NewViper returns a viper instance reading EPCQR_* environment variables,
// e.g. EPCQR_OUTPUT_DIR or EPCQR_LOG_LEVEL.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// =============================================================================
// SOURCE CONFIGURATION LOADING
// =============================================================================

// LoadSourceConfigs loads all source configurations from a directory.
//
// RETURNS:
//   - A map of source configurations, keyed by source code.
//   - An error if any file cannot be parsed or validated, or if two files
//     share a source code.
func LoadSourceConfigs(sourcesDir string) (map[string]*SourceConfig, error) {
	configs := make(map[string]*SourceConfig)

	files, err := filepath.Glob(filepath.Join(sourcesDir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("failed to list source configs: %w", err)
	}
	ymlFiles, err := filepath.Glob(filepath.Join(sourcesDir, "*.yml"))
	if err != nil {
		return nil, fmt.Errorf("failed to list source configs: %w", err)
	}
	files = append(files, ymlFiles...)
	sort.Strings(files)

	for _, file := range files {
		config, err := LoadSourceConfig(file)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", file, err)
		}
		if _, exists := configs[config.SourceCode]; exists {
			return nil, fmt.Errorf("duplicate source code %q in %s", config.SourceCode, file)
		}
		configs[config.SourceCode] = config
	}

	return configs, nil
}

// LoadSourceConfig loads and validates a single source configuration file.
func LoadSourceConfig(filePath string) (*SourceConfig, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var config SourceConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse file: %w", err)
	}

	if config.SourceCode == "" {
		base := filepath.Base(filePath)
		config.SourceCode = strings.TrimSuffix(base, filepath.Ext(base))
	}
	applySourceConfigDefaults(&config)

	if err := describe(validate.Struct(&config)); err != nil {
		return nil, fmt.Errorf("invalid source config: %w", err)
	}

	return &config, nil
}

// applySourceConfigDefaults sets default values for source configuration.
func applySourceConfigDefaults(config *SourceConfig) {
	if config.SourceName == "" {
		config.SourceName = config.SourceCode
	}
	if config.CSVSettings.Delimiter == "" {
		config.CSVSettings.Delimiter = ","
	}
	if config.CSVSettings.HeaderRows == 0 {
		config.CSVSettings.HeaderRows = 1
	}
	if config.CSVSettings.DataStartRow == 0 {
		config.CSVSettings.DataStartRow = config.CSVSettings.HeaderRows + 1
	}
	if config.CSVSettings.Encoding == "" {
		config.CSVSettings.Encoding = "UTF-8"
	}
	if config.XLSXSettings.HeaderRow == 0 {
		config.XLSXSettings.HeaderRow = 1
	}
	if config.XLSXSettings.DataStartRow == 0 {
		config.XLSXSettings.DataStartRow = config.XLSXSettings.HeaderRow + 1
	}
	if config.CharacterSet == "" {
		config.CharacterSet = "1"
	}
	config.ImageFormat = strings.ToLower(config.ImageFormat)
}

// Matches reports whether fileName matches any of the source's patterns.
func (c *SourceConfig) Matches(fileName string) bool {
	base := filepath.Base(fileName)
	for _, pattern := range c.FileMatchingPatterns {
		if ok, err := filepath.Match(pattern, base); err == nil && ok {
			return true
		}
	}
	return false
}

// FindSourceConfig returns the first source, in source code order, whose
// patterns match fileName.
func FindSourceConfig(configs map[string]*SourceConfig, fileName string) (*SourceConfig, bool) {
	codes := make([]string, 0, len(configs))
	for code := range configs {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	for _, code := range codes {
		if configs[code].Matches(fileName) {
			return configs[code], true
		}
	}
	return nil, false
}

// describe flattens validator errors into one readable error.
func describe(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s: failed %s=%s (got %v)", fe.Namespace(), fe.Tag(), fe.Param(), fe.Value()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s: failed %s", fe.Namespace(), fe.Tag()))
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}
