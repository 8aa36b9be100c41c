// =============================================================================
// EPC QR Code Generator - Batch Converter
// =============================================================================
//
// This module turns one batch input file into QR code images, one per row.
//
// CONVERSION PIPELINE (per file):
//   1. Parse the CSV or XLSX file into a table
//   2. Check that every mapped column exists
//   3. For each row:
//      a. Map columns to payment fields, fill static fields
//      b. Apply transformation rules
//      c. Build the payment record
//      d. Validate and serialize the payload
//      e. Render the QR matrix
//      f. Write the image (skipped in dry-run mode)
//      g. Collect advisory warnings
//
// ERROR HANDLING:
//   A failing row is recorded with one entry per offending field. With
//   ContinueOnError the remaining rows are still processed; otherwise the
//   file stops at the first failing row.
//
// CONCURRENCY:
//   A Converter handles one file and holds no shared mutable state, so the
//   batch command runs one per file in parallel.
//
// =============================================================================

package converter

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/epc-qr-code-generator/internal/config"
	"github.com/ginjaninja78/epc-qr-code-generator/internal/csvparser"
	"github.com/ginjaninja78/epc-qr-code-generator/internal/epc"
	"github.com/ginjaninja78/epc-qr-code-generator/internal/imagewriter"
	"github.com/ginjaninja78/epc-qr-code-generator/internal/qrrender"
	"github.com/ginjaninja78/epc-qr-code-generator/internal/types"
	"github.com/ginjaninja78/epc-qr-code-generator/internal/validation"
	"github.com/ginjaninja78/epc-qr-code-generator/internal/xlsxparser"
	"github.com/ginjaninja78/epc-qr-code-generator/pkg/utils"
)

// File-level error types, used in error logs and summaries.
const (
	ErrorTypeParse       = "parse"
	ErrorTypeColumns     = "columns"
	ErrorTypeUnsupported = "unsupported_file"
	ErrorTypeRow         = "row"
	ErrorTypeCanceled    = "canceled"
)

// ErrUnsupportedFile is returned for input files that are neither CSV nor XLSX.
var ErrUnsupportedFile = errors.New("unsupported input file type")

// =============================================================================
// RESULT STRUCTURE
// =============================================================================

// Result represents the outcome of processing a single file.
type Result struct {
	FilePath   string
	SourceCode string

	// Success is false when the file could not be read or processing stopped
	// early. Individual row failures under ContinueOnError do not clear it.
	Success bool

	// Error is the file-level failure, or the first row failure when
	// processing stopped early.
	Error     error
	ErrorType string

	Rows  []RowResult
	Stats ProcessingStats
}

// RowResult is the outcome of one input row.
type RowResult struct {
	RowNumber int

	// Payload is the serialized EPC payload, empty if the row failed.
	Payload string

	// OutputFile is the written image, empty in dry-run mode or on failure.
	OutputFile string

	Amount decimal.Decimal

	// Problems holds errors and warnings for this row.
	Problems []*validation.RowError
}

// Failed reports whether the row produced no QR code.
func (r RowResult) Failed() bool {
	return validation.HasErrors(r.Problems)
}

// ProcessingStats contains statistics about the processing.
type ProcessingStats struct {
	RowsProcessed  int
	ImagesWritten  int
	RowErrors      int
	Warnings       int
	TotalAmount    decimal.Decimal
	ProcessingTime time.Duration
}

// OutputFiles lists the images written for this file.
func (r Result) OutputFiles() []string {
	var files []string
	for _, row := range r.Rows {
		if row.OutputFile != "" {
			files = append(files, row.OutputFile)
		}
	}
	return files
}

// =============================================================================
// CONVERTER STRUCTURE
// =============================================================================

// Logger is the logging interface used by the converter.
// *zap.SugaredLogger satisfies it.
type Logger interface {
	Debugf(template string, args ...interface{})
	Infof(template string, args ...interface{})
	Warnf(template string, args ...interface{})
	Errorf(template string, args ...interface{})
}

// Options controls output of a conversion.
type Options struct {
	// OutputDir receives the images.
	OutputDir string

	// FileNameFormat is expanded by utils.GenerateOutputFileName with the
	// placeholders {derived}, {source}, {row}, {account} and {bic}.
	FileNameFormat string

	ImageFormat imagewriter.Format
	Image       imagewriter.Options

	// DryRun validates and renders every row without writing images.
	DryRun bool

	ContinueOnError bool

	Validation validation.Options
}

// Converter handles the conversion of a single input file.
type Converter struct {
	path        string
	source      *config.SourceConfig
	options     Options
	renderer    qrrender.Renderer
	validator   *validation.Validator
	transformer *Transformer
	logger      Logger
}

// New creates a Converter for one input file.
func New(path string, source *config.SourceConfig, options Options) *Converter {
	return &Converter{
		path:        path,
		source:      source,
		options:     options,
		renderer:    qrrender.New(),
		validator:   validation.NewValidator(options.Validation),
		transformer: NewTransformer(source.TransformationRules),
		logger:      nopLogger{},
	}
}

// WithLogger sets the logger.
func (c *Converter) WithLogger(logger Logger) *Converter {
	c.logger = logger
	return c
}

// WithRenderer replaces the QR renderer.
func (c *Converter) WithRenderer(renderer qrrender.Renderer) *Converter {
	c.renderer = renderer
	return c
}

// =============================================================================
// CONVERSION PIPELINE
// =============================================================================

// Run processes the file. It stops between rows when ctx is canceled.
func (c *Converter) Run(ctx context.Context) Result {
	start := time.Now()
	result := Result{
		FilePath:   c.path,
		SourceCode: c.source.SourceCode,
		Stats:      ProcessingStats{TotalAmount: decimal.Zero},
	}
	defer func() { result.Stats.ProcessingTime = time.Since(start) }()

	c.logger.Infof("Processing file %s with source %s", c.path, c.source.SourceCode)

	table, err := c.parse()
	if err != nil {
		result.Error = err
		result.ErrorType = ErrorTypeParse
		if errors.Is(err, ErrUnsupportedFile) {
			result.ErrorType = ErrorTypeUnsupported
		}
		c.logger.Errorf("Failed to read %s: %v", c.path, err)
		return result
	}
	c.logger.Debugf("Parsed %d rows from %s", len(table.Rows), c.path)

	if err := validation.CheckColumns(table.Headers, c.source.ColumnMapping.Columns()); err != nil {
		result.Error = err
		result.ErrorType = ErrorTypeColumns
		c.logger.Errorf("%s: %v", c.path, err)
		return result
	}

	for _, row := range table.Rows {
		if err := ctx.Err(); err != nil {
			result.Error = err
			result.ErrorType = ErrorTypeCanceled
			return result
		}

		rr := c.processRow(row)
		result.Rows = append(result.Rows, rr)
		result.Stats.RowsProcessed++

		for _, p := range rr.Problems {
			if p.Severity == validation.SeverityWarning {
				result.Stats.Warnings++
				c.logger.Warnf("%s: %s", filepath.Base(c.path), p.Error())
			} else {
				c.logger.Errorf("%s: %s", filepath.Base(c.path), p.Error())
			}
		}

		if rr.Failed() {
			result.Stats.RowErrors++
			if !c.options.ContinueOnError {
				result.Error = fmt.Errorf("row %d failed: %s", rr.RowNumber, rr.Problems[0].Message)
				result.ErrorType = ErrorTypeRow
				return result
			}
			continue
		}

		result.Stats.TotalAmount = result.Stats.TotalAmount.Add(rr.Amount)
		if rr.OutputFile != "" {
			result.Stats.ImagesWritten++
		}
	}

	result.Success = true
	c.logger.Infof("Finished %s: %d rows, %d images, %d failed rows",
		c.path, result.Stats.RowsProcessed, result.Stats.ImagesWritten, result.Stats.RowErrors)
	return result
}

// parse dispatches on the file extension.
func (c *Converter) parse() (*types.Table, error) {
	switch strings.ToLower(filepath.Ext(c.path)) {
	case ".csv":
		return csvparser.Parse(c.path, c.source.CSVSettings)
	case ".xlsx":
		return xlsxparser.Parse(c.path, c.source.XLSXSettings)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFile, filepath.Ext(c.path))
	}
}

// processRow runs a single row through the pipeline.
func (c *Converter) processRow(row types.Row) RowResult {
	rr := RowResult{RowNumber: row.Number, Amount: decimal.Zero}

	values, err := c.transformer.TransformAll(c.mapRow(row))
	if err != nil {
		rr.Problems = []*validation.RowError{{
			Severity:  validation.SeverityError,
			RowNumber: row.Number,
			Rule:      "transform",
			Message:   err.Error(),
		}}
		return rr
	}

	fields := c.fields(values)
	record, err := fields.Record()
	if err != nil {
		rr.Problems = c.validator.Explain(row.Number, record, err)
		return rr
	}

	payload, err := epc.Serialize(record)
	if err != nil {
		rr.Problems = c.validator.Explain(row.Number, record, err)
		return rr
	}
	rr.Payload = string(payload)
	c.logger.Debugf("Row %d payload:\n%s", row.Number, rr.Payload)

	matrix, err := c.renderer.Render(payload)
	if err != nil {
		rr.Problems = c.validator.Explain(row.Number, record, err)
		return rr
	}

	if amount, ok := record.Amount(); ok {
		rr.Amount = amount.Decimal()
	}

	if !c.options.DryRun {
		path := filepath.Join(c.options.OutputDir, c.outputName(row.Number, values))
		format := c.options.ImageFormat
		if err := imagewriter.WriteFile(matrix, &format, path, c.options.Image); err != nil {
			rr.Problems = []*validation.RowError{{
				Severity:  validation.SeverityError,
				RowNumber: row.Number,
				Rule:      "write",
				Message:   err.Error(),
			}}
			return rr
		}
		rr.OutputFile = path
		c.logger.Debugf("Row %d written to %s", row.Number, path)
	}

	rr.Problems = c.validator.Lint(row.Number, record)
	return rr
}

// mapRow reads the mapped columns and fills static fields. A non-empty
// column value wins over a static value.
func (c *Converter) mapRow(row types.Row) map[string]string {
	values := make(map[string]string, len(config.PaymentFields))
	for field, column := range c.source.ColumnMapping.Columns() {
		values[field] = row.Get(column)
	}
	for _, static := range c.source.StaticFields {
		if strings.TrimSpace(values[static.Field]) == "" {
			values[static.Field] = static.Value
		}
	}
	return values
}

// fields builds record input from transformed values. In batch input an
// empty optional cell means the field is absent.
func (c *Converter) fields(values map[string]string) epc.Fields {
	optional := func(field string) *string {
		if v := values[field]; v != "" {
			return &v
		}
		return nil
	}

	f := epc.Fields{
		Name:      values[config.FieldName],
		Account:   values[config.FieldAccount],
		BIC:       optional(config.FieldBIC),
		Amount:    optional(config.FieldAmount),
		Purpose:   optional(config.FieldPurpose),
		Reference: optional(config.FieldReference),
		Text:      optional(config.FieldText),
		Info:      optional(config.FieldInfo),
	}
	if c.source.CharacterSet != "" {
		cs := c.source.CharacterSet
		f.CharacterSet = &cs
	}
	return f
}

func (c *Converter) outputName(rowNumber int, values map[string]string) string {
	remittance := values[config.FieldText]
	if values[config.FieldReference] != "" {
		remittance = values[config.FieldReference]
	}

	derived := utils.DeriveFileName(values[config.FieldBIC], values[config.FieldAccount], remittance)
	return utils.GenerateOutputFileName(c.options.FileNameFormat, map[string]string{
		"derived": derived,
		"source":  c.source.SourceCode,
		"row":     strconv.Itoa(rowNumber),
		"account": values[config.FieldAccount],
		"bic":     values[config.FieldBIC],
	}, c.options.ImageFormat.Extension())
}

// nopLogger discards everything.
type nopLogger struct{}

func (nopLogger) Debugf(string, ...interface{}) {}
func (nopLogger) Infof(string, ...interface{})  {}
func (nopLogger) Warnf(string, ...interface{})  {}
func (nopLogger) Errorf(string, ...interface{}) {}
