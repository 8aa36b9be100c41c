// =============================================================================
// EPC QR Code Generator - Batch Validation
// =============================================================================
//
// This module turns failures of the payload pipeline into per-row, per-field
// reports for batch runs, and adds advisory checks that the payload format
// itself does not require.
//
// SEVERITIES:
//   - error   : the row produced no QR code
//   - warning : the row produced a QR code, but a field looks wrong
//
// CHECKS:
//   1. File-level:  every mapped column exists in the input header
//   2. Row-level:   Explain breaks a pipeline error into one entry per field
//   3. Advisory:    Lint checks IBAN checksums, BIC shape and purpose codes
//
// =============================================================================

package validation

import (
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/ginjaninja78/epc-qr-code-generator/internal/epc"
	"github.com/ginjaninja78/epc-qr-code-generator/internal/qrrender"
)

// Severity of a RowError.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// =============================================================================
// ROW ERROR
// =============================================================================

// RowError is a single problem found in one input row.
type RowError struct {
	Severity Severity

	// RowNumber is the 1-based row number in the input file.
	RowNumber int

	// Field is the payment field, or "" when the problem concerns the whole
	// payload.
	Field string

	// Value is the offending field value.
	Value string

	// Rule names the violated rule, e.g. "length" or "iban_checksum".
	Rule string

	Message string
}

// Error implements the error interface.
func (e *RowError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] Row %d", strings.ToUpper(string(e.Severity)), e.RowNumber)
	if e.Field != "" {
		fmt.Fprintf(&b, ", Field '%s'", e.Field)
	}
	fmt.Fprintf(&b, ": %s", e.Message)
	if e.Value != "" {
		fmt.Fprintf(&b, " (value: '%s')", e.Value)
	}
	return b.String()
}

// =============================================================================
// VALIDATOR
// =============================================================================

// Options selects the advisory checks run by Lint.
type Options struct {
	CheckIBANChecksum bool
	CheckBICFormat    bool
	CheckPurposeCode  bool
}

// DefaultOptions enables every advisory check.
func DefaultOptions() Options {
	return Options{
		CheckIBANChecksum: true,
		CheckBICFormat:    true,
		CheckPurposeCode:  true,
	}
}

// Validator explains and lints payment rows.
type Validator struct {
	options Options
}

// NewValidator creates a Validator with the given options.
func NewValidator(options Options) *Validator {
	return &Validator{options: options}
}

// =============================================================================
// FILE-LEVEL CHECKS
// =============================================================================

// CheckColumns verifies that every mapped column is present in headers.
// columns maps payment field to column header.
func CheckColumns(headers []string, columns map[string]string) error {
	present := make(map[string]bool, len(headers))
	for _, h := range headers {
		present[h] = true
	}

	var missing []string
	for field, column := range columns {
		if !present[column] {
			missing = append(missing, fmt.Sprintf("%s (%s)", column, field))
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return fmt.Errorf("input is missing mapped columns: %s", strings.Join(missing, ", "))
}

// =============================================================================
// ROW-LEVEL EXPLANATION
// =============================================================================

// Explain converts an error from building, serializing or rendering a record
// into row errors. For a length violation there is one entry per invalid
// field; record supplies the offending values.
func (v *Validator) Explain(row int, record epc.PaymentRecord, err error) []*RowError {
	newErr := func(field, value, rule, message string) *RowError {
		return &RowError{
			Severity:  SeverityError,
			RowNumber: row,
			Field:     field,
			Value:     value,
			Rule:      rule,
			Message:   message,
		}
	}

	var verr *epc.ValidationError
	var ferr *epc.FieldError
	var serr *epc.SizeError
	var cerr *epc.UnsupportedCharacterSetError

	switch {
	case errors.As(err, &verr):
		var errs []*RowError
		for _, field := range verr.Fields() {
			errs = append(errs, newErr(field, fieldValue(record, field), "length", lengthRule(record, field)))
		}
		return errs

	case errors.As(err, &ferr):
		return []*RowError{newErr(ferr.Field, ferr.Value, "format", ferr.Err.Error())}

	case errors.Is(err, epc.ErrDuplicateRemittance):
		return []*RowError{newErr("remittance", "", "exclusive", err.Error())}

	case errors.As(err, &serr):
		return []*RowError{newErr("", "", "payload_size",
			fmt.Sprintf("payload is %d bytes, at most %d allowed", serr.Size, epc.MaxPayloadBytes))}

	case errors.As(err, &cerr):
		return []*RowError{newErr("character_set", cerr.CharacterSet.String(), "character_set", err.Error())}

	case errors.Is(err, qrrender.ErrPayloadTooLarge):
		return []*RowError{newErr("", "", "qr_capacity", err.Error())}

	default:
		return []*RowError{newErr("", "", "internal", err.Error())}
	}
}

func fieldValue(r epc.PaymentRecord, field string) string {
	switch field {
	case "bic":
		s, _ := r.BIC()
		return s
	case "name":
		return r.BeneficiaryName()
	case "iban":
		return r.BeneficiaryAccount()
	case "amount":
		if a, ok := r.Amount(); ok {
			return a.Value()
		}
	case "purpose":
		s, _ := r.Purpose()
		return s
	case "remittance":
		if rem, ok := r.Remittance(); ok {
			return rem.Text()
		}
	case "info":
		s, _ := r.Info()
		return s
	}
	return ""
}

func lengthRule(r epc.PaymentRecord, field string) string {
	switch field {
	case "bic":
		return "must be 8 or 11 characters"
	case "name":
		return fmt.Sprintf("must be 1 to %d characters", epc.MaxNameLength)
	case "iban":
		return fmt.Sprintf("must be 1 to %d characters", epc.MaxAccountLength)
	case "amount":
		return fmt.Sprintf("must be between EUR0.01 and EUR%d.%d", epc.MaxEuro, epc.MaxCent)
	case "purpose":
		return fmt.Sprintf("must be 1 to %d characters", epc.MaxPurposeLength)
	case "remittance":
		if rem, ok := r.Remittance(); ok {
			return fmt.Sprintf("%s must be 1 to %d characters", rem.Kind(), rem.MaxLength())
		}
		return "invalid remittance"
	case "info":
		return fmt.Sprintf("must be 1 to %d characters", epc.MaxInfoLength)
	}
	return "invalid length"
}

// =============================================================================
// ADVISORY CHECKS
// =============================================================================

var (
	bicPattern     = regexp.MustCompile(`^[A-Z]{6}[A-Z2-9][A-NP-Z0-9]([A-Z0-9]{3})?$`)
	purposePattern = regexp.MustCompile(`^[A-Z]{4}$`)
	ibanPattern    = regexp.MustCompile(`^[A-Z]{2}[0-9]{2}[A-Z0-9]{1,30}$`)
)

// Lint returns warnings for a record that serialized successfully.
func (v *Validator) Lint(row int, record epc.PaymentRecord) []*RowError {
	var warnings []*RowError
	warn := func(field, value, rule, message string) {
		warnings = append(warnings, &RowError{
			Severity:  SeverityWarning,
			RowNumber: row,
			Field:     field,
			Value:     value,
			Rule:      rule,
			Message:   message,
		})
	}

	if v.options.CheckIBANChecksum {
		if iban := record.BeneficiaryAccount(); !ValidIBAN(iban) {
			warn("iban", iban, "iban_checksum", "account is not a valid IBAN")
		}
	}
	if bic, ok := record.BIC(); ok && v.options.CheckBICFormat && !bicPattern.MatchString(bic) {
		warn("bic", bic, "bic_format", "BIC does not match the ISO 9362 format")
	}
	if purpose, ok := record.Purpose(); ok && v.options.CheckPurposeCode && !purposePattern.MatchString(purpose) {
		warn("purpose", purpose, "purpose_code", "purpose should be a four letter ISO 20022 code")
	}

	return warnings
}

// ValidIBAN checks the shape and the ISO 13616 mod-97 checksum of an IBAN.
func ValidIBAN(iban string) bool {
	iban = strings.ToUpper(strings.ReplaceAll(iban, " ", ""))
	if !ibanPattern.MatchString(iban) {
		return false
	}

	rearranged := iban[4:] + iban[:4]
	var digits strings.Builder
	for _, r := range rearranged {
		if unicode.IsLetter(r) {
			fmt.Fprintf(&digits, "%d", r-'A'+10)
		} else {
			digits.WriteRune(r)
		}
	}

	n, ok := new(big.Int).SetString(digits.String(), 10)
	if !ok {
		return false
	}
	return new(big.Int).Mod(n, big.NewInt(97)).Int64() == 1
}

// =============================================================================
// REPORTING
// =============================================================================

// HasErrors reports whether any entry has error severity.
func HasErrors(errs []*RowError) bool {
	for _, e := range errs {
		if e.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Fields returns the distinct field names in errs, in order of appearance.
func Fields(errs []*RowError) []string {
	seen := make(map[string]bool)
	var fields []string
	for _, e := range errs {
		if e.Field != "" && !seen[e.Field] {
			seen[e.Field] = true
			fields = append(fields, e.Field)
		}
	}
	return fields
}

// FormatErrors formats row errors for display or logging.
func FormatErrors(errs []*RowError) string {
	if len(errs) == 0 {
		return "No validation errors."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Validation completed with %d problem(s):\n\n", len(errs))
	for i, e := range errs {
		fmt.Fprintf(&b, "%d. %s\n", i+1, e.Error())
	}
	return b.String()
}
