package validation

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/epc-qr-code-generator/internal/epc"
	"github.com/ginjaninja78/epc-qr-code-generator/internal/qrrender"
)

func TestCheckColumns(t *testing.T) {
	headers := []string{"Name", "IBAN", "Amount"}

	assert.NoError(t, CheckColumns(headers, map[string]string{"name": "Name", "account": "IBAN"}))

	err := CheckColumns(headers, map[string]string{"name": "Name", "account": "Konto", "text": "Zweck"})
	require.Error(t, err)
	assert.Equal(t, "input is missing mapped columns: Konto (account), Zweck (text)", err.Error())
}

func TestExplain_ValidationErrorOnePerField(t *testing.T) {
	record := epc.NewPaymentRecord("", "DE02120300000000202051").
		WithPurpose("TOOLONG").
		WithRemittance(epc.Reference(strings.Repeat("R", 36)))

	errs := NewValidator(DefaultOptions()).Explain(7, record, epc.Validate(record))
	require.Len(t, errs, 3)

	assert.Equal(t, []string{"name", "purpose", "remittance"}, Fields(errs))
	for _, e := range errs {
		assert.Equal(t, SeverityError, e.Severity)
		assert.Equal(t, 7, e.RowNumber)
		assert.Equal(t, "length", e.Rule)
	}
	assert.Equal(t, "TOOLONG", errs[1].Value)
	assert.Equal(t, "must be 1 to 4 characters", errs[1].Message)
	assert.Equal(t, "reference must be 1 to 35 characters", errs[2].Message)
	assert.Equal(t, "[ERROR] Row 7, Field 'purpose': must be 1 to 4 characters (value: 'TOOLONG')", errs[1].Error())
}

func TestExplain_OtherErrors(t *testing.T) {
	v := NewValidator(DefaultOptions())
	record := epc.NewPaymentRecord("Jane", "DE02")

	tests := []struct {
		name  string
		err   error
		field string
		rule  string
	}{
		{"amount parse", &epc.FieldError{Field: "amount", Value: "12", Err: epc.ErrNoSeparator}, "amount", "format"},
		{"duplicate remittance", epc.ErrDuplicateRemittance, "remittance", "exclusive"},
		{"payload size", &epc.SizeError{Size: 400}, "", "payload_size"},
		{"character set", &epc.UnsupportedCharacterSetError{CharacterSet: epc.ISO8859_15}, "character_set", "character_set"},
		{"qr capacity", &qrrender.RenderError{PayloadSize: 5000, Level: qrrender.LevelM, Err: errors.New("too long")}, "", "qr_capacity"},
		{"unknown", errors.New("disk full"), "", "internal"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := v.Explain(3, record, tt.err)
			require.Len(t, errs, 1)
			assert.Equal(t, tt.field, errs[0].Field)
			assert.Equal(t, tt.rule, errs[0].Rule)
			assert.True(t, HasErrors(errs))
		})
	}
}

func TestLint(t *testing.T) {
	v := NewValidator(DefaultOptions())

	clean := epc.NewPaymentRecord("Jane", "DE02120300000000202051").
		WithBIC("BYLADEM1001").
		WithPurpose("GDDS")
	assert.Empty(t, v.Lint(2, clean))

	noisy := epc.NewPaymentRecord("Jane", "DE02120300000000202052").
		WithBIC("byladem1").
		WithPurpose("gd")
	warnings := v.Lint(2, noisy)
	assert.Equal(t, []string{"iban", "bic", "purpose"}, Fields(warnings))
	assert.False(t, HasErrors(warnings))

	quiet := NewValidator(Options{})
	assert.Empty(t, quiet.Lint(2, noisy))
}

func TestValidIBAN(t *testing.T) {
	for _, iban := range []string{
		"DE02120300000000202051",
		"AT611904300234573201",
		"GB82 WEST 1234 5698 7654 32",
		"de02120300000000202051",
	} {
		assert.True(t, ValidIBAN(iban), iban)
	}
	for _, iban := range []string{"", "DE02", "DE03120300000000202051", "1234567890", "DE0212030000000020205!"} {
		assert.False(t, ValidIBAN(iban), iban)
	}
}

func TestFormatErrors(t *testing.T) {
	assert.Equal(t, "No validation errors.", FormatErrors(nil))

	out := FormatErrors([]*RowError{
		{Severity: SeverityError, RowNumber: 2, Field: "name", Message: "must be 1 to 70 characters"},
		{Severity: SeverityWarning, RowNumber: 3, Message: "odd"},
	})
	assert.Contains(t, out, "2 problem(s)")
	assert.Contains(t, out, "1. [ERROR] Row 2, Field 'name': must be 1 to 70 characters")
	assert.Contains(t, out, "2. [WARNING] Row 3: odd")
}
