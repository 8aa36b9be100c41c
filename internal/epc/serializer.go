// =============================================================================
// EPC QR Code Generator - Payload Serializer
// =============================================================================
//
// Serialize renders a PaymentRecord as the EPC069-12 payload:
//
//   Line  Content                 Presence
//   ----  ----------------------  ------------------------------------------
//    1    BCD                     always
//    2    001 / 002               always (001 when a BIC is given)
//    3    1                       always (character set, UTF-8)
//    4    SCT                     always
//    5    BIC                     always, empty when absent
//    6    beneficiary name        always
//    7    beneficiary IBAN        always
//    8    EUR<amount>             up to the last present optional field
//    9    purpose                 up to the last present optional field
//   10    remittance              up to the last present optional field
//   11    information             up to the last present optional field
//
// Lines are joined with "\n" and there is no trailing newline. Lines 8-11 are
// emitted only through the last one that carries a value; absent fields before
// it become empty lines, absent fields after it are left out entirely.
//
// =============================================================================

package epc

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// ServiceTag is line 1 of every payload.
	ServiceTag = "BCD"

	// IdentificationCode is line 4, SEPA Credit Transfer.
	IdentificationCode = "SCT"

	// MaxPayloadBytes is the largest payload EPC069-12 allows.
	MaxPayloadBytes = 331

	lineSeparator = "\n"
)

// ErrTooLargeTotal is matched by SizeError.
var ErrTooLargeTotal = errors.New("total data is larger than the maximal allowed 331 bytes")

// SizeError is returned when the encoded payload exceeds MaxPayloadBytes even
// though every field passed its own length rule.
type SizeError struct {
	Size int
}

func (e *SizeError) Error() string {
	return fmt.Sprintf("%s (got %d bytes)", ErrTooLargeTotal.Error(), e.Size)
}

func (e *SizeError) Unwrap() error {
	return ErrTooLargeTotal
}

// Serialize validates the record and returns its UTF-8 payload.
func Serialize(r PaymentRecord) ([]byte, error) {
	if err := Validate(r); err != nil {
		return nil, err
	}

	if !r.characterSet.Supported() {
		return nil, &UnsupportedCharacterSetError{CharacterSet: r.characterSet}
	}

	data := r.String()
	if len(data) > MaxPayloadBytes {
		return nil, &SizeError{Size: len(data)}
	}

	return []byte(data), nil
}

// String renders the payload text without validating it.
func (r PaymentRecord) String() string {
	bic, _ := r.BIC()

	lines := make([]string, 0, 11)
	lines = append(lines,
		ServiceTag,
		r.Version(),
		r.characterSet.Code(),
		IdentificationCode,
		bic,
		r.beneficiaryName,
		r.beneficiaryAccount,
	)

	lines = append(lines, r.trailingLines()...)

	return strings.Join(lines, lineSeparator)
}

// trailingLines returns lines 8-11 through the last present field.
func (r PaymentRecord) trailingLines() []string {
	var amount, remittance *string
	if r.amount != nil {
		s := r.amount.String()
		amount = &s
	}
	if r.remittance != nil {
		s := r.remittance.Text()
		remittance = &s
	}

	optional := []*string{amount, r.purpose, remittance, r.info}

	last := -1
	for i, field := range optional {
		if field != nil {
			last = i
		}
	}

	lines := make([]string, 0, last+1)
	for _, field := range optional[:last+1] {
		value, _ := deref(field)
		lines = append(lines, value)
	}
	return lines
}
