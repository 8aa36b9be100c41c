// =============================================================================
// EPC QR Code Generator - Payload Validator
// =============================================================================
//
// Validate checks every field of a PaymentRecord against its EPC069-12 length
// rule. All rules are evaluated; the returned error carries one flag per field
// so that a caller can fix every offending field in one pass.
//
// FIELD RULES (lengths in Unicode code points, not bytes):
//   bic         8 or 11           (only if present)
//   name        1..70
//   iban        1..34
//   amount      0.01..999999999.99 (only if present)
//   purpose     1..4              (only if present)
//   remittance  1..35 reference, 1..140 text (only if present)
//   info        1..70             (only if present)
//
// The 331 byte limit on the whole payload is checked by Serialize, because a
// record whose fields all pass here can still exceed it with multi-byte text.
//
// =============================================================================

package epc

import (
	"strings"
	"unicode/utf8"
)

// Field length limits in characters.
const (
	MaxNameLength    = 70
	MaxAccountLength = 34
	MaxPurposeLength = 4
	MaxInfoLength    = 70
)

// =============================================================================
// VALIDATION ERROR
// =============================================================================

// ValidationError reports every field that violated its rule.
type ValidationError struct {
	InvalidBIC        bool
	InvalidName       bool
	InvalidIBAN       bool
	InvalidAmount     bool
	InvalidPurpose    bool
	InvalidRemittance bool
	InvalidInfo       bool
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return "at least one field had an invalid length: " + strings.Join(e.Fields(), ", ")
}

// Fields returns the names of the invalid fields in payload order.
func (e *ValidationError) Fields() []string {
	flags := []struct {
		set  bool
		name string
	}{
		{e.InvalidBIC, "bic"},
		{e.InvalidName, "name"},
		{e.InvalidIBAN, "iban"},
		{e.InvalidAmount, "amount"},
		{e.InvalidPurpose, "purpose"},
		{e.InvalidRemittance, "remittance"},
		{e.InvalidInfo, "info"},
	}

	var fields []string
	for _, f := range flags {
		if f.set {
			fields = append(fields, f.name)
		}
	}
	return fields
}

func (e *ValidationError) any() bool {
	return e.InvalidBIC || e.InvalidName || e.InvalidIBAN || e.InvalidAmount ||
		e.InvalidPurpose || e.InvalidRemittance || e.InvalidInfo
}

// =============================================================================
// VALIDATION
// =============================================================================

// Validate returns nil for a valid record and a *ValidationError otherwise.
func Validate(r PaymentRecord) error {
	verr := &ValidationError{
		InvalidBIC:        r.bic != nil && !validBICLength(*r.bic),
		InvalidName:       !lengthWithin(r.beneficiaryName, 1, MaxNameLength),
		InvalidIBAN:       !lengthWithin(r.beneficiaryAccount, 1, MaxAccountLength),
		InvalidAmount:     r.amount != nil && !r.amount.inRange(),
		InvalidPurpose:    r.purpose != nil && !lengthWithin(*r.purpose, 1, MaxPurposeLength),
		InvalidRemittance: r.remittance != nil && !lengthWithin(r.remittance.value, 1, r.remittance.MaxLength()),
		InvalidInfo:       r.info != nil && !lengthWithin(*r.info, 1, MaxInfoLength),
	}

	if verr.any() {
		return verr
	}
	return nil
}

// validBICLength accepts the 8 and 11 character BIC forms.
func validBICLength(bic string) bool {
	n := utf8.RuneCountInString(bic)
	return n == 8 || n == 11
}

// lengthWithin reports whether s has between lo and hi code points.
func lengthWithin(s string, lo, hi int) bool {
	n := utf8.RuneCountInString(s)
	return n >= lo && n <= hi
}
