package epc

import (
	"fmt"
	"strings"
)

// FieldError attributes a parse failure to one input field.
type FieldError struct {
	Field string
	Value string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Field, e.Value, e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }

// Fields holds the raw text of a payment as typed on the command line or
// read from a batch row. A nil optional field is absent; a non-nil empty
// field is present and fails validation.
type Fields struct {
	Name         string
	Account      string
	BIC          *string
	Amount       *string
	Purpose      *string
	Reference    *string
	Text         *string
	Info         *string
	CharacterSet *string
}

// Record parses the fields into a PaymentRecord. Spaces are removed from the
// account, so grouped IBANs such as "DE02 1203 0000" are accepted. Lengths
// are not checked here; Serialize does that.
func (f Fields) Record() (PaymentRecord, error) {
	remittance, err := AssembleRemittance(f.Reference, f.Text)
	if err != nil {
		return PaymentRecord{}, err
	}

	record := NewPaymentRecord(f.Name, strings.ReplaceAll(f.Account, " ", ""))

	if f.CharacterSet != nil {
		cs, err := ParseCharacterSet(*f.CharacterSet)
		if err != nil {
			return PaymentRecord{}, &FieldError{Field: "character_set", Value: *f.CharacterSet, Err: err}
		}
		record = record.WithCharacterSet(cs)
	}
	if f.BIC != nil {
		record = record.WithBIC(*f.BIC)
	}
	if f.Amount != nil {
		amount, err := ParseAmount(*f.Amount)
		if err != nil {
			return PaymentRecord{}, &FieldError{Field: "amount", Value: *f.Amount, Err: err}
		}
		record = record.WithAmount(amount)
	}
	if f.Purpose != nil {
		record = record.WithPurpose(*f.Purpose)
	}
	if remittance != nil {
		record = record.WithRemittance(*remittance)
	}
	if f.Info != nil {
		record = record.WithInfo(*f.Info)
	}

	return record, nil
}
