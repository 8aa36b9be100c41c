// =============================================================================
// EPC QR Code Generator - Payment Record
// =============================================================================
//
// PaymentRecord holds every data element of one SEPA Credit Transfer
// instruction. Records are values: each With* method returns a modified copy
// and never touches the receiver, so a record can be shared freely between
// goroutines once built.
//
// USAGE:
//   record := epc.NewPaymentRecord("Jane Doe", "DE02120300000000202051").
//       WithBIC("BYLADEM1001").
//       WithAmount(amount).
//       WithRemittance(epc.Text("Invoice 4711"))
//
// An optional field that is set, even to "", counts as present. Callers that
// read optional inputs from flags or spreadsheet cells decide which inputs are
// absent and simply skip the corresponding With* call.
//
// =============================================================================

package epc

// PaymentRecord is an immutable EPC069-12 payment instruction.
type PaymentRecord struct {
	characterSet CharacterSet

	// AT-23 BIC of the beneficiary bank (8 or 11 characters).
	bic *string

	// AT-21 name of the beneficiary (max. 70 characters).
	beneficiaryName string

	// AT-20 account of the beneficiary, IBAN only (max. 34 characters).
	beneficiaryAccount string

	// AT-04 amount in euro.
	amount *Amount

	// AT-44 purpose of the credit transfer (max. 4 characters).
	purpose *string

	// AT-05 remittance information.
	remittance *Remittance

	// Beneficiary to originator information (max. 70 characters).
	info *string
}

// NewPaymentRecord creates a record with the two mandatory fields and the
// UTF-8 character set.
func NewPaymentRecord(beneficiaryName, beneficiaryAccount string) PaymentRecord {
	return PaymentRecord{
		characterSet:       UTF8,
		beneficiaryName:    beneficiaryName,
		beneficiaryAccount: beneficiaryAccount,
	}
}

// WithCharacterSet returns a copy using the given character set.
func (r PaymentRecord) WithCharacterSet(cs CharacterSet) PaymentRecord {
	r.characterSet = cs
	return r
}

// WithBIC returns a copy with the beneficiary bank's BIC set.
func (r PaymentRecord) WithBIC(bic string) PaymentRecord {
	r.bic = &bic
	return r
}

// WithAmount returns a copy with the amount set.
func (r PaymentRecord) WithAmount(amount Amount) PaymentRecord {
	r.amount = &amount
	return r
}

// WithPurpose returns a copy with the purpose code set.
func (r PaymentRecord) WithPurpose(purpose string) PaymentRecord {
	r.purpose = &purpose
	return r
}

// WithRemittance returns a copy with the remittance information set.
func (r PaymentRecord) WithRemittance(remittance Remittance) PaymentRecord {
	r.remittance = &remittance
	return r
}

// WithInfo returns a copy with the beneficiary to originator information set.
func (r PaymentRecord) WithInfo(info string) PaymentRecord {
	r.info = &info
	return r
}

// CharacterSet returns the declared character set.
func (r PaymentRecord) CharacterSet() CharacterSet { return r.characterSet }

// BeneficiaryName returns the beneficiary name.
func (r PaymentRecord) BeneficiaryName() string { return r.beneficiaryName }

// BeneficiaryAccount returns the beneficiary IBAN.
func (r PaymentRecord) BeneficiaryAccount() string { return r.beneficiaryAccount }

// BIC returns the BIC and whether it is present.
func (r PaymentRecord) BIC() (string, bool) { return deref(r.bic) }

// Purpose returns the purpose code and whether it is present.
func (r PaymentRecord) Purpose() (string, bool) { return deref(r.purpose) }

// Info returns the beneficiary to originator information and whether it is present.
func (r PaymentRecord) Info() (string, bool) { return deref(r.info) }

// Amount returns the amount and whether it is present.
func (r PaymentRecord) Amount() (Amount, bool) {
	if r.amount == nil {
		return Amount{}, false
	}
	return *r.amount, true
}

// Remittance returns the remittance information and whether it is present.
func (r PaymentRecord) Remittance() (Remittance, bool) {
	if r.remittance == nil {
		return Remittance{}, false
	}
	return *r.remittance, true
}

// Version returns the EPC version tag: "001" when a BIC is given, else "002".
func (r PaymentRecord) Version() string {
	if r.bic != nil {
		return "001"
	}
	return "002"
}

func deref(s *string) (string, bool) {
	if s == nil {
		return "", false
	}
	return *s, true
}
