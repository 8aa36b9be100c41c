package epc

import "errors"

// ErrDuplicateRemittance is returned when both a structured reference and an
// unstructured text are supplied for the same payment.
var ErrDuplicateRemittance = errors.New("at most one remittance field (text/reference) may be specified")

// RemittanceKind distinguishes the two AT-05 remittance variants.
type RemittanceKind int

const (
	// RemittanceReference is structured creditor reference information.
	RemittanceReference RemittanceKind = iota + 1

	// RemittanceText is unstructured free text.
	RemittanceText
)

// Maximum lengths, in characters, per variant.
const (
	MaxReferenceLength = 35
	MaxTextLength      = 140
)

func (k RemittanceKind) String() string {
	switch k {
	case RemittanceReference:
		return "reference"
	case RemittanceText:
		return "text"
	default:
		return "unknown"
	}
}

// Remittance is either a structured Reference or a free Text. The zero value
// is not a valid remittance; use Reference or Text.
type Remittance struct {
	kind  RemittanceKind
	value string
}

// Reference builds a structured remittance (max. 35 characters).
func Reference(reference string) Remittance {
	return Remittance{kind: RemittanceReference, value: reference}
}

// Text builds an unstructured remittance (max. 140 characters).
func Text(text string) Remittance {
	return Remittance{kind: RemittanceText, value: text}
}

// AssembleRemittance combines two independently supplied inputs. Supplying
// both fails with ErrDuplicateRemittance; supplying neither yields nil.
func AssembleRemittance(reference, text *string) (*Remittance, error) {
	switch {
	case reference != nil && text != nil:
		return nil, ErrDuplicateRemittance
	case reference != nil:
		r := Reference(*reference)
		return &r, nil
	case text != nil:
		r := Text(*text)
		return &r, nil
	default:
		return nil, nil
	}
}

// Kind returns the variant.
func (r Remittance) Kind() RemittanceKind { return r.kind }

// Text returns the inner string regardless of variant.
func (r Remittance) Text() string { return r.value }

// MaxLength returns the character limit of the variant.
func (r Remittance) MaxLength() int {
	if r.kind == RemittanceReference {
		return MaxReferenceLength
	}
	return MaxTextLength
}
