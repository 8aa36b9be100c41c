// =============================================================================
// EPC QR Code Generator - Transformation Engine
// =============================================================================
//
// This module rewrites raw batch values into the form the payload expects
// before a payment record is built. Typical uses:
//   - Stripping the spaces of grouped IBANs ("DE02 1203 ...")
//   - Upper-casing BICs and purpose codes
//   - Normalizing amounts ("1.234,5" -> "1234.5" -> "1234.50")
//   - Mapping internal codes to purpose codes through a lookup table
//
// Rules are configured per source and per payment field. Actions of a rule
// run in order, each receiving the previous action's output.
//
// =============================================================================

package converter

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/epc-qr-code-generator/internal/config"
)

// =============================================================================
// TRANSFORMER
// =============================================================================

// Transformer applies the transformation rules of one source.
type Transformer struct {
	rules map[string][]config.TransformationAction
}

// NewTransformer creates a Transformer. Rules naming the same field are
// concatenated in configuration order.
func NewTransformer(rules []config.TransformationRule) *Transformer {
	t := &Transformer{rules: make(map[string][]config.TransformationAction)}
	for _, rule := range rules {
		t.rules[rule.Field] = append(t.rules[rule.Field], rule.Actions...)
	}
	return t
}

// Transform applies the actions configured for field to value.
func (t *Transformer) Transform(field, value string) (string, error) {
	result := value
	for _, action := range t.rules[field] {
		var err error
		result, err = ApplyTransformation(result, action)
		if err != nil {
			return "", fmt.Errorf("transformation '%s' on %s failed: %w", action.Type, field, err)
		}
	}
	return result, nil
}

// TransformAll transforms every payment field in values, including fields
// without a value so that defaulting actions can fill them.
func (t *Transformer) TransformAll(values map[string]string) (map[string]string, error) {
	out := make(map[string]string, len(config.PaymentFields))
	for _, field := range config.PaymentFields {
		v, err := t.Transform(field, values[field])
		if err != nil {
			return nil, err
		}
		out[field] = v
	}
	return out, nil
}

// =============================================================================
// TRANSFORMATION FUNCTIONS
// =============================================================================

// ApplyTransformation applies a single transformation action.
//
// SUPPORTED TRANSFORMATIONS:
//   See the switch statement below. Parameters that cannot be interpreted
//   are reported as errors rather than ignored.
func ApplyTransformation(value string, action config.TransformationAction) (string, error) {
	switch action.Type {

	// =========================================================================
	// STRING MANIPULATIONS
	// =========================================================================

	case "trim":
		return strings.TrimSpace(value), nil

	case "uppercase":
		return strings.ToUpper(value), nil

	case "lowercase":
		return strings.ToLower(value), nil

	case "remove_spaces":
		// "DE02 1203 0000 0000 2020 51" -> "DE02120300000000202051"
		return strings.Map(func(r rune) rune {
			if unicode.IsSpace(r) {
				return -1
			}
			return r
		}, value), nil

	case "prepend_string":
		return action.Value + value, nil

	case "append_string":
		return value + action.Value, nil

	case "replace":
		if action.Find == "" {
			return "", fmt.Errorf("replace needs a non-empty find")
		}
		return strings.ReplaceAll(value, action.Find, action.Value), nil

	case "regex_replace":
		re, err := regexp.Compile(action.Find)
		if err != nil {
			return "", fmt.Errorf("invalid regex pattern: %w", err)
		}
		return re.ReplaceAllString(value, action.Value), nil

	case "truncate":
		// Cuts to a number of characters, not bytes.
		n, err := strconv.Atoi(action.Value)
		if err != nil || n < 0 {
			return "", fmt.Errorf("truncate needs a non-negative length, got %q", action.Value)
		}
		runes := []rune(value)
		if len(runes) > n {
			return string(runes[:n]), nil
		}
		return value, nil

	// =========================================================================
	// NUMERIC FORMATTING
	// =========================================================================

	case "format_number":
		// Rounds half away from zero to the given number of places.
		//
		// EXAMPLE:
		//   Input: "1234.5", value "2" -> "1234.50"
		//   Input: "19.999", value "2" -> "20.00"
		if strings.TrimSpace(value) == "" {
			return value, nil
		}
		places, err := strconv.Atoi(action.Value)
		if err != nil || places < 0 {
			return "", fmt.Errorf("format_number needs a non-negative number of places, got %q", action.Value)
		}
		d, err := decimal.NewFromString(strings.TrimSpace(value))
		if err != nil {
			return "", fmt.Errorf("not a number: %q", value)
		}
		return d.StringFixed(int32(places)), nil

	case "decimal_comma":
		// "1.234,50" -> "1234.50"
		return strings.ReplaceAll(strings.ReplaceAll(value, ".", ""), ",", "."), nil

	// =========================================================================
	// LOOKUPS AND DEFAULTS
	// =========================================================================

	case "lookup":
		// Values missing from the table pass through unchanged.
		if replacement, ok := action.LookupTable[value]; ok {
			return replacement, nil
		}
		return value, nil

	case "if_empty_use_default":
		if strings.TrimSpace(value) == "" {
			return action.Value, nil
		}
		return value, nil

	default:
		return "", fmt.Errorf("unknown transformation type: %s", action.Type)
	}
}
