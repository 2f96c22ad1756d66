package binance

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// -----------------------------------------------------------------------------
// Field Mapping
// -----------------------------------------------------------------------------

// fieldSpec declares one wire field: its canonical key, alternate spellings
// accepted on decode, and whether the field must be present. Adding a new
// alias (e.g. a future kebab-case variant) is a one-line change in the table.
type fieldSpec struct {
	key      string
	aliases  []string
	required bool
}

// -----------------------------------------------------------------------------

// lookup finds the raw value for spec in obj, trying the canonical key first
// and then each alias. Returns a missing-field error when the field is
// required and no spelling is present.
func (f fieldSpec) lookup(obj map[string]json.RawMessage) (json.RawMessage, bool, error) {
	if raw, ok := obj[f.key]; ok {
		return raw, true, nil
	}
	for _, alias := range f.aliases {
		if raw, ok := obj[alias]; ok {
			return raw, true, nil
		}
	}
	if f.required {
		return nil, false, errMissing(f.key)
	}
	return nil, false, nil
}

// -----------------------------------------------------------------------------
// Coercion Toolkit
//
// Each helper turns one raw JSON value into its in-memory representation and
// reports failures through the DecodeError taxonomy. The helpers are shared
// by every message type in this package.
// -----------------------------------------------------------------------------

// decodeObject parses a whole wire frame into key -> raw value pairs.
func decodeObject(data []byte) (map[string]json.RawMessage, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, errMalformed(err)
	}
	return obj, nil
}

// -----------------------------------------------------------------------------

// rejectNull fails a coercion when the raw value is JSON null. encoding/json
// silently leaves the target zero-valued in that case, which would let null
// masquerade as 0, "" or false; a present null is a type mismatch here.
// Fields that deliberately tolerate null check isJSONNull before coercing.
func rejectNull(field string, raw json.RawMessage) error {
	if isJSONNull(raw) {
		return errMismatch(field, fmt.Errorf("unexpected null"))
	}
	return nil
}

// -----------------------------------------------------------------------------

func coerceString(field string, raw json.RawMessage) (string, error) {
	if err := rejectNull(field, raw); err != nil {
		return "", err
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", errMismatch(field, err)
	}
	return s, nil
}

// -----------------------------------------------------------------------------

func coerceUint64(field string, raw json.RawMessage) (uint64, error) {
	if err := rejectNull(field, raw); err != nil {
		return 0, err
	}
	var n uint64
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, errMismatch(field, err)
	}
	return n, nil
}

// -----------------------------------------------------------------------------

func coerceBool(field string, raw json.RawMessage) (bool, error) {
	if err := rejectNull(field, raw); err != nil {
		return false, err
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err != nil {
		return false, errMismatch(field, err)
	}
	return b, nil
}

// -----------------------------------------------------------------------------

func coerceStringSlice(field string, raw json.RawMessage) ([]string, error) {
	if err := rejectNull(field, raw); err != nil {
		return nil, err
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, errMismatch(field, err)
	}
	return list, nil
}

// -----------------------------------------------------------------------------

// coerceFloatString reads a JSON string holding a decimal number ("4532.56000000")
// and parses it into float64. The wire transmits prices and quantities this way
// to avoid binary float truncation at the source.
func coerceFloatString(field string, raw json.RawMessage) (float64, error) {
	s, err := coerceString(field, raw)
	if err != nil {
		return 0, err
	}
	v, perr := strconv.ParseFloat(s, 64)
	if perr != nil {
		return 0, errNumeric(field, perr)
	}
	return v, nil
}

// -----------------------------------------------------------------------------

// FlexibleString accepts a JSON string, or a JSON boolean rendered as its
// textual form ("true"/"false"). Some message shapes in the same exchange
// family carry boolean-or-string fields; this is the shared decode strategy
// for them. Every other JSON type (number, object, array, null) is rejected
// with a type-mismatch DecodeError.
func FlexibleString(field string, raw json.RawMessage) (string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return "", errMismatch(field, fmt.Errorf("empty value"))
	}

	switch trimmed[0] {
	case '"':
		return coerceString(field, trimmed)
	case 't', 'f':
		b, err := coerceBool(field, trimmed)
		if err != nil {
			return "", err
		}
		return strconv.FormatBool(b), nil
	default:
		return "", errMismatch(field, fmt.Errorf("expected string or boolean, got %s", jsonTypeName(trimmed)))
	}
}

// -----------------------------------------------------------------------------

func isJSONNull(raw json.RawMessage) bool {
	return string(bytes.TrimSpace(raw)) == "null"
}

// -----------------------------------------------------------------------------

// jsonTypeName names the JSON type of a raw value for error messages.
func jsonTypeName(raw []byte) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return "empty"
	}
	switch trimmed[0] {
	case '"':
		return "string"
	case '{':
		return "object"
	case '[':
		return "array"
	case 't', 'f':
		return "boolean"
	case 'n':
		return "null"
	default:
		return "number"
	}
}
