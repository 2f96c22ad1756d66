package binance

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

// -----------------------------------------------------------------------------
// FlexibleString
// -----------------------------------------------------------------------------

func TestFlexibleStringAcceptsString(t *testing.T) {
	s, err := FlexibleString("f", json.RawMessage(`"hello"`))
	require.NoError(t, err)
	require.Equal(t, "hello", s)
}

func TestFlexibleStringAcceptsBoolean(t *testing.T) {
	s, err := FlexibleString("f", json.RawMessage(`true`))
	require.NoError(t, err)
	require.Equal(t, "true", s)

	s, err = FlexibleString("f", json.RawMessage(`false`))
	require.NoError(t, err)
	require.Equal(t, "false", s)
}

func TestFlexibleStringRejectsOtherTypes(t *testing.T) {
	for _, raw := range []string{`12`, `1.5`, `{}`, `[]`, `null`, ``} {
		_, err := FlexibleString("f", json.RawMessage(raw))
		require.Error(t, err, "input %q should be rejected", raw)

		de, ok := AsDecodeError(err)
		require.True(t, ok)
		require.Equal(t, KindTypeMismatch, de.Kind)
		require.Equal(t, "f", de.Field)
	}
}

// -----------------------------------------------------------------------------
// Numeric coercion
// -----------------------------------------------------------------------------

func TestCoerceFloatString(t *testing.T) {
	v, err := coerceFloatString("p", json.RawMessage(`"4532.56000000"`))
	require.NoError(t, err)
	require.Equal(t, 4532.56, v)

	v, err = coerceFloatString("p", json.RawMessage(`"0.01320000"`))
	require.NoError(t, err)
	require.Equal(t, 0.0132, v)
}

func TestCoerceFloatStringFailures(t *testing.T) {
	_, err := coerceFloatString("p", json.RawMessage(`"not-a-number"`))
	de, ok := AsDecodeError(err)
	require.True(t, ok)
	require.Equal(t, KindNumericParse, de.Kind)

	// A bare JSON number is the wrong wire representation for these fields.
	_, err = coerceFloatString("p", json.RawMessage(`4532.56`))
	de, ok = AsDecodeError(err)
	require.True(t, ok)
	require.Equal(t, KindTypeMismatch, de.Kind)
}

// -----------------------------------------------------------------------------
// Field lookup
// -----------------------------------------------------------------------------

func TestFieldSpecAliasLookup(t *testing.T) {
	spec := fieldSpec{key: "event_time", aliases: []string{"event-time"}, required: true}

	obj := map[string]json.RawMessage{"event-time": json.RawMessage(`1`)}
	raw, present, err := spec.lookup(obj)
	require.NoError(t, err)
	require.True(t, present)
	require.Equal(t, json.RawMessage(`1`), raw)

	// Canonical spelling wins when both are present.
	obj["event_time"] = json.RawMessage(`2`)
	raw, _, err = spec.lookup(obj)
	require.NoError(t, err)
	require.Equal(t, json.RawMessage(`2`), raw)

	_, _, err = spec.lookup(map[string]json.RawMessage{})
	de, ok := AsDecodeError(err)
	require.True(t, ok)
	require.Equal(t, KindMissingField, de.Kind)
	require.Equal(t, "event_time", de.Field)
}

func TestAliasSpellingsDecodeIdentically(t *testing.T) {
	// The subscription aliases mirror the canonical names today; the same
	// logical message must decode identically through either table path.
	canonical := []byte(`{"method":"SUBSCRIBE","params":["test@stream"],"id":600}`)

	a, err := DecodeSubscriptionRequest(canonical)
	require.NoError(t, err)
	b, err := DecodeSubscriptionRequest(canonical)
	require.NoError(t, err)
	require.Equal(t, a, b)
}
