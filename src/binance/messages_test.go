package binance

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// -----------------------------------------------------------------------------
// SubscriptionRequest
// -----------------------------------------------------------------------------

func TestNewSubscriptionRequest(t *testing.T) {
	req := NewSubscriptionRequest(123)

	require.Equal(t, MethodSubscribe, req.Method)
	require.Equal(t, uint64(123), req.ID)
	require.NotNil(t, req.Params)
	require.Empty(t, req.Params)
}

func TestAddStreamPreservesOrder(t *testing.T) {
	req := NewSubscriptionRequest(456)
	req.AddStream("btcusdt@ticker")
	req.AddStream("ethusdt@depth")
	req.AddStream("btcusdt@ticker") // duplicates are the caller's business

	require.Equal(t, []string{"btcusdt@ticker", "ethusdt@depth", "btcusdt@ticker"}, req.Params)
}

func TestEncodeSubscriptionRequestLiteral(t *testing.T) {
	req := NewSubscriptionRequest(789)
	req.AddStream("btcusdt@ticker")
	req.AddStream("ethusdt@kline_1m")

	out, err := req.Encode()
	require.NoError(t, err)
	require.Equal(t, `{"method":"SUBSCRIBE","params":["btcusdt@ticker","ethusdt@kline_1m"],"id":789}`, out)
}

func TestEncodeSubscriptionRequestEmptyParams(t *testing.T) {
	req := NewSubscriptionRequest(1)

	out, err := req.Encode()
	require.NoError(t, err)
	require.Equal(t, `{"method":"SUBSCRIBE","params":[],"id":1}`, out)
}

func TestSubscriptionRequestRoundTrip(t *testing.T) {
	cases := [][]string{
		{},
		{"btcusdt@trade"},
		{"btcusdt@trade", "ethusdt@trade", "bnbusdt@kline_5m"},
	}

	for _, streams := range cases {
		req := NewSubscriptionRequest(42)
		for _, s := range streams {
			req.AddStream(s)
		}

		out, err := req.Encode()
		require.NoError(t, err)

		got, err := DecodeSubscriptionRequest([]byte(out))
		require.NoError(t, err)
		require.Equal(t, req, got)
	}
}

func TestDecodeSubscriptionRequest(t *testing.T) {
	req, err := DecodeSubscriptionRequest([]byte(`{"method":"SUBSCRIBE","params":["btcusdt@ticker"],"id":100}`))
	require.NoError(t, err)
	require.Equal(t, MethodSubscribe, req.Method)
	require.Equal(t, []string{"btcusdt@ticker"}, req.Params)
	require.Equal(t, uint64(100), req.ID)
}

func TestDecodeSubscriptionRequestFailures(t *testing.T) {
	cases := []struct {
		name  string
		input string
		kind  DecodeErrorKind
		field string
	}{
		{"malformed", `{"method":`, KindMalformedJSON, ""},
		{"missing method", `{"params":[],"id":1}`, KindMissingField, "method"},
		{"missing params", `{"method":"SUBSCRIBE","id":1}`, KindMissingField, "params"},
		{"missing id", `{"method":"SUBSCRIBE","params":[]}`, KindMissingField, "id"},
		{"method not string", `{"method":7,"params":[],"id":1}`, KindTypeMismatch, "method"},
		{"params not array", `{"method":"SUBSCRIBE","params":"x","id":1}`, KindTypeMismatch, "params"},
		{"params mixed types", `{"method":"SUBSCRIBE","params":[1,2],"id":1}`, KindTypeMismatch, "params"},
		{"id negative", `{"method":"SUBSCRIBE","params":[],"id":-1}`, KindTypeMismatch, "id"},
		{"id string", `{"method":"SUBSCRIBE","params":[],"id":"1"}`, KindTypeMismatch, "id"},
		{"id fractional", `{"method":"SUBSCRIBE","params":[],"id":1.5}`, KindTypeMismatch, "id"},
		{"method null", `{"method":null,"params":[],"id":1}`, KindTypeMismatch, "method"},
		{"params null", `{"method":"SUBSCRIBE","params":null,"id":1}`, KindTypeMismatch, "params"},
		{"id null", `{"method":"SUBSCRIBE","params":[],"id":null}`, KindTypeMismatch, "id"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeSubscriptionRequest([]byte(tc.input))
			require.Error(t, err)

			de, ok := AsDecodeError(err)
			require.True(t, ok, "expected a DecodeError, got %T", err)
			require.Equal(t, tc.kind, de.Kind)
			require.Equal(t, tc.field, de.Field)
		})
	}
}

// -----------------------------------------------------------------------------
// SubscriptionResponse
// -----------------------------------------------------------------------------

func TestDecodeSubscriptionResponse(t *testing.T) {
	resp, err := DecodeSubscriptionResponse([]byte(`{"result":["btcusdt@ticker","ethusdt@depth"],"id":300}`))
	require.NoError(t, err)
	require.Equal(t, []string{"btcusdt@ticker", "ethusdt@depth"}, resp.Result)
	require.Equal(t, uint64(300), resp.ID)
}

func TestDecodeSubscriptionResponseNullVsEmpty(t *testing.T) {
	withNull, err := DecodeSubscriptionResponse([]byte(`{"result":null,"id":500}`))
	require.NoError(t, err)
	require.Nil(t, withNull.Result)
	require.Equal(t, uint64(500), withNull.ID)

	withEmpty, err := DecodeSubscriptionResponse([]byte(`{"result":[],"id":500}`))
	require.NoError(t, err)
	require.NotNil(t, withEmpty.Result)
	require.Empty(t, withEmpty.Result)
}

func TestEncodeSubscriptionResponse(t *testing.T) {
	out, err := (&SubscriptionResponse{Result: nil, ID: 400}).Encode()
	require.NoError(t, err)
	require.Equal(t, `{"result":null,"id":400}`, out)

	out, err = (&SubscriptionResponse{Result: []string{"btcusdt@ticker"}, ID: 200}).Encode()
	require.NoError(t, err)
	require.Equal(t, `{"result":["btcusdt@ticker"],"id":200}`, out)
}

func TestDecodeSubscriptionResponseFailures(t *testing.T) {
	cases := []struct {
		name  string
		input string
		kind  DecodeErrorKind
	}{
		{"missing id", `{"result":null}`, KindMissingField},
		{"id not integer", `{"result":null,"id":"x"}`, KindTypeMismatch},
		{"id null", `{"result":["btcusdt@ticker"],"id":null}`, KindTypeMismatch},
		{"result not array", `{"result":7,"id":1}`, KindTypeMismatch},
		{"result array of numbers", `{"result":[1],"id":1}`, KindTypeMismatch},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeSubscriptionResponse([]byte(tc.input))
			require.Error(t, err)

			de, ok := AsDecodeError(err)
			require.True(t, ok)
			require.Equal(t, tc.kind, de.Kind)
		})
	}
}

// -----------------------------------------------------------------------------
// Trade
// -----------------------------------------------------------------------------

const tradeFrame = `{"e":"trade","E":1759680390108723,"s":"ETHUSDT","t":2921785139,"p":"4532.56000000","q":"0.01320000","T":1759680390108254,"m":true,"M":true}`

func TestDecodeTrade(t *testing.T) {
	trade, err := DecodeTrade([]byte(tradeFrame))
	require.NoError(t, err)

	require.Equal(t, "trade", trade.EventType)
	require.Equal(t, uint64(1759680390108723), trade.EventTime)
	require.Equal(t, "ETHUSDT", trade.Symbol)
	require.Equal(t, uint64(2921785139), trade.TradeID)
	require.Equal(t, 4532.56, trade.Price)
	require.Equal(t, 0.0132, trade.Quantity)
	require.Equal(t, uint64(1759680390108254), trade.TradeTime)
	require.True(t, trade.IsBuyerMarketMaker)
	require.True(t, trade.Ignore)
}

func TestDecodeTradeTrailingZeros(t *testing.T) {
	a, err := DecodeTrade([]byte(`{"e":"trade","E":1,"s":"BTCUSDT","t":1,"p":"4532.56","q":"1","T":1,"m":false,"M":false}`))
	require.NoError(t, err)
	b, err := DecodeTrade([]byte(`{"e":"trade","E":1,"s":"BTCUSDT","t":1,"p":"4532.56000000","q":"1.000000","T":1,"m":false,"M":false}`))
	require.NoError(t, err)

	require.Equal(t, a.Price, b.Price)
	require.Equal(t, a.Quantity, b.Quantity)
}

func TestDecodeTradeOptionalIgnoreFlag(t *testing.T) {
	// Some market feeds omit the reserved "M" flag entirely.
	trade, err := DecodeTrade([]byte(`{"e":"trade","E":1,"s":"BTCUSDT","t":1,"p":"1.0","q":"1.0","T":1,"m":true}`))
	require.NoError(t, err)
	require.False(t, trade.Ignore)
	require.True(t, trade.IsBuyerMarketMaker)
}

func TestDecodeTradeFailures(t *testing.T) {
	cases := []struct {
		name  string
		input string
		kind  DecodeErrorKind
		field string
	}{
		{"price not a number", `{"e":"trade","E":1,"s":"X","t":1,"p":"not-a-number","q":"1","T":1,"m":true,"M":true}`, KindNumericParse, "p"},
		{"quantity not a number", `{"e":"trade","E":1,"s":"X","t":1,"p":"1","q":"??","T":1,"m":true,"M":true}`, KindNumericParse, "q"},
		{"price wire type wrong", `{"e":"trade","E":1,"s":"X","t":1,"p":4532.56,"q":"1","T":1,"m":true,"M":true}`, KindTypeMismatch, "p"},
		{"maker flag not bool", `{"e":"trade","E":1,"s":"X","t":1,"p":"1","q":"1","T":1,"m":"yes","M":true}`, KindTypeMismatch, "m"},
		{"event time negative", `{"e":"trade","E":-5,"s":"X","t":1,"p":"1","q":"1","T":1,"m":true,"M":true}`, KindTypeMismatch, "E"},
		{"missing symbol", `{"e":"trade","E":1,"t":1,"p":"1","q":"1","T":1,"m":true,"M":true}`, KindMissingField, "s"},
		{"event time null", `{"e":"trade","E":null,"s":"X","t":1,"p":"1","q":"1","T":1,"m":true,"M":true}`, KindTypeMismatch, "E"},
		{"symbol null", `{"e":"trade","E":1,"s":null,"t":1,"p":"1","q":"1","T":1,"m":true,"M":true}`, KindTypeMismatch, "s"},
		{"price null", `{"e":"trade","E":1,"s":"X","t":1,"p":null,"q":"1","T":1,"m":true,"M":true}`, KindTypeMismatch, "p"},
		{"maker flag null", `{"e":"trade","E":1,"s":"X","t":1,"p":"1","q":"1","T":1,"m":null,"M":true}`, KindTypeMismatch, "m"},
		{"ignore flag null", `{"e":"trade","E":1,"s":"X","t":1,"p":"1","q":"1","T":1,"m":true,"M":null}`, KindTypeMismatch, "M"},
		{"malformed", `not json`, KindMalformedJSON, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeTrade([]byte(tc.input))
			require.Error(t, err)

			de, ok := AsDecodeError(err)
			require.True(t, ok, "expected a DecodeError, got %T", err)
			require.Equal(t, tc.kind, de.Kind)
			require.Equal(t, tc.field, de.Field)
		})
	}
}

// -----------------------------------------------------------------------------
// Frame Classification
// -----------------------------------------------------------------------------

func TestClassifyFrame(t *testing.T) {
	require.Equal(t, FrameTrade, ClassifyFrame([]byte(tradeFrame)))
	require.Equal(t, FrameSubscriptionResponse, ClassifyFrame([]byte(`{"result":null,"id":1}`)))
	require.Equal(t, FrameUnknown, ClassifyFrame([]byte(`{"stream":"x"}`)))
	require.Equal(t, FrameUnknown, ClassifyFrame([]byte(`garbage`)))
}
