// Package binance implements the wire codec for the exchange's public
// websocket API: subscription requests/responses and the trade tick event.
//
// Every function here is a pure, single-shot transform between raw JSON text
// and immutable typed records. Connection management, frame routing, request
// correlation and retry policy all belong to the callers.
package binance

import (
	"encoding/json"
)

// MethodSubscribe is the request method for stream subscriptions.
const MethodSubscribe = "SUBSCRIBE"

// -----------------------------------------------------------------------------
// Wire Field Tables
//
// Decoding is table-driven: each message declares its fields once, with the
// canonical wire key and any alternate spellings tolerated for forward
// compatibility. Aliases currently mirror the canonical names (all subscription
// keys are single words, so a kebab-case drift would produce the same
// spelling); the tables keep the mapping auditable either way.
// -----------------------------------------------------------------------------

var subscriptionRequestFields = struct {
	method, params, id fieldSpec
}{
	method: fieldSpec{key: "method", aliases: []string{"method"}, required: true},
	params: fieldSpec{key: "params", aliases: []string{"params"}, required: true},
	id:     fieldSpec{key: "id", aliases: []string{"id"}, required: true},
}

var subscriptionResponseFields = struct {
	result, id fieldSpec
}{
	result: fieldSpec{key: "result", aliases: []string{"result"}},
	id:     fieldSpec{key: "id", aliases: []string{"id"}, required: true},
}

// Trade events use the exchange's compact single-letter keys.
var tradeFields = struct {
	eventType, eventTime, symbol, tradeID, price, quantity, tradeTime, buyerMaker, ignore fieldSpec
}{
	eventType:  fieldSpec{key: "e", required: true},
	eventTime:  fieldSpec{key: "E", required: true},
	symbol:     fieldSpec{key: "s", required: true},
	tradeID:    fieldSpec{key: "t", required: true},
	price:      fieldSpec{key: "p", required: true},
	quantity:   fieldSpec{key: "q", required: true},
	tradeTime:  fieldSpec{key: "T", required: true},
	buyerMaker: fieldSpec{key: "m", required: true},
	// Some market feeds omit the reserved flag, so it is optional on decode.
	ignore: fieldSpec{key: "M"},
}

// -----------------------------------------------------------------------------
// SubscriptionRequest
// -----------------------------------------------------------------------------

// SubscriptionRequest asks the exchange to start pushing the named streams.
// The request is encoded with its descriptive field names verbatim; key order
// in the output is fixed to method, params, id.
type SubscriptionRequest struct {
	Method string   `json:"method"`
	Params []string `json:"params"`
	ID     uint64   `json:"id"`
}

// -----------------------------------------------------------------------------

// NewSubscriptionRequest builds a SUBSCRIBE request with an empty stream list
// and the given correlation id.
func NewSubscriptionRequest(id uint64) *SubscriptionRequest {
	return &SubscriptionRequest{
		Method: MethodSubscribe,
		Params: make([]string, 0),
		ID:     id,
	}
}

// -----------------------------------------------------------------------------

// AddStream appends one stream name (e.g. "btcusdt@trade") to the request.
// Entries keep their insertion order; no deduplication or syntax validation
// is performed here.
func (r *SubscriptionRequest) AddStream(stream string) {
	r.Params = append(r.Params, stream)
}

// -----------------------------------------------------------------------------

// Encode serializes the request to compact JSON text. It never fails for
// values that satisfy the type's invariants.
func (r *SubscriptionRequest) Encode() (string, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// -----------------------------------------------------------------------------

// DecodeSubscriptionRequest parses JSON text into a SubscriptionRequest,
// accepting the canonical key names or any recognized alias.
func DecodeSubscriptionRequest(data []byte) (*SubscriptionRequest, error) {
	obj, err := decodeObject(data)
	if err != nil {
		return nil, err
	}

	req := &SubscriptionRequest{}

	raw, _, err := subscriptionRequestFields.method.lookup(obj)
	if err != nil {
		return nil, err
	}
	if req.Method, err = coerceString(subscriptionRequestFields.method.key, raw); err != nil {
		return nil, err
	}

	raw, _, err = subscriptionRequestFields.params.lookup(obj)
	if err != nil {
		return nil, err
	}
	if req.Params, err = coerceStringSlice(subscriptionRequestFields.params.key, raw); err != nil {
		return nil, err
	}
	if req.Params == nil {
		req.Params = make([]string, 0)
	}

	raw, _, err = subscriptionRequestFields.id.lookup(obj)
	if err != nil {
		return nil, err
	}
	if req.ID, err = coerceUint64(subscriptionRequestFields.id.key, raw); err != nil {
		return nil, err
	}

	return req, nil
}

// -----------------------------------------------------------------------------
// SubscriptionResponse
// -----------------------------------------------------------------------------

// SubscriptionResponse acknowledges a request with the matching correlation
// id. A nil Result means the wire carried null (or omitted the field), which
// is distinct from a present empty array.
type SubscriptionResponse struct {
	Result []string `json:"result"`
	ID     uint64   `json:"id"`
}

// -----------------------------------------------------------------------------

// Encode serializes the response to compact JSON text (nil Result becomes null).
func (r *SubscriptionResponse) Encode() (string, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// -----------------------------------------------------------------------------

// DecodeSubscriptionResponse parses JSON text into a SubscriptionResponse.
func DecodeSubscriptionResponse(data []byte) (*SubscriptionResponse, error) {
	obj, err := decodeObject(data)
	if err != nil {
		return nil, err
	}

	resp := &SubscriptionResponse{}

	raw, present, err := subscriptionResponseFields.result.lookup(obj)
	if err != nil {
		return nil, err
	}
	if present && !isJSONNull(raw) {
		list, err := coerceStringSlice(subscriptionResponseFields.result.key, raw)
		if err != nil {
			return nil, err
		}
		if list == nil {
			list = make([]string, 0)
		}
		resp.Result = list
	}

	raw, _, err = subscriptionResponseFields.id.lookup(obj)
	if err != nil {
		return nil, err
	}
	if resp.ID, err = coerceUint64(subscriptionResponseFields.id.key, raw); err != nil {
		return nil, err
	}

	return resp, nil
}

// -----------------------------------------------------------------------------
// Trade
// -----------------------------------------------------------------------------

// Trade is an immutable snapshot of one executed trade tick. Price and
// Quantity arrive on the wire as decimal strings and are held numerically
// in memory. The Ignore flag is reserved by the exchange and passed through
// as an opaque boolean.
type Trade struct {
	EventType          string  `json:"event_type"`
	EventTime          uint64  `json:"event_time"`
	Symbol             string  `json:"symbol"`
	TradeID            uint64  `json:"trade_id"`
	Price              float64 `json:"price"`
	Quantity           float64 `json:"quantity"`
	TradeTime          uint64  `json:"trade_time"`
	IsBuyerMarketMaker bool    `json:"is_buyer_market_maker"`
	Ignore             bool    `json:"ignore"`
}

// -----------------------------------------------------------------------------

// DecodeTrade parses a trade event keyed by the exchange's single-letter wire
// tags into the descriptive Trade fields.
func DecodeTrade(data []byte) (*Trade, error) {
	obj, err := decodeObject(data)
	if err != nil {
		return nil, err
	}

	t := &Trade{}
	f := tradeFields

	raw, _, err := f.eventType.lookup(obj)
	if err != nil {
		return nil, err
	}
	if t.EventType, err = coerceString(f.eventType.key, raw); err != nil {
		return nil, err
	}

	raw, _, err = f.eventTime.lookup(obj)
	if err != nil {
		return nil, err
	}
	if t.EventTime, err = coerceUint64(f.eventTime.key, raw); err != nil {
		return nil, err
	}

	raw, _, err = f.symbol.lookup(obj)
	if err != nil {
		return nil, err
	}
	if t.Symbol, err = coerceString(f.symbol.key, raw); err != nil {
		return nil, err
	}

	raw, _, err = f.tradeID.lookup(obj)
	if err != nil {
		return nil, err
	}
	if t.TradeID, err = coerceUint64(f.tradeID.key, raw); err != nil {
		return nil, err
	}

	raw, _, err = f.price.lookup(obj)
	if err != nil {
		return nil, err
	}
	if t.Price, err = coerceFloatString(f.price.key, raw); err != nil {
		return nil, err
	}

	raw, _, err = f.quantity.lookup(obj)
	if err != nil {
		return nil, err
	}
	if t.Quantity, err = coerceFloatString(f.quantity.key, raw); err != nil {
		return nil, err
	}

	raw, _, err = f.tradeTime.lookup(obj)
	if err != nil {
		return nil, err
	}
	if t.TradeTime, err = coerceUint64(f.tradeTime.key, raw); err != nil {
		return nil, err
	}

	raw, _, err = f.buyerMaker.lookup(obj)
	if err != nil {
		return nil, err
	}
	if t.IsBuyerMarketMaker, err = coerceBool(f.buyerMaker.key, raw); err != nil {
		return nil, err
	}

	raw, present, err := f.ignore.lookup(obj)
	if err != nil {
		return nil, err
	}
	if present {
		if t.Ignore, err = coerceBool(f.ignore.key, raw); err != nil {
			return nil, err
		}
	}

	return t, nil
}

// -----------------------------------------------------------------------------
// Frame Classification
// -----------------------------------------------------------------------------

// FrameKind tells a frame router which decode entry point applies.
type FrameKind string

const (
	FrameTrade                FrameKind = "trade"
	FrameSubscriptionResponse FrameKind = "subscription_response"
	FrameUnknown              FrameKind = "unknown"
)

// ClassifyFrame inspects a raw inbound frame's shape without fully decoding
// it: trade events carry the "e" tag, subscription responses carry "id"
// without it. Callers route to the matching decode function.
func ClassifyFrame(data []byte) FrameKind {
	obj, err := decodeObject(data)
	if err != nil {
		return FrameUnknown
	}
	if _, ok := obj[tradeFields.eventType.key]; ok {
		return FrameTrade
	}
	if _, ok := obj[subscriptionResponseFields.id.key]; ok {
		return FrameSubscriptionResponse
	}
	return FrameUnknown
}
