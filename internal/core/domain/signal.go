package domain

import (
	"bytes"
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Signal defaults.
var (
	DefaultSignalQuantity = decimal.RequireFromString("0.01")
	DefaultSignalExchange = "binance"
)

// Signal is a decoded TradingView alert.
type Signal struct {
	Symbol     string           `json:"symbol"`
	Side       Side             `json:"side"`
	Strategy   string           `json:"strategy"`
	Quantity   decimal.Decimal  `json:"quantity"`
	Price      *decimal.Decimal `json:"price,omitempty"`
	StopLoss   *decimal.Decimal `json:"stop_loss,omitempty"`
	TakeProfit *decimal.Decimal `json:"take_profit,omitempty"`
	Exchange   string           `json:"exchange"`
}

// ParseSignal decodes and validates an alert body.
//
// symbol and strategy must be strings and side must be exactly "BUY" or
// "SELL". quantity defaults to 0.01 and exchange to "binance".
func ParseSignal(body []byte) (*Signal, error) {
	var raw map[string]json.RawMessage
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return nil, ErrWebhookPayload.WithDetails("invalid JSON").WithCause(err)
	}

	sig := &Signal{
		Quantity: DefaultSignalQuantity,
		Exchange: DefaultSignalExchange,
	}

	var side string
	for _, f := range []struct {
		name string
		dst  *string
	}{
		{"symbol", &sig.Symbol},
		{"side", &side},
		{"strategy", &sig.Strategy},
	} {
		v, ok := raw[f.name]
		if !ok {
			return nil, ErrWebhookPayload.WithDetails("missing field: " + f.name)
		}
		if err := json.Unmarshal(v, f.dst); err != nil {
			return nil, ErrWebhookPayload.WithDetails(f.name + " must be a string")
		}
	}
	if side != string(SideBuy) && side != string(SideSell) {
		return nil, ErrWebhookPayload.WithDetails("side must be BUY or SELL")
	}
	sig.Side = Side(side)

	if v, ok := raw["quantity"]; ok && !isNull(v) {
		q, err := decodeDecimal(v)
		if err != nil || !q.IsPositive() {
			return nil, ErrWebhookPayload.WithDetails("quantity must be a positive number")
		}
		sig.Quantity = q
	}
	for _, f := range []struct {
		name string
		dst  **decimal.Decimal
	}{
		{"price", &sig.Price},
		{"stop_loss", &sig.StopLoss},
		{"take_profit", &sig.TakeProfit},
	} {
		v, ok := raw[f.name]
		if !ok || isNull(v) {
			continue
		}
		d, err := decodeDecimal(v)
		if err != nil {
			return nil, ErrWebhookPayload.WithDetails(f.name + " must be a number")
		}
		*f.dst = &d
	}
	if v, ok := raw["exchange"]; ok && !isNull(v) {
		var ex string
		if err := json.Unmarshal(v, &ex); err != nil || ex == "" {
			return nil, ErrWebhookPayload.WithDetails("exchange must be a string")
		}
		sig.Exchange = NormalizeExchange(ex)
	}

	return sig, nil
}

// decodeDecimal accepts JSON numbers and numeric strings.
func decodeDecimal(v json.RawMessage) (decimal.Decimal, error) {
	var d decimal.Decimal
	err := d.UnmarshalJSON(v)
	return d, err
}

func isNull(v json.RawMessage) bool {
	return string(bytes.TrimSpace(v)) == "null"
}
