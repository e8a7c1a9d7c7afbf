package shipping

import "context"

// RateItem describes one weighted, dimensioned cart item in a rate request.
type RateItem struct {
	ProductID  string `json:"productId"`
	Qty        int    `json:"qty"`
	WeightGram int    `json:"weightGram"`
	LengthCm   int    `json:"lengthCm,omitempty"`
	WidthCm    int    `json:"widthCm,omitempty"`
	HeightCm   int    `json:"heightCm,omitempty"`
}

// RateReq describes a shipping rate request.
type RateReq struct {
	Origin      string     `json:"origin"`
	Destination string     `json:"destination"`
	Items       []RateItem `json:"items"`
}

// Rate describes a priced shipping option returned by the carrier service.
// The chosen option's Cost is an opaque input to the cart summary; no rate
// logic lives in this service.
type Rate struct {
	Service       string `json:"service"`
	Courier       string `json:"courier"`
	Cost          int64  `json:"cost"`
	EstimatedDays string `json:"estimatedDays"`
}

// Client defines the behaviour required to quote shipping rates.
type Client interface {
	Rates(ctx context.Context, r RateReq) ([]Rate, error)
}

// MockClient returns static rates and is useful for testing and development.
type MockClient struct{}

// Rates returns canned rates regardless of the request payload.
func (MockClient) Rates(ctx context.Context, r RateReq) ([]Rate, error) {
	_ = ctx
	_ = r
	return []Rate{
		{Service: "REG", Courier: "jne", Cost: 15000, EstimatedDays: "2-3"},
		{Service: "YES", Courier: "jne", Cost: 30000, EstimatedDays: "1"},
	}, nil
}
