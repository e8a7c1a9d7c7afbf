package coupon

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"

	"github.com/noah-isme/backend-lapak/internal/resilience"
)

// ErrUnavailable is returned when the coupon service cannot be reached.
// Callers degrade to a zero coupon discount instead of failing the cart.
var ErrUnavailable = errors.New("coupon service unavailable")

// Client validates coupon codes against a remote coupon service over HTTP.
type Client struct {
	BaseURL string
	APIKey  string
	HTTP    resilience.HTTPClient
}

type validateRequest struct {
	Code   string `json:"code"`
	UserID string `json:"userId,omitempty"`
}

type validateResponse struct {
	Valid              bool     `json:"valid"`
	DiscountPercentage *float64 `json:"discountPercentage,omitempty"`
	UsageRemaining     *int     `json:"usageRemaining,omitempty"`
	Message            string   `json:"message,omitempty"`
	Reason             string   `json:"reason,omitempty"`
}

// Validate posts the code to the coupon service and normalises the response.
func (c Client) Validate(ctx context.Context, code string, userID string) (Validation, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if normalized == "" {
		return Validation{Valid: false, Reason: ReasonNotFound}, nil
	}
	body, err := json.Marshal(validateRequest{Code: normalized, UserID: userID})
	if err != nil {
		return Validation{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(c.BaseURL, "/")+"/validate", bytes.NewReader(body))
	if err != nil {
		return Validation{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}
	resp, err := c.HTTP.Do(ctx, req)
	if err != nil {
		return Validation{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= http.StatusInternalServerError {
		return Validation{}, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}
	var payload validateResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Validation{}, fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}
	out := Validation{Valid: payload.Valid, Code: normalized, UsageRemaining: -1}
	if payload.UsageRemaining != nil {
		out.UsageRemaining = *payload.UsageRemaining
	}
	if !payload.Valid {
		out.Reason = normaliseReason(payload.Reason, payload.Message)
		return out, nil
	}
	if payload.DiscountPercentage == nil || *payload.DiscountPercentage <= 0 || *payload.DiscountPercentage > 100 {
		// A "valid" coupon without a usable percentage is treated as inactive.
		return Validation{Valid: false, Code: normalized, Reason: ReasonInactive}, nil
	}
	out.PercentBps = int32(math.Round(*payload.DiscountPercentage * 100))
	return out, nil
}

func normaliseReason(reason, message string) string {
	switch strings.ToLower(strings.TrimSpace(reason)) {
	case ReasonNotFound, ReasonExpired, ReasonUsageExceeded, ReasonInactive:
		return strings.ToLower(strings.TrimSpace(reason))
	}
	lowered := strings.ToLower(message)
	switch {
	case strings.Contains(lowered, "expire"):
		return ReasonExpired
	case strings.Contains(lowered, "usage"), strings.Contains(lowered, "limit"):
		return ReasonUsageExceeded
	case strings.Contains(lowered, "inactive"), strings.Contains(lowered, "disabled"):
		return ReasonInactive
	default:
		return ReasonNotFound
	}
}
