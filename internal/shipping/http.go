package shipping

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/noah-isme/backend-lapak/internal/resilience"
)

// ErrUnavailable is returned when the carrier service cannot be reached.
var ErrUnavailable = errors.New("shipping service unavailable")

// HTTPClient quotes rates from a remote carrier aggregator.
type HTTPClient struct {
	BaseURL string
	APIKey  string
	HTTP    resilience.HTTPClient
}

type ratesResponse struct {
	Data []Rate `json:"data"`
}

// Rates posts the request to the carrier service and returns its options.
func (c HTTPClient) Rates(ctx context.Context, r RateReq) ([]Rate, error) {
	body, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(c.BaseURL, "/")+"/rates", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}
	resp, err := c.HTTP.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}
	var payload ratesResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}
	return payload.Data, nil
}
