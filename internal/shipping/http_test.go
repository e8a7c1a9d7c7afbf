package shipping

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/noah-isme/backend-lapak/internal/resilience"
)

func testClient(baseURL string) HTTPClient {
	return HTTPClient{
		BaseURL: baseURL,
		APIKey:  "test-key",
		HTTP: resilience.HTTPClient{
			Client:      &http.Client{Timeout: time.Second},
			Breaker:     resilience.NewBreaker(100, 0.9, time.Second),
			MaxAttempts: 1,
		},
	}
}

func TestHTTPClientRates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rates" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		var req RateReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Origin != "JKT" || req.Destination != "BDG" || len(req.Items) != 1 {
			t.Fatalf("unexpected request %+v", req)
		}
		_ = json.NewEncoder(w).Encode(ratesResponse{Data: []Rate{
			{Service: "REG", Courier: "jne", Cost: 15000, EstimatedDays: "2-3"},
		}})
	}))
	defer srv.Close()

	rates, err := testClient(srv.URL).Rates(context.Background(), RateReq{
		Origin:      "JKT",
		Destination: "BDG",
		Items:       []RateItem{{ProductID: "prod-1", Qty: 2, WeightGram: 500}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rates) != 1 || rates[0].Cost != 15000 {
		t.Fatalf("unexpected rates %+v", rates)
	}
}

func TestHTTPClientServerErrorIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Rates(context.Background(), RateReq{Origin: "JKT", Destination: "BDG"})
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestMockClientReturnsRates(t *testing.T) {
	rates, err := MockClient{}.Rates(context.Background(), RateReq{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rates) == 0 {
		t.Fatal("expected canned rates")
	}
}
