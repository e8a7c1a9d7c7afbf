package promo

import (
	"errors"
	"testing"
	"time"
)

func TestParsePercentage(t *testing.T) {
	pct := 20.0
	active := true
	p, err := Parse(Payload{ID: "p1", Name: "Electronics Week", Type: "percentage", DiscountPercentage: &pct, IsActive: &active})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Kind != KindPercentage || p.PercentBps != 2000 {
		t.Fatalf("unexpected promotion %+v", p)
	}
	if !p.Active {
		t.Fatal("expected active promotion")
	}
}

func TestParseRejectsUnknownType(t *testing.T) {
	_, err := Parse(Payload{ID: "p1", Type: "bogo"})
	if !errors.Is(err, ErrInvalidParameters) {
		t.Fatalf("expected ErrInvalidParameters, got %v", err)
	}
}

func TestParseRejectsOutOfRangePercentage(t *testing.T) {
	for _, pct := range []float64{0, -5, 101} {
		v := pct
		_, err := Parse(Payload{ID: "p1", Type: "percentage", DiscountPercentage: &v})
		if !errors.Is(err, ErrInvalidParameters) {
			t.Fatalf("percentage %v: expected ErrInvalidParameters, got %v", pct, err)
		}
	}
}

func TestParseRejectsBadBundle(t *testing.T) {
	zero := 0
	one := 1
	_, err := Parse(Payload{ID: "p1", Type: "buy_x_get_y", BuyQuantity: &zero, GetQuantity: &one})
	if !errors.Is(err, ErrInvalidParameters) {
		t.Fatalf("expected ErrInvalidParameters, got %v", err)
	}
	_, err = Parse(Payload{ID: "p1", Type: "buy_x_get_y", BuyQuantity: &one})
	if !errors.Is(err, ErrInvalidParameters) {
		t.Fatalf("expected ErrInvalidParameters for missing getQuantity, got %v", err)
	}
}

func TestParseRejectsInvertedWindow(t *testing.T) {
	amount := int64(100)
	start := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(-time.Hour)
	_, err := Parse(Payload{ID: "p1", Type: "fixed_amount", DiscountAmount: &amount, StartDate: &start, EndDate: &end})
	if !errors.Is(err, ErrInvalidParameters) {
		t.Fatalf("expected ErrInvalidParameters, got %v", err)
	}
}

func TestParseStatusFallback(t *testing.T) {
	amount := int64(100)
	status := "Active"
	p, err := Parse(Payload{ID: "p1", Type: "fixed_amount", DiscountAmount: &amount, Status: &status})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !p.Active {
		t.Fatal("status \"Active\" should mark the promotion active")
	}
}

func TestParseAllDropsBadRecords(t *testing.T) {
	pct := 15.0
	payloads := []Payload{
		{ID: "good", Type: "percentage", DiscountPercentage: &pct},
		{ID: "bad", Type: "mystery"},
		{ID: "", Type: "percentage", DiscountPercentage: &pct},
	}
	promos, errs := ParseAll(payloads)
	if len(promos) != 1 || promos[0].ID != "good" {
		t.Fatalf("expected one valid promotion, got %v", promos)
	}
	if len(errs) != 2 {
		t.Fatalf("expected two errors, got %v", errs)
	}
}

func TestPercentToBpsFractional(t *testing.T) {
	bps, err := PercentToBps(12.5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bps != 1250 {
		t.Fatalf("expected 1250 bps, got %d", bps)
	}
}
