package config

import (
	"testing"
	"time"
)

func TestLoadForTestsDefaults(t *testing.T) {
	cfg, err := LoadForTests(map[string]string{
		"DATABASE_URL":         "postgres://localhost/lapak_test",
		"REDIS_URL":            "redis://localhost:6379/1",
		"APP_ENV":              "",
		"PORT":                 "",
		"CART_TTL":             "",
		"CURRENCY_CODE":        "",
		"SHIPPING_ORIGIN_CODE": "",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.AppEnv != "development" {
		t.Fatalf("expected development default, got %q", cfg.AppEnv)
	}
	if cfg.HTTPAddr() != ":8080" {
		t.Fatalf("expected :8080, got %q", cfg.HTTPAddr())
	}
	if cfg.CartTTL != 168*time.Hour {
		t.Fatalf("expected one-week cart TTL, got %v", cfg.CartTTL)
	}
	if cfg.CurrencyCode != "IDR" {
		t.Fatalf("expected IDR default, got %q", cfg.CurrencyCode)
	}
	if cfg.ShippingOriginCode != "JKT" {
		t.Fatalf("expected JKT default, got %q", cfg.ShippingOriginCode)
	}
}

func TestLoadForTestsRequiresDatabase(t *testing.T) {
	_, err := LoadForTests(map[string]string{
		"DATABASE_URL": "",
		"REDIS_URL":    "redis://localhost:6379/1",
	})
	if err == nil {
		t.Fatal("expected error when DATABASE_URL missing")
	}
}

func TestLoadForTestsOverrides(t *testing.T) {
	cfg, err := LoadForTests(map[string]string{
		"DATABASE_URL":       "postgres://localhost/lapak_test",
		"REDIS_URL":          "redis://localhost:6379/1",
		"PORT":               "9090",
		"COUPON_SERVICE_URL": "https://coupons.internal",
		"BREAKER_COOLDOWN":   "45s",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTPAddr() != ":9090" {
		t.Fatalf("expected :9090, got %q", cfg.HTTPAddr())
	}
	if cfg.CouponServiceURL != "https://coupons.internal" {
		t.Fatalf("unexpected coupon url %q", cfg.CouponServiceURL)
	}
	if cfg.BreakerCooldown != 45*time.Second {
		t.Fatalf("expected 45s cooldown, got %v", cfg.BreakerCooldown)
	}
}
