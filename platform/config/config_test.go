package config

import (
	"os"
	"testing"
	"time"
)

func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, key := range keys {
		prev, ok := os.LookupEnv(key)
		_ = os.Unsetenv(key)
		if ok {
			t.Cleanup(func() { _ = os.Setenv(key, prev) })
		}
	}
}

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost/sourcing")
	t.Setenv("AUTH_JWT_SECRET", "secret")
	t.Setenv("SMTP_HOST", "")
	t.Setenv("CORS_ALLOW_ALL", "false")
	t.Setenv("CORS_ORIGINS", "http://localhost:3000")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)
	unsetEnv(t, "COMMISSION_RATE", "PRIVILEGED_COMMISSION_RATE", "RECONCILE_SWEEP_INTERVAL", "BUSINESS_TIMEZONE")
	t.Setenv("STRIPE_SECRET_KEY", "")
	t.Setenv("REDIS_URL", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected config, got %v", err)
	}
	if cfg.GetCommissionRate().String() != "0.2" {
		t.Fatalf("expected default rate 0.2, got %s", cfg.GetCommissionRate())
	}
	if !cfg.GetPrivilegedCommissionRate().Equal(cfg.GetCommissionRate()) {
		t.Fatalf("expected privileged rate to default to the normal rate, got %s", cfg.GetPrivilegedCommissionRate())
	}
	if cfg.GetReconcileSweepInterval() != 10*time.Minute {
		t.Fatalf("expected 10m sweep, got %s", cfg.GetReconcileSweepInterval())
	}
	if cfg.GetBusinessTimezone() != "America/Denver" {
		t.Fatalf("expected America/Denver, got %s", cfg.GetBusinessTimezone())
	}
	if cfg.IsPaymentsEnabled() || cfg.IsRedisEnabled() || cfg.GetEmailEnabled() {
		t.Fatalf("expected optional integrations to be off")
	}
}

func TestLoadRequiresSecrets(t *testing.T) {
	setRequired(t)
	t.Setenv("AUTH_JWT_SECRET", "")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error without AUTH_JWT_SECRET")
	}
}

func TestLoadRejectsBadRates(t *testing.T) {
	tests := []struct {
		name, key, value string
	}{
		{"not a number", "COMMISSION_RATE", "twenty"},
		{"above one", "COMMISSION_RATE", "1.5"},
		{"negative privileged", "PRIVILEGED_COMMISSION_RATE", "-0.1"},
		{"bad timezone", "BUSINESS_TIMEZONE", "Mars/Olympus"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequired(t)
			t.Setenv(tt.key, tt.value)
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%s", tt.key, tt.value)
			}
		})
	}
}

func TestLoadWildcardOriginRejectsCredentials(t *testing.T) {
	setRequired(t)
	t.Setenv("CORS_ORIGINS", "*")
	t.Setenv("CORS_ALLOW_CREDENTIALS", "true")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for wildcard origin with credentials")
	}
}
