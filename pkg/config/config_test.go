package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"LOG_LEVEL", "STORE_BACKEND", "REDIS_ADDR", "INTAKE_RATE", "INTAKE_BURST"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	cfg := Load()
	if cfg.LogLevel != "INFO" {
		t.Errorf("LogLevel = %q", cfg.LogLevel)
	}
	if cfg.StoreBackend != "memory" {
		t.Errorf("StoreBackend = %q", cfg.StoreBackend)
	}
	if cfg.IntakeRate != 1 || cfg.IntakeBurst != 5 {
		t.Errorf("intake limits = %v / %d", cfg.IntakeRate, cfg.IntakeBurst)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("STORE_BACKEND", "postgres")
	t.Setenv("DATABASE_URL", "postgres://x@db/inzo")
	t.Setenv("INTAKE_RATE", "0.5")
	t.Setenv("INTAKE_BURST", "2")

	cfg := Load()
	if cfg.StoreBackend != "postgres" || cfg.DatabaseURL != "postgres://x@db/inzo" {
		t.Errorf("store config = %q %q", cfg.StoreBackend, cfg.DatabaseURL)
	}
	if cfg.IntakeRate != 0.5 || cfg.IntakeBurst != 2 {
		t.Errorf("intake limits = %v / %d", cfg.IntakeRate, cfg.IntakeBurst)
	}
}

func TestLoad_MalformedNumbersFallBack(t *testing.T) {
	t.Setenv("INTAKE_RATE", "fast")
	t.Setenv("INTAKE_BURST", "many")

	cfg := Load()
	if cfg.IntakeRate != 1 || cfg.IntakeBurst != 5 {
		t.Errorf("intake limits = %v / %d", cfg.IntakeRate, cfg.IntakeBurst)
	}
}

func writeProfile(t *testing.T, dir, code, body string) {
	t.Helper()
	path := filepath.Join(dir, "profile_"+code+".yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

const usProfile = `
name: United States
code: us
currency: USD
underwriting:
  max_coverage: 200000
  min_premium: 100
  max_term_days: 365
  require_kyc: true
  covered_devices: [phone, laptop]
claims:
  auto_approve_enabled: true
  review_sla_hours: 48
retention:
  claim_record_days: 2555
  audit_log_days: 2555
`

const euProfile = `
name: European Union
currency: EUR
underwriting:
  max_coverage: 150000
  min_premium: 100
  max_term_days: 365
  require_kyc: true
claims:
  auto_approve_enabled: false
  screen_rules:
    - "assessment.payout <= claim.requested_amount"
  review_sla_hours: 24
retention:
  claim_record_days: 3650
  audit_log_days: 3650
`

func TestLoadProfile(t *testing.T) {
	dir := t.TempDir()
	writeProfile(t, dir, "us", usProfile)

	p, err := LoadProfile(dir, "US")
	if err != nil {
		t.Fatalf("LoadProfile(us): %v", err)
	}
	if p.Name != "United States" || p.Currency != "USD" {
		t.Errorf("profile = %+v", p)
	}
	if !p.Underwriting.RequireKYC || p.Underwriting.MaxCoverage != 200_000 {
		t.Errorf("underwriting = %+v", p.Underwriting)
	}
	if !p.AllowsDevice("phone") || p.AllowsDevice("toaster") {
		t.Error("covered-device check")
	}
}

func TestLoadProfile_Missing(t *testing.T) {
	if _, err := LoadProfile(t.TempDir(), "xx"); err == nil {
		t.Error("expected error for missing profile")
	}
}

func TestLoadAllProfiles(t *testing.T) {
	dir := t.TempDir()
	writeProfile(t, dir, "us", usProfile)
	writeProfile(t, dir, "eu", euProfile)

	profiles, err := LoadAllProfiles(dir)
	if err != nil {
		t.Fatalf("LoadAllProfiles: %v", err)
	}
	if len(profiles) != 2 {
		t.Fatalf("loaded %d profiles", len(profiles))
	}
	// Code falls back to the filename when the YAML omits it.
	eu, ok := profiles["eu"]
	if !ok {
		t.Fatal("eu profile missing")
	}
	if eu.Claims.AutoApproveEnabled {
		t.Error("eu must not auto-approve")
	}
	if len(eu.Claims.ScreenRules) != 1 {
		t.Error("eu screen rules not loaded")
	}
	// An empty covered-device list covers everything.
	if !eu.AllowsDevice("anything") {
		t.Error("empty device list must allow all")
	}
}
