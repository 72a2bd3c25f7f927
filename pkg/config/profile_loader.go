package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ProductProfile is a jurisdiction-specific insurance product definition:
// which terms a policy in that market may carry and how claims there are
// handled.
type ProductProfile struct {
	Name         string          `yaml:"name" json:"name"`
	Code         string          `yaml:"code" json:"code"`
	Currency     string          `yaml:"currency" json:"currency"`
	Underwriting UnderwritingCfg `yaml:"underwriting" json:"underwriting"`
	Claims       ClaimsCfg       `yaml:"claims" json:"claims"`
	Retention    RetentionCfg    `yaml:"retention" json:"retention"`
}

// UnderwritingCfg bounds what policies may be issued under the profile.
type UnderwritingCfg struct {
	MaxCoverage     int64    `yaml:"max_coverage" json:"max_coverage"`
	MinPremium      int64    `yaml:"min_premium" json:"min_premium"`
	MaxTermDays     int      `yaml:"max_term_days" json:"max_term_days"`
	RequireKYC      bool     `yaml:"require_kyc" json:"require_kyc"`
	CoveredDevices  []string `yaml:"covered_devices,omitempty" json:"covered_devices,omitempty"`
}

// ClaimsCfg tunes claim handling per market.
type ClaimsCfg struct {
	AutoApproveEnabled bool     `yaml:"auto_approve_enabled" json:"auto_approve_enabled"`
	ScreenRules        []string `yaml:"screen_rules,omitempty" json:"screen_rules,omitempty"`
	ReviewSLAHours     int      `yaml:"review_sla_hours" json:"review_sla_hours"`
}

// RetentionCfg defines record retention policy.
type RetentionCfg struct {
	ClaimRecordDays int `yaml:"claim_record_days" json:"claim_record_days"`
	AuditLogDays    int `yaml:"audit_log_days" json:"audit_log_days"`
}

// LoadProfile loads a product profile YAML by market code. It searches the
// profiles directory for profile_<code>.yaml.
func LoadProfile(profilesDir, code string) (*ProductProfile, error) {
	code = strings.ToLower(code)
	path := filepath.Join(profilesDir, fmt.Sprintf("profile_%s.yaml", code))

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load profile %q: %w", code, err)
	}

	var profile ProductProfile
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("parse profile %q: %w", code, err)
	}
	if profile.Code == "" {
		profile.Code = code
	}
	return &profile, nil
}

// LoadAllProfiles loads every profile_*.yaml from the profiles directory,
// keyed by market code.
func LoadAllProfiles(profilesDir string) (map[string]*ProductProfile, error) {
	matches, err := filepath.Glob(filepath.Join(profilesDir, "profile_*.yaml"))
	if err != nil {
		return nil, err
	}

	profiles := make(map[string]*ProductProfile, len(matches))
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		var profile ProductProfile
		if err := yaml.Unmarshal(data, &profile); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		if profile.Code == "" {
			base := filepath.Base(path)
			profile.Code = strings.TrimSuffix(strings.TrimPrefix(base, "profile_"), ".yaml")
		}
		profiles[profile.Code] = &profile
	}
	return profiles, nil
}

// AllowsDevice reports whether a device kind is insurable under the profile.
// An empty covered-device list covers everything.
func (p *ProductProfile) AllowsDevice(kind string) bool {
	if len(p.Underwriting.CoveredDevices) == 0 {
		return true
	}
	for _, d := range p.Underwriting.CoveredDevices {
		if d == kind {
			return true
		}
	}
	return false
}
