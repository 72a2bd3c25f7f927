// Package config loads runtime configuration from the environment and
// per-jurisdiction product profiles from YAML.
package config

import (
	"os"
	"strconv"
)

// Config holds platform configuration.
type Config struct {
	LogLevel      string
	StoreBackend  string // "memory" | "sqlite" | "postgres"
	SQLitePath    string
	DatabaseURL   string
	RedisAddr     string
	RedisStream   string
	AuditLogPath  string
	EvidenceDir   string
	S3Bucket      string
	S3Region      string
	S3Endpoint    string
	GCSBucket     string
	ProfilesDir   string
	KYCSigningKey string
	KYCIssuer     string
	OTLPEndpoint  string
	IntakeRate    float64
	IntakeBurst   int
}

// Load reads configuration from environment variables with local-friendly
// defaults.
func Load() *Config {
	return &Config{
		LogLevel:      getenv("LOG_LEVEL", "INFO"),
		StoreBackend:  getenv("STORE_BACKEND", "memory"),
		SQLitePath:    getenv("SQLITE_PATH", "inzo.db"),
		DatabaseURL:   getenv("DATABASE_URL", "postgres://inzo@localhost:5432/inzo?sslmode=disable"),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisStream:   getenv("REDIS_STREAM", "inzo.events"),
		AuditLogPath:  getenv("AUDIT_LOG_PATH", "audit.log"),
		EvidenceDir:   getenv("EVIDENCE_DIR", "evidence"),
		S3Bucket:      os.Getenv("EVIDENCE_S3_BUCKET"),
		S3Region:      getenv("EVIDENCE_S3_REGION", "us-east-1"),
		S3Endpoint:    os.Getenv("EVIDENCE_S3_ENDPOINT"),
		GCSBucket:     os.Getenv("EVIDENCE_GCS_BUCKET"),
		ProfilesDir:   getenv("PROFILES_DIR", "profiles"),
		KYCSigningKey: os.Getenv("KYC_SIGNING_KEY"),
		KYCIssuer:     getenv("KYC_ISSUER", "inzo-kyc"),
		OTLPEndpoint:  os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		IntakeRate:    getenvFloat("INTAKE_RATE", 1),
		IntakeBurst:   getenvInt("INTAKE_BURST", 5),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getenvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
