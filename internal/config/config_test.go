package config

import (
	"strings"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/triage")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "8000" {
		t.Errorf("expected default port 8000, got %s", cfg.Port)
	}
	if !cfg.IsDev() {
		t.Error("expected development mode by default")
	}
	if cfg.BlobBackend != "memory" {
		t.Errorf("expected memory blob backend, got %s", cfg.BlobBackend)
	}
}

func TestLoad_MissingDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	if _, err := Load(); err == nil {
		t.Error("expected error when DATABASE_URL is missing")
	}
}

func TestLoad_CORSOrigins(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/triage")
	t.Setenv("CORS_ORIGINS", "https://a.example.com,https://b.example.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.CORSOrigins) != 2 {
		t.Fatalf("expected 2 origins, got %d: %v", len(cfg.CORSOrigins), cfg.CORSOrigins)
	}
}

func TestValidate_ProductionRequiresIssuer(t *testing.T) {
	cfg := &Config{Env: "production", AIEndpoint: "https://model.example.com"}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for missing AUTH_ISSUER in production")
	}
	if !strings.Contains(err.Error(), "AUTH_ISSUER") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidate_ProductionRequiresJWKSURL(t *testing.T) {
	cfg := &Config{
		Env:        "production",
		AuthIssuer: "https://auth.example.com",
		AIEndpoint: "https://model.example.com",
	}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for missing AUTH_JWKS_URL in production")
	}
	if !strings.Contains(err.Error(), "AUTH_JWKS_URL") {
		t.Errorf("unexpected error: %v", err)
	}

	cfg.AuthJWKSURL = "https://auth.example.com/.well-known/jwks.json"
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected error with JWKS URL set: %v", err)
	}
}

func TestValidate_ProductionRequiresAIEndpoint(t *testing.T) {
	cfg := &Config{
		Env:         "production",
		AuthIssuer:  "https://auth.example.com",
		AuthJWKSURL: "https://auth.example.com/.well-known/jwks.json",
	}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for missing AI_ENDPOINT in production")
	}
	if !strings.Contains(err.Error(), "AI_ENDPOINT") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidate_S3Backend(t *testing.T) {
	cfg := &Config{Env: "development", BlobBackend: "s3"}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for s3 backend without bucket")
	}

	cfg.S3Bucket = "photos"
	cfg.S3AccessKeyID = "key"
	cfg.S3SecretKey = "secret"
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidate_UnknownBlobBackend(t *testing.T) {
	cfg := &Config{Env: "development", BlobBackend: "gluster"}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for unknown blob backend")
	}
}
