package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadAppliesDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	configViper := NewViper()
	configViper.Set("auth.signing_secret", "secret")
	configViper.Set("cors.allowed_origin", "https://vault.example.com")
	configViper.Set("blob.bucket", "vault")

	cfg, err := Load(configViper)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTPAddress != "0.0.0.0:5000" {
		t.Fatalf("unexpected address %q", cfg.HTTPAddress)
	}
	if cfg.TokenTTL != time.Hour {
		t.Fatalf("expected one hour ttl, got %s", cfg.TokenTTL)
	}
	if cfg.DatabaseURL != "cloudvault.db" {
		t.Fatalf("unexpected database url %q", cfg.DatabaseURL)
	}
	if cfg.Blob.Provider != "s3" {
		t.Fatalf("unexpected blob provider %q", cfg.Blob.Provider)
	}
}

func TestLoadHonoursPortEnvironment(t *testing.T) {
	t.Setenv("PORT", "8123")
	configViper := NewViper()
	configViper.Set("auth.signing_secret", "secret")
	configViper.Set("cors.allowed_origin", "https://vault.example.com")
	configViper.Set("blob.provider", "memory")

	cfg, err := Load(configViper)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTPAddress != "0.0.0.0:8123" {
		t.Fatalf("expected PORT to be honoured, got %q", cfg.HTTPAddress)
	}
}

func TestLoadReadsPrefixedEnvironment(t *testing.T) {
	t.Setenv("CLOUDVAULT_AUTH_SIGNING_SECRET", "from-env")
	t.Setenv("CLOUDVAULT_CORS_ALLOWED_ORIGIN", "https://vault.example.com")
	t.Setenv("CLOUDVAULT_BLOB_PROVIDER", "memory")
	t.Setenv("CLOUDVAULT_HTTP_ADDRESS", "127.0.0.1:9000")

	cfg, err := Load(NewViper())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.SigningSecret != "from-env" {
		t.Fatalf("unexpected signing secret %q", cfg.SigningSecret)
	}
	if cfg.HTTPAddress != "127.0.0.1:9000" {
		t.Fatalf("explicit address should win, got %q", cfg.HTTPAddress)
	}
}

func TestLoadValidation(t *testing.T) {
	testCases := []struct {
		name      string
		overrides map[string]interface{}
		wantError string
	}{
		{
			name:      "missing secret",
			overrides: map[string]interface{}{"auth.signing_secret": ""},
			wantError: "auth.signing_secret",
		},
		{
			name:      "missing origin",
			overrides: map[string]interface{}{"cors.allowed_origin": ""},
			wantError: "cors.allowed_origin",
		},
		{
			name:      "unknown provider",
			overrides: map[string]interface{}{"blob.provider": "cloudinary"},
			wantError: "blob.provider",
		},
		{
			name:      "minio without endpoint",
			overrides: map[string]interface{}{"blob.provider": "minio"},
			wantError: "blob.endpoint",
		},
		{
			name:      "non-positive ttl",
			overrides: map[string]interface{}{"auth.token_ttl_minutes": 0},
			wantError: "auth.token_ttl_minutes",
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			configViper := NewViper()
			configViper.Set("auth.signing_secret", "secret")
			configViper.Set("cors.allowed_origin", "https://vault.example.com")
			configViper.Set("blob.bucket", "vault")
			for key, value := range testCase.overrides {
				configViper.Set(key, value)
			}
			_, err := Load(configViper)
			if err == nil {
				t.Fatalf("expected validation error")
			}
			if !strings.Contains(err.Error(), testCase.wantError) {
				t.Fatalf("expected error mentioning %q, got %v", testCase.wantError, err)
			}
		})
	}
}
