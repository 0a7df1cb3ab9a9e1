package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	envPrefix              = "CLOUDVAULT"
	defaultPort            = "5000"
	defaultDatabaseURL     = "cloudvault.db"
	defaultLogLevel        = "info"
	defaultLogFormat       = "json"
	defaultTokenTTLMinutes = 60
	defaultBlobProvider    = "s3"
	defaultMaxUploadMB     = 32
)

// AppConfig captures runtime configuration for the API server.
type AppConfig struct {
	HTTPAddress   string
	DatabaseURL   string
	SigningSecret string
	TokenTTL      time.Duration
	AllowedOrigin string
	MaxUploadMB   int64
	Blob          BlobConfig
	LogLevel      string
	LogFormat     string
}

// BlobConfig captures object storage settings.
type BlobConfig struct {
	Provider      string
	Bucket        string
	Region        string
	Endpoint      string
	AccessKey     string
	SecretKey     string
	PublicBaseURL string
	UseSSL        bool
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
// The bare PORT variable is honoured so the service runs unchanged on PaaS hosts.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()
	_ = configViper.BindEnv("http.port", envPrefix+"_HTTP_PORT", "PORT")

	configViper.SetDefault("http.address", "")
	configViper.SetDefault("http.port", defaultPort)
	configViper.SetDefault("http.max_upload_mb", defaultMaxUploadMB)
	configViper.SetDefault("database.url", defaultDatabaseURL)
	configViper.SetDefault("auth.token_ttl_minutes", defaultTokenTTLMinutes)
	configViper.SetDefault("blob.provider", defaultBlobProvider)
	configViper.SetDefault("blob.use_ssl", true)
	configViper.SetDefault("log.level", defaultLogLevel)
	configViper.SetDefault("log.format", defaultLogFormat)
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	address := strings.TrimSpace(configViper.GetString("http.address"))
	if address == "" {
		address = "0.0.0.0:" + strings.TrimSpace(configViper.GetString("http.port"))
	}

	cfg := AppConfig{
		HTTPAddress:   address,
		DatabaseURL:   configViper.GetString("database.url"),
		SigningSecret: configViper.GetString("auth.signing_secret"),
		TokenTTL:      time.Duration(configViper.GetInt("auth.token_ttl_minutes")) * time.Minute,
		AllowedOrigin: strings.TrimSpace(configViper.GetString("cors.allowed_origin")),
		MaxUploadMB:   configViper.GetInt64("http.max_upload_mb"),
		Blob: BlobConfig{
			Provider:      strings.ToLower(strings.TrimSpace(configViper.GetString("blob.provider"))),
			Bucket:        configViper.GetString("blob.bucket"),
			Region:        configViper.GetString("blob.region"),
			Endpoint:      configViper.GetString("blob.endpoint"),
			AccessKey:     configViper.GetString("blob.access_key"),
			SecretKey:     configViper.GetString("blob.secret_key"),
			PublicBaseURL: configViper.GetString("blob.public_base_url"),
			UseSSL:        configViper.GetBool("blob.use_ssl"),
		},
		LogLevel:  configViper.GetString("log.level"),
		LogFormat: configViper.GetString("log.format"),
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

func (c AppConfig) validate() error {
	if strings.HasSuffix(c.HTTPAddress, ":") {
		return fmt.Errorf("http.port is required")
	}
	if strings.TrimSpace(c.SigningSecret) == "" {
		return fmt.Errorf("auth.signing_secret is required")
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("auth.token_ttl_minutes must be positive")
	}
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("database.url is required")
	}
	if c.AllowedOrigin == "" {
		return fmt.Errorf("cors.allowed_origin is required")
	}
	if c.MaxUploadMB <= 0 {
		return fmt.Errorf("http.max_upload_mb must be positive")
	}
	switch c.Blob.Provider {
	case "s3":
		if strings.TrimSpace(c.Blob.Bucket) == "" {
			return fmt.Errorf("blob.bucket is required")
		}
	case "minio":
		if strings.TrimSpace(c.Blob.Bucket) == "" {
			return fmt.Errorf("blob.bucket is required")
		}
		if strings.TrimSpace(c.Blob.Endpoint) == "" {
			return fmt.Errorf("blob.endpoint is required for minio")
		}
		if c.Blob.AccessKey == "" || c.Blob.SecretKey == "" {
			return fmt.Errorf("blob.access_key and blob.secret_key are required for minio")
		}
	case "memory":
	default:
		return fmt.Errorf("blob.provider must be one of s3, minio, memory (got %q)", c.Blob.Provider)
	}
	return nil
}
