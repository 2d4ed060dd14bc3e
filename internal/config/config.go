package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App      AppConfig
	Moltin   MoltinConfig
	Transfer TransferConfig
	Log      LogConfig
	Tracing  TracingConfig
	Metrics  MetricsConfig
	Local    LocalConfig
}

type AppConfig struct {
	Name        string
	Environment string
	Version     string
}

type MoltinConfig struct {
	BaseURL      string
	APIVersion   string
	ClientID     string
	ClientSecret string
	// ClientSecretARN points at an AWS Secrets Manager secret holding the
	// client secret. Used only when ClientSecret is empty.
	ClientSecretARN string
	Timeout         time.Duration
}

type TransferConfig struct {
	// Concurrency bounds the number of order items updated at once.
	Concurrency int
}

type LogConfig struct {
	Level      string
	Format     string
	OutputPath string
}

type TracingConfig struct {
	Enabled     bool
	ServiceName string
	Endpoint    string
	SampleRate  float64
}

type MetricsConfig struct {
	PushgatewayURL string
	Job            string
}

type LocalConfig struct {
	Addr            string
	ShutdownTimeout time.Duration
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_NAME", "transfer-flows")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("APP_VERSION", "0.0.0")

	v.SetDefault("MOLTIN_BASE_URL", "https://api.moltin.com")
	v.SetDefault("MOLTIN_API_VERSION", "v2")
	v.SetDefault("MOLTIN_CLIENT_ID", "")
	v.SetDefault("MOLTIN_CLIENT_SECRET", "")
	v.SetDefault("MOLTIN_CLIENT_SECRET_ARN", "")
	v.SetDefault("MOLTIN_TIMEOUT", 10*time.Second)

	v.SetDefault("TRANSFER_CONCURRENCY", 8)

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("LOG_OUTPUT", "stdout")

	v.SetDefault("TRACING_ENABLED", false)
	v.SetDefault("TRACING_SERVICE_NAME", "transfer-flows")
	v.SetDefault("OTLP_ENDPOINT", "http://localhost:4318/v1/traces")
	v.SetDefault("TRACING_SAMPLE_RATE", 0.1)

	v.SetDefault("METRICS_PUSHGATEWAY_URL", "")
	v.SetDefault("METRICS_JOB", "transfer_flows")

	v.SetDefault("LOCAL_ADDR", ":8080")
	v.SetDefault("LOCAL_SHUTDOWN_TIMEOUT", 10*time.Second)
}

// Load reads configuration from the environment. It is called once per
// process; the result is passed down explicitly.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name:        v.GetString("APP_NAME"),
			Environment: v.GetString("APP_ENV"),
			Version:     v.GetString("APP_VERSION"),
		},
		Moltin: MoltinConfig{
			BaseURL:         strings.TrimRight(v.GetString("MOLTIN_BASE_URL"), "/"),
			APIVersion:      strings.Trim(v.GetString("MOLTIN_API_VERSION"), "/"),
			ClientID:        v.GetString("MOLTIN_CLIENT_ID"),
			ClientSecret:    v.GetString("MOLTIN_CLIENT_SECRET"),
			ClientSecretARN: v.GetString("MOLTIN_CLIENT_SECRET_ARN"),
			Timeout:         v.GetDuration("MOLTIN_TIMEOUT"),
		},
		Transfer: TransferConfig{
			Concurrency: v.GetInt("TRANSFER_CONCURRENCY"),
		},
		Log: LogConfig{
			Level:      v.GetString("LOG_LEVEL"),
			Format:     v.GetString("LOG_FORMAT"),
			OutputPath: v.GetString("LOG_OUTPUT"),
		},
		Tracing: TracingConfig{
			Enabled:     v.GetBool("TRACING_ENABLED"),
			ServiceName: v.GetString("TRACING_SERVICE_NAME"),
			Endpoint:    v.GetString("OTLP_ENDPOINT"),
			SampleRate:  v.GetFloat64("TRACING_SAMPLE_RATE"),
		},
		Metrics: MetricsConfig{
			PushgatewayURL: v.GetString("METRICS_PUSHGATEWAY_URL"),
			Job:            v.GetString("METRICS_JOB"),
		},
		Local: LocalConfig{
			Addr:            v.GetString("LOCAL_ADDR"),
			ShutdownTimeout: v.GetDuration("LOCAL_SHUTDOWN_TIMEOUT"),
		},
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func validate(cfg *Config) error {
	var errs []string

	if cfg.Moltin.ClientID == "" {
		errs = append(errs, "MOLTIN_CLIENT_ID is required")
	}
	if cfg.Moltin.ClientSecret == "" && cfg.Moltin.ClientSecretARN == "" {
		errs = append(errs, "one of MOLTIN_CLIENT_SECRET or MOLTIN_CLIENT_SECRET_ARN is required")
	}
	if u, err := url.Parse(cfg.Moltin.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Sprintf("MOLTIN_BASE_URL %q is not an absolute URL", cfg.Moltin.BaseURL))
	}
	if cfg.Moltin.Timeout <= 0 {
		errs = append(errs, "MOLTIN_TIMEOUT must be positive")
	}
	if cfg.Transfer.Concurrency < 1 {
		errs = append(errs, "TRANSFER_CONCURRENCY must be at least 1")
	}
	if cfg.Tracing.SampleRate < 0 || cfg.Tracing.SampleRate > 1 {
		errs = append(errs, "TRACING_SAMPLE_RATE must be between 0 and 1")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}
