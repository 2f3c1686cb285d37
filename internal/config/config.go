package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config captures every setting the opsboard client and the mock backend read.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Client      ClientConfig      `yaml:"client"`
	Storage     StorageConfig     `yaml:"storage"`
	Logging     LoggingConfig     `yaml:"logging"`
	Logs        LogsConfig        `yaml:"logs"`
	Deployments DeploymentsConfig `yaml:"deployments"`
	Incidents   IncidentsConfig   `yaml:"incidents"`
	Auth        AuthConfig        `yaml:"auth"`
	Audit       AuditConfig       `yaml:"audit"`
}

// ServerConfig controls the mock backend listeners.
type ServerConfig struct {
	Address         string        `yaml:"address"`
	GRPCAddress     string        `yaml:"grpcAddress"`
	MetricsAddress  string        `yaml:"metricsAddress"`
	GracefulTimeout time.Duration `yaml:"gracefulTimeout"`
}

// ClientConfig controls the request pipeline. An empty BaseURL runs the backend in
// process.
type ClientConfig struct {
	BaseURL    string        `yaml:"baseURL"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"maxRetries"`
	RetryDelay time.Duration `yaml:"retryDelay"`
}

// StorageConfig selects the key-value driver behind tokens, filters, the audit trail
// and the mock datasets.
type StorageConfig struct {
	Driver      string       `yaml:"driver"`
	Path        string       `yaml:"path"`
	DatabaseURL string       `yaml:"databaseURL"`
	Valkey      ValkeyConfig `yaml:"valkey"`
}

// ValkeyConfig configures the valkey driver.
type ValkeyConfig struct {
	Addr         string        `yaml:"addr"`
	Username     string        `yaml:"username"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	DialTimeout  time.Duration `yaml:"dialTimeout"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	MaxRetries   int           `yaml:"maxRetries"`
	TLS          bool          `yaml:"tls"`
	KeyPrefix    string        `yaml:"keyPrefix"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// LogsConfig selects the log stream source and paces the mock feed.
type LogsConfig struct {
	// Source is simulated, websocket or nats.
	Source       string        `yaml:"source"`
	StreamURL    string        `yaml:"streamURL"`
	NATSURL      string        `yaml:"natsURL"`
	Subject      string        `yaml:"subject"`
	PageSize     int           `yaml:"pageSize"`
	FeedInterval time.Duration `yaml:"feedInterval"`
	FeedBatch    int           `yaml:"feedBatch"`
}

// DeploymentsConfig tunes the deployments view.
type DeploymentsConfig struct {
	PageSize     int           `yaml:"pageSize"`
	TickInterval time.Duration `yaml:"tickInterval"`
}

// IncidentsConfig tunes the incidents view.
type IncidentsConfig struct {
	PageSize      int           `yaml:"pageSize"`
	RiskThreshold time.Duration `yaml:"riskThreshold"`
}

// AuthConfig controls token lifetimes and password hashing in the mock backend.
type AuthConfig struct {
	AccessTTL  time.Duration `yaml:"accessTTL"`
	RefreshTTL time.Duration `yaml:"refreshTTL"`
	BcryptCost int           `yaml:"bcryptCost"`
}

// AuditConfig bounds the audit trail.
type AuditConfig struct {
	MaxEntries int `yaml:"maxEntries"`
	QueueSize  int `yaml:"queueSize"`
	PageSize   int `yaml:"pageSize"`
}

// Load initialises Config from a YAML file and optional environment overrides. A .env
// file in the working directory is read first; variables already set win.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("read .env: %w", err)
	}
	if path == "" {
		path = os.Getenv("OPSBOARD_CONFIG")
	}

	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	return &cfg, nil
}

// Default returns the configuration used when no file or environment overrides apply.
func Default() *Config {
	cfg := defaultConfig()
	return &cfg
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Address:         ":8080",
			GRPCAddress:     ":50051",
			MetricsAddress:  ":2112",
			GracefulTimeout: 10 * time.Second,
		},
		Client: ClientConfig{
			Timeout:    10 * time.Second,
			MaxRetries: 3,
			RetryDelay: 200 * time.Millisecond,
		},
		Storage: StorageConfig{
			Driver: "badger",
			Path:   ".opsboard/data",
			Valkey: ValkeyConfig{
				DialTimeout:  2 * time.Second,
				ReadTimeout:  500 * time.Millisecond,
				WriteTimeout: 500 * time.Millisecond,
				MaxRetries:   2,
				KeyPrefix:    "opsboard:",
			},
		},
		Logging: LoggingConfig{Level: "info", JSON: false},
		Logs: LogsConfig{
			Source:       "simulated",
			Subject:      "opsboard.logs",
			PageSize:     50,
			FeedInterval: 800 * time.Millisecond,
			FeedBatch:    2,
		},
		Deployments: DeploymentsConfig{PageSize: 10, TickInterval: 600 * time.Millisecond},
		Incidents:   IncidentsConfig{PageSize: 10, RiskThreshold: 2 * time.Hour},
		Auth: AuthConfig{
			AccessTTL:  15 * time.Minute,
			RefreshTTL: 24 * time.Hour,
			BcryptCost: 10,
		},
		Audit: AuditConfig{MaxEntries: 1000, QueueSize: 256, PageSize: 20},
	}
}

func applyEnvOverrides(cfg *Config) {
	setString(&cfg.Server.Address, "OPSBOARD_SERVER_ADDRESS")
	setString(&cfg.Server.GRPCAddress, "OPSBOARD_GRPC_ADDRESS")
	setString(&cfg.Server.MetricsAddress, "OPSBOARD_METRICS_ADDRESS")
	setDuration(&cfg.Server.GracefulTimeout, "OPSBOARD_GRACEFUL_TIMEOUT")

	setString(&cfg.Client.BaseURL, "OPSBOARD_BASE_URL")
	setDuration(&cfg.Client.Timeout, "OPSBOARD_CLIENT_TIMEOUT")
	setInt(&cfg.Client.MaxRetries, "OPSBOARD_CLIENT_MAX_RETRIES")

	setString(&cfg.Storage.Driver, "OPSBOARD_STORAGE_DRIVER")
	setString(&cfg.Storage.Path, "OPSBOARD_STORAGE_PATH")
	setString(&cfg.Storage.DatabaseURL, "OPSBOARD_DATABASE_URL")
	setString(&cfg.Storage.Valkey.Addr, "OPSBOARD_VALKEY_ADDR")
	setString(&cfg.Storage.Valkey.Username, "OPSBOARD_VALKEY_USERNAME")
	setString(&cfg.Storage.Valkey.Password, "OPSBOARD_VALKEY_PASSWORD")
	setInt(&cfg.Storage.Valkey.DB, "OPSBOARD_VALKEY_DB")
	setBool(&cfg.Storage.Valkey.TLS, "OPSBOARD_VALKEY_TLS")

	setString(&cfg.Logging.Level, "OPSBOARD_LOG_LEVEL")
	if v := os.Getenv("OPSBOARD_LOG_FORMAT"); v != "" {
		cfg.Logging.JSON = strings.EqualFold(v, "json")
	}

	setString(&cfg.Logs.Source, "OPSBOARD_LOGS_SOURCE")
	setString(&cfg.Logs.StreamURL, "OPSBOARD_LOGS_STREAM_URL")
	setString(&cfg.Logs.NATSURL, "OPSBOARD_NATS_URL")
	setString(&cfg.Logs.Subject, "OPSBOARD_NATS_SUBJECT")

	setDuration(&cfg.Deployments.TickInterval, "OPSBOARD_DEPLOYMENTS_TICK")
	setDuration(&cfg.Incidents.RiskThreshold, "OPSBOARD_SLA_RISK_THRESHOLD")

	setDuration(&cfg.Auth.AccessTTL, "OPSBOARD_ACCESS_TTL")
	setDuration(&cfg.Auth.RefreshTTL, "OPSBOARD_REFRESH_TTL")
	setInt(&cfg.Auth.BcryptCost, "OPSBOARD_BCRYPT_COST")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = strings.EqualFold(v, "true") || v == "1"
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
