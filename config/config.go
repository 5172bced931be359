package config

import (
	"fmt"
	"time"
)

// Config is the complete warmline configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Transfer   TransferConfig   `yaml:"transfer"`
	Room       RoomConfig       `yaml:"room"`
	Summarizer SummarizerConfig `yaml:"summarizer"`
	Directory  DirectoryConfig  `yaml:"directory"`
	Redis      RedisConfig      `yaml:"redis"`
	Database   DatabaseConfig   `yaml:"database"`
	Log        LogConfig        `yaml:"log"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	HTTPPort           int           `yaml:"http_port"`
	MetricsPort        int           `yaml:"metrics_port"`
	ReadTimeout        time.Duration `yaml:"read_timeout"`
	WriteTimeout       time.Duration `yaml:"write_timeout"`
	ShutdownTimeout    time.Duration `yaml:"shutdown_timeout"`
	CORSAllowedOrigins []string      `yaml:"cors_allowed_origins"`
	RateLimitRPS       int           `yaml:"rate_limit_rps"`
	RateLimitBurst     int           `yaml:"rate_limit_burst"`
	APIKeys            []string      `yaml:"api_keys"`
}

// TransferConfig holds orchestration settings.
type TransferConfig struct {
	// Timeout is how long a transfer may stay non-terminal before it is
	// cancelled with reason "timeout".
	Timeout time.Duration `yaml:"timeout"`

	// SummaryTimeout bounds the summarizer call during initiation.
	SummaryTimeout time.Duration `yaml:"summary_timeout"`

	// BriefingRoomMaxParticipants caps the briefing room size
	// (source operator, target operator, caller).
	BriefingRoomMaxParticipants int `yaml:"briefing_room_max_participants"`

	// MaxConcurrent caps the live transfer working set.
	MaxConcurrent int `yaml:"max_concurrent"`
}

// RoomConfig holds room gateway settings.
type RoomConfig struct {
	BaseURL       string        `yaml:"base_url"`
	WSURL         string        `yaml:"ws_url"`
	APIKey        string        `yaml:"api_key"`
	APISecret     string        `yaml:"api_secret"`
	CredentialTTL time.Duration `yaml:"credential_ttl"`
	StaleRoomAge  time.Duration `yaml:"stale_room_age"`
}

// SummarizerConfig holds summarization provider settings.
type SummarizerConfig struct {
	BaseURL   string        `yaml:"base_url"`
	APIKey    string        `yaml:"api_key"`
	Model     string        `yaml:"model"`
	MaxTokens int           `yaml:"max_tokens"`
	Timeout   time.Duration `yaml:"timeout"`
}

// DirectoryConfig holds operator directory settings.
type DirectoryConfig struct {
	// HeartbeatTTL is how long an operator stays "online" after their
	// last heartbeat.
	HeartbeatTTL time.Duration `yaml:"heartbeat_ttl"`
}

// RedisConfig holds presence store settings.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// DatabaseConfig holds durable store settings.
type DatabaseConfig struct {
	// Driver is one of sqlite, postgres, mysql.
	Driver   string `yaml:"driver"`
	Path     string `yaml:"path"` // sqlite only
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
}

// DSN builds the driver-specific connection string.
func (c DatabaseConfig) DSN() string {
	switch c.Driver {
	case "postgres":
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
	case "mysql":
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
			c.User, c.Password, c.Host, c.Port, c.Name)
	default:
		return c.Path
	}
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level       string   `yaml:"level"`
	Format      string   `yaml:"format"` // json or console
	OutputPaths []string `yaml:"output_paths"`
}

// TelemetryConfig holds OpenTelemetry settings.
type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled"`
	ServiceName  string  `yaml:"service_name"`
	OTLPEndpoint string  `yaml:"otlp_endpoint"`
	SampleRate   float64 `yaml:"sample_rate"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort:        8080,
			MetricsPort:     9090,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			RateLimitRPS:    50,
			RateLimitBurst:  100,
		},
		Transfer: TransferConfig{
			Timeout:                     5 * time.Minute,
			SummaryTimeout:              30 * time.Second,
			BriefingRoomMaxParticipants: 3,
			MaxConcurrent:               100,
		},
		Room: RoomConfig{
			CredentialTTL: 6 * time.Hour,
			StaleRoomAge:  24 * time.Hour,
		},
		Summarizer: SummarizerConfig{
			Model:     "gpt-4o-mini",
			MaxTokens: 500,
			Timeout:   30 * time.Second,
		},
		Directory: DirectoryConfig{
			HeartbeatTTL: 90 * time.Second,
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		Database: DatabaseConfig{
			Driver:  "sqlite",
			Path:    "warmline.db",
			SSLMode: "disable",
		},
		Log: LogConfig{
			Level:       "info",
			Format:      "json",
			OutputPaths: []string{"stdout"},
		},
		Telemetry: TelemetryConfig{
			ServiceName: "warmline",
			SampleRate:  1.0,
		},
	}
}

// Validate checks the configuration for obvious misconfiguration.
func (c *Config) Validate() error {
	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("invalid http_port: %d", c.Server.HTTPPort)
	}
	if c.Server.MetricsPort == c.Server.HTTPPort {
		return fmt.Errorf("metrics_port must differ from http_port")
	}
	if c.Transfer.Timeout <= 0 {
		return fmt.Errorf("transfer timeout must be positive")
	}
	if c.Transfer.BriefingRoomMaxParticipants < 2 {
		return fmt.Errorf("briefing room must admit at least both operators")
	}
	switch c.Database.Driver {
	case "sqlite", "postgres", "mysql":
	default:
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}
	if c.Telemetry.Enabled && c.Telemetry.OTLPEndpoint == "" {
		return fmt.Errorf("telemetry enabled but otlp_endpoint is empty")
	}
	return nil
}
