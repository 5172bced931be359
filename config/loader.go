package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Loader loads configuration with the precedence:
// defaults, then YAML file, then environment variables.
type Loader struct {
	configPath string
	envPrefix  string
}

// NewLoader creates a Loader with the default env prefix.
func NewLoader() *Loader {
	return &Loader{envPrefix: "WARMLINE"}
}

// WithConfigPath sets the YAML config file path.
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix overrides the environment variable prefix.
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// Load resolves the configuration.
func (l *Loader) Load() (*Config, error) {
	cfg := Default()

	if l.configPath != "" {
		data, err := os.ReadFile(l.configPath)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	l.applyEnv(cfg)
	return cfg, nil
}

// applyEnv overrides config fields from environment variables.
func (l *Loader) applyEnv(cfg *Config) {
	l.envInt("SERVER_HTTP_PORT", &cfg.Server.HTTPPort)
	l.envInt("SERVER_METRICS_PORT", &cfg.Server.MetricsPort)
	l.envDuration("SERVER_READ_TIMEOUT", &cfg.Server.ReadTimeout)
	l.envDuration("SERVER_WRITE_TIMEOUT", &cfg.Server.WriteTimeout)
	l.envDuration("SERVER_SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout)
	l.envStrings("SERVER_CORS_ALLOWED_ORIGINS", &cfg.Server.CORSAllowedOrigins)
	l.envInt("SERVER_RATE_LIMIT_RPS", &cfg.Server.RateLimitRPS)
	l.envInt("SERVER_RATE_LIMIT_BURST", &cfg.Server.RateLimitBurst)
	l.envStrings("SERVER_API_KEYS", &cfg.Server.APIKeys)

	l.envDuration("TRANSFER_TIMEOUT", &cfg.Transfer.Timeout)
	l.envDuration("TRANSFER_SUMMARY_TIMEOUT", &cfg.Transfer.SummaryTimeout)
	l.envInt("TRANSFER_MAX_CONCURRENT", &cfg.Transfer.MaxConcurrent)

	l.envString("ROOM_BASE_URL", &cfg.Room.BaseURL)
	l.envString("ROOM_WS_URL", &cfg.Room.WSURL)
	l.envString("ROOM_API_KEY", &cfg.Room.APIKey)
	l.envString("ROOM_API_SECRET", &cfg.Room.APISecret)
	l.envDuration("ROOM_CREDENTIAL_TTL", &cfg.Room.CredentialTTL)
	l.envDuration("ROOM_STALE_ROOM_AGE", &cfg.Room.StaleRoomAge)

	l.envString("SUMMARIZER_BASE_URL", &cfg.Summarizer.BaseURL)
	l.envString("SUMMARIZER_API_KEY", &cfg.Summarizer.APIKey)
	l.envString("SUMMARIZER_MODEL", &cfg.Summarizer.Model)
	l.envInt("SUMMARIZER_MAX_TOKENS", &cfg.Summarizer.MaxTokens)
	l.envDuration("SUMMARIZER_TIMEOUT", &cfg.Summarizer.Timeout)

	l.envDuration("DIRECTORY_HEARTBEAT_TTL", &cfg.Directory.HeartbeatTTL)

	l.envString("REDIS_ADDR", &cfg.Redis.Addr)
	l.envString("REDIS_PASSWORD", &cfg.Redis.Password)
	l.envInt("REDIS_DB", &cfg.Redis.DB)

	l.envString("DATABASE_DRIVER", &cfg.Database.Driver)
	l.envString("DATABASE_PATH", &cfg.Database.Path)
	l.envString("DATABASE_HOST", &cfg.Database.Host)
	l.envInt("DATABASE_PORT", &cfg.Database.Port)
	l.envString("DATABASE_USER", &cfg.Database.User)
	l.envString("DATABASE_PASSWORD", &cfg.Database.Password)
	l.envString("DATABASE_NAME", &cfg.Database.Name)
	l.envString("DATABASE_SSL_MODE", &cfg.Database.SSLMode)

	l.envString("LOG_LEVEL", &cfg.Log.Level)
	l.envString("LOG_FORMAT", &cfg.Log.Format)

	l.envBool("TELEMETRY_ENABLED", &cfg.Telemetry.Enabled)
	l.envString("TELEMETRY_SERVICE_NAME", &cfg.Telemetry.ServiceName)
	l.envString("TELEMETRY_OTLP_ENDPOINT", &cfg.Telemetry.OTLPEndpoint)
	l.envFloat("TELEMETRY_SAMPLE_RATE", &cfg.Telemetry.SampleRate)
}

func (l *Loader) lookup(key string) (string, bool) {
	return os.LookupEnv(l.envPrefix + "_" + key)
}

func (l *Loader) envString(key string, dst *string) {
	if v, ok := l.lookup(key); ok {
		*dst = v
	}
}

func (l *Loader) envStrings(key string, dst *[]string) {
	if v, ok := l.lookup(key); ok {
		parts := strings.Split(v, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		*dst = out
	}
}

func (l *Loader) envInt(key string, dst *int) {
	if v, ok := l.lookup(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func (l *Loader) envFloat(key string, dst *float64) {
	if v, ok := l.lookup(key); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func (l *Loader) envBool(key string, dst *bool) {
	if v, ok := l.lookup(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func (l *Loader) envDuration(key string, dst *time.Duration) {
	if v, ok := l.lookup(key); ok {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
