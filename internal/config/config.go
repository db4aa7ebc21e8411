package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"tasting_bot/internal/core"
	"tasting_bot/internal/logger"
)

// Config is the process configuration, read from the environment
type Config struct {
	LogConfig      logger.LogConfig `envconfig:""`
	SessionConfig  SessionConfig    `envconfig:""`
	DatabaseConfig DatabaseConfig   `envconfig:""`
	ServerConfig   ServerConfig     `envconfig:""`
	FlowConfig     FlowConfig       `envconfig:""`
}

// SessionConfig selects the draft, search-context and transcript backends
type SessionConfig struct {
	Backend        string        `envconfig:"SESSION_BACKEND" default:"memory" validate:"oneof=memory redis"`
	TTL            time.Duration `envconfig:"SESSION_TTL" default:"60m" validate:"gt=0"`
	SweepInterval  time.Duration `envconfig:"SESSION_SWEEP_INTERVAL" default:"5m" validate:"gt=0"`
	RedisURL       string        `envconfig:"REDIS_URL" validate:"required_if=Backend redis"`
	ContextTTL     time.Duration `envconfig:"SEARCH_CONTEXT_TTL" default:"30m"`
	ContextEntries int           `envconfig:"SEARCH_CONTEXT_ENTRIES" default:"1024" validate:"gt=0"`
	MaxTurns       int           `envconfig:"TRANSCRIPT_MAX_TURNS" default:"100" validate:"gt=0"`
}

// DatabaseConfig locates the tasting store. DB_URL wins over the POSTGRESQL_* parts; SQLite is the fallback.
type DatabaseConfig struct {
	URL        string `envconfig:"DB_URL"`
	Host       string `envconfig:"POSTGRESQL_HOST"`
	Port       int    `envconfig:"POSTGRESQL_PORT" default:"5432"`
	User       string `envconfig:"POSTGRESQL_USER"`
	Password   string `envconfig:"POSTGRESQL_PASSWORD"`
	DBName     string `envconfig:"POSTGRESQL_DBNAME"`
	SSLMode    string `envconfig:"POSTGRESQL_SSLMODE" default:"disable"`
	SQLitePath string `envconfig:"SQLITE_PATH" default:"tastings.db"`
}

// ServerConfig configures the HTTP side of the chat transport
type ServerConfig struct {
	Addr    string `envconfig:"HTTP_ADDR" default:":8080"`
	GinMode string `envconfig:"GIN_MODE" default:"release" validate:"oneof=debug release test"`
}

// FlowConfig tunes the dispatcher and the dialogue
type FlowConfig struct {
	VocabularyFile string `envconfig:"VOCABULARY_FILE"`
	Workers        int    `envconfig:"DISPATCH_WORKERS" default:"8" validate:"gte=1"`
	QueueSize      int    `envconfig:"DISPATCH_QUEUE" default:"64" validate:"gte=1"`
	PageSize       int    `envconfig:"SEARCH_PAGE_SIZE" default:"5" validate:"gte=1,lte=50"`
}

// DSN returns the database URL in the form tastings.OpenURL accepts
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	if d.Host != "" {
		u := url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(d.User, d.Password),
			Host:     d.Host + ":" + strconv.Itoa(d.Port),
			Path:     "/" + d.DBName,
			RawQuery: "sslmode=" + url.QueryEscape(d.SSLMode),
		}
		return u.String()
	}
	return "sqlite://" + d.SQLitePath
}

// LoadConfig reads envFile if present, then the environment
func LoadConfig(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("error loading %s: %w", envFile, err)
			}
			logger.Warn().Str("file", envFile).Msg("env file not found, using environment only")
		}
	}

	var config Config
	if err := envconfig.Process("", &config); err != nil {
		return nil, fmt.Errorf("error processing environment configuration: %w", err)
	}
	if err := validator.New().Struct(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &config, nil
}

// LoadVocabulary reads preset lists from a YAML file; missing lists fall back to the defaults
func LoadVocabulary(path string) (core.Vocabulary, error) {
	def := core.DefaultVocabulary()
	if path == "" {
		return def, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return core.Vocabulary{}, fmt.Errorf("error reading vocabulary file: %w", err)
	}

	var v core.Vocabulary
	if err := yaml.Unmarshal(data, &v); err != nil {
		return core.Vocabulary{}, fmt.Errorf("error parsing YAML: %w", err)
	}
	return v.Merge(def), nil
}
