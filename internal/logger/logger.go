package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogConfig controls the global logger. Fields are filled by envconfig.
type LogConfig struct {
	Level      string `envconfig:"LOG_LEVEL" default:"info"`
	Format     string `envconfig:"LOG_FORMAT" default:"json"`   // json | console
	Output     string `envconfig:"LOG_OUTPUT" default:"stdout"` // stdout | stderr | file
	FilePath   string `envconfig:"LOG_FILE_PATH" default:"logs/tastingbot.log"`
	TimeFormat string `envconfig:"LOG_TIME_FORMAT" default:"rfc3339"` // rfc3339 | unix | iso8601
}

// Logger is disabled until InitLogger runs, so packages can log from tests without setup.
var Logger = zerolog.Nop()

// logFile is the open file when Output is "file"
var logFile *os.File

var timeFormats = map[string]string{
	"rfc3339": time.RFC3339,
	"unix":    zerolog.TimeFormatUnix,
	"iso8601": "2006-01-02T15:04:05.000Z07:00",
}

// InitLogger initializes the global logger with the provided configuration
func InitLogger(config LogConfig) error {
	level, err := zerolog.ParseLevel(strings.ToLower(config.Level))
	if err != nil {
		return fmt.Errorf("invalid log level '%s': %w", config.Level, err)
	}

	output, file, err := openOutput(config)
	if err != nil {
		return err
	}

	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339
	if f, ok := timeFormats[strings.ToLower(config.TimeFormat)]; ok {
		zerolog.TimeFieldFormat = f
	}

	if strings.ToLower(config.Format) == "console" {
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: time.RFC3339}
	}

	Logger = zerolog.New(output).With().
		Timestamp().
		Caller().
		Logger()

	// Also set the global zerolog logger for compatibility
	log.Logger = Logger

	prev := logFile
	logFile = file
	if prev != nil {
		prev.Close()
	}

	Logger.Info().
		Str("level", level.String()).
		Str("format", config.Format).
		Str("output", config.Output).
		Msg("logger initialized")
	return nil
}

// openOutput resolves the configured sink; unknown names fall back to stdout
func openOutput(config LogConfig) (io.Writer, *os.File, error) {
	switch strings.ToLower(config.Output) {
	case "stderr":
		return os.Stderr, nil, nil
	case "file":
		if err := os.MkdirAll(filepath.Dir(config.FilePath), 0o755); err != nil {
			return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		f, err := os.OpenFile(config.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file '%s': %w", config.FilePath, err)
		}
		return f, f, nil
	default:
		return os.Stdout, nil, nil
	}
}

// Close releases the log file opened by InitLogger and silences the logger
func Close() error {
	if logFile == nil {
		return nil
	}
	Logger = zerolog.Nop()
	log.Logger = Logger
	err := logFile.Close()
	logFile = nil
	return err
}

// With returns a child logger carrying the component name
func With(component string) zerolog.Logger {
	return Logger.With().Str("component", component).Logger()
}

// Convenience methods for common logging patterns
func Info() *zerolog.Event {
	return Logger.Info()
}

func Debug() *zerolog.Event {
	return Logger.Debug()
}

func Warn() *zerolog.Event {
	return Logger.Warn()
}

func Error() *zerolog.Event {
	return Logger.Error()
}
