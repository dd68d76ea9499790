package config

import (
	"io"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/m-mizutani/clog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/masq"
	"github.com/secmon-lab/instaflow/pkg/utils/logging"
	"github.com/urfave/cli/v3"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger holds flags for the process wide logger
type Logger struct {
	level     string
	format    string
	output    string
	maxSizeMB int64
}

func (x *Logger) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "Log level (debug, info, warn, error)",
			Category:    "Logging",
			Value:       "info",
			Sources:     cli.EnvVars("INSTAFLOW_LOG_LEVEL"),
			Destination: &x.level,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "Log format (console, json)",
			Category:    "Logging",
			Value:       "console",
			Sources:     cli.EnvVars("INSTAFLOW_LOG_FORMAT"),
			Destination: &x.format,
		},
		&cli.StringFlag{
			Name:        "log-output",
			Usage:       "Log destination: stdout, stderr or a file path (rotated)",
			Category:    "Logging",
			Value:       "stdout",
			Sources:     cli.EnvVars("INSTAFLOW_LOG_OUTPUT"),
			Destination: &x.output,
		},
		&cli.Int64Flag{
			Name:        "log-max-size",
			Usage:       "Rotate the log file after this many megabytes",
			Category:    "Logging",
			Value:       100,
			Sources:     cli.EnvVars("INSTAFLOW_LOG_MAX_SIZE"),
			Destination: &x.maxSizeMB,
		},
	}
}

func (x Logger) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("level", x.level),
		slog.String("format", x.format),
		slog.String("output", x.output),
	)
}

// Configure installs the default logger. The returned function flushes and
// closes the log file, if any.
func (x *Logger) Configure() (func(), error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(x.level)); err != nil {
		return nil, goerr.Wrap(ErrInvalidConfig, "invalid log level", goerr.V(LogLevelKey, x.level))
	}

	var (
		w      io.Writer
		closer = func() {}
		tty    bool
	)
	switch x.output {
	case "", "-", "stdout":
		w, tty = os.Stdout, !color.NoColor
	case "stderr":
		w, tty = os.Stderr, !color.NoColor
	default:
		rotator := &lumberjack.Logger{
			Filename:   x.output,
			MaxSize:    int(x.maxSizeMB),
			MaxBackups: 5,
			Compress:   true,
		}
		w = rotator
		closer = func() { _ = rotator.Close() }
	}

	filter := masq.New(
		masq.WithTag("secret"),
		masq.WithFieldName("TelegramBotToken"),
		masq.WithFieldName("Authorization"),
	)

	var handler slog.Handler
	switch x.format {
	case "console":
		handler = clog.New(
			clog.WithWriter(w),
			clog.WithLevel(level),
			clog.WithColor(tty),
			clog.WithReplaceAttr(filter),
		)
	case "json":
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level:       level,
			ReplaceAttr: filter,
		})
	default:
		closer()
		return nil, goerr.Wrap(ErrInvalidConfig, "invalid log format", goerr.V(LogFormatKey, x.format))
	}

	logging.SetDefault(slog.New(handler))
	return closer, nil
}
