package cli

import (
	"context"
	"errors"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/instaflow/pkg/cli/config"
	"github.com/secmon-lab/instaflow/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

const envFileFlag = "env-file"

func Run(ctx context.Context, args []string, version string) error {
	var loggerCfg config.Logger
	var sentryCfg config.Sentry
	var envFile string
	var closers []func()

	// Flag values are resolved from the environment while parsing, so the
	// env file must be loaded before the app runs.
	if err := loadEnvFile(args); err != nil {
		return err
	}

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        envFileFlag,
			Usage:       "Load environment variables from this file before reading flags",
			Value:       ".env",
			Destination: &envFile,
		},
	}
	flags = append(flags, loggerCfg.Flags()...)
	flags = append(flags, sentryCfg.Flags()...)

	app := &cli.Command{
		Name:    "instaflow",
		Usage:   "Track Instagram outreach: follows, follow-backs, DMs and reminders",
		Version: version,
		Flags:   flags,
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			f, err := loggerCfg.Configure()
			if err != nil {
				return ctx, err
			}
			closers = append(closers, f)

			flush, err := sentryCfg.Configure(version)
			if err != nil {
				return ctx, err
			}
			closers = append(closers, flush)

			logging.Default().Info("Starting instaflow",
				"version", version,
				"logger", loggerCfg,
				"sentry", sentryCfg,
				"env_file", envFile,
			)
			return ctx, nil
		},
		After: func(ctx context.Context, c *cli.Command) error {
			for i := len(closers) - 1; i >= 0; i-- {
				closers[i]()
			}
			return nil
		},
		Commands: []*cli.Command{
			cmdServe(),
			cmdBackup(),
			cmdRestore(),
			cmdValidateBackup(),
			cmdExportCSV(),
			cmdRemind(),
			cmdMigrate(),
		},
	}

	if err := app.Run(ctx, args); err != nil {
		logging.Default().Error("failed to run app", "error", err)
		return err
	}

	return nil
}

// loadEnvFile loads --env-file (default .env) into the process environment.
// Variables already set win. A missing default file is not an error.
func loadEnvFile(args []string) error {
	path, explicit := ".env", false
	for i := 0; i < len(args); i++ {
		arg := strings.TrimLeft(args[i], "-")
		if len(arg) == len(args[i]) {
			continue
		}
		switch {
		case arg == envFileFlag && i+1 < len(args):
			path, explicit = args[i+1], true
		case strings.HasPrefix(arg, envFileFlag+"="):
			path, explicit = strings.TrimPrefix(arg, envFileFlag+"="), true
		}
	}

	if err := godotenv.Load(path); err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return goerr.Wrap(err, "failed to load env file", goerr.V("path", path))
	}
	return nil
}
