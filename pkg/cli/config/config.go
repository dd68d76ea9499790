package config

import (
	"errors"
	"io/fs"
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/secmon-lab/instaflow/pkg/domain/model"
	"github.com/urfave/cli/v3"
)

// AppConfig holds the --config flag. The TOML file overrides the built-in
// settings defaults:
//
//	[settings]
//	my_accounts = ["main"]
//	account_sources = ["hashtag", "competitor"]
//	unfollow_reminder_days = 7
//	dm_reminder_days = 3
type AppConfig struct {
	path string
}

// appConfigFile is the TOML document layout
type appConfigFile struct {
	Settings *model.Settings `toml:"settings"`
}

func (x *AppConfig) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       "Path to TOML file with default settings",
			Sources:     cli.EnvVars("INSTAFLOW_CONFIG"),
			Destination: &x.path,
		},
	}
}

// Configure returns the settings used when the store has none
func (x *AppConfig) Configure() (*model.Settings, error) {
	if x.path == "" {
		return model.DefaultSettings(), nil
	}
	return LoadAppConfiguration(x.path)
}

// LoadAppConfiguration reads default settings from a TOML file. Omitted
// fields keep their built-in defaults.
func LoadAppConfiguration(path string) (*model.Settings, error) {
	// #nosec G304 - path is expected to be provided by CLI argument
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, goerr.Wrap(ErrConfigNotFound, "config file does not exist", goerr.V(ConfigPathKey, path))
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read config file", goerr.V(ConfigPathKey, path))
	}

	var file appConfigFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, goerr.Wrap(ErrInvalidConfig, "failed to parse TOML config",
			goerr.V(ConfigPathKey, path),
			goerr.V("cause", err.Error()),
		)
	}

	settings := model.DefaultSettings()
	if s := file.Settings; s != nil {
		if s.MyAccounts != nil {
			settings.MyAccounts = make([]string, len(s.MyAccounts))
			for i, acc := range s.MyAccounts {
				settings.MyAccounts[i] = model.NormalizeUsername(acc)
			}
		}
		if s.AccountSources != nil {
			settings.AccountSources = s.AccountSources
		}
		if s.UnfollowReminderDays != 0 {
			settings.UnfollowReminderDays = s.UnfollowReminderDays
		}
		if s.DMReminderDays != 0 {
			settings.DMReminderDays = s.DMReminderDays
		}
		settings.TelegramBotToken = s.TelegramBotToken
		settings.TelegramChatID = s.TelegramChatID
	}

	if err := settings.Validate(); err != nil {
		return nil, goerr.Wrap(errors.Join(ErrInvalidConfig, err), "config validation failed", goerr.V(ConfigPathKey, path))
	}
	return settings, nil
}
