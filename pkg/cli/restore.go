package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/instaflow/pkg/domain/model"
	"github.com/secmon-lab/instaflow/pkg/service/archive"
	"github.com/secmon-lab/instaflow/pkg/usecase"
	"github.com/secmon-lab/instaflow/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func cmdRestore() *cli.Command {
	var path string
	var name string
	var yes bool
	var cfg appConfig

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "file",
			Aliases:     []string{"f"},
			Usage:       "Archive on the local disk",
			Destination: &path,
		},
		&cli.StringFlag{
			Name:        "name",
			Usage:       "Archive name in --backup-location",
			Destination: &name,
		},
		&cli.BoolFlag{
			Name:        "yes",
			Aliases:     []string{"y"},
			Usage:       "Skip the confirmation prompt",
			Destination: &yes,
		},
	}
	flags = append(flags, cfg.Flags()...)

	return &cli.Command{
		Name:    "restore",
		Aliases: []string{"r"},
		Usage:   "Replace all users and settings with the content of a backup archive",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			if (path == "") == (name == "") {
				return goerr.Wrap(model.ErrValidation, "exactly one of --file or --name is required")
			}

			uc, cleanup, err := cfg.build(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			file, err := openRestoreSource(ctx, uc, path, name)
			if err != nil {
				return err
			}
			defer func() {
				if err := file.Close(); err != nil {
					logging.From(ctx).Warn("failed to close archive", "error", err.Error())
				}
			}()

			session := uc.Backup.NewRestoreSession()
			defer func() { _ = uc.Backup.CloseRestoreSession(session.ID()) }()

			w := writerOf(c)
			result, err := session.SelectFile(file)
			if err != nil {
				return err
			}
			if !result.Valid {
				color.New(color.FgRed).Fprintf(w, "invalid backup: %s\n", result.Error)
				return goerr.Wrap(model.ErrFormat, "backup validation failed", goerr.V("reason", result.Error))
			}
			printStats(c, file.Name, result.Stats.Users, result.Stats.Timestamp, result.Stats.Version)

			if err := session.RequestRestore(); err != nil {
				return err
			}

			if !yes {
				ok, err := confirm(c, fmt.Sprintf("Replace ALL current users and settings with %d users from this backup?", result.Stats.Users))
				if err != nil {
					return err
				}
				if !ok {
					if err := session.Cancel(); err != nil {
						return err
					}
					color.New(color.FgYellow).Fprintln(w, "Restore cancelled. Nothing was changed.")
					return nil
				}
			}

			outcome, err := session.Confirm(ctx)
			if err != nil {
				if outcome != nil {
					color.New(color.FgRed).Fprintln(w, outcome.Message)
				}
				return err
			}
			color.New(color.FgGreen).Fprintln(w, outcome.Message)
			return nil
		},
	}
}

func openRestoreSource(ctx context.Context, uc *usecase.UseCases, path, name string) (*archive.File, error) {
	if path != "" {
		return archive.OpenFile(path)
	}
	file, err := uc.Backup.LoadBackup(ctx, name)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load backup", goerr.V(model.FileNameKey, name))
	}
	return file, nil
}

func confirm(c *cli.Command, question string) (bool, error) {
	color.New(color.FgYellow, color.Bold).Fprintf(writerOf(c), "%s [y/N]: ", question)

	line, err := bufio.NewReader(readerOf(c)).ReadString('\n')
	if err != nil && line == "" {
		return false, nil
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
