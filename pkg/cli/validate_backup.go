package cli

import (
	"context"

	"github.com/fatih/color"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/instaflow/pkg/domain/model"
	"github.com/secmon-lab/instaflow/pkg/service/archive"
	"github.com/secmon-lab/instaflow/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func cmdValidateBackup() *cli.Command {
	return &cli.Command{
		Name:      "validate-backup",
		Aliases:   []string{"v"},
		Usage:     "Check a backup archive without restoring it",
		ArgsUsage: "<archive.zip>",
		Action: func(ctx context.Context, c *cli.Command) error {
			path := c.Args().First()
			if path == "" {
				return goerr.Wrap(model.ErrValidation, "archive path is required")
			}

			file, err := archive.OpenFile(path)
			if err != nil {
				return err
			}
			defer func() {
				if err := file.Close(); err != nil {
					logging.From(ctx).Warn("failed to close archive", "error", err.Error())
				}
			}()

			result := archive.Validate(file)
			if !result.Valid {
				color.New(color.FgRed).Fprintf(writerOf(c), "invalid backup: %s\n", result.Error)
				return goerr.Wrap(model.ErrFormat, "backup validation failed",
					goerr.V(model.FileNameKey, file.Name),
					goerr.V("reason", result.Error),
				)
			}

			color.New(color.FgGreen).Fprintln(writerOf(c), "backup is valid")
			printStats(c, file.Name, result.Stats.Users, result.Stats.Timestamp, result.Stats.Version)
			return nil
		},
	}
}
