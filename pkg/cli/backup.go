package cli

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func cmdBackup() *cli.Command {
	var output string
	var cfg appConfig

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "output",
			Aliases:     []string{"o"},
			Usage:       "Write the archive to this path (\"-\" for stdout). Without it the archive goes to --backup-location",
			Destination: &output,
		},
	}
	flags = append(flags, cfg.Flags()...)

	return &cli.Command{
		Name:    "backup",
		Aliases: []string{"b"},
		Usage:   "Create a backup archive of all users and settings",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			uc, cleanup, err := cfg.build(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			w := writerOf(c)
			if output == "" {
				file, location, err := uc.Backup.SaveBackup(ctx)
				if err != nil {
					return goerr.Wrap(err, "failed to save backup")
				}
				color.New(color.FgGreen).Fprintf(w, "%s: %d users saved to %s\n", file.Message, file.Stats.Users, location)
				return nil
			}

			file, err := uc.Backup.CreateBackup(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to create backup")
			}
			if err := writeOutput(c, output, file.Data); err != nil {
				return err
			}
			if output != "-" {
				color.New(color.FgGreen).Fprintf(w, "%s: %d users written to %s\n", file.Message, file.Stats.Users, output)
			}
			return nil
		},
	}
}

func printStats(c *cli.Command, name string, users int, timestamp, version string) {
	w := writerOf(c)
	bold := color.New(color.Bold)
	bold.Fprintf(w, "%s\n", name)
	fmt.Fprintf(w, "  users:     %d\n", users)
	fmt.Fprintf(w, "  created:   %s\n", timestamp)
	fmt.Fprintf(w, "  version:   %s\n", version)
}
