package cli

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/secmon-lab/instaflow/pkg/domain/model"
	"github.com/urfave/cli/v3"
)

func cmdRemind() *cli.Command {
	var dryRun bool
	var cfg appConfig

	flags := []cli.Flag{
		&cli.BoolFlag{
			Name:        "dry-run",
			Usage:       "List due reminders without sending them",
			Destination: &dryRun,
		},
	}
	flags = append(flags, cfg.Flags()...)

	return &cli.Command{
		Name:  "remind",
		Usage: "Send the digest of due unfollow and DM reminders",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			uc, cleanup, err := cfg.build(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			w := writerOf(c)
			if dryRun {
				reminders, _, err := uc.Reminder.DueReminders(ctx)
				if err != nil {
					return err
				}
				if len(reminders) == 0 {
					fmt.Fprintln(w, "No reminders due")
					return nil
				}
				fmt.Fprint(w, model.FormatReminderDigest(reminders))
				return nil
			}

			report, err := uc.Reminder.SendReminders(ctx)
			if err != nil {
				return err
			}
			if len(report.Reminders) == 0 {
				fmt.Fprintln(w, "No reminders due")
				return nil
			}
			color.New(color.FgGreen).Fprintf(w, "%d reminders, delivered via %v\n", len(report.Reminders), report.Delivered)
			if len(report.Skipped) > 0 {
				color.New(color.FgYellow).Fprintf(w, "skipped (not configured): %v\n", report.Skipped)
			}
			if len(report.Failed) > 0 {
				color.New(color.FgRed).Fprintf(w, "failed: %v\n", report.Failed)
			}
			return nil
		},
	}
}
