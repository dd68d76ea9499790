package cli

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/instaflow/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func cmdExportCSV() *cli.Command {
	var output string
	var cfg appConfig

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "output",
			Aliases:     []string{"o"},
			Usage:       "Write the CSV to this path (\"-\" for stdout). Defaults to the dated file name",
			Destination: &output,
		},
	}
	flags = append(flags, cfg.Flags()...)

	return &cli.Command{
		Name:  "export-csv",
		Usage: "Export active users as CSV",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			uc, cleanup, err := cfg.build(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			export, err := uc.User.ExportCSV(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to export users")
			}

			path := output
			if path == "" {
				path = export.FileName
			}
			if err := writeOutput(c, path, export.Data); err != nil {
				return err
			}
			logging.From(ctx).Info("users exported", "rows", export.Rows, "output", path)
			return nil
		},
	}
}
