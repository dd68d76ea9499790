package cli

import (
	"context"
	"io"
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/instaflow/pkg/cli/config"
	"github.com/secmon-lab/instaflow/pkg/usecase"
	"github.com/secmon-lab/instaflow/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// appConfig bundles the flags every data command shares
type appConfig struct {
	app      config.AppConfig
	repo     config.Repository
	notifier config.Notifier
	backup   config.BackupStorage
}

func (x *appConfig) Flags() []cli.Flag {
	var flags []cli.Flag
	flags = append(flags, x.app.Flags()...)
	flags = append(flags, x.repo.Flags()...)
	flags = append(flags, x.notifier.Flags()...)
	flags = append(flags, x.backup.Flags()...)
	return flags
}

// build opens the repository and storage and wires the use cases. The
// returned function releases them.
func (x *appConfig) build(ctx context.Context) (*usecase.UseCases, func(), error) {
	logger := logging.From(ctx)

	defaults, err := x.app.Configure()
	if err != nil {
		return nil, nil, goerr.Wrap(err, "failed to load configuration")
	}

	repo, err := x.repo.Configure(ctx, defaults)
	if err != nil {
		return nil, nil, goerr.Wrap(err, "failed to initialize repository")
	}
	cleanup := func() {
		if err := repo.Close(); err != nil {
			logger.Error("failed to close repository", "error", err.Error())
		}
	}

	opts := []usecase.Option{
		usecase.WithNotifiers(x.notifier.Configure()...),
	}

	storage, err := x.backup.Configure(ctx)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	if storage != nil {
		opts = append(opts, usecase.WithBlobStorage(storage))
		if c, ok := storage.(io.Closer); ok {
			closeRepo := cleanup
			cleanup = func() {
				if err := c.Close(); err != nil {
					logger.Error("failed to close backup storage", "error", err.Error())
				}
				closeRepo()
			}
		}
	}

	logger.Debug("runtime configured",
		"repository", x.repo,
		"notifier", x.notifier,
		"backup", x.backup,
	)
	return usecase.New(repo, opts...), cleanup, nil
}

func writerOf(c *cli.Command) io.Writer {
	if w := c.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}

func readerOf(c *cli.Command) io.Reader {
	if r := c.Root().Reader; r != nil {
		return r
	}
	return os.Stdin
}

// writeOutput writes data to path, or to the command writer when path is "-"
func writeOutput(c *cli.Command, path string, data []byte) error {
	if path == "-" {
		if _, err := writerOf(c).Write(data); err != nil {
			return goerr.Wrap(err, "failed to write output")
		}
		return nil
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return goerr.Wrap(err, "failed to write output file", goerr.V("path", path))
	}
	return nil
}
