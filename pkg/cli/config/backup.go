package config

import (
	"context"
	"log/slog"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/instaflow/pkg/domain/interfaces"
	"github.com/secmon-lab/instaflow/pkg/service/blob"
	"github.com/urfave/cli/v3"
)

// BackupStorage holds flags for where archives are kept and how often the
// server writes one on its own.
type BackupStorage struct {
	location string
	interval time.Duration
}

func (x *BackupStorage) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "backup-location",
			Usage:       "Backup destination: a directory or gs://bucket/prefix",
			Category:    "Backup",
			Sources:     cli.EnvVars("INSTAFLOW_BACKUP_LOCATION"),
			Destination: &x.location,
		},
		&cli.DurationFlag{
			Name:        "backup-interval",
			Usage:       "Interval of scheduled backups (0 disables)",
			Category:    "Backup",
			Sources:     cli.EnvVars("INSTAFLOW_BACKUP_INTERVAL"),
			Destination: &x.interval,
		},
	}
}

func (x BackupStorage) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("location", x.location),
		slog.Duration("interval", x.interval),
	)
}

// Interval returns the scheduled backup interval
func (x *BackupStorage) Interval() time.Duration {
	return x.interval
}

// Configure opens the backup storage. It returns nil when no location is set.
func (x *BackupStorage) Configure(ctx context.Context) (interfaces.BlobStorage, error) {
	if x.location == "" {
		return nil, nil
	}
	storage, err := blob.New(ctx, x.location)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open backup storage", goerr.V("location", x.location))
	}
	return storage, nil
}
