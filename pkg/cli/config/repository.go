package config

import (
	"context"
	"log/slog"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/instaflow/pkg/domain/interfaces"
	"github.com/secmon-lab/instaflow/pkg/domain/model"
	"github.com/secmon-lab/instaflow/pkg/repository/firestore"
	"github.com/secmon-lab/instaflow/pkg/repository/memory"
	"github.com/secmon-lab/instaflow/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

const (
	BackendFirestore = "firestore"
	BackendMemory    = "memory"
)

// Repository holds CLI flags for repository backend configuration
type Repository struct {
	backend          string
	projectID        string
	databaseID       string
	collectionPrefix string
	memoryLatency    time.Duration
}

// Flags returns CLI flags for repository configuration
func (r *Repository) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "repository-backend",
			Usage:       "Repository backend type (firestore or memory)",
			Category:    "Repository",
			Value:       BackendFirestore,
			Sources:     cli.EnvVars("INSTAFLOW_REPOSITORY_BACKEND"),
			Destination: &r.backend,
		},
		&cli.StringFlag{
			Name:        "firestore-project-id",
			Usage:       "Firestore Project ID (required when using firestore backend)",
			Category:    "Repository",
			Sources:     cli.EnvVars("INSTAFLOW_FIRESTORE_PROJECT_ID"),
			Destination: &r.projectID,
		},
		&cli.StringFlag{
			Name:        "firestore-database-id",
			Usage:       "Firestore Database ID",
			Category:    "Repository",
			Sources:     cli.EnvVars("INSTAFLOW_FIRESTORE_DATABASE_ID"),
			Destination: &r.databaseID,
		},
		&cli.StringFlag{
			Name:        "firestore-collection-prefix",
			Usage:       "Prefix for Firestore collection names",
			Category:    "Repository",
			Sources:     cli.EnvVars("INSTAFLOW_FIRESTORE_COLLECTION_PREFIX"),
			Destination: &r.collectionPrefix,
		},
		&cli.DurationFlag{
			Name:        "memory-latency",
			Usage:       "Artificial delay per operation of the memory backend",
			Category:    "Repository",
			Sources:     cli.EnvVars("INSTAFLOW_MEMORY_LATENCY"),
			Destination: &r.memoryLatency,
		},
	}
}

func (r Repository) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("backend", r.backend),
		slog.String("project_id", r.projectID),
		slog.String("database_id", r.databaseID),
		slog.String("collection_prefix", r.collectionPrefix),
	)
}

// Backend returns the configured backend type
func (r *Repository) Backend() string {
	return r.backend
}

// ProjectID returns the Firestore project ID
func (r *Repository) ProjectID() string {
	return r.projectID
}

// DatabaseID returns the Firestore database ID
func (r *Repository) DatabaseID() string {
	return r.databaseID
}

// CollectionPrefix returns the Firestore collection prefix
func (r *Repository) CollectionPrefix() string {
	return r.collectionPrefix
}

// Configure initializes and returns a repository based on the configured backend.
// defaults are returned by the settings store until settings are saved.
// The caller is responsible for calling Close() on the returned repository.
func (r *Repository) Configure(ctx context.Context, defaults *model.Settings) (interfaces.Repository, error) {
	if defaults == nil {
		defaults = model.DefaultSettings()
	}

	switch r.backend {
	case BackendFirestore:
		if r.projectID == "" {
			return nil, goerr.Wrap(ErrInvalidConfig, "firestore-project-id is required when using firestore backend")
		}
		repo, err := firestore.New(ctx, r.projectID, r.databaseID,
			firestore.WithCollectionPrefix(r.collectionPrefix),
			firestore.WithDefaultSettings(defaults),
		)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to initialize firestore repository")
		}
		logging.From(ctx).Info("Using Firestore repository",
			"project_id", r.projectID,
			"database_id", r.databaseID,
		)
		return repo, nil

	case BackendMemory:
		logging.From(ctx).Info("Using in-memory repository (development mode)")
		return memory.New(
			memory.WithLatency(r.memoryLatency),
			memory.WithDefaultSettings(defaults),
		), nil

	default:
		return nil, goerr.Wrap(ErrInvalidConfig, "invalid repository backend", goerr.V(BackendKey, r.backend))
	}
}
