package cli

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/m-mizutani/fireconf"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/instaflow/pkg/repository/firestore"
	"github.com/secmon-lab/instaflow/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func cmdMigrate() *cli.Command {
	var projectID string
	var databaseID string
	var collectionPrefix string
	var dryRun bool

	return &cli.Command{
		Name:    "migrate",
		Aliases: []string{"m"},
		Usage:   "Migrate Firestore indexes",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "firestore-project-id",
				Usage:       "Firestore Project ID (required)",
				Required:    true,
				Sources:     cli.EnvVars("INSTAFLOW_FIRESTORE_PROJECT_ID"),
				Destination: &projectID,
			},
			&cli.StringFlag{
				Name:        "firestore-database-id",
				Usage:       "Firestore Database ID",
				Sources:     cli.EnvVars("INSTAFLOW_FIRESTORE_DATABASE_ID"),
				Destination: &databaseID,
			},
			&cli.StringFlag{
				Name:        "firestore-collection-prefix",
				Usage:       "Prefix for Firestore collection names",
				Sources:     cli.EnvVars("INSTAFLOW_FIRESTORE_COLLECTION_PREFIX"),
				Destination: &collectionPrefix,
			},
			&cli.BoolFlag{
				Name:        "dry-run",
				Usage:       "Preview changes without applying",
				Destination: &dryRun,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := logging.From(ctx).With("project_id", projectID, "database_id", databaseID)
			indexes := getIndexConfig(collectionPrefix)

			client, err := fireconf.NewClient(ctx, projectID, databaseID)
			if err != nil {
				return goerr.Wrap(err, "failed to create fireconf client")
			}
			defer func() {
				if err := client.Close(); err != nil {
					logger.Error("failed to close fireconf client", "error", err.Error())
				}
			}()

			if !dryRun {
				if err := client.Migrate(ctx, indexes); err != nil {
					return goerr.Wrap(err, "failed to apply index migration",
						goerr.V("collection", firestore.UsersCollection(collectionPrefix)))
				}
				color.New(color.FgGreen).Fprintln(writerOf(c), "Firestore indexes are up to date")
				return nil
			}

			plan, err := client.GetMigrationPlan(ctx, indexes)
			if err != nil {
				return goerr.Wrap(err, "failed to create migration plan")
			}

			w := writerOf(c)
			if len(plan.Steps) == 0 {
				fmt.Fprintln(w, "No index changes required")
				return nil
			}
			for _, step := range plan.Steps {
				line := color.New(color.FgCyan)
				if step.Destructive {
					line = color.New(color.FgRed)
				}
				line.Fprintf(w, "%-10v %s: %s\n", step.Operation, step.Collection, step.Description)
			}
			return nil
		},
	}
}

// getIndexConfig returns the Firestore index configuration
func getIndexConfig(prefix string) *fireconf.Config {
	return &fireconf.Config{
		Collections: []fireconf.Collection{
			{
				Name: firestore.UsersCollection(prefix),
				Indexes: []fireconf.Index{
					// Active or blacklisted users in insertion order
					{
						Fields: []fireconf.IndexField{
							{Path: "is_blacklisted", Order: fireconf.OrderAscending},
							{Path: "seq", Order: fireconf.OrderAscending},
						},
					},
					// Username lookups
					{
						Fields: []fireconf.IndexField{
							{Path: "username", Order: fireconf.OrderAscending},
							{Path: "seq", Order: fireconf.OrderAscending},
						},
					},
				},
			},
		},
	}
}
