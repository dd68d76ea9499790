// Package blob stores backup archives in a local directory or a Cloud
// Storage bucket.
package blob

import (
	"context"
	"path"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/instaflow/pkg/domain/interfaces"
	"github.com/secmon-lab/instaflow/pkg/domain/model"
)

const gcsScheme = "gs://"

// New opens the store addressed by location: "gs://bucket/prefix" selects
// Cloud Storage, anything else is treated as a local directory.
func New(ctx context.Context, location string) (interfaces.BlobStorage, error) {
	if location == "" {
		return nil, goerr.Wrap(model.ErrValidation, "backup storage location is empty")
	}

	if strings.HasPrefix(location, gcsScheme) {
		bucket, prefix, _ := strings.Cut(strings.TrimPrefix(location, gcsScheme), "/")
		if bucket == "" {
			return nil, goerr.Wrap(model.ErrValidation, "bucket name is empty", goerr.V("location", location))
		}
		return NewGCS(ctx, bucket, prefix)
	}
	return NewLocal(location)
}

// checkName rejects names that would escape the store
func checkName(name string) error {
	if name == "" || name != path.Base(name) || name == "." || name == ".." || strings.ContainsRune(name, '\\') {
		return goerr.Wrap(model.ErrValidation, "invalid blob name", goerr.V("name", name))
	}
	return nil
}
