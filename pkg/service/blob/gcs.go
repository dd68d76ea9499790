package blob

import (
	"context"
	"errors"
	"io"
	"path"

	"cloud.google.com/go/storage"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/instaflow/pkg/domain/model"
	"github.com/secmon-lab/instaflow/pkg/utils/safe"
	"google.golang.org/api/option"
)

// GCS keeps archives as objects under a bucket prefix
type GCS struct {
	client *storage.Client
	bucket string
	prefix string
}

func NewGCS(ctx context.Context, bucket, prefix string, opts ...option.ClientOption) (*GCS, error) {
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create storage client")
	}
	return &GCS{
		client: client,
		bucket: bucket,
		prefix: prefix,
	}, nil
}

func (g *GCS) objectName(name string) string {
	if g.prefix == "" {
		return name
	}
	return path.Join(g.prefix, name)
}

func (g *GCS) Put(ctx context.Context, name string, data []byte) (string, error) {
	if err := checkName(name); err != nil {
		return "", err
	}

	obj := g.objectName(name)
	w := g.client.Bucket(g.bucket).Object(obj).NewWriter(ctx)
	w.ContentType = "application/zip"
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", goerr.Wrap(err, "failed to write object", goerr.V("bucket", g.bucket), goerr.V("object", obj))
	}
	if err := w.Close(); err != nil {
		return "", goerr.Wrap(err, "failed to finalize object", goerr.V("bucket", g.bucket), goerr.V("object", obj))
	}
	return gcsScheme + g.bucket + "/" + obj, nil
}

func (g *GCS) Get(ctx context.Context, name string) ([]byte, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}

	obj := g.objectName(name)
	r, err := g.client.Bucket(g.bucket).Object(obj).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, goerr.Wrap(model.ErrNotFound, "backup not found", goerr.V("bucket", g.bucket), goerr.V("object", obj))
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open object", goerr.V("bucket", g.bucket), goerr.V("object", obj))
	}
	defer safe.Close(ctx, r)

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read object", goerr.V("bucket", g.bucket), goerr.V("object", obj))
	}
	return data, nil
}

func (g *GCS) Close() error {
	return g.client.Close()
}
