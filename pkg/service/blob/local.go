package blob

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/instaflow/pkg/domain/model"
)

// Local keeps archives as files in a directory
type Local struct {
	dir string
}

func NewLocal(dir string) (*Local, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, goerr.Wrap(err, "failed to create backup directory", goerr.V("dir", dir))
	}
	return &Local{dir: dir}, nil
}

func (l *Local) Put(ctx context.Context, name string, data []byte) (string, error) {
	if err := checkName(name); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", goerr.Wrap(err, "put cancelled")
	}

	// write to a temporary file first so readers never see a partial archive
	dst := filepath.Join(l.dir, name)
	tmp, err := os.CreateTemp(l.dir, "."+name+".*")
	if err != nil {
		return "", goerr.Wrap(err, "failed to create temporary file", goerr.V("dir", l.dir))
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return "", goerr.Wrap(err, "failed to write backup", goerr.V("path", dst))
	}
	if err := tmp.Close(); err != nil {
		return "", goerr.Wrap(err, "failed to close backup", goerr.V("path", dst))
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return "", goerr.Wrap(err, "failed to move backup into place", goerr.V("path", dst))
	}
	return dst, nil
}

func (l *Local) Get(ctx context.Context, name string) ([]byte, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, goerr.Wrap(err, "get cancelled")
	}

	p := filepath.Join(l.dir, name)
	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, goerr.Wrap(model.ErrNotFound, "backup not found", goerr.V("path", p))
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read backup", goerr.V("path", p))
	}
	return data, nil
}
