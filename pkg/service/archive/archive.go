package archive

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/instaflow/pkg/domain/model"
)

const (
	// ManifestName is the required archive entry holding the backup document
	ManifestName = "backup.json"
	// ReadmeName is the informational entry, ignored on restore
	ReadmeName = "readme.txt"
	// Extension is the only accepted archive file extension
	Extension = ".zip"
	// MaxSize is the largest archive accepted for validation or restore
	MaxSize int64 = 50 << 20

	// maxManifestSize bounds the decompressed manifest
	maxManifestSize = 4 * MaxSize
)

// File is an archive candidate: a name, a declared size and random access to
// its bytes. The content is not read until the cheaper checks pass.
type File struct {
	Name   string
	Size   int64
	reader io.ReaderAt
	closer io.Closer
}

// NewFile wraps in-memory archive bytes
func NewFile(name string, data []byte) *File {
	return &File{
		Name:   name,
		Size:   int64(len(data)),
		reader: bytes.NewReader(data),
	}
}

// NewFileFromReader wraps a random access reader such as an uploaded multipart file
func NewFileFromReader(name string, size int64, r io.ReaderAt) *File {
	return &File{
		Name:   name,
		Size:   size,
		reader: r,
	}
}

// OpenFile opens an archive on disk. The caller must Close it.
func OpenFile(path string) (*File, error) {
	fp, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open backup file", goerr.V(model.FileNameKey, path))
	}

	info, err := fp.Stat()
	if err != nil {
		_ = fp.Close()
		return nil, goerr.Wrap(err, "failed to stat backup file", goerr.V(model.FileNameKey, path))
	}

	return &File{
		Name:   filepath.Base(path),
		Size:   info.Size(),
		reader: fp,
		closer: fp,
	}, nil
}

func (f *File) Close() error {
	if f.closer != nil {
		return f.closer.Close()
	}
	return nil
}

// ValidationResult is the outcome of Validate. Exactly one of Stats and
// Error is set.
type ValidationResult struct {
	Valid bool               `json:"valid"`
	Stats *model.BackupStats `json:"stats,omitempty"`
	Error string             `json:"error,omitempty"`
}

// Encode packages the manifest and a readme into a zip archive
func Encode(m *model.BackupManifest, createdAt time.Time) ([]byte, error) {
	manifest, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, goerr.Wrap(err, "failed to marshal backup manifest")
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	entries := []struct {
		name string
		data []byte
	}{
		{name: ManifestName, data: manifest},
		{name: ReadmeName, data: []byte(readme(m, createdAt))},
	}
	for _, entry := range entries {
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     entry.name,
			Method:   zip.Deflate,
			Modified: createdAt,
		})
		if err != nil {
			return nil, goerr.Wrap(err, "failed to add archive entry", goerr.V("entry", entry.name))
		}
		if _, err := w.Write(entry.data); err != nil {
			return nil, goerr.Wrap(err, "failed to write archive entry", goerr.V("entry", entry.name))
		}
	}

	if err := zw.Close(); err != nil {
		return nil, goerr.Wrap(err, "failed to finalize archive")
	}
	return buf.Bytes(), nil
}

func readme(m *model.BackupManifest, createdAt time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "InstaFlow Manager Backup\n")
	fmt.Fprintf(&b, "Created: %s\n", createdAt.Format(time.RFC1123))
	fmt.Fprintf(&b, "Version: %s\n\n", m.Version)
	fmt.Fprintf(&b, "This backup contains:\n")
	fmt.Fprintf(&b, "- %d users\n", len(m.Data.Users))
	fmt.Fprintf(&b, "- Application settings\n")
	fmt.Fprintf(&b, "- %d blacklisted accounts\n\n", len(m.Data.Blacklist))
	fmt.Fprintf(&b, "To restore, use the \"Restore Backup\" feature in Settings or the restore command.\n")
	return b.String()
}

// rawManifest keeps data members undecoded so their JSON kinds can be checked
type rawManifest struct {
	Version   string `json:"version"`
	Timestamp string `json:"timestamp"`
	Data      *struct {
		Users     json.RawMessage `json:"users"`
		Settings  json.RawMessage `json:"settings"`
		Blacklist json.RawMessage `json:"blacklist"`
	} `json:"data"`
}

// Decode checks f in order (extension, size, manifest entry, JSON syntax,
// required keys, user records) and returns the parsed manifest. Every
// structural problem is reported as ErrFormat, except an oversized file
// which is ErrSizeLimit.
func Decode(f *File) (*model.BackupManifest, error) {
	if f == nil {
		return nil, goerr.Wrap(model.ErrValidation, "No file selected")
	}
	if !strings.EqualFold(filepath.Ext(f.Name), Extension) {
		return nil, goerr.Wrap(model.ErrFormat, "File must be a ZIP archive", goerr.V(model.FileNameKey, f.Name))
	}
	if f.Size > MaxSize {
		return nil, goerr.Wrap(model.ErrSizeLimit, "File too large (max 50MB)",
			goerr.V(model.FileNameKey, f.Name),
			goerr.V(model.FileSizeKey, f.Size),
		)
	}

	zr, err := zip.NewReader(f.reader, f.Size)
	if err != nil {
		return nil, goerr.Wrap(model.ErrFormat, "Corrupted backup file", goerr.V("cause", err.Error()))
	}

	content, err := readManifest(zr)
	if err != nil {
		return nil, err
	}

	var raw rawManifest
	if err := json.Unmarshal(content, &raw); err != nil {
		return nil, goerr.Wrap(model.ErrFormat, "Corrupted backup file", goerr.V("cause", err.Error()))
	}
	if raw.Data == nil || !isJSONKind(raw.Data.Users, '[') || !isJSONKind(raw.Data.Settings, '{') {
		return nil, goerr.Wrap(model.ErrFormat, "Invalid backup format")
	}

	var records []*model.UserRecord
	if err := json.Unmarshal(raw.Data.Users, &records); err != nil {
		return nil, goerr.Wrap(model.ErrFormat, "Invalid backup format", goerr.V("cause", err.Error()))
	}
	var settings model.Settings
	if err := json.Unmarshal(raw.Data.Settings, &settings); err != nil {
		return nil, goerr.Wrap(model.ErrFormat, "Invalid backup format", goerr.V("cause", err.Error()))
	}
	settings.Normalize()
	if err := settings.Validate(); err != nil {
		return nil, goerr.Wrap(model.ErrFormat, "Invalid backup format", goerr.V("cause", err.Error()))
	}

	manifest := &model.BackupManifest{
		Version:   raw.Version,
		Timestamp: raw.Timestamp,
		Data: model.BackupData{
			Users:     records,
			Settings:  &settings,
			Blacklist: model.BlacklistedRecords(nonNilRecords(records)),
		},
	}

	users := make([]*model.User, len(records))
	for i, r := range records {
		if r != nil {
			users[i] = r.User()
		}
	}
	if err := model.ValidateUserSet(users); err != nil {
		return nil, goerr.Wrap(model.ErrFormat, "Invalid backup format", goerr.V("cause", err.Error()))
	}

	return manifest, nil
}

// Validate runs Decode and converts its outcome into a result. It never fails.
func Validate(f *File) ValidationResult {
	m, err := Decode(f)
	if err != nil {
		return ValidationResult{Valid: false, Error: err.Error()}
	}
	return ValidationResult{Valid: true, Stats: m.Stats()}
}

func readManifest(zr *zip.Reader) ([]byte, error) {
	var entry *zip.File
	for _, zf := range zr.File {
		if zf.Name == ManifestName {
			entry = zf
			break
		}
	}
	if entry == nil {
		return nil, goerr.Wrap(model.ErrFormat, "Invalid backup: missing backup.json")
	}

	rc, err := entry.Open()
	if err != nil {
		return nil, goerr.Wrap(model.ErrFormat, "Corrupted backup file", goerr.V("cause", err.Error()))
	}
	defer func() { _ = rc.Close() }()

	content, err := io.ReadAll(io.LimitReader(rc, maxManifestSize+1))
	if err != nil {
		return nil, goerr.Wrap(model.ErrFormat, "Corrupted backup file", goerr.V("cause", err.Error()))
	}
	if int64(len(content)) > maxManifestSize {
		return nil, goerr.Wrap(model.ErrSizeLimit, "Backup manifest too large")
	}
	return content, nil
}

// isJSONKind reports whether raw is a JSON value starting with open ('[' or '{')
func isJSONKind(raw json.RawMessage, open byte) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == open
}

func nonNilRecords(records []*model.UserRecord) []*model.UserRecord {
	result := make([]*model.UserRecord, 0, len(records))
	for _, r := range records {
		if r != nil {
			result = append(result, r)
		}
	}
	return result
}
