package model

import (
	"fmt"
	"time"
)

const (
	// BackupFormatVersion is written into every manifest
	BackupFormatVersion = "1.0.0"

	// ProductName prefixes generated file names
	ProductName = "instaflow"

	// ManifestTimeLayout matches the ISO-8601 form used in manifests
	ManifestTimeLayout = "2006-01-02T15:04:05.000Z07:00"
)

// BackupManifest is the JSON document stored as backup.json
type BackupManifest struct {
	Version   string     `json:"version"`
	Timestamp string     `json:"timestamp"`
	Data      BackupData `json:"data"`
}

// BackupData is the payload of a manifest. Blacklist is derived from Users
// and ignored on restore.
type BackupData struct {
	Users     []*UserRecord `json:"users"`
	Settings  *Settings     `json:"settings"`
	Blacklist []*UserRecord `json:"blacklist"`
}

// BackupFile is a produced archive ready to be persisted or downloaded
type BackupFile struct {
	Name    string       `json:"name"`
	Data    []byte       `json:"-"`
	Message string       `json:"message"`
	Stats   *BackupStats `json:"stats"`
}

// RestoreOutcome reports the result of a restore run
type RestoreOutcome struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Stats   *BackupStats `json:"stats,omitempty"`
}

// BackupStats summarizes a validated archive
type BackupStats struct {
	Users     int    `json:"users"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// NewBackupManifest snapshots users and settings into a manifest
func NewBackupManifest(users []*User, settings *Settings, createdAt time.Time) *BackupManifest {
	records := make([]*UserRecord, len(users))
	for i, u := range users {
		records[i] = u.Record()
	}

	return &BackupManifest{
		Version:   BackupFormatVersion,
		Timestamp: createdAt.UTC().Format(ManifestTimeLayout),
		Data: BackupData{
			Users:     records,
			Settings:  settings.Clone(),
			Blacklist: BlacklistedRecords(records),
		},
	}
}

// Stats returns the summary of the manifest
func (m *BackupManifest) Stats() *BackupStats {
	return &BackupStats{
		Users:     len(m.Data.Users),
		Timestamp: m.Timestamp,
		Version:   m.Version,
	}
}

// RestoredUsers converts the manifest users into application shape
func (m *BackupManifest) RestoredUsers() []*User {
	users := make([]*User, len(m.Data.Users))
	for i, r := range m.Data.Users {
		users[i] = r.User()
	}
	return users
}

// BackupFileName returns the archive name for a backup created at t
func BackupFileName(t time.Time) string {
	return fmt.Sprintf("%s-backup-%s.zip", ProductName, t.Format("2006-01-02"))
}

// UsersCSVFileName returns the CSV export name for an export created at t
func UsersCSVFileName(t time.Time) string {
	return fmt.Sprintf("%s-users-%s.csv", ProductName, t.Format("2006-01-02"))
}
