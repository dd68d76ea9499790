package config

import "time"

// NewLoggerForTest creates a Logger config for testing purposes
func NewLoggerForTest(level, format, output string) *Logger {
	return &Logger{level: level, format: format, output: output, maxSizeMB: 1}
}

// NewRepositoryForTest creates a Repository config for testing purposes
func NewRepositoryForTest(backend, projectID string) *Repository {
	return &Repository{backend: backend, projectID: projectID}
}

// NewNotifierForTest creates a Notifier config for testing purposes
func NewNotifierForTest(slackWebhookURL string) *Notifier {
	return &Notifier{slackWebhookURL: slackWebhookURL}
}

// NewBackupStorageForTest creates a BackupStorage config for testing purposes
func NewBackupStorageForTest(location string, interval time.Duration) *BackupStorage {
	return &BackupStorage{location: location, interval: interval}
}

// NewAppConfigForTest creates an AppConfig for testing purposes
func NewAppConfigForTest(path string) *AppConfig {
	return &AppConfig{path: path}
}
