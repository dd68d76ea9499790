package usecase

// Context keys for error values
const (
	SessionIDKey = "session_id"
	NotifierKey  = "notifier"
	BlobNameKey  = "blob_name"
)
