package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/instaflow/pkg/domain/model"
	"github.com/secmon-lab/instaflow/pkg/service/archive"
)

// RestoreState is a step of the restore workflow
type RestoreState string

const (
	RestoreStateIdle                 RestoreState = "idle"
	RestoreStateFileSelected         RestoreState = "file_selected"
	RestoreStateAwaitingConfirmation RestoreState = "awaiting_confirmation"
	RestoreStateRestoring            RestoreState = "restoring"
)

// RestoreSession drives one operator through selecting, confirming and
// running a restore:
//
//	Idle -> FileSelected -> AwaitingConfirmation -> Restoring -> Idle
//
// FileSelected and AwaitingConfirmation return to Idle on Cancel without
// touching the store. A session is unregistered once Confirm finishes; the
// caller's handle still reports the outcome.
type RestoreSession struct {
	id     string
	backup *BackupUseCase

	mu          sync.Mutex
	state       RestoreState
	file        *archive.File
	stats       *model.BackupStats
	lastOutcome *model.RestoreOutcome
	touched     time.Time
}

// RestoreSessionStatus is a point-in-time view of a session
type RestoreSessionStatus struct {
	ID          string                `json:"id"`
	State       RestoreState          `json:"state"`
	FileName    string                `json:"fileName,omitempty"`
	Stats       *model.BackupStats    `json:"stats,omitempty"`
	LastOutcome *model.RestoreOutcome `json:"lastOutcome,omitempty"`
}

func (s *RestoreSession) ID() string {
	return s.id
}

func (s *RestoreSession) State() RestoreState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *RestoreSession) Status() *RestoreSessionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := &RestoreSessionStatus{
		ID:          s.id,
		State:       s.state,
		Stats:       s.stats,
		LastOutcome: s.lastOutcome,
	}
	if s.file != nil {
		status.FileName = s.file.Name
	}
	return status
}

// lastActivity returns the time of the last transition and whether a
// restore is running
func (s *RestoreSession) lastActivity() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.touched, s.state == RestoreStateRestoring
}

// SelectFile validates file. A valid file moves the session to FileSelected;
// an invalid one leaves it Idle. A file may be reselected before confirming.
func (s *RestoreSession) SelectFile(file *archive.File) (archive.ValidationResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case RestoreStateIdle, RestoreStateFileSelected:
	default:
		return archive.ValidationResult{}, s.invalidTransition("select file")
	}

	s.touched = s.backup.now()
	result := s.backup.ValidateBackupFile(file)
	if !result.Valid {
		s.reset()
		return result, nil
	}

	s.state = RestoreStateFileSelected
	s.file = file
	s.stats = result.Stats
	return result, nil
}

// RequestRestore asks for confirmation of the selected file
func (s *RestoreSession) RequestRestore() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != RestoreStateFileSelected {
		return s.invalidTransition("request restore")
	}
	s.state = RestoreStateAwaitingConfirmation
	s.touched = s.backup.now()
	return nil
}

// Cancel abandons the selection. It fails only while restoring.
func (s *RestoreSession) Cancel() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == RestoreStateRestoring {
		return goerr.Wrap(model.ErrInvalidState, "restore cannot be cancelled once started",
			goerr.V(SessionIDKey, s.id),
			goerr.V(model.StateKey, s.state),
		)
	}
	s.reset()
	s.touched = s.backup.now()
	return nil
}

// Confirm runs the restore. The session returns to Idle with the outcome
// recorded whether or not the restore succeeded. If another restore holds
// the store, Confirm fails with ErrBusy and the session keeps waiting for
// confirmation.
func (s *RestoreSession) Confirm(ctx context.Context) (*model.RestoreOutcome, error) {
	s.mu.Lock()
	switch s.state {
	case RestoreStateAwaitingConfirmation:
	case RestoreStateRestoring:
		s.mu.Unlock()
		return nil, goerr.Wrap(model.ErrBusy, "restore already in progress", goerr.V(SessionIDKey, s.id))
	default:
		err := s.invalidTransition("confirm")
		s.mu.Unlock()
		return nil, err
	}
	s.state = RestoreStateRestoring
	file := s.file
	s.mu.Unlock()

	outcome, err := s.backup.RestoreBackup(ctx, file)

	s.mu.Lock()
	s.touched = s.backup.now()
	if errors.Is(err, model.ErrBusy) {
		s.state = RestoreStateAwaitingConfirmation
		s.mu.Unlock()
		return nil, err
	}
	s.lastOutcome = outcome
	s.reset()
	s.mu.Unlock()

	s.backup.forgetSession(s.id)
	return outcome, err
}

// reset returns to Idle. Caller holds mu.
func (s *RestoreSession) reset() {
	s.state = RestoreStateIdle
	s.file = nil
	s.stats = nil
}

func (s *RestoreSession) invalidTransition(action string) error {
	return goerr.Wrap(model.ErrInvalidState, "cannot "+action,
		goerr.V(SessionIDKey, s.id),
		goerr.V(model.StateKey, s.state),
	)
}
