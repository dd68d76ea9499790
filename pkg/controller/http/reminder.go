package http

import (
	"context"
	"net/http"

	"github.com/secmon-lab/instaflow/pkg/utils/async"
)

func (s *Server) listReminders(w http.ResponseWriter, r *http.Request) {
	reminders, _, err := s.uc.Reminder.DueReminders(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"reminders": reminders})
}

// sendReminders returns immediately; delivery continues in the background
func (s *Server) sendReminders(w http.ResponseWriter, r *http.Request) {
	async.Dispatch(r.Context(), "send_reminders", func(ctx context.Context) error {
		_, err := s.uc.Reminder.SendReminders(ctx)
		return err
	})
	writeJSON(w, r, http.StatusAccepted, map[string]string{"status": "accepted"})
}
