package errutil_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/instaflow/pkg/utils/errutil"
)

// recordingTransport keeps every event instead of sending it
type recordingTransport struct {
	mu     sync.Mutex
	events []*sentry.Event
}

func (t *recordingTransport) Flush(time.Duration) bool              { return true }
func (t *recordingTransport) FlushWithContext(context.Context) bool { return true }
func (t *recordingTransport) Configure(sentry.ClientOptions)        {}
func (t *recordingTransport) Close()                                {}

func (t *recordingTransport) SendEvent(event *sentry.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = append(t.events, event)
}

func (t *recordingTransport) Events() []*sentry.Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]*sentry.Event(nil), t.events...)
}

func withHub(t *testing.T) (context.Context, *recordingTransport) {
	t.Helper()
	transport := &recordingTransport{}
	client, err := sentry.NewClient(sentry.ClientOptions{Transport: transport})
	gt.NoError(t, err).Required()
	hub := sentry.NewHub(client, sentry.NewScope())
	return sentry.SetHubOnContext(context.Background(), hub), transport
}

func TestHandle_AttachesGoerrValues(t *testing.T) {
	ctx, transport := withHub(t)

	err := goerr.New("restore failed", goerr.V("session_id", "s-1"))
	gt.Value(t, errutil.Handle(ctx, err, "restore failed")).Equal(error(err))

	events := transport.Events()
	gt.Array(t, events).Length(1).Required()
	values, ok := events[0].Contexts["goerr"]
	gt.Bool(t, ok).True()
	gt.Value(t, values["session_id"]).Equal(any("s-1"))
}

func TestHandle_PlainError(t *testing.T) {
	ctx, transport := withHub(t)

	gt.NoError(t, errutil.Handle(ctx, nil, "nothing"))
	gt.Array(t, transport.Events()).Length(0)

	_ = errutil.Handle(ctx, errors.New("boom"), "plain")
	gt.Array(t, transport.Events()).Length(1)
}

func TestHandleHTTP_ReportsOnlyServerErrors(t *testing.T) {
	ctx, transport := withHub(t)

	w := httptest.NewRecorder()
	errutil.HandleHTTP(ctx, w, goerr.New("bad input"), http.StatusBadRequest)
	gt.Value(t, w.Code).Equal(http.StatusBadRequest)
	gt.Array(t, transport.Events()).Length(0)

	w = httptest.NewRecorder()
	errutil.HandleHTTP(ctx, w, goerr.New("store down"), http.StatusInternalServerError)
	gt.Value(t, w.Code).Equal(http.StatusInternalServerError)
	gt.Array(t, transport.Events()).Length(1)
	gt.String(t, w.Body.String()).Contains("store down")
}
