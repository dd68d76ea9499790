package errutil

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/getsentry/sentry-go"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/instaflow/pkg/utils/logging"
)

// goerrContextKey names the Sentry context that carries goerr values
const goerrContextKey = "goerr"

// Handle logs err with msg and reports it to Sentry when a client is configured.
// It returns err unchanged.
func Handle(ctx context.Context, err error, msg string) error {
	if err == nil {
		return nil
	}

	logging.From(ctx).Error(msg, errorAttrs(err)...)
	capture(ctx, err)
	return err
}

// HandleHTTP logs err and writes a JSON error body with statusCode.
// Only 5xx errors are reported to Sentry.
func HandleHTTP(ctx context.Context, w http.ResponseWriter, err error, statusCode int) {
	if err == nil {
		return
	}

	attrs := append([]any{"status", statusCode}, errorAttrs(err)...)
	if statusCode >= http.StatusInternalServerError {
		logging.From(ctx).Error("HTTP error", attrs...)
		capture(ctx, err)
	} else {
		logging.From(ctx).Warn("HTTP error", attrs...)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

func errorAttrs(err error) []any {
	var ge *goerr.Error
	if errors.As(err, &ge) {
		return []any{
			slog.String("error", err.Error()),
			slog.Any("values", ge.Values()),
			slog.Any("stack", ge.Stacks()),
		}
	}
	return []any{slog.String("error", err.Error())}
}

func capture(ctx context.Context, err error) {
	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	if hub.Client() == nil {
		return
	}

	var ge *goerr.Error
	if errors.As(err, &ge) {
		hub.WithScope(func(scope *sentry.Scope) {
			scope.SetContext(goerrContextKey, sentry.Context(ge.Values()))
			hub.CaptureException(err)
		})
		return
	}
	hub.CaptureException(err)
}
