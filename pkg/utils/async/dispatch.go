package async

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/instaflow/pkg/utils/errutil"
	"github.com/secmon-lab/instaflow/pkg/utils/logging"
)

// Dispatch runs job in its own goroutine, detached from the cancellation of
// ctx but keeping its logger. Errors and panics are reported through errutil.
func Dispatch(ctx context.Context, name string, job func(ctx context.Context) error) {
	jobCtx := logging.With(context.WithoutCancel(ctx), logging.From(ctx).With("job", name))

	go func() {
		defer func() {
			if r := recover(); r != nil {
				_ = errutil.Handle(jobCtx, goerr.New("panic in background job", goerr.V("panic", r)), "background job panicked")
			}
		}()

		if err := job(jobCtx); err != nil {
			_ = errutil.Handle(jobCtx, err, "background job failed")
		}
	}()
}
