package async_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/instaflow/pkg/utils/async"
)

func TestDispatch(t *testing.T) {
	t.Run("job outlives the caller context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		started := make(chan struct{})
		result := make(chan error, 1)

		async.Dispatch(ctx, "test", func(ctx context.Context) error {
			close(started)
			time.Sleep(10 * time.Millisecond)
			result <- ctx.Err()
			return nil
		})

		<-started
		cancel()

		select {
		case err := <-result:
			gt.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("job did not finish")
		}
	})

	t.Run("errors and panics do not escape", func(t *testing.T) {
		done := make(chan struct{}, 2)
		async.Dispatch(context.Background(), "failing", func(ctx context.Context) error {
			defer func() { done <- struct{}{} }()
			return errors.New("boom")
		})
		async.Dispatch(context.Background(), "panicking", func(ctx context.Context) error {
			defer func() { done <- struct{}{} }()
			panic("boom")
		})

		for range 2 {
			select {
			case <-done:
			case <-time.After(5 * time.Second):
				t.Fatal("job did not run")
			}
		}
	})
}
