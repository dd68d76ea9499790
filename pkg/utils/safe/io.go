package safe

import (
	"context"
	"io"

	"github.com/secmon-lab/instaflow/pkg/utils/logging"
)

// Close closes c and logs a failure instead of returning it. A nil c is ignored.
func Close(ctx context.Context, c io.Closer) {
	if c == nil {
		return
	}
	if err := c.Close(); err != nil {
		logging.From(ctx).Warn("close failed", "error", err)
	}
}

// Write sends data to w for callers that cannot act on a failed write, such
// as an HTTP response whose status line is already out.
func Write(ctx context.Context, w io.Writer, data []byte) {
	if w == nil {
		return
	}
	if n, err := w.Write(data); err != nil {
		logging.From(ctx).Warn("write failed", "error", err, "written", n, "size", len(data))
	}
}
