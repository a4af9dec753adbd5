package downloader

import (
	"context"
	"io"

	"github.com/tokgrab/tokgrab/internal/domain"
)

// Downloader transfers a media resource to local disk using a captured
// browser session.
type Downloader interface {
	// Download streams the session's media URL to destPath, replaying
	// the session headers. Returns the number of bytes written.
	Download(ctx context.Context, session domain.SessionContext, destPath string) (int64, error)
}

// ProgressSink receives transfer progress as chunks are written.
// Write is called with each chunk after it has been handed to the
// destination; Close marks the transfer finished.
type ProgressSink interface {
	io.Writer
	Close() error
}

// ProgressFactory builds a ProgressSink for one transfer. total is -1
// when the size probe could not determine the expected size.
type ProgressFactory func(total int64, description string) ProgressSink
