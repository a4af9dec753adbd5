// Package pipeline wires the session extractor and the streaming
// downloader into the one-way flow of a single grab: extract, then
// transfer with the captured session replayed.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/tokgrab/tokgrab/internal/domain"
	"github.com/tokgrab/tokgrab/internal/downloader"
)

// Extractor obtains a media URL and session headers from a video page.
type Extractor interface {
	Extract(ctx context.Context, pageURL string) (domain.SessionContext, domain.TargetReference, error)
}

// Result holds the outcome of a completed grab.
type Result struct {
	Reference  domain.TargetReference
	OutputPath string
	Bytes      int64
}

// Pipeline coordinates one extraction followed by one download.
type Pipeline struct {
	extractor  Extractor
	downloader downloader.Downloader
	logger     *slog.Logger
}

// New creates a Pipeline.
func New(ex Extractor, dl downloader.Downloader, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{extractor: ex, downloader: dl, logger: logger}
}

// Run executes a complete grab for the given page URL. When outputPath
// is empty the destination is derived from the parsed reference
// (<handle>_<id>.mp4). The extractor's output is the sole input to the
// downloader; nothing runs concurrently.
func (p *Pipeline) Run(ctx context.Context, pageURL, outputPath string) (*Result, error) {
	grabID := "grab_" + uuid.New().String()[:8]
	log := p.logger.With("grab", grabID)

	log.Info("starting grab", "url", pageURL)

	session, ref, err := p.extractor.Extract(ctx, pageURL)
	if err != nil {
		return nil, domain.NewGrabError("extract", err)
	}
	// A transfer must never start from a partially populated session.
	if !session.Complete() {
		return nil, domain.NewGrabError("extract", fmt.Errorf("%w: empty media URL", domain.ErrNoMediaFound))
	}

	dest := outputPath
	if dest == "" {
		dest = ref.DefaultFilename()
	}

	log.Info("session extracted, starting transfer",
		"reference", ref.String(),
		"dest", dest,
	)

	bytes, err := p.downloader.Download(ctx, session, dest)
	if err != nil {
		return nil, domain.NewGrabError("download", err)
	}

	log.Info("grab complete", "dest", dest, "bytes", bytes)
	return &Result{
		Reference:  ref,
		OutputPath: dest,
		Bytes:      bytes,
	}, nil
}
