package downloader

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/tokgrab/tokgrab/internal/config"
	"github.com/tokgrab/tokgrab/internal/domain"
)

// HTTPDownloader implements Downloader over plain HTTP, replaying the
// headers captured from the browser session.
type HTTPDownloader struct {
	// client is used for the short size probe with an overall timeout
	client *http.Client
	// streamClient is used for the streaming transfer without an
	// overall timeout (large files), only a response header bound
	streamClient *http.Client
	cfg          config.DownloadConfig
	progress     ProgressFactory
	logger       *slog.Logger
}

// NewHTTPDownloader creates a new HTTP media downloader.
func NewHTTPDownloader(cfg config.DownloadConfig, progress ProgressFactory, logger *slog.Logger) *HTTPDownloader {
	if progress == nil {
		progress = NopProgress
	}
	if logger == nil {
		logger = slog.Default()
	}

	streamTransport := &http.Transport{
		ResponseHeaderTimeout: cfg.HeaderTimeout,
	}

	return &HTTPDownloader{
		client: &http.Client{
			Timeout: cfg.ProbeTimeout,
		},
		streamClient: &http.Client{
			Transport: streamTransport,
		},
		cfg:      cfg,
		progress: progress,
		logger:   logger,
	}
}

// Probe issues a HEAD request with the session headers to learn the
// expected transfer size. Returns -1 with an error when the size could
// not be determined; callers treat that as unknown-total mode, never
// as fatal.
func (d *HTTPDownloader) Probe(ctx context.Context, session domain.SessionContext) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, session.MediaURL, nil)
	if err != nil {
		return -1, fmt.Errorf("create probe request: %w", err)
	}
	applyHeaders(req, session)

	resp, err := d.client.Do(req)
	if err != nil {
		return -1, fmt.Errorf("probe request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return -1, fmt.Errorf("probe status %d", resp.StatusCode)
	}
	if resp.ContentLength < 0 {
		return -1, fmt.Errorf("probe response omitted content length")
	}
	return resp.ContentLength, nil
}

// Download streams the media resource to destPath. The size probe is
// best-effort; any probe failure degrades to unknown-total mode. Read
// side errors surface as ErrTransferFailed, write side errors as
// ErrWriteFailed. The destination is left in place on failure, which
// may mean a truncated file.
func (d *HTTPDownloader) Download(ctx context.Context, session domain.SessionContext, destPath string) (int64, error) {
	if !session.Complete() {
		return 0, fmt.Errorf("%w: session has no media URL", domain.ErrNoMediaFound)
	}

	total, err := d.Probe(ctx, session)
	if err != nil {
		d.logger.Warn("size probe failed, continuing with unknown total", "error", err)
		total = -1
	} else {
		d.logger.Info("size probe ok", "total", humanize.Bytes(uint64(total)))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, session.MediaURL, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: create request: %v", domain.ErrTransferFailed, err)
	}
	applyHeaders(req, session)

	start := time.Now()
	resp, err := d.streamClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrTransferFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, fmt.Errorf("%w: status %d", domain.ErrTransferFailed, resp.StatusCode)
	}

	dest, err := os.Create(destPath)
	if err != nil {
		return 0, fmt.Errorf("%w: create %s: %v", domain.ErrWriteFailed, destPath, err)
	}

	state := NewTransferState(total)
	sink := d.progress(total, filepath.Base(destPath))
	defer sink.Close()

	if err := d.transfer(resp.Body, dest, state, sink); err != nil {
		dest.Close()
		return state.Transferred, err
	}

	// Completion is signalled by the write side: the transfer resolves
	// only once the destination reports the stream flushed and closed.
	if err := dest.Sync(); err != nil {
		dest.Close()
		return state.Transferred, fmt.Errorf("%w: sync %s: %v", domain.ErrWriteFailed, destPath, err)
	}
	if err := dest.Close(); err != nil {
		return state.Transferred, fmt.Errorf("%w: close %s: %v", domain.ErrWriteFailed, destPath, err)
	}

	if state.Short() {
		d.logger.Warn("transfer ended short of expected size",
			"transferred", state.Transferred,
			"expected", state.Total,
		)
	}

	d.logger.Info("transfer complete",
		"path", destPath,
		"bytes", humanize.Bytes(uint64(state.Transferred)),
		"elapsed", time.Since(start).Round(time.Millisecond).String(),
	)
	return state.Transferred, nil
}

// transfer pumps the response body into dest chunk by chunk. A chunk
// is counted as transferred only after dest accepted the write.
func (d *HTTPDownloader) transfer(body io.Reader, dest io.Writer, state *TransferState, sink ProgressSink) error {
	buf := make([]byte, d.cfg.BufferSize)
	warnedOverrun := false

	for {
		n, readErr := body.Read(buf)
		if n > 0 {
			if _, writeErr := dest.Write(buf[:n]); writeErr != nil {
				return fmt.Errorf("%w: %v", domain.ErrWriteFailed, writeErr)
			}
			state.Add(n)
			sink.Write(buf[:n])

			if state.Overrun() && !warnedOverrun {
				warnedOverrun = true
				d.logger.Warn("transfer exceeded expected size",
					"transferred", state.Transferred,
					"expected", state.Total,
				)
			}
		}
		if readErr == io.EOF {
			return nil
		}
		if readErr != nil {
			return fmt.Errorf("%w: %v", domain.ErrTransferFailed, readErr)
		}
	}
}

// applyHeaders replays the captured session headers on an outbound
// request. Exactly the headers the extractor produced, nothing else.
func applyHeaders(req *http.Request, session domain.SessionContext) {
	for name, values := range session.Headers() {
		for _, v := range values {
			req.Header.Set(name, v)
		}
	}
}
