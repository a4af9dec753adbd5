// Package extractor drives a headless browser session to a video page
// and captures everything a plain HTTP client needs to download the
// media outside the browser: the direct source URL, the session cookie
// jar and the live user-agent string.
package extractor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/tokgrab/tokgrab/internal/config"
	"github.com/tokgrab/tokgrab/internal/domain"
)

// mediaSourceJS reads the nested media-source element's src without
// waiting: by the time it runs the video element is already present,
// so an empty result means the page exposes no source.
const mediaSourceJS = `(() => {
	const s = document.querySelector('video source');
	return s ? (s.getAttribute('src') || '') : '';
})()`

// Extractor obtains a media URL and session headers from a rendered
// video page.
type Extractor struct {
	cfg    config.BrowserConfig
	logger *slog.Logger
}

// New creates an Extractor with explicit browser configuration.
func New(cfg config.BrowserConfig, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{cfg: cfg, logger: logger}
}

// Extract validates the page URL, renders the page in an isolated
// headless browser and captures the session. The reference check runs
// before any browser is launched so malformed URLs fail without side
// effects. The browser instance is torn down on every exit path.
func (e *Extractor) Extract(ctx context.Context, pageURL string) (domain.SessionContext, domain.TargetReference, error) {
	ref, err := domain.ParseReference(pageURL)
	if err != nil {
		return domain.SessionContext{}, domain.TargetReference{}, err
	}

	e.logger.Info("launching browser session",
		"reference", ref.String(),
		"headless", e.cfg.Headless,
		"stealth", e.cfg.Stealth,
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocatorOptions(e.cfg)...)
	defer cancelAlloc()

	taskCtx, cancelTask := chromedp.NewContext(allocCtx)
	defer cancelTask()

	if err := e.navigate(taskCtx, pageURL); err != nil {
		return domain.SessionContext{}, ref, err
	}

	if err := e.waitForVideo(taskCtx); err != nil {
		return domain.SessionContext{}, ref, err
	}

	session, err := e.captureSession(taskCtx, pageURL)
	if err != nil {
		return domain.SessionContext{}, ref, err
	}

	e.logger.Info("session captured",
		"media_url_len", len(session.MediaURL),
		"cookie_header_len", len(session.CookieHeader),
		"user_agent", session.UserAgent,
	)
	return session, ref, nil
}

// navigate loads the page, injecting the stealth script before any
// page script runs when stealth is enabled.
func (e *Extractor) navigate(taskCtx context.Context, pageURL string) error {
	navCtx, cancel := context.WithTimeout(taskCtx, e.cfg.NavTimeout)
	defer cancel()

	actions := []chromedp.Action{network.Enable()}
	if e.cfg.Stealth {
		actions = append(actions, chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(stealthScript).Do(ctx)
			return err
		}))
	}
	actions = append(actions, chromedp.Navigate(pageURL))

	if err := chromedp.Run(navCtx, actions...); err != nil {
		return classifyTimeout(err, fmt.Sprintf("navigate %s", pageURL), e.cfg.NavTimeout)
	}
	return nil
}

// waitForVideo blocks until the video element appears in the rendered
// document, bounded by the configured element timeout.
func (e *Extractor) waitForVideo(taskCtx context.Context) error {
	waitCtx, cancel := context.WithTimeout(taskCtx, e.cfg.ElementTimeout)
	defer cancel()

	if err := chromedp.Run(waitCtx, chromedp.WaitReady("video", chromedp.ByQuery)); err != nil {
		return classifyTimeout(err, "wait for video element", e.cfg.ElementTimeout)
	}
	return nil
}

// classifyTimeout maps a deadline expiry anywhere in the error chain to
// ErrExtractionTimeout so callers can distinguish a slow page from a
// broken one. Other errors keep their identity and gain the operation
// prefix.
func classifyTimeout(err error, op string, bound time.Duration) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s exceeded %s", domain.ErrExtractionTimeout, op, bound)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// captureSession reads the media source URL and the live session state
// (user-agent, cookie jar) from the rendered page.
func (e *Extractor) captureSession(taskCtx context.Context, pageURL string) (domain.SessionContext, error) {
	var (
		mediaURL     string
		userAgent    string
		cookieHeader string
	)

	err := chromedp.Run(taskCtx,
		chromedp.Evaluate(mediaSourceJS, &mediaURL),
		chromedp.Evaluate(`navigator.userAgent`, &userAgent),
		chromedp.ActionFunc(func(ctx context.Context) error {
			cookies, err := network.GetCookies().WithURLs([]string{pageURL}).Do(ctx)
			if err != nil {
				return err
			}
			cookieHeader = serializeCookies(cookies)
			return nil
		}),
	)
	if err != nil {
		return domain.SessionContext{}, fmt.Errorf("capture session: %w", err)
	}

	if mediaURL == "" {
		return domain.SessionContext{}, fmt.Errorf("%w: video element has no source src", domain.ErrNoMediaFound)
	}

	return domain.SessionContext{
		MediaURL:     mediaURL,
		UserAgent:    userAgent,
		CookieHeader: cookieHeader,
		Referer:      pageURL,
	}, nil
}
