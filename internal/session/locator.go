// internal/session/locator.go
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	cdppage "github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/replay-cli/api/schemas"
	"github.com/xkilldash9x/replay-cli/internal/config"
)

// versionInfo is the answer to the /json/version handshake.
type versionInfo struct {
	Browser              string `json:"Browser"`
	WebSocketDebuggerURL string `json:"webSocketDebuggerUrl"`
}

// targetInfo is one entry of the /json/list target listing. The endpoint
// returns targets in most-recently-active order, which the selection logic
// relies on.
type targetInfo struct {
	ID                   string `json:"id"`
	Type                 string `json:"type"`
	Title                string `json:"title"`
	URL                  string `json:"url"`
	WebSocketDebuggerURL string `json:"webSocketDebuggerUrl"`
}

// Prober abstracts how candidate endpoints are discovered and queried, so the
// hardcoded port list stays configuration and tests can stub the transport.
type Prober interface {
	// Probe checks whether a debugging endpoint answers on the address and
	// returns its version handshake.
	Probe(ctx context.Context, host string, port int) (*versionInfo, error)
	// ListTargets returns the endpoint's exposed targets in MRU order.
	ListTargets(ctx context.Context, host string, port int) ([]targetInfo, error)
}

// httpProber is the production Prober over the DevTools HTTP endpoints.
type httpProber struct {
	client  *http.Client
	timeout time.Duration
}

func (p *httpProber) get(ctx context.Context, rawURL string, out interface{}) error {
	reqCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, rawURL)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (p *httpProber) Probe(ctx context.Context, host string, port int) (*versionInfo, error) {
	var info versionInfo
	if err := p.get(ctx, fmt.Sprintf("http://%s:%d/json/version", host, port), &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (p *httpProber) ListTargets(ctx context.Context, host string, port int) ([]targetInfo, error) {
	var targets []targetInfo
	if err := p.get(ctx, fmt.Sprintf("http://%s:%d/json/list", host, port), &targets); err != nil {
		return nil, err
	}
	return targets, nil
}

// Locator discovers the host's remote-debugging endpoint and attaches to the
// embedded content page among all exposed targets. It owns the resulting
// Handle; other components only borrow it.
type Locator struct {
	cfg    config.BrowserConfig
	logger *zap.Logger
	prober Prober

	// attach is swappable for tests; production pins the selected target on
	// the browser-level websocket.
	attach func(ctx context.Context, browserWSURL string, t *targetInfo) (*Handle, error)

	handle *Handle
}

// NewLocator creates a locator for the configured endpoint candidates.
func NewLocator(cfg config.BrowserConfig, logger *zap.Logger) *Locator {
	l := &Locator{
		cfg:    cfg,
		logger: logger.Named("session_locator"),
		prober: &httpProber{
			client:  &http.Client{},
			timeout: cfg.ProbeTimeout,
		},
	}
	l.attach = l.attachTarget
	return l
}

// Connect finds the debugging endpoint, selects the content page target, and
// attaches to it. Reconnection is idempotent: a still-live handle is returned
// as-is, while a stale one is re-resolved because the target page may have
// navigated (or been replaced) since the last attach.
func (l *Locator) Connect(ctx context.Context) (*Handle, error) {
	if l.handle != nil {
		if l.handle.alive(ctx) {
			return l.handle, nil
		}
		l.logger.Info("Existing session handle is stale, re-resolving target.")
		l.handle.close()
		l.handle = nil
	}

	port, version, err := l.findEndpoint(ctx)
	if err != nil {
		return nil, err
	}
	if version.WebSocketDebuggerURL == "" {
		return nil, fmt.Errorf("%w: endpoint on port %d exposes no browser websocket URL", schemas.ErrConnection, port)
	}

	chosen, err := l.selectTarget(ctx, port)
	if err != nil {
		return nil, err
	}

	handle, err := l.attach(ctx, version.WebSocketDebuggerURL, chosen)
	if err != nil {
		return nil, fmt.Errorf("%w: attach to target %s: %v", schemas.ErrConnection, chosen.ID, err)
	}

	l.handle = handle
	l.logger.Info("Attached to page target",
		zap.Int("port", port),
		zap.String("target_id", chosen.ID),
		zap.String("url", chosen.URL),
	)
	return handle, nil
}

// Close releases the attached handle, if any.
func (l *Locator) Close() {
	if l.handle != nil {
		l.handle.close()
		l.handle = nil
	}
}

// findEndpoint probes the preferred port first, then the fallback list, each
// under a short timeout. The host randomizes its port per run, so nothing
// beyond the configured candidates can be assumed.
func (l *Locator) findEndpoint(ctx context.Context) (int, *versionInfo, error) {
	candidates := make([]int, 0, len(l.cfg.FallbackPorts)+1)
	if l.cfg.PreferredPort > 0 {
		candidates = append(candidates, l.cfg.PreferredPort)
	}
	for _, p := range l.cfg.FallbackPorts {
		if p != l.cfg.PreferredPort {
			candidates = append(candidates, p)
		}
	}

	for _, port := range candidates {
		if ctx.Err() != nil {
			return 0, nil, fmt.Errorf("%w: %v", schemas.ErrConnection, ctx.Err())
		}
		info, err := l.prober.Probe(ctx, l.cfg.DebugHost, port)
		if err != nil {
			l.logger.Debug("Port probe failed", zap.Int("port", port), zap.Error(err))
			continue
		}
		l.logger.Debug("Debugging endpoint answered", zap.Int("port", port), zap.String("browser", info.Browser))
		return port, info, nil
	}

	return 0, nil, fmt.Errorf("%w: no endpoint answered on %s (tried %v)", schemas.ErrConnection, l.cfg.DebugHost, candidates)
}

// selectTarget picks the automatable content page among all exposed targets.
// The host typically exposes its own chrome UI pages alongside the embedded
// page; only network-scheme pages that are not known chrome files qualify.
// Targets arrive in MRU order, so the first survivor is the one most recently
// associated with the active tab.
func (l *Locator) selectTarget(ctx context.Context, port int) (*targetInfo, error) {
	targets, err := l.prober.ListTargets(ctx, l.cfg.DebugHost, port)
	if err != nil {
		return nil, fmt.Errorf("%w: list targets: %v", schemas.ErrConnection, err)
	}

	for i := range targets {
		t := &targets[i]
		if t.Type != "page" {
			continue
		}
		if !l.isContentPage(t.URL) {
			l.logger.Debug("Skipping non-content target", zap.String("url", t.URL), zap.String("title", t.Title))
			continue
		}
		return t, nil
	}

	return nil, fmt.Errorf("%w: %d targets exposed, none with a network-scheme page URL", schemas.ErrNoTarget, len(targets))
}

// isContentPage reports whether the URL looks like the embedded content page
// rather than application chrome.
func (l *Locator) isContentPage(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	switch u.Scheme {
	case "http", "https":
	default:
		// file://, devtools://, chrome://, about: are never content pages.
		return false
	}

	base := strings.ToLower(path.Base(u.Path))
	for _, name := range l.cfg.ChromeUIFiles {
		if base == strings.ToLower(name) {
			return false
		}
	}
	return true
}

// attachTarget builds the chromedp contexts for the chosen target. The
// allocator dials the browser-level websocket from the /json/version
// handshake, and the page context pins the selected target ID so the session
// drives that page instead of a freshly created tab.
func (l *Locator) attachTarget(ctx context.Context, browserWSURL string, t *targetInfo) (*Handle, error) {
	allocCtx, allocCancel := chromedp.NewRemoteAllocator(context.Background(), browserWSURL, chromedp.NoModifyURL)
	pageCtx, pageCancel := chromedp.NewContext(allocCtx,
		chromedp.WithTargetID(target.ID(t.ID)),
		chromedp.WithLogf(func(string, ...interface{}) {}),
	)

	// Force the connection now so a dead websocket surfaces here rather than
	// on the first step. The caller's context can abort the check.
	runCtx, runCancel := CombineContext(pageCtx, ctx)
	defer runCancel()
	probeCtx, probeCancel := context.WithTimeout(runCtx, 10*time.Second)
	defer probeCancel()
	probe := chromedp.ActionFunc(func(ctx context.Context) error {
		_, err := cdppage.GetFrameTree().Do(ctx)
		return err
	})
	if err := chromedp.Run(probeCtx, probe); err != nil {
		pageCancel()
		allocCancel()
		return nil, err
	}

	return &Handle{
		targetID: t.ID,
		ctx:      pageCtx,
		cancel: func() {
			pageCancel()
			allocCancel()
		},
		logger: l.logger.Named("handle"),
	}, nil
}
