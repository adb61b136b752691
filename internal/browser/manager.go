// Package browser supervises one headless Chromium process with one
// active page, dispatching a finite verb set against it and recovering
// transparently from page crashes. The browser itself is treated as an
// opaque subprocess steered over the Chrome DevTools Protocol.
package browser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/ehrlich-b/sandboxhost/internal/sblog"
	"github.com/ehrlich-b/sandboxhost/internal/storage"
)

const (
	totalActionTimeout   = 45 * time.Second
	navigationTimeout    = 45 * time.Second
	readyPollInterval    = 200 * time.Millisecond
	viewportWidth        = 1280
	viewportHeight       = 800
	includeAttributesCSV = "id,href,src,alt,aria-label,placeholder,name,title"
)

// Config controls how the managed Chromium instance is launched.
type Config struct {
	ChromeInstancePath string
	Headless           bool
	WorkingDir         string
	RestartCommand     string // optional; e.g. "supervisorctl restart chrome"
}

// Manager owns the one active page and the state machine around it.
type Manager struct {
	cfg Config

	mu          sync.Mutex
	status      Status
	allocCtx    context.Context
	allocCancel context.CancelFunc
	pageCtx     context.Context
	pageCancel  context.CancelFunc
	console     *consoleRing

	cachedURL      string
	cachedTitle    string
	cachedElements []clickableElement
}

// NewManager builds a Manager in the "started" state; the browser process
// itself is not launched until the first action (lazy — nothing pays the
// Chromium startup cost until an action actually needs a page).
func NewManager(cfg Config) *Manager {
	return &Manager{cfg: cfg, status: StatusStarted}
}

// Status reports the current lifecycle state.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Initialize launches Chromium and opens the one active page. Calling it
// while already initializing or ready is a no-op.
func (m *Manager) Initialize(ctx context.Context) error {
	m.mu.Lock()
	if m.status == StatusInitializing || m.status == StatusReady {
		m.mu.Unlock()
		return nil
	}
	m.status = StatusInitializing
	m.mu.Unlock()

	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.Flag("headless", m.cfg.Headless),
		chromedp.Flag("disable-web-security", true),
		chromedp.Flag("disable-features", "IsolateOrigins,site-per-process"),
		chromedp.Flag("disable-site-isolation-trials", true),
		chromedp.WindowSize(viewportWidth, viewportHeight),
	)
	if m.cfg.ChromeInstancePath != "" {
		opts = append(opts, chromedp.ExecPath(m.cfg.ChromeInstancePath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	pageCtx, pageCancel := chromedp.NewContext(allocCtx)

	ring := newConsoleRing()
	attachConsoleRing(pageCtx, ring)

	navCtx, navCancel := context.WithTimeout(pageCtx, navigationTimeout)
	defer navCancel()
	if err := chromedp.Run(navCtx, chromedp.Navigate("about:blank")); err != nil {
		pageCancel()
		allocCancel()
		m.mu.Lock()
		m.status = StatusStarted
		m.mu.Unlock()
		return fmt.Errorf("%w: %v", ErrBrowserDead, err)
	}

	m.mu.Lock()
	m.allocCtx, m.allocCancel = allocCtx, allocCancel
	m.pageCtx, m.pageCancel = pageCtx, pageCancel
	m.console = ring
	m.status = StatusReady
	m.mu.Unlock()
	return nil
}

// ensureReady blocks until the manager reaches StatusReady, initializing it
// if it has never been started and polling while another caller's
// Initialize is in flight.
func (m *Manager) ensureReady(ctx context.Context) error {
	m.mu.Lock()
	status := m.status
	m.mu.Unlock()

	if status == StatusStarted {
		return m.Initialize(ctx)
	}
	for status != StatusReady {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(readyPollInterval):
		}
		m.mu.Lock()
		status = m.status
		m.mu.Unlock()
	}
	return nil
}

// RecreatePage replaces the active page with a fresh tab pointed at
// about:blank, used to recover from a crashed/closed target.
func (m *Manager) RecreatePage(ctx context.Context) error {
	m.mu.Lock()
	if m.status != StatusReady {
		m.mu.Unlock()
		if err := m.Initialize(ctx); err != nil {
			return err
		}
		m.mu.Lock()
	}
	allocCtx := m.allocCtx
	if m.pageCancel != nil {
		m.pageCancel()
	}
	m.mu.Unlock()

	pageCtx, pageCancel := chromedp.NewContext(allocCtx)
	ring := newConsoleRing()
	attachConsoleRing(pageCtx, ring)

	navCtx, navCancel := context.WithTimeout(pageCtx, navigationTimeout)
	defer navCancel()
	if err := chromedp.Run(navCtx, chromedp.Navigate("about:blank")); err != nil {
		pageCancel()
		return fmt.Errorf("%w: recreate failed: %v", ErrPageDead, err)
	}

	m.mu.Lock()
	m.pageCtx, m.pageCancel = pageCtx, pageCancel
	m.console = ring
	m.mu.Unlock()
	return nil
}

// ensurePageAlive runs a trivial evaluation against the current page and
// recreates it on a target-closed style failure.
func (m *Manager) ensurePageAlive(ctx context.Context) error {
	m.mu.Lock()
	pageCtx := m.pageCtx
	m.mu.Unlock()

	if pageCtx == nil {
		return m.RecreatePage(ctx)
	}

	var sink int
	if err := chromedp.Run(pageCtx, chromedp.Evaluate("1", &sink)); err != nil {
		if isTargetClosed(err) {
			return m.RecreatePage(ctx)
		}
		return fmt.Errorf("%w: %v", ErrPageDead, err)
	}
	return nil
}

func isTargetClosed(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "target closed") || strings.Contains(msg, "context canceled") || strings.Contains(msg, "No target")
}

// HealthCheck reports whether the browser is ready and responsive.
func (m *Manager) HealthCheck(ctx context.Context) bool {
	m.mu.Lock()
	status := m.status
	pageCtx := m.pageCtx
	m.mu.Unlock()
	if status != StatusReady || pageCtx == nil {
		return false
	}

	var result int
	checkCtx, cancel := context.WithTimeout(pageCtx, 5*time.Second)
	defer cancel()
	if err := chromedp.Run(checkCtx, chromedp.Evaluate("1 + 1", &result)); err != nil {
		return false
	}
	return result == 2
}

// Restart tears the browser process down, optionally runs an OS-level
// supervisor restart, and reinitializes from scratch.
func (m *Manager) Restart(ctx context.Context) error {
	m.mu.Lock()
	if m.pageCancel != nil {
		m.pageCancel()
	}
	if m.allocCancel != nil {
		m.allocCancel()
	}
	m.status = StatusStarted
	m.pageCtx, m.pageCancel = nil, nil
	m.allocCtx, m.allocCancel = nil, nil
	m.mu.Unlock()

	if m.cfg.RestartCommand != "" {
		fields := strings.Fields(m.cfg.RestartCommand)
		cmd := exec.CommandContext(ctx, fields[0], fields[1:]...)
		if err := cmd.Run(); err != nil {
			sblog.Warn("browser: restart command failed", "error", err)
		}
	}

	return m.Initialize(ctx)
}

// Tabs reports the tab count for the /browser/status endpoint: 1 while the
// manager is ready (it keeps a single page) and 0 otherwise. The browser
// is not queried for its actual target list.
func (m *Manager) Tabs(ctx context.Context) int {
	m.mu.Lock()
	status := m.status
	m.mu.Unlock()
	if status != StatusReady {
		return 0
	}
	return 1
}

// screenshotPath builds a unique save path for the current page's clean
// screenshot under <working_dir>/screenshots, named after the page's host.
func (m *Manager) screenshotPath(pageURL string) (string, error) {
	host := stripScheme(pageURL)
	if host == "" {
		host = "page"
	}
	host = strings.TrimPrefix(host, "www.")
	host = strings.ReplaceAll(host, ".", "_")

	dir := filepath.Join(m.cfg.WorkingDir, "screenshots")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("browser: creating screenshot dir: %w", err)
	}
	return filepath.Join(dir, storage.UniqueName(host+".webp")), nil
}

func stripScheme(u string) string {
	for _, prefix := range []string{"https://", "http://"} {
		if strings.HasPrefix(u, prefix) {
			u = strings.TrimPrefix(u, prefix)
			break
		}
	}
	if idx := strings.IndexAny(u, "/?"); idx >= 0 {
		u = u[:idx]
	}
	return u
}

var errUnsupportedAction = errors.New("browser: no action verb set")
