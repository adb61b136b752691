package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/ehrlich-b/sandboxhost/internal/sblog"
)

// scrollMetricsJS reports how much of the page lies above and below the
// current viewport, carried on every action result so the caller knows
// whether scrolling is worthwhile.
const scrollMetricsJS = `
JSON.stringify({
  above: Math.max(0, Math.round(window.scrollY)),
  below: Math.max(0, Math.round(document.body.scrollHeight - window.innerHeight - window.scrollY)),
})
`

type scrollMetrics struct {
	Above int `json:"above"`
	Below int `json:"below"`
}

// ExecuteAction runs one decoded action end-to-end: ensure the browser is
// ready, ensure the page target is alive (recreating it if not), dispatch
// the verb under the per-action timeout, refresh the cached page state,
// capture the clean and marked screenshots, and deliver them through the
// caller's upload handles when provided. It never returns an error: every
// failure is folded into the result's Error field. A failed verb on a live
// page still carries the refreshed url/title; a verb timeout carries the
// last cached url/title; failures before dispatch and a closed target
// carry none.
func (m *Manager) ExecuteAction(ctx context.Context, req ActionRequest) *ActionResult {
	res := &ActionResult{}

	kind := req.Action.kind()
	if kind == "" {
		res.Error = errUnsupportedAction.Error()
		return res
	}
	sblog.Info("browser: executing action", "action", kind)

	if err := m.ensureReady(ctx); err != nil {
		res.Error = err.Error()
		return res
	}
	if err := m.ensurePageAlive(ctx); err != nil {
		res.Error = err.Error()
		return res
	}

	m.mu.Lock()
	pageCtx := m.pageCtx
	m.mu.Unlock()

	actCtx, cancel := context.WithTimeout(pageCtx, totalActionTimeout)
	defer cancel()

	text, err := m.runVerb(actCtx, req.Action)
	if err != nil {
		switch {
		case errors.Is(err, context.DeadlineExceeded) || errors.Is(actCtx.Err(), context.DeadlineExceeded):
			// The verb hung; the page may be wedged mid-navigation. Recreate
			// it so the next action starts clean, then report a partial
			// result with whatever the old page knew.
			sblog.Warn("browser: action timed out, recreating page", "action", kind)
			if rerr := m.RecreatePage(ctx); rerr != nil {
				sblog.Error("browser: page recreate after timeout failed", "error", rerr)
			}
			res.Error = fmt.Sprintf("action %s timed out after %s", kind, totalActionTimeout)
			m.mu.Lock()
			res.URL, res.Title = m.cachedURL, m.cachedTitle
			m.mu.Unlock()
			return res
		case isTargetClosed(err):
			sblog.Warn("browser: target closed mid-action, recreating page", "action", kind)
			if rerr := m.RecreatePage(ctx); rerr != nil {
				sblog.Error("browser: page recreate failed", "error", rerr)
			}
			res.Error = fmt.Sprintf("%v: %v", ErrPageDead, err)
			return res
		default:
			res.Error = err.Error()
			// Fall through: a failed click still has a live page worth
			// describing, so state refresh and screenshots proceed below.
		}
	} else {
		res.Result = text
	}

	// A restart swapped pageCtx out from under us; re-read it before
	// touching the page again.
	m.mu.Lock()
	pageCtx = m.pageCtx
	m.mu.Unlock()
	if pageCtx == nil {
		return res
	}

	m.refreshState(pageCtx, res)
	m.captureScreenshots(pageCtx, req, res)
	return res
}

// refreshState re-reads the page's url, title, clickable-element
// enumeration, and scroll metrics into both the result and the manager's
// cache. The enumeration here is the one the element summary is rendered
// from, so indices on the next request refer to this exact listing.
func (m *Manager) refreshState(pageCtx context.Context, res *ActionResult) {
	stateCtx, cancel := context.WithTimeout(pageCtx, 10*time.Second)
	defer cancel()

	var url, title string
	if err := chromedp.Run(stateCtx, chromedp.Location(&url), chromedp.Title(&title)); err != nil {
		sblog.Warn("browser: reading page url/title failed", "error", err)
		return
	}

	elements, err := m.enumerateElements(stateCtx)
	if err != nil {
		sblog.Warn("browser: element enumeration failed", "error", err)
		elements = nil
	}

	var metrics scrollMetrics
	var rawMetrics string
	if err := chromedp.Run(stateCtx, chromedp.Evaluate(scrollMetricsJS, &rawMetrics)); err == nil {
		_ = json.Unmarshal([]byte(rawMetrics), &metrics)
	}

	m.mu.Lock()
	m.cachedURL = url
	m.cachedTitle = title
	m.cachedElements = elements
	m.mu.Unlock()

	res.URL = url
	res.Title = title
	res.Elements = renderElementSummary(elements)
	res.PixelsAbove = metrics.Above
	res.PixelsBelow = metrics.Below
}

// captureScreenshots takes the clean and marked (element-annotated)
// full-page captures after every action, saves the clean one
// under the screenshots directory, and writes each through its upload
// handle when the caller supplied one. Screenshot failures never fail the
// action; they log and leave the corresponding fields empty.
func (m *Manager) captureScreenshots(pageCtx context.Context, req ActionRequest, res *ActionResult) {
	shotCtx, cancel := context.WithTimeout(pageCtx, 15*time.Second)
	defer cancel()

	var clean []byte
	if err := chromedp.Run(shotCtx, chromedp.FullScreenshot(&clean, 90)); err != nil {
		sblog.Error("browser: clean screenshot failed", "error", err)
		clean = nil
	}

	m.mu.Lock()
	elements := m.cachedElements
	url := m.cachedURL
	m.mu.Unlock()

	var marked []byte
	markActions := []chromedp.Action{
		chromedp.Evaluate(overlayMarkersJS(elements), nil),
		chromedp.FullScreenshot(&marked, 90),
		chromedp.Evaluate(removeOverlayJS, nil),
	}
	if err := chromedp.Run(shotCtx, markActions...); err != nil {
		sblog.Error("browser: marked screenshot failed", "error", err)
		marked = nil
	}

	if len(clean) > 0 {
		path, err := m.screenshotPath(url)
		if err == nil {
			err = os.WriteFile(path, clean, 0o644)
		}
		if err != nil {
			sblog.Error("browser: saving clean screenshot failed", "error", err)
		} else {
			res.CleanScreenshotPath = path
		}
	}

	if req.ScreenshotPresignedURL != nil && len(marked) > 0 {
		if err := os.WriteFile(*req.ScreenshotPresignedURL, marked, 0o644); err != nil {
			sblog.Error("browser: delivering marked screenshot failed", "error", err)
		} else {
			res.ScreenshotUploaded = true
		}
	}
	if req.CleanScreenshotPresignedURL != nil && len(clean) > 0 {
		if err := os.WriteFile(*req.CleanScreenshotPresignedURL, clean, 0o644); err != nil {
			sblog.Error("browser: delivering clean screenshot failed", "error", err)
		} else {
			res.CleanScreenshotUploaded = true
		}
	}
}
