package browser

import (
	"context"
	"fmt"

	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/chromedp"
)

// runVerb dispatches one decoded Action against the current page and
// returns the textual "result" field of the response. Each handler
// assumes the caller already holds a live pageCtx; index-based handlers
// re-enumerate the page's elements themselves rather than reading the
// cached enumeration.
func (m *Manager) runVerb(ctx context.Context, act Action) (string, error) {
	switch act.kind() {
	case "navigate":
		return "success", m.doNavigate(ctx, act.Navigate.URL)
	case "click":
		return "success", m.doClick(ctx, act.Click)
	case "input":
		return "success", m.doInput(ctx, act.Input)
	case "press_key":
		return "success", chromedp.Run(ctx, chromedp.KeyEvent(act.PressKey.Key))
	case "select_option":
		return "success", m.doSelectOption(ctx, act.SelectOption)
	case "scroll_up":
		return "success", m.doScroll(ctx, act.ScrollUp, -1)
	case "scroll_down":
		return "success", m.doScroll(ctx, act.ScrollDown, 1)
	case "move_mouse":
		return "success", m.doMoveMouse(ctx, act.MoveMouse.CoordinateX, act.MoveMouse.CoordinateY)
	case "view":
		return m.doView(ctx, act.View)
	case "screenshot":
		return "success", nil // capture happens unconditionally after every action
	case "console_exec":
		return m.doConsoleExec(ctx, act.ConsoleExec.JavaScript)
	case "console_view":
		return m.doConsoleView(act.ConsoleView.MaxLines), nil
	case "restart":
		return "success", m.doRestart(ctx, act.Restart.URL)
	default:
		return "", errUnsupportedAction
	}
}

func (m *Manager) doNavigate(ctx context.Context, url string) error {
	return chromedp.Run(ctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
}

// coordinatesFor resolves a click/input target to viewport coordinates,
// re-reading the live enumeration rather than trusting a caller-supplied
// index against potentially stale positions.
func (m *Manager) coordinatesFor(ctx context.Context, index *int, x, y *float64) (float64, float64, error) {
	if x != nil && y != nil {
		return *x, *y, nil
	}
	if index == nil {
		return 0, 0, fmt.Errorf("browser: action needs either index or coordinates")
	}
	elements, err := m.enumerateElements(ctx)
	if err != nil {
		return 0, 0, err
	}
	if *index < 0 || *index >= len(elements) {
		return 0, 0, fmt.Errorf("browser: element index %d out of range (%d elements)", *index, len(elements))
	}
	el := elements[*index]
	return el.X, el.Y, nil
}

func (m *Manager) doClick(ctx context.Context, act *ClickAction) error {
	x, y, err := m.coordinatesFor(ctx, act.Index, act.CoordinateX, act.CoordinateY)
	if err != nil {
		return err
	}
	return chromedp.Run(ctx, chromedp.MouseClickXY(x, y))
}

// doInput focuses the target by clicking its center, selects its existing
// content, deletes it, and types the replacement one character at a time
// via raw key events rather than a CSS selector, since all we have from
// the element enumeration is a coordinate.
func (m *Manager) doInput(ctx context.Context, act *InputAction) error {
	x, y, err := m.coordinatesFor(ctx, act.Index, act.CoordinateX, act.CoordinateY)
	if err != nil {
		return err
	}

	if err := chromedp.Run(ctx,
		chromedp.MouseClickXY(x, y),
		chromedp.Evaluate(`document.activeElement && document.activeElement.select && document.activeElement.select()`, nil),
		chromedp.KeyEvent("\b"),
	); err != nil {
		return err
	}

	if err := typeText(ctx, act.Text); err != nil {
		return err
	}
	if act.PressEnter {
		return chromedp.Run(ctx, chromedp.KeyEvent("\r"))
	}
	return nil
}

// typeText dispatches one Input.dispatchKeyEvent(char) per rune to
// whatever element currently has focus.
func typeText(ctx context.Context, text string) error {
	actions := make([]chromedp.Action, 0, len(text))
	for _, r := range text {
		c := string(r)
		actions = append(actions, chromedp.ActionFunc(func(ctx context.Context) error {
			return input.DispatchKeyEvent(input.KeyChar).WithText(c).Do(ctx)
		}))
	}
	return chromedp.Run(ctx, actions...)
}

func (m *Manager) doSelectOption(ctx context.Context, act *SelectOptionAction) error {
	js := fmt.Sprintf(`(() => {
  const sel = 'select';
  const nodes = Array.from(document.querySelectorAll(sel));
  const el = nodes[%d];
  if (!el) return false;
  el.selectedIndex = %d;
  el.dispatchEvent(new Event('change', {bubbles: true}));
  return true;
})()`, act.Index, act.Option)
	var ok bool
	if err := chromedp.Run(ctx, chromedp.Evaluate(js, &ok)); err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("browser: select element %d not found", act.Index)
	}
	return nil
}

func (m *Manager) doScroll(ctx context.Context, act *ScrollAction, dir int) error {
	var js string
	switch {
	case act != nil && act.ToTop:
		js = `window.scrollTo(0, 0)`
	case act != nil && act.ToBottom:
		js = `window.scrollTo(0, document.body.scrollHeight)`
	default:
		js = fmt.Sprintf(`window.scrollBy(0, %d * window.innerHeight)`, dir)
	}
	return chromedp.Run(ctx, chromedp.Evaluate(js, nil))
}

func (m *Manager) doMoveMouse(ctx context.Context, x, y float64) error {
	return chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		return input.DispatchMouseEvent(input.MouseMoved, x, y).Do(ctx)
	}))
}

func (m *Manager) doView(ctx context.Context, act *ViewAction) (string, error) {
	if act != nil && act.Reload {
		if err := chromedp.Run(ctx, chromedp.Reload()); err != nil {
			return "", err
		}
	}
	return "success", nil
}

func (m *Manager) doConsoleExec(ctx context.Context, js string) (string, error) {
	var result string
	if err := chromedp.Run(ctx, chromedp.Evaluate(fmt.Sprintf("String(%s)", js), &result)); err != nil {
		return "", err
	}
	return result, nil
}

func (m *Manager) doConsoleView(maxLines int) string {
	m.mu.Lock()
	ring := m.console
	m.mu.Unlock()
	if ring == nil {
		return ""
	}
	lines := ring.tail(maxLines)
	out := ""
	for i, l := range lines {
		if i > 0 {
			out += "\n"
		}
		out += l
	}
	return out
}

func (m *Manager) doRestart(ctx context.Context, url string) error {
	if err := m.Restart(ctx); err != nil {
		return err
	}
	if url == "" {
		return nil
	}
	m.mu.Lock()
	pageCtx := m.pageCtx
	m.mu.Unlock()
	return m.doNavigate(pageCtx, url)
}
