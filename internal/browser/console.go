package browser

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
)

const consoleRingCap = 500

// consoleRing is a bounded, append-only buffer of console.* calls observed
// on the current page, installed once per page so console_view can return
// the last N lines without re-querying the page itself.
type consoleRing struct {
	mu    sync.Mutex
	lines []string
}

func newConsoleRing() *consoleRing {
	return &consoleRing{}
}

func (c *consoleRing) append(line string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = append(c.lines, line)
	if len(c.lines) > consoleRingCap {
		c.lines = c.lines[len(c.lines)-consoleRingCap:]
	}
}

func (c *consoleRing) tail(maxLines int) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if maxLines <= 0 || maxLines > len(c.lines) {
		maxLines = len(c.lines)
	}
	out := make([]string, maxLines)
	copy(out, c.lines[len(c.lines)-maxLines:])
	return out
}

// attachConsoleRing subscribes to Runtime.consoleAPICalled events on ctx and
// appends a formatted line per call.
func attachConsoleRing(ctx context.Context, ring *consoleRing) {
	chromedp.ListenTarget(ctx, func(ev interface{}) {
		call, ok := ev.(*runtime.EventConsoleAPICalled)
		if !ok {
			return
		}
		parts := make([]string, 0, len(call.Args))
		for _, arg := range call.Args {
			if arg.Value != nil {
				parts = append(parts, string(arg.Value))
			} else if arg.Description != "" {
				parts = append(parts, arg.Description)
			}
		}
		ring.append(fmt.Sprintf("[%s] %s", call.Type, strings.Join(parts, " ")))
	})
}
