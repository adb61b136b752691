package browser

import (
	"strings"
	"testing"
)

func TestActionKind(t *testing.T) {
	cases := []struct {
		act  Action
		want string
	}{
		{Action{Navigate: &NavigateAction{URL: "https://example.com"}}, "navigate"},
		{Action{Click: &ClickAction{}}, "click"},
		{Action{ConsoleView: &ConsoleViewAction{MaxLines: 5}}, "console_view"},
		{Action{}, ""},
	}
	for _, c := range cases {
		if got := c.act.kind(); got != c.want {
			t.Errorf("kind() = %q, want %q", got, c.want)
		}
	}
}

func TestRenderElementSummary(t *testing.T) {
	elements := []clickableElement{
		{Index: 0, Tag: "a", Text: "Home"},
		{Index: 1, Tag: "button"},
	}
	got := renderElementSummary(elements)
	lines := strings.Split(got, "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %#v", lines)
	}
	if !strings.HasPrefix(lines[0], "0[:]") || !strings.Contains(lines[0], "Home") {
		t.Errorf("line 0 = %q", lines[0])
	}
	if lines[1] != "1[:]button" {
		t.Errorf("line 1 = %q", lines[1])
	}
}

func TestConsoleRingCapsLines(t *testing.T) {
	ring := newConsoleRing()
	for i := 0; i < consoleRingCap+50; i++ {
		ring.append("line")
	}
	if got := len(ring.tail(0)); got != consoleRingCap {
		t.Errorf("ring holds %d lines, want %d", got, consoleRingCap)
	}
	if got := len(ring.tail(10)); got != 10 {
		t.Errorf("tail(10) returned %d lines", got)
	}
}

func TestStripScheme(t *testing.T) {
	cases := map[string]string{
		"https://example.com/path?q=1": "example.com",
		"http://sub.example.com":       "sub.example.com",
		"about:blank":                  "about:blank",
	}
	for in, want := range cases {
		if got := stripScheme(in); got != want {
			t.Errorf("stripScheme(%q) = %q, want %q", in, got, want)
		}
	}
}
