package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/chromedp/chromedp"
)

// enumerateClickableTemplate walks the DOM for interactive elements,
// filters to those with a non-zero visible box, and returns them in DOM
// order. The %s placeholder receives a JS array literal of the attribute
// names worth surfacing in descriptions (the include-attributes whitelist).
// The same enumeration backs both index-based click/input and the
// element-summary listing returned alongside every action, so indices stay
// consistent between the two.
const enumerateClickableTemplate = `
(() => {
  const sel = 'a,button,input,select,textarea,[role],[onclick],[tabindex]';
  const attrs = %s;
  const nodes = Array.from(document.querySelectorAll(sel));
  const out = [];
  nodes.forEach((el, i) => {
    const rect = el.getBoundingClientRect();
    const style = window.getComputedStyle(el);
    if (rect.width <= 0 || rect.height <= 0) return;
    if (style.display === 'none' || style.visibility === 'hidden') return;
    let text = (el.innerText || el.value || '').trim();
    if (!text) {
      for (const a of attrs) {
        const v = el.getAttribute(a);
        if (v) { text = v; break; }
      }
    }
    out.push({
      index: out.length,
      tag: el.tagName.toLowerCase(),
      text: text.slice(0, 80),
      x: rect.left + rect.width / 2,
      y: rect.top + rect.height / 2,
    });
  });
  return out;
})()
`

// clickableElement is one entry in the enumerated, visible, clickable set.
type clickableElement struct {
	Index int     `json:"index"`
	Tag   string  `json:"tag"`
	Text  string  `json:"text"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
}

// enumerateElements runs enumerateClickableTemplate against the current page and
// decodes its result, re-computed on every call since scrolling or DOM
// mutation invalidates cached coordinates.
func (m *Manager) enumerateElements(ctx context.Context) ([]clickableElement, error) {
	attrs := make([]string, 0, 8)
	for _, a := range strings.Split(includeAttributesCSV, ",") {
		attrs = append(attrs, fmt.Sprintf("%q", a))
	}
	js := fmt.Sprintf(enumerateClickableTemplate, "["+strings.Join(attrs, ",")+"]")

	var raw string
	if err := chromedp.Run(ctx, chromedp.Evaluate(fmt.Sprintf("JSON.stringify(%s)", js), &raw)); err != nil {
		return nil, fmt.Errorf("browser: enumerating elements: %w", err)
	}
	var elements []clickableElement
	if err := json.Unmarshal([]byte(raw), &elements); err != nil {
		return nil, fmt.Errorf("browser: decoding elements: %w", err)
	}
	return elements, nil
}

// overlayMarkersJS renders a numbered label over each entry in elements, in
// a fixed-position layer above the rest of the page, so the marked
// screenshot's numbers line up with the element summary's indices.
const overlayMarkersTemplate = `
(() => {
  const layer = document.createElement('div');
  layer.id = '__sandboxhost_overlay__';
  layer.style.position = 'fixed';
  layer.style.top = '0';
  layer.style.left = '0';
  layer.style.zIndex = '2147483647';
  layer.style.pointerEvents = 'none';
  %s
  document.body.appendChild(layer);
})()
`

func overlayMarkersJS(elements []clickableElement) string {
	var b strings.Builder
	for _, el := range elements {
		fmt.Fprintf(&b, `{
  const lbl = document.createElement('div');
  lbl.textContent = '%d';
  lbl.style.position = 'fixed';
  lbl.style.left = '%fpx';
  lbl.style.top = '%fpx';
  lbl.style.background = '#ff3b30';
  lbl.style.color = '#fff';
  lbl.style.font = '10px monospace';
  lbl.style.padding = '1px 3px';
  lbl.style.borderRadius = '2px';
  layer.appendChild(lbl);
}
`, el.Index, el.X, el.Y)
	}
	return fmt.Sprintf(overlayMarkersTemplate, b.String())
}

const removeOverlayJS = `
(() => {
  const layer = document.getElementById('__sandboxhost_overlay__');
  if (layer) layer.remove();
})()
`

// renderElementSummary formats the enumeration as the compact
// "<index>[:]<description>" listing returned alongside every action result.
func renderElementSummary(elements []clickableElement) string {
	lines := make([]string, 0, len(elements))
	for _, el := range elements {
		desc := el.Tag
		if el.Text != "" {
			desc = fmt.Sprintf("%s %q", el.Tag, el.Text)
		}
		lines = append(lines, fmt.Sprintf("%d[:]%s", el.Index, desc))
	}
	return strings.Join(lines, "\n")
}
