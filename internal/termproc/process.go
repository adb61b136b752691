// Package termproc renders raw pty bytes into the text an agent sees, and
// splits a multi-statement shell command into the individual statements sent
// to the pty one at a time.
//
// The output processor deliberately does not emulate a terminal. It
// collapses carriage-return line rewrites (progress bars, spinners) and
// strips a narrow set of cursor-column moves, but otherwise passes bytes
// through unchanged so that ANSI color survives for downstream consumers.
package termproc

import (
	"regexp"
	"strings"
)

var ansiColorRe = regexp.MustCompile(`\x1b\[\d+(?:;\d+)*m`)
var cursorColumnRe = regexp.MustCompile(`\x1b\[(\d+)G`)

const (
	ansiReset      = "\x1b[0m"
	ansiResetShort = "\x1b[m"
)

// ProcessOutput renders raw pty bytes into display text. It is pure: the
// same input always produces the same output, and re-processing its own
// output is a no-op (ProcessOutput(ProcessOutput(s)) == ProcessOutput(s)).
func ProcessOutput(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = processLine(line)
	}
	return strings.Join(lines, "\n")
}

// processLine collapses \r-based in-place rewrites within a single line,
// then strips cursor-column moves from what remains.
func processLine(line string) string {
	if strings.Contains(line, "\r") {
		parts := strings.Split(line, "\r")
		last := parts[len(parts)-1]
		if !haveMatchingReset(last) {
			var carry strings.Builder
			for _, p := range parts[:len(parts)-1] {
				// A reset cancels every color set before it, so only the
				// codes after the segment's last reset are carried.
				if i := strings.LastIndex(p, ansiReset); i >= 0 {
					carry.Reset()
					p = p[i+len(ansiReset):]
				}
				if i := strings.LastIndex(p, ansiResetShort); i >= 0 {
					carry.Reset()
					p = p[i+len(ansiResetShort):]
				}
				carry.WriteString(extractAnsiColors(p))
			}
			if carry.Len() > 0 {
				last = carry.String() + last
			}
		}
		return processCursorMovements(last)
	}
	return processCursorMovements(line)
}

// extractAnsiColors concatenates every SGR color sequence found in text, in
// order of appearance.
func extractAnsiColors(text string) string {
	matches := ansiColorRe.FindAllString(text, -1)
	return strings.Join(matches, "")
}

// haveMatchingReset reports whether text contains an SGR reset sequence.
func haveMatchingReset(text string) bool {
	return strings.Contains(text, ansiReset) || strings.Contains(text, ansiResetShort)
}

// processCursorMovements strips `ESC[<n>G` (move-to-column) sequences. Only
// the escape sequence itself is removed: the text before and after it is
// kept and joined, and no text is overwritten or truncated at the target
// column. Full terminal emulation (tracking exact cell contents) is
// explicitly out of scope; this is a best-effort simplification.
func processCursorMovements(line string) string {
	loc := cursorColumnRe.FindStringIndex(line)
	if loc == nil {
		return line
	}
	// Keep everything up to the sequence and everything after it, dropping
	// only the sequence, then look for the next one.
	before := line[:loc[0]]
	after := line[loc[1]:]
	return processCursorMovements(before + after)
}
