package termproc

import (
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// SplitBashCommands splits a multi-statement shell command into the
// individual top-level statements it contains, using a real shell-grammar
// parse so that `&&`, `||`, pipes, quoted strings, and heredocs stay
// attached to the statement they belong to. A blank input yields a single
// empty statement. A parse failure falls back to splitting on newlines,
// and if that produces nothing useful, the trimmed input is returned as a
// single statement.
func SplitBashCommands(commands string) []string {
	if strings.TrimSpace(commands) == "" {
		return []string{""}
	}

	if stmts, ok := parseStatements(commands); ok && len(stmts) > 0 {
		return stmts
	}

	if strings.Contains(commands, "\n") {
		var out []string
		for _, line := range strings.Split(commands, "\n") {
			if strings.TrimSpace(line) == "" {
				continue
			}
			out = append(out, line)
		}
		if len(out) > 0 {
			return out
		}
	}

	return []string{strings.TrimSpace(commands)}
}

// parseStatements parses commands as a shell script and returns the source
// text spanned by each top-level statement, in order. ok is false on any
// parse error, so the caller can fall back.
func parseStatements(commands string) (stmts []string, ok bool) {
	parser := syntax.NewParser(syntax.KeepComments(true))
	file, err := parser.Parse(strings.NewReader(commands), "")
	if err != nil {
		return nil, false
	}

	lines := strings.Split(commands, "\n")
	for _, stmt := range file.Stmts {
		start := stmt.Pos()
		end := stmt.End()
		span := spanText(lines, start, end)
		span = strings.TrimSpace(span)
		if span != "" {
			stmts = append(stmts, span)
		}
	}
	return stmts, true
}

// spanText extracts the source text between two syntax positions from the
// original line-split input.
func spanText(lines []string, start, end syntax.Pos) string {
	if start.Line() == end.Line() {
		line := lines[start.Line()-1]
		from := int(start.Col()) - 1
		to := int(end.Col()) - 1
		if from < 0 {
			from = 0
		}
		if to > len(line) {
			to = len(line)
		}
		if from > to {
			return ""
		}
		return line[from:to]
	}

	var b strings.Builder
	for ln := start.Line(); ln <= end.Line(); ln++ {
		line := lines[ln-1]
		switch {
		case ln == start.Line():
			from := int(start.Col()) - 1
			if from < 0 || from > len(line) {
				from = 0
			}
			b.WriteString(line[from:])
		case ln == end.Line():
			to := int(end.Col()) - 1
			if to < 0 || to > len(line) {
				to = len(line)
			}
			b.WriteString("\n")
			b.WriteString(line[:to])
		default:
			b.WriteString("\n")
			b.WriteString(line)
		}
	}
	return b.String()
}
