package editor

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"
)

const lineNumberGutter = 8

func (e *Editor) view(path string, viewRange []int) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("editor: reading %s: %w", path, err)
	}
	lines := strings.Split(string(data), "\n")

	initLine := 1
	if len(viewRange) == 2 {
		start, end := viewRange[0], viewRange[1]
		if start < 1 || start > len(lines) || end < start {
			return nil, fmt.Errorf("%w: invalid view_range %v for a %d-line file", ErrValidation, viewRange, len(lines))
		}
		if end > len(lines) {
			end = len(lines)
		}
		lines = lines[start-1 : end]
		initLine = start
	}

	return &Result{Output: makeOutput(lines, path, initLine)}, nil
}

// makeOutput renders lines as `cat -n` would: a header naming the path,
// then each line prefixed by its 1-based number right-aligned in an
// 8-character gutter, bounded by the global response cap.
func makeOutput(lines []string, descriptor string, initLine int) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Here's the result of running `cat -n` on %s:\n", descriptor))
	for i, line := range lines {
		fmt.Fprintf(&b, "%*d\t%s\n", lineNumberGutter, initLine+i, line)
	}
	out := strings.TrimSuffix(b.String(), "\n")
	return MaybeTruncate(out, MaxResponseLen-len(TruncatedMessage))
}

func (e *Editor) viewDir(path string) (*Result, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("editor: reading directory %s: %w", path, err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var b strings.Builder
	fmt.Fprintf(&b, "total %d\n", len(entries))
	for _, ent := range entries {
		info, err := ent.Info()
		if err != nil {
			continue
		}
		kind := "-"
		if ent.IsDir() {
			kind = "d"
		}
		fmt.Fprintf(&b, "%s%s %10d %s %s\n",
			kind, info.Mode().Perm(), info.Size(),
			info.ModTime().Format(time.Stamp), ent.Name())
	}

	return &Result{Output: MaybeTruncate(strings.TrimSuffix(b.String(), "\n"), MaxResponseLen-len(TruncatedMessage))}, nil
}
