// Package editor implements the filesystem text editor: a path-validated,
// strict view/create/write/replace/search interface with bounded outputs,
// invoked by one caller at a time or many concurrently — it holds no
// per-path state, so every call is independent.
package editor

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// Command is one of the editor's seven verbs.
type Command string

const (
	CmdViewDir     Command = "view_dir"
	CmdView        Command = "view"
	CmdCreate      Command = "create"
	CmdWrite       Command = "write"
	CmdStrReplace  Command = "str_replace"
	CmdFindContent Command = "find_content"
	CmdFindFile    Command = "find_file"
)

// Action is a tagged record carrying one command's parameters; unused
// fields for a given command are simply ignored.
type Action struct {
	Command         Command
	Path            string
	FileText        string
	ViewRange       []int
	OldStr          string
	NewStr          string
	Glob            string
	Regex           string
	Append          bool
	LeadingNewline  bool
	TrailingNewline bool
	Sudo            bool
}

// FileInfo mirrors the path/content a successful create/write/str_replace
// leaves behind, so a caller can render a diff without a second read.
type FileInfo struct {
	Path       string
	Content    string
	OldContent string
}

// Result is a successful command's formatted output plus, for commands
// that mutate a file, the resulting FileInfo.
type Result struct {
	Output   string
	FileInfo *FileInfo
}

// Editor resolves relative paths against workingDir. It carries no other
// state and is safe to call concurrently.
type Editor struct {
	workingDir string
}

// New builds an Editor rooted at workingDir.
func New(workingDir string) *Editor {
	return &Editor{workingDir: workingDir}
}

// Execute validates and dispatches one editor action.
func (e *Editor) Execute(a Action) (*Result, error) {
	path, err := e.validate(a.Command, a.Path)
	if err != nil {
		return nil, err
	}

	switch a.Command {
	case CmdViewDir:
		return e.viewDir(path)
	case CmdView:
		return e.view(path, a.ViewRange)
	case CmdCreate:
		return e.create(path, a.FileText)
	case CmdWrite:
		return e.write(path, a.FileText, a.Append, a.LeadingNewline, a.TrailingNewline)
	case CmdStrReplace:
		return e.strReplace(path, a.OldStr, a.NewStr)
	case CmdFindContent:
		return e.findContent(path, a.Regex)
	case CmdFindFile:
		return e.findFile(path, a.Glob)
	default:
		return nil, fmt.Errorf("%w: unsupported command %q", ErrValidation, a.Command)
	}
}

func (e *Editor) resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(e.workingDir, path)
}

// validate checks the path/command combination and returns the resolved
// absolute path.
func (e *Editor) validate(cmd Command, rawPath string) (string, error) {
	if rawPath == "" {
		return "", fmt.Errorf("%w: path is required", ErrValidation)
	}
	path := e.resolve(rawPath)

	info, err := os.Stat(path)
	notExist := err != nil && os.IsNotExist(err)
	if err != nil && !notExist {
		return "", fmt.Errorf("%w: %v", ErrValidation, err)
	}

	if notExist && cmd != CmdCreate && cmd != CmdWrite {
		return "", fmt.Errorf("%w: the path %s does not exist; please provide a valid path", ErrValidation, path)
	}

	if !notExist {
		switch cmd {
		case CmdCreate:
			if info.IsDir() || info.Size() > 0 {
				return "", fmt.Errorf("%w: non-empty file already exists at %s; cannot overwrite non-empty files using command `create`", ErrValidation, path)
			}
		case CmdViewDir, CmdFindFile:
			if !info.IsDir() {
				return "", fmt.Errorf("%w: the path %s is not a directory", ErrValidation, path)
			}
		default:
			if info.IsDir() {
				return "", fmt.Errorf("%w: the path %s is a directory; directory operations are not supported for this command", ErrValidation, path)
			}
		}
	}

	return path, nil
}

func (e *Editor) create(path, fileText string) (*Result, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("editor: creating parent directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(fileText), 0o644); err != nil {
		return nil, fmt.Errorf("editor: creating %s: %w", path, err)
	}
	return &Result{
		Output:   fmt.Sprintf("File created successfully at: %s", path),
		FileInfo: &FileInfo{Path: path, Content: fileText},
	}, nil
}

func (e *Editor) write(path, content string, appendMode, leadingNewline, trailingNewline bool) (*Result, error) {
	if leadingNewline && !strings.HasPrefix(content, "\n") {
		content = "\n" + content
	}
	if trailingNewline && !strings.HasSuffix(content, "\n") {
		content = content + "\n"
	}

	var oldContent string
	if appendMode {
		if existing, err := os.ReadFile(path); err == nil {
			oldContent = string(existing)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("editor: creating parent directory: %w", err)
	}

	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	verb := "Wrote"
	if appendMode {
		flags = os.O_WRONLY | os.O_CREATE | os.O_APPEND
		verb = "Appended to"
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return nil, fmt.Errorf("editor: writing %s: %w", path, err)
	}
	_, writeErr := f.WriteString(content)
	closeErr := f.Close()
	if writeErr != nil {
		return nil, fmt.Errorf("editor: writing %s: %w", path, writeErr)
	}
	if closeErr != nil {
		return nil, fmt.Errorf("editor: writing %s: %w", path, closeErr)
	}

	newContent := oldContent + content
	if !appendMode {
		newContent = content
	}
	fi := &FileInfo{Path: path, Content: newContent}
	if appendMode {
		fi.OldContent = oldContent
	}
	return &Result{
		Output:   fmt.Sprintf("%s %s", verb, path),
		FileInfo: fi,
	}, nil
}

func (e *Editor) strReplace(path, oldStr, newStr string) (*Result, error) {
	if oldStr == "" {
		return nil, fmt.Errorf("%w: old_str must not be empty", ErrValidation)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("editor: reading %s: %w", path, err)
	}
	content := string(data)

	count := strings.Count(content, oldStr)
	if count == 0 {
		return &Result{Output: fmt.Sprintf("No replacement made: %q was not found in %s", oldStr, path)}, nil
	}

	newContent := strings.ReplaceAll(content, oldStr, newStr)
	if err := os.WriteFile(path, []byte(newContent), 0o644); err != nil {
		return nil, fmt.Errorf("editor: writing %s: %w", path, err)
	}

	return &Result{
		Output:   fmt.Sprintf("Replaced %d occurrence(s) of %q in %s", count, oldStr, path),
		FileInfo: &FileInfo{Path: path, Content: newContent, OldContent: content},
	}, nil
}

func (e *Editor) findContent(path, pattern string) (*Result, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid regex %q: %v", ErrValidation, pattern, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("editor: reading %s: %w", path, err)
	}

	var matches []string
	for i, line := range strings.Split(string(data), "\n") {
		if re.MatchString(line) {
			matches = append(matches, fmt.Sprintf("Line %d: %s", i+1, line))
		}
	}

	if len(matches) == 0 {
		return &Result{Output: fmt.Sprintf("No matches found for %q in %s", pattern, path)}, nil
	}
	return &Result{Output: MaybeTruncate(strings.Join(matches, "\n"), MaxResponseLen-len(TruncatedMessage))}, nil
}

func (e *Editor) findFile(dir, glob string) (*Result, error) {
	if glob == "" {
		glob = "*"
	}

	var matches []string
	err := filepath.WalkDir(dir, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ok, err := filepath.Match(glob, d.Name())
		if err != nil {
			return err
		}
		if ok {
			matches = append(matches, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("editor: searching %s: %w", dir, err)
	}
	sort.Strings(matches)

	if len(matches) == 0 {
		return &Result{Output: fmt.Sprintf("No files matching %q found in %s", glob, dir)}, nil
	}
	return &Result{Output: MaybeTruncate(strings.Join(matches, "\n"), MaxResponseLen-len(TruncatedMessage))}, nil
}
