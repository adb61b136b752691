// Package terminal implements named, persistent pty-backed shell sessions:
// one login shell per session, a bounded history ring, prompt-boundary
// detection via a fixed PS1 sentinel, and out-of-band input injection.
package terminal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/creack/pty"
	"golang.org/x/sys/unix"

	"github.com/ehrlich-b/sandboxhost/internal/termproc"
)

const (
	historyCap            = 100
	readPollInterval      = 10 * time.Millisecond
	maxEntryTextLen       = 5000
	maxTotalHistoryLen    = 10000
	historyTruncateNotice = "... earlier history truncated ..."
	killGrace             = 300 * time.Millisecond
)

// Mode selects how a command message affects a session.
type Mode string

const (
	ModeRun         Mode = "run"
	ModeSendLine    Mode = "send_line"
	ModeSendKey     Mode = "send_key"
	ModeSendControl Mode = "send_control"
)

// HistoryEntry records one command's lifecycle in a session's history ring.
type HistoryEntry struct {
	Command      string
	BeforePrompt string
	AfterPrompt  string
	Output       string
	Finished     bool
	Timestamp    time.Time
}

// StreamEventKind discriminates the frames Run emits while a command is
// executing.
type StreamEventKind int

const (
	EventUpdate StreamEventKind = iota
	EventPartialFinish
	EventFinish
)

// StreamEvent is one frame produced while a run is in flight.
type StreamEvent struct {
	Kind            StreamEventKind
	Output          []string
	Result          string
	TerminalStatus  string
	SubCommandIndex int
}

// Session is one named, pty-backed login shell.
type Session struct {
	name       string
	shellPath  string
	workingDir string

	mu          sync.Mutex
	ptmx        *os.File
	cmd         *exec.Cmd
	history     []HistoryEntry
	running     bool
	dead        bool
	inputBuffer []byte
	prompt      string
}

// NewSession spawns a login shell for name and wires its pty.
func NewSession(name, shellPath, workingDir string) (*Session, error) {
	s := &Session{name: name, shellPath: shellPath, workingDir: workingDir}
	if err := s.spawn(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Session) spawn() error {
	shellPath := s.shellPath
	if shellPath == "" {
		shellPath = "/bin/bash"
	}
	cmd := exec.Command(shellPath, "--noprofile", "--norc", "-i")
	cmd.Dir = s.workingDir
	cmd.Env = append(os.Environ(),
		"TERM=xterm-256color",
		"PS1="+promptTemplate,
		"PROMPT_COMMAND=",
	)
	// Run the shell as its own process group leader so Kill can signal
	// every descendant it spawned (e.g. `sleep 10`), not just the shell.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{Rows: 24, Cols: 80})
	if err != nil {
		return fmt.Errorf("terminal: spawning shell: %w", err)
	}

	// Drain the shell's startup output up to its first prompt so a later
	// Run doesn't mistake the initial prompt for a command boundary.
	prompt := awaitFirstPrompt(ptmx)

	s.mu.Lock()
	s.ptmx = ptmx
	s.cmd = cmd
	s.dead = false
	s.running = false
	s.inputBuffer = nil
	if prompt != "" {
		s.prompt = prompt
	}
	s.mu.Unlock()

	go s.watchExit(cmd, ptmx)
	return nil
}

// awaitFirstPrompt reads from a freshly spawned shell's pty until the
// prompt sentinel appears, returning the rendered prompt string, or ""
// if the shell never printed one within the startup grace period.
func awaitFirstPrompt(ptmx *os.File) string {
	deadline := time.Now().Add(5 * time.Second)
	var accumulated []byte
	buf := make([]byte, 4096)
	for time.Now().Before(deadline) {
		setReadDeadline(ptmx, time.Now().Add(readPollInterval))
		n, err := ptmx.Read(buf)
		if n > 0 {
			accumulated = append(accumulated, buf[:n]...)
			if m, _, ok := findPrompt(accumulated); ok {
				return fmt.Sprintf("%s@%s:%s", m.User, m.Host, m.CWD)
			}
		}
		if err != nil && !isTimeout(err) {
			return ""
		}
	}
	return ""
}

// watchExit marks the session dead once the shell process exits.
func (s *Session) watchExit(cmd *exec.Cmd, ptmx *os.File) {
	_ = cmd.Wait()
	s.mu.Lock()
	if s.ptmx == ptmx {
		s.dead = true
		if s.running && len(s.history) > 0 {
			last := &s.history[len(s.history)-1]
			if !last.Finished {
				last.Finished = true
				last.Output += "\n[shell exited]"
			}
		}
		s.running = false
	}
	s.mu.Unlock()
}

// Name returns the session's caller-chosen name.
func (s *Session) Name() string { return s.name }

// IsRunning reports whether a run is currently in flight.
func (s *Session) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Run executes command as one or more shell statements, streaming frames
// to emit as output arrives. It returns once the final statement's prompt
// has been matched, EOF is hit, or ctx is canceled.
func (s *Session) Run(ctx context.Context, command, execDir string, emit func(StreamEvent)) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrBusy
	}
	if s.dead {
		s.mu.Unlock()
		return ErrDead
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	full := command
	if execDir != "" {
		full = fmt.Sprintf("cd %s && %s", shellQuote(execDir), command)
	}

	statements := termproc.SplitBashCommands(full)
	for i, stmt := range statements {
		isLast := i == len(statements)-1
		if err := s.runStatement(ctx, stmt, i, isLast, emit); err != nil {
			return err
		}
		s.mu.Lock()
		dead := s.dead
		s.mu.Unlock()
		if dead {
			break
		}
	}
	return nil
}

// runStatement sends one shell statement and streams frames until its
// prompt is matched or the shell dies.
func (s *Session) runStatement(ctx context.Context, stmt string, subIndex int, isLast bool, emit func(StreamEvent)) error {
	s.mu.Lock()
	entry := HistoryEntry{
		Command:      stmt,
		BeforePrompt: s.prompt,
		Timestamp:    time.Now(),
	}
	s.pushHistoryLocked(entry)
	ptmx := s.ptmx
	s.mu.Unlock()

	if _, err := io.WriteString(ptmx, stmt+"\n"); err != nil {
		return fmt.Errorf("terminal: writing statement: %w", err)
	}

	var accumulated []byte
	var lastRendered string
	buf := make([]byte, 4096)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		// Out-of-band input injected mid-run is echoed into the stream here,
		// so the caller sees it even when the foreground program doesn't
		// echo it back.
		s.mu.Lock()
		if len(s.inputBuffer) > 0 {
			accumulated = append(accumulated, s.inputBuffer...)
			s.inputBuffer = nil
		}
		s.mu.Unlock()

		setReadDeadline(ptmx, time.Now().Add(readPollInterval))
		n, err := ptmx.Read(buf)
		if n > 0 {
			accumulated = append(accumulated, buf[:n]...)

			if m, output, ok := findPrompt(accumulated); ok {
				rendered := termproc.ProcessOutput(string(output))
				s.mu.Lock()
				s.prompt = fmt.Sprintf("%s@%s:%s", m.User, m.Host, m.CWD)
				if len(s.history) > 0 {
					last := &s.history[len(s.history)-1]
					last.Output = rendered
					last.Finished = true
					last.AfterPrompt = s.prompt
				}
				s.mu.Unlock()

				status := "idle"
				kind := EventFinish
				if !isLast {
					status = "running"
					kind = EventPartialFinish
				}
				emit(StreamEvent{
					Kind:            kind,
					Output:          splitLines(rendered),
					TerminalStatus:  status,
					SubCommandIndex: subIndex,
				})
				return nil
			}

			rendered := termproc.ProcessOutput(string(accumulated))
			if rendered != lastRendered {
				lastRendered = rendered
				emit(StreamEvent{
					Kind:            EventUpdate,
					Output:          splitLines(rendered),
					TerminalStatus:  "running",
					SubCommandIndex: subIndex,
				})
			}
		}
		if err != nil {
			if isTimeout(err) {
				continue
			}
			// A dead shell surfaces as EOF, EIO (Linux pty master after
			// child exit), or a closed fd after Kill/Reset.
			if errors.Is(err, io.EOF) || errors.Is(err, syscall.EIO) || errors.Is(err, os.ErrClosed) {
				s.mu.Lock()
				// A Kill may have respawned the shell already; only mark
				// the session dead if this pty is still the current one.
				if s.ptmx == ptmx {
					s.dead = true
				}
				if len(s.history) > 0 {
					last := &s.history[len(s.history)-1]
					last.Finished = true
				}
				s.mu.Unlock()
				emit(StreamEvent{
					Kind:            EventFinish,
					Output:          nil,
					Result:          "process terminated before the command completed",
					TerminalStatus:  "idle",
					SubCommandIndex: subIndex,
				})
				return nil
			}
			return fmt.Errorf("terminal: reading pty: %w", err)
		}
	}
}

// SendLine injects text followed by a newline without waiting for a new
// prompt. It does not affect the running flag.
func (s *Session) SendLine(text string) error {
	return s.sendRaw(text + "\n")
}

// SendKey injects a single key's literal bytes.
func (s *Session) SendKey(key string) error {
	return s.sendRaw(key)
}

// SendControl injects a control character, e.g. "c" for ^C.
func (s *Session) SendControl(ch string) error {
	if len(ch) == 0 {
		return errors.New("terminal: empty control character")
	}
	c := strings.ToUpper(ch)[0]
	code := byte(c) & 0x1f
	return s.sendRaw(string(code))
}

func (s *Session) sendRaw(text string) error {
	s.mu.Lock()
	if s.dead {
		s.mu.Unlock()
		return ErrDead
	}
	ptmx := s.ptmx
	s.inputBuffer = append(s.inputBuffer, []byte(text)...)
	s.mu.Unlock()

	_, err := io.WriteString(ptmx, text)
	return err
}

// Kill sends SIGTERM to the shell, waits briefly, then reinitializes while
// preserving the session's name and history; unfinished entries are marked
// finished on replay.
func (s *Session) Kill() error {
	s.mu.Lock()
	cmd := s.cmd
	ptmx := s.ptmx
	s.mu.Unlock()

	if cmd != nil && cmd.Process != nil {
		_ = unix.Kill(-cmd.Process.Pid, unix.SIGTERM)
	}
	time.Sleep(killGrace)
	if cmd != nil && cmd.Process != nil {
		_ = unix.Kill(-cmd.Process.Pid, unix.SIGKILL)
	}
	if ptmx != nil {
		_ = ptmx.Close()
	}

	s.mu.Lock()
	for i := range s.history {
		if !s.history[i].Finished {
			s.history[i].Finished = true
		}
	}
	s.mu.Unlock()

	return s.spawn()
}

// Reset kills the pty and reinitializes, clearing history, while
// preserving the session name.
func (s *Session) Reset() error {
	s.mu.Lock()
	cmd := s.cmd
	ptmx := s.ptmx
	s.mu.Unlock()

	if cmd != nil && cmd.Process != nil {
		_ = cmd.Process.Kill()
	}
	if ptmx != nil {
		_ = ptmx.Close()
	}

	s.mu.Lock()
	s.history = nil
	s.mu.Unlock()

	return s.spawn()
}

// View returns the capped, truncated history (optionally including all
// entries) plus the current prompt string.
func (s *Session) View(full bool) (lines []string, status string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	status = "idle"
	if s.running {
		status = "running"
	}

	var entries []HistoryEntry
	if full {
		entries = s.history
	} else if len(s.history) > 0 {
		entries = s.history[len(s.history)-1:]
	}

	lines = renderHistory(entries)
	if s.prompt != "" {
		lines = append(lines, s.prompt)
	}
	return lines, status
}

func (s *Session) pushHistoryLocked(entry HistoryEntry) {
	s.history = append(s.history, entry)
	if len(s.history) > historyCap {
		s.history = s.history[len(s.history)-historyCap:]
	}
}

// renderHistory formats history entries the way View reports them:
// each entry's text truncated from the back to maxEntryTextLen, the
// aggregate capped at maxTotalHistoryLen with the oldest entries dropped
// first.
func renderHistory(entries []HistoryEntry) []string {
	rendered := make([]string, 0, len(entries))
	for _, e := range entries {
		text := e.Output
		if len(text) > maxEntryTextLen {
			text = "[previous content truncated]..." + text[len(text)-maxEntryTextLen:]
		}
		line := fmt.Sprintf("%s\n%s", e.Command, text)
		rendered = append(rendered, line)
	}

	total := 0
	for _, r := range rendered {
		total += len(r)
	}
	if total <= maxTotalHistoryLen {
		return rendered
	}

	// Drop oldest entries first until the aggregate fits, then prefix a
	// truncation marker.
	start := 0
	for start < len(rendered) && total > maxTotalHistoryLen {
		total -= len(rendered[start])
		start++
	}
	out := make([]string, 0, len(rendered)-start+1)
	out = append(out, historyTruncateNotice)
	out = append(out, rendered[start:]...)
	return out
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// setReadDeadline sets a short read deadline on the pty's underlying file
// so the read loop can interleave with out-of-band input and other
// sessions' work.
func setReadDeadline(f *os.File, t time.Time) {
	_ = f.SetReadDeadline(t)
}

func isTimeout(err error) bool {
	var nerr interface{ Timeout() bool }
	if errors.As(err, &nerr) {
		return nerr.Timeout()
	}
	return errors.Is(err, os.ErrDeadlineExceeded)
}
