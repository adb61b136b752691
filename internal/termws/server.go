package termws

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/ehrlich-b/sandboxhost/internal/sblog"
	"github.com/ehrlich-b/sandboxhost/internal/terminal"
)

// Server handles one terminal WebSocket connection's lifetime against a
// shared terminal registry.
type Server struct {
	registry *terminal.Registry
}

// NewServer builds a termws.Server backed by registry.
func NewServer(registry *terminal.Registry) *Server {
	return &Server{registry: registry}
}

// ServeHTTP upgrades the request to a WebSocket and services frames until
// the connection closes. Every in-flight task is tracked by action_id and
// canceled when the connection goes away.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		sblog.Error("termws: accept failed", "error", err)
		return
	}
	defer conn.CloseNow()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	conn.SetReadLimit(1 << 20)

	var (
		mu    sync.Mutex
		tasks = make(map[string]context.CancelFunc)
	)
	stopAll := func() {
		mu.Lock()
		defer mu.Unlock()
		for _, c := range tasks {
			c()
		}
	}
	defer stopAll()

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		var msg InputMessage
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			var closeErr websocket.CloseError
			if errors.As(err, &closeErr) {
				return
			}
			sblog.Warn("termws: read failed", "error", err)
			return
		}

		if msg.ActionID == "" || msg.Terminal == "" {
			_ = wsjson.Write(ctx, conn, OutputMessage{
				Type:           OutError,
				ActionID:       msg.ActionID,
				Terminal:       msg.Terminal,
				Result:         "must provide terminal and action_id",
				Output:         []string{},
				TerminalStatus: StatusUnknown,
			})
			continue
		}

		taskCtx, taskCancel := context.WithCancel(ctx)
		mu.Lock()
		tasks[msg.ActionID] = taskCancel
		mu.Unlock()

		wg.Add(1)
		go func(m InputMessage) {
			defer wg.Done()
			defer func() {
				mu.Lock()
				delete(tasks, m.ActionID)
				mu.Unlock()
				taskCancel()
			}()
			s.handleMessage(taskCtx, conn, m)
		}(msg)
	}
}

// handleMessage dispatches one inbound frame on its type, then for
// commands on their mode.
func (s *Server) handleMessage(ctx context.Context, conn *websocket.Conn, msg InputMessage) {
	send := func(out OutputMessage) {
		out.Terminal = msg.Terminal
		out.ActionID = msg.ActionID
		if out.Output == nil {
			out.Output = []string{}
		}
		if err := wsjson.Write(ctx, conn, out); err != nil {
			sblog.Warn("termws: write failed", "error", err)
		}
	}

	term, err := s.registry.GetOrCreate(msg.Terminal)
	if err != nil {
		send(OutputMessage{Type: OutError, Result: err.Error(), TerminalStatus: StatusUnknown})
		return
	}

	switch msg.Type {
	case TypeReset:
		if err := term.Reset(); err != nil {
			send(OutputMessage{Type: OutError, Result: err.Error(), TerminalStatus: StatusUnknown})
			return
		}
		send(OutputMessage{Type: OutActionFinish, Result: "terminal reset success", TerminalStatus: StatusIdle})

	case TypeResetAll:
		if err := s.registry.ResetAll(); err != nil {
			send(OutputMessage{Type: OutError, Result: err.Error(), TerminalStatus: StatusUnknown})
			return
		}
		send(OutputMessage{Type: OutActionFinish, Result: "all terminals reset success", TerminalStatus: StatusIdle})

	case TypeView:
		lines, status := term.View(true)
		send(OutputMessage{Type: OutHistory, Output: lines, TerminalStatus: status})

	case TypeViewLast:
		lines, status := term.View(false)
		send(OutputMessage{Type: OutHistory, Output: lines, TerminalStatus: status})

	case TypeKillProcess:
		if err := term.Kill(); err != nil {
			send(OutputMessage{Type: OutError, Result: err.Error(), TerminalStatus: StatusUnknown})
			return
		}
		lines, _ := term.View(false)
		send(OutputMessage{Type: OutActionFinish, Result: "process killed", Output: lines, TerminalStatus: StatusIdle})

	case TypeCommand:
		s.handleCommand(ctx, term, msg, send)

	default:
		send(OutputMessage{Type: OutError, Result: "Invalid message type: " + msg.Type, TerminalStatus: StatusUnknown})
	}
}

func (s *Server) handleCommand(ctx context.Context, term *terminal.Session, msg InputMessage, send func(OutputMessage)) {
	if msg.Command == "" {
		send(OutputMessage{Type: OutError, Result: "must provide command", TerminalStatus: StatusUnknown})
		return
	}

	mode := msg.Mode
	if mode == "" {
		mode = string(terminal.ModeRun)
	}

	switch mode {
	case string(terminal.ModeSendKey):
		if err := term.SendKey(msg.Command); err != nil {
			send(OutputMessage{Type: OutError, Result: err.Error(), TerminalStatus: StatusUnknown})
			return
		}
		send(OutputMessage{Type: OutActionFinish, Result: "Key sent: " + msg.Command, TerminalStatus: StatusRunning})

	case string(terminal.ModeSendLine):
		if err := term.SendLine(msg.Command); err != nil {
			send(OutputMessage{Type: OutError, Result: err.Error(), TerminalStatus: StatusUnknown})
			return
		}
		send(OutputMessage{Type: OutActionFinish, Result: "Line sent: " + msg.Command, TerminalStatus: StatusRunning})

	case string(terminal.ModeSendControl):
		if err := term.SendControl(msg.Command); err != nil {
			send(OutputMessage{Type: OutError, Result: err.Error(), TerminalStatus: StatusUnknown})
			return
		}
		send(OutputMessage{Type: OutActionFinish, Result: "Control character sent: " + msg.Command, TerminalStatus: StatusRunning})

	case string(terminal.ModeRun):
		err := term.Run(ctx, msg.Command, msg.ExecDir, func(ev terminal.StreamEvent) {
			send(streamEventToOutput(ev))
		})
		if err != nil {
			switch {
			case errors.Is(err, terminal.ErrBusy):
				send(OutputMessage{Type: OutError, Result: "a previous command is unfinished", TerminalStatus: StatusRunning})
			case errors.Is(err, terminal.ErrDead):
				send(OutputMessage{Type: OutError, Result: "shell is not running", TerminalStatus: StatusUnknown})
			default:
				send(OutputMessage{Type: OutError, Result: err.Error(), TerminalStatus: StatusUnknown})
			}
		}

	default:
		send(OutputMessage{Type: OutError, Result: "Invalid mode: " + mode, TerminalStatus: StatusUnknown})
	}
}

func streamEventToOutput(ev terminal.StreamEvent) OutputMessage {
	out := OutputMessage{
		Output:          ev.Output,
		Result:          ev.Result,
		TerminalStatus:  ev.TerminalStatus,
		SubCommandIndex: intPtr(ev.SubCommandIndex),
	}
	switch ev.Kind {
	case terminal.EventUpdate:
		out.Type = OutUpdate
	case terminal.EventPartialFinish:
		out.Type = OutPartialFinish
	case terminal.EventFinish:
		out.Type = OutFinish
	}
	return out
}
