package terminal

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestSessionRunEchoesOutput(t *testing.T) {
	s, err := NewSession("t1", "/bin/bash", "")
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}

	var finalOutput []string
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = s.Run(ctx, "echo hello", "", func(ev StreamEvent) {
		if ev.Kind == EventFinish {
			finalOutput = ev.Output
		}
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	found := false
	for _, line := range finalOutput {
		if strings.Contains(line, "hello") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected output to contain hello, got %#v", finalOutput)
	}
}

func TestSessionRunRejectsConcurrentRun(t *testing.T) {
	s, err := NewSession("t2", "/bin/bash", "")
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan struct{})
	go func() {
		_ = s.Run(ctx, "sleep 1", "", func(StreamEvent) {})
		close(done)
	}()

	time.Sleep(100 * time.Millisecond)
	if err := s.Run(ctx, "echo too-soon", "", func(StreamEvent) {}); err != ErrBusy {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
	<-done
}

func TestSessionSplitsMultipleStatements(t *testing.T) {
	s, err := NewSession("t3", "/bin/bash", "")
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var kinds []StreamEventKind
	var subIndices []int
	err = s.Run(ctx, "echo one\necho two", "", func(ev StreamEvent) {
		if ev.Kind == EventPartialFinish || ev.Kind == EventFinish {
			kinds = append(kinds, ev.Kind)
			subIndices = append(subIndices, ev.SubCommandIndex)
		}
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(kinds) != 2 || kinds[0] != EventPartialFinish || kinds[1] != EventFinish {
		t.Fatalf("expected [partial_finish finish], got %#v", kinds)
	}
	if subIndices[0] != 0 || subIndices[1] != 1 {
		t.Fatalf("expected increasing sub_command_index, got %#v", subIndices)
	}
}

func TestRegistryGetOrCreateIsLazy(t *testing.T) {
	r := NewRegistry("/bin/bash", "")
	if _, ok := r.Get("missing"); ok {
		t.Fatalf("expected no session before first reference")
	}

	s1, err := r.GetOrCreate("a")
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	s2, err := r.GetOrCreate("a")
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if s1 != s2 {
		t.Fatalf("expected GetOrCreate to return the same session for the same name")
	}
}
