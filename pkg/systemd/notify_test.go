package systemd

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	logx "channelposter/pkg/logx"
)

type recorder struct {
	mu     sync.Mutex
	states []string
}

func (r *recorder) notify(_ bool, state string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, state)
	return true, nil
}

func (r *recorder) count(state string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, s := range r.states {
		if s == state {
			n++
		}
	}
	return n
}

func TestReadyStoppingStatus(t *testing.T) {
	t.Parallel()
	rec := &recorder{}
	n := NewNotifier(logx.Nop())
	n.notify = rec.notify

	n.Ready()
	n.Status("next run 09:00")
	n.Stopping()

	want := []string{daemon.SdNotifyReady, "STATUS=next run 09:00", daemon.SdNotifyStopping}
	if len(rec.states) != len(want) {
		t.Fatalf("states = %q", rec.states)
	}
	for i := range want {
		if rec.states[i] != want[i] {
			t.Fatalf("states = %q, want %q", rec.states, want)
		}
	}
}

func TestNotifyErrorIsLoggedNotFatal(t *testing.T) {
	t.Parallel()
	n := NewNotifier(logx.Nop())
	n.notify = func(bool, string) (bool, error) { return false, errors.New("socket gone") }
	if n.send(daemon.SdNotifyReady) {
		t.Fatal("send should report false on error")
	}
}

func TestWatchdogDisabledReturnsImmediately(t *testing.T) {
	t.Parallel()
	n := NewNotifier(logx.Nop())
	n.watchdogInterval = func(bool) (time.Duration, error) { return 0, nil }
	if err := n.Watchdog(context.Background()); err != nil {
		t.Fatalf("Watchdog: %v", err)
	}
}

func TestWatchdogPings(t *testing.T) {
	t.Parallel()
	rec := &recorder{}
	n := NewNotifier(logx.Nop())
	n.notify = rec.notify
	n.watchdogInterval = func(bool) (time.Duration, error) { return 20 * time.Millisecond, nil }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- n.Watchdog(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for rec.count(daemon.SdNotifyWatchdog) < 2 {
		if time.Now().After(deadline) {
			t.Fatal("no watchdog pings")
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("Watchdog = %v", err)
	}
}
