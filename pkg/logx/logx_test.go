package logx

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"channelposter/internal/transport"
)

type recordingSender struct {
	mu   sync.Mutex
	sent []string
	to   []string
}

func (r *recordingSender) SendText(_ context.Context, to transport.ChatTarget, text string, _ *transport.SendOptions) (transport.MessageRef, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, text)
	r.to = append(r.to, to.Chat)
	return transport.MessageRef{Chat: to.Chat, MessageID: len(r.sent)}, nil
}

func TestParseLevel(t *testing.T) {
	t.Parallel()
	tests := map[string]zerolog.Level{
		"trace":   zerolog.TraceLevel,
		"DEBUG":   zerolog.DebugLevel,
		" info ":  zerolog.InfoLevel,
		"warning": zerolog.WarnLevel,
		"Error":   zerolog.ErrorLevel,
		"loud":    zerolog.FatalLevel,
	}
	for in, want := range tests {
		if got := parseLevel(in, zerolog.FatalLevel); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestWriterLoggerFields(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log := NewWriter(&buf, "debug").With(String("comp", "poster"))
	log.Trace("hidden")
	log.Info("post published", Int("post_id", 3), Err(nil))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("lines = %q", lines)
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &m); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if m["message"] != "post published" || m["comp"] != "poster" || m["post_id"] != float64(3) {
		t.Fatalf("entry = %v", m)
	}
	if _, ok := m["err"]; ok {
		t.Fatal("nil error must not be logged")
	}
}

func TestZeroLoggerIsNop(t *testing.T) {
	t.Parallel()
	var l Logger
	if !l.IsZero() {
		t.Fatal("zero logger should report IsZero")
	}
	l.Error("dropped")
	if Nop().IsZero() {
		t.Fatal("Nop logger is not the zero value")
	}
}

func TestRenderLine(t *testing.T) {
	t.Parallel()
	got := renderLine([]byte(`{"level":"error","time":"x","message":"send failed","post_id":4,"chat":"@c"}`))
	want := "[ERROR] send failed\n- chat=@c\n- post_id=4"
	if got != want {
		t.Fatalf("rendered = %q, want %q", got, want)
	}
	if got := renderLine([]byte("not json\n")); got != "not json" {
		t.Fatalf("raw = %q", got)
	}
}

func TestClip(t *testing.T) {
	t.Parallel()
	if got := clip("hello", 10); got != "hello" {
		t.Fatalf("got %q", got)
	}
	if got := clip(strings.Repeat("я", 20), 12); got != strings.Repeat("я", 11)+"…" {
		t.Fatalf("got %q", got)
	}
}

func TestTelegramSinkDrainsOnClose(t *testing.T) {
	t.Parallel()
	sender := &recordingSender{}
	svc, log := New(Config{
		Level: "info",
		Telegram: TelegramConfig{
			Enabled:    true,
			Chat:       "-100200",
			MinLevel:   "error",
			RatePerSec: 10,
		},
	}, sender)

	log.Info("below threshold")
	log.Error("publish failed", String("outcome", "send_failed"))
	if err := svc.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	// Writes after Close are dropped, not panics.
	log.Error("late")

	sender.mu.Lock()
	defer sender.mu.Unlock()
	if len(sender.sent) != 1 {
		t.Fatalf("sent = %q, want one line", sender.sent)
	}
	if sender.to[0] != "-100200" || !strings.Contains(sender.sent[0], "[ERROR] publish failed") {
		t.Fatalf("sent %q to %q", sender.sent[0], sender.to[0])
	}
}
