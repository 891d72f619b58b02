package logx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"channelposter/internal/transport"
)

const (
	telegramQueueSize   = 64
	telegramSendTimeout = 10 * time.Second
	telegramMaxLine     = 3500
	telegramMaxValue    = 600
)

// telegramSink is a zerolog.LevelWriter that forwards lines to a chat from a
// single background goroutine. It never blocks the caller: lines are dropped
// when the queue is full or the rate limit is hit.
type telegramSink struct {
	sender  transport.Sender
	to      transport.ChatTarget
	min     zerolog.Level
	limiter *rate.Limiter

	mu     sync.Mutex
	closed bool
	queue  chan string
	done   chan struct{}
}

func newTelegramSink(sender transport.Sender, chat string, min zerolog.Level, perSec int) *telegramSink {
	perSec = max(1, perSec)
	s := &telegramSink{
		sender:  sender,
		to:      transport.ChatTarget{Chat: chat},
		min:     min,
		limiter: rate.NewLimiter(rate.Limit(perSec), perSec),
		queue:   make(chan string, telegramQueueSize),
		done:    make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *telegramSink) Write(p []byte) (int, error) {
	return s.WriteLevel(zerolog.InfoLevel, p)
}

func (s *telegramSink) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	if level < s.min || !s.limiter.Allow() {
		return len(p), nil
	}
	msg := renderLine(p)
	if msg == "" {
		return len(p), nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return len(p), nil
	}
	select {
	case s.queue <- msg:
	default:
	}
	return len(p), nil
}

func (s *telegramSink) run() {
	defer close(s.done)
	for msg := range s.queue {
		ctx, cancel := context.WithTimeout(context.Background(), telegramSendTimeout)
		_, _ = s.sender.SendText(ctx, s.to, msg, &transport.SendOptions{DisablePreview: true})
		cancel()
	}
}

func (s *telegramSink) close(timeout time.Duration) error {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
	s.mu.Unlock()

	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case <-s.done:
		return nil
	case <-t.C:
		return errors.New("logx: telegram log drain timed out")
	}
}

// renderLine turns a zerolog JSON line into "[LEVEL] message" followed by
// one "- key=value" line per remaining field, keys sorted.
func renderLine(p []byte) string {
	raw := strings.TrimSpace(string(p))
	var m map[string]any
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return clip(raw, telegramMaxLine)
	}

	var b strings.Builder
	if lvl, _ := m[zerolog.LevelFieldName].(string); lvl != "" {
		b.WriteString("[" + strings.ToUpper(lvl) + "] ")
	}
	msg, _ := m[zerolog.MessageFieldName].(string)
	b.WriteString(msg)

	for _, k := range slices.Sorted(maps.Keys(m)) {
		switch k {
		case zerolog.TimestampFieldName, zerolog.LevelFieldName, zerolog.MessageFieldName:
			continue
		}
		fmt.Fprintf(&b, "\n- %s=%s", k, clip(fmt.Sprint(m[k]), telegramMaxValue))
	}
	return clip(b.String(), telegramMaxLine)
}

// clip shortens s to at most n runes, marking the cut with "…".
func clip(s string, n int) string {
	if n <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
