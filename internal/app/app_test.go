package app

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"channelposter/internal/config"
	"channelposter/internal/poster"
	"channelposter/internal/storage"
	"channelposter/internal/transport"
)

// fakeBotAPI answers getMe and sendMessage like the Telegram Bot API.
func fakeBotAPI(t *testing.T, sends *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/getMe"):
			_, _ = fmt.Fprint(w, `{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"poster","username":"poster_bot"}}`)
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			n := sends.Add(1)
			_, _ = fmt.Fprintf(w, `{"ok":true,"result":{"message_id":%d,"date":1700000000,"chat":{"id":-1001,"type":"channel"}}}`, n)
		default:
			t.Errorf("unexpected request %s", r.URL.Path)
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	dir := t.TempDir()
	catalogPath := filepath.Join(dir, "preset_posts.json")
	body := `{"posts":[{"id":1,"type":"regular","content":"Hello"},{"id":2,"type":"promo","content":"┌ Deal\n└ end"}]}`
	if err := os.WriteFile(catalogPath, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := config.Default()
	cfg.Telegram.Token = "123:abc"
	cfg.Telegram.ChannelID = "@test_channel"
	cfg.Posts.File = catalogPath
	cfg.Storage.Path = filepath.Join(dir, "publication_log.json")
	cfg.Logging.Console = false
	cfg.Logging.Level = "error"
	return cfg
}

func TestNewPublishRequiresCredentials(t *testing.T) {
	t.Parallel()
	cfg := testConfig(t)
	cfg.Telegram.Token = ""
	_, err := New(cfg, ModePublish, Options{})
	var ce *ConfigError
	if !errors.As(err, &ce) || !errors.Is(err, config.ErrMissingToken) {
		t.Fatalf("err = %v, want ConfigError wrapping ErrMissingToken", err)
	}

	// Inspection commands do not need a token.
	a, err := New(cfg, ModeInspect, Options{})
	if err != nil {
		t.Fatalf("inspect mode: %v", err)
	}
	_ = a.Close()
}

func TestPublishAndHistory(t *testing.T) {
	t.Parallel()
	var sends atomic.Int32
	srv := fakeBotAPI(t, &sends)

	cfg := testConfig(t)
	cfg.Telegram.APIURL = srv.URL
	cfg.Posts.Number = "1"

	a, err := New(cfg, ModePublish, Options{Rand: rand.New(rand.NewPCG(5, 5))})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		out := a.Publish(ctx)
		if !out.OK() {
			t.Fatalf("publish %d: %s", i, out.Error())
		}
		if out.Selection.Post.ID != 1 {
			t.Fatalf("selected %+v", out.Selection.Post)
		}
	}
	if sends.Load() != 2 {
		t.Fatalf("sendMessage calls = %d, want 2", sends.Load())
	}

	entries, err := a.History(ctx)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(entries) != 2 || entries[0].PostID != 1 || entries[1].Channel != config.DefaultChannelName {
		t.Fatalf("entries = %+v", entries)
	}
}

func TestPublishSendFailureIsTagged(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = fmt.Fprint(w, `{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`)
	}))
	defer srv.Close()

	cfg := testConfig(t)
	cfg.Telegram.APIURL = srv.URL
	a, err := New(cfg, ModePublish, Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	out := a.Publish(context.Background())
	if out.Kind != poster.SendFailed {
		t.Fatalf("outcome = %s, want send_failed", out.Kind)
	}
	if _, err := os.Stat(cfg.Storage.Path); !os.IsNotExist(err) {
		t.Fatalf("publication log must not be written on send failure: %v", err)
	}
}

func TestPublishUnreachableAPIIsSendFailure(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	cfg := testConfig(t)
	cfg.Telegram.APIURL = url
	a, err := New(cfg, ModePublish, Options{})
	if err != nil {
		t.Fatalf("New must not contact the Bot API: %v", err)
	}
	defer a.Close()

	out := a.Publish(context.Background())
	if out.Kind != poster.SendFailed || out.ExitCode() != 3 {
		t.Fatalf("outcome = %s (exit %d), want send_failed / 3", out.Error(), out.ExitCode())
	}
}

func TestNewDoesNotCallGetMe(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	cfg := testConfig(t)
	cfg.Telegram.APIURL = srv.URL
	a, err := New(cfg, ModePublish, Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_ = a.Close()
	if calls.Load() != 0 {
		t.Fatalf("Bot API calls during New = %d, want 0", calls.Load())
	}
}

func TestRunScheduledMissingCatalog(t *testing.T) {
	t.Parallel()
	cfg := testConfig(t)
	cfg.Schedule.Spec = "1h"
	a, err := New(cfg, ModePublish, Options{Sender: nopSender{}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()
	if err := os.Remove(cfg.Posts.File); err != nil {
		t.Fatal(err)
	}
	var ce *ConfigError
	if err := a.RunScheduled(context.Background()); !errors.As(err, &ce) {
		t.Fatalf("err = %v, want ConfigError", err)
	}
}

func TestPreviewAndCatalog(t *testing.T) {
	t.Parallel()
	cfg := testConfig(t)
	cfg.Posts.Type = "promo"
	a, err := New(cfg, ModeInspect, Options{Rand: rand.New(rand.NewPCG(1, 2))})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	c, err := a.Catalog()
	if err != nil || c.Len() != 2 {
		t.Fatalf("Catalog: len=%d err=%v", c.Len(), err)
	}

	sel, msg, err := a.Preview()
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	if sel.Post.ID != 2 {
		t.Fatalf("selected %+v", sel.Post)
	}
	if !strings.Contains(msg, "━━━━━━━━━━━━━━━━━━━━\n┌ Deal\n└\n━━━━━━━━━━━━━━━━━━━━ end") {
		t.Fatalf("preview = %q", msg)
	}
	if _, err := a.History(context.Background()); !errors.Is(err, storage.ErrDisabled) {
		t.Fatalf("History in inspect mode: %v", err)
	}
}

func TestStorageNoneDisablesRecording(t *testing.T) {
	t.Parallel()
	cfg := testConfig(t)
	cfg.Storage.Driver = "none"
	a, err := New(cfg, ModePublish, Options{Sender: nopSender{}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()
	if out := a.Publish(context.Background()); !out.OK() {
		t.Fatalf("outcome = %s", out.Error())
	}
	if _, err := os.Stat(cfg.Storage.Path); !os.IsNotExist(err) {
		t.Fatalf("no log file expected with driver none: %v", err)
	}
}

func TestRunScheduledRejectsBadSchedule(t *testing.T) {
	t.Parallel()
	cfg := testConfig(t)
	cfg.Schedule.Spec = "whenever"
	a, err := New(cfg, ModePublish, Options{Sender: nopSender{}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()
	err = a.RunScheduled(context.Background())
	var ce *ConfigError
	if !errors.As(err, &ce) {
		t.Fatalf("err = %v, want ConfigError", err)
	}
}

type nopSender struct{}

func (nopSender) SendText(_ context.Context, to transport.ChatTarget, _ string, _ *transport.SendOptions) (transport.MessageRef, error) {
	return transport.MessageRef{Chat: to.Chat, MessageID: 1}, nil
}

func TestRunScheduledPublishesUntilCanceled(t *testing.T) {
	t.Parallel()
	var sends atomic.Int32
	srv := fakeBotAPI(t, &sends)

	cfg := testConfig(t)
	cfg.Telegram.APIURL = srv.URL
	cfg.Schedule.Spec = "1s"
	a, err := New(cfg, ModePublish, Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.RunScheduled(ctx) }()

	deadline := time.Now().Add(5 * time.Second)
	for sends.Load() < 1 {
		if time.Now().After(deadline) {
			cancel()
			t.Fatal("no scheduled publish")
		}
		time.Sleep(20 * time.Millisecond)
	}
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("RunScheduled: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("RunScheduled did not stop")
	}

	entries, err := a.History(context.Background())
	if err != nil || len(entries) < 1 {
		t.Fatalf("history: %d entries, err %v", len(entries), err)
	}
}
