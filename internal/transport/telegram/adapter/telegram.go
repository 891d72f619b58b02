package adapter

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"channelposter/internal/transport"
	logx "channelposter/pkg/logx"
)

type Config struct {
	Token string
	// URL overrides the Bot API endpoint; empty means api.telegram.org.
	URL string
	// Offline skips the getMe handshake at construction.
	Offline bool
	Timeout time.Duration
}

// Adapter sends messages through the Telegram Bot API. The poster only
// publishes, so no update poller is started.
type Adapter struct {
	cfg Config
	log logx.Logger
	bot *tele.Bot
}

// chatRecipient addresses a chat by numeric id or "@username"; the Bot API
// accepts both as chat_id.
type chatRecipient string

func (r chatRecipient) Recipient() string { return string(r) }

func New(cfg Config, log logx.Logger) (*Adapter, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	b, err := tele.NewBot(tele.Settings{
		URL:     strings.TrimRight(strings.TrimSpace(cfg.URL), "/"),
		Token:   cfg.Token,
		Offline: cfg.Offline,
		Client:  &http.Client{Timeout: timeout},
	})
	if err != nil {
		return nil, fmt.Errorf("telegram bot init: %w", err)
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Adapter{cfg: cfg, log: log, bot: b}, nil
}

// textLimit stays under the Bot API's 4096-character message cap.
const textLimit = 4000

// splitText cuts s into pieces of at most limit runes. A cut prefers the last
// newline in the second half of the window, then the last space. In HTML mode
// a cut never lands inside a tag.
func splitText(s string, limit int, html bool) []string {
	r := []rune(s)
	if len(r) <= limit {
		return []string{s}
	}
	var out []string
	for len(r) > limit {
		cut := cutPoint(r[:limit], html)
		out = append(out, strings.TrimRight(string(r[:cut]), "\n"))
		r = r[cut:]
		for len(r) > 0 && r[0] == '\n' {
			r = r[1:]
		}
	}
	if len(r) > 0 {
		out = append(out, string(r))
	}
	return out
}

func cutPoint(w []rune, html bool) int {
	cut := len(w)
	if i := lastRune(w, '\n'); i >= len(w)/2 {
		cut = i + 1
	} else if i := lastRune(w, ' '); i >= len(w)/2 {
		cut = i + 1
	}
	if html {
		if open := lastRune(w[:cut], '<'); open > 0 && open > lastRune(w[:cut], '>') {
			cut = open
		}
	}
	return cut
}

func lastRune(w []rune, c rune) int {
	for i := len(w) - 1; i >= 0; i-- {
		if w[i] == c {
			return i
		}
	}
	return -1
}

// SendText sends text to the chat, split into several messages if it is
// longer than Telegram allows. The returned ref points at the first message.
func (a *Adapter) SendText(ctx context.Context, to transport.ChatTarget, text string, opt *transport.SendOptions) (transport.MessageRef, error) {
	if opt == nil {
		opt = &transport.SendOptions{}
	}
	chat := strings.TrimSpace(to.Chat)
	if chat == "" {
		return transport.MessageRef{}, errors.New("telegram: empty chat")
	}

	chunks := splitText(text, textLimit, strings.EqualFold(opt.ParseMode, tele.ModeHTML))
	if len(chunks) > 1 {
		a.log.Debug("message split", logx.Int("parts", len(chunks)))
	}

	var first transport.MessageRef
	for i, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return first, err
		}

		msg, err := a.bot.Send(chatRecipient(chat), chunk, &tele.SendOptions{
			ParseMode:             opt.ParseMode,
			DisableWebPagePreview: opt.DisablePreview,
			ThreadID:              to.ThreadID,
		})
		if err != nil {
			return first, fmt.Errorf("telegram send to %s: %w", chat, err)
		}
		if i == 0 && msg != nil {
			first = transport.MessageRef{Chat: chat, ThreadID: to.ThreadID, MessageID: msg.ID}
		}
	}
	return first, nil
}
