package transport

import "context"

// ParseMarkdown is Telegram's legacy Markdown parse mode.
const ParseMarkdown = "Markdown"

// ChatTarget addresses a chat. Chat is either a numeric chat id ("-100123")
// or a public username ("@channel").
type ChatTarget struct {
	Chat     string
	ThreadID int // telegram forum topic thread id (0 if none)
}

type MessageRef struct {
	Chat      string
	ThreadID  int
	MessageID int
}

type SendOptions struct {
	ParseMode      string
	DisablePreview bool
}

// Sender delivers text messages to a chat.
type Sender interface {
	SendText(ctx context.Context, to ChatTarget, text string, opt *SendOptions) (MessageRef, error)
}
