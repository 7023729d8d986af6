package transport

import "context"

// ParseModeHTML is the Telegram rich-text mode used by every rendered report.
const ParseModeHTML = "HTML"

// ChatTarget identifies a recipient chat.
//
// ChatID is kept as a string so both numeric ids ("-100123") and public
// usernames ("@channel") can be addressed.
type ChatTarget struct {
	ChatID   string
	ThreadID int // telegram forum topic thread id (0 if none)
}

type MessageRef struct {
	ChatID    string
	MessageID int
}

type SendOptions struct {
	ParseMode      string
	DisablePreview bool
}

// Sender delivers a single text message.
//
// Implementations return a non-nil error when the transport failed or the
// remote API did not acknowledge the message.
type Sender interface {
	SendText(ctx context.Context, to ChatTarget, text string, opt *SendOptions) (MessageRef, error)
}

// SenderFunc adapts a plain function to Sender.
type SenderFunc func(ctx context.Context, to ChatTarget, text string, opt *SendOptions) (MessageRef, error)

func (f SenderFunc) SendText(ctx context.Context, to ChatTarget, text string, opt *SendOptions) (MessageRef, error) {
	return f(ctx, to, text, opt)
}
