package chat

import (
	"context"
	"fmt"
)

// Assistant produces the bot's answer to a user message. history holds the
// most recent messages of the session, oldest first, excluding text.
type Assistant interface {
	Reply(ctx context.Context, history []*Message, text string) (content string, suggestions []string, err error)
}

var defaultSuggestions = []string{
	"Show me laptops",
	"I need a smartphone",
	"What's on sale?",
}

// EchoAssistant acknowledges the message and offers canned suggestions.
type EchoAssistant struct{}

func (EchoAssistant) Reply(_ context.Context, _ []*Message, text string) (string, []string, error) {
	content := fmt.Sprintf("I received your message: '%s'. How can I help you find products today?", text)
	return content, append([]string(nil), defaultSuggestions...), nil
}
