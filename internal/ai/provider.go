package ai

import "context"

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatStreamer streams assistant content deltas. Both channels are closed
// when streaming ends; a value on the error channel means the stream errored
// and no further deltas will arrive.
type ChatStreamer interface {
	StreamChat(ctx context.Context, model, systemPrompt string, messages []Message) (<-chan string, <-chan error)
}

// Embedder produces an embedding vector for a piece of text.
type Embedder interface {
	Embed(ctx context.Context, model, input string) ([]float32, error)
}
