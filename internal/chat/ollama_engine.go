package chat

import (
	"context"
	"time"

	"github.com/varsilias/chatease/internal/ollama"
	"github.com/varsilias/chatease/pkg/types"
)

type OllamaEngine struct {
	c *ollama.Client
}

func NewOllamaEngine(c *ollama.Client) *OllamaEngine {
	return &OllamaEngine{c: c}
}

func (e *OllamaEngine) Stream(ctx context.Context, model string, history []types.Message, onPartial func(string)) (string, time.Duration, error) {
	start := time.Now()
	text, err := e.c.ChatStream(ctx, model, toWire(history), onPartial)
	if err != nil {
		return "", 0, err
	}
	return text, time.Since(start), nil
}

// toWire converts session history to the {role, content} pairs Ollama
// expects; timestamps stay server-side.
func toWire(history []types.Message) []ollama.Message {
	out := make([]ollama.Message, 0, len(history))
	for _, m := range history {
		out = append(out, ollama.Message{Role: string(m.Role), Content: m.Content})
	}
	return out
}
