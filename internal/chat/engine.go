package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/varsilias/chatease/pkg/types"
)

// Engine produces an assistant reply for a conversation. Implementations
// publish the accumulated text through onPartial after every increment so
// the caller can render progressively; onPartial may be nil.
type Engine interface {
	Stream(ctx context.Context, model string, history []types.Message, onPartial func(string)) (text string, latency time.Duration, err error)
}

// EchoEngine is the fallback engine used when Ollama is unreachable. It
// streams its reply word by word to exercise the same rendering path.
type EchoEngine struct {
	minLatency time.Duration
}

func NewEchoEngine(minLatency time.Duration) *EchoEngine { return &EchoEngine{minLatency: minLatency} }

func (e *EchoEngine) Stream(ctx context.Context, model string, history []types.Message, onPartial func(string)) (string, time.Duration, error) {
	start := time.Now()
	prompt := ""
	if len(history) > 0 {
		prompt = history[len(history)-1].Content
	}
	text := fmt.Sprintf("(demo:%s) you said: %s", model, prompt)

	var acc strings.Builder
	for i, word := range strings.Fields(text) {
		select {
		case <-ctx.Done():
			return "", 0, ctx.Err()
		default:
		}
		if e.minLatency > 0 {
			time.Sleep(e.minLatency)
		}
		if i > 0 {
			acc.WriteString(" ")
		}
		acc.WriteString(word)
		if onPartial != nil {
			onPartial(acc.String())
		}
	}
	return acc.String(), time.Since(start), nil
}
