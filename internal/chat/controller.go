package chat

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/varsilias/chatease/internal/metrics"
	"github.com/varsilias/chatease/internal/session"
	"github.com/varsilias/chatease/pkg/types"
)

type Controller struct {
	log      *slog.Logger
	eng      Engine
	sessions session.Store
}

func NewController(log *slog.Logger, eng Engine, store session.Store) *Controller {
	return &Controller{log: log, eng: eng, sessions: store}
}

// Chat orchestrates a single turn: append the user message, stream the
// engine reply through onPartial, append the finished assistant message.
// Empty input is a no-op: nothing is appended and the engine is not called.
// A failed turn leaves the user message in history; there is no rollback.
func (c *Controller) Chat(ctx context.Context, sessionID, model, input string, onPartial func(string)) (types.Message, time.Duration, error) {
	if strings.TrimSpace(input) == "" {
		return types.Message{}, 0, nil
	}

	metrics.TurnsStarted.Inc()
	start := time.Now()

	user := types.Message{Role: types.RoleUser, Content: input, Timestamp: time.Now()}
	if err := c.sessions.Append(sessionID, user); err != nil {
		return types.Message{}, 0, err
	}

	history, err := c.sessions.Get(sessionID)
	if err != nil {
		return types.Message{}, 0, err
	}

	publish := func(partial string) {
		metrics.StreamPartials.Inc()
		if onPartial != nil {
			onPartial(partial)
		}
	}

	c.log.Info("chat", "session", sessionID, "model", model, "history_len", len(history))
	text, latency, err := c.eng.Stream(ctx, model, history, publish)
	if err != nil {
		metrics.TurnsFailed.Inc()
		c.log.Error("engine call", "session", sessionID, "err", err.Error())
		return types.Message{}, 0, err
	}

	assistant := types.Message{Role: types.RoleAssistant, Content: text, Timestamp: time.Now()}
	if err := c.sessions.Append(sessionID, assistant); err != nil {
		return types.Message{}, 0, err
	}

	metrics.TurnsCompleted.Inc()
	metrics.TurnDuration.Observe(time.Since(start).Seconds())
	return assistant, latency, nil
}
