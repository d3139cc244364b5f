package chat

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/varsilias/chatease/internal/ollama"
	"github.com/varsilias/chatease/internal/session"
	"github.com/varsilias/chatease/pkg/types"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeEngine records what it was invoked with and plays back a scripted reply.
type fakeEngine struct {
	calls   int
	history []types.Message
	reply   string
	err     error
}

func (f *fakeEngine) Stream(ctx context.Context, model string, history []types.Message, onPartial func(string)) (string, time.Duration, error) {
	f.calls++
	f.history = append([]types.Message(nil), history...)
	if f.err != nil {
		return "", 0, f.err
	}
	if onPartial != nil {
		onPartial(f.reply)
	}
	return f.reply, time.Millisecond, nil
}

func TestChatAppendsUserThenAssistant(t *testing.T) {
	store := session.NewMemoryStore()
	eng := &fakeEngine{reply: "Hello!"}
	ctrl := NewController(testLogger(), eng, store)

	msg, _, err := ctrl.Chat(context.Background(), "s1", "my-chatbot", "Hi", nil)
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if msg.Role != types.RoleAssistant || msg.Content != "Hello!" {
		t.Errorf("assistant = %+v", msg)
	}

	// The engine must have seen the user turn already appended.
	if eng.calls != 1 {
		t.Fatalf("engine calls = %d, want 1", eng.calls)
	}
	if len(eng.history) != 1 || eng.history[0].Role != types.RoleUser || eng.history[0].Content != "Hi" {
		t.Errorf("engine history = %+v", eng.history)
	}

	got, _ := store.Get("s1")
	if len(got) != 2 {
		t.Fatalf("history len = %d, want 2", len(got))
	}
	if got[0].Role != types.RoleUser || got[1].Role != types.RoleAssistant {
		t.Errorf("history roles = %s, %s", got[0].Role, got[1].Role)
	}
	if got[1].Content != "Hello!" {
		t.Errorf("assistant content = %q", got[1].Content)
	}
}

func TestChatEmptyInputIsNoOp(t *testing.T) {
	store := session.NewMemoryStore()
	eng := &fakeEngine{reply: "unused"}
	ctrl := NewController(testLogger(), eng, store)

	for _, input := range []string{"", "   ", "\n\t"} {
		msg, _, err := ctrl.Chat(context.Background(), "s1", "", input, nil)
		if err != nil {
			t.Fatalf("Chat(%q): %v", input, err)
		}
		if msg.Content != "" {
			t.Errorf("Chat(%q) produced a reply", input)
		}
	}

	if eng.calls != 0 {
		t.Errorf("engine calls = %d, want 0", eng.calls)
	}
	if got, _ := store.Get("s1"); len(got) != 0 {
		t.Errorf("history len = %d, want 0", len(got))
	}
}

func TestChatEngineErrorLeavesUserMessage(t *testing.T) {
	store := session.NewMemoryStore()
	eng := &fakeEngine{err: errors.New("upstream down")}
	ctrl := NewController(testLogger(), eng, store)

	_, _, err := ctrl.Chat(context.Background(), "s1", "", "Hi", nil)
	if err == nil {
		t.Fatal("expected error")
	}

	// No rollback: the user turn stays, no assistant turn follows.
	got, _ := store.Get("s1")
	if len(got) != 1 || got[0].Role != types.RoleUser {
		t.Errorf("history = %+v, want single user message", got)
	}
}

func TestChatSecondTurnSendsFullHistory(t *testing.T) {
	store := session.NewMemoryStore()
	eng := &fakeEngine{reply: "first"}
	ctrl := NewController(testLogger(), eng, store)

	if _, _, err := ctrl.Chat(context.Background(), "s1", "", "one", nil); err != nil {
		t.Fatal(err)
	}
	eng.reply = "second"
	if _, _, err := ctrl.Chat(context.Background(), "s1", "", "two", nil); err != nil {
		t.Fatal(err)
	}

	// user, assistant, user — the whole conversation so far
	if len(eng.history) != 3 {
		t.Fatalf("engine history len = %d, want 3", len(eng.history))
	}
	wantRoles := []types.Role{types.RoleUser, types.RoleAssistant, types.RoleUser}
	for i, r := range wantRoles {
		if eng.history[i].Role != r {
			t.Errorf("history[%d].Role = %s, want %s", i, eng.history[i].Role, r)
		}
	}
}

func TestEchoEngineStreamsWords(t *testing.T) {
	eng := NewEchoEngine(0)
	history := []types.Message{{Role: types.RoleUser, Content: "hi there"}}

	var partials []string
	text, _, err := eng.Stream(context.Background(), "demo", history, func(p string) {
		partials = append(partials, p)
	})
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	if text != "(demo:demo) you said: hi there" {
		t.Errorf("text = %q", text)
	}
	if len(partials) == 0 {
		t.Fatal("no partials published")
	}
	if partials[len(partials)-1] != text {
		t.Errorf("last partial = %q, want final text", partials[len(partials)-1])
	}
}

// End-to-end: controller + ollama engine against a scripted chat stream.
func TestTurnAgainstScriptedStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []ollama.Message `json:"messages"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		if len(req.Messages) != 1 || req.Messages[0].Content != "Hi" {
			t.Errorf("upstream saw messages %+v", req.Messages)
		}
		for _, line := range []string{
			`{"message":{"content":"Hel"}}`,
			`{"message":{"content":"lo!"}}`,
			`{"message":{"content":"<|im_end|>"}}`,
		} {
			_, _ = w.Write([]byte(line + "\n"))
		}
	}))
	defer srv.Close()

	store := session.NewMemoryStore()
	eng := NewOllamaEngine(ollama.NewClient(srv.URL, "my-chatbot", testLogger()))
	ctrl := NewController(testLogger(), eng, store)

	msg, _, err := ctrl.Chat(context.Background(), "s1", "", "Hi", nil)
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if msg.Content != "Hello!" {
		t.Errorf("assistant content = %q, want %q", msg.Content, "Hello!")
	}

	got, _ := store.Get("s1")
	if len(got) != 2 || got[1].Content != "Hello!" {
		t.Errorf("history = %+v", got)
	}
}
