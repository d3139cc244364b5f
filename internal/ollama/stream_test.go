package ollama

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// chatServer answers POST /api/chat with the given newline-delimited body.
func chatServer(t *testing.T, status int, lines ...string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			http.NotFound(w, r)
			return
		}
		var req struct {
			Model    string    `json:"model"`
			Messages []Message `json:"messages"`
			Stream   bool      `json:"stream"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		if !req.Stream {
			t.Error("expected stream=true in request")
		}
		w.WriteHeader(status)
		for _, l := range lines {
			_, _ = w.Write([]byte(l + "\n"))
		}
	}))
}

func contentChunk(s string) string {
	b, _ := json.Marshal(map[string]any{"message": map[string]string{"role": "assistant", "content": s}})
	return string(b)
}

func TestChatStreamAccumulates(t *testing.T) {
	srv := chatServer(t, http.StatusOK,
		contentChunk("Hel"),
		contentChunk("lo!"),
		contentChunk(EndOfTurn),
	)
	defer srv.Close()

	c := NewClient(srv.URL, "my-chatbot", testLogger())

	var partials []string
	got, err := c.ChatStream(context.Background(), "", []Message{{Role: "user", Content: "Hi"}}, func(p string) {
		partials = append(partials, p)
	})
	if err != nil {
		t.Fatalf("ChatStream: %v", err)
	}
	if got != "Hello!" {
		t.Errorf("final text = %q, want %q", got, "Hello!")
	}

	want := []string{"Hel", "Hello!"}
	if len(partials) != len(want) {
		t.Fatalf("partials = %v, want %v", partials, want)
	}
	for i := range want {
		if partials[i] != want[i] {
			t.Errorf("partial[%d] = %q, want %q", i, partials[i], want[i])
		}
	}
}

func TestChatStreamPartialsArePrefixMonotonic(t *testing.T) {
	srv := chatServer(t, http.StatusOK,
		contentChunk("one "),
		contentChunk("two "),
		contentChunk("three"),
		`{"message":{"role":"assistant","content":""},"done":true}`,
	)
	defer srv.Close()

	c := NewClient(srv.URL, "my-chatbot", testLogger())

	prev := ""
	_, err := c.ChatStream(context.Background(), "", nil, func(p string) {
		if !strings.HasPrefix(p, prev) {
			t.Errorf("partial %q does not extend %q", p, prev)
		}
		prev = p
	})
	if err != nil {
		t.Fatalf("ChatStream: %v", err)
	}
	if prev != "one two three" {
		t.Errorf("last partial = %q", prev)
	}
}

func TestChatStreamStopsAtSentinel(t *testing.T) {
	// Content after the sentinel chunk must never be accumulated.
	srv := chatServer(t, http.StatusOK,
		contentChunk("before"),
		contentChunk("x"+EndOfTurn),
		contentChunk("after"),
	)
	defer srv.Close()

	c := NewClient(srv.URL, "my-chatbot", testLogger())
	got, err := c.ChatStream(context.Background(), "", nil, nil)
	if err != nil {
		t.Fatalf("ChatStream: %v", err)
	}
	if got != "before" {
		t.Errorf("text = %q, want %q", got, "before")
	}
}

func TestChatStreamTrimsWhitespace(t *testing.T) {
	srv := chatServer(t, http.StatusOK,
		contentChunk("  padded reply\n"),
		contentChunk(EndOfTurn),
	)
	defer srv.Close()

	c := NewClient(srv.URL, "my-chatbot", testLogger())
	got, err := c.ChatStream(context.Background(), "", nil, nil)
	if err != nil {
		t.Fatalf("ChatStream: %v", err)
	}
	if got != "padded reply" {
		t.Errorf("text = %q, want %q", got, "padded reply")
	}
}

func TestChatStreamEndsAtEOFWithoutSentinel(t *testing.T) {
	srv := chatServer(t, http.StatusOK, contentChunk("partial"))
	defer srv.Close()

	c := NewClient(srv.URL, "my-chatbot", testLogger())
	got, err := c.ChatStream(context.Background(), "", nil, nil)
	if err != nil {
		t.Fatalf("ChatStream: %v", err)
	}
	if got != "partial" {
		t.Errorf("text = %q, want %q", got, "partial")
	}
}

func TestChatStreamUpstreamError(t *testing.T) {
	srv := chatServer(t, http.StatusInternalServerError)
	defer srv.Close()

	c := NewClient(srv.URL, "my-chatbot", testLogger())
	_, err := c.ChatStream(context.Background(), "", nil, func(string) {
		t.Error("no partial should be published on upstream failure")
	})
	if !IsUpstream(err) {
		t.Fatalf("err = %v, want UpstreamError", err)
	}
}

func TestChatStreamMalformedChunk(t *testing.T) {
	srv := chatServer(t, http.StatusOK,
		contentChunk("ok"),
		`{not json`,
		contentChunk("never seen"),
	)
	defer srv.Close()

	c := NewClient(srv.URL, "my-chatbot", testLogger())
	_, err := c.ChatStream(context.Background(), "", nil, nil)
	if !IsMalformedChunk(err) {
		t.Fatalf("err = %v, want MalformedChunkError", err)
	}
}

func TestChatStreamUsesDefaultModel(t *testing.T) {
	seen := ""
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Model string `json:"model"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		seen = req.Model
		_, _ = w.Write([]byte(contentChunk(EndOfTurn) + "\n"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "my-chatbot", testLogger())
	if _, err := c.ChatStream(context.Background(), "", nil, nil); err != nil {
		t.Fatalf("ChatStream: %v", err)
	}
	if seen != "my-chatbot" {
		t.Errorf("model sent = %q, want %q", seen, "my-chatbot")
	}
}

func TestChatStreamContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	srv := chatServer(t, http.StatusOK, contentChunk("x"))
	defer srv.Close()

	c := NewClient(srv.URL, "my-chatbot", testLogger())
	if _, err := c.ChatStream(ctx, "", nil, nil); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}
