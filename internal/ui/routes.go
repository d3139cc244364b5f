package ui

import (
	"html/template"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/varsilias/chatease/internal/buildinfo"
	"github.com/varsilias/chatease/internal/session"
)

func RegisterRoutes(mux *chi.Mux, h *UI) {
	mux.Get("/", h.Home)
	mux.Post("/ui/chat", h.ChatPost)
	mux.Post("/ui/session/new", h.NewSession)
	mux.Get("/ui/version-pill", h.VersionPill)
}

// Home shows the chat UI. Optional session via query: /?s=<id>
func (u *UI) Home(w http.ResponseWriter, r *http.Request) {
	sid := strings.TrimSpace(r.URL.Query().Get("s"))
	if sid == "" {
		sid = "default"
	}

	mods, _ := u.models.List(r.Context())

	msgs, _ := u.sessions.Get(sid)
	hist := make([]MsgView, 0, len(msgs))
	for _, m := range msgs {
		hist = append(hist, MsgView{Role: string(m.Role), HTML: u.mdHTML(m.Content)})
	}

	// sessions list (best effort if memory store)
	var sessions []session.Summary
	if mem, ok := u.sessions.(*session.MemoryStore); ok {
		sessions = mem.List()
		sort.SliceStable(sessions, func(i, j int) bool { return sessions[i].Updated.After(sessions[j].Updated) })
	}

	u.render(w, "chat.html", map[string]any{
		"Models":       mods,
		"DefaultModel": u.model,
		"SessionID":    sid,
		"History":      hist,
		"Sessions":     sessions,
		"Commit":       buildinfo.Commit,
		"Version":      buildinfo.Version,
		"BuiltAt":      buildinfo.BuiltAt,
	}, http.StatusOK)
}

// ChatPost streams one chat turn: the user bubble fragment first, then the
// assistant text as it arrives from the model, then the finished assistant
// bubble. The page script consumes the response incrementally and swaps the
// raw stream for the final rendered fragment when it closes.
func (u *UI) ChatPost(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	model := r.Form.Get("model")
	msg := strings.TrimSpace(r.Form.Get("message"))
	sid := r.Form.Get("session_id")
	if sid == "" {
		sid = "default"
	}
	if msg == "" {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	flusher, canFlush := w.(http.Flusher)

	// User bubble first, so the page shows the turn immediately
	user := MsgView{Role: "user", HTML: u.mdHTML(msg)}
	if err := u.tpl.ExecuteTemplate(w, "message.html", user); err != nil {
		u.errTpl(w, err)
		return
	}
	if canFlush {
		flusher.Flush()
	}

	// Raw text streams inside a placeholder the page script fills and
	// later replaces with the rendered fragment below.
	_, _ = w.Write([]byte(`<div class="msg assistant streaming">`))
	written := 0
	onPartial := func(partial string) {
		if written < len(partial) {
			_, _ = w.Write([]byte(template.HTMLEscapeString(partial[written:])))
			written = len(partial)
			if canFlush {
				flusher.Flush()
			}
		}
	}

	reply, latency, err := u.chat.Chat(r.Context(), sid, model, msg, onPartial)
	_, _ = w.Write([]byte(`</div>`))
	if err != nil {
		u.log.Error("chat turn", "session", sid, "err", err.Error())
		_, _ = w.Write([]byte(`<div class="msg error">assistant unavailable, try again</div>`))
		return
	}

	assistant := MsgView{
		Role:    "assistant",
		HTML:    u.mdHTML(reply.Content),
		Latency: latency.Milliseconds(),
		At:      time.Now().Format(time.RFC822),
	}
	_ = u.tpl.ExecuteTemplate(w, "message.html", assistant)
}

// NewSession creates a fresh session ID and redirects to /?s=...
func (u *UI) NewSession(w http.ResponseWriter, r *http.Request) {
	id := uuid.NewString()
	if mem, ok := u.sessions.(*session.MemoryStore); ok {
		mem.Touch(id)
	}
	url := "/?s=" + id

	// If this is an HTMX request, instruct the client to redirect
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", url)
		w.WriteHeader(http.StatusNoContent)
		return
	}

	http.Redirect(w, r, url, http.StatusFound)
}

type versionVM struct {
	Version string
	Commit  string
	BuiltAt string
}

func (u *UI) VersionPill(w http.ResponseWriter, r *http.Request) {
	// Fragment response; avoid caching so rollouts show quickly
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")

	data := versionVM{
		Version: buildinfo.Version,
		Commit:  buildinfo.Commit,
		BuiltAt: buildinfo.BuiltAt,
	}
	if err := u.tpl.ExecuteTemplate(w, "version-pill.html", data); err != nil {
		u.errTpl(w, err)
	}
}
