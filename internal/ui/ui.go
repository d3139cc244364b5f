package ui

import (
	"bytes"
	"html/template"
	"log/slog"
	"net/http"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/microcosm-cc/bluemonday"
	"github.com/varsilias/chatease/internal/chat"
	"github.com/varsilias/chatease/internal/models"
	"github.com/varsilias/chatease/internal/session"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

type UI struct {
	log      *slog.Logger
	tpl      *template.Template
	chat     *chat.Controller
	models   models.Manager
	sessions session.Store
	model    string // default model for the picker
	md       goldmark.Markdown
	policy   *bluemonday.Policy
}

func New(log *slog.Logger, c *chat.Controller, m models.Manager, s session.Store, defaultModel string) (*UI, error) {
	// Parse all templates (layout + pages + partials)
	t := template.New("root")
	var err error
	if t, err = t.ParseGlob("web/templates/*.html"); err != nil {
		return nil, err
	}

	md := goldmark.New(
		goldmark.WithRendererOptions(gmhtml.WithUnsafe()),
		goldmark.WithExtensions(
			highlighting.NewHighlighting(
				highlighting.WithStyle("dracula"),
				highlighting.WithFormatOptions(
					// Inline styles so no external highlight CSS is needed
					chromahtml.WithLineNumbers(false),
				),
			),
		),
	)

	p := bluemonday.UGCPolicy()
	p.AllowAttrs("class").OnElements("code", "pre", "span")
	p.AllowAttrs("style").OnElements("span") // inline styles from the highlighter

	return &UI{
		log:      log,
		tpl:      t,
		chat:     c,
		models:   m,
		sessions: s,
		model:    defaultModel,
		md:       md,
		policy:   p,
	}, nil
}

type MsgView struct {
	Role    string
	HTML    template.HTML
	Latency int64
	At      string
}

func (u *UI) mdHTML(src string) template.HTML {
	var buf bytes.Buffer
	_ = u.md.Convert([]byte(src), &buf)
	safe := u.policy.SanitizeBytes(buf.Bytes())
	return template.HTML(safe)
}

func (u *UI) render(w http.ResponseWriter, name string, data any, status int) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := u.tpl.ExecuteTemplate(w, name, data); err != nil {
		u.errTpl(w, err)
	}
}

func (u *UI) errTpl(w http.ResponseWriter, err error) {
	u.log.Error("template execute", "err", err)
	_, _ = w.Write([]byte("<pre>template error: " + err.Error() + "</pre>"))
}
