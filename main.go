package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/varsilias/chatease/internal/api"
	"github.com/varsilias/chatease/internal/buildinfo"
	"github.com/varsilias/chatease/internal/chat"
	"github.com/varsilias/chatease/internal/logging"
	"github.com/varsilias/chatease/internal/middleware"
	"github.com/varsilias/chatease/internal/models"
	"github.com/varsilias/chatease/internal/ollama"
	"github.com/varsilias/chatease/internal/session"
	"github.com/varsilias/chatease/internal/transcribe"
	"github.com/varsilias/chatease/internal/ui"
)

func main() {
	addr := flag.String("addr", getEnv("ADDR", "8080"), "HTTP listen address")
	level := flag.String("log-level", getEnv("LOG_LEVEL", "info"), "log level: debug|info|warn|error")
	json := flag.Bool("log-json", getEnv("LOG_JSON", "false") == "true", "log as JSON")
	ollamaURL := flag.String("ollama", getEnv("OLLAMA_BASE_URL", "http://localhost:11434"), "Ollama base URL")
	model := flag.String("model", getEnv("CHAT_MODEL", "my-chatbot"), "default chat model")
	deepgramURL := flag.String("deepgram", getEnv("DEEPGRAM_URL", ""), "Deepgram endpoint override")

	// ollama readiness knobs
	waitEnabled := strings.ToLower(getEnv("OLLAMA_WAIT", "true")) == "true"
	waitTimeout, _ := time.ParseDuration(getEnv("OLLAMA_WAIT_TIMEOUT", "180s"))
	waitInterval, _ := time.ParseDuration(getEnv("OLLAMA_WAIT_INTERVAL", "2s"))
	waitModels := strings.Fields(getEnv("OLLAMA_WAIT_MODELS", ""))

	flag.Parse()

	logger := logging.New(*level, *json)
	logger.Info("build", "version", buildinfo.Version, "commit", buildinfo.Commit, "built_at", buildinfo.BuiltAt)
	logger.Info("chatease starting", "port", *addr, "ollama", *ollamaURL, "model", *model)

	ollamaActive := false

	// Dependencies (prefer Ollama if reachable; else fall back to echo)
	var (
		engine    chat.Engine
		modelsMgr models.Manager
	)

	oc := ollama.NewClient(*ollamaURL, *model, logger)
	if waitEnabled {
		logger.Info("waiting for Ollama", "timeout", waitTimeout.String(), "interval", waitInterval.String(), "models", waitModels)
		ctxWait, cancel := context.WithTimeout(context.Background(), waitTimeout)
		err := waitForOllama(ctxWait, oc, waitModels, waitInterval)
		cancel()
		if err != nil {
			logger.Warn("Ollama wait timed out; continuing with fallback", "err", err.Error())
		} else {
			logger.Info("Ollama is ready (API + required models present)")
		}
	}

	if err := oc.Ping(context.Background()); err == nil {
		logger.Info("ollama reachable: enabling ollama engine")
		engine = chat.NewOllamaEngine(oc)
		modelsMgr = models.NewOllamaManager(oc)
		ollamaActive = true
	} else {
		logger.Warn("ollama not reachable; falling back to echo engine", "err", err)
		modelsMgr = models.NewStaticManager([]string{*model})
		engine = chat.NewEchoEngine(30 * time.Millisecond)
	}

	sessionStore := session.NewMemoryStore()
	chatCtrl := chat.NewController(logger, engine, sessionStore)

	uih, err := ui.New(logger, chatCtrl, modelsMgr, sessionStore, *model)
	if err != nil {
		logger.Error("ui init", "err", err)
		os.Exit(1)
	}

	h := api.NewHandlers(logger, chatCtrl, modelsMgr, sessionStore)
	if ollamaActive {
		h.Admin = api.NewAdmin(oc)
	}

	// Transcription is optional: without a key the record control degrades
	// to a clear "not configured" response instead of a malformed header.
	if key := os.Getenv("DEEPGRAM_API_KEY"); key != "" {
		tc, err := transcribe.NewClient(transcribe.Config{Endpoint: *deepgramURL, APIKey: key}, logger)
		if err != nil {
			logger.Error("transcribe init", "err", err)
			os.Exit(1)
		}
		h.Transcriber = tc
	} else {
		logger.Warn("DEEPGRAM_API_KEY not set; voice transcription disabled")
	}

	mux := chi.NewRouter()

	mux.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.Dir("web/static"))))

	ui.RegisterRoutes(mux, uih)
	api.RegisterRoutes(mux, h)

	var handler http.Handler = mux
	handler = middleware.Recoverer(logger)(handler)
	handler = middleware.RequestID()(handler)
	handler = middleware.AccessLog(logger)(handler)
	handler = middleware.VersionHeader()(handler)

	server := http.Server{
		Addr:              fmt.Sprintf(":%s", *addr),
		Handler:           handler,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		// long enough for slow model streams and registry pulls
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown
	errChan := make(chan error, 1)
	go func() { errChan <- server.ListenAndServe() }()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "err", err)
			os.Exit(1)
		}
	case sig := <-sigChan:
		logger.Info("shutdown signal received", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", "err", err)
	} else {
		logger.Info("server stopped")
	}
}

func waitForOllama(ctx context.Context, oc *ollama.Client, models []string, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	check := func() error {
		if err := oc.Ping(ctx); err != nil {
			return fmt.Errorf("ollama not reachable: %w", err)
		}

		if len(models) == 0 {
			return nil // only API readiness required
		}

		tags, err := oc.Tags(ctx)
		if err != nil {
			return fmt.Errorf("list tags: %w", err)
		}

		have := map[string]struct{}{}
		for _, t := range tags {
			have[t.Name] = struct{}{}
		}

		for _, m := range models {
			if _, ok := have[m]; !ok {
				return fmt.Errorf("model not present yet: %s", m)
			}
		}

		return nil
	}

	// immediate attempt first
	if err := check(); err == nil {
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := check(); err == nil {
				return nil
			}
		}
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
