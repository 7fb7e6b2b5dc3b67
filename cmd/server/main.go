// cmd/server/main.go
package main

import (
	"context"
	"log"
	"log/slog"
	"time"

	"github.com/sozercan/vision-results/internal/actions"
	"github.com/sozercan/vision-results/internal/backend"
	"github.com/sozercan/vision-results/internal/config"
	"github.com/sozercan/vision-results/internal/handoff"
	"github.com/sozercan/vision-results/internal/llm"
	"github.com/sozercan/vision-results/internal/logging"
	"github.com/sozercan/vision-results/internal/render"
	"github.com/sozercan/vision-results/internal/server"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	logging.InitLogger(cfg.Log.Level)

	store, closeStore, err := newStore(cfg.Handoff)
	if err != nil {
		log.Fatalf("failed to create hand-off store: %v", err)
	}
	defer closeStore()

	backendClient, err := backend.NewClient(cfg.Backend.BaseURL, cfg.Backend.Timeout)
	if err != nil {
		log.Fatalf("failed to create backend client: %v", err)
	}

	var translator actions.Translator = backendClient
	if cfg.Translator.Provider == "openai" {
		provider, err := llm.NewOpenAI(&cfg.OpenAI)
		if err != nil {
			log.Fatalf("failed to create LLM provider: %v", err)
		}
		translator = llm.NewTranslator(provider)
	}

	renderer, err := render.New()
	if err != nil {
		log.Fatalf("failed to load templates: %v", err)
	}

	srv := server.New(*cfg, server.Dependencies{
		Bridge:   handoff.NewBridge(store),
		Uploader: backendClient,
		Analyzer: backendClient,
		Actions:  actions.New(translator, backendClient, backendClient, cfg.Speech.Concurrency),
		Renderer: renderer,
		Backend:  backendClient.Proxy(),
	})
	slog.Info("starting server",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"handoff", cfg.Handoff.Backend,
		"translator", cfg.Translator.Provider,
	)
	if err := srv.Run(); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}

func newStore(cfg config.HandoffConfig) (handoff.Store, func(), error) {
	if cfg.Backend != "valkey" {
		store := handoff.NewMemoryStore(cfg.TTL)
		ctx, cancel := context.WithCancel(context.Background())
		go store.RunSweeper(ctx, sweepInterval(cfg.TTL))
		return store, cancel, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store, err := handoff.NewValkeyStore(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return store, store.Close, nil
}

// sweepInterval runs the sweeper a few times per TTL, within bounds.
func sweepInterval(ttl time.Duration) time.Duration {
	interval := ttl / 4
	switch {
	case interval < time.Second:
		return time.Second
	case interval > 10*time.Minute:
		return 10 * time.Minute
	}
	return interval
}
