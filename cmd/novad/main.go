package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/insituate/nova/internal/backend"
	"github.com/insituate/nova/internal/config"
	"github.com/insituate/nova/internal/docs"
	"github.com/insituate/nova/internal/engine"
	"github.com/insituate/nova/internal/httpapi"
	"github.com/insituate/nova/internal/observability"
	"github.com/insituate/nova/internal/prompt"
	"github.com/insituate/nova/internal/reply"
	"github.com/insituate/nova/internal/speech"
	"github.com/insituate/nova/internal/store"
	"github.com/insituate/nova/internal/summarizer"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	ctx := context.Background()
	st, err := store.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("store init failed: %v", err)
	}
	defer st.Close()

	templates, err := prompt.LoadTemplates(cfg.PromptsDir)
	if err != nil {
		log.Fatalf("prompt templates: %v", err)
	}
	renderer := prompt.NewRenderer(templates, cfg.BuddyName, cfg.HistoryWordLimit)

	personas, err := config.LoadPersonas(cfg.PersonaFile)
	if err != nil {
		log.Fatalf("personas: %v", err)
	}
	if personas.Len() > 0 {
		log.Printf("loaded %d personas from %s", personas.Len(), cfg.PersonaFile)
	}

	cleaner := reply.NewCleaner(cfg.BuddyName)
	dispatcher := buildDispatcher(cfg, cleaner)

	synth, err := speech.NewSynthesizer(speech.FactoryConfig{
		Provider:            cfg.TTSProvider,
		GoogleAPIBase:       cfg.GoogleTTSBaseURL,
		GoogleAPIKey:        cfg.GoogleTTSAPIKey,
		GoogleVoiceName:     cfg.GoogleTTSVoice,
		GoogleLangCode:      cfg.GoogleTTSLanguage,
		ElevenLabsAPIKey:    cfg.ElevenLabsAPIKey,
		ElevenLabsWSBaseURL: cfg.ElevenLabsWSBaseURL,
		ElevenLabsVoiceID:   cfg.ElevenLabsVoice,
		ElevenLabsModelID:   cfg.ElevenLabsModel,
	})
	if err != nil {
		log.Fatalf("speech provider init failed: %v", err)
	}

	documents := docs.NewFileStore(cfg.DocumentsDir)

	eng := engine.New(st, dispatcher, renderer, documents, synth, cleaner, personas, metrics, engine.Config{
		ReplyBackend:   cfg.ReplyBackend,
		MemoryBackend:  cfg.MemoryBackend,
		SummaryBackend: cfg.SummaryBackend,
		RequestTimeout: cfg.RequestTimeout,
		DocMaxChars:    cfg.DocMaxChars,
	})

	summaries := summarizer.New(eng, st)
	if err := summaries.Start(cfg.SummaryCronSpec); err != nil {
		log.Fatalf("summary scheduler: %v", err)
	}
	defer summaries.Stop()

	api := httpapi.New(cfg, eng, st, documents, metrics)
	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: api.Router(),
	}

	go func() {
		log.Printf("server listening on %s", cfg.BindAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Printf("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
		_ = httpServer.Close()
	}

	log.Printf("shutdown complete")
}

// buildDispatcher registers every text backend with a configured key, plus a
// mock for keyless local runs.
func buildDispatcher(cfg config.Config, cleaner *reply.Cleaner) *backend.Dispatcher {
	providers := map[string]backend.Completer{
		"mock": backend.NewMockCompleter(),
	}
	if cfg.OpenAIAPIKey != "" {
		providers["openai"] = backend.NewOpenAI(backend.ClientConfig{
			APIBase: cfg.OpenAIBaseURL,
			APIKey:  cfg.OpenAIAPIKey,
			Model:   cfg.OpenAIModel,
		})
	}
	if cfg.GroqAPIKey != "" {
		providers["groq"] = backend.NewGroq(backend.ClientConfig{
			APIBase: cfg.GroqBaseURL,
			APIKey:  cfg.GroqAPIKey,
			Model:   cfg.GroqModel,
		})
	}
	if cfg.BedrockAPIKey != "" {
		providers["bedrock"] = backend.NewBedrock(backend.ClientConfig{
			APIBase: cfg.BedrockBaseURL,
			APIKey:  cfg.BedrockAPIKey,
			Model:   cfg.BedrockModel,
		})
	}

	defaultName := strings.ToLower(strings.TrimSpace(cfg.DefaultBackend))
	if _, ok := providers[defaultName]; !ok {
		log.Printf("default backend %q has no API key, falling back to mock", defaultName)
		defaultName = "mock"
	}

	names := make([]string, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}
	log.Printf("text backends: %s (default %s)", strings.Join(names, ", "), defaultName)

	return backend.NewDispatcher(providers, defaultName, cleaner)
}
