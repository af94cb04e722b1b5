// Package engine coordinates the reply pipeline: context retrieval, prompt
// rendering, concurrent reply generation and memory extraction, persistence
// and optional speech packaging.
package engine

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/insituate/nova/internal/archive"
	"github.com/insituate/nova/internal/backend"
	"github.com/insituate/nova/internal/config"
	"github.com/insituate/nova/internal/observability"
	"github.com/insituate/nova/internal/prompt"
	"github.com/insituate/nova/internal/speech"
)

// Dispatcher routes completion calls to a named text-generation backend.
type Dispatcher interface {
	Complete(ctx context.Context, name string, req backend.Request) (string, error)
	CompleteStructured(ctx context.Context, name string, req backend.Request) (backend.Extraction, error)
}

// Store is the persistence surface the engine needs.
type Store interface {
	ReadHistory(ctx context.Context, userID string) (string, error)
	AppendTurn(ctx context.Context, userID, role, message string) error
	ReadMemory(ctx context.Context, userID string) (string, error)
	UpdateMemory(ctx context.Context, userID, memory string) error
	ReadSummary(ctx context.Context, userID string) (string, error)
	UpsertSummary(ctx context.Context, userID, summary string) error
}

// DocumentSource supplies the uploaded-document excerpt for a user.
type DocumentSource interface {
	Excerpt(userID string, maxChars int) string
}

// SpeechFilter trims a reply down to the span worth speaking aloud.
type SpeechFilter interface {
	ExtractQuoted(text string) string
}

// ReplyRequest carries one utterance through the pipeline. History is
// optional; when empty the stored conversation log is used.
type ReplyRequest struct {
	UserID    string
	UserName  string
	Utterance string
	History   string
	Character string
}

type Config struct {
	ReplyBackend   string
	MemoryBackend  string
	SummaryBackend string
	RequestTimeout time.Duration
	DocMaxChars    int
}

type Engine struct {
	store      Store
	dispatcher Dispatcher
	renderer   *prompt.Renderer
	documents  DocumentSource
	synth      speech.Synthesizer
	filter     SpeechFilter
	personas   *config.Personas
	metrics    *observability.Metrics
	cfg        Config

	userLocks *keyedMutex
}

func New(store Store, dispatcher Dispatcher, renderer *prompt.Renderer, documents DocumentSource, synth speech.Synthesizer, filter SpeechFilter, personas *config.Personas, metrics *observability.Metrics, cfg Config) *Engine {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 60 * time.Second
	}
	if personas == nil {
		personas, _ = config.LoadPersonas("")
	}
	return &Engine{
		store:      store,
		dispatcher: dispatcher,
		renderer:   renderer,
		documents:  documents,
		synth:      synth,
		filter:     filter,
		personas:   personas,
		metrics:    metrics,
		cfg:        cfg,
		userLocks:  newKeyedMutex(),
	}
}

// retrieved is the per-user context gathered before rendering prompts.
type retrieved struct {
	memory  string
	summary string
	docs    string
	history string
}

// retrieve gathers memory, summary and the document excerpt, degrading each
// to empty on a read fault. History faults are fatal: an empty history is a
// valid value, so a failed read cannot be masked as one.
func (e *Engine) retrieve(ctx context.Context, userID, suppliedHistory string) (retrieved, error) {
	var r retrieved

	if suppliedHistory != "" {
		r.history = suppliedHistory
	} else {
		history, err := e.store.ReadHistory(ctx, userID)
		if err != nil {
			return retrieved{}, fmt.Errorf("read history for %s: %w", userID, err)
		}
		r.history = history
	}

	memory, err := e.store.ReadMemory(ctx, userID)
	if err != nil {
		log.Printf("read memory for %s failed, continuing without: %v", userID, err)
	} else {
		r.memory = memory
	}

	summary, err := e.store.ReadSummary(ctx, userID)
	if err != nil {
		log.Printf("read summary for %s failed, continuing without: %v", userID, err)
	} else {
		r.summary = summary
	}

	if e.documents != nil {
		r.docs = e.documents.Excerpt(userID, e.cfg.DocMaxChars)
	}
	return r, nil
}

func (e *Engine) preamble(req ReplyRequest) string {
	if persona, ok := e.personas.Lookup(req.Character); ok && persona.Preamble != "" {
		return e.renderer.PreambleFrom(persona.Preamble, req.UserName)
	}
	return e.renderer.Preamble(req.UserName)
}

// Reply runs the full text pipeline for one utterance and returns the cleaned
// reply. Generation and memory extraction run concurrently and both must
// succeed.
func (e *Engine) Reply(ctx context.Context, req ReplyRequest) (string, error) {
	if req.Utterance == "" {
		return "", fmt.Errorf("empty utterance")
	}
	ctx, cancel := context.WithTimeout(ctx, e.cfg.RequestTimeout)
	defer cancel()

	if e.metrics != nil {
		e.metrics.ActiveRequests.Inc()
		defer e.metrics.ActiveRequests.Dec()
	}
	started := time.Now()

	e.userLocks.Lock(req.UserID)
	defer e.userLocks.Unlock(req.UserID)

	stageStart := time.Now()
	r, err := e.retrieve(ctx, req.UserID, req.History)
	if err != nil {
		e.finish("error", started)
		return "", err
	}
	e.observe(observability.StageContextRetrieve, stageStart)

	replyReq := backend.Request{
		{Role: "system", Content: e.preamble(req)},
		{Role: "user", Content: e.renderer.Final(req.UserName, req.Utterance, prompt.ContextInputs{
			Memory:          r.memory,
			Summary:         r.summary,
			DocumentExcerpt: r.docs,
			History:         r.history,
		})},
	}
	memoryReq := backend.Request{
		{Role: "system", Content: e.renderer.MemoryPreamble()},
		{Role: "user", Content: e.renderer.MemoryPrompt(req.UserName, req.Utterance, r.history)},
	}

	var (
		replyText  string
		extraction backend.Extraction
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		begin := time.Now()
		text, err := e.dispatcher.Complete(gctx, e.cfg.ReplyBackend, replyReq)
		if err != nil {
			e.countBackendError(e.cfg.ReplyBackend, "reply")
			return fmt.Errorf("reply generation: %w", err)
		}
		replyText = text
		e.observe(observability.StageReplyGenerate, begin)
		return nil
	})
	g.Go(func() error {
		begin := time.Now()
		ex, err := e.dispatcher.CompleteStructured(gctx, e.cfg.MemoryBackend, memoryReq)
		if err != nil {
			e.countBackendError(e.cfg.MemoryBackend, "memory")
			e.countExtraction("error")
			return fmt.Errorf("memory extraction: %w", err)
		}
		extraction = ex
		if ex.MemoryFound {
			e.countExtraction("found")
		} else {
			e.countExtraction("none")
		}
		e.observe(observability.StageMemoryExtract, begin)
		return nil
	})
	if err := g.Wait(); err != nil {
		e.finish("error", started)
		return "", err
	}

	stageStart = time.Now()
	if err := e.persist(ctx, req, replyText, extraction); err != nil {
		// The reply was already computed; surface the write fault loudly
		// but still hand the text back.
		log.Printf("persistence after reply for %s failed: %v", req.UserID, err)
		e.finish("persist_error", started)
		return replyText, nil
	}
	e.observe(observability.StagePersist, stageStart)

	e.finish("ok", started)
	return replyText, nil
}

// persist appends the user turn, then the agent turn, then upserts memory
// when the extraction found one.
func (e *Engine) persist(ctx context.Context, req ReplyRequest, replyText string, ex backend.Extraction) error {
	if err := e.store.AppendTurn(ctx, req.UserID, "user", req.Utterance); err != nil {
		return fmt.Errorf("append user turn: %w", err)
	}
	if err := e.store.AppendTurn(ctx, req.UserID, "agent", replyText); err != nil {
		return fmt.Errorf("append agent turn: %w", err)
	}
	if ex.MemoryFound {
		if err := e.store.UpdateMemory(ctx, req.UserID, ex.Memory); err != nil {
			return fmt.Errorf("update memory: %w", err)
		}
	}
	return nil
}

// ReplyWithAudio runs Reply, synthesizes speech for the speakable span of the
// text and bundles both into a zip stream.
func (e *Engine) ReplyWithAudio(ctx context.Context, req ReplyRequest) (*bytes.Reader, error) {
	replyText, err := e.Reply(ctx, req)
	if err != nil {
		return nil, err
	}

	speakable := replyText
	if e.filter != nil {
		speakable = e.filter.ExtractQuoted(replyText)
	}

	begin := time.Now()
	audio, format, err := e.synth.Synthesize(ctx, speakable)
	if err != nil {
		return nil, fmt.Errorf("synthesize reply: %w", err)
	}
	e.observe(observability.StageSynthesize, begin)

	return archive.Build(replyText, audio, format)
}

// RefreshSummary regenerates the stored running summary from the full
// conversation log. Called by the scheduler, not the reply hot path.
func (e *Engine) RefreshSummary(ctx context.Context, userID string) error {
	history, err := e.store.ReadHistory(ctx, userID)
	if err != nil {
		return fmt.Errorf("read history for %s: %w", userID, err)
	}
	if history == "" {
		return nil
	}

	req := backend.Request{
		{Role: "user", Content: e.renderer.SummaryPrompt(history)},
	}
	summary, err := e.dispatcher.Complete(ctx, e.cfg.SummaryBackend, req)
	if err != nil {
		e.countBackendError(e.cfg.SummaryBackend, "summary")
		return fmt.Errorf("summarize %s: %w", userID, err)
	}
	if err := e.store.UpsertSummary(ctx, userID, summary); err != nil {
		return fmt.Errorf("store summary for %s: %w", userID, err)
	}
	return nil
}

func (e *Engine) observe(stage string, begin time.Time) {
	if e.metrics != nil {
		e.metrics.ObserveStage(stage, time.Since(begin))
	}
}

func (e *Engine) finish(outcome string, started time.Time) {
	if e.metrics == nil {
		return
	}
	e.metrics.RepliesTotal.WithLabelValues(outcome).Inc()
	e.metrics.ObserveStage(observability.StageRequestTotal, time.Since(started))
}

func (e *Engine) countBackendError(name, mode string) {
	if e.metrics != nil {
		e.metrics.BackendErrors.WithLabelValues(name, mode).Inc()
	}
}

func (e *Engine) countExtraction(outcome string) {
	if e.metrics != nil {
		e.metrics.MemoryExtractions.WithLabelValues(outcome).Inc()
	}
}
