package engine

import (
	"archive/zip"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/insituate/nova/internal/backend"
	"github.com/insituate/nova/internal/prompt"
	"github.com/insituate/nova/internal/reply"
	"github.com/insituate/nova/internal/speech"
	"github.com/insituate/nova/internal/store"
)

type faultStore struct {
	Store
	historyErr error
	memoryErr  error
	summaryErr error
	appendErr  error
}

func (s *faultStore) ReadHistory(ctx context.Context, userID string) (string, error) {
	if s.historyErr != nil {
		return "", s.historyErr
	}
	return s.Store.ReadHistory(ctx, userID)
}

func (s *faultStore) ReadMemory(ctx context.Context, userID string) (string, error) {
	if s.memoryErr != nil {
		return "", s.memoryErr
	}
	return s.Store.ReadMemory(ctx, userID)
}

func (s *faultStore) ReadSummary(ctx context.Context, userID string) (string, error) {
	if s.summaryErr != nil {
		return "", s.summaryErr
	}
	return s.Store.ReadSummary(ctx, userID)
}

func (s *faultStore) AppendTurn(ctx context.Context, userID, role, message string) error {
	if s.appendErr != nil {
		return s.appendErr
	}
	return s.Store.AppendTurn(ctx, userID, role, message)
}

type stubDocs struct{ excerpt string }

func (d *stubDocs) Excerpt(string, int) string { return d.excerpt }

func newTestEngine(st Store, completer *backend.MockCompleter, synth *speech.MockSynthesizer) *Engine {
	cleaner := reply.NewCleaner("Nova")
	dispatcher := backend.NewDispatcher(map[string]backend.Completer{"openai": completer}, "openai", cleaner)
	renderer := prompt.NewRenderer(prompt.DefaultTemplates(), "Nova", 100)
	return New(st, dispatcher, renderer, &stubDocs{}, synth, cleaner, nil, nil, Config{
		ReplyBackend:   "openai",
		MemoryBackend:  "openai",
		SummaryBackend: "openai",
		RequestTimeout: 5 * time.Second,
		DocMaxChars:    5000,
	})
}

func TestReplyPersistsTurnsAndMemory(t *testing.T) {
	st := store.NewInMemoryStore()
	completer := backend.NewMockCompleter()
	completer.Reply = "Nova: That sounds amazing! 😊"
	completer.Extracted = backend.Extraction{MemoryFound: true, Memory: "User enjoys hiking"}

	eng := newTestEngine(st, completer, speech.NewMockSynthesizer())
	got, err := eng.Reply(context.Background(), ReplyRequest{
		UserID:    "user_1",
		UserName:  "Ada",
		Utterance: "I love hiking",
	})
	if err != nil {
		t.Fatalf("Reply() error = %v", err)
	}
	if got != "That sounds amazing!" {
		t.Fatalf("Reply() = %q, want cleaned text", got)
	}

	turns := st.Turns("user_1")
	if len(turns) != 2 {
		t.Fatalf("persisted %d turns, want 2", len(turns))
	}
	if turns[0].Role != "user" || turns[0].Message != "I love hiking" {
		t.Fatalf("first turn = %+v, want the user utterance", turns[0])
	}
	if turns[1].Role != "agent" || turns[1].Message != "That sounds amazing!" {
		t.Fatalf("second turn = %+v, want the cleaned agent reply", turns[1])
	}

	memory, err := st.ReadMemory(context.Background(), "user_1")
	if err != nil {
		t.Fatalf("ReadMemory() error = %v", err)
	}
	if memory != "User enjoys hiking" {
		t.Fatalf("stored memory = %q", memory)
	}
}

func TestReplyMemoryNotFoundSkipsWrite(t *testing.T) {
	st := store.NewInMemoryStore()
	completer := backend.NewMockCompleter()
	completer.Extracted = backend.Extraction{MemoryFound: false, Memory: "should be ignored"}

	eng := newTestEngine(st, completer, speech.NewMockSynthesizer())
	if _, err := eng.Reply(context.Background(), ReplyRequest{UserID: "u", UserName: "Ada", Utterance: "hi"}); err != nil {
		t.Fatalf("Reply() error = %v", err)
	}

	memory, _ := st.ReadMemory(context.Background(), "u")
	if memory != "" {
		t.Fatalf("memory = %q, want no write when nothing was found", memory)
	}
}

func TestReplyFailsWhenMemoryBranchFails(t *testing.T) {
	st := store.NewInMemoryStore()
	completer := backend.NewMockCompleter()
	extractErr := errors.New("extraction backend down")
	completer.ExtractErr = extractErr

	eng := newTestEngine(st, completer, speech.NewMockSynthesizer())
	_, err := eng.Reply(context.Background(), ReplyRequest{UserID: "u", UserName: "Ada", Utterance: "hi"})
	if !errors.Is(err, extractErr) {
		t.Fatalf("Reply() error = %v, want wrapped extraction fault", err)
	}
	if got := len(st.Turns("u")); got != 0 {
		t.Fatalf("persisted %d turns after failed join, want 0", got)
	}
}

func TestReplyFailsWhenGenerationFails(t *testing.T) {
	st := store.NewInMemoryStore()
	completer := backend.NewMockCompleter()
	replyErr := errors.New("reply backend down")
	completer.ReplyErr = replyErr

	eng := newTestEngine(st, completer, speech.NewMockSynthesizer())
	if _, err := eng.Reply(context.Background(), ReplyRequest{UserID: "u", UserName: "Ada", Utterance: "hi"}); !errors.Is(err, replyErr) {
		t.Fatalf("Reply() error = %v, want wrapped generation fault", err)
	}
}

func TestReplyHistoryReadFaultIsFatal(t *testing.T) {
	histErr := errors.New("history table gone")
	st := &faultStore{Store: store.NewInMemoryStore(), historyErr: histErr}

	eng := newTestEngine(st, backend.NewMockCompleter(), speech.NewMockSynthesizer())
	if _, err := eng.Reply(context.Background(), ReplyRequest{UserID: "u", UserName: "Ada", Utterance: "hi"}); !errors.Is(err, histErr) {
		t.Fatalf("Reply() error = %v, want history fault", err)
	}
}

func TestReplyMemoryAndSummaryFaultsDegrade(t *testing.T) {
	st := &faultStore{
		Store:      store.NewInMemoryStore(),
		memoryErr:  errors.New("memory read failed"),
		summaryErr: errors.New("summary read failed"),
	}

	eng := newTestEngine(st, backend.NewMockCompleter(), speech.NewMockSynthesizer())
	if _, err := eng.Reply(context.Background(), ReplyRequest{UserID: "u", UserName: "Ada", Utterance: "hi"}); err != nil {
		t.Fatalf("Reply() error = %v, want degraded success", err)
	}
}

func TestReplyReturnsTextDespitePersistFault(t *testing.T) {
	st := &faultStore{Store: store.NewInMemoryStore(), appendErr: errors.New("disk full")}
	completer := backend.NewMockCompleter()
	completer.Reply = "Still here."

	eng := newTestEngine(st, completer, speech.NewMockSynthesizer())
	got, err := eng.Reply(context.Background(), ReplyRequest{UserID: "u", UserName: "Ada", Utterance: "hi"})
	if err != nil {
		t.Fatalf("Reply() error = %v, want reply despite write fault", err)
	}
	if got != "Still here." {
		t.Fatalf("Reply() = %q", got)
	}
}

func TestReplyRejectsEmptyUtterance(t *testing.T) {
	eng := newTestEngine(store.NewInMemoryStore(), backend.NewMockCompleter(), speech.NewMockSynthesizer())
	if _, err := eng.Reply(context.Background(), ReplyRequest{UserID: "u", UserName: "Ada"}); err == nil {
		t.Fatal("Reply() accepted an empty utterance")
	}
}

func TestReplyUsesSuppliedHistory(t *testing.T) {
	st := store.NewInMemoryStore()
	completer := backend.NewMockCompleter()

	eng := newTestEngine(st, completer, speech.NewMockSynthesizer())
	if _, err := eng.Reply(context.Background(), ReplyRequest{
		UserID:    "u",
		UserName:  "Ada",
		Utterance: "what did I just say?",
		History:   "user: the sky is teal today",
	}); err != nil {
		t.Fatalf("Reply() error = %v", err)
	}

	var sawHistory bool
	for _, msg := range completer.LastRequest {
		if strings.Contains(msg.Content, "the sky is teal today") {
			sawHistory = true
		}
	}
	if !sawHistory {
		t.Fatal("supplied history never reached a backend prompt")
	}
}

func TestReplyWithAudioBundlesBothEntries(t *testing.T) {
	st := store.NewInMemoryStore()
	completer := backend.NewMockCompleter()
	completer.Reply = `"Hi there!" (smiles warmly)`
	synth := speech.NewMockSynthesizer()
	synth.Audio = []byte("fake-mp3")

	eng := newTestEngine(st, completer, synth)
	stream, err := eng.ReplyWithAudio(context.Background(), ReplyRequest{UserID: "u", UserName: "Ada", Utterance: "hi"})
	if err != nil {
		t.Fatalf("ReplyWithAudio() error = %v", err)
	}

	if synth.LastText != "Hi there!" {
		t.Fatalf("synthesized %q, want the quoted span only", synth.LastText)
	}

	zr, err := zip.NewReader(stream, stream.Size())
	if err != nil {
		t.Fatalf("zip.NewReader() error = %v", err)
	}
	if len(zr.File) != 2 {
		t.Fatalf("archive has %d entries, want 2", len(zr.File))
	}
	names := map[string]bool{}
	for _, f := range zr.File {
		names[f.Name] = true
	}
	if !names["reply.json"] || !names["audio.mp3"] {
		t.Fatalf("archive entries = %v", names)
	}
}

func TestReplyWithAudioSynthesisFaultIsFatal(t *testing.T) {
	synth := speech.NewMockSynthesizer()
	synth.Err = errors.New("voice service down")

	eng := newTestEngine(store.NewInMemoryStore(), backend.NewMockCompleter(), synth)
	if _, err := eng.ReplyWithAudio(context.Background(), ReplyRequest{UserID: "u", UserName: "Ada", Utterance: "hi"}); err == nil {
		t.Fatal("ReplyWithAudio() ignored a synthesis fault")
	}
}

func TestRefreshSummary(t *testing.T) {
	ctx := context.Background()
	st := store.NewInMemoryStore()
	if err := st.AppendTurn(ctx, "u", "user", "long day at the observatory"); err != nil {
		t.Fatalf("AppendTurn() error = %v", err)
	}
	completer := backend.NewMockCompleter()
	completer.Reply = "Ada works at an observatory."

	eng := newTestEngine(st, completer, speech.NewMockSynthesizer())
	if err := eng.RefreshSummary(ctx, "u"); err != nil {
		t.Fatalf("RefreshSummary() error = %v", err)
	}

	summary, _ := st.ReadSummary(ctx, "u")
	if summary != "Ada works at an observatory." {
		t.Fatalf("stored summary = %q", summary)
	}
}

func TestRefreshSummarySkipsEmptyHistory(t *testing.T) {
	completer := backend.NewMockCompleter()
	eng := newTestEngine(store.NewInMemoryStore(), completer, speech.NewMockSynthesizer())
	if err := eng.RefreshSummary(context.Background(), "nobody"); err != nil {
		t.Fatalf("RefreshSummary() error = %v", err)
	}
	if completer.CompleteCalls != 0 {
		t.Fatalf("summary backend called %d times for empty history, want 0", completer.CompleteCalls)
	}
}
