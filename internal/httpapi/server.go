package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/insituate/nova/internal/config"
	"github.com/insituate/nova/internal/engine"
	"github.com/insituate/nova/internal/observability"
	"github.com/insituate/nova/internal/store"
)

// Engine is the reply pipeline the server fronts.
type Engine interface {
	Reply(ctx context.Context, req engine.ReplyRequest) (string, error)
	ReplyWithAudio(ctx context.Context, req engine.ReplyRequest) (*bytes.Reader, error)
}

// DocumentSink stores uploaded documents for later excerpting.
type DocumentSink interface {
	Save(userID, filename string, contents []byte) error
}

type Server struct {
	cfg       config.Config
	engine    Engine
	store     store.Store
	documents DocumentSink
	metrics   *observability.Metrics
}

func New(cfg config.Config, eng Engine, st store.Store, documents DocumentSink, metrics *observability.Metrics) *Server {
	return &Server{
		cfg:       cfg,
		engine:    eng,
		store:     st,
		documents: documents,
		metrics:   metrics,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})
	r.Get("/v1/perf/latency", s.handlePerfLatency)

	r.Post("/sign_up", s.handleSignUp)
	r.Post("/login", s.handleLogin)
	r.Get("/users/{id}", s.handleGetUser)
	r.Put("/users/{id}", s.handleUpdateUser)
	r.Delete("/users/{id}", s.handleDeleteUser)

	r.Post("/generate_reply", s.handleGenerateReply)
	r.Post("/generate_audio", s.handleGenerateAudio)
	r.Post("/upload_document/{user_id}", s.handleUploadDocument)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

type replyRequest struct {
	UserID    string `json:"user_id"`
	UserName  string `json:"user_name"`
	Utterance string `json:"user_utterance"`
	History   string `json:"history"`
	Character string `json:"character"`
}

func (req *replyRequest) validate() (engine.ReplyRequest, string) {
	if strings.TrimSpace(req.Utterance) == "" {
		return engine.ReplyRequest{}, "user_utterance is required"
	}
	if strings.TrimSpace(req.UserID) == "" {
		return engine.ReplyRequest{}, "user_id is required"
	}
	name := strings.TrimSpace(req.UserName)
	if name == "" {
		name = "friend"
	}
	return engine.ReplyRequest{
		UserID:    strings.TrimSpace(req.UserID),
		UserName:  name,
		Utterance: req.Utterance,
		History:   req.History,
		Character: req.Character,
	}, ""
}

func (s *Server) handleGenerateReply(w http.ResponseWriter, r *http.Request) {
	var req replyRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	engReq, problem := req.validate()
	if problem != "" {
		respondError(w, http.StatusBadRequest, "invalid_request", problem)
		return
	}

	text, err := s.engine.Reply(r.Context(), engReq)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "reply_failed", "could not generate a reply")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"text": text})
}

func (s *Server) handleGenerateAudio(w http.ResponseWriter, r *http.Request) {
	var req replyRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	engReq, problem := req.validate()
	if problem != "" {
		respondError(w, http.StatusBadRequest, "invalid_request", problem)
		return
	}

	stream, err := s.engine.ReplyWithAudio(r.Context(), engReq)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "reply_failed", "could not generate a spoken reply")
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="reply.zip"`)
	w.WriteHeader(http.StatusOK)
	_, _ = stream.WriteTo(w)
}

func (s *Server) handleUploadDocument(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(chi.URLParam(r, "user_id"))
	if userID == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "missing user id")
		return
	}

	// 10 MiB cap keeps a single upload from buffering unbounded memory.
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_upload", err.Error())
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_upload", "form field \"file\" is required")
		return
	}
	defer file.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(file); err != nil {
		respondError(w, http.StatusInternalServerError, "upload_failed", "could not read uploaded file")
		return
	}
	if err := s.documents.Save(userID, header.Filename, buf.Bytes()); err != nil {
		respondError(w, http.StatusInternalServerError, "upload_failed", "could not store uploaded file")
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{
		"user_id":  userID,
		"filename": header.Filename,
	})
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(out); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "eof") {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}
