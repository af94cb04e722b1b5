package httpapi

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/insituate/nova/internal/archive"
	"github.com/insituate/nova/internal/config"
	"github.com/insituate/nova/internal/engine"
	"github.com/insituate/nova/internal/store"
)

type mockEngine struct {
	text    string
	err     error
	lastReq engine.ReplyRequest
}

func (m *mockEngine) Reply(_ context.Context, req engine.ReplyRequest) (string, error) {
	m.lastReq = req
	if m.err != nil {
		return "", m.err
	}
	return m.text, nil
}

func (m *mockEngine) ReplyWithAudio(_ context.Context, req engine.ReplyRequest) (*bytes.Reader, error) {
	m.lastReq = req
	if m.err != nil {
		return nil, m.err
	}
	return archive.Build(m.text, []byte("fake-audio"), "mp3")
}

type mockDocs struct {
	userID   string
	filename string
	contents []byte
	err      error
}

func (d *mockDocs) Save(userID, filename string, contents []byte) error {
	d.userID, d.filename, d.contents = userID, filename, contents
	return d.err
}

func newTestServer(t *testing.T, eng Engine, docs DocumentSink) *httptest.Server {
	t.Helper()
	srv := New(config.Config{BuddyName: "Nova"}, eng, store.NewInMemoryStore(), docs, nil)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func TestSignUpLoginRoundTrip(t *testing.T) {
	ts := newTestServer(t, &mockEngine{}, &mockDocs{})

	resp := postJSON(t, ts.URL+"/sign_up", signUpRequest{Name: "Ada", Email: "ada@example.com", Password: "hunter2"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("sign_up status = %d, want 201", resp.StatusCode)
	}
	var created store.User
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode sign_up response: %v", err)
	}
	if created.ID == "" || created.Email != "ada@example.com" {
		t.Fatalf("created user = %+v", created)
	}

	t.Run("login with right password", func(t *testing.T) {
		resp := postJSON(t, ts.URL+"/login", loginRequest{Email: "Ada@Example.com", Password: "hunter2"})
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("login status = %d, want 200", resp.StatusCode)
		}
	})

	t.Run("login with wrong password", func(t *testing.T) {
		resp := postJSON(t, ts.URL+"/login", loginRequest{Email: "ada@example.com", Password: "nope"})
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("login status = %d, want 401", resp.StatusCode)
		}
	})

	t.Run("duplicate email", func(t *testing.T) {
		resp := postJSON(t, ts.URL+"/sign_up", signUpRequest{Email: "ada@example.com", Password: "again"})
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusConflict {
			t.Fatalf("sign_up status = %d, want 409", resp.StatusCode)
		}
	})
}

func TestGetUnknownUser(t *testing.T) {
	ts := newTestServer(t, &mockEngine{}, &mockDocs{})
	resp, err := http.Get(ts.URL + "/users/user_missing")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestGenerateReply(t *testing.T) {
	eng := &mockEngine{text: "Good to see you!"}
	ts := newTestServer(t, eng, &mockDocs{})

	resp := postJSON(t, ts.URL+"/generate_reply", replyRequest{
		UserID:    "user_1",
		UserName:  "Ada",
		Utterance: "hello",
		Character: "pirate",
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body["text"] != "Good to see you!" {
		t.Fatalf("text = %q", body["text"])
	}
	if eng.lastReq.Character != "pirate" {
		t.Fatalf("character = %q, want pass-through", eng.lastReq.Character)
	}
}

func TestGenerateReplyValidation(t *testing.T) {
	cases := []struct {
		name string
		req  replyRequest
	}{
		{"missing utterance", replyRequest{UserID: "u"}},
		{"missing user id", replyRequest{Utterance: "hi"}},
	}
	ts := newTestServer(t, &mockEngine{}, &mockDocs{})
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := postJSON(t, ts.URL+"/generate_reply", tc.req)
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", resp.StatusCode)
			}
		})
	}
}

func TestGenerateReplyEngineFault(t *testing.T) {
	ts := newTestServer(t, &mockEngine{err: errors.New("backend down")}, &mockDocs{})
	resp := postJSON(t, ts.URL+"/generate_reply", replyRequest{UserID: "u", Utterance: "hi"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", resp.StatusCode)
	}
}

func TestGenerateAudioStreamsZip(t *testing.T) {
	ts := newTestServer(t, &mockEngine{text: "Hi!"}, &mockDocs{})

	resp := postJSON(t, ts.URL+"/generate_audio", replyRequest{UserID: "u", Utterance: "hi"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/zip" {
		t.Fatalf("Content-Type = %q, want application/zip", ct)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		t.Fatalf("read body: %v", err)
	}
	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("body is not a zip: %v", err)
	}
	if len(zr.File) != 2 {
		t.Fatalf("archive has %d entries, want 2", len(zr.File))
	}
}

func TestUploadDocument(t *testing.T) {
	docs := &mockDocs{}
	ts := newTestServer(t, &mockEngine{}, docs)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "notes.txt")
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	if _, err := fw.Write([]byte("hiking notes")); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	mw.Close()

	resp, err := http.Post(ts.URL+"/upload_document/user_9", mw.FormDataContentType(), &body)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}
	if docs.userID != "user_9" || docs.filename != "notes.txt" || string(docs.contents) != "hiking notes" {
		t.Fatalf("saved = (%q, %q, %q)", docs.userID, docs.filename, docs.contents)
	}
}

func TestUploadDocumentRequiresFileField(t *testing.T) {
	ts := newTestServer(t, &mockEngine{}, &mockDocs{})

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	_ = mw.WriteField("other", "value")
	mw.Close()

	resp, err := http.Post(ts.URL+"/upload_document/user_9", mw.FormDataContentType(), &body)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t, &mockEngine{}, &mockDocs{})
	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var payload map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload["status"] != "ok" {
		t.Fatalf("status field = %v", payload["status"])
	}
}
