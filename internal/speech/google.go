package speech

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// GoogleProvider calls the Google Cloud Text-to-Speech REST endpoint.
type GoogleProvider struct {
	apiBase    string
	apiKey     string
	voiceName  string
	langCode   string
	httpClient *http.Client
}

type GoogleConfig struct {
	APIBase      string
	APIKey       string
	VoiceName    string
	LanguageCode string
}

func NewGoogleProvider(cfg GoogleConfig) *GoogleProvider {
	base := strings.TrimRight(strings.TrimSpace(cfg.APIBase), "/")
	if base == "" {
		base = "https://texttospeech.googleapis.com/v1"
	}
	lang := strings.TrimSpace(cfg.LanguageCode)
	if lang == "" {
		lang = "en-US"
	}
	voice := strings.TrimSpace(cfg.VoiceName)
	if voice == "" {
		voice = "en-US-Neural2-F"
	}
	return &GoogleProvider{
		apiBase:   base,
		apiKey:    cfg.APIKey,
		voiceName: voice,
		langCode:  lang,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type googleSynthesizeResponse struct {
	AudioContent string `json:"audioContent"`
}

func (p *GoogleProvider) Synthesize(ctx context.Context, text string) ([]byte, string, error) {
	format := formatForGoogleVoice(p.voiceName)
	encoding := "MP3"
	if format == FormatWAV {
		encoding = "LINEAR16"
	}

	body := map[string]any{
		"input": map[string]string{"text": text},
		"voice": map[string]string{
			"languageCode": p.langCode,
			"name":         p.voiceName,
			"ssmlGender":   "FEMALE",
		},
		"audioConfig": map[string]string{"audioEncoding": encoding},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, "", fmt.Errorf("marshal tts request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.apiBase+"/text:synthesize?key="+p.apiKey, bytes.NewReader(payload))
	if err != nil {
		return nil, "", fmt.Errorf("build tts request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := p.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("tts request: %w", err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, 32<<20))
	if err != nil {
		return nil, "", fmt.Errorf("read tts response: %w", err)
	}
	if res.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("tts http status %d: %s", res.StatusCode, truncate(raw))
	}

	var parsed googleSynthesizeResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, "", fmt.Errorf("parse tts response: %w", err)
	}
	audio, err := base64.StdEncoding.DecodeString(parsed.AudioContent)
	if err != nil {
		return nil, "", fmt.Errorf("decode tts audio: %w", err)
	}
	return audio, format, nil
}

func truncate(raw []byte) string {
	s := strings.TrimSpace(string(raw))
	if len(s) > 300 {
		s = s[:300]
	}
	return s
}
