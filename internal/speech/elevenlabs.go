package speech

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
)

// ElevenLabsProvider synthesizes speech over the ElevenLabs stream-input
// websocket and collects the streamed chunks into one audio buffer.
type ElevenLabsProvider struct {
	cfg ElevenLabsConfig
}

type ElevenLabsConfig struct {
	APIKey       string
	WSBaseURL    string
	VoiceID      string
	ModelID      string
	OutputFormat string
}

func NewElevenLabsProvider(cfg ElevenLabsConfig) *ElevenLabsProvider {
	if strings.TrimSpace(cfg.WSBaseURL) == "" {
		cfg.WSBaseURL = "wss://api.elevenlabs.io"
	}
	if strings.TrimSpace(cfg.ModelID) == "" {
		cfg.ModelID = "eleven_multilingual_v2"
	}
	if strings.TrimSpace(cfg.OutputFormat) == "" {
		cfg.OutputFormat = "mp3_44100_128"
	}
	return &ElevenLabsProvider{cfg: cfg}
}

func (p *ElevenLabsProvider) Synthesize(ctx context.Context, text string) ([]byte, string, error) {
	if strings.TrimSpace(p.cfg.VoiceID) == "" {
		return nil, "", fmt.Errorf("voice_id is required")
	}

	u, err := url.Parse(strings.TrimRight(p.cfg.WSBaseURL, "/") +
		"/v1/text-to-speech/" + url.PathEscape(p.cfg.VoiceID) + "/stream-input")
	if err != nil {
		return nil, "", err
	}
	q := u.Query()
	q.Set("model_id", p.cfg.ModelID)
	q.Set("output_format", p.cfg.OutputFormat)
	q.Set("auto_mode", "true")
	u.RawQuery = q.Encode()

	headers := http.Header{}
	headers.Set("xi-api-key", p.cfg.APIKey)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), headers)
	if err != nil {
		return nil, "", fmt.Errorf("dial tts websocket: %w", err)
	}
	defer conn.Close()

	// Prime the stream, send the whole reply, then close input.
	for _, payload := range []map[string]any{
		{"text": " "},
		{"text": text, "try_trigger_generation": true},
		{"text": ""},
	} {
		if err := conn.WriteJSON(payload); err != nil {
			return nil, "", fmt.Errorf("write tts message: %w", err)
		}
	}

	var audio []byte
	for {
		if deadline, ok := ctx.Deadline(); ok {
			_ = conn.SetReadDeadline(deadline)
		}
		_, data, err := conn.ReadMessage()
		if err != nil {
			// The server closes the socket after the final chunk; audio in
			// hand means a complete stream.
			if len(audio) > 0 {
				return audio, FormatMP3, nil
			}
			return nil, "", fmt.Errorf("read tts stream: %w", err)
		}

		var raw map[string]any
		if err := json.Unmarshal(data, &raw); err != nil {
			continue
		}
		if errMsg, _ := raw["error"].(string); errMsg != "" {
			return nil, "", fmt.Errorf("tts stream error: %s", errMsg)
		}
		if chunk, _ := raw["audio"].(string); chunk != "" {
			decoded, err := base64.StdEncoding.DecodeString(chunk)
			if err != nil {
				return nil, "", fmt.Errorf("decode tts chunk: %w", err)
			}
			audio = append(audio, decoded...)
		}
		if final, _ := raw["isFinal"].(bool); final {
			return audio, FormatMP3, nil
		}
		if final, _ := raw["is_final"].(bool); final {
			return audio, FormatMP3, nil
		}
	}
}
