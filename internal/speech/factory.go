package speech

import (
	"fmt"
	"log"
	"strings"
)

// FactoryConfig carries the provider selection and per-provider settings.
type FactoryConfig struct {
	Provider string // auto | google | elevenlabs | mock

	GoogleAPIBase   string
	GoogleAPIKey    string
	GoogleVoiceName string
	GoogleLangCode  string

	ElevenLabsAPIKey    string
	ElevenLabsWSBaseURL string
	ElevenLabsVoiceID   string
	ElevenLabsModelID   string
}

// NewSynthesizer resolves the configured provider, falling back to the mock
// when no credentials are available in auto mode.
func NewSynthesizer(cfg FactoryConfig) (Synthesizer, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if mode == "" {
		mode = "auto"
	}

	newGoogle := func() Synthesizer {
		return NewGoogleProvider(GoogleConfig{
			APIBase:      cfg.GoogleAPIBase,
			APIKey:       cfg.GoogleAPIKey,
			VoiceName:    cfg.GoogleVoiceName,
			LanguageCode: cfg.GoogleLangCode,
		})
	}
	newEleven := func() Synthesizer {
		return NewElevenLabsProvider(ElevenLabsConfig{
			APIKey:    cfg.ElevenLabsAPIKey,
			WSBaseURL: cfg.ElevenLabsWSBaseURL,
			VoiceID:   cfg.ElevenLabsVoiceID,
			ModelID:   cfg.ElevenLabsModelID,
		})
	}

	switch mode {
	case "google":
		if strings.TrimSpace(cfg.GoogleAPIKey) == "" {
			return nil, fmt.Errorf("TTS_PROVIDER=google but GOOGLE_TTS_API_KEY is not set")
		}
		return newGoogle(), nil
	case "elevenlabs":
		if strings.TrimSpace(cfg.ElevenLabsAPIKey) == "" {
			return nil, fmt.Errorf("TTS_PROVIDER=elevenlabs but ELEVENLABS_API_KEY is not set")
		}
		return newEleven(), nil
	case "mock":
		return NewMockSynthesizer(), nil
	case "auto":
		if strings.TrimSpace(cfg.GoogleAPIKey) != "" {
			log.Printf("tts provider: google (%s)", cfg.GoogleVoiceName)
			return newGoogle(), nil
		}
		if strings.TrimSpace(cfg.ElevenLabsAPIKey) != "" {
			log.Printf("tts provider: elevenlabs")
			return newEleven(), nil
		}
		log.Printf("tts provider: mock (no tts credentials configured)")
		return NewMockSynthesizer(), nil
	default:
		return nil, fmt.Errorf("invalid TTS_PROVIDER: %q (expected auto|google|elevenlabs|mock)", cfg.Provider)
	}
}
