package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the companion backend.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	RequestTimeout   time.Duration
	MetricsNamespace string

	BuddyName string

	ReplyBackend   string
	MemoryBackend  string
	SummaryBackend string
	DefaultBackend string

	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string

	GroqAPIKey  string
	GroqBaseURL string
	GroqModel   string

	BedrockAPIKey  string
	BedrockBaseURL string
	BedrockModel   string

	TTSProvider         string
	GoogleTTSAPIKey     string
	GoogleTTSBaseURL    string
	GoogleTTSVoice      string
	GoogleTTSLanguage   string
	ElevenLabsAPIKey    string
	ElevenLabsWSBaseURL string
	ElevenLabsVoice     string
	ElevenLabsModel     string

	HistoryWordLimit int
	DocMaxChars      int

	DocumentsDir string
	PromptsDir   string
	PersonaFile  string

	SummaryCronSpec string

	DatabaseURL string
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:         envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace: envOrDefault("APP_METRICS_NAMESPACE", "nova"),
		BuddyName:        envOrDefault("APP_BUDDY_NAME", "Nova"),
		ReplyBackend:     envOrDefault("APP_REPLY_BACKEND", "openai"),
		MemoryBackend:    envOrDefault("APP_MEMORY_BACKEND", "openai"),
		SummaryBackend:   envOrDefault("APP_SUMMARY_BACKEND", "openai"),
		DefaultBackend:   envOrDefault("APP_DEFAULT_BACKEND", "openai"),
		OpenAIAPIKey:     envTrimmed("OPENAI_API_KEY"),
		OpenAIBaseURL:    envOrDefault("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIModel:      envOrDefault("OPENAI_MODEL", "gpt-4o-mini"),
		GroqAPIKey:       envTrimmed("GROQ_API_KEY"),
		GroqBaseURL:      envOrDefault("GROQ_BASE_URL", "https://api.groq.com/openai/v1"),
		GroqModel:        envOrDefault("GROQ_MODEL", "llama-3.3-70b-versatile"),
		BedrockAPIKey:    envTrimmed("BEDROCK_API_KEY"),
		BedrockBaseURL:   envOrDefault("BEDROCK_BASE_URL", "https://bedrock-runtime.us-east-1.amazonaws.com/openai/v1"),
		BedrockModel:     envOrDefault("BEDROCK_MODEL", "anthropic.claude-3-5-haiku-20241022-v1:0"),
		TTSProvider:      envOrDefault("TTS_PROVIDER", "auto"),
		GoogleTTSAPIKey:  envTrimmed("GOOGLE_TTS_API_KEY"),
		GoogleTTSBaseURL: envOrDefault("GOOGLE_TTS_BASE_URL", "https://texttospeech.googleapis.com/v1"),
		// Journey voices come back as LINEAR16 and get wrapped as WAV.
		GoogleTTSVoice:      envOrDefault("GOOGLE_TTS_VOICE", "en-US-Journey-F"),
		GoogleTTSLanguage:   envOrDefault("GOOGLE_TTS_LANGUAGE", "en-US"),
		ElevenLabsAPIKey:    envTrimmed("ELEVENLABS_API_KEY"),
		ElevenLabsWSBaseURL: envOrDefault("ELEVENLABS_WS_BASE_URL", "wss://api.elevenlabs.io"),
		ElevenLabsVoice:     envOrDefault("ELEVENLABS_TTS_VOICE_ID", "cgSgspJ2msm6clMCkdW9"),
		ElevenLabsModel:     envOrDefault("ELEVENLABS_TTS_MODEL_ID", "eleven_multilingual_v2"),
		HistoryWordLimit:    100,
		DocMaxChars:         5000,
		DocumentsDir:        envOrDefault("APP_DOCUMENTS_DIR", "uploaded_documents"),
		PromptsDir:          envTrimmed("APP_PROMPTS_DIR"),
		PersonaFile:         envTrimmed("APP_PERSONA_FILE"),
		SummaryCronSpec:     envOrDefault("APP_SUMMARY_CRON", "0 */6 * * *"),
		DatabaseURL:         envTrimmed("DATABASE_URL"),
		RequestTimeout:      60 * time.Second,
		ShutdownTimeout:     15 * time.Second,
	}
	var err error
	cfg.RequestTimeout, err = durationFromEnv("APP_REQUEST_TIMEOUT", cfg.RequestTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.HistoryWordLimit, err = intFromEnv("APP_HISTORY_WORD_LIMIT", cfg.HistoryWordLimit)
	if err != nil {
		return Config{}, err
	}
	cfg.DocMaxChars, err = intFromEnv("APP_DOC_MAX_CHARS", cfg.DocMaxChars)
	if err != nil {
		return Config{}, err
	}

	if cfg.RequestTimeout < time.Second {
		return Config{}, fmt.Errorf("APP_REQUEST_TIMEOUT must be at least 1s")
	}
	if cfg.HistoryWordLimit <= 0 {
		return Config{}, fmt.Errorf("APP_HISTORY_WORD_LIMIT must be positive")
	}
	if cfg.DocMaxChars <= 0 {
		return Config{}, fmt.Errorf("APP_DOC_MAX_CHARS must be positive")
	}
	if !knownBackend(cfg.DefaultBackend) {
		return Config{}, fmt.Errorf("APP_DEFAULT_BACKEND %q is not a known backend", cfg.DefaultBackend)
	}

	return cfg, nil
}

func knownBackend(name string) bool {
	switch strings.ToLower(name) {
	case "openai", "groq", "bedrock":
		return true
	}
	return false
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func envTrimmed(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := envTrimmed(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := envTrimmed(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}
