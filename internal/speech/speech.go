// Package speech renders reply text to audio through interchangeable
// text-to-speech providers.
package speech

import (
	"context"
	"strings"
)

// Format tags for the synthesized audio, used as the archive entry extension.
const (
	FormatMP3 = "mp3"
	FormatWAV = "wav"
)

// Synthesizer converts text to audio bytes plus a format tag. The tag is
// decided by the provider's voice-family convention, not reported by the
// remote service.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (audio []byte, format string, err error)
}

// formatForGoogleVoice maps a Google voice name to its delivery format:
// Journey-family voices are linear PCM (wav), everything else mp3.
func formatForGoogleVoice(voiceName string) string {
	if strings.Contains(voiceName, "Journey") {
		return FormatWAV
	}
	return FormatMP3
}
