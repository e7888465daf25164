package tts

import (
	"context"
	"strings"
	"time"
)

// Result is one synthesized audio chunk. AudioRef is either a playable URL
// (gateway) or an object-storage URL (elevenlabs after upload).
type Result struct {
	AudioRef    string
	ContentType string
	Duration    time.Duration
}

// Provider turns a single sentence into audio. Implementations must be safe
// for concurrent use: the pipeline synthesizes sentences in parallel.
type Provider interface {
	Synthesize(ctx context.Context, text string, voice string) (*Result, error)
}

const wordsPerMinute = 150

// EstimateDuration approximates speech length from word count at a typical
// speaking rate. Used when the provider does not report a real duration.
func EstimateDuration(text string) time.Duration {
	words := len(strings.Fields(text))
	if words == 0 {
		return 0
	}
	seconds := float64(words) * 60.0 / wordsPerMinute
	return time.Duration(seconds * float64(time.Second))
}
