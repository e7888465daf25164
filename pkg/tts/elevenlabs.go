package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"voice-journal-be/pkg/storage"
)

// ElevenLabsProvider synthesizes through the ElevenLabs API. The API returns
// raw audio bytes, so the provider uploads them to object storage and hands
// back the public URL.
type ElevenLabsProvider struct {
	APIKey  string
	Storage *storage.Client
	Client  *http.Client
}

var _ Provider = &ElevenLabsProvider{}

func NewElevenLabsProvider(apiKey string, store *storage.Client) *ElevenLabsProvider {
	return &ElevenLabsProvider{
		APIKey:  apiKey,
		Storage: store,
		Client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

type elevenLabsRequest struct {
	Text          string             `json:"text"`
	ModelID       string             `json:"model_id"`
	VoiceSettings elevenLabsSettings `json:"voice_settings"`
}

type elevenLabsSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

func (e *ElevenLabsProvider) Synthesize(ctx context.Context, text string, voice string) (*Result, error) {
	payloadBytes, err := json.Marshal(elevenLabsRequest{
		Text:    text,
		ModelID: "eleven_turbo_v2_5",
		VoiceSettings: elevenLabsSettings{
			Stability:       0.5,
			SimilarityBoost: 0.75,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("https://api.elevenlabs.io/v1/text-to-speech/%s", voice)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(payloadBytes))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", e.APIKey)
	req.Header.Set("Accept", "audio/mpeg")

	resp, err := e.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("elevenlabs error: status %d, body: %s", resp.StatusCode, string(bodyBytes))
	}

	audioBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read audio: %w", err)
	}

	key := fmt.Sprintf("tts/%s.mp3", uuid.New().String())
	audioURL, err := e.Storage.Upload(ctx, key, audioBytes, "audio/mpeg")
	if err != nil {
		return nil, fmt.Errorf("upload audio: %w", err)
	}

	return &Result{
		AudioRef:    audioURL,
		ContentType: "audio/mpeg",
		Duration:    EstimateDuration(text),
	}, nil
}
