package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// GatewayProvider calls a self-hosted synthesis gateway that does its own
// storage and returns a playable URL.
type GatewayProvider struct {
	BaseURL string
	Client  *http.Client
}

var _ Provider = &GatewayProvider{}

func NewGatewayProvider(baseURL string) *GatewayProvider {
	return &GatewayProvider{
		BaseURL: baseURL,
		Client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

type gatewaySynthRequest struct {
	Text  string `json:"text"`
	Voice string `json:"voice,omitempty"`
}

type gatewaySynthResponse struct {
	AudioURL    string  `json:"audio_url"`
	ContentType string  `json:"content_type"`
	DurationSec float64 `json:"duration_sec"`
}

func (g *GatewayProvider) Synthesize(ctx context.Context, text string, voice string) (*Result, error) {
	payloadBytes, err := json.Marshal(gatewaySynthRequest{Text: text, Voice: voice})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := g.BaseURL + "/v1/synthesize"
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(payloadBytes))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tts gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tts gateway error: status %d, body: %s", resp.StatusCode, string(bodyBytes))
	}

	var synthResp gatewaySynthResponse
	if err := json.Unmarshal(bodyBytes, &synthResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	if synthResp.AudioURL == "" {
		return nil, fmt.Errorf("tts gateway returned empty audio url")
	}

	contentType := synthResp.ContentType
	if contentType == "" {
		contentType = "audio/mpeg"
	}

	duration := time.Duration(synthResp.DurationSec * float64(time.Second))
	if duration <= 0 {
		duration = EstimateDuration(text)
	}

	return &Result{
		AudioRef:    synthResp.AudioURL,
		ContentType: contentType,
		Duration:    duration,
	}, nil
}
