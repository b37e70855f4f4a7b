package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/lokutor-ai/callgateway/internal/audio"
)

// CartesiaFallback is the TTSFallbackProvider (C4's HTTP batch path), used
// when the streaming provider stalls past its first-chunk deadline. It
// requests PCM at Cartesia's native 24kHz and resamples down to mu-law
// 8kHz for the telephony link.
type CartesiaFallback struct {
	apiKey     string
	apiURL     string
	voiceID    string
	modelID    string
	httpClient *http.Client
}

func NewCartesiaFallback(apiKey, voiceID, modelID string) *CartesiaFallback {
	if modelID == "" {
		modelID = "sonic"
	}
	return &CartesiaFallback{
		apiKey:     apiKey,
		apiURL:     "https://api.cartesia.ai/v1/tts",
		voiceID:    voiceID,
		modelID:    modelID,
		httpClient: &http.Client{},
	}
}

type cartesiaRequest struct {
	Text         string  `json:"text"`
	VoiceID      string  `json:"voice_id"`
	ModelID      string  `json:"model_id,omitempty"`
	OutputFormat string  `json:"output_format,omitempty"`
	SampleRate   int     `json:"sample_rate,omitempty"`
	Speed        float64 `json:"speed,omitempty"`
}

const cartesiaSampleRate = 24000

// SynthesizeBatch blocks until the full utterance is synthesized, returning
// one mu-law 8kHz byte slice ready for the telephony link.
func (c *CartesiaFallback) SynthesizeBatch(ctx context.Context, text string) ([]byte, error) {
	payload := cartesiaRequest{
		Text:         text,
		VoiceID:      c.voiceID,
		ModelID:      c.modelID,
		OutputFormat: "pcm",
		SampleRate:   cartesiaSampleRate,
		Speed:        1.0,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("cartesia tts error (status %d): %s", resp.StatusCode, string(errBody))
	}

	pcm, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if len(pcm) == 0 {
		return nil, fmt.Errorf("cartesia returned empty audio")
	}

	return audio.PCMToMuLaw(pcm, cartesiaSampleRate), nil
}

func (c *CartesiaFallback) Name() string {
	return "cartesia-fallback"
}
