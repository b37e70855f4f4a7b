package tts

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCartesiaFallbackSynthesizeBatch(t *testing.T) {
	pcm := make([]byte, 960) // 20ms of silence at 24kHz/16-bit mono
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req cartesiaRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		if req.Text != "hello there" {
			t.Errorf("expected text 'hello there', got %q", req.Text)
		}
		if r.Header.Get("x-api-key") != "test-key" {
			t.Errorf("expected x-api-key header, got %q", r.Header.Get("x-api-key"))
		}
		w.WriteHeader(http.StatusOK)
		w.Write(pcm)
	}))
	defer server.Close()

	c := NewCartesiaFallback("test-key", "voice-1", "")
	c.apiURL = server.URL

	out, err := c.SynthesizeBatch(context.Background(), "hello there")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) == 0 {
		t.Errorf("expected non-empty mu-law output")
	}
	if c.Name() != "cartesia-fallback" {
		t.Errorf("expected cartesia-fallback, got %s", c.Name())
	}
}

func TestCartesiaFallbackErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("boom"))
	}))
	defer server.Close()

	c := NewCartesiaFallback("test-key", "voice-1", "")
	c.apiURL = server.URL

	_, err := c.SynthesizeBatch(context.Background(), "hello")
	if err == nil {
		t.Fatal("expected error for non-200 status")
	}
}

func TestCartesiaFallbackEmptyAudioErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c := NewCartesiaFallback("test-key", "voice-1", "")
	c.apiURL = server.URL

	_, err := c.SynthesizeBatch(context.Background(), "hello")
	if err == nil {
		t.Fatal("expected error for empty audio body")
	}
}
