package transcription

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(ClientConfig{
		Endpoint:   server.URL,
		APIKey:     "test-key",
		MaxRetries: 2,
	}, nil)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	return client, server
}

func TestClientTranscribe(t *testing.T) {
	wavData := []byte("RIFFfake")

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/transcribe" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", got)
		}
		if r.Header.Get("X-Request-ID") == "" {
			t.Error("missing request id header")
		}

		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("not multipart: %v", err)
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("missing file field: %v", err)
		}
		defer file.Close()
		if r.FormValue("language") != "en" {
			t.Errorf("language field = %q", r.FormValue("language"))
		}
		if r.FormValue("min_speakers") != "2" {
			t.Errorf("min_speakers field = %q", r.FormValue("min_speakers"))
		}

		json.NewEncoder(w).Encode(asrResponse{Chunks: []ASRChunk{
			{Text: "hello", Start: 0, End: 1},
		}})
	})

	chunks, err := client.Transcribe(context.Background(), wavData, Options{Language: "en", MinSpeakers: 2})
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}
	if len(chunks) != 1 || chunks[0].Text != "hello" {
		t.Errorf("unexpected chunks: %+v", chunks)
	}

	stats := client.GetStats()
	if stats.TotalRequests != 1 || stats.SuccessRequests != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestClientDiarize(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/diarize" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(diarizeResponse{Spans: []DiarizationSpan{
			{Speaker: "A", Start: 0, End: 5},
		}})
	})

	spans, err := client.Diarize(context.Background(), []byte("RIFFfake"), Options{})
	if err != nil {
		t.Fatalf("Diarize failed: %v", err)
	}
	if len(spans) != 1 || spans[0].Speaker != "A" {
		t.Errorf("unexpected spans: %+v", spans)
	}
}

func TestClientRetriesServerErrors(t *testing.T) {
	attempts := 0
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			http.Error(w, "transient", http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(asrResponse{Chunks: []ASRChunk{{Text: "ok"}}})
	})

	chunks, err := client.Transcribe(context.Background(), []byte("x"), Options{})
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
	if len(chunks) != 1 {
		t.Errorf("unexpected chunks: %+v", chunks)
	}
}

func TestClientDoesNotRetryClientErrors(t *testing.T) {
	attempts := 0
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		attempts++
		http.Error(w, "bad audio", http.StatusBadRequest)
	})

	_, err := client.Transcribe(context.Background(), []byte("x"), Options{})
	if err == nil {
		t.Fatal("expected error for 400 response")
	}
	if attempts != 1 {
		t.Errorf("400 must not retry, got %d attempts", attempts)
	}
	if !strings.Contains(err.Error(), "bad audio") {
		t.Errorf("error should carry the response body, got %v", err)
	}

	stats := client.GetStats()
	if stats.FailedRequests != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestClientContextCancellation(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "transient", http.StatusInternalServerError)
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Transcribe(ctx, []byte("x"), Options{})
	if err == nil {
		t.Fatal("expected error with cancelled context")
	}
}

func TestNewClientValidation(t *testing.T) {
	if _, err := NewClient(ClientConfig{}, nil); err == nil {
		t.Error("expected error for empty endpoint")
	}

	client, err := NewClient(ClientConfig{Endpoint: "http://localhost:9999"}, nil)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	if client.config.MaxConcurrent != 4 {
		t.Errorf("expected default concurrency 4, got %d", client.config.MaxConcurrent)
	}
	if client.config.MaxRetries != 0 {
		t.Errorf("zero retries is a valid setting, got %d", client.config.MaxRetries)
	}
}
