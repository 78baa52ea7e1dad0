package transcription

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// ModelManager owns the lifecycle of the expensive ASR and diarization
// models. It is injected into the Transcriber rather than hidden behind a
// global: the transcriber loads the models at job start and unloads them on
// every exit path. Caching models across jobs is a policy decision for the
// owner of the manager, not for the transcriber.
type ModelManager interface {
	// Load makes the models ready to serve. Safe to call when already loaded.
	Load(ctx context.Context) error
	// Unload releases model memory. Safe to call when not loaded.
	Unload()
}

// RemoteModelManager controls model residency on the transcription service
// via its /models/load and /models/unload routes.
type RemoteModelManager struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client

	mu     sync.Mutex
	loaded bool
}

// NewRemoteModelManager creates a model manager for the given service
// endpoint.
func NewRemoteModelManager(endpoint, apiKey string, timeout time.Duration) (*RemoteModelManager, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("endpoint cannot be empty")
	}
	if timeout <= 0 {
		timeout = 300 * time.Second // model loading can take minutes
	}
	return &RemoteModelManager{
		endpoint:   endpoint,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// Load implements ModelManager.
func (m *RemoteModelManager) Load(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.loaded {
		return nil
	}
	if err := m.post(ctx, "/models/load"); err != nil {
		return fmt.Errorf("load models: %w", err)
	}
	m.loaded = true
	return nil
}

// Unload implements ModelManager. Errors are swallowed: unload runs on
// failure paths where the original error must win.
func (m *RemoteModelManager) Unload() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.loaded {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	_ = m.post(ctx, "/models/unload")
	m.loaded = false
}

func (m *RemoteModelManager) post(ctx context.Context, route string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint+route, nil)
	if err != nil {
		return err
	}
	if m.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+m.apiKey)
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("HTTP error %d", resp.StatusCode)
	}
	return nil
}

// NoopModelManager satisfies ModelManager for backends without an explicit
// model lifecycle.
type NoopModelManager struct{}

func (NoopModelManager) Load(context.Context) error { return nil }
func (NoopModelManager) Unload()                    {}
