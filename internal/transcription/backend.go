package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/fankto/EchoQuest-sub000/internal/metrics"
)

// Recognizer produces timestamped text chunks from a mono WAV buffer.
type Recognizer interface {
	Transcribe(ctx context.Context, wavData []byte, opts Options) ([]ASRChunk, error)
}

// Diarizer produces labeled speaker time spans from a mono WAV buffer.
type Diarizer interface {
	Diarize(ctx context.Context, wavData []byte, opts Options) ([]DiarizationSpan, error)
}

// ClientConfig contains backend HTTP client configuration.
type ClientConfig struct {
	Endpoint      string
	APIKey        string
	Timeout       time.Duration
	MaxRetries    int
	MaxConcurrent int
}

// Client talks to the transcription service over HTTP. It implements both
// Recognizer and Diarizer against the service's /transcribe and /diarize
// routes, uploading audio as multipart form data.
type Client struct {
	config     ClientConfig
	httpClient *http.Client
	semaphore  chan struct{} // limits in-flight requests
	metrics    *metrics.Metrics

	// Statistics
	totalRequests   uint64
	successRequests uint64
	failedRequests  uint64

	mu sync.RWMutex
}

// ClientStats represents backend client statistics.
type ClientStats struct {
	TotalRequests   uint64  `json:"total_requests"`
	SuccessRequests uint64  `json:"success_requests"`
	FailedRequests  uint64  `json:"failed_requests"`
	SuccessRate     float64 `json:"success_rate"`
}

// NewClient creates a transcription backend client.
func NewClient(config ClientConfig, m *metrics.Metrics) (*Client, error) {
	if config.Endpoint == "" {
		return nil, fmt.Errorf("endpoint cannot be empty")
	}

	if config.Timeout <= 0 {
		config.Timeout = 120 * time.Second
	}

	if config.MaxRetries < 0 {
		config.MaxRetries = 3
	}

	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = 4
	}

	httpClient := &http.Client{
		Timeout: config.Timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	return &Client{
		config:     config,
		httpClient: httpClient,
		semaphore:  make(chan struct{}, config.MaxConcurrent),
		metrics:    m,
	}, nil
}

// asrResponse is the wire shape of the /transcribe route.
type asrResponse struct {
	Chunks []ASRChunk `json:"chunks"`
}

// diarizeResponse is the wire shape of the /diarize route.
type diarizeResponse struct {
	Spans []DiarizationSpan `json:"spans"`
}

// Transcribe implements Recognizer.
func (c *Client) Transcribe(ctx context.Context, wavData []byte, opts Options) ([]ASRChunk, error) {
	var resp asrResponse
	if err := c.post(ctx, "/transcribe", wavData, opts, &resp); err != nil {
		return nil, err
	}
	return resp.Chunks, nil
}

// Diarize implements Diarizer.
func (c *Client) Diarize(ctx context.Context, wavData []byte, opts Options) ([]DiarizationSpan, error) {
	var resp diarizeResponse
	if err := c.post(ctx, "/diarize", wavData, opts, &resp); err != nil {
		return nil, err
	}
	return resp.Spans, nil
}

// post uploads the audio and decodes the JSON response into out, retrying
// transient failures with bounded exponential backoff.
func (c *Client) post(ctx context.Context, route string, wavData []byte, opts Options, out any) error {
	select {
	case c.semaphore <- struct{}{}:
		defer func() { <-c.semaphore }()
	case <-ctx.Done():
		return ctx.Err()
	}

	c.incrementTotal()
	if c.metrics != nil {
		c.metrics.TranscriptionRequests.Inc()
	}

	requestID := uuid.New().String()
	start := time.Now()

	attempt := 0
	operation := func() error {
		if attempt > 0 {
			if c.metrics != nil {
				c.metrics.TranscriptionRetries.Inc()
			}
		}
		attempt++
		return c.doRequest(ctx, route, requestID, wavData, opts, out)
	}

	b := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(c.config.MaxRetries))
	err := backoff.Retry(operation, backoff.WithContext(b, ctx))

	if c.metrics != nil {
		c.metrics.TranscriptionDuration.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		c.incrementFailed()
		if c.metrics != nil {
			c.metrics.TranscriptionFailures.Inc()
		}
		return fmt.Errorf("%s request failed after %d attempts: %w", route, attempt, err)
	}

	c.incrementSuccess()
	if c.metrics != nil {
		c.metrics.TranscriptionSuccesses.Inc()
	}
	return nil
}

// doRequest performs a single multipart HTTP request.
func (c *Client) doRequest(ctx context.Context, route, requestID string, wavData []byte, opts Options, out any) error {
	body, contentType, err := c.createMultipartRequest(requestID, wavData, opts)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("failed to create multipart request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.Endpoint+route, body)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("failed to create HTTP request: %w", err))
	}

	httpReq.Header.Set("Content-Type", contentType)
	if c.config.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-ID", requestID)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		reqErr := fmt.Errorf("HTTP error %d: %s", resp.StatusCode, string(respBody))
		// 4xx responses other than rate limiting will not succeed on retry.
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return backoff.Permanent(reqErr)
		}
		return reqErr
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return backoff.Permanent(fmt.Errorf("failed to parse response JSON: %w", err))
	}

	return nil
}

// createMultipartRequest builds a multipart/form-data body carrying the audio
// and the caller's hints.
func (c *Client) createMultipartRequest(requestID string, wavData []byte, opts Options) (io.Reader, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	fileWriter, err := writer.CreateFormFile("file", requestID+".wav")
	if err != nil {
		return nil, "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := fileWriter.Write(wavData); err != nil {
		return nil, "", fmt.Errorf("failed to write audio data: %w", err)
	}

	fields := map[string]string{
		"request_id": requestID,
	}
	if opts.Language != "" {
		fields["language"] = opts.Language
	}
	if opts.MinSpeakers > 0 {
		fields["min_speakers"] = strconv.Itoa(opts.MinSpeakers)
	}
	if opts.MaxSpeakers > 0 {
		fields["max_speakers"] = strconv.Itoa(opts.MaxSpeakers)
	}

	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			return nil, "", fmt.Errorf("failed to write field %s: %w", key, err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close multipart writer: %w", err)
	}

	return &buf, writer.FormDataContentType(), nil
}

func (c *Client) incrementTotal() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.totalRequests++
}

func (c *Client) incrementSuccess() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.successRequests++
}

func (c *Client) incrementFailed() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failedRequests++
}

// GetStats returns current client statistics.
func (c *Client) GetStats() ClientStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	successRate := float64(0)
	if c.totalRequests > 0 {
		successRate = float64(c.successRequests) / float64(c.totalRequests) * 100
	}

	return ClientStats{
		TotalRequests:   c.totalRequests,
		SuccessRequests: c.successRequests,
		FailedRequests:  c.failedRequests,
		SuccessRate:     successRate,
	}
}
