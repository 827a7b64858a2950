// Package openai is the HTTP client for the two external collaborators
// the pipeline consumes: prompt expansion (structured JSON) and narration
// synthesis (text to speech). Callers are expected to fall back to
// deterministic offline stubs when no client can be constructed.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/yungbote/lessonforge/internal/platform/ctxutil"
	"github.com/yungbote/lessonforge/internal/platform/httpx"
	"github.com/yungbote/lessonforge/internal/platform/logger"
)

type Client interface {
	// GenerateJSON sends system+user prompts and returns the model's JSON
	// object output.
	GenerateJSON(ctx context.Context, model string, system string, user string) (map[string]any, error)

	// SynthesizeSpeech renders text as WAV audio bytes.
	SynthesizeSpeech(ctx context.Context, model string, voice string, text string) ([]byte, error)
}

type client struct {
	log        *logger.Logger
	baseURL    string
	apiKey     string
	httpClient *http.Client

	maxRetries int
}

func NewClient(log *logger.Logger) (Client, error) {
	apiKey := strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	if apiKey == "" {
		return nil, fmt.Errorf("missing OPENAI_API_KEY")
	}

	baseURL := strings.TrimSpace(os.Getenv("OPENAI_BASE_URL"))
	if baseURL == "" {
		baseURL = "https://api.openai.com"
	}
	baseURL = strings.TrimRight(baseURL, "/")

	timeoutSec := 180
	if v := os.Getenv("OPENAI_TIMEOUT_SECONDS"); v != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && parsed > 0 {
			timeoutSec = parsed
		}
	}

	maxRetries := 4
	if v := os.Getenv("OPENAI_MAX_RETRIES"); v != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && parsed >= 0 {
			maxRetries = parsed
		}
	}

	return &client{
		log:        log.With("client", "openai"),
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: time.Duration(timeoutSec) * time.Second},
		maxRetries: maxRetries,
	}, nil
}

func (c *client) GenerateJSON(ctx context.Context, model string, system string, user string) (map[string]any, error) {
	payload := map[string]any{
		"model": model,
		"messages": []map[string]any{
			{"role": "system", "content": system},
			{"role": "user", "content": user},
		},
		"response_format": map[string]any{"type": "json_object"},
	}

	raw, err := c.post(ctx, "/v1/chat/completions", payload)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode chat response: %w", err)
	}
	if len(parsed.Choices) == 0 || strings.TrimSpace(parsed.Choices[0].Message.Content) == "" {
		return nil, fmt.Errorf("chat response has no content")
	}

	out := map[string]any{}
	if err := json.Unmarshal([]byte(parsed.Choices[0].Message.Content), &out); err != nil {
		return nil, fmt.Errorf("model output is not a JSON object: %w", err)
	}
	return out, nil
}

func (c *client) SynthesizeSpeech(ctx context.Context, model string, voice string, text string) ([]byte, error) {
	payload := map[string]any{
		"model":           model,
		"voice":           voice,
		"input":           text,
		"response_format": "wav",
	}
	return c.post(ctx, "/v1/audio/speech", payload)
}

func (c *client) post(ctx context.Context, path string, payload any) ([]byte, error) {
	ctx = ctxutil.Default(ctx)

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	backoff := 750 * time.Millisecond
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			if !httpx.IsRetryableError(err) || attempt == c.maxRetries {
				return nil, fmt.Errorf("openai %s: %w", path, err)
			}
			time.Sleep(httpx.JitterSleep(backoff))
			backoff = httpx.Backoff(backoff, 10*time.Second)
			continue
		}

		raw, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			return nil, fmt.Errorf("read openai response: %w", readErr)
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return raw, nil
		}

		lastErr = fmt.Errorf("openai %s: status %d: %s", path, resp.StatusCode, truncate(string(raw), 500))
		if !httpx.IsRetryableHTTPStatus(resp.StatusCode) || attempt == c.maxRetries {
			return nil, lastErr
		}
		time.Sleep(httpx.RetryAfterDuration(resp, httpx.JitterSleep(backoff), 10*time.Second))
		backoff = httpx.Backoff(backoff, 10*time.Second)
	}
	return nil, lastErr
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
