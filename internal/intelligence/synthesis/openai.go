package synthesis

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/patentdesk/extraction-engine/internal/config"
	"github.com/patentdesk/extraction-engine/internal/infrastructure/monitoring/logging"
	pkgerrors "github.com/patentdesk/extraction-engine/pkg/errors"
)

// OpenAIBackend is a Generator over any server speaking the OpenAI
// chat-completions wire format (OpenAI itself, vLLM, Ollama, LM Studio).
//
// There is deliberately no retry here: a failed synthesis is surfaced whole
// to the operator, who retries manually.  Silent retries could deliver a
// stale success out of order with operator expectations.
type OpenAIBackend struct {
	cfg    config.SynthesisConfig
	client *http.Client
	logger logging.Logger
}

// NewOpenAIBackend creates the backend.  httpClient may be nil, in which
// case one is built from the configured timeout.
func NewOpenAIBackend(cfg config.SynthesisConfig, httpClient *http.Client, logger logging.Logger) *OpenAIBackend {
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &OpenAIBackend{cfg: cfg, client: httpClient, logger: logger}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// GenerateCandidates performs one chat-completions call and returns the raw
// assistant message.  Transport and protocol failures map to
// ErrCodeSynthesisFailed with enough detail for a manual retry.
func (b *OpenAIBackend) GenerateCandidates(ctx context.Context, p Prompt) (RawCandidates, error) {
	body, err := json.Marshal(chatRequest{
		Model: b.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: p.System},
			{Role: "user", Content: p.User},
		},
		Temperature: b.cfg.Temperature,
		MaxTokens:   b.cfg.MaxOutputTokens,
	})
	if err != nil {
		return "", pkgerrors.Wrap(err, pkgerrors.ErrCodeSerialization, "failed to encode synthesis request")
	}

	url := strings.TrimRight(b.cfg.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", pkgerrors.Wrap(err, pkgerrors.ErrCodeSynthesisFailed, "failed to build synthesis request")
	}
	req.Header.Set("Content-Type", "application/json")
	if b.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+b.cfg.APIKey)
	}

	start := time.Now()
	resp, err := b.client.Do(req)
	if err != nil {
		return "", pkgerrors.Wrap(err, pkgerrors.ErrCodeSynthesisFailed,
			"generative service unreachable").WithDetail(url)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", pkgerrors.Wrap(err, pkgerrors.ErrCodeSynthesisFailed, "failed to read synthesis response")
	}

	if resp.StatusCode != http.StatusOK {
		return "", pkgerrors.New(pkgerrors.ErrCodeSynthesisFailed,
			"generative service returned "+resp.Status).WithDetail(clip(string(payload), 2000))
	}

	var parsed chatResponse
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return "", pkgerrors.Wrap(err, pkgerrors.ErrCodeSynthesisFailed, "malformed chat-completions response")
	}
	if parsed.Error != nil {
		return "", pkgerrors.New(pkgerrors.ErrCodeSynthesisFailed, "generative service error").
			WithDetail(parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", pkgerrors.New(pkgerrors.ErrCodeSynthesisFailed, "chat-completions response has no choices")
	}

	b.logger.Debug("synthesis call completed",
		logging.String("model", b.cfg.Model),
		logging.Duration("elapsed", time.Since(start)),
		logging.Int("response_bytes", len(payload)))
	return RawCandidates(parsed.Choices[0].Message.Content), nil
}
