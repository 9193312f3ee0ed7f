// Package reasoner talks to the language model that proposes schedules.
package reasoner

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"

	"github.com/julianstephens/dayplan/internal/logger"
)

const (
	DefaultModel   = "llama3.1"
	DefaultTimeout = 60 * time.Second
)

type Config struct {
	// Host is the ollama base URL. Empty uses OLLAMA_HOST or the local default.
	Host        string
	Model       string
	Timeout     time.Duration
	Temperature float64
}

// OllamaReasoner asks a local ollama model for schedule candidates.
type OllamaReasoner struct {
	client      *api.Client
	model       string
	timeout     time.Duration
	temperature float64
	system      string
}

func NewOllamaReasoner(cfg Config) (*OllamaReasoner, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
	}

	var client *api.Client
	if cfg.Host == "" {
		c, err := api.ClientFromEnvironment()
		if err != nil {
			return nil, fmt.Errorf("failed to create ollama client: %w", err)
		}
		client = c
	} else {
		base, err := url.Parse(cfg.Host)
		if err != nil {
			return nil, fmt.Errorf("invalid ollama host %q: %w", cfg.Host, err)
		}
		client = api.NewClient(base, &http.Client{Timeout: timeout})
	}

	return &OllamaReasoner{
		client:      client,
		model:       model,
		timeout:     timeout,
		temperature: cfg.Temperature,
		system:      SystemPrompt(),
	}, nil
}

// Ping checks that the ollama server answers.
func (r *OllamaReasoner) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return r.client.Heartbeat(ctx)
}

// GenerateCandidates sends prompt in JSON mode and returns the raw reply text.
func (r *OllamaReasoner) GenerateCandidates(ctx context.Context, prompt string) (string, error) {
	return r.generate(ctx, r.system, prompt)
}

// ModifySchedule sends a change request for an existing plan.
func (r *OllamaReasoner) ModifySchedule(ctx context.Context, prompt string) (string, error) {
	return r.generate(ctx, ModifySystemPrompt(), prompt)
}

func (r *OllamaReasoner) generate(ctx context.Context, system, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	stream := false
	req := &api.GenerateRequest{
		Model:   r.model,
		System:  system,
		Prompt:  prompt,
		Format:  json.RawMessage(`"json"`),
		Stream:  &stream,
		Options: map[string]any{"temperature": r.temperature},
	}

	started := time.Now()
	var out strings.Builder
	err := r.client.Generate(ctx, req, func(resp api.GenerateResponse) error {
		out.WriteString(resp.Response)
		return nil
	})
	if err != nil {
		logger.Warn("Reasoner request failed", "model", r.model, "error", err)
		return "", fmt.Errorf("failed to generate candidates: %w", err)
	}

	logger.Debug("Reasoner replied", "model", r.model, "elapsed", time.Since(started), "bytes", out.Len())
	return out.String(), nil
}
