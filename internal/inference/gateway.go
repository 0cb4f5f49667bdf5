package inference

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"formscan/internal/metrics"
	"formscan/internal/port"
)

// Gateway implements port.InferenceGateway by trying each model candidate
// once, in order, against the backend that serves it. The first success
// wins. There is no backoff and no state is kept between calls.
type Gateway struct {
	backends   map[string]port.ModelBackend
	candidates []string
}

// NewGateway creates a Gateway. defaults are used when a request names no
// candidates of its own.
func NewGateway(defaults []string, backends ...port.ModelBackend) *Gateway {
	m := make(map[string]port.ModelBackend, len(backends))
	for _, b := range backends {
		m[b.Name()] = b
	}
	return &Gateway{backends: m, candidates: defaults}
}

// Candidates returns the default candidate list.
func (g *Gateway) Candidates() []string {
	return append([]string(nil), g.candidates...)
}

func (g *Gateway) Generate(ctx context.Context, req port.InferenceRequest) (*port.InferenceResponse, error) {
	candidates := req.ModelCandidates
	if len(candidates) == 0 {
		candidates = g.candidates
	}

	var attempts []Attempt
	for _, candidate := range candidates {
		if err := ctx.Err(); err != nil {
			attempts = append(attempts, Attempt{Candidate: candidate, Err: err})
			break
		}

		resp, err := g.try(ctx, candidate, req)
		if err == nil {
			return resp, nil
		}
		log.Printf("inference.Gateway: %s failed: %v", candidate, err)
		attempts = append(attempts, Attempt{Candidate: candidate, Err: err})
	}

	return nil, &InferenceError{Attempts: attempts}
}

func (g *Gateway) try(ctx context.Context, candidate string, req port.InferenceRequest) (*port.InferenceResponse, error) {
	provider, model := ResolveCandidate(candidate)
	backend, ok := g.backends[provider]
	if !ok {
		metrics.InferenceAttemptsTotal.WithLabelValues(providerLabel(provider), "no_backend").Inc()
		return nil, fmt.Errorf("%w: %s", ErrNoBackend, candidate)
	}

	text, err := backend.Complete(ctx, model, req.Image, req.MimeType, req.Instruction)
	if err != nil {
		var rlErr *RateLimitError
		if errors.As(err, &rlErr) {
			metrics.InferenceAttemptsTotal.WithLabelValues(provider, "rate_limited").Inc()
		} else {
			metrics.InferenceAttemptsTotal.WithLabelValues(provider, "error").Inc()
		}
		return nil, err
	}

	metrics.InferenceAttemptsTotal.WithLabelValues(provider, "success").Inc()
	return &port.InferenceResponse{Text: text, Model: provider + "/" + model}, nil
}

// ResolveCandidate splits a candidate into provider and model. Explicit
// "provider/model" wins; otherwise the provider is inferred from the model
// name. Unrecognized names resolve to an empty provider.
func ResolveCandidate(candidate string) (provider, model string) {
	candidate = strings.TrimSpace(candidate)
	if p, m, ok := strings.Cut(candidate, "/"); ok {
		return strings.ToLower(p), m
	}

	lower := strings.ToLower(candidate)
	switch {
	case strings.HasPrefix(lower, "gemini"):
		return "gemini", candidate
	case strings.HasPrefix(lower, "claude"):
		return "claude", candidate
	case strings.HasPrefix(lower, "gpt"),
		strings.HasPrefix(lower, "o1"),
		strings.HasPrefix(lower, "o3"),
		strings.HasPrefix(lower, "o4"):
		return "openai", candidate
	}
	return "", candidate
}

func providerLabel(provider string) string {
	if provider == "" {
		return "unknown"
	}
	return provider
}
