package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"formscan/internal/config"
	"formscan/internal/inference"
	"formscan/internal/port"
)

const maxOutputTokens = 8192

func init() {
	inference.RegisterBackend("gemini", func(ctx context.Context, cfg *config.ProviderConfig) (port.ModelBackend, error) {
		return NewBackend(ctx, cfg)
	})
}

// Backend implements port.ModelBackend using the Gemini SDK.
type Backend struct {
	client  *genai.Client
	timeout time.Duration
}

// NewBackend creates a Gemini backend. The client is shared by every model
// the backend serves and must be released with Close.
func NewBackend(ctx context.Context, cfg *config.ProviderConfig) (*Backend, error) {
	opts := []option.ClientOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &Backend{client: client, timeout: cfg.Timeout()}, nil
}

func (b *Backend) Name() string { return "gemini" }

// Close releases the underlying client.
func (b *Backend) Close() error {
	return b.client.Close()
}

func (b *Backend) Complete(ctx context.Context, model string, image []byte, mimeType, instruction string) (string, error) {
	mt, err := toGeminiMimeType(mimeType)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	m := b.client.GenerativeModel(model)
	m.ResponseMIMEType = "application/json"
	m.SetMaxOutputTokens(maxOutputTokens)
	m.SetTemperature(0)

	resp, err := m.GenerateContent(ctx,
		genai.Blob{MIMEType: mt, Data: image},
		genai.Text(instruction),
	)
	if err != nil {
		return "", classifyError(err)
	}

	return responseText(resp)
}

func toGeminiMimeType(contentType string) (string, error) {
	switch contentType {
	case "image/jpeg", "image/png", "image/webp", "image/heic":
		return contentType, nil
	default:
		return "", fmt.Errorf("unsupported image type for gemini: %s", contentType)
	}
}

// classifyError turns a Google API 429 into a RateLimitError and wraps
// everything else.
func classifyError(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		baseErr := fmt.Errorf("gemini API error (status %d): %s", apiErr.Code, apiErr.Message)
		if apiErr.Code == http.StatusTooManyRequests {
			retryAfter := inference.ParseRetryAfterHeader(apiErr.Header.Get("Retry-After"))
			return inference.NewRateLimitError("gemini", baseErr, retryAfter)
		}
		return baseErr
	}
	return fmt.Errorf("calling gemini API: %w", err)
}

// responseText concatenates the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("empty response from API: no candidates")
	}

	cand := resp.Candidates[0]
	if cand.FinishReason == genai.FinishReasonMaxTokens {
		return "", fmt.Errorf("output truncated (finishReason: MAX_TOKENS): response exceeded output token limit")
	}
	if cand.Content == nil || len(cand.Content.Parts) == 0 {
		return "", fmt.Errorf("empty response from API: no content parts")
	}

	var sb strings.Builder
	for _, part := range cand.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("empty response from API: no text parts")
	}
	return sb.String(), nil
}
