package inference_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"formscan/internal/inference"
	"formscan/internal/port"
	"formscan/mocks"
)

func testRequest(candidates ...string) port.InferenceRequest {
	return port.InferenceRequest{
		Image:           []byte("img"),
		MimeType:        "image/jpeg",
		Instruction:     "extract",
		ModelCandidates: candidates,
	}
}

func TestGateway_FirstSucceeds(t *testing.T) {
	g1 := &mocks.MockModelBackend{ProviderName: "gemini"}
	c1 := &mocks.MockModelBackend{ProviderName: "claude"}

	g1.On("Complete", mock.Anything, "gemini-2.0-flash", []byte("img"), "image/jpeg", "extract").
		Return(`{"ok":true}`, nil)

	gw := inference.NewGateway(nil, g1, c1)
	resp, err := gw.Generate(context.Background(), testRequest("gemini/gemini-2.0-flash", "claude/claude-sonnet-4-20250514"))

	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, resp.Text)
	assert.Equal(t, "gemini/gemini-2.0-flash", resp.Model)
	c1.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestGateway_FirstFails_SecondSucceeds(t *testing.T) {
	g1 := &mocks.MockModelBackend{ProviderName: "gemini"}

	g1.On("Complete", mock.Anything, "gemini-2.0-flash", mock.Anything, mock.Anything, mock.Anything).
		Return("", errors.New("boom"))
	g1.On("Complete", mock.Anything, "gemini-1.5-flash", mock.Anything, mock.Anything, mock.Anything).
		Return("text", nil)

	gw := inference.NewGateway(nil, g1)
	resp, err := gw.Generate(context.Background(), testRequest("gemini-2.0-flash", "gemini-1.5-flash"))

	require.NoError(t, err)
	assert.Equal(t, "gemini/gemini-1.5-flash", resp.Model)
	g1.AssertNumberOfCalls(t, "Complete", 2)
}

func TestGateway_AllFail(t *testing.T) {
	g1 := &mocks.MockModelBackend{ProviderName: "gemini"}
	o1 := &mocks.MockModelBackend{ProviderName: "openai"}

	g1.On("Complete", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("", errors.New("gemini down"))
	o1.On("Complete", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("", inference.NewRateLimitError("openai", errors.New("429"), 5))

	gw := inference.NewGateway(nil, g1, o1)
	_, err := gw.Generate(context.Background(), testRequest("gemini-2.0-flash", "gpt-4o"))

	var infErr *inference.InferenceError
	require.ErrorAs(t, err, &infErr)
	require.Len(t, infErr.Attempts, 2)
	assert.Equal(t, "gemini-2.0-flash", infErr.Attempts[0].Candidate)
	assert.Equal(t, "gpt-4o", infErr.Attempts[1].Candidate)
	assert.False(t, infErr.RateLimited())

	var rlErr *inference.RateLimitError
	assert.ErrorAs(t, err, &rlErr)
	assert.Equal(t, "openai", rlErr.Provider)
}

func TestGateway_EachCandidateTriedOnce(t *testing.T) {
	c1 := &mocks.MockModelBackend{ProviderName: "claude"}
	c1.On("Complete", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("", errors.New("fail"))

	gw := inference.NewGateway(nil, c1)
	_, err := gw.Generate(context.Background(), testRequest("claude-a", "claude-b", "claude-c"))

	require.Error(t, err)
	c1.AssertNumberOfCalls(t, "Complete", 3)
}

func TestGateway_UnknownProvider(t *testing.T) {
	g1 := &mocks.MockModelBackend{ProviderName: "gemini"}
	g1.On("Complete", mock.Anything, "gemini-2.0-flash", mock.Anything, mock.Anything, mock.Anything).
		Return("ok", nil)

	gw := inference.NewGateway(nil, g1)
	resp, err := gw.Generate(context.Background(), testRequest("mistral-large", "gemini-2.0-flash"))

	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Text)
}

func TestGateway_NoBackendForAnyCandidate(t *testing.T) {
	gw := inference.NewGateway(nil)
	_, err := gw.Generate(context.Background(), testRequest("claude-x"))

	var infErr *inference.InferenceError
	require.ErrorAs(t, err, &infErr)
	assert.ErrorIs(t, infErr.Attempts[0].Err, inference.ErrNoBackend)
}

func TestGateway_UsesDefaultCandidates(t *testing.T) {
	g1 := &mocks.MockModelBackend{ProviderName: "gemini"}
	g1.On("Complete", mock.Anything, "gemini-2.0-flash", mock.Anything, mock.Anything, mock.Anything).
		Return("ok", nil)

	gw := inference.NewGateway([]string{"gemini/gemini-2.0-flash"}, g1)
	resp, err := gw.Generate(context.Background(), testRequest())

	require.NoError(t, err)
	assert.Equal(t, "gemini/gemini-2.0-flash", resp.Model)
	assert.Equal(t, []string{"gemini/gemini-2.0-flash"}, gw.Candidates())
}

func TestGateway_NoCandidates(t *testing.T) {
	gw := inference.NewGateway(nil)
	_, err := gw.Generate(context.Background(), testRequest())

	var infErr *inference.InferenceError
	require.ErrorAs(t, err, &infErr)
	assert.Empty(t, infErr.Attempts)
	assert.Contains(t, err.Error(), "no model candidates")
}

func TestGateway_CancelledContext(t *testing.T) {
	g1 := &mocks.MockModelBackend{ProviderName: "gemini"}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	gw := inference.NewGateway(nil, g1)
	_, err := gw.Generate(ctx, testRequest("gemini-a", "gemini-b"))

	var infErr *inference.InferenceError
	require.ErrorAs(t, err, &infErr)
	require.Len(t, infErr.Attempts, 1)
	assert.ErrorIs(t, err, context.Canceled)
	g1.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestResolveCandidate(t *testing.T) {
	tests := []struct {
		candidate string
		provider  string
		model     string
	}{
		{"gemini/gemini-2.0-flash", "gemini", "gemini-2.0-flash"},
		{"Claude/claude-sonnet-4-20250514", "claude", "claude-sonnet-4-20250514"},
		{"gemini-1.5-pro", "gemini", "gemini-1.5-pro"},
		{"claude-3-5-haiku", "claude", "claude-3-5-haiku"},
		{"gpt-4o", "openai", "gpt-4o"},
		{"o4-mini", "openai", "o4-mini"},
		{"llava", "", "llava"},
	}
	for _, tt := range tests {
		t.Run(tt.candidate, func(t *testing.T) {
			p, m := inference.ResolveCandidate(tt.candidate)
			assert.Equal(t, tt.provider, p)
			assert.Equal(t, tt.model, m)
		})
	}
}
