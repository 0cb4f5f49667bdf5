package classifier_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"formscan/internal/classifier"
	"formscan/internal/config"
	"formscan/internal/domain"
	"formscan/internal/extractor"
	"formscan/internal/inference"
	"formscan/internal/port"
	"formscan/mocks"
)

func TestMatchLabel(t *testing.T) {
	tests := []struct {
		answer string
		want   domain.FormType
	}{
		{"HAND_RECEIPT", domain.FormTypeHandReceipt},
		{"  equipment_record\n", domain.FormTypeEquipmentRecord},
		{"The form is REQUEST_TURN_IN.", domain.FormTypeRequestTurnIn},
		{"GENERIC", domain.FormTypeGeneric},
		{"DA Form 3645", domain.FormTypeEquipmentRecord},
		{"ocie record", domain.FormTypeEquipmentRecord},
		{"This is a turn-in document", domain.FormTypeRequestTurnIn},
		{"DA 2062", domain.FormTypeHandReceipt},
		{"hand receipt", domain.FormTypeHandReceipt},
		{"no idea", domain.FormTypeGeneric},
		{"", domain.FormTypeGeneric},
	}
	for _, tt := range tests {
		t.Run(tt.answer, func(t *testing.T) {
			assert.Equal(t, tt.want, classifier.MatchLabel(tt.answer))
		})
	}
}

func TestScore(t *testing.T) {
	s := classifier.NewScorer(classifier.DefaultProfile())

	t.Run("equipment needs one hit", func(t *testing.T) {
		res := s.Score("ORGANIZATIONAL CLOTHING and stuff")
		assert.Equal(t, domain.FormTypeEquipmentRecord, res.FormType)
		assert.Equal(t, 1, res.Counts[domain.FormTypeEquipmentRecord])
	})

	t.Run("hand receipt needs two hits", func(t *testing.T) {
		assert.Equal(t, domain.FormTypeGeneric, s.Score("Hand Receipt").FormType)
		assert.Equal(t, domain.FormTypeHandReceipt, s.Score("DA FORM 2062 Hand Receipt").FormType)
	})

	t.Run("highest count wins", func(t *testing.T) {
		text := "DA Form 2765-1 REQUEST FOR ISSUE OR TURN-IN document number condition code; see OCIE"
		res := s.Score(text)
		assert.Equal(t, domain.FormTypeRequestTurnIn, res.FormType)
		assert.Equal(t, 1, res.Counts[domain.FormTypeEquipmentRecord])
	})

	t.Run("tie falls back to generic", func(t *testing.T) {
		res := s.Score("2062 hand receipt 2765 turn-in turn in")
		assert.Equal(t, 2, res.Counts[domain.FormTypeHandReceipt])
		assert.Equal(t, 3, res.Counts[domain.FormTypeRequestTurnIn])
		assert.Equal(t, domain.FormTypeRequestTurnIn, res.FormType)

		res = s.Score("2062 hand receipt 2765 request for issue")
		assert.Equal(t, 2, res.Counts[domain.FormTypeHandReceipt])
		assert.Equal(t, 2, res.Counts[domain.FormTypeRequestTurnIn])
		assert.Equal(t, domain.FormTypeGeneric, res.FormType)
	})

	t.Run("no keywords means generic with zero counts", func(t *testing.T) {
		res := s.Score("Memorandum for record. Subject: range safety briefing.")
		assert.Equal(t, domain.FormTypeGeneric, res.FormType)
		for ft, n := range res.Counts {
			assert.Zero(t, n, ft)
		}
		assert.Len(t, res.Counts, 3)
	})
}

func TestScore_Idempotent(t *testing.T) {
	s := classifier.NewScorer(classifier.DefaultProfile())
	text := classifier.Haystack(map[string]any{
		"header":  map[string]any{"title": "Hand Receipt/Annex Number", "formNumber": "DA FORM 2062"},
		"rawText": "END ITEM STOCK NUMBER ... QTY AUTH",
		"items":   []any{map[string]any{"description": "Bayonet", "quantity": float64(1)}},
	})

	first := s.Score(text)
	second := s.Score(text)

	assert.Equal(t, first, second)
	assert.Equal(t, domain.FormTypeHandReceipt, first.FormType)
}

func TestHaystack(t *testing.T) {
	obj := map[string]any{
		"b":     "second",
		"a":     " first ",
		"n":     float64(3),
		"items": []any{map[string]any{"x": "nested"}, "loose", true},
	}
	assert.Equal(t, "first\nsecond\nnested\nloose", classifier.Haystack(obj))
	assert.Equal(t, "", classifier.Haystack(nil))
}

func TestProfile_WithThresholds(t *testing.T) {
	p, err := classifier.DefaultProfile().WithThresholds(map[string]int{"equipment_record": 2})
	require.NoError(t, err)
	assert.Equal(t, 2, p.Forms[domain.FormTypeEquipmentRecord].MinMatches)
	assert.Equal(t, 1, classifier.DefaultProfile().Forms[domain.FormTypeEquipmentRecord].MinMatches)

	s := classifier.NewScorer(p)
	assert.Equal(t, domain.FormTypeGeneric, s.Score("OCIE").FormType)

	_, err = classifier.DefaultProfile().WithThresholds(map[string]int{"GENERIC": 1})
	assert.ErrorIs(t, err, domain.ErrUnknownFormType)
}

func TestLoadProfile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kw.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
forms:
  HAND_RECEIPT:
    min_matches: 1
    keywords: [annex]
`), 0o600))

	p, err := classifier.LoadProfile(path)
	require.NoError(t, err)
	assert.Equal(t, domain.FormTypeHandReceipt, classifier.NewScorer(p).Score("ANNEX 4").FormType)

	_, err = classifier.LoadProfile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("forms:\n  PAYSTUB:\n    keywords: [pay]\n"), 0o600))
	_, err = classifier.LoadProfile(bad)
	assert.ErrorIs(t, err, domain.ErrUnknownFormType)
}

func TestClassify_PromptMode(t *testing.T) {
	gw := new(mocks.MockInferenceGateway)
	gw.On("Generate", mock.Anything, mock.MatchedBy(func(req port.InferenceRequest) bool {
		return req.Instruction == classifier.BuildClassificationPrompt() && req.MimeType == "image/jpeg"
	})).Return(&port.InferenceResponse{Text: "EQUIPMENT_RECORD", Model: "gemini/gemini-2.0-flash"}, nil)

	c := classifier.New(classifier.ModePrompt, gw, extractor.New(gw, nil), nil, nil)
	res := c.ClassifyDetailed(context.Background(), []byte("img"), "image/jpeg")

	assert.Equal(t, domain.FormTypeEquipmentRecord, res.FormType)
	assert.Equal(t, classifier.ModePrompt, res.Mode)
	assert.Equal(t, "gemini/gemini-2.0-flash", res.Model)
	gw.AssertExpectations(t)
}

func TestClassify_PromptModeFailureIsGeneric(t *testing.T) {
	gw := new(mocks.MockInferenceGateway)
	gw.On("Generate", mock.Anything, mock.Anything).
		Return(nil, &inference.InferenceError{Attempts: []inference.Attempt{{Candidate: "x", Err: errors.New("timeout")}}})

	c := classifier.New(classifier.ModePrompt, gw, extractor.New(gw, nil), nil, nil)

	assert.Equal(t, domain.FormTypeGeneric, c.Classify(context.Background(), []byte("img"), "image/png"))
}

func TestClassify_KeywordMode(t *testing.T) {
	gw := new(mocks.MockInferenceGateway)
	gw.On("Generate", mock.Anything, mock.MatchedBy(func(req port.InferenceRequest) bool {
		return req.Instruction == extractor.Instruction(domain.FormTypeGeneric)
	})).Return(&port.InferenceResponse{
		Text:  `{"header":{"title":"Organizational Clothing and Individual Equipment Record"},"rawText":"LIN SIZE ON HAND DUE OUT"}`,
		Model: "claude/claude-sonnet-4-20250514",
	}, nil)

	c := classifier.New(classifier.ModeKeywords, gw, extractor.New(gw, nil), nil, nil)
	res := c.ClassifyDetailed(context.Background(), []byte("img"), "image/png")

	assert.Equal(t, domain.FormTypeEquipmentRecord, res.FormType)
	assert.Equal(t, 4, res.Counts[domain.FormTypeEquipmentRecord])
	require.NotNil(t, res.Generic)
	assert.Equal(t, "LIN SIZE ON HAND DUE OUT", res.Generic["rawText"])
}

func TestClassify_KeywordModeUnparseableIsGeneric(t *testing.T) {
	gw := new(mocks.MockInferenceGateway)
	gw.On("Generate", mock.Anything, mock.Anything).
		Return(&port.InferenceResponse{Text: "sorry", Model: "m"}, nil)

	c := classifier.New(classifier.ModeKeywords, gw, extractor.New(gw, nil), nil, nil)
	res := c.ClassifyDetailed(context.Background(), []byte("img"), "image/png")

	assert.Equal(t, domain.FormTypeGeneric, res.FormType)
	assert.Empty(t, res.Counts)
	assert.Nil(t, res.Generic)
}

func TestNewFromConfig(t *testing.T) {
	gw := new(mocks.MockInferenceGateway)
	ex := extractor.New(gw, nil)

	c, err := classifier.NewFromConfig(&config.ClassifierConfig{
		Mode:       "keywords",
		MinMatches: map[string]int{"HAND_RECEIPT": 1},
	}, gw, ex, nil)
	require.NoError(t, err)
	assert.Equal(t, classifier.ModeKeywords, c.Mode())
	assert.Equal(t, domain.FormTypeHandReceipt, c.Score("hand receipt").FormType)

	_, err = classifier.NewFromConfig(&config.ClassifierConfig{Mode: "vibes"}, gw, ex, nil)
	assert.Error(t, err)

	_, err = classifier.NewFromConfig(&config.ClassifierConfig{Mode: "prompt", KeywordsFile: "/nonexistent.yaml"}, gw, ex, nil)
	assert.Error(t, err)
}
