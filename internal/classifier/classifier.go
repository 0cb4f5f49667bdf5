// Package classifier decides which form layout an image shows. It never
// fails: any error degrades to the Generic form type.
package classifier

import (
	"context"
	"fmt"
	"log"

	"formscan/internal/config"
	"formscan/internal/domain"
	"formscan/internal/extractor"
	"formscan/internal/metrics"
	"formscan/internal/port"
)

// Mode selects how classification is done.
type Mode string

const (
	// ModePrompt asks the model directly for one label.
	ModePrompt Mode = "prompt"
	// ModeKeywords runs a generic extraction and scores its text.
	ModeKeywords Mode = "keywords"
)

// Classification is the detailed outcome of one Classify call.
type Classification struct {
	FormType domain.FormType `json:"formType"`
	Mode     Mode            `json:"mode"`
	// Counts is only set in keyword mode.
	Counts map[domain.FormType]int `json:"counts,omitempty"`
	// Generic holds the parsed generic extraction in keyword mode so the
	// caller can reuse it instead of extracting again.
	Generic map[string]any `json:"-"`
	Model   string         `json:"model,omitempty"`
}

// Classifier implements both classification modes over the same gateway.
type Classifier struct {
	mode       Mode
	gateway    port.InferenceGateway
	extractor  *extractor.Extractor
	scorer     *Scorer
	candidates []string
}

// New creates a Classifier. profile is used in keyword mode.
func New(mode Mode, gateway port.InferenceGateway, ex *extractor.Extractor, profile *Profile, candidates []string) *Classifier {
	if profile == nil {
		profile = DefaultProfile()
	}
	return &Classifier{
		mode:       mode,
		gateway:    gateway,
		extractor:  ex,
		scorer:     NewScorer(profile),
		candidates: candidates,
	}
}

// NewFromConfig builds a Classifier from configuration, loading the keyword
// profile file and threshold overrides when set.
func NewFromConfig(cfg *config.ClassifierConfig, gateway port.InferenceGateway, ex *extractor.Extractor, candidates []string) (*Classifier, error) {
	profile := DefaultProfile()
	if cfg.KeywordsFile != "" {
		p, err := LoadProfile(cfg.KeywordsFile)
		if err != nil {
			return nil, err
		}
		profile = p
	}
	if len(cfg.MinMatches) > 0 {
		p, err := profile.WithThresholds(cfg.MinMatches)
		if err != nil {
			return nil, err
		}
		profile = p
	}

	mode := Mode(cfg.Mode)
	if mode != ModePrompt && mode != ModeKeywords {
		return nil, fmt.Errorf("unknown classifier mode %q", cfg.Mode)
	}
	return New(mode, gateway, ex, profile, candidates), nil
}

// Mode returns the configured mode.
func (c *Classifier) Mode() Mode {
	return c.mode
}

// Score runs keyword scoring over text.
func (c *Classifier) Score(text string) ScoreResult {
	return c.scorer.Score(text)
}

// Classify returns the form type for image.
func (c *Classifier) Classify(ctx context.Context, image []byte, mimeType string) domain.FormType {
	return c.ClassifyDetailed(ctx, image, mimeType).FormType
}

// ClassifyDetailed classifies image and reports how the decision was made.
func (c *Classifier) ClassifyDetailed(ctx context.Context, image []byte, mimeType string) *Classification {
	var out *Classification
	if c.mode == ModeKeywords {
		out = c.byKeywords(ctx, image, mimeType)
	} else {
		out = c.byPrompt(ctx, image, mimeType)
	}
	metrics.ClassificationsTotal.WithLabelValues(string(c.mode), string(out.FormType)).Inc()
	return out
}

func (c *Classifier) byPrompt(ctx context.Context, image []byte, mimeType string) *Classification {
	out := &Classification{FormType: domain.FormTypeGeneric, Mode: ModePrompt}
	resp, err := c.gateway.Generate(ctx, port.InferenceRequest{
		Image:           image,
		MimeType:        mimeType,
		Instruction:     BuildClassificationPrompt(),
		ModelCandidates: c.candidates,
	})
	if err != nil {
		log.Printf("classifier.Classifier: prompt classification failed, using %s: %v", domain.FormTypeGeneric, err)
		return out
	}
	out.FormType = MatchLabel(resp.Text)
	out.Model = resp.Model
	return out
}

func (c *Classifier) byKeywords(ctx context.Context, image []byte, mimeType string) *Classification {
	out := &Classification{FormType: domain.FormTypeGeneric, Mode: ModeKeywords, Counts: map[domain.FormType]int{}}
	obj, raw, err := c.extractor.ExtractObject(ctx, image, mimeType, domain.FormTypeGeneric)
	if err != nil {
		log.Printf("classifier.Classifier: generic extraction failed, using %s: %v", domain.FormTypeGeneric, err)
		return out
	}
	res := c.scorer.Score(Haystack(obj))
	out.FormType = res.FormType
	out.Counts = res.Counts
	out.Generic = obj
	out.Model = raw.Model
	return out
}
