// Package extractor runs the per-form extraction instruction against the
// inference gateway and locates the JSON object in the answer.
package extractor

import (
	"context"
	"fmt"
	"log"

	"formscan/internal/domain"
	"formscan/internal/parser"
	"formscan/internal/port"
)

// RawExtraction is the unparsed model answer for one form type.
type RawExtraction struct {
	FormType    domain.FormType
	Text        string
	Model       string
	Instruction string
}

// Extractor dispatches extraction instructions to the gateway. The same
// dispatch routine serves every form type; only the instruction differs.
type Extractor struct {
	gateway    port.InferenceGateway
	candidates []string
}

// New creates an Extractor. candidates may be nil to use the gateway's
// default candidate list.
func New(gateway port.InferenceGateway, candidates []string) *Extractor {
	return &Extractor{gateway: gateway, candidates: candidates}
}

// Extract sends the instruction for ft with the image. It fails with the
// gateway's *inference.InferenceError only when every candidate failed; any
// answer is accepted regardless of content.
func (e *Extractor) Extract(ctx context.Context, image []byte, mimeType string, ft domain.FormType) (*RawExtraction, error) {
	instruction := Instruction(ft)
	resp, err := e.gateway.Generate(ctx, port.InferenceRequest{
		Image:           image,
		MimeType:        mimeType,
		Instruction:     instruction,
		ModelCandidates: e.candidates,
	})
	if err != nil {
		return nil, fmt.Errorf("extracting %s: %w", ft, err)
	}
	log.Printf("extractor.Extractor: %s answered by %s (%d chars)", ft, resp.Model, len(resp.Text))
	return &RawExtraction{
		FormType:    ft,
		Text:        resp.Text,
		Model:       resp.Model,
		Instruction: instruction,
	}, nil
}

// ExtractObject runs Extract then parses the answer. The error is either the
// wrapped inference failure or a *parser.ParseError.
func (e *Extractor) ExtractObject(ctx context.Context, image []byte, mimeType string, ft domain.FormType) (map[string]any, *RawExtraction, error) {
	raw, err := e.Extract(ctx, image, mimeType, ft)
	if err != nil {
		return nil, nil, err
	}
	obj, err := parser.Parse(raw.Text)
	if err != nil {
		return nil, raw, fmt.Errorf("parsing %s answer from %s: %w", ft, raw.Model, err)
	}
	return obj, raw, nil
}
