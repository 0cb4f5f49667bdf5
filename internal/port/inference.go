package port

import "context"

// InferenceRequest is one image-plus-instruction call. ModelCandidates are
// tried in order until one responds.
type InferenceRequest struct {
	Image           []byte
	MimeType        string
	Instruction     string
	ModelCandidates []string
}

// InferenceResponse is the free-form text returned by the first candidate
// that answered.
type InferenceResponse struct {
	Text  string
	Model string
}

// InferenceGateway abstracts the vision-language model service.
type InferenceGateway interface {
	Generate(ctx context.Context, req InferenceRequest) (*InferenceResponse, error)
}

// ModelBackend is a single provider able to run any of its models.
type ModelBackend interface {
	Complete(ctx context.Context, model string, image []byte, mimeType, instruction string) (string, error)
	Name() string
}
