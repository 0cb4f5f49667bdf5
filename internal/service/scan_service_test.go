package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"formscan/internal/classifier"
	"formscan/internal/domain"
	"formscan/internal/extractor"
	"formscan/internal/inference"
	"formscan/internal/port"
	"formscan/internal/service"
	"formscan/mocks"
)

var pngImage = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func instructionIs(instruction string) any {
	return mock.MatchedBy(func(req port.InferenceRequest) bool { return req.Instruction == instruction })
}

func answer(text string) *port.InferenceResponse {
	return &port.InferenceResponse{Text: text, Model: "gemini/gemini-2.0-flash"}
}

func failed() error {
	return &inference.InferenceError{Attempts: []inference.Attempt{{Candidate: "gemini/gemini-2.0-flash", Err: errors.New("503")}}}
}

func newScanService(gw *mocks.MockInferenceGateway, mode classifier.Mode, storage port.ImageStorage, records port.RecordRepository) service.ScanService {
	ex := extractor.New(gw, nil)
	return service.NewScanService(service.ScanServiceDeps{
		Classifier:    classifier.New(mode, gw, ex, nil, nil),
		Extractor:     ex,
		Storage:       storage,
		Records:       records,
		KeyPrefix:     "scans/",
		MaxImageBytes: 1024,
	})
}

const equipmentJSON = "```json\n" + `{
  "header": {"name": "DOE, JOHN", "rank": "SPC", "unit": "A Co 1-22 IN"},
  "items": [{"lin": "A12345", "nomenclature": "Parka", "size": "M-R",
             "quantities": {"authorized": 1, "onHand": 3, "dueOut": 0}}]
}` + "\n```"

func TestProcess_ClassifiedExtraction(t *testing.T) {
	gw := new(mocks.MockInferenceGateway)
	gw.On("Generate", mock.Anything, instructionIs(classifier.BuildClassificationPrompt())).
		Return(answer("EQUIPMENT_RECORD"), nil).Once()
	gw.On("Generate", mock.Anything, instructionIs(extractor.Instruction(domain.FormTypeEquipmentRecord))).
		Return(answer(equipmentJSON), nil).Once()

	res := newScanService(gw, classifier.ModePrompt, nil, nil).
		Process(context.Background(), service.ScanInput{Image: pngImage, MimeType: "image/png", FileName: "ocie.png"})

	require.Equal(t, domain.FormTypeEquipmentRecord, res.FormType)
	assert.False(t, res.Fallback)
	assert.Equal(t, "gemini/gemini-2.0-flash", res.ModelUsed)
	assert.Empty(t, res.Issues)

	eq := res.Form.(*domain.EquipmentRecord)
	require.Len(t, eq.Items, 1)
	assert.Equal(t, []domain.ValidationIssue{"on-hand quantity 3 exceeds authorized quantity 1"}, eq.Items[0].Issues)
	assert.NotEmpty(t, eq.Items[0].ID)

	assert.Equal(t, 60, res.Confidence.Header)
	assert.Equal(t, 85, res.Confidence.Items)
	assert.Equal(t, 73, res.Confidence.Overall)
	gw.AssertExpectations(t)
}

func TestProcess_FormTypeOverrideSkipsClassification(t *testing.T) {
	gw := new(mocks.MockInferenceGateway)
	gw.On("Generate", mock.Anything, instructionIs(extractor.Instruction(domain.FormTypeHandReceipt))).
		Return(answer(`{"to":"SGT Smith","items":[{"stockNumber":"1005-01-231-0001","quantities":{"A":"2"}}]}`), nil).Once()

	res := newScanService(gw, classifier.ModePrompt, nil, nil).Process(context.Background(), service.ScanInput{
		Image: pngImage, MimeType: "image/png", FormType: domain.FormTypeHandReceipt,
	})

	require.Equal(t, domain.FormTypeHandReceipt, res.FormType)
	hr := res.Form.(*domain.HandReceipt)
	assert.Equal(t, "SGT Smith", hr.Header.To)
	assert.Equal(t, 2, hr.Items[0].Quantities.A)
	gw.AssertNumberOfCalls(t, "Generate", 1)
}

func TestProcess_ParseFailureFallsBackToGeneric(t *testing.T) {
	gw := new(mocks.MockInferenceGateway)
	gw.On("Generate", mock.Anything, instructionIs(classifier.BuildClassificationPrompt())).
		Return(answer("HAND_RECEIPT"), nil).Once()
	gw.On("Generate", mock.Anything, instructionIs(extractor.Instruction(domain.FormTypeHandReceipt))).
		Return(answer("I could not read the form."), nil).Once()
	gw.On("Generate", mock.Anything, instructionIs(extractor.Instruction(domain.FormTypeGeneric))).
		Return(answer(`{"header":{"title":"Hand Receipt"},"items":"none","rawText":"HAND RECEIPT"}`), nil).Once()

	res := newScanService(gw, classifier.ModePrompt, nil, nil).
		Process(context.Background(), service.ScanInput{Image: pngImage, MimeType: "image/png"})

	assert.Equal(t, domain.FormTypeGeneric, res.FormType)
	assert.True(t, res.Fallback)
	gen := res.Form.(*domain.GenericForm)
	assert.Equal(t, "Hand Receipt", gen.Header.Title)
	assert.Empty(t, gen.Items)
	require.Len(t, res.Issues, 1)
	assert.True(t, strings.HasPrefix(string(res.Issues[0]), "unexpected shape at /items"))
	gw.AssertExpectations(t)
}

func TestProcess_TotalFailureReturnsEmptyGeneric(t *testing.T) {
	gw := new(mocks.MockInferenceGateway)
	gw.On("Generate", mock.Anything, mock.Anything).Return(nil, failed())

	res := newScanService(gw, classifier.ModePrompt, nil, nil).
		Process(context.Background(), service.ScanInput{Image: pngImage, MimeType: "image/png"})

	require.NotNil(t, res)
	assert.Equal(t, domain.FormTypeGeneric, res.FormType)
	assert.True(t, res.Fallback)
	assert.Equal(t, domain.ZeroConfidence(), res.Confidence)
	assert.Equal(t, 0, res.Form.ItemCount())
	assert.Len(t, res.Issues, 1)
}

func TestProcess_DedicatedFailureThenGenericFailure(t *testing.T) {
	gw := new(mocks.MockInferenceGateway)
	gw.On("Generate", mock.Anything, instructionIs(classifier.BuildClassificationPrompt())).
		Return(answer("REQUEST_TURN_IN"), nil).Once()
	gw.On("Generate", mock.Anything, instructionIs(extractor.Instruction(domain.FormTypeRequestTurnIn))).
		Return(nil, failed()).Once()
	gw.On("Generate", mock.Anything, instructionIs(extractor.Instruction(domain.FormTypeGeneric))).
		Return(answer("still prose"), nil).Once()

	res := newScanService(gw, classifier.ModePrompt, nil, nil).
		Process(context.Background(), service.ScanInput{Image: pngImage, MimeType: "image/png"})

	assert.Equal(t, domain.FormTypeGeneric, res.FormType)
	assert.Equal(t, 0, res.Confidence.Overall)
	gw.AssertExpectations(t)
}

func TestProcess_KeywordModeReusesGenericExtraction(t *testing.T) {
	gw := new(mocks.MockInferenceGateway)
	gw.On("Generate", mock.Anything, instructionIs(extractor.Instruction(domain.FormTypeGeneric))).
		Return(answer(`{"header":{"title":"Memorandum"},"items":[{"description":"Radio","quantity":"2"}]}`), nil).Once()

	res := newScanService(gw, classifier.ModeKeywords, nil, nil).
		Process(context.Background(), service.ScanInput{Image: pngImage, MimeType: "image/png"})

	assert.Equal(t, domain.FormTypeGeneric, res.FormType)
	assert.False(t, res.Fallback)
	gen := res.Form.(*domain.GenericForm)
	require.Len(t, gen.Items, 1)
	assert.Equal(t, 2, gen.Items[0].Quantity)
	gw.AssertNumberOfCalls(t, "Generate", 1)
}

func TestProcess_CancelledContextDoesNotRetry(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	gw := new(mocks.MockInferenceGateway)
	gw.On("Generate", mock.Anything, mock.Anything).Return(nil, &inference.InferenceError{
		Attempts: []inference.Attempt{{Candidate: "gemini/gemini-2.0-flash", Err: context.Canceled}},
	})

	res := newScanService(gw, classifier.ModePrompt, nil, nil).Process(ctx, service.ScanInput{
		Image: pngImage, MimeType: "image/png", FormType: domain.FormTypeEquipmentRecord,
	})

	assert.Equal(t, domain.FormTypeGeneric, res.FormType)
	gw.AssertNumberOfCalls(t, "Generate", 1)
}

func TestScan_InputValidation(t *testing.T) {
	svc := newScanService(new(mocks.MockInferenceGateway), classifier.ModePrompt, nil, nil)

	_, err := svc.Scan(context.Background(), service.ScanInput{})
	assert.ErrorIs(t, err, domain.ErrEmptyImage)

	_, err = svc.Scan(context.Background(), service.ScanInput{Image: []byte("%PDF-1.7"), MimeType: "application/pdf"})
	assert.ErrorIs(t, err, domain.ErrUnsupportedMimeType)

	_, err = svc.Scan(context.Background(), service.ScanInput{Image: make([]byte, 2048), MimeType: "image/png"})
	assert.ErrorIs(t, err, domain.ErrImageTooLarge)

	_, err = svc.Classify(context.Background(), service.ScanInput{})
	assert.ErrorIs(t, err, domain.ErrEmptyImage)
}

func TestScan_UploadsAndSaves(t *testing.T) {
	gw := new(mocks.MockInferenceGateway)
	gw.On("Generate", mock.Anything, mock.Anything).Return(answer(`{"header":{"title":"Memo"}}`), nil)

	storage := new(mocks.MockImageStorage)
	storage.On("Upload", mock.Anything, mock.MatchedBy(func(in port.UploadInput) bool {
		return strings.HasPrefix(in.Key, "scans/") && strings.HasSuffix(in.Key, ".png") && in.ContentType == "image/png"
	})).Return(&port.UploadOutput{Location: "s3://bucket/key"}, nil)

	records := new(mocks.MockRecordRepository)
	records.On("Save", mock.Anything, mock.AnythingOfType("*domain.ScanRecord")).Return(nil)

	rec, err := newScanService(gw, classifier.ModePrompt, storage, records).Scan(context.Background(), service.ScanInput{
		Image: pngImage, MimeType: "image/png; charset=binary", FileName: "memo.png",
	})

	require.NoError(t, err)
	assert.Equal(t, "memo.png", rec.FileName)
	assert.Contains(t, rec.ImageKey, rec.ID.String())
	assert.Equal(t, domain.FormTypeGeneric, rec.FormType)

	res, err := rec.Extraction()
	require.NoError(t, err)
	assert.Equal(t, "Memo", res.Form.(*domain.GenericForm).Header.Title)

	storage.AssertExpectations(t)
	records.AssertExpectations(t)
}

func TestScan_StorageFailuresAreNotReturned(t *testing.T) {
	gw := new(mocks.MockInferenceGateway)
	gw.On("Generate", mock.Anything, mock.Anything).Return(nil, failed())

	storage := new(mocks.MockImageStorage)
	storage.On("Upload", mock.Anything, mock.Anything).Return(nil, errors.New("bucket gone"))
	records := new(mocks.MockRecordRepository)
	records.On("Save", mock.Anything, mock.Anything).Return(errors.New("disk full"))

	rec, err := newScanService(gw, classifier.ModePrompt, storage, records).Scan(context.Background(), service.ScanInput{
		Image: pngImage, MimeType: "",
	})

	require.NoError(t, err)
	assert.Empty(t, rec.ImageKey)
	assert.Equal(t, domain.FormTypeGeneric, rec.FormType)
	assert.Equal(t, 0, rec.OverallConfidence)
}
