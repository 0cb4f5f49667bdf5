package handler

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"formscan/internal/domain"
	"formscan/internal/export"
	"formscan/internal/middleware"
	"formscan/internal/service"
)

const imageField = "image"

// ScanHandler handles scanning and saved-scan endpoints.
type ScanHandler struct {
	scans    service.ScanService
	records  service.RecordService
	maxBytes int64
}

// NewScanHandler creates a new ScanHandler. maxBytes bounds the uploaded
// image; 0 disables the check here and leaves it to the service.
func NewScanHandler(scans service.ScanService, records service.RecordService, maxBytes int64) *ScanHandler {
	return &ScanHandler{scans: scans, records: records, maxBytes: maxBytes}
}

// readInput pulls the image and optional form_type out of a multipart
// request. It writes the error response itself and reports false on failure.
func (h *ScanHandler) readInput(c *gin.Context) (service.ScanInput, bool) {
	file, header, err := c.Request.FormFile(imageField)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "MISSING_IMAGE", "image field is required")
		return service.ScanInput{}, false
	}
	defer func() { _ = file.Close() }()

	if h.maxBytes > 0 && header.Size > h.maxBytes {
		HandleError(c, domain.ErrImageTooLarge)
		return service.ScanInput{}, false
	}

	var r io.Reader = file
	if h.maxBytes > 0 {
		r = io.LimitReader(file, h.maxBytes+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		log.Printf("scanHandler.readInput: reading upload %q: %v", header.Filename, err)
		RespondError(c, http.StatusBadRequest, "UNREADABLE_IMAGE", "image could not be read")
		return service.ScanInput{}, false
	}
	if h.maxBytes > 0 && int64(len(data)) > h.maxBytes {
		HandleError(c, domain.ErrImageTooLarge)
		return service.ScanInput{}, false
	}

	input := service.ScanInput{
		Image:    data,
		MimeType: header.Header.Get("Content-Type"),
		FileName: header.Filename,
	}
	if ft := strings.TrimSpace(c.PostForm("form_type")); ft != "" {
		input.FormType = domain.FormType(strings.ToUpper(ft))
		if !input.FormType.Valid() {
			HandleError(c, fmt.Errorf("%w: %q", domain.ErrUnknownFormType, ft))
			return service.ScanInput{}, false
		}
	}
	return input, true
}

// Scan handles POST /api/v1/scans
// Runs the full pipeline on the uploaded image and saves the record.
func (h *ScanHandler) Scan(c *gin.Context) {
	input, ok := h.readInput(c)
	if !ok {
		return
	}

	rec, err := h.scans.Scan(c.Request.Context(), input)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondCreated(c, rec)
}

// Classify handles POST /api/v1/scans/classify
func (h *ScanHandler) Classify(c *gin.Context) {
	input, ok := h.readInput(c)
	if !ok {
		return
	}

	cls, err := h.scans.Classify(c.Request.Context(), input)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, cls)
}

// List handles GET /api/v1/scans
func (h *ScanHandler) List(c *gin.Context) {
	recs, err := h.records.List(c.Request.Context())
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, recs)
}

// Get handles GET /api/v1/scans/:id
func (h *ScanHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	rec, err := h.records.Get(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, rec)
}

// Image handles GET /api/v1/scans/:id/image
// Redirects to a short-lived URL for the source image.
func (h *ScanHandler) Image(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	rec, err := h.records.Get(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}
	url, err := h.records.ImageURL(c.Request.Context(), rec)
	if err != nil {
		HandleError(c, err)
		return
	}
	c.Redirect(http.StatusFound, url)
}

type deleteRequest struct {
	IDs []uuid.UUID `json:"ids" binding:"required"`
}

// Delete handles POST /api/v1/scans/delete
func (h *ScanHandler) Delete(c *gin.Context) {
	var req deleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "body must be {\"ids\": [uuid, ...]}")
		return
	}

	n, err := h.records.DeleteMany(c.Request.Context(), req.IDs)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, gin.H{"deleted": n})
}

// Export handles GET /api/v1/scans/export?format=csv|xlsx
// The file is built in memory so a failure can still be reported as JSON.
func (h *ScanHandler) Export(c *gin.Context) {
	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		HandleError(c, err)
		return
	}

	var buf bytes.Buffer
	if err := h.records.Export(c.Request.Context(), format, &buf); err != nil {
		HandleError(c, err)
		return
	}

	filename := export.BuildFilename("formscan_scans", format, time.Now())
	log.Printf("[%s] scanHandler.Export: %s, %d bytes", middleware.GetRequestID(c), filename, buf.Len())
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, export.ContentType(format), buf.Bytes())
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid record id")
		return uuid.Nil, false
	}
	return id, true
}
