package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"affiliate-sales-api/internal/models"
	"affiliate-sales-api/internal/parser"
	"affiliate-sales-api/internal/service"
	"affiliate-sales-api/internal/validation"
)

// Handler provides HTTP handlers for the API.
type Handler struct {
	service     *service.Service
	maxBodySize int64
}

// NewHandlerOptions holds options for creating a handler.
type NewHandlerOptions struct {
	MaxBodySize int64
}

// DefaultHandlerOptions returns default handler options.
func DefaultHandlerOptions() NewHandlerOptions {
	return NewHandlerOptions{
		MaxBodySize: 10 << 20, // 10MB default
	}
}

// NewHandler creates a new handler instance.
func NewHandler(svc *service.Service) *Handler {
	return NewHandlerWithOptions(svc, DefaultHandlerOptions())
}

// NewHandlerWithOptions creates a new handler instance with custom options.
func NewHandlerWithOptions(svc *service.Service, opts NewHandlerOptions) *Handler {
	return &Handler{
		service:     svc,
		maxBodySize: opts.MaxBodySize,
	}
}

// UploadTransactionFile handles POST /transaction/upload. The file arrives as
// the multipart form field "file"; a processed upload answers 201 with no
// body.
func (h *Handler) UploadTransactionFile(w http.ResponseWriter, r *http.Request) {
	// Limit request body size to prevent abuse
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)

	file, header, err := r.FormFile("file")
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "multipart field 'file' is required")
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "failed to read uploaded file")
		return
	}

	filename := validation.SanitizeFilename(header.Filename)
	if err := h.service.ProcessTransactionFile(r.Context(), string(content), filename); err != nil {
		h.respondIngestionError(w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
}

// GetTransactions handles GET /transaction and returns transactions grouped
// by seller with signed earnings totals.
func (h *Handler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.service.GetSellerSummaries(r.Context())
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.respondJSON(w, http.StatusOK, summaries)
}

// respondIngestionError maps the ingestion error taxonomy to status codes:
// empty or invalid uploads are 400, lines that fail decoding or type mapping
// are 422, anything else is a 500.
func (h *Handler) respondIngestionError(w http.ResponseWriter, err error) {
	var (
		emptyInput  *parser.EmptyInputError
		malformed   *parser.MalformedLineError
		unknownType *parser.UnknownTransactionTypeError
		invalid     *validation.ValidationError
	)

	switch {
	case errors.As(err, &emptyInput), errors.As(err, &invalid):
		h.respondError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &malformed), errors.As(err, &unknownType):
		h.respondError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		h.respondError(w, http.StatusInternalServerError, err.Error())
	}
}

// respondJSON sends a JSON response with the given status code.
func (h *Handler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response with the given status code and message.
func (h *Handler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, models.ErrorResponse{Error: message})
}
