package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/maauso/make-video-api/internal/video"
	"github.com/maauso/make-video-api/internal/video/id"
)

// Error messages that are part of the HTTP contract.
const (
	msgMissingFields    = "Missing required fields: imageUrl and audioUrl are required"
	msgGenerateFailed   = "Failed to generate video"
	msgMethodNotAllowed = "Method not allowed"
	msgInvalidJSON      = "Invalid JSON body"
	msgBodyTooLarge     = "Request body too large"
)

// defaultMaxBodyBytes caps the JSON request body.
const defaultMaxBodyBytes = 1 << 20

// requestIDHeader carries the render ID on every POST response.
const requestIDHeader = "X-Request-ID"

// Renderer produces a video for a request.
type Renderer interface {
	Render(ctx context.Context, req video.Request) (*video.Result, error)
}

// Handlers contains the HTTP handlers for the API.
type Handlers struct {
	renderer     Renderer
	validator    *validator.Validate
	logger       *slog.Logger
	maxBodyBytes int64
	newID        func() string
}

// HandlerOption is a function that configures a Handlers instance.
type HandlerOption func(*Handlers)

// WithMaxBodyBytes limits the size of the request body.
func WithMaxBodyBytes(n int64) HandlerOption {
	return func(h *Handlers) {
		if n > 0 {
			h.maxBodyBytes = n
		}
	}
}

// WithRequestIDGenerator overrides how request IDs are generated.
func WithRequestIDGenerator(fn func() string) HandlerOption {
	return func(h *Handlers) {
		if fn != nil {
			h.newID = fn
		}
	}
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(renderer Renderer, logger *slog.Logger, opts ...HandlerOption) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handlers{
		renderer:     renderer,
		validator:    validator.New(),
		logger:       logger,
		maxBodyBytes: defaultMaxBodyBytes,
		newID:        id.Generate,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Health handles GET /health requests.
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// MakeVideo renders a video from an image URL and an audio URL and returns
// it as an attachment. OPTIONS is answered with 200 for preflight callers;
// methods other than POST get 405.
func (h *Handlers) MakeVideo(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodOptions:
		// Without CORSMiddleware in front, answer preflight with the open policy.
		if w.Header().Get("Access-Control-Allow-Origin") == "" {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}
		setCORSHeaders(w.Header())
		w.WriteHeader(http.StatusOK)
		return
	case http.MethodPost:
	default:
		writeError(w, http.StatusMethodNotAllowed, msgMethodNotAllowed, "")
		return
	}

	requestID := h.newID()
	w.Header().Set(requestIDHeader, requestID)
	logger := h.logger.With(slog.String("request_id", requestID))

	var req MakeVideoRequest
	body := http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	// An empty body decodes to the zero request and fails validation below.
	if err := json.NewDecoder(body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		logger.Warn("failed to decode request body",
			slog.String("error", err.Error()),
		)
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, msgBodyTooLarge, "")
			return
		}
		writeError(w, http.StatusBadRequest, msgInvalidJSON, "")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		logger.Warn("request validation failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, msgMissingFields, "")
		return
	}

	vreq := req.toVideoRequest()
	vreq.ID = requestID
	result, err := h.renderer.Render(r.Context(), vreq)
	if err != nil {
		if errors.Is(err, video.ErrInvalidRequest) {
			writeError(w, http.StatusBadRequest, msgMissingFields, "")
			return
		}
		logger.Error("error generating video",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, msgGenerateFailed, err.Error())
		return
	}

	w.Header().Set("Content-Type", result.ContentType)
	w.Header().Set("Content-Disposition", attachment(result.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(result.Data)))
	if result.ArchiveURL != "" {
		w.Header().Set("X-Video-URL", result.ArchiveURL)
	}
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(result.Data); err != nil {
		logger.Warn("failed to write video response",
			slog.String("error", err.Error()),
		)
	}
}

// attachment formats a Content-Disposition value with a quoted filename.
func attachment(filename string) string {
	var b strings.Builder
	for _, r := range filename {
		switch {
		case r == '"' || r == '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		case r < 0x20 || r == 0x7f:
			// Control characters cannot appear in a header value.
		default:
			b.WriteRune(r)
		}
	}
	return `attachment; filename="` + b.String() + `"`
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// writeError writes an error response in the standard format.
func writeError(w http.ResponseWriter, status int, message, details string) {
	writeJSON(w, status, ErrorResponse{
		Error:   message,
		Details: details,
	})
}
