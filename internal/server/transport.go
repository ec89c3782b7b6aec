package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/nao1215/contactscan/internal/auth"
	"github.com/nao1215/contactscan/internal/model"
	"github.com/nao1215/contactscan/internal/stream"
)

// ExtractPath is the crawl endpoint.
const ExtractPath = "/api/contact-extract"

// maxRequestBody bounds the JSON request body.
const maxRequestBody = 1 << 20

// Wire messages for request errors.
const (
	msgMissingURL   = "Missing url"
	msgInvalidURL   = "Invalid URL"
	msgUnauthorized = "Unauthorized"
)

// Transport handles HTTP requests for crawls.
type Transport struct {
	service    *Service
	authorizer auth.Authorizer
	logger     *slog.Logger
}

// NewTransport returns a Transport. A nil authorizer allows everybody.
func NewTransport(service *Service, authorizer auth.Authorizer, logger *slog.Logger) *Transport {
	if authorizer == nil {
		authorizer = auth.AllowAll{}
	}
	return &Transport{service: service, authorizer: authorizer, logger: logger}
}

// RegisterRoutes attaches the transport's handlers to mux.
func (t *Transport) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST "+ExtractPath, t.handleExtract)
	mux.HandleFunc("GET /healthz", t.handleHealth)
}

type extractRequest struct {
	URL     string `json:"url"`
	Country string `json:"country"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (t *Transport) handleExtract(w http.ResponseWriter, r *http.Request) {
	if !t.authorizer.IsAllowed(r) {
		t.logger.Warn("caller rejected by allowlist",
			"remote_addr", r.RemoteAddr,
			"request_id", RequestIDFromContext(r.Context()),
		)
		renderError(t.logger, w, http.StatusForbidden, msgUnauthorized)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	var body extractRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		renderError(t.logger, w, http.StatusInternalServerError, err.Error())
		return
	}

	req, err := t.service.Prepare(body.URL, body.Country)
	switch {
	case errors.Is(err, model.ErrMissingURL):
		renderError(t.logger, w, http.StatusBadRequest, msgMissingURL)
		return
	case errors.Is(err, model.ErrInvalidURL):
		renderError(t.logger, w, http.StatusBadRequest, msgInvalidURL)
		return
	case err != nil:
		renderError(t.logger, w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", stream.ContentType)
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)

	enc := stream.NewEncoder(w)
	// Errors are logged by the service; the status line is already sent.
	_, _ = t.service.Crawl(r.Context(), req, enc.Encode) //nolint:errcheck
}

func (t *Transport) handleHealth(w http.ResponseWriter, _ *http.Request) {
	renderJSON(t.logger, w, http.StatusOK, map[string]string{"status": "ok"})
}

func renderJSON(logger *slog.Logger, w http.ResponseWriter, status int, data any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(data); err != nil {
		logger.Error("failed to encode response", "error", err)
		http.Error(w, `{"error":"Internal Server Error"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func renderError(logger *slog.Logger, w http.ResponseWriter, status int, message string) {
	renderJSON(logger, w, status, errorResponse{Error: message})
}
