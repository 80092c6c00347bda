package handlers

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/ekaya-inc/sqlparams/pkg/auth"
	"github.com/ekaya-inc/sqlparams/pkg/jsonutil"
	"github.com/ekaya-inc/sqlparams/pkg/logging"
	"github.com/ekaya-inc/sqlparams/pkg/models"
	"github.com/ekaya-inc/sqlparams/pkg/services"
	sqlparams "github.com/ekaya-inc/sqlparams/pkg/sql"
	"github.com/ekaya-inc/sqlparams/pkg/templates"
)

// maxRequestBody bounds request bodies independently of the template limit so
// an oversized body is rejected before decoding.
const maxRequestBody = 4 << 20

// SQLRequest is the body of the /api/sql endpoints.
type SQLRequest struct {
	SQL         string                   `json:"sql"`
	Parameters  jsonutil.ParameterValues `json:"parameters,omitempty"`
	QuoteValues bool                     `json:"quote_values,omitempty"`
}

// TemplateProcessRequest is the body of POST /api/templates/{name}/process.
type TemplateProcessRequest struct {
	Parameters  jsonutil.ParameterValues `json:"parameters,omitempty"`
	QuoteValues bool                     `json:"quote_values,omitempty"`
}

// ParametersResponse lists extracted parameter descriptors.
type ParametersResponse struct {
	Parameters []models.SQLParameter `json:"parameters"`
}

// ValidateResponse reports problems found by validation.
type ValidateResponse struct {
	Valid    bool                         `json:"valid"`
	Problems []sqlparams.ParameterProblem `json:"problems"`
}

// TemplateListResponse lists library templates.
type TemplateListResponse struct {
	Templates []*services.TemplateDetail `json:"templates"`
}

// SQLTemplatesHandler serves template extraction and processing.
type SQLTemplatesHandler struct {
	service services.TemplateService
	logger  *zap.Logger
}

// NewSQLTemplatesHandler creates a new handler.
func NewSQLTemplatesHandler(service services.TemplateService, logger *zap.Logger) *SQLTemplatesHandler {
	return &SQLTemplatesHandler{service: service, logger: logger}
}

// RegisterRoutes registers the /api routes. authMiddleware may be nil when
// authentication is not required.
func (h *SQLTemplatesHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	protect := func(fn http.HandlerFunc) http.Handler {
		if authMiddleware == nil {
			return fn
		}
		return authMiddleware.RequireAuth(fn)
	}

	mux.Handle("POST /api/sql/parameters", protect(h.ExtractParameters))
	mux.Handle("POST /api/sql/process", protect(h.Process))
	mux.Handle("POST /api/sql/validate", protect(h.Validate))

	mux.Handle("GET /api/templates", protect(h.ListTemplates))
	mux.Handle("GET /api/templates/{name}/parameters", protect(h.TemplateParameters))
	mux.Handle("POST /api/templates/{name}/process", protect(h.ProcessTemplate))
}

// ExtractParameters handles POST /api/sql/parameters
func (h *SQLTemplatesHandler) ExtractParameters(w http.ResponseWriter, r *http.Request) {
	var req SQLRequest
	if !h.decode(w, r, &req) {
		return
	}

	params, err := h.service.Extract(r.Context(), req.SQL)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.write(w, http.StatusOK, ParametersResponse{Parameters: nonNil(params)})
}

// Process handles POST /api/sql/process
func (h *SQLTemplatesHandler) Process(w http.ResponseWriter, r *http.Request) {
	var req SQLRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.service.Process(r.Context(), &services.ProcessRequest{
		SQL:         req.SQL,
		Parameters:  req.Parameters,
		QuoteValues: req.QuoteValues,
		ClientIP:    clientIP(r),
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	result.Parameters = nonNil(result.Parameters)
	h.write(w, http.StatusOK, result)
}

// Validate handles POST /api/sql/validate
func (h *SQLTemplatesHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req SQLRequest
	if !h.decode(w, r, &req) {
		return
	}

	err := h.service.Validate(r.Context(), req.SQL, req.Parameters)
	var vErr *sqlparams.ValidationError
	switch {
	case err == nil:
		h.write(w, http.StatusOK, ValidateResponse{Valid: true, Problems: []sqlparams.ParameterProblem{}})
	case errors.As(err, &vErr):
		h.write(w, http.StatusOK, ValidateResponse{Valid: false, Problems: vErr.Problems})
	default:
		h.writeServiceError(w, err)
	}
}

// ListTemplates handles GET /api/templates
func (h *SQLTemplatesHandler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListTemplates(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.write(w, http.StatusOK, TemplateListResponse{Templates: list})
}

// TemplateParameters handles GET /api/templates/{name}/parameters
func (h *SQLTemplatesHandler) TemplateParameters(w http.ResponseWriter, r *http.Request) {
	detail, err := h.service.GetTemplate(r.Context(), r.PathValue("name"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.write(w, http.StatusOK, ParametersResponse{Parameters: nonNil(detail.Parameters)})
}

// ProcessTemplate handles POST /api/templates/{name}/process
func (h *SQLTemplatesHandler) ProcessTemplate(w http.ResponseWriter, r *http.Request) {
	var req TemplateProcessRequest
	if r.ContentLength != 0 && !h.decode(w, r, &req) {
		return
	}

	result, err := h.service.ProcessTemplate(r.Context(), r.PathValue("name"), &services.ProcessRequest{
		Parameters:  req.Parameters,
		QuoteValues: req.QuoteValues,
		ClientIP:    clientIP(r),
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	result.Parameters = nonNil(result.Parameters)
	h.write(w, http.StatusOK, result)
}

func (h *SQLTemplatesHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(w, http.StatusRequestEntityTooLarge, "template_too_large", "Request body too large", nil)
			return false
		}
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request body: "+err.Error(), nil)
		return false
	}
	return true
}

// writeServiceError maps service errors to HTTP status codes.
func (h *SQLTemplatesHandler) writeServiceError(w http.ResponseWriter, err error) {
	var missing *sqlparams.MissingParameterError
	var injection *services.InjectionError

	switch {
	case errors.As(err, &missing):
		h.writeError(w, http.StatusUnprocessableEntity, "missing_parameter", err.Error(),
			map[string]any{"parameter": missing.Name})
	case errors.As(err, &injection):
		h.writeError(w, http.StatusUnprocessableEntity, "injection_detected", err.Error(),
			map[string]any{"parameters": injection.Params()})
	case errors.Is(err, services.ErrTemplateTooLarge):
		h.writeError(w, http.StatusRequestEntityTooLarge, "template_too_large", err.Error(), nil)
	case errors.Is(err, templates.ErrTemplateNotFound):
		h.writeError(w, http.StatusNotFound, "template_not_found", err.Error(), nil)
	default:
		h.logger.Error("Template request failed", zap.String("error", logging.SanitizeError(err)))
		h.writeError(w, http.StatusInternalServerError, "internal_error", "Internal server error", nil)
	}
}

func (h *SQLTemplatesHandler) writeError(w http.ResponseWriter, status int, code, message string, details map[string]any) {
	if err := ErrorResponseWithDetails(w, status, code, message, details); err != nil {
		h.logger.Error("Failed to write error response", zap.Error(err))
	}
}

func (h *SQLTemplatesHandler) write(w http.ResponseWriter, status int, data any) {
	if err := WriteJSON(w, status, data); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// clientIP prefers the first X-Forwarded-For hop, then RemoteAddr.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func nonNil(params []models.SQLParameter) []models.SQLParameter {
	if params == nil {
		return []models.SQLParameter{}
	}
	return params
}
