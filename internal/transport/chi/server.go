// Package chi exposes the multisearch action API over HTTP.
package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/multidex/internal/domain"
	"github.com/kailas-cloud/multidex/internal/domain/result"
	"github.com/kailas-cloud/multidex/internal/metrics"
	fieldsuc "github.com/kailas-cloud/multidex/internal/usecase/fields"
	healthuc "github.com/kailas-cloud/multidex/internal/usecase/health"
	multisearchuc "github.com/kailas-cloud/multidex/internal/usecase/multisearch"
	sluguc "github.com/kailas-cloud/multidex/internal/usecase/slug"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

// Server implements the action-style HTTP API.
type Server struct {
	search        *multisearchuc.Service
	slugs         *sluguc.Service
	fields        *fieldsuc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	search *multisearchuc.Service,
	slugs *sluguc.Service,
	fields *fieldsuc.Service,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	s := &Server{
		search: search,
		slugs:  slugs,
		fields: fields,
		health: health,
		logger: logger,
	}
	s.errorHandlers = []errorHandler{
		schemaViolationHandler,
		sentinelHandler(domain.ErrUnsupportedVersion, http.StatusConflict),
		sentinelHandler(domain.ErrQueryTooComplex, http.StatusConflict),
		sentinelHandler(domain.ErrUnknownArea, http.StatusConflict),
		sentinelHandler(domain.ErrNoResources, http.StatusConflict),
		sentinelHandler(domain.ErrSlugNotFound, http.StatusNotFound),
		sentinelHandler(domain.ErrTimeout, http.StatusServiceUnavailable),
		sentinelHandler(domain.ErrBackendUnavailable, http.StatusServiceUnavailable),
	}
	return s
}

// Register mounts the API routes.
func (s *Server) Register(r chi.Router) {
	r.Post("/api/3/action/datastore_multisearch", s.Multisearch)
	r.Post("/api/3/action/datastore_hash_query", s.HashQuery)
	r.Post("/api/3/action/datastore_create_slug", s.CreateSlug)
	r.Post("/api/3/action/datastore_resolve_slug", s.ResolveSlug)
	r.Post("/api/3/action/datastore_field_autocomplete", s.FieldAutocomplete)
	r.Post("/api/3/action/datastore_guess_fields", s.GuessFields)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

type multisearchRequest struct {
	Query            map[string]any   `json:"query"`
	QueryVersion     string           `json:"query_version"`
	ResourceIDs      []string         `json:"resource_ids"`
	ResourceVersions map[string]int64 `json:"resource_ids_and_versions"`
	Version          *int64           `json:"version"`
	Size             *int             `json:"size"`
	After            []any            `json:"after"`
	TopResources     bool             `json:"top_resources"`
}

type recordResponse struct {
	Resource string         `json:"resource"`
	Data     map[string]any `json:"data"`
}

type multisearchResponse struct {
	Total            int              `json:"total"`
	Records          []recordResponse `json:"records"`
	After            []any            `json:"after,omitempty"`
	SkippedResources []string         `json:"skipped_resources,omitempty"`
	FailedResources  []string         `json:"failed_resources,omitempty"`
	TopResources     []map[string]int `json:"top_resources,omitempty"`
}

// Multisearch handles POST /api/3/action/datastore_multisearch.
func (s *Server) Multisearch(w http.ResponseWriter, r *http.Request) {
	var req multisearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error(), "")
		return
	}

	start := time.Now()
	page, err := s.search.Search(r.Context(), multisearchuc.Request{
		Query:            req.Query,
		QueryVersion:     req.QueryVersion,
		Resources:        req.ResourceIDs,
		ResourceVersions: req.ResourceVersions,
		Version:          req.Version,
		Size:             req.Size,
		After:            req.After,
		TopResources:     req.TopResources,
	})
	metrics.SearchDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.SearchRequestsTotal.WithLabelValues("error").Inc()
		s.handleDomainError(w, err)
		return
	}

	status := "ok"
	if len(page.FailedResources) > 0 {
		status = "degraded"
	}
	metrics.SearchRequestsTotal.WithLabelValues(status).Inc()

	writeResult(w, http.StatusOK, pageToResponse(page))
}

func pageToResponse(page *result.Page) multisearchResponse {
	records := make([]recordResponse, len(page.Records))
	for i, rec := range page.Records {
		records[i] = recordResponse{Resource: rec.Resource(), Data: rec.Data()}
	}

	resp := multisearchResponse{
		Total:            page.Total,
		Records:          records,
		After:            page.After,
		SkippedResources: page.SkippedResources,
	}
	for _, f := range page.FailedResources {
		resp.FailedResources = append(resp.FailedResources, f.Resource)
	}
	for _, tc := range page.TopResources {
		resp.TopResources = append(resp.TopResources, map[string]int{tc.Resource: tc.Count})
	}
	return resp
}

type hashQueryRequest struct {
	Query        map[string]any `json:"query"`
	QueryVersion string         `json:"query_version"`
}

// HashQuery handles POST /api/3/action/datastore_hash_query.
func (s *Server) HashQuery(w http.ResponseWriter, r *http.Request) {
	var req hashQueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error(), "")
		return
	}

	doc := req.Query
	if doc == nil {
		doc = map[string]any{}
	}
	hash, err := s.search.HashQuery(r.Context(), doc, req.QueryVersion)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeResult(w, http.StatusOK, hash)
}

type createSlugRequest struct {
	Query        map[string]any `json:"query"`
	QueryVersion string         `json:"query_version"`
	ResourceIDs  []string       `json:"resource_ids"`
	Version      *int64         `json:"version"`
	PrettySlug   *bool          `json:"pretty_slug"`
}

// CreateSlug handles POST /api/3/action/datastore_create_slug.
func (s *Server) CreateSlug(w http.ResponseWriter, r *http.Request) {
	var req createSlugRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error(), "")
		return
	}

	pretty := true
	if req.PrettySlug != nil {
		pretty = *req.PrettySlug
	}

	sl, err := s.slugs.Create(r.Context(), sluguc.CreateRequest{
		Query:        req.Query,
		QueryVersion: req.QueryVersion,
		Resources:    req.ResourceIDs,
		Version:      req.Version,
		PrettySlug:   pretty,
	})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeResult(w, http.StatusOK, map[string]any{
		"slug":   sl.Name,
		"is_new": sl.IsNew,
	})
}

type resolveSlugRequest struct {
	Slug string `json:"slug"`
}

// ResolveSlug handles POST /api/3/action/datastore_resolve_slug.
func (s *Server) ResolveSlug(w http.ResponseWriter, r *http.Request) {
	var req resolveSlugRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error(), "")
		return
	}
	if req.Slug == "" {
		writeError(w, http.StatusBadRequest, "slug is required", "/slug")
		return
	}

	rec, err := s.slugs.Resolve(r.Context(), req.Slug)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	resp := map[string]any{
		"query":         rec.Query,
		"query_version": rec.Version,
		"resource_ids":  rec.Resources,
		"created":       time.UnixMilli(rec.CreatedAt).UTC().Format(time.RFC3339),
	}
	if rec.VersionTS != nil {
		resp["version"] = *rec.VersionTS
	}

	writeResult(w, http.StatusOK, resp)
}

type fieldAutocompleteRequest struct {
	Text        string   `json:"text"`
	ResourceIDs []string `json:"resource_ids"`
	Lowercase   bool     `json:"lowercase"`
}

// FieldAutocomplete handles POST /api/3/action/datastore_field_autocomplete.
func (s *Server) FieldAutocomplete(w http.ResponseWriter, r *http.Request) {
	var req fieldAutocompleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error(), "")
		return
	}

	matches, err := s.fields.Autocomplete(r.Context(), fieldsuc.AutocompleteRequest{
		Text:      req.Text,
		Resources: req.ResourceIDs,
		Lowercase: req.Lowercase,
	})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	fields := make(map[string]map[string]string, len(matches))
	for _, m := range matches {
		fields[m.Field] = m.Types
	}
	writeResult(w, http.StatusOK, map[string]any{
		"count":  len(matches),
		"fields": fields,
	})
}

type guessFieldsRequest struct {
	Query        map[string]any `json:"query"`
	QueryVersion string         `json:"query_version"`
	ResourceIDs  []string       `json:"resource_ids"`
	Size         int            `json:"size"`
	IgnoreGroups []string       `json:"ignore_groups"`
}

type fieldGroupResponse struct {
	Group  string            `json:"group"`
	Count  int               `json:"count"`
	Fields map[string]string `json:"fields"`
}

// GuessFields handles POST /api/3/action/datastore_guess_fields.
func (s *Server) GuessFields(w http.ResponseWriter, r *http.Request) {
	var req guessFieldsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error(), "")
		return
	}

	groups, err := s.fields.Guess(r.Context(), fieldsuc.GuessRequest{
		Query:        req.Query,
		QueryVersion: req.QueryVersion,
		Resources:    req.ResourceIDs,
		Size:         req.Size,
		IgnoreGroups: req.IgnoreGroups,
	})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	resp := make([]fieldGroupResponse, len(groups))
	for i, g := range groups {
		resp[i] = fieldGroupResponse{Group: g.Name, Count: g.Count, Fields: g.Fields}
	}
	writeResult(w, http.StatusOK, resp)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, map[string]any{
		"status": report.Status,
		"checks": report.Checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

type apiError struct {
	Message string `json:"message"`
	Path    string `json:"path,omitempty"`
}

type envelope struct {
	Success bool      `json:"success"`
	Result  any       `json:"result,omitempty"`
	Error   *apiError `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeResult(w http.ResponseWriter, status int, v any) {
	writeJSON(w, status, envelope{Success: true, Result: v})
}

func writeError(w http.ResponseWriter, status int, message, path string) {
	writeJSON(w, status, envelope{Success: false, Error: &apiError{Message: message, Path: path}})
}

// sentinelHandler returns an errorHandler that matches a single sentinel
// error. Client errors (4xx) carry the full message, which is built from
// request input; server errors expose only the sentinel text.
func sentinelHandler(sentinel error, status int) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		msg := sentinel.Error()
		if status < http.StatusInternalServerError {
			msg = err.Error()
		}
		writeError(w, status, msg, "")
		return true
	}
}

// schemaViolationHandler surfaces the document path of a grammar violation.
func schemaViolationHandler(w http.ResponseWriter, err error) bool {
	var sv *domain.SchemaViolationError
	if errors.As(err, &sv) {
		writeError(w, http.StatusConflict, sv.Reason, sv.Path)
		return true
	}
	if errors.Is(err, domain.ErrSchemaViolation) {
		writeError(w, http.StatusConflict, err.Error(), "")
		return true
	}
	return false
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("request failed", zap.Error(err))
	for _, h := range s.errorHandlers {
		if h(w, err) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal error", "")
}
