package main

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/itsatony/go-vizbind"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// server exposes an Engine over HTTP
type server struct {
	engine       *vizbind.Engine
	gatherer     prometheus.Gatherer
	logger       *zap.Logger
	maxBodyBytes int64
}

// renderRequest is the body of POST /v1/render
type renderRequest struct {
	Template string         `json:"template"`
	Data     map[string]any `json:"data"`
}

// storedRenderRequest is the body of POST /v1/templates/{name}/render
type storedRenderRequest struct {
	Data    map[string]any `json:"data"`
	Version int            `json:"version,omitempty"`
}

// errorResponse is the JSON body of every failed request
type errorResponse struct {
	Code     string            `json:"code"`
	Message  string            `json:"message"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// savedResponse is returned after a template is stored
type savedResponse struct {
	ID      vizbind.TemplateID `json:"id"`
	Name    string             `json:"name"`
	Version int                `json:"version"`
}

// newServer builds the HTTP API. Request bodies larger than maxBodyBytes
// are rejected with 413; a non-positive limit selects DefaultMaxBodyBytes.
func newServer(engine *vizbind.Engine, gatherer prometheus.Gatherer, logger *zap.Logger, maxBodyBytes int64) *server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxBodyBytes <= 0 {
		maxBodyBytes = DefaultMaxBodyBytes
	}
	return &server{engine: engine, gatherer: gatherer, logger: logger, maxBodyBytes: maxBodyBytes}
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get(RouteHealth, s.handleHealth)
	r.Method(http.MethodGet, RouteMetrics, promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	r.Group(func(r chi.Router) {
		r.Post(RouteRender, s.handleRender)
		r.Get(RouteFunctions, s.handleFunctions)
		r.Get(RouteTemplates, s.handleListTemplates)
		r.Get(RouteTemplate, s.handleGetTemplate)
		r.Put(RouteTemplate, s.handleSaveTemplate)
		r.Delete(RouteTemplate, s.handleDeleteTemplate)
		r.Post(RouteTemplateRender, s.handleRenderStored)
	})
	return r
}

func (s *server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug(LogMsgRequest,
			zap.String(LogFieldMethod, r.Method),
			zap.String(LogFieldPath, r.URL.Path),
			zap.Int(LogFieldStatus, ww.Status()),
			zap.Duration(LogFieldDuration, time.Since(start)))
	})
}

func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleFunctions(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.engine.Functions())
}

func (s *server) handleRender(w http.ResponseWriter, r *http.Request) {
	var req renderRequest
	if !s.decode(w, r, &req) {
		return
	}
	out, err := s.engine.Render(r.Context(), req.Template, req.Data)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeSVG(w, out)
}

func (s *server) handleRenderStored(w http.ResponseWriter, r *http.Request) {
	var req storedRenderRequest
	if !s.decode(w, r, &req) {
		return
	}

	name := chi.URLParam(r, URLParamName)
	var (
		out string
		err error
	)
	if req.Version > 0 {
		out, err = s.engine.RenderStoredVersion(r.Context(), name, req.Version, req.Data)
	} else {
		out, err = s.engine.RenderStored(r.Context(), name, req.Data)
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeSVG(w, out)
}

func (s *server) handleSaveTemplate(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(s.body(w, r))
	if err != nil {
		s.writeRequestError(w, err)
		return
	}

	tmpl := &vizbind.StoredTemplate{
		Name:      chi.URLParam(r, URLParamName),
		Source:    string(body),
		CreatedBy: r.URL.Query().Get(QueryParamCreatedBy),
		Tags:      r.URL.Query()[QueryParamTag],
	}
	if err := s.engine.SaveTemplate(r.Context(), tmpl); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, savedResponse{ID: tmpl.ID, Name: tmpl.Name, Version: tmpl.Version})
}

func (s *server) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	storage := s.engine.Storage()
	if storage == nil {
		s.writeError(w, vizbind.NewNoStorageError())
		return
	}

	name := chi.URLParam(r, URLParamName)
	var (
		tmpl *vizbind.StoredTemplate
		err  error
	)
	if v := r.URL.Query().Get(QueryParamVersion); v != "" {
		version, convErr := strconv.Atoi(v)
		if convErr != nil {
			s.writeRequestError(w, convErr)
			return
		}
		tmpl, err = storage.GetVersion(r.Context(), name, version)
	} else {
		tmpl, err = storage.Get(r.Context(), name)
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeSVG(w, tmpl.Source)
}

func (s *server) handleDeleteTemplate(w http.ResponseWriter, r *http.Request) {
	storage := s.engine.Storage()
	if storage == nil {
		s.writeError(w, vizbind.NewNoStorageError())
		return
	}

	name := chi.URLParam(r, URLParamName)
	var err error
	if v := r.URL.Query().Get(QueryParamVersion); v != "" {
		version, convErr := strconv.Atoi(v)
		if convErr != nil {
			s.writeRequestError(w, convErr)
			return
		}
		err = storage.DeleteVersion(r.Context(), name, version)
	} else {
		err = storage.Delete(r.Context(), name)
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	storage := s.engine.Storage()
	if storage == nil {
		s.writeError(w, vizbind.NewNoStorageError())
		return
	}

	q := r.URL.Query()
	query := &vizbind.TemplateQuery{
		NamePrefix:         q.Get(QueryParamPrefix),
		NameContains:       q.Get(QueryParamContains),
		CreatedBy:          q.Get(QueryParamCreatedBy),
		Tags:               q[QueryParamTag],
		IncludeAllVersions: q.Get(QueryParamAll) == "true",
	}
	for param, dst := range map[string]*int{QueryParamLimit: &query.Limit, QueryParamOffset: &query.Offset} {
		v := q.Get(param)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.writeRequestError(w, errors.New(param+" must be a non-negative integer"))
			return
		}
		*dst = n
	}

	templates, err := storage.List(r.Context(), query)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if templates == nil {
		templates = []*vizbind.StoredTemplate{}
	}
	s.writeJSON(w, http.StatusOK, templates)
}

// body limits the request body to maxBodyBytes
func (s *server) body(w http.ResponseWriter, r *http.Request) io.Reader {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBodyBytes)
	return r.Body
}

// decode reads a JSON body into dst and writes a 400 on failure
func (s *server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(s.body(w, r))
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		s.writeRequestError(w, err)
		return false
	}
	switch req := dst.(type) {
	case *renderRequest:
		req.Data = normalizeNumbers(req.Data)
	case *storedRenderRequest:
		req.Data = normalizeNumbers(req.Data)
	}
	return true
}

func (s *server) writeSVG(w http.ResponseWriter, svg string) {
	w.Header().Set(HeaderContentType, ContentTypeSVG)
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, svg)
}

func (s *server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set(HeaderContentType, ContentTypeJSON)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn(ErrMsgEncodeFailed, zap.Error(err))
	}
}

// writeRequestError writes a 400, or a 413 when the body exceeded the limit
func (s *server) writeRequestError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		s.writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{
			Code:     ErrCodeRequest,
			Message:  ErrMsgRequestTooLarge,
			Metadata: map[string]string{MetaKeyLimit: strconv.FormatInt(tooLarge.Limit, 10)},
		})
		return
	}
	s.writeJSON(w, http.StatusBadRequest, errorResponse{
		Code:    ErrCodeRequest,
		Message: ErrMsgInvalidRequestBody + ": " + err.Error(),
	})
}

// writeError maps a vizbind error to its HTTP status
func (s *server) writeError(w http.ResponseWriter, err error) {
	code := vizbind.ErrorCode(err)
	status := statusForError(err, code)
	if code == "" {
		code = ErrCodeInternal
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error(LogMsgRequestFailed, zap.String(LogFieldCode, code), zap.Error(err))
	}
	s.writeJSON(w, status, errorResponse{
		Code:     code,
		Message:  err.Error(),
		Metadata: vizbind.ErrorMetadata(err),
	})
}

func statusForError(err error, code string) int {
	switch code {
	case vizbind.ErrCodeParse, vizbind.ErrCodeExpression, vizbind.ErrCodeMaxDepth, vizbind.ErrCodeData:
		return http.StatusBadRequest
	case vizbind.ErrCodeUnresolvedReference, vizbind.ErrCodeInvalidDirectiveType:
		return http.StatusUnprocessableEntity
	case vizbind.ErrCodeSerialize:
		return http.StatusInternalServerError
	case vizbind.ErrCodeStorage:
		switch {
		case vizbind.IsTemplateNotFound(err):
			return http.StatusNotFound
		case errors.Is(err, vizbind.ErrNoStorage):
			return http.StatusNotImplemented
		}
		var se *vizbind.StorageError
		if errors.As(err, &se) && se.Message == vizbind.ErrMsgInvalidTemplateName {
			return http.StatusBadRequest
		}
	}
	return http.StatusInternalServerError
}
