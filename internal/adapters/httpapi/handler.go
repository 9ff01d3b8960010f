package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/atvirokodosprendimai/nbchanges/internal/core/domain"
	"github.com/atvirokodosprendimai/nbchanges/internal/core/usecase"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const requestIDHeader = "X-Request-ID"

// Handler serves a read-only object change log in the shape of the NetBox
// REST API.
type Handler struct {
	changes *usecase.ChangeLogService
	auth    *usecase.AuthService
	log     *zap.Logger
}

func NewHandler(changes *usecase.ChangeLogService, auth *usecase.AuthService, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{changes: changes, auth: auth, log: log}
}

func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestID)
	r.Use(h.accessLog)

	r.Get("/healthz", h.healthz)
	r.Get("/openapi.json", h.openapi)

	r.Group(func(pr chi.Router) {
		pr.Use(h.requireToken)
		pr.Get(domain.ObjectChangesPath, h.listChanges)
	})

	return r
}

type userResponse struct {
	Username string `json:"username"`
	Display  string `json:"display"`
}

type actionResponse struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

type changeResponse struct {
	ID                int64           `json:"id"`
	URL               string          `json:"url"`
	Display           string          `json:"display"`
	Time              *string         `json:"time"`
	User              *userResponse   `json:"user"`
	UserName          string          `json:"user_name"`
	RequestID         *string         `json:"request_id"`
	Action            *actionResponse `json:"action"`
	ChangedObjectType string          `json:"changed_object_type"`
	ChangedObjectID   int64           `json:"changed_object_id"`
	ObjectRepr        string          `json:"object_repr"`
	PrechangeData     map[string]any  `json:"prechange_data"`
	PostchangeData    map[string]any  `json:"postchange_data"`
}

type changeListResponse struct {
	Count    int64            `json:"count"`
	Next     *string          `json:"next"`
	Previous *string          `json:"previous"`
	Results  []changeResponse `json:"results"`
}

func (h *Handler) listChanges(w http.ResponseWriter, r *http.Request) {
	filter, err := parseChangeFilter(r.URL.Query())
	if err != nil {
		handleDomainError(w, err)
		return
	}

	page, err := h.changes.List(r.Context(), filter)
	if err != nil {
		h.log.Error("list changes", zap.Error(err))
		handleDomainError(w, err)
		return
	}

	limit := usecase.PageLimit(filter.Limit)
	resp := changeListResponse{
		Count:   page.Count,
		Results: make([]changeResponse, 0, len(page.Records)),
	}
	if next := filter.Offset + len(page.Records); int64(next) < page.Count {
		resp.Next = pageURL(r, limit, next)
	}
	if filter.Offset > 0 {
		resp.Previous = pageURL(r, limit, max(filter.Offset-limit, 0))
	}
	for _, rec := range page.Records {
		resp.Results = append(resp.Results, toChangeResponse(r, rec))
	}

	writeJSON(w, http.StatusOK, resp)
}

// parseChangeFilter collects every bad parameter before failing so the
// client sees all problems at once.
func parseChangeFilter(q url.Values) (domain.ChangeFilter, error) {
	filter := domain.ChangeFilter{
		Username:   q.Get("user__username"),
		ObjectType: q.Get("changed_object_type"),
		Action:     q.Get("action"),
		RequestID:  q.Get("request_id"),
	}
	problems := map[string]string{}

	intParam := func(name string) int64 {
		raw := strings.TrimSpace(q.Get(name))
		if raw == "" {
			return 0
		}
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			problems[name] = "must be an integer"
			return 0
		}
		if n < 0 {
			problems[name] = "must not be negative"
			return 0
		}
		return n
	}
	timeParam := func(name string) time.Time {
		raw := strings.TrimSpace(q.Get(name))
		if raw == "" {
			return time.Time{}
		}
		t, err := domain.ParseTimestamp(raw)
		if err != nil {
			problems[name] = "enter a valid date/time"
			return time.Time{}
		}
		return t
	}

	filter.ObjectID = intParam("changed_object_id")
	filter.Limit = int(intParam("limit"))
	filter.Offset = int(intParam("offset"))
	filter.Since = timeParam("time__gte")
	filter.Until = timeParam("time__lte")

	switch q.Get("ordering") {
	case "", "-time":
	case "time":
		filter.Ascending = true
	default:
		problems["ordering"] = "supported values are time and -time"
	}

	if len(problems) > 0 {
		return domain.ChangeFilter{}, &domain.FilterError{Fields: problems}
	}
	return filter, nil
}

func toChangeResponse(r *http.Request, rec domain.ChangeRecord) changeResponse {
	resp := changeResponse{
		ID:                rec.ID,
		URL:               requestBase(r) + domain.ObjectChangesPath + strconv.FormatInt(rec.ID, 10) + "/",
		Display:           rec.ObjectRepr,
		Time:              optional(rec.Time),
		UserName:          rec.Username,
		RequestID:         optional(rec.RequestID),
		ChangedObjectType: rec.ObjectType,
		ChangedObjectID:   rec.ObjectID,
		ObjectRepr:        rec.ObjectRepr,
		PrechangeData:     rec.PrechangeData,
		PostchangeData:    rec.PostchangeData,
	}
	if rec.Username != "" {
		resp.User = &userResponse{Username: rec.Username, Display: rec.Username}
	}
	if rec.Action != "" {
		resp.Action = &actionResponse{Value: rec.Action, Label: actionLabel(rec.Action)}
	}
	return resp
}

func actionLabel(action string) string {
	switch action {
	case "create":
		return "Created"
	case "update":
		return "Updated"
	case "delete":
		return "Deleted"
	default:
		return action
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func requestBase(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}

// pageURL rebuilds the request URL with a new window. A zero offset is
// dropped from the query, as NetBox does for the first page.
func pageURL(r *http.Request, limit, offset int) *string {
	q := r.URL.Query()
	q.Set("limit", strconv.Itoa(limit))
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	} else {
		q.Del("offset")
	}
	u := requestBase(r) + r.URL.Path + "?" + q.Encode()
	return &u
}

func (h *Handler) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handler) openapi(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, openapiSpec())
}

// requireToken accepts "Authorization: Token <t>" and rejects everything
// else with 403, matching the NetBox API.
func (h *Handler) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := strings.TrimSpace(r.Header.Get("Authorization"))
		if auth == "" {
			writeDetail(w, http.StatusForbidden, "Authentication credentials were not provided.")
			return
		}

		scheme, token, ok := strings.Cut(auth, " ")
		if !ok || !strings.EqualFold(scheme, "token") {
			writeDetail(w, http.StatusForbidden, "Invalid authorization header.")
			return
		}
		if err := h.auth.Authenticate(token); err != nil {
			writeDetail(w, http.StatusForbidden, "Invalid token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(requestIDHeader, uuid.NewString())
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		h.log.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", ww.Header().Get(requestIDHeader)),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	data, err := json.Marshal(body)
	if err != nil {
		zap.L().Error("encode json response", zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(append(data, '\n')); err != nil {
		zap.L().Warn("write response", zap.Error(err))
	}
}

func writeDetail(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"detail": message})
}

func handleDomainError(w http.ResponseWriter, err error) {
	var filterErr *domain.FilterError
	switch {
	case errors.As(err, &filterErr):
		fields := make(map[string][]string, len(filterErr.Fields))
		for name, problem := range filterErr.Fields {
			fields[name] = []string{problem}
		}
		writeJSON(w, http.StatusBadRequest, fields)
	case errors.Is(err, domain.ErrInvalidFilter):
		writeDetail(w, http.StatusBadRequest, err.Error())
	default:
		writeDetail(w, http.StatusInternalServerError, "internal server error")
	}
}

func openapiSpec() map[string]any {
	params := []map[string]any{}
	for _, name := range []string{
		"user__username", "changed_object_type", "action", "changed_object_id",
		"request_id", "time__gte", "time__lte", "ordering", "limit", "offset",
	} {
		params = append(params, map[string]any{"name": name, "in": "query", "schema": map[string]any{"type": "string"}})
	}
	return map[string]any{
		"openapi": "3.0.3",
		"info": map[string]any{
			"title":   "nbchanges mock",
			"version": "1.0.0",
		},
		"paths": map[string]any{
			domain.ObjectChangesPath: map[string]any{
				"get": map[string]any{
					"summary":    "List object changes",
					"parameters": params,
				},
			},
		},
	}
}
