// Package api exposes HTTP handlers for the progression service.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	"example.com/pushups/internal/auth"
	"example.com/pushups/internal/domain"
	"example.com/pushups/internal/persistence"
)

const (
	defaultPageSize = 30
	maxPageSize     = 100
)

// Handler coordinates HTTP requests with the domain service.
type Handler struct {
	service  *domain.Service
	validate *validator.Validate
}

// NewHandler builds a Handler.
func NewHandler(service *domain.Service) *Handler {
	return &Handler{service: service, validate: validator.New()}
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/users", h.register)
	mux.HandleFunc("GET /v1/users/{id}", h.getUser)
	mux.HandleFunc("POST /v1/users/{id}/task", h.requestTask)
	mux.HandleFunc("POST /v1/users/{id}/complete", h.complete)
	mux.HandleFunc("POST /v1/users/{id}/skip", h.skip)
	mux.HandleFunc("PUT /v1/users/{id}/level", h.setLevel)
	mux.HandleFunc("GET /v1/users/{id}/today", h.today)
	mux.HandleFunc("GET /v1/users/{id}/stats", h.stats)
	mux.HandleFunc("GET /v1/users/{id}/activities", h.history)
	mux.HandleFunc("GET /healthz", healthz)
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !h.decode(w, r, &req) {
		return
	}
	if !authorize(w, r, req.ID, auth.ScopeProgressWrite) {
		return
	}

	user, err := h.service.Register(r.Context(), req.ID, req.Name)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserView(*user))
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	id, ok := userIDParam(w, r)
	if !ok || !authorize(w, r, id, auth.ScopeProgressRead) {
		return
	}

	user, err := h.service.GetUser(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserView(*user))
}

func (h *Handler) requestTask(w http.ResponseWriter, r *http.Request) {
	id, ok := userIDParam(w, r)
	if !ok || !authorize(w, r, id, auth.ScopeProgressWrite) {
		return
	}

	task, err := h.service.GenerateTask(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, TaskView{
		UserID:  task.UserID,
		Amount:  task.Amount,
		Level:   task.Level,
		Date:    task.Date.Format(dateLayout),
		Message: domain.MotivationalMessage(nil),
	})
}

func (h *Handler) complete(w http.ResponseWriter, r *http.Request) {
	id, ok := userIDParam(w, r)
	if !ok || !authorize(w, r, id, auth.ScopeProgressWrite) {
		return
	}

	var req CompleteRequest
	if !h.decode(w, r, &req) {
		return
	}

	outcome, err := h.service.Complete(r.Context(), id, *req.Amount)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOutcomeView(*outcome))
}

func (h *Handler) skip(w http.ResponseWriter, r *http.Request) {
	id, ok := userIDParam(w, r)
	if !ok || !authorize(w, r, id, auth.ScopeProgressWrite) {
		return
	}

	outcome, err := h.service.Skip(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOutcomeView(*outcome))
}

func (h *Handler) setLevel(w http.ResponseWriter, r *http.Request) {
	id, ok := userIDParam(w, r)
	if !ok || !authorize(w, r, id, auth.ScopeProgressWrite) {
		return
	}

	var req SetLevelRequest
	if !h.decode(w, r, &req) {
		return
	}

	user, err := h.service.SetLevel(r.Context(), id, req.Level)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserView(*user))
}

func (h *Handler) today(w http.ResponseWriter, r *http.Request) {
	id, ok := userIDParam(w, r)
	if !ok || !authorize(w, r, id, auth.ScopeProgressRead) {
		return
	}

	progress, err := h.service.Progress(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	remaining := progress.Remaining()
	if remaining < 0 {
		remaining = 0
	}
	writeJSON(w, http.StatusOK, TodayView{
		UserID:    id,
		Date:      h.service.Today().Format(dateLayout),
		Done:      progress.Done,
		Goal:      progress.Goal(),
		Remaining: remaining,
		GoalMet:   progress.GoalMet(),
	})
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	id, ok := userIDParam(w, r)
	if !ok || !authorize(w, r, id, auth.ScopeProgressRead) {
		return
	}

	stats, err := h.service.Stats(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toStatsView(*stats))
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	id, ok := userIDParam(w, r)
	if !ok || !authorize(w, r, id, auth.ScopeProgressRead) {
		return
	}

	limit := defaultPageSize
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = min(parsed, maxPageSize)
		}
	}

	cursor, err := persistence.DecodeCursor(r.URL.Query().Get("cursor"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "invalid cursor")
		return
	}

	records, next, err := h.service.History(r.Context(), id, cursor, limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	items := make([]RecordView, 0, len(records))
	for _, rec := range records {
		items = append(items, toRecordView(rec))
	}
	writeJSON(w, http.StatusOK, ListRecordsResponse{
		Items:      items,
		NextCursor: persistence.EncodeCursor(next),
	})
}

// decode parses the JSON body into dst and runs struct validation. It writes the error response
// and returns false on failure.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			writeError(w, http.StatusBadRequest, "validation_failed", fe.Field()+" failed "+fe.Tag()+" validation")
			return false
		}
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return false
	}
	return true
}

func userIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid user id")
		return 0, false
	}
	return id, true
}

// authorize checks the caller's token for scope and ownership of userID. Write scope implies read.
func authorize(w http.ResponseWriter, r *http.Request, userID int64, scope string) bool {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return false
	}
	if !claims.HasScope(scope) && !(scope == auth.ScopeProgressRead && claims.HasScope(auth.ScopeProgressWrite)) {
		writeError(w, http.StatusForbidden, "forbidden", "scope "+scope+" required")
		return false
	}
	if !claims.CanAccess(userID) {
		writeError(w, http.StatusForbidden, "forbidden", "token does not grant access to this user")
		return false
	}
	return true
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "not_found", "user not found")
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
	case errors.Is(err, domain.ErrStoreUnavailable):
		writeError(w, http.StatusServiceUnavailable, "store_unavailable", "record store unavailable, retry later")
	default:
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
	}
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
