package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/zidesign/catalog/internal/services"
	"github.com/zidesign/catalog/types"
)

// WorkHandler provides HTTP handlers for works.
type WorkHandler struct {
	workService *services.WorkService
	log         logrus.FieldLogger
}

// NewWorkHandler constructs a handler with the provided service.
func NewWorkHandler(workService *services.WorkService, log logrus.FieldLogger) *WorkHandler {
	return &WorkHandler{workService: workService, log: log}
}

// WorksRouter registers work routes. Mutations go through authMiddleware;
// submissions additionally through submitLimiter when it is non-nil.
func WorksRouter(
	r chi.Router,
	handler *WorkHandler,
	authMiddleware func(http.Handler) http.Handler,
	submitLimiter func(http.Handler) http.Handler,
) {
	r.Get("/", handler.ListWorks)
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)
		if submitLimiter != nil {
			r.With(submitLimiter).Post("/", handler.CreateWork)
		} else {
			r.Post("/", handler.CreateWork)
		}
		r.Put("/", handler.UpdateWorkStatus)
		r.Delete("/", handler.DeleteWork)
	})
}

// CreateWorkRequest is the body of POST /works. AuthorID must match the
// token subject; AuthorRole is accepted for compatibility and ignored.
type CreateWorkRequest struct {
	types.WorkInput
	AuthorID   string `json:"author_id"`
	AuthorRole string `json:"author_role,omitempty"`
}

type UpdateWorkStatusRequest struct {
	WorkID string       `json:"work_id"`
	Status types.Status `json:"status"`
}

type WorkResponse struct {
	Work types.Work `json:"work"`
}

type WorkListResponse struct {
	Works []types.Work `json:"works"`
}

func (h *WorkHandler) ListWorks(w http.ResponseWriter, r *http.Request) {
	filter, err := parseWorkFilter(r)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	works, err := h.workService.List(r.Context(), filter)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, WorkListResponse{Works: works})
}

func (h *WorkHandler) CreateWork(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(r.Context())
	if !ok {
		writeUnauthenticated(w)
		return
	}

	var req CreateWorkRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	if authorID := strings.TrimSpace(req.AuthorID); authorID != "" && authorID != actor.ID {
		writeServiceError(w, h.log, fmt.Errorf("%w: author_id does not match the signed-in user", types.ErrUnauthorized))
		return
	}

	work, err := h.workService.Create(r.Context(), req.WorkInput, actor)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, WorkResponse{Work: work})
}

func (h *WorkHandler) UpdateWorkStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(r.Context())
	if !ok {
		writeUnauthenticated(w)
		return
	}

	var req UpdateWorkStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	if strings.TrimSpace(req.WorkID) == "" {
		writeServiceError(w, h.log, fmt.Errorf("%w: work_id is required", types.ErrValidation))
		return
	}
	if !req.Status.Valid() {
		writeServiceError(w, h.log, fmt.Errorf("%w: status is required", types.ErrValidation))
		return
	}

	work, err := h.workService.SetStatus(r.Context(), req.WorkID, req.Status, actor)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, WorkResponse{Work: work})
}

func (h *WorkHandler) DeleteWork(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(r.Context())
	if !ok {
		writeUnauthenticated(w)
		return
	}

	id := strings.TrimSpace(r.URL.Query().Get("id"))
	if id == "" {
		writeServiceError(w, h.log, fmt.Errorf("%w: id is required", types.ErrValidation))
		return
	}

	if err := h.workService.Delete(r.Context(), id, actor); err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func parseWorkFilter(r *http.Request) (types.WorkFilter, error) {
	q := r.URL.Query()
	var filter types.WorkFilter
	if raw := q.Get("status"); raw != "" {
		status, err := types.ParseStatus(raw)
		if err != nil {
			return types.WorkFilter{}, err
		}
		filter.Status = status
	}
	if raw := q.Get("category"); raw != "" {
		category, err := types.ParseCategory(raw)
		if err != nil {
			return types.WorkFilter{}, err
		}
		filter.Category = category
	}
	filter.AuthorID = strings.TrimSpace(q.Get("author_id"))
	return filter, nil
}
