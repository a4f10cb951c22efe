package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-reader/internal/api/shared"
	"github.com/phrazzld/scry-reader/internal/domain"
	"github.com/phrazzld/scry-reader/internal/platform/logger"
	"github.com/phrazzld/scry-reader/internal/service"
)

// TrackedItems is the service surface the tracked item handler needs.
type TrackedItems interface {
	Link(ctx context.Context, learnerID uuid.UUID, req service.LinkRequest) (*service.LinkResult, error)
	Get(ctx context.Context, learnerID, id uuid.UUID) (*domain.TrackedItem, error)
	List(ctx context.Context, learnerID uuid.UUID) ([]*domain.TrackedItem, error)
	Complete(ctx context.Context, learnerID, id uuid.UUID) (*domain.TrackedItem, error)
	Content(ctx context.Context, learnerID, id uuid.UUID) (*service.ItemContent, error)
	Reminders(ctx context.Context, learnerID, id uuid.UUID) ([]*domain.ReminderTask, error)
	Progress(ctx context.Context, learnerID uuid.UUID) ([]service.ItemProgress, error)
}

var _ TrackedItems = (*service.TrackedItemService)(nil)

// TrackedItemHandler serves the tracked item routes.
type TrackedItemHandler struct {
	items  TrackedItems
	logger *slog.Logger
}

// NewTrackedItemHandler creates a TrackedItemHandler.
func NewTrackedItemHandler(items TrackedItems, logger *slog.Logger) (*TrackedItemHandler, error) {
	if items == nil {
		return nil, errors.New("tracked item service cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	return &TrackedItemHandler{
		items:  items,
		logger: logger.With(slog.String("component", "tracked_item_handler")),
	}, nil
}

// Link handles POST /api/tracked-items.
func (h *TrackedItemHandler) Link(w http.ResponseWriter, r *http.Request) {
	learnerID, ok := requireLearner(w, r)
	if !ok {
		return
	}

	var req LinkTrackedItemRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		HandleAPIError(w, r, errors.Join(domain.ErrValidation, err), "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		HandleValidationError(w, r, err)
		return
	}

	result, err := h.items.Link(r.Context(), learnerID, service.LinkRequest{
		Title:       req.Title,
		Author:      req.Author,
		Description: req.Description,
		Overview:    req.Overview,
	})
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	logger.FromContextOrDefault(r.Context(), h.logger).Info("tracked item linked",
		slog.String("tracked_item_id", result.Item.ID.String()))

	shared.RespondWithJSON(w, r, http.StatusCreated, LinkTrackedItemResponse{
		Item:      trackedItemToResponse(result.Item),
		Reminders: remindersToResponse(result.Reminders),
		Overview:  result.Overview,
	})
}

// List handles GET /api/tracked-items.
func (h *TrackedItemHandler) List(w http.ResponseWriter, r *http.Request) {
	learnerID, ok := requireLearner(w, r)
	if !ok {
		return
	}

	items, err := h.items.List(r.Context(), learnerID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	out := make([]TrackedItemResponse, 0, len(items))
	for _, item := range items {
		out = append(out, trackedItemToResponse(item))
	}
	shared.RespondWithJSON(w, r, http.StatusOK, out)
}

// Get handles GET /api/tracked-items/{id}.
func (h *TrackedItemHandler) Get(w http.ResponseWriter, r *http.Request) {
	learnerID, id, ok := handleLearnerAndPathUUID(w, r, "id")
	if !ok {
		return
	}

	item, err := h.items.Get(r.Context(), learnerID, id)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, trackedItemToResponse(item))
}

// Complete handles POST /api/tracked-items/{id}/complete.
func (h *TrackedItemHandler) Complete(w http.ResponseWriter, r *http.Request) {
	learnerID, id, ok := handleLearnerAndPathUUID(w, r, "id")
	if !ok {
		return
	}

	item, err := h.items.Complete(r.Context(), learnerID, id)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, trackedItemToResponse(item))
}

// Chapters handles GET /api/tracked-items/{id}/chapters. The response holds
// the item's overviews and each chapter with its summary and quiz items.
func (h *TrackedItemHandler) Chapters(w http.ResponseWriter, r *http.Request) {
	learnerID, id, ok := handleLearnerAndPathUUID(w, r, "id")
	if !ok {
		return
	}

	content, err := h.items.Content(r.Context(), learnerID, id)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, content)
}

// Reminders handles GET /api/tracked-items/{id}/reminders.
func (h *TrackedItemHandler) Reminders(w http.ResponseWriter, r *http.Request) {
	learnerID, id, ok := handleLearnerAndPathUUID(w, r, "id")
	if !ok {
		return
	}

	tasks, err := h.items.Reminders(r.Context(), learnerID, id)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, remindersToResponse(tasks))
}

// Progress handles GET /api/progress.
func (h *TrackedItemHandler) Progress(w http.ResponseWriter, r *http.Request) {
	learnerID, ok := requireLearner(w, r)
	if !ok {
		return
	}

	report, err := h.items.Progress(r.Context(), learnerID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	out := make([]ProgressResponse, 0, len(report))
	for _, p := range report {
		out = append(out, ProgressResponse{
			Item:             trackedItemToResponse(p.Item),
			Chapters:         p.Chapters,
			RemindersSent:    p.RemindersSent,
			RemindersPending: p.RemindersPending,
		})
	}
	shared.RespondWithJSON(w, r, http.StatusOK, out)
}
