package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-reader/internal/api/shared"
	"github.com/phrazzld/scry-reader/internal/domain"
	"github.com/phrazzld/scry-reader/internal/events"
	"github.com/phrazzld/scry-reader/internal/extract"
	"github.com/phrazzld/scry-reader/internal/platform/blob"
	"github.com/phrazzld/scry-reader/internal/platform/logger"
	"github.com/phrazzld/scry-reader/internal/service"
	"github.com/phrazzld/scry-reader/internal/task"
)

// multipartMemory is how much of an upload is buffered in memory before
// spilling to a temporary file.
const multipartMemory = 8 << 20

// IngestionGate claims a tracked item for a document run and releases it
// when the run could not be queued.
type IngestionGate interface {
	BeginIngestion(ctx context.Context, learnerID, id uuid.UUID) (*domain.TrackedItem, error)
	AbortIngestion(ctx context.Context, learnerID, id uuid.UUID) error
}

var _ IngestionGate = (*service.TrackedItemService)(nil)

// FormatChecker reports whether a filename has a supported document format.
type FormatChecker interface {
	Supports(filename string) bool
	Formats() []string
}

var _ FormatChecker = (*extract.Registry)(nil)

// DocumentHandler accepts document uploads for tracked items.
type DocumentHandler struct {
	gate     IngestionGate
	blobs    blob.Store
	formats  FormatChecker
	emitter  events.EventEmitter
	maxBytes int64
	logger   *slog.Logger
}

// NewDocumentHandler creates a DocumentHandler. Uploads larger than
// maxUploadBytes are rejected with 413.
func NewDocumentHandler(
	gate IngestionGate,
	blobs blob.Store,
	formats FormatChecker,
	emitter events.EventEmitter,
	maxUploadBytes int64,
	logger *slog.Logger,
) (*DocumentHandler, error) {
	switch {
	case gate == nil:
		return nil, errors.New("ingestion gate cannot be nil")
	case blobs == nil:
		return nil, errors.New("blob store cannot be nil")
	case formats == nil:
		return nil, errors.New("format checker cannot be nil")
	case emitter == nil:
		return nil, errors.New("event emitter cannot be nil")
	case maxUploadBytes <= 0:
		return nil, errors.New("max upload size must be positive")
	case logger == nil:
		return nil, errors.New("logger cannot be nil")
	}
	return &DocumentHandler{
		gate:     gate,
		blobs:    blobs,
		formats:  formats,
		emitter:  emitter,
		maxBytes: maxUploadBytes,
		logger:   logger.With(slog.String("component", "document_handler")),
	}, nil
}

// Upload handles POST /api/tracked-items/{id}/documents. The multipart "file"
// part is stored, the item moves to processing and an ingestion task is
// queued; the response is 202 with the task ID. A second upload while the
// item is processing gets 409.
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	learnerID, itemID, ok := handleLearnerAndPathUUID(w, r, "id")
	if !ok {
		return
	}
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			HandleAPIError(w, r, ErrUploadTooLarge, "")
			return
		}
		HandleAPIError(w, r, errors.Join(domain.ErrValidation, err), "Invalid multipart upload")
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		HandleAPIError(w, r, ErrMissingFile, "")
		return
	}
	defer func() { _ = file.Close() }()

	filename := filepath.Base(header.Filename)
	if !h.formats.Supports(filename) {
		HandleAPIError(w, r, fmt.Errorf("%w: %s", extract.ErrUnsupportedFormat, extract.Format(filename)),
			fmt.Sprintf("Unsupported document format; supported formats: %v", h.formats.Formats()))
		return
	}

	if _, err := h.gate.BeginIngestion(r.Context(), learnerID, itemID); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	key := blob.NewKey(itemID, filename)
	if err := h.blobs.Put(r.Context(), key, file, header.Size); err != nil {
		h.abort(r.Context(), learnerID, itemID, "", log)
		HandleAPIError(w, r, fmt.Errorf("failed to store upload: %w", err), "")
		return
	}

	event, err := events.NewTaskRequestEvent(events.EventTypeDocumentUploaded, task.DocumentIngestionRequest{
		TrackedItemID: itemID,
		LearnerID:     learnerID,
		BlobKey:       key,
		Filename:      filename,
	})
	if err != nil {
		h.abort(r.Context(), learnerID, itemID, key, log)
		HandleAPIError(w, r, fmt.Errorf("failed to build ingestion event: %w", err), "")
		return
	}

	if err := h.emitter.EmitEvent(r.Context(), event); err != nil {
		h.abort(r.Context(), learnerID, itemID, key, log)
		HandleAPIError(w, r, err, "")
		return
	}

	log.Info("document upload queued",
		slog.String("task_id", event.ID.String()),
		slog.String("tracked_item_id", itemID.String()),
		slog.String("format", extract.Format(filename)),
		slog.Int64("size", header.Size))

	shared.RespondWithJSON(w, r, http.StatusAccepted, UploadAcceptedResponse{
		TaskID:        event.ID.String(),
		TrackedItemID: itemID.String(),
		Status:        string(domain.TrackedItemStatusProcessing),
	})
}

// abort releases the item and removes a stored upload after a failed submit.
func (h *DocumentHandler) abort(ctx context.Context, learnerID, itemID uuid.UUID, key string, log *slog.Logger) {
	ctx = context.WithoutCancel(ctx)
	if err := h.gate.AbortIngestion(ctx, learnerID, itemID); err != nil {
		log.Error("failed to release tracked item after upload failure",
			slog.String("tracked_item_id", itemID.String()),
			slog.String("error", err.Error()))
	}
	if key == "" {
		return
	}
	if err := h.blobs.Delete(ctx, key); err != nil && !errors.Is(err, blob.ErrNotFound) {
		log.Warn("failed to remove orphaned upload",
			slog.String("blob_key", key),
			slog.String("error", err.Error()))
	}
}
