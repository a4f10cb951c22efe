package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-reader/internal/api/shared"
	"github.com/phrazzld/scry-reader/internal/auth"
	"github.com/phrazzld/scry-reader/internal/clock"
	"github.com/phrazzld/scry-reader/internal/domain"
	"github.com/phrazzld/scry-reader/internal/domain/srs"
	"github.com/phrazzld/scry-reader/internal/events"
	"github.com/phrazzld/scry-reader/internal/extract"
	"github.com/phrazzld/scry-reader/internal/mocks"
	"github.com/phrazzld/scry-reader/internal/platform/blob"
	"github.com/phrazzld/scry-reader/internal/service"
	"github.com/phrazzld/scry-reader/internal/store"
	"github.com/phrazzld/scry-reader/internal/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var linkTime = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// tokenJWT accepts any UUID as a bearer token for that learner.
func tokenJWT() *mocks.MockJWTService {
	return &mocks.MockJWTService{
		ValidateTokenFn: func(_ context.Context, token string) (*auth.Claims, error) {
			id, err := uuid.Parse(token)
			if err != nil {
				return nil, auth.ErrInvalidToken
			}
			return &auth.Claims{LearnerID: id, Subject: token}, nil
		},
	}
}

type apiHarness struct {
	stores  *mocks.MockStores
	items   *service.TrackedItemService
	blobs   *blob.LocalStore
	emitErr error
	router  http.Handler

	mu      sync.Mutex
	emitted []*events.TaskRequestEvent
}

func newAPIHarness(t *testing.T) *apiHarness {
	t.Helper()
	log := discardLogger()
	clk := clock.NewFixed(linkTime)

	h := &apiHarness{stores: mocks.NewMockStores()}
	uow := mocks.NewMockUnitOfWork(h.stores.Stores())
	planner, err := srs.NewServiceWithIntervals(srs.NewDefaultIntervals())
	require.NoError(t, err)
	scheduler, err := service.NewSchedulerService(planner, clk, log)
	require.NoError(t, err)
	h.items, err = service.NewTrackedItemService(h.stores.Stores(), uow, scheduler, nil, clk, log)
	require.NoError(t, err)

	h.blobs, err = blob.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	emitter := events.NewInMemoryEventEmitter(log)
	emitter.Subscribe(events.EventTypeDocumentUploaded, events.EventHandlerFunc(
		func(_ context.Context, event *events.TaskRequestEvent) error {
			h.mu.Lock()
			defer h.mu.Unlock()
			if h.emitErr != nil {
				return h.emitErr
			}
			h.emitted = append(h.emitted, event)
			return nil
		}))

	itemHandler, err := NewTrackedItemHandler(h.items, log)
	require.NoError(t, err)
	docHandler, err := NewDocumentHandler(h.items, h.blobs, extract.NewRegistry(20), emitter, 1<<20, log)
	require.NoError(t, err)

	h.router = NewRouter(RouterConfig{
		JWTService:   tokenJWT(),
		TrackedItems: itemHandler,
		Documents:    docHandler,
		Logger:       log,
	})
	return h
}

func (h *apiHarness) do(t *testing.T, learner uuid.UUID, method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if learner != uuid.Nil {
		req.Header.Set("Authorization", "Bearer "+learner.String())
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rr := httptest.NewRecorder()
	h.router.ServeHTTP(rr, req)
	return rr
}

func (h *apiHarness) link(t *testing.T, learner uuid.UUID, title string) TrackedItemResponse {
	t.Helper()
	rr := h.do(t, learner, http.MethodPost, "/api/tracked-items",
		strings.NewReader(`{"title":"`+title+`"}`), "application/json")
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var resp LinkTrackedItemResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp.Item
}

func (h *apiHarness) upload(t *testing.T, learner uuid.UUID, itemID, filename, content string) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return h.do(t, learner, http.MethodPost, "/api/tracked-items/"+itemID+"/documents", &body, mw.FormDataContentType())
}

func (h *apiHarness) emittedEvents() []*events.TaskRequestEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]*events.TaskRequestEvent(nil), h.emitted...)
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body shared.ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body.Error
}

func TestHealthNeedsNoAuth(t *testing.T) {
	t.Parallel()

	h := newAPIHarness(t)
	rr := h.do(t, uuid.Nil, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
}

func TestProtectedRoutesNeedToken(t *testing.T) {
	t.Parallel()

	h := newAPIHarness(t)
	for _, path := range []string{"/api/tracked-items", "/api/progress"} {
		rr := h.do(t, uuid.Nil, http.MethodGet, path, nil, "")
		assert.Equal(t, http.StatusUnauthorized, rr.Code, path)
	}
}

func TestLinkTrackedItem(t *testing.T) {
	t.Parallel()

	h := newAPIHarness(t)
	learner := uuid.New()

	rr := h.do(t, learner, http.MethodPost, "/api/tracked-items",
		strings.NewReader(`{"title":"Deep Work","author":"Cal Newport"}`), "application/json")
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var resp LinkTrackedItemResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "Deep Work", resp.Item.Title)
	assert.Equal(t, string(domain.TrackedItemStatusPending), resp.Item.Status)
	assert.Len(t, resp.Reminders, 10, "default table has 4+3+3 stages")
	assert.Nil(t, resp.Overview)
}

func TestLinkTrackedItemRejectsBadInput(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		body    string
		message string
	}{
		{name: "missing title", body: `{"author":"x"}`, message: "Invalid title: required field"},
		{name: "blank title", body: `{"title":"   "}`, message: "Title is required"},
		{name: "malformed json", body: `{"title":`, message: "Invalid request format"},
		{name: "unknown field", body: `{"title":"x","pages":10}`, message: "Invalid request format"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			h := newAPIHarness(t)
			rr := h.do(t, uuid.New(), http.MethodPost, "/api/tracked-items",
				strings.NewReader(tc.body), "application/json")
			assert.Equal(t, http.StatusBadRequest, rr.Code)
			assert.Equal(t, tc.message, decodeError(t, rr))
		})
	}
}

func TestGetTrackedItemIsScopedToLearner(t *testing.T) {
	t.Parallel()

	h := newAPIHarness(t)
	owner := uuid.New()
	item := h.link(t, owner, "Deep Work")

	rr := h.do(t, owner, http.MethodGet, "/api/tracked-items/"+item.ID, nil, "")
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = h.do(t, uuid.New(), http.MethodGet, "/api/tracked-items/"+item.ID, nil, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "Tracked item not found", decodeError(t, rr))

	rr = h.do(t, owner, http.MethodGet, "/api/tracked-items/not-a-uuid", nil, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestListAndCompleteTrackedItems(t *testing.T) {
	t.Parallel()

	h := newAPIHarness(t)
	learner := uuid.New()
	first := h.link(t, learner, "First")
	h.link(t, learner, "Second")
	h.link(t, uuid.New(), "Someone else's")

	rr := h.do(t, learner, http.MethodGet, "/api/tracked-items", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	var list []TrackedItemResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	assert.Len(t, list, 2)

	rr = h.do(t, learner, http.MethodPost, "/api/tracked-items/"+first.ID+"/complete", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	var completed TrackedItemResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &completed))
	assert.True(t, completed.Completed)
	require.NotNil(t, completed.CompletedAt)
	assert.True(t, linkTime.Equal(*completed.CompletedAt))
}

func TestRemindersAndProgress(t *testing.T) {
	t.Parallel()

	h := newAPIHarness(t)
	learner := uuid.New()
	item := h.link(t, learner, "Deep Work")

	rr := h.do(t, learner, http.MethodGet, "/api/tracked-items/"+item.ID+"/reminders", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	var reminders []ReminderResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &reminders))
	require.Len(t, reminders, 10)
	for i := 1; i < len(reminders); i++ {
		assert.False(t, reminders[i].ScheduledFor.Before(reminders[i-1].ScheduledFor))
	}

	rr = h.do(t, learner, http.MethodGet, "/api/progress", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	var progress []ProgressResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &progress))
	require.Len(t, progress, 1)
	assert.Equal(t, 10, progress[0].RemindersPending)
	assert.Zero(t, progress[0].RemindersSent)
	assert.Zero(t, progress[0].Chapters)
}

func TestChaptersOfNewItemAreEmpty(t *testing.T) {
	t.Parallel()

	h := newAPIHarness(t)
	learner := uuid.New()
	item := h.link(t, learner, "Deep Work")

	rr := h.do(t, learner, http.MethodGet, "/api/tracked-items/"+item.ID+"/chapters", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"overviews":[],"chapters":[]}`, rr.Body.String())
}

func TestUploadQueuesIngestion(t *testing.T) {
	t.Parallel()

	h := newAPIHarness(t)
	learner := uuid.New()
	item := h.link(t, learner, "Deep Work")

	rr := h.upload(t, learner, item.ID, "notes.txt", strings.Repeat("Focus is a skill. ", 10))
	require.Equal(t, http.StatusAccepted, rr.Code, rr.Body.String())

	var resp UploadAcceptedResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, item.ID, resp.TrackedItemID)
	assert.Equal(t, string(domain.TrackedItemStatusProcessing), resp.Status)

	emitted := h.emittedEvents()
	require.Len(t, emitted, 1)
	assert.Equal(t, resp.TaskID, emitted[0].ID.String())

	var req task.DocumentIngestionRequest
	require.NoError(t, emitted[0].UnmarshalPayload(&req))
	assert.Equal(t, learner, req.LearnerID)
	assert.Equal(t, "notes.txt", req.Filename)
	assert.True(t, strings.HasPrefix(req.BlobKey, "uploads/"+item.ID+"/"))

	rc, err := h.blobs.Open(context.Background(), req.BlobKey)
	require.NoError(t, err)
	defer func() { _ = rc.Close() }()
	stored, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Contains(t, string(stored), "Focus is a skill.")

	// A second upload while the first is processing is rejected.
	rr = h.upload(t, learner, item.ID, "notes.txt", "more text")
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Len(t, h.emittedEvents(), 1)
}

func TestUploadRejections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		filename string
		content  string
		status   int
	}{
		{name: "unsupported extension", filename: "slides.pptx", content: "x", status: http.StatusBadRequest},
		{name: "no extension", filename: "README", content: "x", status: http.StatusBadRequest},
		{name: "too large", filename: "big.txt", content: strings.Repeat("a", 2<<20), status: http.StatusRequestEntityTooLarge},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			h := newAPIHarness(t)
			learner := uuid.New()
			item := h.link(t, learner, "Deep Work")

			rr := h.upload(t, learner, item.ID, tc.filename, tc.content)
			assert.Equal(t, tc.status, rr.Code, rr.Body.String())
			assert.Empty(t, h.emittedEvents())

			got, err := h.items.Get(context.Background(), learner, uuid.MustParse(item.ID))
			require.NoError(t, err)
			assert.Equal(t, domain.TrackedItemStatusPending, got.Status)
		})
	}
}

func TestUploadMissingFilePart(t *testing.T) {
	t.Parallel()

	h := newAPIHarness(t)
	learner := uuid.New()
	item := h.link(t, learner, "Deep Work")

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("title", "no file here"))
	require.NoError(t, mw.Close())

	rr := h.do(t, learner, http.MethodPost, "/api/tracked-items/"+item.ID+"/documents", &body, mw.FormDataContentType())
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "A document file is required", decodeError(t, rr))
}

func TestUploadForeignItem(t *testing.T) {
	t.Parallel()

	h := newAPIHarness(t)
	item := h.link(t, uuid.New(), "Deep Work")

	rr := h.upload(t, uuid.New(), item.ID, "notes.txt", "text")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Empty(t, h.emittedEvents())
}

func TestUploadReleasesItemWhenQueueingFails(t *testing.T) {
	t.Parallel()

	h := newAPIHarness(t)
	h.emitErr = task.ErrQueueFull
	learner := uuid.New()
	item := h.link(t, learner, "Deep Work")

	rr := h.upload(t, learner, item.ID, "notes.txt", strings.Repeat("Focus. ", 10))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)

	got, err := h.items.Get(context.Background(), learner, uuid.MustParse(item.ID))
	require.NoError(t, err)
	assert.Equal(t, domain.TrackedItemStatusFailed, got.Status)

	// The item can be retried once released.
	h.mu.Lock()
	h.emitErr = nil
	h.mu.Unlock()
	rr = h.upload(t, learner, item.ID, "notes.txt", strings.Repeat("Focus. ", 10))
	assert.Equal(t, http.StatusAccepted, rr.Code)
}

func TestMapErrorToStatusCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want int
	}{
		{err: nil, want: http.StatusOK},
		{err: auth.ErrExpiredToken, want: http.StatusUnauthorized},
		{err: store.ErrTrackedItemNotFound, want: http.StatusNotFound},
		{err: service.ErrIngestionInProgress, want: http.StatusConflict},
		{err: extract.ErrUnsupportedFormat, want: http.StatusBadRequest},
		{err: domain.ErrEmptyContent, want: http.StatusBadRequest},
		{err: ErrUploadTooLarge, want: http.StatusRequestEntityTooLarge},
		{err: task.ErrRunnerStopped, want: http.StatusServiceUnavailable},
		{err: errors.New("boom"), want: http.StatusInternalServerError},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.want, MapErrorToStatusCode(tc.err), "%v", tc.err)
	}
}

func TestGetSafeErrorMessageHidesInternals(t *testing.T) {
	t.Parallel()

	err := errors.New("pq: relation tracked_items does not exist")
	assert.Equal(t, "An unexpected error occurred", GetSafeErrorMessage(err))
	assert.Equal(t, "An unexpected error occurred", GetSafeErrorMessage(nil))
	assert.Equal(t, "Token expired", GetSafeErrorMessage(auth.ErrExpiredToken))
}
