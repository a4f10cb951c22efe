package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestNewTrackedItem(t *testing.T) {
	t.Parallel()
	learnerID := uuid.New()

	item, err := NewTrackedItem(learnerID, "  Deep Work ", "Cal Newport", "")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if item.ID == uuid.Nil {
		t.Error("Expected non-nil UUID")
	}
	if item.Title != "Deep Work" {
		t.Errorf("Expected trimmed title, got %q", item.Title)
	}
	if item.Status != TrackedItemStatusPending {
		t.Errorf("Expected status %s, got %s", TrackedItemStatusPending, item.Status)
	}
	if item.Completed || item.CompletedAt != nil {
		t.Error("New item must not be completed")
	}

	if _, err := NewTrackedItem(uuid.Nil, "Title", "", ""); !errors.Is(err, ErrInvalidID) {
		t.Errorf("Expected ErrInvalidID, got %v", err)
	}
	if _, err := NewTrackedItem(learnerID, "   ", "", ""); !errors.Is(err, ErrEmptyContent) {
		t.Errorf("Expected ErrEmptyContent, got %v", err)
	}
}

func TestTrackedItemUpdateStatus(t *testing.T) {
	t.Parallel()
	item, err := NewTrackedItem(uuid.New(), "Title", "", "")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if err := item.UpdateStatus(TrackedItemStatusProcessing); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if !item.IsProcessing() {
		t.Error("Expected item to be processing")
	}
	if err := item.UpdateStatus("archived"); !errors.Is(err, ErrInvalidTrackedItemStatus) {
		t.Errorf("Expected ErrInvalidTrackedItemStatus, got %v", err)
	}
	if item.Status != TrackedItemStatusProcessing {
		t.Errorf("Invalid update must not change status, got %s", item.Status)
	}
}

func TestTrackedItemMarkCompleted(t *testing.T) {
	t.Parallel()
	item, err := NewTrackedItem(uuid.New(), "Title", "", "")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	first := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	item.MarkCompleted(first)
	item.MarkCompleted(first.Add(time.Hour))

	if !item.Completed {
		t.Fatal("Expected item to be completed")
	}
	if !item.CompletedAt.Equal(first) {
		t.Errorf("Expected first completion time to stick, got %v", item.CompletedAt)
	}
	if err := item.Validate(); err != nil {
		t.Errorf("Completed item should validate, got %v", err)
	}
}
