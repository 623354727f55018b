package repository

import (
	"context"
	"errors"

	"github.com/user/change-analysis-service/internal/entity"
)

var (
	ErrCaptureTimeout   = errors.New("page capture timed out")
	ErrNavigationFailed = errors.New("navigation to page failed")
	ErrCaptureFailed    = errors.New("page capture failed")
)

// SnapshotCapturer defines the contract for rendering a page into a DOM and screenshot pair.
type SnapshotCapturer interface {
	// Capture loads a URL and returns its rendered DOM and a full-page PNG screenshot.
	Capture(ctx context.Context, url string) (*entity.Snapshot, error)
}
