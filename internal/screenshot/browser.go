package screenshot

import (
	"context"

	"github.com/Yuichizx/devops-tools-hub/internal/domain"
)

// Browser opens isolated pages. Each page owns its browser session.
type Browser interface {
	NewPage(ctx context.Context) (Page, error)
}

// Page is the subset of browser automation the dashboard capture needs.
// Selectors are CSS selectors. Deadlines on ctx bound each call.
type Page interface {
	Navigate(ctx context.Context, url string) error
	Fill(ctx context.Context, selector, value string) error
	Click(ctx context.Context, selector string) error
	WaitURL(ctx context.Context, url string) error
	WaitVisible(ctx context.Context, selector string) error
	Count(ctx context.Context, selector string) (int, error)
	Text(ctx context.Context, selector string) (string, error)

	CaptureFull(ctx context.Context) ([]byte, error)
	CaptureClip(ctx context.Context, clip domain.ClipRect) ([]byte, error)
	CaptureElement(ctx context.Context, selector string) ([]byte, error)

	Close() error
}
