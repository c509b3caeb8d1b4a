package repository

import (
	"context"
	"errors"
	"time"
)

// ErrRendererUnavailable is returned when no JavaScript-capable browser can be started.
var ErrRendererUnavailable = errors.New("rendering capability unavailable")

// RenderOptions tweaks a single page render.
type RenderOptions struct {
	// Settle is an extra wait after the document is ready, for client-rendered widgets.
	Settle time.Duration
}

// PageRenderer defines the contract for fetching a page through a real browser.
type PageRenderer interface {
	// Render navigates to url and returns the rendered document HTML.
	Render(ctx context.Context, url string, opts RenderOptions) (string, error)
	// Available reports ErrRendererUnavailable when rendering cannot work at all.
	Available() error
}
