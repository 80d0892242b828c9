package browser

import (
	"context"
	"errors"
)

// ErrSessionClosed is returned when a closed session is used.
var ErrSessionClosed = errors.New("browser session is closed")

// Driver launches rendering sessions.
type Driver interface {
	// Launch starts the rendering engine and returns a session with one
	// open page. The caller must Close the session.
	Launch(ctx context.Context) (Session, error)
}

// Session is a single page inside a launched rendering engine.
type Session interface {
	// SetViewport resizes the page to width x height CSS pixels.
	SetViewport(ctx context.Context, width, height int) error

	// Navigate loads url and blocks until the network has been idle.
	Navigate(ctx context.Context, url string) error

	// QueryAll returns every element matching selector, in document order.
	// A selector that matches nothing returns an empty slice and no error.
	QueryAll(ctx context.Context, selector string) ([]Element, error)

	// Close releases the page and the rendering engine.
	Close() error
}

// Element is a handle to a DOM element in the session's page.
type Element interface {
	// Evaluate runs the JavaScript function js with the element bound to
	// this and decodes its JSON-serializable result into out.
	Evaluate(ctx context.Context, js string, out any) error
}
