package crawler

import (
	"context"
	"io"
	"time"
)

// Readiness selects how long a render waits before the DOM is considered
// stable enough to read.
type Readiness int

// Supported readiness conditions.
const (
	// ReadinessContentLoaded resolves once the initial document has parsed.
	ReadinessContentLoaded Readiness = iota
	// ReadinessNetworkIdle additionally waits for network activity to settle,
	// required for pages whose fields are filled in by late XHR calls.
	ReadinessNetworkIdle
)

// Element is a handle to a live DOM node inside an open Session.
type Element interface {
	Text(ctx context.Context) (string, error)
	Hover(ctx context.Context) error
}

// Session is one isolated browsing context holding a rendered page. It
// exposes the static DOM snapshot plus the interactive queries needed for
// hover-revealed content. Close must be called whether extraction succeeds
// or fails.
type Session interface {
	// HTML returns the DOM snapshot captured when the page reached readiness.
	HTML() string
	// Elements locates all nodes matching the selector, in DOM order.
	Elements(ctx context.Context, selector string) ([]Element, error)
	// WaitVisible blocks until the selector is visible or the timeout elapses.
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) error
	// Text reads the visible text of the first node matching the selector.
	Text(ctx context.Context, selector string) (string, error)
	Close()
}

// Renderer drives a real browser. One browser process is shared across all
// sessions of a crawl; each Render call opens an isolated context.
type Renderer interface {
	Render(ctx context.Context, url string, readiness Readiness) (Session, error)
	Close(ctx context.Context) error
}

// LanguageResolver fetches the declared languages of a source repository.
// Implementations are best-effort: callers treat any error as "no languages".
type LanguageResolver interface {
	ResolveLanguages(ctx context.Context, repoURL string) ([]string, error)
}

// Source is a platform-specific crawler producing normalized contests.
type Source interface {
	Name() string
	Crawl(ctx context.Context) ([]Contest, error)
}

// ContestStore persists crawled contests, upserting by (platform, slug).
type ContestStore interface {
	UpsertContests(ctx context.Context, contests []Contest) error
}

// BlobStore archives raw artifacts (page snapshots) and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data io.Reader) (string, error)
}

// Publisher pushes crawl summaries to a message bus.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces crawl run IDs.
type IDGenerator interface {
	NewID() (string, error)
}
