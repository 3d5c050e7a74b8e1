package codehawks

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/FelllGit/codehawks-scrapper/internal/crawler"
	"github.com/FelllGit/codehawks-scrapper/internal/diagnostics"
)

// fakeElement is a scripted DOM node.
type fakeElement struct {
	text    string
	textErr error
	hovers  *atomic.Int64
}

func (e fakeElement) Text(context.Context) (string, error) {
	return e.text, e.textErr
}

func (e fakeElement) Hover(context.Context) error {
	if e.hovers != nil {
		e.hovers.Add(1)
	}
	return nil
}

// fakeSession serves a canned HTML snapshot and scripted element lookups.
type fakeSession struct {
	html               string
	elementsBySelector map[string][]fakeElement
	textBySelector     map[string]string
	waitVisibleErr     error

	hovers atomic.Int64
	closed atomic.Bool
}

func (s *fakeSession) HTML() string { return s.html }

func (s *fakeSession) Elements(_ context.Context, selector string) ([]crawler.Element, error) {
	scripted := s.elementsBySelector[selector]
	elements := make([]crawler.Element, 0, len(scripted))
	for _, e := range scripted {
		e.hovers = &s.hovers
		elements = append(elements, e)
	}
	return elements, nil
}

func (s *fakeSession) WaitVisible(context.Context, string, time.Duration) error {
	return s.waitVisibleErr
}

func (s *fakeSession) Text(_ context.Context, selector string) (string, error) {
	text, ok := s.textBySelector[selector]
	if !ok {
		return "", fmt.Errorf("no scripted text for selector %q", selector)
	}
	return text, nil
}

func (s *fakeSession) Close() { s.closed.Store(true) }

func (s *fakeSession) hoverCount() int { return int(s.hovers.Load()) }

// fakeRenderer hands out scripted sessions by URL and tracks how many are
// open at once, so tests can assert the concurrency cap.
type fakeRenderer struct {
	mu          sync.Mutex
	sessions    map[string]*fakeSession
	errByURL    map[string]error
	inFlight    int
	maxInFlight int
}

func newFakeRenderer() *fakeRenderer {
	return &fakeRenderer{
		sessions: make(map[string]*fakeSession),
		errByURL: make(map[string]error),
	}
}

func (r *fakeRenderer) add(url string, sess *fakeSession) {
	r.sessions[url] = sess
}

func (r *fakeRenderer) failURL(url string, err error) {
	r.errByURL[url] = err
}

func (r *fakeRenderer) Render(_ context.Context, url string, _ crawler.Readiness) (crawler.Session, error) {
	r.mu.Lock()
	r.inFlight++
	if r.inFlight > r.maxInFlight {
		r.maxInFlight = r.inFlight
	}
	r.mu.Unlock()

	// Hold the slot briefly so overlapping tasks actually overlap.
	time.Sleep(2 * time.Millisecond)

	r.mu.Lock()
	r.inFlight--
	r.mu.Unlock()

	if err := r.errByURL[url]; err != nil {
		return nil, err
	}
	sess, ok := r.sessions[url]
	if !ok {
		return nil, fmt.Errorf("no scripted session for %q", url)
	}
	return sess, nil
}

func (r *fakeRenderer) Close(context.Context) error { return nil }

func (r *fakeRenderer) peakConcurrency() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.maxInFlight
}

// fakeResolver scripts language lookups per repository URL.
type fakeResolver struct {
	mu        sync.Mutex
	languages map[string][]string
	errs      map[string]error
	calls     []string
}

func newFakeResolver() *fakeResolver {
	return &fakeResolver{
		languages: make(map[string][]string),
		errs:      make(map[string]error),
	}
}

func (f *fakeResolver) ResolveLanguages(_ context.Context, repoURL string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, repoURL)
	if err := f.errs[repoURL]; err != nil {
		return nil, err
	}
	return f.languages[repoURL], nil
}

func (f *fakeResolver) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// fixedClock always returns the same instant.
type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

// seqIDGen issues deterministic run IDs.
type seqIDGen struct {
	n atomic.Int64
}

func (g *seqIDGen) NewID() (string, error) {
	return fmt.Sprintf("run-%d", g.n.Add(1)), nil
}

// recordingDiag captures emitted events for assertions.
type recordingDiag struct {
	mu     sync.Mutex
	events []diagnostics.Event
}

func (d *recordingDiag) Emit(evt diagnostics.Event) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, evt)
}

func (d *recordingDiag) byReason(reason string) []diagnostics.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []diagnostics.Event
	for _, evt := range d.events {
		if evt.Reason == reason {
			out = append(out, evt)
		}
	}
	return out
}

// recordingBlobStore captures archived snapshots.
type recordingBlobStore struct {
	mu    sync.Mutex
	paths []string
}

func (b *recordingBlobStore) PutObject(_ context.Context, path, _ string, data io.Reader) (string, error) {
	if _, err := io.Copy(io.Discard, data); err != nil {
		return "", err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.paths = append(b.paths, path)
	return "memory://" + path, nil
}

func (b *recordingBlobStore) archived() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.paths...)
}

// newTestCrawler builds a Crawler around nil-safe fakes. Callers that need a
// renderer or resolver pass them; date-only tests pass nil.
func newTestCrawler(t *testing.T, renderer crawler.Renderer, resolver crawler.LanguageResolver) *Crawler {
	t.Helper()
	if resolver == nil {
		resolver = newFakeResolver()
	}
	return New(
		renderer,
		resolver,
		fixedClock{now: time.Date(2024, time.April, 30, 12, 0, 0, 0, time.UTC)},
		&seqIDGen{},
		&recordingBlobStore{},
		&recordingDiag{},
		Config{Concurrency: 4, TooltipTimeout: 50 * time.Millisecond},
		zap.NewNop(),
	)
}
