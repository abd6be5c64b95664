package assets

import (
	"context"
	"sync"

	"github.com/vk/loom/internal/ctxlog"
	"github.com/vk/loom/internal/dom"
)

// Kind distinguishes stylesheets from scripts.
type Kind string

const (
	KindStyle  Kind = "style"
	KindScript Kind = "script"
)

// Bundle is the set of URLs an adapter needs before it can initialize.
type Bundle struct {
	Styles  []string
	Scripts []string
}

// Empty reports whether the bundle references no URLs.
func (b Bundle) Empty() bool { return len(b.Styles) == 0 && len(b.Scripts) == 0 }

// LoadedAsset records one load attempt.
type LoadedAsset struct {
	URL  string
	Kind Kind
}

// Fetcher retrieves a resource. A nil Fetcher on the Loader means tags are
// inserted but nothing is downloaded.
type Fetcher interface {
	Fetch(ctx context.Context, url string, kind Kind) error
}

// Loader inserts asset tags into one document.
type Loader struct {
	doc     *dom.Document
	fetcher Fetcher

	mu        sync.Mutex
	attempted []LoadedAsset
}

// NewLoader returns a Loader for doc. fetcher may be nil.
func NewLoader(doc *dom.Document, fetcher Fetcher) *Loader {
	return &Loader{doc: doc, fetcher: fetcher}
}

// LoadStyle adds a stylesheet link for url unless one is already present.
// It does not wait for the fetch.
func (l *Loader) LoadStyle(ctx context.Context, url string) {
	logger := ctxlog.FromContext(ctx)

	l.mu.Lock()
	if l.doc.HasTagWithAttr("link", "href", url) {
		l.mu.Unlock()
		logger.Debug("Stylesheet already present, skipping.", "url", url)
		return
	}
	link := l.doc.CreateElement("link")
	link.SetAttr("rel", "stylesheet")
	link.SetAttr("href", url)
	link.SetAttr("crossorigin", "anonymous")
	l.doc.Head().AppendChild(link)
	l.attempted = append(l.attempted, LoadedAsset{URL: url, Kind: KindStyle})
	l.mu.Unlock()

	logger.Debug("Stylesheet inserted.", "url", url)
	if l.fetcher != nil {
		go l.fetch(context.WithoutCancel(ctx), url, KindStyle)
	}
}

// LoadScript adds a script tag for url unless one is already present. The
// returned channel is closed once the load settles; it is already closed when
// the tag existed before the call.
func (l *Loader) LoadScript(ctx context.Context, url string) <-chan struct{} {
	logger := ctxlog.FromContext(ctx)
	done := make(chan struct{})

	l.mu.Lock()
	if l.doc.HasTagWithAttr("script", "src", url) {
		l.mu.Unlock()
		logger.Debug("Script already present, skipping.", "url", url)
		close(done)
		return done
	}
	script := l.doc.CreateElement("script")
	script.SetAttr("src", url)
	script.SetAttr("crossorigin", "anonymous")
	l.doc.Head().AppendChild(script)
	l.attempted = append(l.attempted, LoadedAsset{URL: url, Kind: KindScript})
	l.mu.Unlock()

	logger.Debug("Script inserted.", "url", url)
	if l.fetcher == nil {
		close(done)
		return done
	}
	go func() {
		defer close(done)
		l.fetch(context.WithoutCancel(ctx), url, KindScript)
	}()
	return done
}

// LoadBundle loads every stylesheet immediately, then each script in order,
// waiting for one to settle before starting the next. It returns early only
// if ctx is cancelled; in-flight fetches still run to completion.
func (l *Loader) LoadBundle(ctx context.Context, b Bundle) {
	for _, href := range b.Styles {
		l.LoadStyle(ctx, href)
	}
	for _, src := range b.Scripts {
		select {
		case <-l.LoadScript(ctx, src):
		case <-ctx.Done():
			ctxlog.FromContext(ctx).Debug("Bundle load interrupted.", "script", src, "error", ctx.Err())
			return
		}
	}
}

// Attempted returns the assets this loader inserted, in insertion order.
func (l *Loader) Attempted() []LoadedAsset {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]LoadedAsset(nil), l.attempted...)
}

func (l *Loader) fetch(ctx context.Context, url string, kind Kind) {
	if err := l.fetcher.Fetch(ctx, url, kind); err != nil {
		// Load failures are indistinguishable from success for callers.
		ctxlog.FromContext(ctx).Debug("Asset fetch failed.", "url", url, "kind", kind, "error", err)
	}
}
