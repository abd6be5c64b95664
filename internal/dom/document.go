package dom

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Document is a parsed HTML page guarded by a single mutex.
type Document struct {
	mu   sync.Mutex
	root *html.Node

	selMu     sync.Mutex
	selectors map[string]cascadia.Selector
}

// Parse reads a full HTML document from r.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}
	return &Document{root: root, selectors: make(map[string]cascadia.Selector)}, nil
}

// ParseString is a convenience wrapper around Parse.
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

// Render serializes the current state of the document to w.
func (d *Document) Render(w io.Writer) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return html.Render(w, d.root)
}

// String returns the serialized document. Render errors yield an empty string.
func (d *Document) String() string {
	var buf bytes.Buffer
	if err := d.Render(&buf); err != nil {
		return ""
	}
	return buf.String()
}

// Root returns the <html> element.
func (d *Document) Root() *Element {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.wrap(d.htmlNode())
}

// Head returns the <head> element. The html parser always synthesizes one.
func (d *Document) Head() *Element {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.wrap(childByAtom(d.htmlNode(), atom.Head))
}

// Body returns the <body> element.
func (d *Document) Body() *Element {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.wrap(childByAtom(d.htmlNode(), atom.Body))
}

// Query returns the first element matching sel, or nil.
func (d *Document) Query(sel string) (*Element, error) {
	s, err := d.compile(sel)
	if err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.wrap(s.MatchFirst(d.root)), nil
}

// QueryAll returns a snapshot of all elements matching sel in document order.
// Elements inserted after the call are not part of the result.
func (d *Document) QueryAll(sel string) ([]*Element, error) {
	s, err := d.compile(sel)
	if err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.wrapAll(s.MatchAll(d.root)), nil
}

// Exists reports whether any element matches sel. Invalid selectors match nothing.
func (d *Document) Exists(sel string) bool {
	el, err := d.Query(sel)
	return err == nil && el != nil
}

// ElementByID returns the element whose id attribute equals id, or nil.
func (d *Document) ElementByID(id string) *Element {
	if id == "" {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.wrap(findNode(d.root, func(n *html.Node) bool {
		v, ok := attr(n, "id")
		return ok && v == id
	}))
}

// HasTagWithAttr reports whether an element <tag> carries attribute name with
// exactly value. Used for asset presence checks where the value is a URL and
// would need escaping inside a selector.
func (d *Document) HasTagWithAttr(tag, name, value string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return findNode(d.root, func(n *html.Node) bool {
		if n.Type != html.ElementNode || n.Data != tag {
			return false
		}
		v, ok := attr(n, name)
		return ok && v == value
	}) != nil
}

// CreateElement returns a new detached element.
func (d *Document) CreateElement(tag string) *Element {
	n := &html.Node{
		Type:     html.ElementNode,
		Data:     tag,
		DataAtom: atom.Lookup([]byte(tag)),
	}
	return &Element{doc: d, n: n}
}

// Compile validates sel and caches the compiled selector.
func (d *Document) Compile(sel string) error {
	_, err := d.compile(sel)
	return err
}

func (d *Document) compile(sel string) (cascadia.Selector, error) {
	d.selMu.Lock()
	defer d.selMu.Unlock()
	if s, ok := d.selectors[sel]; ok {
		return s, nil
	}
	s, err := cascadia.Compile(sel)
	if err != nil {
		return nil, fmt.Errorf("invalid selector %q: %w", sel, err)
	}
	d.selectors[sel] = s
	return s, nil
}

// ValidSelector reports whether sel compiles, without needing a document.
func ValidSelector(sel string) error {
	if _, err := cascadia.Compile(sel); err != nil {
		return fmt.Errorf("invalid selector %q: %w", sel, err)
	}
	return nil
}

func (d *Document) htmlNode() *html.Node {
	return childByAtom(d.root, atom.Html)
}

func (d *Document) wrap(n *html.Node) *Element {
	if n == nil {
		return nil
	}
	return &Element{doc: d, n: n}
}

func (d *Document) wrapAll(nodes []*html.Node) []*Element {
	out := make([]*Element, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, &Element{doc: d, n: n})
	}
	return out
}

func childByAtom(parent *html.Node, a atom.Atom) *html.Node {
	if parent == nil {
		return nil
	}
	for c := parent.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == a {
			return c
		}
	}
	return nil
}

func findNode(n *html.Node, match func(*html.Node) bool) *html.Node {
	if n == nil {
		return nil
	}
	if match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findNode(c, match); found != nil {
			return found
		}
	}
	return nil
}

func attr(n *html.Node, name string) (string, bool) {
	if n == nil {
		return "", false
	}
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}
