package dom

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Element is a handle to one element node of a Document. Handles are cheap
// and not unique; compare them with Same.
type Element struct {
	doc *Document
	n   *html.Node
}

// Document returns the owning document.
func (e *Element) Document() *Document { return e.doc }

// Same reports whether e and o refer to the same node.
func (e *Element) Same(o *Element) bool {
	if e == nil || o == nil {
		return e == o
	}
	return e.n == o.n
}

// Tag returns the lower-case tag name.
func (e *Element) Tag() string { return e.n.Data }

// Attr returns the value of attribute name and whether it is present.
func (e *Element) Attr(name string) (string, bool) {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	return attr(e.n, name)
}

// HasAttr reports whether attribute name is present.
func (e *Element) HasAttr(name string) bool {
	_, ok := e.Attr(name)
	return ok
}

// SetAttr sets attribute name to val, replacing any existing value.
func (e *Element) SetAttr(name, val string) {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	setAttr(e.n, name, val)
}

// RemoveAttr deletes attribute name if present.
func (e *Element) RemoveAttr(name string) {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	kept := e.n.Attr[:0]
	for _, a := range e.n.Attr {
		if a.Namespace == "" && a.Key == name {
			continue
		}
		kept = append(kept, a)
	}
	e.n.Attr = kept
}

// ID returns the id attribute, or "".
func (e *Element) ID() string {
	v, _ := e.Attr("id")
	return v
}

// SetID sets the id attribute.
func (e *Element) SetID(id string) { e.SetAttr("id", id) }

// HasClass reports whether class is in the class list.
func (e *Element) HasClass(class string) bool {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	v, _ := attr(e.n, "class")
	for _, c := range strings.Fields(v) {
		if c == class {
			return true
		}
	}
	return false
}

// AddClass appends class unless already present.
func (e *Element) AddClass(class string) {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	v, _ := attr(e.n, "class")
	fields := strings.Fields(v)
	for _, c := range fields {
		if c == class {
			return
		}
	}
	setAttr(e.n, "class", strings.Join(append(fields, class), " "))
}

// RemoveClass drops class from the class list.
func (e *Element) RemoveClass(class string) {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	v, _ := attr(e.n, "class")
	fields := strings.Fields(v)
	kept := fields[:0]
	for _, c := range fields {
		if c != class {
			kept = append(kept, c)
		}
	}
	setAttr(e.n, "class", strings.Join(kept, " "))
}

// Text returns the concatenated text content of e and its descendants.
func (e *Element) Text() string {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	var sb strings.Builder
	textContent(e.n, &sb)
	return sb.String()
}

// SetText replaces all children of e with a single text node.
func (e *Element) SetText(s string) {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	removeChildren(e.n)
	e.n.AppendChild(&html.Node{Type: html.TextNode, Data: s})
}

// InnerHTML serializes the children of e.
func (e *Element) InnerHTML() string {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	var buf bytes.Buffer
	for c := e.n.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return ""
		}
	}
	return buf.String()
}

// SetInnerHTML parses markup in the context of e and replaces its children.
func (e *Element) SetInnerHTML(markup string) error {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	nodes, err := html.ParseFragment(strings.NewReader(markup), e.n)
	if err != nil {
		return err
	}
	removeChildren(e.n)
	for _, n := range nodes {
		e.n.AppendChild(n)
	}
	return nil
}

// Query returns the first descendant of e matching sel, or nil.
func (e *Element) Query(sel string) (*Element, error) {
	s, err := e.doc.compile(sel)
	if err != nil {
		return nil, err
	}
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	for c := e.n.FirstChild; c != nil; c = c.NextSibling {
		if m := s.MatchFirst(c); m != nil {
			return e.doc.wrap(m), nil
		}
	}
	return nil, nil
}

// QueryAll returns all descendants of e matching sel in document order.
func (e *Element) QueryAll(sel string) ([]*Element, error) {
	s, err := e.doc.compile(sel)
	if err != nil {
		return nil, err
	}
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	var out []*html.Node
	for c := e.n.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, s.MatchAll(c)...)
	}
	return e.doc.wrapAll(out), nil
}

// Matches reports whether e itself matches sel.
func (e *Element) Matches(sel string) bool {
	s, err := e.doc.compile(sel)
	if err != nil {
		return false
	}
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	return s.Match(e.n)
}

// Closest returns the nearest ancestor-or-self matching sel, or nil.
func (e *Element) Closest(sel string) *Element {
	s, err := e.doc.compile(sel)
	if err != nil {
		return nil
	}
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	for n := e.n; n != nil; n = n.Parent {
		if n.Type == html.ElementNode && s.Match(n) {
			return e.doc.wrap(n)
		}
	}
	return nil
}

// Parent returns the parent element, or nil for the root or detached nodes.
func (e *Element) Parent() *Element {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	p := e.n.Parent
	if p == nil || p.Type != html.ElementNode {
		return nil
	}
	return e.doc.wrap(p)
}

// AppendChild moves child to the end of e's children.
func (e *Element) AppendChild(child *Element) {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	detach(child.n)
	e.n.AppendChild(child.n)
}

// Prepend moves child to the front of e's children.
func (e *Element) Prepend(child *Element) {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	detach(child.n)
	if e.n.FirstChild == nil {
		e.n.AppendChild(child.n)
		return
	}
	e.n.InsertBefore(child.n, e.n.FirstChild)
}

// ReplaceWith puts repl where e is and detaches e.
func (e *Element) ReplaceWith(repl *Element) {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	parent := e.n.Parent
	if parent == nil {
		return
	}
	detach(repl.n)
	parent.InsertBefore(repl.n, e.n)
	parent.RemoveChild(e.n)
}

// Fragment is one piece of rewritten text: plain text when Tag is empty,
// otherwise an element wrapping Text.
type Fragment struct {
	Tag   string
	Attrs []html.Attribute
	Text  string
}

// RewriteText walks the text nodes under e, skipping subtrees rooted at any
// tag in skip, and replaces each text node for which fn returns a non-nil
// slice. It returns the number of text nodes replaced.
func (e *Element) RewriteText(skip []string, fn func(text string) []Fragment) int {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()

	skipped := make(map[string]bool, len(skip))
	for _, t := range skip {
		skipped[t] = true
	}

	var texts []*html.Node
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			switch c.Type {
			case html.TextNode:
				texts = append(texts, c)
			case html.ElementNode:
				if !skipped[c.Data] {
					walk(c)
				}
			}
		}
	}
	walk(e.n)

	replaced := 0
	for _, t := range texts {
		frags := fn(t.Data)
		if frags == nil {
			continue
		}
		for _, f := range frags {
			t.Parent.InsertBefore(fragmentNode(f), t)
		}
		t.Parent.RemoveChild(t)
		replaced++
	}
	return replaced
}

func fragmentNode(f Fragment) *html.Node {
	text := &html.Node{Type: html.TextNode, Data: f.Text}
	if f.Tag == "" {
		return text
	}
	n := &html.Node{
		Type:     html.ElementNode,
		Data:     f.Tag,
		DataAtom: atom.Lookup([]byte(f.Tag)),
		Attr:     append([]html.Attribute(nil), f.Attrs...),
	}
	n.AppendChild(text)
	return n
}

func setAttr(n *html.Node, name, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == name {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: name, Val: val})
}

func textContent(n *html.Node, sb *strings.Builder) {
	if n.Type == html.TextNode {
		sb.WriteString(n.Data)
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		textContent(c, sb)
	}
}

func removeChildren(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		c = next
	}
}

func detach(n *html.Node) {
	if n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}
