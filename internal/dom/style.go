package dom

import "strings"

// Style returns the value of one declaration in e's inline style attribute.
func (e *Element) Style(prop string) (string, bool) {
	style, _ := e.Attr("style")
	for _, d := range strings.Split(style, ";") {
		name, val, ok := strings.Cut(d, ":")
		if ok && strings.TrimSpace(name) == prop {
			return strings.TrimSpace(val), true
		}
	}
	return "", false
}

// SetStyle sets one declaration in e's inline style, keeping the others in
// place.
func (e *Element) SetStyle(prop, val string) {
	style, _ := e.Attr("style")
	var decls []string
	for _, d := range strings.Split(style, ";") {
		d = strings.TrimSpace(d)
		if d == "" {
			continue
		}
		name, _, _ := strings.Cut(d, ":")
		if strings.TrimSpace(name) == prop {
			continue
		}
		decls = append(decls, d)
	}
	decls = append(decls, prop+": "+val)
	e.SetAttr("style", strings.Join(decls, "; "))
}
