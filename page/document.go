// Package page holds the site's live HTML document and the tree helpers the
// theme and feature-flag appliers use to mutate it.
package page

import (
	"bytes"
	"embed"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

//go:embed assets/index.html
var assets embed.FS

// Document is a parsed HTML page.
type Document struct {
	root *html.Node
}

// Parse reads an HTML page.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing page: %w", err)
	}
	return &Document{root: root}, nil
}

// ParseFile reads an HTML page from path.
func ParseFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

// Default returns the embedded site template.
func Default() (*Document, error) {
	b, err := assets.ReadFile("assets/index.html")
	if err != nil {
		return nil, err
	}
	return Parse(bytes.NewReader(b))
}

// Root returns the <html> element.
func (d *Document) Root() *html.Node {
	return first(d.root, func(n *html.Node) bool { return n.DataAtom == atom.Html })
}

// Body returns the <body> element.
func (d *Document) Body() *html.Node {
	return first(d.root, func(n *html.Node) bool { return n.DataAtom == atom.Body })
}

// SetStyleVar sets a custom property in the root element's inline style,
// replacing an existing declaration of the same name in place. A value that
// would escape its declaration is rejected and SetStyleVar returns false.
func (d *Document) SetStyleVar(name, value string) bool {
	root := d.Root()
	if root == nil {
		return false
	}
	return SetStyleProp(root, name, value)
}

// StyleVar returns the value of a custom property set on the root element.
func (d *Document) StyleVar(name string) (string, bool) {
	root := d.Root()
	if root == nil {
		return "", false
	}
	return StyleProp(root, name)
}

// ValidStyleValue reports whether value can sit in a single inline style
// declaration.
func ValidStyleValue(value string) bool {
	return !strings.ContainsAny(value, ";{}") && !strings.Contains(value, "/*")
}

// SetStyleProp sets one declaration in the inline style of n.
func SetStyleProp(n *html.Node, name, value string) bool {
	if !ValidStyleValue(value) {
		return false
	}
	style, _ := Attr(n, "style")
	decls := parseStyle(style)
	for i := range decls {
		if decls[i][0] == name {
			decls[i][1] = value
			SetAttr(n, "style", formatStyle(decls))
			return true
		}
	}
	decls = append(decls, [2]string{name, value})
	SetAttr(n, "style", formatStyle(decls))
	return true
}

// StyleProp returns the value of one declaration in the inline style of n.
func StyleProp(n *html.Node, name string) (string, bool) {
	style, _ := Attr(n, "style")
	for _, decl := range parseStyle(style) {
		if decl[0] == name {
			return decl[1], true
		}
	}
	return "", false
}

// RemoveStyleProp drops one declaration from the inline style of n, and
// the style attribute with it when nothing else is left.
func RemoveStyleProp(n *html.Node, name string) {
	style, ok := Attr(n, "style")
	if !ok {
		return
	}
	decls := parseStyle(style)
	keep := decls[:0]
	for _, decl := range decls {
		if decl[0] != name {
			keep = append(keep, decl)
		}
	}
	if len(keep) == 0 {
		RemoveAttr(n, "style")
		return
	}
	SetAttr(n, "style", formatStyle(keep))
}

func parseStyle(style string) [][2]string {
	var decls [][2]string
	for _, part := range strings.Split(style, ";") {
		name, value, ok := strings.Cut(part, ":")
		if !ok {
			continue
		}
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		decls = append(decls, [2]string{name, strings.TrimSpace(value)})
	}
	return decls
}

func formatStyle(decls [][2]string) string {
	parts := make([]string, len(decls))
	for i, decl := range decls {
		parts[i] = decl[0] + ": " + decl[1]
	}
	return strings.Join(parts, "; ")
}

func (d *Document) AddBodyClass(class string) {
	if body := d.Body(); body != nil {
		AddClass(body, class)
	}
}

func (d *Document) RemoveBodyClass(class string) {
	if body := d.Body(); body != nil {
		RemoveClass(body, class)
	}
}

func (d *Document) HasBodyClass(class string) bool {
	body := d.Body()
	return body != nil && HasClass(body, class)
}

// ByClass returns the elements carrying class, in document order.
func (d *Document) ByClass(class string) []*html.Node {
	return all(d.root, func(n *html.Node) bool { return HasClass(n, class) })
}

// ByTag returns the elements with the given tag name, in document order.
func (d *Document) ByTag(tag string) []*html.Node {
	return all(d.root, func(n *html.Node) bool { return n.Data == tag })
}

// ElementByID returns the first element with id, or nil.
func (d *Document) ElementByID(id string) *html.Node {
	return first(d.root, func(n *html.Node) bool {
		v, ok := Attr(n, "id")
		return ok && v == id
	})
}

// CountByID returns how many elements carry id.
func (d *Document) CountByID(id string) int {
	return len(all(d.root, func(n *html.Node) bool {
		v, ok := Attr(n, "id")
		return ok && v == id
	}))
}

// Prepend inserts n as the first child of <body>.
func (d *Document) Prepend(n *html.Node) {
	body := d.Body()
	if body == nil {
		return
	}
	body.InsertBefore(n, body.FirstChild)
}

// Append inserts n as the last child of <body>.
func (d *Document) Append(n *html.Node) {
	if body := d.Body(); body != nil {
		body.AppendChild(n)
	}
}

// RemoveByID detaches every element carrying id and reports whether any
// was found.
func (d *Document) RemoveByID(id string) bool {
	nodes := all(d.root, func(n *html.Node) bool {
		v, ok := Attr(n, "id")
		return ok && v == id
	})
	for _, n := range nodes {
		if n.Parent != nil {
			n.Parent.RemoveChild(n)
		}
	}
	return len(nodes) > 0
}

// Render writes the page.
func (d *Document) Render(w io.Writer) error {
	return html.Render(w, d.root)
}

func (d *Document) String() string {
	var buf bytes.Buffer
	if err := d.Render(&buf); err != nil {
		return ""
	}
	return buf.String()
}

func first(n *html.Node, match func(*html.Node) bool) *html.Node {
	if n.Type == html.ElementNode && match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := first(c, match); found != nil {
			return found
		}
	}
	return nil
}

func all(n *html.Node, match func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && match(n) {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}
