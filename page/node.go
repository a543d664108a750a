package page

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var ugc = bluemonday.UGCPolicy()

// Element builds an element node with attributes given as key, value pairs.
func Element(tag string, attrs []html.Attribute, children ...*html.Node) *html.Node {
	n := &html.Node{
		Type:     html.ElementNode,
		Data:     tag,
		DataAtom: atom.Lookup([]byte(tag)),
		Attr:     attrs,
	}
	for _, c := range children {
		n.AppendChild(c)
	}
	return n
}

// Attrs turns key, value pairs into attributes.
func Attrs(kv ...string) []html.Attribute {
	out := make([]html.Attribute, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		out = append(out, html.Attribute{Key: kv[i], Val: kv[i+1]})
	}
	return out
}

// Text builds a text node.
func Text(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

// Fragment sanitizes markup with a user-content policy and parses it as
// children of a <div>.
func Fragment(markup string) []*html.Node {
	clean := ugc.Sanitize(markup)
	ctx := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	nodes, err := html.ParseFragment(strings.NewReader(clean), ctx)
	if err != nil {
		return []*html.Node{Text(bluemonday.StrictPolicy().Sanitize(markup))}
	}
	return nodes
}

// Sanitize returns markup cleaned with the user-content policy.
func Sanitize(markup string) string {
	return ugc.Sanitize(markup)
}

func Attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func SetAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func RemoveAttr(n *html.Node, key string) {
	out := n.Attr[:0]
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			continue
		}
		out = append(out, a)
	}
	n.Attr = out
}

func classes(n *html.Node) []string {
	v, _ := Attr(n, "class")
	return strings.Fields(v)
}

func HasClass(n *html.Node, class string) bool {
	for _, c := range classes(n) {
		if c == class {
			return true
		}
	}
	return false
}

func AddClass(n *html.Node, class string) {
	if HasClass(n, class) {
		return
	}
	SetAttr(n, "class", strings.Join(append(classes(n), class), " "))
}

func RemoveClass(n *html.Node, class string) {
	if !HasClass(n, class) {
		return
	}
	var keep []string
	for _, c := range classes(n) {
		if c != class {
			keep = append(keep, c)
		}
	}
	if len(keep) == 0 {
		RemoveAttr(n, "class")
		return
	}
	SetAttr(n, "class", strings.Join(keep, " "))
}

// SetChildren replaces all children of n.
func SetChildren(n *html.Node, children ...*html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		c = next
	}
	for _, c := range children {
		n.AppendChild(c)
	}
}

// SetText replaces the children of n with a single text node.
func SetText(n *html.Node, s string) {
	SetChildren(n, Text(s))
}

// SetLines replaces the children of n with the lines of s separated by
// <br> elements.
func SetLines(n *html.Node, s string) {
	lines := strings.Split(s, "\n")
	children := make([]*html.Node, 0, 2*len(lines))
	for i, line := range lines {
		if i > 0 {
			children = append(children, Element("br", nil))
		}
		children = append(children, Text(line))
	}
	SetChildren(n, children...)
}

// TextContent returns the concatenated text below n.
func TextContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}
