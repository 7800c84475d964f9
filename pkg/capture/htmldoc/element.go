package htmldoc

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/grovetools/devsync/pkg/capture"
)

// Element wraps one element node. The document hands out one Element per
// node so wrappers compare with ==.
type Element struct {
	doc  *Document
	node *html.Node
}

var _ capture.Element = (*Element)(nil)

// Node returns the underlying parse tree node.
func (e *Element) Node() *html.Node { return e.node }

func (e *Element) TagName() string { return strings.ToLower(e.node.Data) }

func (e *Element) ID() string {
	v, _ := e.Attr("id")
	return v
}

func (e *Element) ClassList() []string {
	v, _ := e.Attr("class")
	return strings.Fields(v)
}

func (e *Element) HasClass(name string) bool {
	for _, c := range e.ClassList() {
		if c == name {
			return true
		}
	}
	return false
}

func (e *Element) AddClass(name string) {
	if e.HasClass(name) {
		return
	}
	e.SetAttr("class", strings.Join(append(e.ClassList(), name), " "))
}

func (e *Element) RemoveClass(name string) {
	if !e.HasClass(name) {
		return
	}
	var keep []string
	for _, c := range e.ClassList() {
		if c != name {
			keep = append(keep, c)
		}
	}
	if len(keep) == 0 {
		e.RemoveAttr("class")
		return
	}
	e.SetAttr("class", strings.Join(keep, " "))
}

func (e *Element) Attr(name string) (string, bool) {
	for _, a := range e.node.Attr {
		if a.Namespace == "" && a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

func (e *Element) SetAttr(name, value string) {
	for i, a := range e.node.Attr {
		if a.Namespace == "" && a.Key == name {
			e.node.Attr[i].Val = value
			e.doc.notify(e, name)
			return
		}
	}
	e.node.Attr = append(e.node.Attr, html.Attribute{Key: name, Val: value})
	e.doc.notify(e, name)
}

func (e *Element) RemoveAttr(name string) {
	for i, a := range e.node.Attr {
		if a.Namespace == "" && a.Key == name {
			e.node.Attr = append(e.node.Attr[:i], e.node.Attr[i+1:]...)
			e.doc.notify(e, name)
			return
		}
	}
}

func (e *Element) inline() []decl {
	v, _ := e.Attr("style")
	return parseStyle(v)
}

func (e *Element) Style(prop string) string {
	v, _ := lookup(e.inline(), prop)
	return v
}

// SetStyle rewrites the style attribute with prop set. Removing the last
// declaration leaves an empty attribute, as browsers do.
func (e *Element) SetStyle(prop, value string) {
	decls := e.inline()
	if value == "" {
		if _, ok := lookup(decls, prop); !ok {
			return
		}
	}
	e.SetAttr("style", formatStyle(setDecl(decls, prop, value)))
}

// ComputedStyle resolves prop from the inline style, then the last matching
// sheet rule, then the element's box.
func (e *Element) ComputedStyle(prop string) string {
	prop = strings.ToLower(prop)
	if v, ok := lookup(e.inline(), prop); ok {
		return v
	}
	if v, ok := e.doc.ruleValue(e, prop); ok {
		return v
	}
	switch prop {
	case "position":
		return "static"
	case "left", "top", "right", "bottom":
		return "auto"
	case "width", "height":
		r, ok := e.doc.boxes[e.node]
		if !ok {
			return "auto"
		}
		if prop == "width" {
			return px(r.Width)
		}
		return px(r.Height)
	}
	return ""
}

func (e *Element) Rect() capture.Rect { return e.doc.boxes[e.node] }

func (e *Element) Parent() capture.Element {
	p := e.node.Parent
	if p == nil || p.Type != html.ElementNode {
		return nil
	}
	return e.doc.wrap(p)
}

func (e *Element) Closest(selector string) capture.Element {
	sel, err := e.doc.compile(selector)
	if err != nil {
		return nil
	}
	for n := e.node; n != nil && n.Type == html.ElementNode; n = n.Parent {
		if sel.Match(n) {
			return e.doc.wrap(n)
		}
	}
	return nil
}

func (e *Element) AppendChild(child capture.Element) {
	c, ok := child.(*Element)
	if !ok || c.doc != e.doc {
		return
	}
	if c.node.Parent != nil {
		c.node.Parent.RemoveChild(c.node)
	}
	e.node.AppendChild(c.node)
}

func (e *Element) SetText(text string) {
	setText(e.node, text)
}

func (e *Element) Remove() {
	if e.node.Parent != nil {
		e.node.Parent.RemoveChild(e.node)
	}
}

// Text returns the concatenated text content.
func (e *Element) Text() string { return textOf(e.node) }

func setText(n *html.Node, text string) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		c = next
	}
	n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
}

func textOf(n *html.Node) string {
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
