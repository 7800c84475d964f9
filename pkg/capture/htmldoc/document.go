// Package htmldoc implements capture.Document over a parsed HTML tree. It
// backs the CLI gesture and inspect commands and the capture tests. Layout
// is not computed: boxes are assigned with SetBox.
package htmldoc

import (
	"bytes"
	"io"
	"math"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/andybalholm/cascadia"
	"github.com/aymerick/douceur/parser"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/grovetools/devsync/errors"
	"github.com/grovetools/devsync/pkg/capture"
)

// Document is an in-memory live page.
type Document struct {
	location  string
	root      *html.Node
	elems     map[*html.Node]*Element
	boxes     map[*html.Node]capture.Rect
	selectors map[string]cascadia.Selector
	observers []*observer
	external  []*externalSheet
}

var _ capture.Document = (*Document)(nil)

type observer struct {
	root *html.Node
	fn   func([]capture.Mutation)
	stop bool
}

// Parse reads an HTML document. location is reported as the page URL.
func Parse(r io.Reader, location string) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInvalidInput, "failed to parse HTML")
	}
	return &Document{
		location:  location,
		root:      root,
		elems:     make(map[*html.Node]*Element),
		boxes:     make(map[*html.Node]capture.Rect),
		selectors: make(map[string]cascadia.Selector),
	}, nil
}

// ParseString parses markup held in memory.
func ParseString(markup, location string) (*Document, error) {
	return Parse(strings.NewReader(markup), location)
}

// Load parses the file at path. The location is the file's file:// URL.
func Load(path string) (*Document, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInvalidInput, "failed to resolve path")
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.TargetFileMissing(abs)
		}
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to read HTML file")
	}
	return Parse(bytes.NewReader(data), FileURL(abs))
}

// FileURL returns the file:// URL of an absolute path.
func FileURL(abs string) string {
	p := filepath.ToSlash(abs)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return (&url.URL{Scheme: "file", Path: p}).String()
}

// Render writes the document as HTML.
func (d *Document) Render(w io.Writer) error {
	return html.Render(w, d.root)
}

// String renders the document.
func (d *Document) String() string {
	var b bytes.Buffer
	_ = d.Render(&b)
	return b.String()
}

func (d *Document) Location() string { return d.location }

// wrap returns the Element for n, or a nil interface for a nil node.
func (d *Document) wrap(n *html.Node) capture.Element {
	if n == nil {
		return nil
	}
	return d.element(n)
}

func (d *Document) element(n *html.Node) *Element {
	if e, ok := d.elems[n]; ok {
		return e
	}
	e := &Element{doc: d, node: n}
	d.elems[n] = e
	return e
}

func (d *Document) Root() capture.Element {
	for c := d.root.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			return d.element(c)
		}
	}
	return nil
}

func (d *Document) Body() capture.Element {
	return d.wrap(find(d.root, func(n *html.Node) bool { return n.DataAtom == atom.Body }))
}

func (d *Document) CreateElement(tag string) capture.Element {
	tag = strings.ToLower(tag)
	return d.element(&html.Node{Type: html.ElementNode, Data: tag, DataAtom: atom.Lookup([]byte(tag))})
}

func (d *Document) GetElementByID(id string) capture.Element {
	if id == "" {
		return nil
	}
	return d.wrap(find(d.root, func(n *html.Node) bool {
		for _, a := range n.Attr {
			if a.Key == "id" && a.Val == id {
				return true
			}
		}
		return false
	}))
}

// QuerySelector returns the first element matching selector, nil when none
// matches or the selector does not compile.
func (d *Document) QuerySelector(selector string) capture.Element {
	sel, err := d.compile(selector)
	if err != nil {
		return nil
	}
	return d.wrap(sel.MatchFirst(d.root))
}

// QuerySelectorAll returns every element matching selector in document
// order.
func (d *Document) QuerySelectorAll(selector string) []*Element {
	sel, err := d.compile(selector)
	if err != nil {
		return nil
	}
	var out []*Element
	for _, n := range sel.MatchAll(d.root) {
		out = append(out, d.element(n))
	}
	return out
}

// Elements returns every element in document order.
func (d *Document) Elements() []*Element {
	var out []*Element
	walk(d.root, func(n *html.Node) {
		if n.Type == html.ElementNode {
			out = append(out, d.element(n))
		}
	})
	return out
}

func (d *Document) compile(selector string) (cascadia.Selector, error) {
	if sel, ok := d.selectors[selector]; ok {
		return sel, nil
	}
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInvalidInput, "invalid selector "+strconv.Quote(selector))
	}
	d.selectors[selector] = sel
	return sel, nil
}

// SetBox assigns the layout box of el for hit-testing and computed sizes.
func (d *Document) SetBox(el capture.Element, r capture.Rect) {
	if e, ok := el.(*Element); ok && e.doc == d {
		d.boxes[e.node] = r
	}
}

// ElementFromPoint returns the last element in document order whose box
// contains the point. Detached elements and elements with
// pointer-events: none are skipped.
func (d *Document) ElementFromPoint(x, y float64) capture.Element {
	var hit *html.Node
	walk(d.root, func(n *html.Node) {
		r, ok := d.boxes[n]
		if !ok || !r.Contains(x, y) {
			return
		}
		if d.element(n).ComputedStyle("pointer-events") == "none" {
			return
		}
		hit = n
	})
	return d.wrap(hit)
}

// StyleSheets returns the <style> elements in document order followed by
// the sheets added with AddExternalSheet.
func (d *Document) StyleSheets() []capture.StyleSheet {
	var out []capture.StyleSheet
	walk(d.root, func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.Style {
			out = append(out, &inlineSheet{doc: d, node: n})
		}
	})
	for _, s := range d.external {
		out = append(out, s)
	}
	return out
}

// AddExternalSheet adds a linked sheet. An unreadable sheet fails Rules
// the way a cross-origin sheet does in a browser.
func (d *Document) AddExternalSheet(href string, readable bool, text string) error {
	sheet, err := parser.Parse(text)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInvalidInput, "failed to parse style sheet")
	}
	d.external = append(d.external, &externalSheet{href: href, readable: readable, sheet: sheet})
	return nil
}

// SetRule replaces the body of the first <style> rule for selector,
// emulating an edit in the browser's style inspector.
func (d *Document) SetRule(selector, body string) (bool, error) {
	for _, s := range d.StyleSheets() {
		in, ok := s.(*inlineSheet)
		if !ok {
			continue
		}
		found, err := in.setRule(selector, body)
		if err != nil || found {
			return found, err
		}
	}
	return false, nil
}

// ruleValue returns the value of prop from the last readable sheet rule
// matching e.
func (d *Document) ruleValue(e *Element, prop string) (string, bool) {
	var value string
	var found bool
	for _, s := range d.StyleSheets() {
		rules, err := s.Rules()
		if err != nil {
			continue
		}
		for _, r := range rules {
			sel, err := d.compile(r.Selector)
			if err != nil || !sel.Match(e.node) {
				continue
			}
			if v, ok := lookup(parseStyle(r.Body), prop); ok {
				value, found = v, true
			}
		}
	}
	return value, found
}

// NewOverlay appends a full-viewport surface to the body.
func (d *Document) NewOverlay() capture.Overlay {
	el := d.CreateElement("div").(*Element)
	el.SetAttr("style", "position: fixed; top: 0px; left: 0px; width: 100%; height: 100%; z-index: 2147483647; cursor: crosshair;")
	if body := d.Body(); body != nil {
		body.AppendChild(el)
	}
	d.boxes[el.node] = capture.Rect{Width: math.Inf(1), Height: math.Inf(1)}
	return &overlay{doc: d, el: el}
}

type overlay struct {
	doc *Document
	el  *Element
}

func (o *overlay) Element() capture.Element { return o.el }

func (o *overlay) SetPassThrough(on bool) {
	if on {
		o.el.SetStyle("pointer-events", "none")
		return
	}
	o.el.SetStyle("pointer-events", "")
}

func (o *overlay) Remove() {
	o.el.Remove()
	delete(o.doc.boxes, o.el.node)
}

// Observe delivers attribute mutations in root's subtree synchronously.
func (d *Document) Observe(root capture.Element, fn func([]capture.Mutation)) func() {
	e, ok := root.(*Element)
	if !ok || e.doc != d {
		return func() {}
	}
	o := &observer{root: e.node, fn: fn}
	d.observers = append(d.observers, o)
	return func() {
		o.stop = true
		for i, have := range d.observers {
			if have == o {
				d.observers = append(d.observers[:i], d.observers[i+1:]...)
				break
			}
		}
	}
}

func (d *Document) notify(e *Element, attr string) {
	if len(d.observers) == 0 {
		return
	}
	for _, o := range append([]*observer(nil), d.observers...) {
		if o.stop || !within(e.node, o.root) {
			continue
		}
		o.fn([]capture.Mutation{{Target: e, Attribute: attr}})
	}
}

func within(n, root *html.Node) bool {
	for ; n != nil; n = n.Parent {
		if n == root {
			return true
		}
	}
	return false
}

func walk(n *html.Node, fn func(*html.Node)) {
	fn(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

func find(n *html.Node, match func(*html.Node) bool) *html.Node {
	if n.Type == html.ElementNode && match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if hit := find(c, match); hit != nil {
			return hit
		}
	}
	return nil
}

func px(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + "px"
}
