// Package capture turns gestures and style mutations on a live document into
// change events. It is written against a narrow DOM abstraction so any host
// that can render a page (a browser bridge, an in-memory tree) can drive it.
//
// All methods are meant to be called from the host's single UI goroutine.
package capture

// Element is one element of the live document. Implementations must return
// the same value for the same underlying node so elements compare with ==.
type Element interface {
	// TagName returns the lowercase tag name.
	TagName() string
	ID() string
	ClassList() []string
	HasClass(name string) bool
	AddClass(name string)
	RemoveClass(name string)

	Attr(name string) (string, bool)
	SetAttr(name, value string)
	RemoveAttr(name string)

	// Style returns one inline style property, empty when unset.
	Style(prop string) string
	// SetStyle sets one inline style property; an empty value removes it.
	SetStyle(prop, value string)
	// ComputedStyle returns the resolved value of prop.
	ComputedStyle(prop string) string
	// Rect returns the element's layout box.
	Rect() Rect

	Parent() Element
	// Closest returns the element itself or its nearest ancestor matching
	// selector, or nil.
	Closest(selector string) Element
	AppendChild(child Element)
	SetText(text string)
	// Remove detaches the element from the document.
	Remove()
}

// Document is the live page.
type Document interface {
	// Location is the page URL, sent as the target file of every event.
	Location() string
	Root() Element
	Body() Element
	CreateElement(tag string) Element
	GetElementByID(id string) Element
	QuerySelector(selector string) Element
	// ElementFromPoint hit-tests the topmost element at (x, y) that accepts
	// pointer events.
	ElementFromPoint(x, y float64) Element
	StyleSheets() []StyleSheet
	// NewOverlay adds a full-viewport surface above everything else.
	NewOverlay() Overlay
	// Observe reports attribute mutations within root's subtree until the
	// returned stop function is called.
	Observe(root Element, fn func([]Mutation)) (stop func())
}

// Overlay is the transparent surface used by selection mode.
type Overlay interface {
	Element() Element
	// SetPassThrough lets hit-tests see through the surface.
	SetPassThrough(on bool)
	Remove()
}

// StyleSheet is one sheet of the document.
type StyleSheet interface {
	// Href is empty for sheets defined inline with <style>.
	Href() string
	// Rules returns the style rules. Sheets the page may not read fail.
	Rules() ([]Rule, error)
}

// Rule is one style rule.
type Rule struct {
	Selector string
	Body     string
}

// Mutation is an attribute change delivered by Document.Observe.
type Mutation struct {
	Target    Element
	Attribute string
}

// Rect is a layout box in viewport coordinates.
type Rect struct {
	X, Y          float64
	Width, Height float64
}

// Contains reports whether the point lies inside r.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && x < r.X+r.Width && y >= r.Y && y < r.Y+r.Height
}

// PointerEvent is a pointer-down, -move, -up or click delivered by the host.
type PointerEvent struct {
	X, Y   float64
	Target Element
}
