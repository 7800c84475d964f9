// Package locator finds the byte ranges the patcher splices into: the
// opening tag (and its style attribute) of an element, or the body of a CSS
// rule. Callers depend on the Locator interface so the pattern-based
// implementation can be swapped for an HTML-aware one.
package locator

import (
	"strings"
)

// Range is a half-open byte range [Start, End) into a document.
type Range struct {
	Start int
	End   int
}

// Slice returns the text covered by r.
func (r Range) Slice(text string) string {
	return text[r.Start:r.End]
}

// Len returns the length of the range in bytes.
func (r Range) Len() int { return r.End - r.Start }

// Constraint narrows which selectors an element lookup accepts.
type Constraint int

const (
	// AnyElement accepts id selectors and tag selectors.
	AnyElement Constraint = iota
	// IDOnly rejects everything but #id selectors.
	IDOnly
)

// ElementMatch describes the opening tag of the first matching element.
type ElementMatch struct {
	// Tag covers the whole opening tag, '<' through '>'.
	Tag Range
	// Name is the tag name as written in the document.
	Name string
	// HasStyle is set when the tag carries a style attribute.
	HasStyle bool
	// Style covers the attribute value between its quotes.
	Style Range
	// Quote is the delimiter of the style value, '"' or '\''.
	Quote byte
	// Insert is where a new attribute goes when HasStyle is false:
	// after the last attribute, before any "/>" or ">".
	Insert int
}

// StyleValue returns the current raw style attribute value.
func (m ElementMatch) StyleValue(text string) string {
	if !m.HasStyle {
		return ""
	}
	return m.Style.Slice(text)
}

// Locator resolves selectors against document text.
type Locator interface {
	// LocateElement returns the first element matching selector.
	LocateElement(text, selector string, c Constraint) (ElementMatch, error)
	// LocateRule returns the body range of the first rule whose header is
	// literally selector.
	LocateRule(text, selector string) (Range, error)
}

// IsIDSelector reports whether selector is an id selector.
func IsIDSelector(selector string) bool {
	return strings.HasPrefix(strings.TrimSpace(selector), "#")
}

// SelectorID returns the id named by an id selector.
func SelectorID(selector string) string {
	return strings.TrimPrefix(strings.TrimSpace(selector), "#")
}

// SelectorTag returns the leading tag name of a tag or classed selector,
// e.g. "div" for "div.card". It is empty when the selector does not start
// with a tag name.
func SelectorTag(selector string) string {
	return tagPrefixRe.FindString(strings.TrimSpace(selector))
}
