// Package models defines the change events exchanged between the capture
// side and the patcher, and their wire form.
package models

import (
	"fmt"
	"strings"

	"github.com/grovetools/devsync/errors"
)

// Kind identifies which style dimension a ChangeEvent replaces.
type Kind string

const (
	KindInlineStyle Kind = "inline"
	KindCSSRule     Kind = "cssRule"
	KindDrag        Kind = "drag"
	KindResize      Kind = "resize"
)

// Kinds lists every kind in wire order.
var Kinds = []Kind{KindInlineStyle, KindCSSRule, KindDrag, KindResize}

// ParseKind maps a wire name onto a Kind.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown event type %q", s)
}

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	_, err := ParseKind(string(k))
	return err == nil
}

func (k Kind) String() string { return string(k) }

// Position is the payload of a drag. Values are CSS lengths such as "10px".
type Position struct {
	Left string `json:"left"`
	Top  string `json:"top"`
}

// Size is the payload of a resize. Values are CSS lengths such as "120px".
type Size struct {
	Width  string `json:"width"`
	Height string `json:"height"`
}

// ChangeEvent is the unit of synchronization. It always carries the full
// replacement value for its dimension, never a diff against prior state.
type ChangeEvent struct {
	Kind     Kind   `json:"kind"`
	Selector string `json:"selector"`
	// Style holds the inline style text for KindInlineStyle and the rule
	// body for KindCSSRule.
	Style    string    `json:"style,omitempty"`
	Position *Position `json:"position,omitempty"`
	Size     *Size     `json:"size,omitempty"`
	// TargetFile is a file:// URL, a page URL or a filesystem path.
	TargetFile string `json:"targetFile,omitempty"`
}

// NewInlineStyle builds an InlineStyle event.
func NewInlineStyle(selector, style, target string) ChangeEvent {
	return ChangeEvent{Kind: KindInlineStyle, Selector: selector, Style: style, TargetFile: target}
}

// NewCSSRule builds a CssRule event.
func NewCSSRule(selector, body, target string) ChangeEvent {
	return ChangeEvent{Kind: KindCSSRule, Selector: selector, Style: body, TargetFile: target}
}

// NewDrag builds a Drag event.
func NewDrag(selector, left, top, target string) ChangeEvent {
	return ChangeEvent{Kind: KindDrag, Selector: selector, Position: &Position{Left: left, Top: top}, TargetFile: target}
}

// NewResize builds a Resize event.
func NewResize(selector, width, height, target string) ChangeEvent {
	return ChangeEvent{Kind: KindResize, Selector: selector, Size: &Size{Width: width, Height: height}, TargetFile: target}
}

// Validate checks the preconditions the patcher relies on.
func (e ChangeEvent) Validate() error {
	if !e.Kind.Valid() {
		return errors.New(errors.ErrCodeInvalidInput, fmt.Sprintf("unknown event kind %q", e.Kind))
	}
	if strings.TrimSpace(e.Selector) == "" {
		return errors.MissingSelector(string(e.Kind))
	}
	switch e.Kind {
	case KindInlineStyle, KindCSSRule:
		if e.Style == "" {
			return errors.MissingPayload(string(e.Kind), "style")
		}
	case KindDrag:
		if e.Position == nil {
			return errors.MissingPayload(string(e.Kind), "position")
		}
		if blank(e.Position.Left) || blank(e.Position.Top) {
			return errors.MissingPayload(string(e.Kind), "position.left and position.top")
		}
	case KindResize:
		if e.Size == nil {
			return errors.MissingPayload(string(e.Kind), "size")
		}
		if blank(e.Size.Width) || blank(e.Size.Height) {
			return errors.MissingPayload(string(e.Kind), "size.width and size.height")
		}
	}
	return nil
}

func blank(s string) bool { return strings.TrimSpace(s) == "" }

// Summary renders the payload for log lines.
func (e ChangeEvent) Summary() string {
	switch e.Kind {
	case KindDrag:
		if e.Position != nil {
			return fmt.Sprintf("left=%s, top=%s", e.Position.Left, e.Position.Top)
		}
	case KindResize:
		if e.Size != nil {
			return fmt.Sprintf("%s x %s", e.Size.Width, e.Size.Height)
		}
	default:
		return e.Style
	}
	return ""
}
