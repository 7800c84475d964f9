package patcher

import (
	"fmt"
	"strings"

	"github.com/grovetools/devsync/errors"
	"github.com/grovetools/devsync/pkg/locator"
	"github.com/grovetools/devsync/pkg/models"
)

const (
	ruleDeclIndent  = "\n      "
	ruleCloseIndent = "\n    "
)

// Editor computes a document's new text for one change. It performs exactly
// one splice per call and never touches the filesystem.
type Editor struct {
	Locator locator.Locator
}

// NewEditor returns an Editor over loc, or over the pattern locator when
// loc is nil.
func NewEditor(loc locator.Locator) Editor {
	if loc == nil {
		loc = locator.Default
	}
	return Editor{Locator: loc}
}

// Apply dispatches on the event kind.
func (e Editor) Apply(text string, ev models.ChangeEvent) (string, error) {
	switch ev.Kind {
	case models.KindInlineStyle:
		return e.InlineStyle(text, ev.Selector, ev.Style)
	case models.KindCSSRule:
		return e.CSSRule(text, ev.Selector, ev.Style)
	case models.KindDrag:
		if ev.Position == nil {
			return text, errors.MissingPayload(string(ev.Kind), "position")
		}
		return e.Drag(text, ev.Selector, *ev.Position)
	case models.KindResize:
		if ev.Size == nil {
			return text, errors.MissingPayload(string(ev.Kind), "size")
		}
		return e.Resize(text, ev.Selector, *ev.Size)
	}
	return text, errors.New(errors.ErrCodeInvalidInput, fmt.Sprintf("unknown event kind %q", ev.Kind))
}

// InlineStyle replaces the style attribute of the first element matching
// selector with style, verbatim, or appends one.
func (e Editor) InlineStyle(text, selector, style string) (string, error) {
	m, err := e.Locator.LocateElement(text, selector, locator.AnyElement)
	if err != nil {
		return text, err
	}
	return setStyle(text, m, style), nil
}

// CSSRule replaces the body of the first "selector { ... }" rule with body,
// one declaration per line. A body without a single "property: value"
// declaration is rejected so the rule is never emptied.
func (e Editor) CSSRule(text, selector, body string) (string, error) {
	r, err := e.Locator.LocateRule(text, selector)
	if err != nil {
		return text, err
	}
	decls := parseDeclarations(body)
	if len(decls) == 0 {
		return text, errors.New(errors.ErrCodeInvalidInput, "rule body has no declarations").
			WithDetail("selector", selector).
			WithDetail("body", body)
	}
	return text[:r.Start] + formatRuleBody(decls) + text[r.End:], nil
}

// Drag overwrites the whole style attribute of the #id element with the
// position. Any other inline declaration on the element is lost.
func (e Editor) Drag(text, selector string, pos models.Position) (string, error) {
	m, err := e.Locator.LocateElement(text, selector, locator.IDOnly)
	if err != nil {
		return text, err
	}
	style := fmt.Sprintf("position: relative; left: %s; top: %s;", pos.Left, pos.Top)
	return setStyle(text, m, style), nil
}

// Resize drops width and height from the #id element's inline style and
// prepends the new size, keeping every other declaration.
func (e Editor) Resize(text, selector string, size models.Size) (string, error) {
	m, err := e.Locator.LocateElement(text, selector, locator.IDOnly)
	if err != nil {
		return text, err
	}

	var kept []declaration
	for _, d := range parseDeclarations(unescapeAttr(m.StyleValue(text), m.Quote)) {
		switch strings.ToLower(d.Property) {
		case "width", "height":
			continue
		}
		kept = append(kept, d)
	}

	style := fmt.Sprintf("width: %s; height: %s;", size.Width, size.Height)
	if len(kept) > 0 {
		style += " " + joinDeclarations(kept)
	}
	return setStyle(text, m, style), nil
}

// setStyle splices value into the element's style attribute.
func setStyle(text string, m locator.ElementMatch, value string) string {
	if m.HasStyle {
		return text[:m.Style.Start] + escapeAttr(value, m.Quote) + text[m.Style.End:]
	}
	return text[:m.Insert] + ` style="` + escapeAttr(value, '"') + `"` + text[m.Insert:]
}

// formatRuleBody renders a rule body with one declaration per line.
func formatRuleBody(decls []declaration) string {
	var b strings.Builder
	for _, d := range decls {
		b.WriteString(ruleDeclIndent)
		b.WriteString(d.String())
	}
	b.WriteString(ruleCloseIndent)
	return b.String()
}

// escapeAttr encodes the attribute delimiter so a value such as
// url("a.png") cannot terminate the attribute early.
func escapeAttr(value string, quote byte) string {
	switch quote {
	case '\'':
		return strings.ReplaceAll(value, "'", "&#39;")
	default:
		return strings.ReplaceAll(value, `"`, "&quot;")
	}
}

func unescapeAttr(value string, quote byte) string {
	switch quote {
	case '\'':
		return strings.ReplaceAll(value, "&#39;", "'")
	default:
		return strings.ReplaceAll(value, "&quot;", `"`)
	}
}
