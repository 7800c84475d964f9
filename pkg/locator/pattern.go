package locator

import (
	"regexp"
	"strings"

	"github.com/grovetools/devsync/errors"
)

var (
	tagPrefixRe  = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9-]*`)
	openTagRe    = regexp.MustCompile(`<([A-Za-z][A-Za-z0-9:-]*)([^>]*)>`)
	styleAttrRe  = regexp.MustCompile(`(?:^|\s)(?i:style)\s*=\s*(?:"([^"]*)"|'([^']*)')`)
	ruleBodyTmpl = `\s*\{([^}]*)\}`
)

// Pattern is the regular-expression Locator. It does not parse HTML: the
// first opening tag that structurally matches wins, including when an id is
// duplicated.
type Pattern struct{}

// Default is the Locator used when none is configured.
var Default Locator = Pattern{}

// LocateElement implements Locator.
func (Pattern) LocateElement(text, selector string, c Constraint) (ElementMatch, error) {
	selector = strings.TrimSpace(selector)
	if selector == "" {
		return ElementMatch{}, errors.MissingSelector("element")
	}

	var matchAttrs func(name, attrs string) bool
	switch {
	case IsIDSelector(selector):
		id := SelectorID(selector)
		if id == "" {
			return ElementMatch{}, errors.UnsupportedSelector(selector, "element lookup")
		}
		quoted := regexp.QuoteMeta(id)
		idRe := regexp.MustCompile(`(?:^|\s)(?i:id)\s*=\s*(?:"` + quoted + `"|'` + quoted + `')`)
		matchAttrs = func(_, attrs string) bool { return idRe.MatchString(attrs) }
	case c == IDOnly:
		return ElementMatch{}, errors.UnsupportedSelector(selector, "this operation")
	default:
		tag := SelectorTag(selector)
		if tag == "" {
			return ElementMatch{}, errors.UnsupportedSelector(selector, "element lookup")
		}
		matchAttrs = func(name, _ string) bool { return strings.EqualFold(name, tag) }
	}

	for _, loc := range openTagRe.FindAllStringSubmatchIndex(text, -1) {
		name := text[loc[2]:loc[3]]
		attrs := text[loc[4]:loc[5]]
		if !matchAttrs(name, attrs) {
			continue
		}
		return describeTag(text, loc), nil
	}
	return ElementMatch{}, errors.SelectorNotFound(selector, "element")
}

// describeTag builds the match for one openTagRe submatch index set.
func describeTag(text string, loc []int) ElementMatch {
	m := ElementMatch{
		Tag:  Range{Start: loc[0], End: loc[1]},
		Name: text[loc[2]:loc[3]],
	}

	attrStart := loc[4]
	attrs := text[loc[4]:loc[5]]
	if s := styleAttrRe.FindStringSubmatchIndex(attrs); s != nil {
		m.HasStyle = true
		if s[2] >= 0 {
			m.Style = Range{Start: attrStart + s[2], End: attrStart + s[3]}
			m.Quote = '"'
		} else {
			m.Style = Range{Start: attrStart + s[4], End: attrStart + s[5]}
			m.Quote = '\''
		}
	}

	// Walk back from '>' over whitespace and a self-closing slash.
	insert := loc[1] - 1
	for insert > loc[3] {
		ch := text[insert-1]
		if ch != '/' && ch != ' ' && ch != '\t' && ch != '\n' && ch != '\r' {
			break
		}
		insert--
	}
	m.Insert = insert
	return m
}

// LocateRule implements Locator.
func (Pattern) LocateRule(text, selector string) (Range, error) {
	selector = strings.TrimSpace(selector)
	if selector == "" {
		return Range{}, errors.MissingSelector("rule")
	}
	re := regexp.MustCompile(regexp.QuoteMeta(selector) + ruleBodyTmpl)
	loc := re.FindStringSubmatchIndex(text)
	if loc == nil {
		return Range{}, errors.SelectorNotFound(selector, "style rule")
	}
	return Range{Start: loc[2], End: loc[3]}, nil
}
