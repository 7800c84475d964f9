package htmldoc

import (
	"strings"

	"github.com/aymerick/douceur/css"
	"github.com/aymerick/douceur/parser"
	"golang.org/x/net/html"

	"github.com/grovetools/devsync/errors"
	"github.com/grovetools/devsync/pkg/capture"
)

// inlineSheet is a <style> element of the document.
type inlineSheet struct {
	doc  *Document
	node *html.Node
}

func (s *inlineSheet) Href() string { return "" }

func (s *inlineSheet) Rules() ([]capture.Rule, error) {
	sheet, err := s.parse()
	if err != nil {
		return nil, err
	}
	return rulesOf(sheet), nil
}

func (s *inlineSheet) parse() (*css.Stylesheet, error) {
	sheet, err := parser.Parse(textOf(s.node))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInvalidInput, "failed to parse style element")
	}
	return sheet, nil
}

// setRule replaces the declarations of the first rule whose selector is
// selector and rewrites the element text. It reports whether a rule matched.
func (s *inlineSheet) setRule(selector, body string) (bool, error) {
	sheet, err := s.parse()
	if err != nil {
		return false, err
	}
	for _, r := range sheet.Rules {
		if r.Kind != css.QualifiedRule || strings.TrimSpace(r.Prelude) != selector {
			continue
		}
		r.Declarations = r.Declarations[:0]
		for _, d := range parseStyle(body) {
			value, important := strings.CutSuffix(d.value, " !important")
			r.Declarations = append(r.Declarations, &css.Declaration{
				Property:  d.prop,
				Value:     value,
				Important: important,
			})
		}
		setText(s.node, "\n"+sheet.String()+"\n")
		return true, nil
	}
	return false, nil
}

// externalSheet stands in for a <link>ed sheet. Unreadable ones model a
// cross-origin sheet whose rules the page may not inspect.
type externalSheet struct {
	href     string
	readable bool
	sheet    *css.Stylesheet
}

func (s *externalSheet) Href() string { return s.href }

func (s *externalSheet) Rules() ([]capture.Rule, error) {
	if !s.readable {
		return nil, errors.New(errors.ErrCodeInvalidInput, "cannot read rules of cross-origin style sheet "+s.href)
	}
	return rulesOf(s.sheet), nil
}

func rulesOf(sheet *css.Stylesheet) []capture.Rule {
	var out []capture.Rule
	for _, r := range sheet.Rules {
		if r.Kind != css.QualifiedRule {
			continue
		}
		decls := make([]decl, 0, len(r.Declarations))
		for _, d := range r.Declarations {
			v := d.Value
			if d.Important {
				v += " !important"
			}
			decls = append(decls, decl{prop: strings.ToLower(d.Property), value: v})
		}
		out = append(out, capture.Rule{
			Selector: strings.TrimSpace(r.Prelude),
			Body:     formatStyle(decls),
		})
	}
	return out
}
