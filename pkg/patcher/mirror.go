package patcher

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/aymerick/douceur/css"

	"github.com/grovetools/devsync/errors"
	"github.com/grovetools/devsync/pkg/models"
)

// Mirror keeps a standalone stylesheet holding the latest declarations seen
// for every selector, in first-seen order.
type Mirror struct {
	path string

	mu    sync.Mutex
	order []string
	rules map[string][]declaration
}

// NewMirror creates a mirror writing to path.
func NewMirror(path string) *Mirror {
	return &Mirror{path: path, rules: make(map[string][]declaration)}
}

// Path returns the stylesheet path.
func (m *Mirror) Path() string { return m.path }

// Record stores an inline or cssRule event and rewrites the stylesheet.
// Other kinds are ignored.
func (m *Mirror) Record(ev models.ChangeEvent) error {
	if ev.Kind != models.KindInlineStyle && ev.Kind != models.KindCSSRule {
		return nil
	}
	selector := strings.TrimSpace(ev.Selector)

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, seen := m.rules[selector]; !seen {
		m.order = append(m.order, selector)
	}
	m.rules[selector] = parseDeclarations(ev.Style)

	if dir := filepath.Dir(m.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrap(err, errors.ErrCodeInternal, "failed to create mirror directory")
		}
	}
	if err := os.WriteFile(m.path, []byte(m.render()), 0o644); err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to write mirrored CSS").WithDetail("path", m.path)
	}
	return nil
}

// String renders the stylesheet.
func (m *Mirror) String() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.render()
}

func (m *Mirror) render() string {
	sheet := css.NewStylesheet()
	for _, sel := range m.order {
		rule := css.NewRule(css.QualifiedRule)
		rule.Prelude = sel
		rule.Selectors = []string{sel}
		for _, d := range m.rules[sel] {
			rule.Declarations = append(rule.Declarations, &css.Declaration{
				Property:  d.Property,
				Value:     d.Value,
				Important: d.Important,
			})
		}
		sheet.Rules = append(sheet.Rules, rule)
	}
	out := sheet.String()
	if out != "" && !strings.HasSuffix(out, "\n") {
		out += "\n"
	}
	return out
}
