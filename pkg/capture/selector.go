package capture

import (
	"strings"
)

// Namespace holds the class prefixes reserved for devsync's own UI. Classes
// carrying one never appear in a derived selector.
type Namespace struct {
	Prefixes []string
}

// DefaultNamespace reserves "ds-" and "dev-sync".
var DefaultNamespace = Namespace{Prefixes: []string{"ds-", "dev-sync"}}

// Owns reports whether class belongs to the namespace.
func (n Namespace) Owns(class string) bool {
	for _, p := range n.Prefixes {
		if strings.HasPrefix(class, p) {
			return true
		}
	}
	return false
}

// SelectorFor derives the selector sent for el: "#id" when the element has
// an id, else the tag joined with its non-namespace classes by ".", else the
// bare lowercase tag. The patcher resolves exactly these forms.
func SelectorFor(el Element, ns Namespace) string {
	if id := el.ID(); id != "" {
		return "#" + id
	}
	tag := strings.ToLower(el.TagName())

	var classes []string
	for _, c := range el.ClassList() {
		if c == "" || ns.Owns(c) {
			continue
		}
		classes = append(classes, c)
	}
	if len(classes) > 0 {
		return tag + "." + strings.Join(classes, ".")
	}
	return tag
}
