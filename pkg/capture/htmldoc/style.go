package htmldoc

import (
	"strings"

	"github.com/aymerick/douceur/parser"
)

type decl struct {
	prop  string
	value string
}

// parseStyle splits inline style text into declarations, lowercasing
// property names.
func parseStyle(text string) []decl {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if !strings.HasSuffix(text, ";") {
		text += ";"
	}
	var out []decl
	if parsed, err := parser.ParseDeclarations(text); err == nil {
		for _, d := range parsed {
			if d.Property == "" {
				continue
			}
			v := d.Value
			if d.Important {
				v += " !important"
			}
			out = append(out, decl{prop: strings.ToLower(d.Property), value: v})
		}
		if len(out) > 0 {
			return out
		}
	}
	for _, part := range strings.Split(text, ";") {
		p, v, ok := strings.Cut(part, ":")
		if !ok || strings.TrimSpace(p) == "" {
			continue
		}
		out = append(out, decl{prop: strings.ToLower(strings.TrimSpace(p)), value: strings.TrimSpace(v)})
	}
	return out
}

// formatStyle renders declarations the way browsers serialize cssText.
func formatStyle(decls []decl) string {
	parts := make([]string, 0, len(decls))
	for _, d := range decls {
		parts = append(parts, d.prop+": "+d.value+";")
	}
	return strings.Join(parts, " ")
}

func lookup(decls []decl, prop string) (string, bool) {
	prop = strings.ToLower(prop)
	for i := len(decls) - 1; i >= 0; i-- {
		if decls[i].prop == prop {
			return decls[i].value, true
		}
	}
	return "", false
}

// setDecl replaces prop in place, appends it, or removes it when value is
// empty.
func setDecl(decls []decl, prop, value string) []decl {
	prop = strings.ToLower(prop)
	out := decls[:0:0]
	replaced := false
	for _, d := range decls {
		if d.prop != prop {
			out = append(out, d)
			continue
		}
		if value != "" && !replaced {
			out = append(out, decl{prop: prop, value: value})
			replaced = true
		}
	}
	if value != "" && !replaced {
		out = append(out, decl{prop: prop, value: value})
	}
	return out
}
