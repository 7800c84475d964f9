package patcher

import (
	"strings"

	"github.com/aymerick/douceur/parser"
)

// declaration is one "property: value" pair of a style block.
type declaration struct {
	Property  string
	Value     string
	Important bool
}

func (d declaration) String() string {
	if d.Important {
		return d.Property + ": " + d.Value + " !important;"
	}
	return d.Property + ": " + d.Value + ";"
}

// parseDeclarations splits style text into declarations. It uses the
// douceur tokenizer so that semicolons inside strings and url() survive,
// and falls back to a plain ';' split when the text does not tokenize.
func parseDeclarations(text string) []declaration {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}
	if !strings.HasSuffix(trimmed, ";") {
		// The tokenizer drops a trailing declaration without terminator.
		trimmed += ";"
	}

	parsed, err := parser.ParseDeclarations(trimmed)
	if err == nil {
		out := make([]declaration, 0, len(parsed))
		ok := true
		for _, d := range parsed {
			if d.Property == "" || d.Value == "" {
				ok = false
				break
			}
			out = append(out, declaration{Property: d.Property, Value: d.Value, Important: d.Important})
		}
		if ok {
			return out
		}
	}
	return splitDeclarations(trimmed)
}

// splitDeclarations is the naive split used when tokenizing fails.
func splitDeclarations(text string) []declaration {
	var out []declaration
	for _, part := range strings.Split(text, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		prop, value, found := strings.Cut(part, ":")
		if !found {
			continue
		}
		d := declaration{Property: strings.TrimSpace(prop), Value: strings.TrimSpace(value)}
		if lower := strings.ToLower(d.Value); strings.HasSuffix(lower, "!important") {
			d.Important = true
			d.Value = strings.TrimSpace(d.Value[:len(d.Value)-len("!important")])
		}
		if d.Property == "" || d.Value == "" {
			continue
		}
		out = append(out, d)
	}
	return out
}

// joinDeclarations renders declarations on one line, "a: b; c: d;".
func joinDeclarations(decls []declaration) string {
	parts := make([]string, len(decls))
	for i, d := range decls {
		parts[i] = d.String()
	}
	return strings.Join(parts, " ")
}
