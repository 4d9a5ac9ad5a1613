package scoring

import (
	"strings"

	"github.com/spf13/cast"

	"identitypulse/internal/identity/country"
	"identitypulse/internal/identity/models"
)

// values returns the non-empty document values mapped to a logical field, in
// mapping order. Dotted names address nested objects.
func values(doc models.Document, p *country.Profile, f models.Field) []string {
	m, ok := p.Mapping(f)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(m.Fields))
	for _, name := range m.Fields {
		raw, ok := lookup(doc, name)
		if !ok {
			continue
		}
		for _, v := range flatten(raw) {
			if s := strings.TrimSpace(v); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

func lookup(doc models.Document, name string) (any, bool) {
	if v, ok := doc[name]; ok {
		return v, true
	}
	var cur any = map[string]any(doc)
	for _, part := range strings.Split(name, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		if cur, ok = obj[part]; !ok {
			return nil, false
		}
	}
	return cur, true
}

// flatten stringifies a source value. Arrays contribute every element.
func flatten(raw any) []string {
	switch v := raw.(type) {
	case nil:
		return nil
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			out = append(out, flatten(e)...)
		}
		return out
	default:
		s, err := cast.ToStringE(v)
		if err != nil {
			return nil
		}
		return []string{s}
	}
}
