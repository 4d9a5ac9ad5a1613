// Package query turns a normalized identity request into a backend-agnostic
// boolean query and renders it in the Elasticsearch query DSL.
package query

import (
	"encoding/json"
	"strconv"

	"identitypulse/internal/identity/country"
	"identitypulse/internal/identity/models"
)

const (
	// DefaultSize caps the number of candidates requested from the backend.
	DefaultSize = 10

	// PhoneFuzziness is the edit tolerance for string-stored phone numbers.
	PhoneFuzziness = "1"
)

// Fuzziness maps a strictness level to the name clause edit tolerance.
func Fuzziness(s models.Strictness) string {
	switch s {
	case models.StrictnessStrict:
		return "0"
	case models.StrictnessLoose:
		return "2"
	default:
		return "AUTO"
	}
}

// Clause is one leaf of the boolean query.
type Clause interface {
	source() map[string]any
}

// MultiMatch is a match over several document fields. Used for name slots.
type MultiMatch struct {
	Query     string
	Fields    []string
	Fuzziness string
	Boost     float64
}

func (m MultiMatch) source() map[string]any {
	body := map[string]any{
		"query":  m.Query,
		"fields": m.Fields,
	}
	if m.Fuzziness != "" {
		body["fuzziness"] = m.Fuzziness
	}
	if m.Boost > 0 && m.Boost != 1 {
		body["boost"] = m.Boost
	}
	return map[string]any{"multi_match": body}
}

// Term is an exact match on a single field. Value is either a string or an
// int64, depending on how the country stores the field.
type Term struct {
	Field string
	Value any
	Boost float64
}

func (t Term) source() map[string]any {
	body := map[string]any{"value": t.Value}
	if t.Boost > 0 && t.Boost != 1 {
		body["boost"] = t.Boost
	}
	return map[string]any{"term": map[string]any{t.Field: body}}
}

// Match is an analysed match on a single field with optional fuzziness.
type Match struct {
	Field     string
	Query     string
	Fuzziness string
	Boost     float64
}

func (m Match) source() map[string]any {
	body := map[string]any{"query": m.Query}
	if m.Fuzziness != "" {
		body["fuzziness"] = m.Fuzziness
	}
	if m.Boost > 0 && m.Boost != 1 {
		body["boost"] = m.Boost
	}
	return map[string]any{"match": map[string]any{m.Field: body}}
}

// Request is the complete structured query for one search.
type Request struct {
	Must               []Clause
	Should             []Clause
	MinimumShouldMatch int
	Size               int
	Explain            bool
	Source             bool
}

// MarshalJSON renders the request as an Elasticsearch search body.
func (r Request) MarshalJSON() ([]byte, error) {
	boolQuery := map[string]any{
		"must":   sources(r.Must),
		"should": sources(r.Should),
	}
	if r.MinimumShouldMatch > 0 {
		boolQuery["minimum_should_match"] = r.MinimumShouldMatch
	}
	return json.Marshal(map[string]any{
		"query":   map[string]any{"bool": boolQuery},
		"size":    r.Size,
		"explain": r.Explain,
		"_source": r.Source,
	})
}

func sources(clauses []Clause) []map[string]any {
	out := make([]map[string]any, 0, len(clauses))
	for _, c := range clauses {
		out = append(out, c.source())
	}
	return out
}

// Build produces the query for a normalized request against a country's
// field schema. Inputs the profile does not map are left out.
func Build(n models.Normalized, p *country.Profile) Request {
	req := Request{
		Size:    DefaultSize,
		Explain: true,
		Source:  true,
	}

	fuzz := Fuzziness(n.Strictness)
	for _, f := range []models.Field{models.FieldFirstName, models.FieldLastName} {
		m, ok := mapped(n, p, f)
		if !ok {
			continue
		}
		req.Must = append(req.Must, MultiMatch{
			Query:     n.Get(f),
			Fields:    m.Fields,
			Fuzziness: fuzz,
			Boost:     m.Boost,
		})
	}

	if m, ok := mapped(n, p, models.FieldDateOfBirth); ok {
		value := storedValue(n.Get(models.FieldDateOfBirth), p.DOBStorage())
		for _, field := range m.Fields {
			req.Should = append(req.Should, Term{Field: field, Value: value, Boost: m.Boost})
		}
	}

	if m, ok := mapped(n, p, models.FieldNationalID); ok {
		for _, field := range m.Fields {
			req.Should = append(req.Should, Term{Field: field, Value: n.Get(models.FieldNationalID), Boost: m.Boost})
		}
	}

	if m, ok := mapped(n, p, models.FieldEmail); ok {
		req.Should = append(req.Should, textClause(n.Get(models.FieldEmail), m, ""))
	}

	for _, f := range []models.Field{models.FieldPhone, models.FieldMobile} {
		m, ok := mapped(n, p, f)
		if !ok {
			continue
		}
		v := n.Get(f)
		if p.PhoneStorage() == country.StorageNumeric {
			value := storedValue(v, country.StorageNumeric)
			for _, field := range m.Fields {
				req.Should = append(req.Should, Term{Field: field, Value: value, Boost: m.Boost})
			}
			continue
		}
		for _, field := range m.Fields {
			req.Should = append(req.Should, Match{Field: field, Query: v, Fuzziness: PhoneFuzziness, Boost: m.Boost})
		}
	}

	for _, f := range models.AddressFields {
		if m, ok := mapped(n, p, f); ok {
			req.Should = append(req.Should, textClause(n.Get(f), m, ""))
		}
	}

	if len(req.Should) > 0 {
		req.MinimumShouldMatch = 1
	}
	return req
}

func mapped(n models.Normalized, p *country.Profile, f models.Field) (country.Mapping, bool) {
	if !n.Has(f) {
		return country.Mapping{}, false
	}
	m, ok := p.Mapping(f)
	if !ok || len(m.Fields) == 0 {
		return country.Mapping{}, false
	}
	return m, true
}

func textClause(v string, m country.Mapping, fuzz string) Clause {
	if len(m.Fields) == 1 {
		return Match{Field: m.Fields[0], Query: v, Fuzziness: fuzz, Boost: m.Boost}
	}
	return MultiMatch{Query: v, Fields: m.Fields, Fuzziness: fuzz, Boost: m.Boost}
}

// storedValue casts a normalized value to the type the backend stores. A
// numeric field whose value does not parse is sent as a string so the clause
// simply fails to match.
func storedValue(v string, kind country.StorageKind) any {
	if kind != country.StorageNumeric {
		return v
	}
	if i, err := strconv.ParseInt(v, 10, 64); err == nil {
		return i
	}
	return v
}
