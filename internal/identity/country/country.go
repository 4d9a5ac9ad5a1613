// Package country holds the per-country field schemas used to query the
// identity indexes. Profiles are loaded once from static configuration and are
// read-only afterwards, so a Registry is safe for concurrent use.
package country

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"slices"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"identitypulse/internal/identity/models"
	dErrors "identitypulse/pkg/domain-errors"
)

//go:embed profiles.yaml
var profilesYAML []byte

// StorageKind describes how a backend stores a value.
type StorageKind string

const (
	StorageNumeric StorageKind = "numeric"
	StorageString  StorageKind = "string"
)

// Default boosts for SHOULD clauses when a profile does not set one.
const (
	DefaultBoost           = 1.0
	DefaultNationalIDBoost = 2.0
	DefaultEmailBoost      = 1.5
)

// Mapping binds a logical field to one or more document fields.
type Mapping struct {
	Fields []string
	Boost  float64
}

// Profile is one country's field schema.
type Profile struct {
	code         string
	displayName  string
	region       string
	required     []models.Field
	optional     []models.Field
	fields       map[models.Field]Mapping
	dobStorage   StorageKind
	phoneStorage StorageKind
	formatHints  string
	indexName    string
}

func (p *Profile) Code() string              { return p.code }
func (p *Profile) DisplayName() string       { return p.displayName }
func (p *Profile) Region() string            { return p.region }
func (p *Profile) DOBStorage() StorageKind   { return p.dobStorage }
func (p *Profile) PhoneStorage() StorageKind { return p.phoneStorage }

// FormatHints is free text for UIs; no search logic reads it.
func (p *Profile) FormatHints() string { return p.formatHints }

// IndexName is the statically known index for this country, or "" when the
// index must be discovered.
func (p *Profile) IndexName() string { return p.indexName }

// Required returns the fields a query must supply.
func (p *Profile) Required() []models.Field { return slices.Clone(p.required) }

// Optional returns the fields a query may supply.
func (p *Profile) Optional() []models.Field { return slices.Clone(p.optional) }

// IsRequired reports whether f must be supplied for this country.
func (p *Profile) IsRequired(f models.Field) bool {
	return slices.Contains(p.required, f)
}

// Mapping returns the document fields for a logical field. ok is false when
// the country has no such field.
func (p *Profile) Mapping(f models.Field) (Mapping, bool) {
	m, ok := p.fields[f]
	if !ok {
		return Mapping{}, false
	}
	return Mapping{Fields: slices.Clone(m.Fields), Boost: m.Boost}, true
}

// IDFieldName returns the document field holding the national ID, or "".
func (p *Profile) IDFieldName() string {
	if m, ok := p.fields[models.FieldNationalID]; ok {
		return m.Fields[0]
	}
	return ""
}

// Registry resolves country codes to profiles.
type Registry struct {
	byCode  map[string]*Profile
	ordered []*Profile
}

// Get returns the profile for a country code, case-insensitively.
func (r *Registry) Get(code string) (*Profile, error) {
	p, ok := r.byCode[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return nil, dErrors.New(dErrors.CodeUnknownCountry, fmt.Sprintf("country %q is not supported", code))
	}
	return p, nil
}

// List returns every profile ordered by code.
func (r *Registry) List() []*Profile {
	return slices.Clone(r.ordered)
}

// Len returns the number of registered countries.
func (r *Registry) Len() int {
	return len(r.ordered)
}

var defaultRegistry = sync.OnceValues(func() (*Registry, error) {
	return Load(bytes.NewReader(profilesYAML))
})

// Default returns the registry built from the embedded profiles.
func Default() (*Registry, error) {
	return defaultRegistry()
}

type fileSpec struct {
	Profiles []profileSpec `yaml:"profiles"`
}

type profileSpec struct {
	Code         string                 `yaml:"code"`
	DisplayName  string                 `yaml:"display_name"`
	Region       string                 `yaml:"region"`
	Required     []string               `yaml:"required"`
	Optional     []string               `yaml:"optional"`
	DOBStorage   StorageKind            `yaml:"dob_storage"`
	PhoneStorage StorageKind            `yaml:"phone_storage"`
	FormatHints  string                 `yaml:"format_hints"`
	Index        string                 `yaml:"index"`
	Fields       map[string]mappingSpec `yaml:"fields"`
}

type mappingSpec struct {
	Fields []string `yaml:"fields"`
	Boost  float64  `yaml:"boost"`
}

// Load parses and validates a profiles document.
func Load(r io.Reader) (*Registry, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read country profiles: %w", err)
	}
	var spec fileSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("parse country profiles: %w", err)
	}
	if len(spec.Profiles) == 0 {
		return nil, fmt.Errorf("country profiles: no profiles defined")
	}

	reg := &Registry{byCode: make(map[string]*Profile, len(spec.Profiles))}
	for _, ps := range spec.Profiles {
		p, err := ps.build()
		if err != nil {
			return nil, err
		}
		if _, dup := reg.byCode[p.code]; dup {
			return nil, fmt.Errorf("country profile %s: duplicate code", p.code)
		}
		reg.byCode[p.code] = p
		reg.ordered = append(reg.ordered, p)
	}
	sort.Slice(reg.ordered, func(i, j int) bool { return reg.ordered[i].code < reg.ordered[j].code })
	return reg, nil
}

func (ps profileSpec) build() (*Profile, error) {
	code := strings.ToUpper(strings.TrimSpace(ps.Code))
	if len(code) != 2 || !isAlpha(code) {
		return nil, fmt.Errorf("country profile %q: code must be ISO alpha-2", ps.Code)
	}
	p := &Profile{
		code:         code,
		displayName:  ps.DisplayName,
		region:       ps.Region,
		dobStorage:   storageOrDefault(ps.DOBStorage),
		phoneStorage: storageOrDefault(ps.PhoneStorage),
		formatHints:  ps.FormatHints,
		indexName:    strings.TrimSpace(ps.Index),
		fields:       make(map[models.Field]Mapping, len(ps.Fields)),
	}
	if !validStorage(p.dobStorage) || !validStorage(p.phoneStorage) {
		return nil, fmt.Errorf("country profile %s: storage kind must be numeric or string", code)
	}

	for name, ms := range ps.Fields {
		f, err := models.ParseField(name)
		if err != nil {
			return nil, fmt.Errorf("country profile %s: %w", code, err)
		}
		if len(ms.Fields) == 0 {
			return nil, fmt.Errorf("country profile %s: field %s maps to no document fields", code, f)
		}
		if ms.Boost < 0 {
			return nil, fmt.Errorf("country profile %s: field %s has negative boost", code, f)
		}
		boost := ms.Boost
		if boost == 0 {
			boost = defaultBoostFor(f)
		}
		p.fields[f] = Mapping{Fields: slices.Clone(ms.Fields), Boost: boost}
	}

	var err error
	if p.required, err = parseFields(code, ps.Required); err != nil {
		return nil, err
	}
	if p.optional, err = parseFields(code, ps.Optional); err != nil {
		return nil, err
	}

	for _, f := range []models.Field{models.FieldFirstName, models.FieldDateOfBirth} {
		if !p.IsRequired(f) {
			return nil, fmt.Errorf("country profile %s: %s must be required", code, f)
		}
	}
	if !p.IsRequired(models.FieldLastName) && !slices.Contains(p.optional, models.FieldLastName) {
		return nil, fmt.Errorf("country profile %s: lastName must be required or optional", code)
	}
	for _, f := range p.required {
		if _, ok := p.fields[f]; !ok {
			return nil, fmt.Errorf("country profile %s: required field %s has no mapping", code, f)
		}
	}
	return p, nil
}

func parseFields(code string, names []string) ([]models.Field, error) {
	out := make([]models.Field, 0, len(names))
	for _, n := range names {
		f, err := models.ParseField(n)
		if err != nil {
			return nil, fmt.Errorf("country profile %s: %w", code, err)
		}
		out = append(out, f)
	}
	return out, nil
}

func defaultBoostFor(f models.Field) float64 {
	switch f {
	case models.FieldNationalID:
		return DefaultNationalIDBoost
	case models.FieldEmail:
		return DefaultEmailBoost
	default:
		return DefaultBoost
	}
}

func storageOrDefault(k StorageKind) StorageKind {
	if k == "" {
		return StorageString
	}
	return k
}

func validStorage(k StorageKind) bool {
	return k == StorageNumeric || k == StorageString
}

func isAlpha(s string) bool {
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}
