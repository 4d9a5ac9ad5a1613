// Package models holds the identity search request and result types shared by
// the normalizer, query builder, scorer and transport layers.
package models

import (
	"fmt"
	"strings"

	dErrors "identitypulse/pkg/domain-errors"
)

// Field is a logical identity field, independent of how any backend names it.
type Field string

const (
	FieldFirstName   Field = "firstName"
	FieldLastName    Field = "lastName"
	FieldDateOfBirth Field = "dateOfBirth"
	FieldNationalID  Field = "nationalId"
	FieldEmail       Field = "email"
	FieldPhone       Field = "phone"
	FieldMobile      Field = "mobile"
	FieldAddressLine Field = "addressLine"
	FieldCity        Field = "city"
	FieldState       Field = "state"
	FieldPostCode    Field = "postCode"
)

// AllFields lists every logical field in a stable order.
var AllFields = []Field{
	FieldFirstName, FieldLastName, FieldDateOfBirth, FieldNationalID, FieldEmail,
	FieldPhone, FieldMobile, FieldAddressLine, FieldCity, FieldState, FieldPostCode,
}

// AddressFields are the fields that together make up an address.
var AddressFields = []Field{FieldAddressLine, FieldCity, FieldState, FieldPostCode}

// ParseField validates a logical field name.
func ParseField(s string) (Field, error) {
	for _, f := range AllFields {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown field %q", s)
}

// Strictness controls how much edit tolerance name clauses allow.
type Strictness string

const (
	StrictnessStrict Strictness = "strict"
	StrictnessNormal Strictness = "normal"
	StrictnessLoose  Strictness = "loose"
)

// ParseStrictness parses a strictness value; empty means normal.
func ParseStrictness(s string) (Strictness, error) {
	switch Strictness(strings.ToLower(strings.TrimSpace(s))) {
	case "", StrictnessNormal:
		return StrictnessNormal, nil
	case StrictnessStrict:
		return StrictnessStrict, nil
	case StrictnessLoose:
		return StrictnessLoose, nil
	default:
		return "", dErrors.New(dErrors.CodeInvalidRequest, fmt.Sprintf("matchStrictness %q must be one of strict, normal, loose", s))
	}
}

// IdentityQuery is the caller-supplied search criteria.
type IdentityQuery struct {
	FirstName   string     `json:"firstName"`
	LastName    string     `json:"lastName,omitempty"`
	DateOfBirth string     `json:"dateOfBirth"`
	CountryCode string     `json:"countryCode"`
	NationalID  string     `json:"nationalId,omitempty"`
	Email       string     `json:"email,omitempty"`
	Phone       string     `json:"phone,omitempty"`
	Mobile      string     `json:"mobile,omitempty"`
	AddressLine string     `json:"addressLine,omitempty"`
	City        string     `json:"city,omitempty"`
	State       string     `json:"state,omitempty"`
	PostCode    string     `json:"postCode,omitempty"`
	Strictness  Strictness `json:"matchStrictness,omitempty"`
}

// Normalized is an IdentityQuery after per-field canonicalisation. Values are
// keyed by logical field; absent fields have no entry.
type Normalized struct {
	CountryCode string
	Strictness  Strictness
	Values      map[Field]string
}

// Get returns the normalized value for a field, or "" if absent.
func (n Normalized) Get(f Field) string {
	return n.Values[f]
}

// Has reports whether a non-empty value exists for a field.
func (n Normalized) Has(f Field) bool {
	return n.Values[f] != ""
}

// Address joins the present address parts with single spaces.
func (n Normalized) Address() string {
	parts := make([]string, 0, len(AddressFields))
	for _, f := range AddressFields {
		if v := n.Values[f]; v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, " ")
}

// ConfidenceTier buckets the overall match percentage for caller decisioning.
type ConfidenceTier string

const (
	TierVeryHigh ConfidenceTier = "VERY_HIGH"
	TierHigh     ConfidenceTier = "HIGH"
	TierMedium   ConfidenceTier = "MEDIUM"
	TierLow      ConfidenceTier = "LOW"
	TierNoMatch  ConfidenceTier = "NO_MATCH"
)

// Score keys reported in MatchResult.PerFieldScores.
const (
	ScoreName           = "name"
	ScoreDateOfBirth    = "dateOfBirth"
	ScoreAddress        = "address"
	ScoreIdentification = "identification"
	ScoreEmail          = "email"
	ScorePhone          = "phone"
)

// ScoreKeys lists every per-field score key.
var ScoreKeys = []string{ScoreName, ScoreDateOfBirth, ScoreAddress, ScoreIdentification, ScoreEmail, ScorePhone}

// Scores is the scorer's output for one search.
type Scores struct {
	Overall  int
	PerField map[string]int
	Tier     ConfidenceTier
}

// ZeroScores is the canonical result for a search with no candidates.
func ZeroScores() Scores {
	perField := make(map[string]int, len(ScoreKeys))
	for _, k := range ScoreKeys {
		perField[k] = 0
	}
	return Scores{Overall: 0, PerField: perField, Tier: TierNoMatch}
}

// Document is one raw candidate record as returned by the index.
type Document map[string]any

// Hit is one ranked candidate with the backend's relevance score.
type Hit struct {
	ID     string
	Index  string
	Score  float64
	Source Document
}

// MatchResult is the response contract for one identity search.
type MatchResult struct {
	SearchID            string         `json:"searchId,omitempty"`
	OverallMatchPercent int            `json:"overallMatch"`
	PerFieldScores      map[string]int `json:"perFieldScores"`
	ConfidenceTier      ConfidenceTier `json:"confidenceTier"`
	CandidateDocuments  []Document     `json:"candidateDocuments"`
	SearchLatencyMs     int64          `json:"searchLatencyMs"`
	Endpoint            string         `json:"endpoint,omitempty"`
	Index               string         `json:"index,omitempty"`
	Warning             string         `json:"warning,omitempty"`
	Warnings            []string       `json:"warnings,omitempty"`
}
