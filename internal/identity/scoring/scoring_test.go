package scoring

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"identitypulse/internal/identity/country"
	"identitypulse/internal/identity/models"
)

func TestSimilarity(t *testing.T) {
	cases := []struct {
		name string
		a, b string
		want int
	}{
		{"case-insensitive equality", "John", "john", 100},
		{"identical", "Friedman", "Friedman", 100},
		{"one edit", "Friedman", "Freidman", 75},
		{"one substitution in six", "Daniel", "Danial", 83},
		{"disjoint", "abc", "xyz", 0},
		{"one side empty", "abc", "", 0},
		{"both empty", "", "", 0},
		{"unicode fold", "STRASSE", "strasse", 100},
		{"accented runes count once", "Jos\u00e9", "Jose", 75},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Similarity(tc.a, tc.b))
			assert.Equal(t, tc.want, Similarity(tc.b, tc.a), "symmetric")
		})
	}
}

func TestDateScore(t *testing.T) {
	assert.Equal(t, 100, DateScore("19900101", "19900101"))
	assert.Equal(t, 0, DateScore("19900101", "19900102"))
	assert.Equal(t, 0, DateScore("", ""))
}

func TestExactAndEmailScore(t *testing.T) {
	assert.Equal(t, 100, ExactScore(" QQ123456C ", "QQ123456C"))
	assert.Equal(t, 0, ExactScore("QQ123456C", "qq123456c"))
	assert.Equal(t, 100, EmailScore("Dan.Windward@Gmail.com", "dan.windward@gmail.com "))
	assert.Equal(t, 0, EmailScore("dan@example.com", "dan@example.org"))
	assert.Equal(t, 0, EmailScore("", ""))
}

func TestPhoneScore(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"0412345678", "61412345678", 80},
		{"0412345678", "0412345678", 100},
		{"0412345678", "0499999999", 0},
		{"+61 412 345 678", "61412345678", 100},
		{"412345678", "0412345678", 80},
		{"", "0412345678", 0},
		{"000", "0", 0},
		{"0", "00", 0},
		{"00", "000", 80},
	}
	for _, tc := range cases {
		t.Run(tc.a+"_"+tc.b, func(t *testing.T) {
			assert.Equal(t, tc.want, PhoneScore(tc.a, tc.b))
			assert.Equal(t, tc.want, PhoneScore(tc.b, tc.a))
		})
	}
}

func TestTierFor(t *testing.T) {
	assert.Equal(t, models.TierNoMatch, TierFor(0))
	assert.Equal(t, models.TierLow, TierFor(1))
	assert.Equal(t, models.TierLow, TierFor(49))
	assert.Equal(t, models.TierMedium, TierFor(50))
	assert.Equal(t, models.TierHigh, TierFor(75))
	assert.Equal(t, models.TierVeryHigh, TierFor(90))
	assert.Equal(t, models.TierVeryHigh, TierFor(100))
}

func TestOverall(t *testing.T) {
	assert.Equal(t, 100, Overall(12.5, 12.5))
	assert.Equal(t, 50, Overall(5, 10))
	assert.Equal(t, 100, Overall(11, 10), "capped at 100")
	assert.Equal(t, 0, Overall(5, 0))
	assert.Equal(t, 0, Overall(0, 10))
}

type ScoreSuite struct {
	suite.Suite
	au *country.Profile
}

func TestScoreSuite(t *testing.T) {
	suite.Run(t, new(ScoreSuite))
}

func (s *ScoreSuite) SetupSuite() {
	reg, err := country.Default()
	s.Require().NoError(err)
	s.au, err = reg.Get("AU")
	s.Require().NoError(err)
}

func (s *ScoreSuite) danielFriedman() models.Normalized {
	return models.Normalized{
		CountryCode: "AU",
		Strictness:  models.StrictnessNormal,
		Values: map[models.Field]string{
			models.FieldFirstName:   "Daniel",
			models.FieldLastName:    "Friedman",
			models.FieldDateOfBirth: "19570623",
			models.FieldEmail:       "dan.windward@gmail.com",
		},
	}
}

func (s *ScoreSuite) TestZeroHits() {
	got := Score(s.danielFriedman(), s.au, nil, 0)

	s.Equal(0, got.Overall)
	s.Equal(models.TierNoMatch, got.Tier)
	s.Len(got.PerField, len(models.ScoreKeys))
	for _, k := range models.ScoreKeys {
		s.Equal(0, got.PerField[k], k)
	}
	s.Equal(got, Score(s.danielFriedman(), s.au, nil, 0), "idempotent")
}

func (s *ScoreSuite) TestMatchingTopHit() {
	hits := []models.Hit{{
		ID:    "1",
		Score: 14.2,
		Source: models.Document{
			"FirstName":    "Daniel",
			"MiddleName":   "",
			"Surname":      "FRIEDMAN",
			"DOB":          json.Number("19570623"),
			"EmailAddress": "Dan.Windward@gmail.com",
			"Mobile":       float64(412345678),
		},
	}}

	got := Score(s.danielFriedman(), s.au, hits, 14.2)

	s.Equal(100, got.Overall)
	s.Equal(models.TierVeryHigh, got.Tier)
	s.Equal(100, got.PerField[models.ScoreName])
	s.Equal(100, got.PerField[models.ScoreDateOfBirth])
	s.Equal(100, got.PerField[models.ScoreEmail])
	s.Equal(0, got.PerField[models.ScorePhone], "no phone supplied")
	s.Equal(0, got.PerField[models.ScoreIdentification])
}

func (s *ScoreSuite) TestOnlyTopHitIsScored() {
	hits := []models.Hit{
		{Score: 8, Source: models.Document{"FirstName": "Dana", "Surname": "Fried", "DOB": "19570624"}},
		{Score: 10, Source: models.Document{"FirstName": "Daniel", "Surname": "Friedman", "DOB": "19570623"}},
	}

	got := Score(s.danielFriedman(), s.au, hits, 10)

	s.Equal(80, got.Overall)
	s.Equal(models.TierHigh, got.Tier)
	s.Equal(0, got.PerField[models.ScoreDateOfBirth])
	s.Less(got.PerField[models.ScoreName], 100)
}

func (s *ScoreSuite) TestGivenNameSlots() {
	n := s.danielFriedman()
	n.Values[models.FieldFirstName] = "Daniel James"
	hits := []models.Hit{{Score: 1, Source: models.Document{
		"FirstName": "Daniel", "MiddleName": "James", "Surname": "Friedman",
	}}}

	got := Score(n, s.au, hits, 1)

	s.Equal(100, got.PerField[models.ScoreName])
}

func (s *ScoreSuite) TestPhoneAndAddress() {
	n := s.danielFriedman()
	n.Values[models.FieldMobile] = "412345678"
	n.Values[models.FieldCity] = "Sydney"
	n.Values[models.FieldPostCode] = "2000"
	hits := []models.Hit{{Score: 3, Source: models.Document{
		"Mobile":   json.Number("61412345678"),
		"Suburb":   "SYDNEY",
		"Postcode": float64(2000),
		"AD1":      "1 George St",
	}}}

	got := Score(n, s.au, hits, 3)

	s.Equal(80, got.PerField[models.ScorePhone])
	s.Equal(100, got.PerField[models.ScoreAddress])
}

func TestValuesReadsNestedAndArrays(t *testing.T) {
	p, err := country.Load(strings.NewReader(`
profiles:
  - code: XA
    required: [firstName, dateOfBirth]
    optional: [lastName, email]
    fields:
      firstName: { fields: [name.given] }
      lastName: { fields: [name.family] }
      dateOfBirth: { fields: [dob] }
      email: { fields: [emails] }
`))
	require.NoError(t, err)
	xa, err := p.Get("XA")
	require.NoError(t, err)

	doc := models.Document{
		"name":   map[string]any{"given": "Ana", "family": "Silva"},
		"dob":    "1990-01-15",
		"emails": []any{"old@example.com", "ana@example.com", nil},
	}

	assert.Equal(t, []string{"Ana"}, values(doc, xa, models.FieldFirstName))
	assert.Equal(t, []string{"old@example.com", "ana@example.com"}, values(doc, xa, models.FieldEmail))

	got := Score(models.Normalized{Values: map[models.Field]string{
		models.FieldFirstName:   "Ana",
		models.FieldLastName:    "Silva",
		models.FieldDateOfBirth: "19900115",
		models.FieldEmail:       "ana@example.com",
	}}, xa, []models.Hit{{Score: 1, Source: doc}}, 1)
	assert.Equal(t, 100, got.PerField[models.ScoreName])
	assert.Equal(t, 100, got.PerField[models.ScoreDateOfBirth])
	assert.Equal(t, 100, got.PerField[models.ScoreEmail])
}
