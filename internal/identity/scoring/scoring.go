// Package scoring turns the backend's ranked candidates into per-field and
// overall match percentages.
//
// Only the top-ranked hit is scored. The overall percentage is the top hit's
// relevance relative to the best relevance in the result set, so it is a
// ranking signal rather than a calibrated probability.
package scoring

import (
	"math"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/cases"

	"identitypulse/internal/identity/country"
	"identitypulse/internal/identity/models"
	"identitypulse/internal/identity/normalize"
)

// Tier thresholds on the overall percentage.
const (
	VeryHighThreshold = 90
	HighThreshold     = 75
	MediumThreshold   = 50

	// PartialPhoneScore is awarded when one number contains the other, which
	// is how a missing or extra country prefix shows up.
	PartialPhoneScore = 80
)

// Score computes the scores for a search. hits are ordered by relevance and
// maxScore is the best relevance in the result set.
func Score(n models.Normalized, p *country.Profile, hits []models.Hit, maxScore float64) models.Scores {
	if len(hits) == 0 {
		return models.ZeroScores()
	}

	top := hits[0]
	overall := Overall(top.Score, maxScore)

	perField := models.ZeroScores().PerField
	doc := top.Source
	perField[models.ScoreName] = nameScore(n, p, doc)
	if n.Has(models.FieldDateOfBirth) {
		perField[models.ScoreDateOfBirth] = bestOf(values(doc, p, models.FieldDateOfBirth), func(v string) int {
			return DateScore(n.Get(models.FieldDateOfBirth), canonicalDate(v))
		})
	}
	if n.Has(models.FieldNationalID) {
		perField[models.ScoreIdentification] = bestOf(values(doc, p, models.FieldNationalID), func(v string) int {
			return ExactScore(n.Get(models.FieldNationalID), v)
		})
	}
	if n.Has(models.FieldEmail) {
		perField[models.ScoreEmail] = bestOf(values(doc, p, models.FieldEmail), func(v string) int {
			return EmailScore(n.Get(models.FieldEmail), v)
		})
	}
	perField[models.ScorePhone] = phoneFieldScore(n, p, doc)
	perField[models.ScoreAddress] = addressScore(n, p, doc)

	return models.Scores{
		Overall:  overall,
		PerField: perField,
		Tier:     TierFor(overall),
	}
}

// Overall normalizes a hit's relevance against the best relevance in its
// result set to a 0-100 percentage.
func Overall(score, maxScore float64) int {
	if maxScore <= 0 || score <= 0 || math.IsNaN(score) || math.IsNaN(maxScore) {
		return 0
	}
	return int(math.Round(math.Min(100, score/maxScore*100)))
}

// TierFor buckets an overall percentage. 0 is always NO_MATCH.
func TierFor(overall int) models.ConfidenceTier {
	switch {
	case overall >= VeryHighThreshold:
		return models.TierVeryHigh
	case overall >= HighThreshold:
		return models.TierHigh
	case overall >= MediumThreshold:
		return models.TierMedium
	case overall > 0:
		return models.TierLow
	default:
		return models.TierNoMatch
	}
}

// Similarity is a case-insensitive Levenshtein similarity in 0-100. It is
// symmetric. Two empty strings score 0.
func Similarity(a, b string) int {
	fa := fold(strings.TrimSpace(a))
	fb := fold(strings.TrimSpace(b))
	if fa == "" && fb == "" {
		return 0
	}
	if fa == fb {
		return 100
	}
	maxLen := max(utf8.RuneCountInString(fa), utf8.RuneCountInString(fb))
	dist := levenshtein.ComputeDistance(fa, fb)
	return int(math.Round((1 - float64(dist)/float64(maxLen)) * 100))
}

// DateScore is 100 for identical normalized dates and 0 otherwise.
func DateScore(a, b string) int {
	if a == "" || a != b {
		return 0
	}
	return 100
}

// ExactScore is 100 when the trimmed values are identical.
func ExactScore(a, b string) int {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	if a == "" || a != b {
		return 0
	}
	return 100
}

// EmailScore is ExactScore after lowercasing.
func EmailScore(a, b string) int {
	return ExactScore(normalize.Email(a), normalize.Email(b))
}

// PhoneScore compares two phone numbers on their digits. Equal digits score
// 100. If one number, with its trunk 0 dropped, is contained in the other the
// score is PartialPhoneScore. Anything else is 0.
func PhoneScore(a, b string) int {
	da, db := normalize.Digits(a), normalize.Digits(b)
	if da == "" || db == "" {
		return 0
	}
	if da == db {
		return 100
	}
	ta, tb := strings.TrimPrefix(da, "0"), strings.TrimPrefix(db, "0")
	if ta == "" || tb == "" {
		return 0
	}
	if ta == tb || strings.Contains(ta, tb) || strings.Contains(tb, ta) {
		return PartialPhoneScore
	}
	return 0
}

func fold(s string) string {
	return cases.Fold().String(s)
}

func nameScore(n models.Normalized, p *country.Profile, doc models.Document) int {
	var total, count int
	for _, f := range []models.Field{models.FieldFirstName, models.FieldLastName} {
		if !n.Has(f) {
			continue
		}
		count++
		total += bestOf(slotCandidates(values(doc, p, f)), func(v string) int {
			return Similarity(n.Get(f), v)
		})
	}
	if count == 0 {
		return 0
	}
	return int(math.Round(float64(total) / float64(count)))
}

// slotCandidates returns each name slot plus all slots joined, so "Daniel
// James" can match FirstName=Daniel, MiddleName=James.
func slotCandidates(slots []string) []string {
	if len(slots) < 2 {
		return slots
	}
	return append(slices.Clone(slots), strings.Join(slots, " "))
}

func phoneFieldScore(n models.Normalized, p *country.Profile, doc models.Document) int {
	var docNumbers []string
	for _, f := range []models.Field{models.FieldPhone, models.FieldMobile} {
		docNumbers = append(docNumbers, values(doc, p, f)...)
	}
	best := 0
	for _, f := range []models.Field{models.FieldPhone, models.FieldMobile} {
		if !n.Has(f) {
			continue
		}
		best = max(best, bestOf(docNumbers, func(v string) int {
			return PhoneScore(n.Get(f), v)
		}))
	}
	return best
}

// addressScore compares the supplied address parts with the same parts of
// the document.
func addressScore(n models.Normalized, p *country.Profile, doc models.Document) int {
	var want, got []string
	for _, f := range models.AddressFields {
		if !n.Has(f) {
			continue
		}
		if _, mapped := p.Mapping(f); !mapped {
			continue
		}
		want = append(want, n.Get(f))
		got = append(got, values(doc, p, f)...)
	}
	if len(want) == 0 || len(got) == 0 {
		return 0
	}
	return Similarity(strings.Join(want, " "), strings.Join(got, " "))
}

func bestOf(candidates []string, score func(string) int) int {
	best := 0
	for _, c := range candidates {
		best = max(best, score(c))
	}
	return best
}

func canonicalDate(v string) string {
	if d, err := normalize.Date(v); err == nil {
		return d
	}
	return strings.TrimSpace(v)
}
