// Package response packages scores, candidates and upstream warnings into
// the MatchResult returned to callers.
package response

import (
	"maps"
	"time"

	"identitypulse/internal/identity/models"
	pstrings "identitypulse/pkg/platform/strings"
)

// Input carries everything the assembler needs for one search.
type Input struct {
	SearchID string
	Scores   models.Scores
	Hits     []models.Hit
	Latency  time.Duration
	Endpoint string
	Index    string
	Warnings []string
}

// Assemble builds the MatchResult. It copies every slice and map it is given
// so the result shares no state with the caller. Repeated warnings are
// reported once.
func Assemble(in Input) *models.MatchResult {
	docs := make([]models.Document, 0, len(in.Hits))
	for _, h := range in.Hits {
		docs = append(docs, maps.Clone(h.Source))
	}

	perField := make(map[string]int, len(models.ScoreKeys))
	for _, k := range models.ScoreKeys {
		perField[k] = clamp(in.Scores.PerField[k])
	}

	tier := in.Scores.Tier
	if tier == "" {
		tier = models.TierNoMatch
	}

	res := &models.MatchResult{
		SearchID:            in.SearchID,
		OverallMatchPercent: clamp(in.Scores.Overall),
		PerFieldScores:      perField,
		ConfidenceTier:      tier,
		CandidateDocuments:  docs,
		SearchLatencyMs:     in.Latency.Milliseconds(),
		Endpoint:            in.Endpoint,
		Index:               in.Index,
	}
	if warnings := pstrings.DedupeAndTrim(in.Warnings); len(warnings) > 0 {
		res.Warnings = warnings
		res.Warning = warnings[0]
	}
	return res
}

// Empty is the canonical result for a search that returned no candidates.
func Empty(searchID string, latency time.Duration, endpoint, index string, warnings []string) *models.MatchResult {
	return Assemble(Input{
		SearchID: searchID,
		Scores:   models.ZeroScores(),
		Latency:  latency,
		Endpoint: endpoint,
		Index:    index,
		Warnings: warnings,
	})
}

func clamp(v int) int {
	return min(max(v, 0), 100)
}
