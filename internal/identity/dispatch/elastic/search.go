package elastic

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/spf13/cast"

	"identitypulse/internal/identity/models"
)

// SearchResult is either Hits or NoHits. Failures are returned as *Error.
type SearchResult interface {
	isSearchResult()
}

// Hits is a search that returned at least one candidate.
type Hits struct {
	Total    int64
	MaxScore float64
	Items    []models.Hit
}

// NoHits is a well-formed search with no candidates.
type NoHits struct{}

func (Hits) isSearchResult()   {}
func (NoHits) isSearchResult() {}

type searchResponse struct {
	TimedOut bool `json:"timed_out"`
	Hits     *struct {
		Total    json.RawMessage `json:"total"`
		MaxScore *float64        `json:"max_score"`
		Hits     []struct {
			Index  string          `json:"_index"`
			ID     string          `json:"_id"`
			Score  *float64        `json:"_score"`
			Source models.Document `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// Search runs body against index. body is rendered with encoding/json.
func (c *Client) Search(ctx context.Context, index string, body any) (SearchResult, error) {
	const op = "search"
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, &Error{Kind: KindTransport, Op: op, Err: err}
	}

	data, err := c.do(ctx, op, http.MethodPost, "/"+url.PathEscape(index)+"/_search", nil, payload)
	if err != nil {
		return nil, err
	}

	var resp searchResponse
	if err := decode(op, data, &resp); err != nil {
		return nil, err
	}
	if resp.Hits == nil {
		return nil, &Error{Kind: KindMalformed, Op: op, Err: errors.New("response has no hits object")}
	}
	if resp.TimedOut {
		return nil, &Error{Kind: KindTimeout, Op: op, Err: errors.New("backend reported timed_out")}
	}
	if len(resp.Hits.Hits) == 0 {
		return NoHits{}, nil
	}

	items := make([]models.Hit, 0, len(resp.Hits.Hits))
	var best float64
	for _, h := range resp.Hits.Hits {
		var score float64
		if h.Score != nil {
			score = *h.Score
		}
		best = max(best, score)
		src := h.Source
		if src == nil {
			src = models.Document{}
		}
		items = append(items, models.Hit{ID: h.ID, Index: h.Index, Score: score, Source: src})
	}

	maxScore := best
	if resp.Hits.MaxScore != nil && *resp.Hits.MaxScore > 0 {
		maxScore = *resp.Hits.MaxScore
	}
	return Hits{
		Total:    totalOf(resp.Hits.Total, len(items)),
		MaxScore: maxScore,
		Items:    items,
	}, nil
}

// totalOf reads hits.total, which is an object on 7.x and later and a bare
// number before that.
func totalOf(raw json.RawMessage, fallback int) int64 {
	if len(raw) == 0 {
		return int64(fallback)
	}
	var obj struct {
		Value json.Number `json:"value"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && obj.Value != "" {
		return cast.ToInt64(obj.Value.String())
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return cast.ToInt64(n.String())
	}
	return int64(fallback)
}
