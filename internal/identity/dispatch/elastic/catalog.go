package elastic

import (
	"context"
	"net/http"
	"net/url"

	"github.com/spf13/cast"
)

// IndexInfo is one row of the index catalog.
type IndexInfo struct {
	Name      string
	DocsCount int64
	Health    string
}

type catRow struct {
	Index     string `json:"index"`
	DocsCount any    `json:"docs.count"`
	Health    string `json:"health"`
}

// ListIndices reads the backend's index catalog. Closed indices report no
// document count and are listed with zero documents.
func (c *Client) ListIndices(ctx context.Context) ([]IndexInfo, error) {
	const op = "list_indices"
	q := url.Values{}
	q.Set("format", "json")
	q.Set("h", "index,docs.count,health")

	data, err := c.do(ctx, op, http.MethodGet, "/_cat/indices", q, nil)
	if err != nil {
		return nil, err
	}
	var rows []catRow
	if err := decode(op, data, &rows); err != nil {
		return nil, err
	}

	out := make([]IndexInfo, 0, len(rows))
	for _, r := range rows {
		if r.Index == "" {
			continue
		}
		count, err := cast.ToInt64E(r.DocsCount)
		if err != nil {
			count = 0
		}
		out = append(out, IndexInfo{Name: r.Index, DocsCount: count, Health: r.Health})
	}
	return out, nil
}
