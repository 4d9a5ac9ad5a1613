package elastic

import (
	"context"
	"fmt"
	"net/http"
)

// Cluster health colours.
const (
	HealthGreen  = "green"
	HealthYellow = "yellow"
	HealthRed    = "red"
)

// ClusterHealth is the subset of the cluster health response we read.
type ClusterHealth struct {
	ClusterName string `json:"cluster_name"`
	Status      string `json:"status"`
	NumberNodes int    `json:"number_of_nodes"`
}

// ClusterHealth reads the cluster health colour.
func (c *Client) ClusterHealth(ctx context.Context) (ClusterHealth, error) {
	const op = "cluster_health"
	data, err := c.do(ctx, op, http.MethodGet, "/_cluster/health", nil, nil)
	if err != nil {
		return ClusterHealth{}, err
	}
	var h ClusterHealth
	if err := decode(op, data, &h); err != nil {
		return ClusterHealth{}, err
	}
	switch h.Status {
	case HealthGreen, HealthYellow, HealthRed:
		return h, nil
	default:
		return ClusterHealth{}, &Error{Kind: KindMalformed, Op: op, Err: fmt.Errorf("unknown status %q", h.Status)}
	}
}
