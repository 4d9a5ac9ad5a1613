package dispatch

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"identitypulse/internal/identity/dispatch/elastic"
)

func TestSelectIndex(t *testing.T) {
	cases := []struct {
		name     string
		catalog  []elastic.IndexInfo
		country  string
		want     string
		fallback bool
		ok       bool
	}{
		{
			name: "keyword match beats larger unrelated index",
			catalog: []elastic.IndexInfo{
				{Name: "logs-2026", DocsCount: 9_000_000},
				{Name: "identity-records", DocsCount: 1200},
			},
			country: "AU",
			want:    "identity-records",
			ok:      true,
		},
		{
			name: "largest candidate wins",
			catalog: []elastic.IndexInfo{
				{Name: "person-small", DocsCount: 10},
				{Name: "individuals-v2", DocsCount: 5000},
				{Name: "au-identity", DocsCount: 400},
			},
			country: "AU",
			want:    "individuals-v2",
			ok:      true,
		},
		{
			name: "country code must be a whole token",
			catalog: []elastic.IndexInfo{
				{Name: "audit-trail", DocsCount: 100},
				{Name: "au_2024", DocsCount: 50},
			},
			country: "AU",
			want:    "au_2024",
			ok:      true,
		},
		{
			name: "no candidate falls back to largest",
			catalog: []elastic.IndexInfo{
				{Name: "customers", DocsCount: 300},
				{Name: "orders", DocsCount: 200},
			},
			country:  "NZ",
			want:     "customers",
			fallback: true,
			ok:       true,
		},
		{
			name: "system indices ignored",
			catalog: []elastic.IndexInfo{
				{Name: ".kibana_identity", DocsCount: 100000},
				{Name: "records", DocsCount: 1},
			},
			country:  "AU",
			want:     "records",
			fallback: true,
			ok:       true,
		},
		{
			name:    "ties broken by name",
			catalog: []elastic.IndexInfo{{Name: "person-b", DocsCount: 5}, {Name: "person-a", DocsCount: 5}},
			country: "AU",
			want:    "person-a",
			ok:      true,
		},
		{
			name:    "only system indices",
			catalog: []elastic.IndexInfo{{Name: ".security", DocsCount: 5}},
			country: "AU",
		},
		{
			name:    "empty catalog",
			country: "AU",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := selectIndex(tc.catalog, tc.country)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got.Index)
			assert.Equal(t, tc.fallback, got.Fallback)
		})
	}
}
