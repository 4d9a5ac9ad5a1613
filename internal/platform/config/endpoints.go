package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed endpoints.yaml
var endpointsYAML []byte

// Endpoint is one search server as seen from the chosen deployment mode.
type Endpoint struct {
	Name        string
	CountryCode string
	BaseURL     string
	IndexName   string
}

type endpointsFile struct {
	Endpoints []endpointSpec `yaml:"endpoints"`
}

type endpointSpec struct {
	Name    string          `yaml:"name"`
	Country string          `yaml:"country"`
	Index   string          `yaml:"index"`
	URLs    map[Mode]string `yaml:"urls"`
}

// ResolveEndpoints returns the embedded endpoint table for a deployment mode.
func ResolveEndpoints(mode Mode) ([]Endpoint, error) {
	return LoadEndpoints(bytes.NewReader(endpointsYAML), mode)
}

// ResolveEndpointsFile reads the endpoint table from path, or the embedded
// table when path is empty.
func ResolveEndpointsFile(path string, mode Mode) ([]Endpoint, error) {
	if path == "" {
		return ResolveEndpoints(mode)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open endpoints file: %w", err)
	}
	defer f.Close()
	return LoadEndpoints(f, mode)
}

// LoadEndpoints parses an endpoint table and keeps the servers reachable in
// mode. A server with no URL for the mode is not served by this deployment.
func LoadEndpoints(r io.Reader, mode Mode) ([]Endpoint, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read endpoints: %w", err)
	}
	var spec endpointsFile
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("parse endpoints: %w", err)
	}

	out := make([]Endpoint, 0, len(spec.Endpoints))
	for i, es := range spec.Endpoints {
		if es.Name == "" || es.Country == "" {
			return nil, fmt.Errorf("endpoint %d: name and country are required", i)
		}
		for m := range es.URLs {
			if _, err := ParseMode(string(m)); err != nil {
				return nil, fmt.Errorf("endpoint %s: %w", es.Name, err)
			}
		}
		url := strings.TrimSpace(es.URLs[mode])
		if url == "" {
			continue
		}
		out = append(out, Endpoint{
			Name:        es.Name,
			CountryCode: strings.ToUpper(es.Country),
			BaseURL:     url,
			IndexName:   strings.TrimSpace(es.Index),
		})
	}
	return out, nil
}
