package graph

import (
	"fmt"
	"os"
	"time"

	"github.com/brojonat/railsync/service/network"
	"gopkg.in/yaml.v3"
)

// SourceConfig is one configured subgraph endpoint.
type SourceConfig struct {
	Name     string            `yaml:"name"`
	Endpoint string            `yaml:"endpoint"`
	Headers  map[string]string `yaml:"headers,omitempty"`
	Timeout  time.Duration     `yaml:"timeout,omitempty"`
}

type sourcesFile struct {
	Sources []SourceConfig `yaml:"sources"`
}

// LoadSources reads a sources file:
//
//	sources:
//	  - name: txs-ethereum
//	    endpoint: https://example.com/subgraphs/name/railgun-v2-ethereum
//	    timeout: 30s
func LoadSources(path string) ([]SourceConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read graph sources: %w", err)
	}
	return ParseSources(data)
}

// ParseSources decodes a sources document.
func ParseSources(data []byte) ([]SourceConfig, error) {
	var f sourcesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse graph sources: %w", err)
	}
	for i, s := range f.Sources {
		if s.Name == "" {
			return nil, fmt.Errorf("%w: source %d has no name", ErrConfiguration, i)
		}
		if s.Endpoint == "" {
			return nil, fmt.Errorf("%w: source %s has no endpoint", ErrConfiguration, s.Name)
		}
	}
	return f.Sources, nil
}

// SourceNameForNetwork returns the railgun-transaction subgraph source name
// for a network.
func SourceNameForNetwork(name network.Name) (string, error) {
	switch name {
	case network.Ethereum:
		return "txs-ethereum", nil
	case network.EthereumGoerli:
		return "txs-goerli", nil
	default:
		return "", fmt.Errorf("%w: %s", ErrNoSubgraphForNetwork, name)
	}
}

// sourceForNetwork finds the single configured source for a network.
func sourceForNetwork(sources []SourceConfig, name network.Name) (SourceConfig, error) {
	sourceName, err := SourceNameForNetwork(name)
	if err != nil {
		return SourceConfig{}, err
	}
	var matched []SourceConfig
	for _, s := range sources {
		if s.Name == sourceName {
			matched = append(matched, s)
		}
	}
	if len(matched) != 1 {
		return SourceConfig{}, fmt.Errorf("%w: expected exactly one source for network %s, found %d",
			ErrSourceMisconfigured, name, len(matched))
	}
	return matched[0], nil
}
