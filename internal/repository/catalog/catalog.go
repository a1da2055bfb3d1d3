// Package catalog maps source filenames to chunking strategies. The mapping
// lives in a YAML file maintained alongside the document corpus; files not
// listed fall back to the overlap strategy.
package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/ragdex/internal/domain"
)

// Catalog is an in-memory filename -> strategy lookup.
type Catalog struct {
	strategies map[string]domain.Strategy
}

// file is the YAML layout: a flat filename -> strategy mapping.
//
//	documents:
//	  rates.html: row_table
//	  buyers-guide.html: overlap
type file struct {
	Documents map[string]string `yaml:"documents"`
}

// Load reads the catalog YAML. A missing file is not an error: every document
// then uses the default strategy.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return &Catalog{strategies: map[string]domain.Strategy{}}, nil
	}

	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if os.IsNotExist(err) {
			return &Catalog{strategies: map[string]domain.Strategy{}}, nil
		}
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}

	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}

	strategies := make(map[string]domain.Strategy, len(f.Documents))
	for name, raw := range f.Documents {
		strategies[strings.ToLower(name)] = domain.ParseStrategy(raw)
	}
	return &Catalog{strategies: strategies}, nil
}

// StrategyFor returns the chunking strategy for a filename, trying the exact
// name first and then the name without extension. Unknown files get overlap.
func (c *Catalog) StrategyFor(filename string) domain.Strategy {
	name := strings.ToLower(filepath.Base(filename))
	if s, ok := c.strategies[name]; ok {
		return s
	}
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	if s, ok := c.strategies[stem]; ok {
		return s
	}
	return domain.StrategyOverlap
}

// Len reports how many documents have an explicit strategy.
func (c *Catalog) Len() int { return len(c.strategies) }
