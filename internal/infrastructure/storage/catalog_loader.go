package storage

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/qodeinvest/qode-engine/internal/model"
)

type CatalogLoader struct {
	catalogPath string
}

func NewCatalogLoader(catalogPath string) *CatalogLoader {
	return &CatalogLoader{
		catalogPath: catalogPath,
	}
}

// Path returns the catalog file path
func (cl *CatalogLoader) Path() string { return cl.catalogPath }

// Load reads and parses the YAML resource catalog file
func (cl *CatalogLoader) Load() (*model.Catalog, error) {
	data, err := os.ReadFile(cl.catalogPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}

	var catalog model.Catalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("failed to parse catalog file: %w", err)
	}

	// Validate catalog
	if err := cl.validate(&catalog); err != nil {
		return nil, fmt.Errorf("invalid catalog: %w", err)
	}

	return &catalog, nil
}

// validate checks the catalog for required fields
func (cl *CatalogLoader) validate(catalog *model.Catalog) error {
	// Empty resource list is valid.
	if len(catalog.Resources) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(catalog.Resources))
	for i, res := range catalog.Resources {
		if res.Name == "" {
			return fmt.Errorf("resource at index %d: name is required", i)
		}
		if _, dup := seen[res.Name]; dup {
			return fmt.Errorf("resource '%s': name is duplicated", res.Name)
		}
		seen[res.Name] = struct{}{}

		if res.Engine == "" {
			return fmt.Errorf("resource '%s': engine is required", res.Name)
		}
		if res.Path == "" {
			return fmt.Errorf("resource '%s': path is required", res.Name)
		}

		// Engine-specific validation
		switch res.Engine {
		case model.EngineDuckDB:
			if res.InMemory() && res.ReadOnly {
				return fmt.Errorf("resource '%s': an in-memory database cannot be read-only", res.Name)
			}
		case model.EngineSQLite:
			if res.MemoryLimit != nil {
				slog.Warn("memoryLimit ignored for sqlite resource", slog.String("resource", res.Name))
			}
		default:
			return fmt.Errorf("resource '%s': engine '%s' is not supported", res.Name, res.Engine)
		}
	}

	return nil
}
