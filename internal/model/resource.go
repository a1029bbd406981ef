package model

import (
	"path/filepath"

	"github.com/qodeinvest/qode-engine/internal/pkg/cloneutil"
)

// Engine names accepted in the catalog.
const (
	EngineDuckDB = "duckdb"
	EngineSQLite = "sqlite"
)

// MemoryPath is the path value that selects an in-memory database.
const MemoryPath = ":memory:"

// DefaultSchema is the schema warehouse tables live in.
const DefaultSchema = "market_data"

// Resource describes one warehouse database in the catalog.
type Resource struct {
	Name        string  `yaml:"name" json:"name"`
	Engine      string  `yaml:"engine" json:"engine"`
	Path        string  `yaml:"path" json:"path"`
	ReadOnly    bool    `yaml:"readOnly" json:"readOnly"`
	MemoryLimit *string `yaml:"memoryLimit,omitempty" json:"memoryLimit,omitempty"`
	Schema      string  `yaml:"schema,omitempty" json:"schema,omitempty"`
}

// Catalog is the root of the resources file.
type Catalog struct {
	Resources []Resource `yaml:"resources" json:"resources"`
}

func (r Resource) Clone() Resource {
	clone := r
	clone.MemoryLimit = cloneutil.Ptr(r.MemoryLimit)
	return clone
}

// DefaultSchemaOrFallback returns the schema introspection should target.
func (r Resource) DefaultSchemaOrFallback() string {
	if r.Schema != "" {
		return r.Schema
	}
	if r.Engine == EngineSQLite {
		return "main"
	}
	return DefaultSchema
}

// InMemory reports whether the resource lives in process memory only.
func (r Resource) InMemory() bool {
	return r.Path == MemoryPath
}

// ResolvePath resolves a relative resource path against baseDir. Absolute
// paths and the in-memory marker are returned unchanged.
func ResolvePath(path, baseDir string) string {
	if path == MemoryPath || path == "" || filepath.IsAbs(path) || baseDir == "" {
		return path
	}
	return filepath.Clean(filepath.Join(baseDir, path))
}
