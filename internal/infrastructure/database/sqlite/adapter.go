package sqlite

import (
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/qodeinvest/qode-engine/internal/infrastructure/database"
	"github.com/qodeinvest/qode-engine/internal/model"
	"github.com/qodeinvest/qode-engine/internal/service"
)

// Adapter implements service.ConnectionAdapter for SQLite databases.
type Adapter struct {
	resourceName string
	config       *model.Resource
	dbPath       string
	db           database.DB
}

// NewAdapter creates a factory that builds SQLite connection adapters
func NewAdapter(params service.AdapterFactoryParams) (service.ConnectionAdapter, error) {
	if params.Resource == nil || params.Resource.Path == "" {
		return nil, fmt.Errorf("sqlite resource '%s' missing database path", params.ResourceName)
	}

	return &Adapter{
		resourceName: params.ResourceName,
		config:       params.Resource,
		dbPath:       model.ResolvePath(params.Resource.Path, params.BaseDir),
	}, nil
}
