package service

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/qodeinvest/qode-engine/internal/infrastructure/storage"
	"github.com/qodeinvest/qode-engine/internal/model"
	"github.com/qodeinvest/qode-engine/internal/pkg/cloneutil"
)

type ResourceCatalogService struct {
	loader  *storage.CatalogLoader
	catalog *model.Catalog
	mu      sync.RWMutex
}

func NewResourceCatalogService(catalogPath string) *ResourceCatalogService {
	return &ResourceCatalogService{
		loader: storage.NewCatalogLoader(catalogPath),
	}
}

func (cs *ResourceCatalogService) LoadResources() error {
	catalog, err := cs.loader.Load()
	if err != nil {
		return fmt.Errorf("failed to load resource catalog: %w", err)
	}

	cs.mu.Lock()
	cs.catalog = catalog
	cs.mu.Unlock()

	return nil
}

func (cs *ResourceCatalogService) ReloadResources() error {
	return cs.LoadResources()
}

func (cs *ResourceCatalogService) ListResources() ([]model.Resource, error) {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	if cs.catalog == nil {
		return nil, fmt.Errorf("resource catalog not loaded")
	}

	// Return a detached top-level slice to avoid exposing internal storage.
	return cloneutil.Slice(cs.catalog.Resources), nil
}

func (cs *ResourceCatalogService) ByName(name string) (*model.Resource, error) {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	if cs.catalog == nil {
		return nil, fmt.Errorf("resource catalog not loaded")
	}
	for i := range cs.catalog.Resources {
		if cs.catalog.Resources[i].Name == name {
			return &cs.catalog.Resources[i], nil
		}
	}
	return nil, fmt.Errorf("resource '%s' not found", name)
}

func (cs *ResourceCatalogService) ResourcesBaseDir() string {
	return filepath.Dir(cs.loader.Path())
}
