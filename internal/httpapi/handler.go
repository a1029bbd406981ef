package httpapi

import (
	"context"

	"github.com/qodeinvest/qode-engine/internal/auth"
	"github.com/qodeinvest/qode-engine/internal/cache"
	"github.com/qodeinvest/qode-engine/internal/history"
	"github.com/qodeinvest/qode-engine/internal/service"
)

// Translator turns a natural language question into SQL. *nlsql.Translator
// satisfies it.
type Translator interface {
	Translate(ctx context.Context, question string, tables []string) (string, error)
}

// Handler wires HTTP requests to domain services. History, translator, ticks
// and auth are optional; their endpoints answer 503 when absent.
type Handler struct {
	catalog    *service.ResourceCatalogService
	sessions   *service.ResourceSessionService
	queries    *service.QueryService
	history    *history.Store
	translator Translator
	ticks      cache.BarCache
	auth       *auth.Service
}

func NewHandler(
	catalog *service.ResourceCatalogService,
	sessions *service.ResourceSessionService,
	queries *service.QueryService,
	historyStore *history.Store,
	translator Translator,
	ticks cache.BarCache,
	authService *auth.Service,
) *Handler {
	return &Handler{
		catalog:    catalog,
		sessions:   sessions,
		queries:    queries,
		history:    historyStore,
		translator: translator,
		ticks:      ticks,
		auth:       authService,
	}
}
