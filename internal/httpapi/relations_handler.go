package httpapi

import (
	"fmt"
	"net/http"

	"github.com/qodeinvest/qode-engine/internal/pkg/logctx"
	"github.com/qodeinvest/qode-engine/internal/service"
)

// connectedHandle resolves the open handle for a resource path parameter. It
// writes the error response itself and returns nil when the caller should
// stop.
func (h *Handler) connectedHandle(w http.ResponseWriter, r *http.Request) *service.ResourceHandle {
	name, err := decodePathParam(r, "resourceName")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_resource", err.Error(), nil)
		return nil
	}

	handle, ok := h.sessions.GetConnection(name)
	if !ok || handle == nil || handle.Adapter == nil {
		message := fmt.Sprintf("%s: %s", service.ErrConnectionUnavailable, name)
		respondError(w, http.StatusConflict, "connection_not_ready", message, nil)
		return nil
	}
	return handle
}

func (h *Handler) getRelations(w http.ResponseWriter, r *http.Request) {
	handle := h.connectedHandle(w, r)
	if handle == nil {
		return
	}

	ctx := logctx.WithField(r.Context(), "resource", handle.Name)
	schema := handle.Resource.DefaultSchemaOrFallback()
	relations, err := handle.Adapter.GetRelations(ctx, schema)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "relations_failed", err.Error(), nil)
		return
	}

	summaries := make([]RelationSummary, len(relations))
	for i, rel := range relations {
		summaries[i] = RelationSummary{
			Name:        rel.Name,
			Type:        rel.Type,
			Schema:      rel.Schema,
			RowEstimate: rel.RowEstimate,
			ColumnCount: rel.ColumnCount,
		}
	}

	respondJSON(w, http.StatusOK, RelationsResponse{Relations: summaries})
}

func (h *Handler) getRelationColumns(w http.ResponseWriter, r *http.Request) {
	handle := h.connectedHandle(w, r)
	if handle == nil {
		return
	}

	relation, err := decodePathParam(r, "relationName")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_relation", err.Error(), nil)
		return
	}

	ctx := logctx.WithField(r.Context(), "resource", handle.Name)
	schema := handle.Resource.DefaultSchemaOrFallback()
	columns, err := handle.Adapter.GetColumns(ctx, schema, relation)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "columns_failed", err.Error(), nil)
		return
	}

	summaries := make([]ColumnSummary, len(columns))
	for i, col := range columns {
		summaries[i] = ColumnSummary{
			Name:         col.Name,
			Ordinal:      col.Ordinal,
			DataType:     col.DataType,
			NotNull:      col.NotNull,
			DefaultValue: col.DefaultValue,
		}
	}

	respondJSON(w, http.StatusOK, ColumnsResponse{Columns: summaries})
}

func (h *Handler) getRelationStats(w http.ResponseWriter, r *http.Request) {
	handle := h.connectedHandle(w, r)
	if handle == nil {
		return
	}

	relation, err := decodePathParam(r, "relationName")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_relation", err.Error(), nil)
		return
	}

	ctx := logctx.WithField(r.Context(), "resource", handle.Name)
	schema := handle.Resource.DefaultSchemaOrFallback()
	stats, err := handle.Adapter.GetTableStats(ctx, schema, relation)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "stats_failed", err.Error(), nil)
		return
	}

	respondJSON(w, http.StatusOK, TableStatsResponse{
		Relation:     stats.Relation,
		RowCount:     stats.RowCount,
		MinTimestamp: stats.MinTimestamp,
		MaxTimestamp: stats.MaxTimestamp,
		Interval:     stats.Interval,
	})
}
