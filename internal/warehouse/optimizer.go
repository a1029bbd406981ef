package warehouse

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/qodeinvest/qode-engine/internal/service"
)

// OptimizeStats summarizes an optimization run.
type OptimizeStats struct {
	Indexed    int
	DroppedStd int
	Failed     int
}

// Optimize prepares a built warehouse for query traffic: _std relations are
// dropped in favor of the raw ones, every surviving table gets a timestamp
// index, and the database file is vacuumed.
func Optimize(ctx context.Context, exec Executor, schema string, logger *slog.Logger) (*OptimizeStats, error) {
	if schema == "" {
		schema = "market_data"
	}
	if logger == nil {
		logger = slog.Default()
	}

	result, err := exec.ExecuteQuery(ctx,
		"SELECT table_name FROM duckdb_tables() WHERE schema_name = ?",
		[]interface{}{schema}, nil)
	if err != nil {
		return nil, fmt.Errorf("list tables in %s: %w", schema, err)
	}

	stats := &OptimizeStats{}
	for _, row := range result.Rows {
		if len(row) == 0 {
			continue
		}
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		tableName := service.FormatValue(row[0])
		qualified := fmt.Sprintf("%s.%s", schema, tableName)

		if strings.HasSuffix(tableName, "_std") {
			if _, err := exec.ExecuteQuery(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", qualified), nil, nil); err != nil {
				logger.Error("failed to drop std relation", "relation", qualified, "error", err)
				stats.Failed++
				continue
			}
			logger.Info("dropped std relation", "relation", qualified)
			stats.DroppedStd++
			continue
		}

		indexName := fmt.Sprintf("idx_%s_timestamp", tableName)
		indexDDL := fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s(timestamp)", indexName, qualified)
		if _, err := exec.ExecuteQuery(ctx, indexDDL, nil, nil); err != nil {
			logger.Error("failed to index relation", "relation", qualified, "error", err)
			stats.Failed++
			continue
		}
		logger.Info("indexed relation", "relation", qualified, "index", indexName)
		stats.Indexed++
	}

	if _, err := exec.ExecuteQuery(ctx, "VACUUM", nil, nil); err != nil {
		return stats, fmt.Errorf("vacuum: %w", err)
	}
	return stats, nil
}
