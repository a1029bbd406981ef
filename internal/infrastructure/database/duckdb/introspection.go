package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/qodeinvest/qode-engine/internal/model"
	"github.com/qodeinvest/qode-engine/internal/pkg/stringutil"
)

// GetRelations returns tables and views within a schema, enriched with
// row estimates and column counts from duckdb_tables().
func (a *Adapter) GetRelations(ctx context.Context, schema string) ([]model.Relation, error) {
	if a.db == nil {
		return nil, fmt.Errorf("database not connected")
	}

	rows, err := a.db.QueryxContext(ctx,
		`SELECT table_name, table_type FROM information_schema.tables WHERE table_schema = ? ORDER BY table_name`,
		schema,
	)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	schemaName := schema
	var relations []model.Relation
	for rows.Next() {
		var name, relType string
		if err := rows.Scan(&name, &relType); err != nil {
			return nil, err
		}
		relations = append(relations, model.Relation{
			Name:   name,
			Type:   mapRelationType(relType),
			Schema: &schemaName,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	estimates, err := a.tableEstimates(ctx, schema)
	if err != nil {
		return nil, err
	}
	for i := range relations {
		if est, ok := estimates[relations[i].Name]; ok {
			relations[i].RowEstimate = &est.rows
			relations[i].ColumnCount = &est.columns
		}
	}

	return relations, nil
}

func mapRelationType(tableType string) string {
	switch strings.ToUpper(tableType) {
	case "BASE TABLE", "LOCAL TEMPORARY":
		return "table"
	case "VIEW":
		return "view"
	default:
		return strings.ToLower(tableType)
	}
}

type tableEstimate struct {
	rows    int64
	columns int64
}

// tableEstimates reads per-table statistics from duckdb_tables(). Views
// do not appear there and stay unenriched.
func (a *Adapter) tableEstimates(ctx context.Context, schema string) (map[string]tableEstimate, error) {
	rows, err := a.db.QueryxContext(ctx,
		`SELECT table_name, estimated_size, column_count FROM duckdb_tables() WHERE schema_name = ?`,
		schema,
	)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	estimates := make(map[string]tableEstimate)
	for rows.Next() {
		var name string
		var size, columns int64
		if err := rows.Scan(&name, &size, &columns); err != nil {
			return nil, err
		}
		estimates[name] = tableEstimate{rows: size, columns: columns}
	}
	return estimates, rows.Err()
}

// GetColumns returns the columns of a relation via DESCRIBE.
func (a *Adapter) GetColumns(ctx context.Context, schema, relation string) ([]model.Column, error) {
	if a.db == nil {
		return nil, fmt.Errorf("database not connected")
	}

	query := fmt.Sprintf(`DESCRIBE %s`, qualifyRelation(schema, relation))
	rows, err := a.db.QueryxContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	var columns []model.Column
	ordinal := 0
	for rows.Next() {
		var name, dataType string
		var null, key, defaultValue, extra sql.NullString
		if err := rows.Scan(&name, &dataType, &null, &key, &defaultValue, &extra); err != nil {
			return nil, err
		}

		col := model.Column{
			Name:     name,
			Ordinal:  ordinal,
			DataType: dataType,
			NotNull:  strings.EqualFold(null.String, "NO"),
		}
		if defaultValue.Valid && defaultValue.String != "" {
			col.DefaultValue = &defaultValue.String
		}
		columns = append(columns, col)
		ordinal++
	}
	return columns, rows.Err()
}

// GetTableStats returns row count, timestamp extent and the inferred bar
// interval of a relation. Relations without a timestamp column get a row
// count only.
func (a *Adapter) GetTableStats(ctx context.Context, schema, relation string) (*model.TableStats, error) {
	if a.db == nil {
		return nil, fmt.Errorf("database not connected")
	}

	columns, err := a.GetColumns(ctx, schema, relation)
	if err != nil {
		return nil, err
	}
	hasTimestamp := false
	for _, col := range columns {
		if strings.EqualFold(col.Name, "timestamp") {
			hasTimestamp = true
			break
		}
	}

	target := qualifyRelation(schema, relation)
	stats := &model.TableStats{Relation: relation, Interval: "unknown"}

	if !hasTimestamp {
		query := fmt.Sprintf(`SELECT COUNT(*) FROM %s`, target)
		if err := a.db.GetContext(ctx, &stats.RowCount, query); err != nil {
			return nil, err
		}
		return stats, nil
	}

	var row struct {
		RowCount int64      `db:"row_count"`
		MinTS    *time.Time `db:"min_ts"`
		MaxTS    *time.Time `db:"max_ts"`
	}
	query := fmt.Sprintf(
		`SELECT COUNT(*) AS row_count, MIN("timestamp") AS min_ts, MAX("timestamp") AS max_ts FROM %s`,
		target,
	)
	if err := a.db.GetContext(ctx, &row, query); err != nil {
		return nil, err
	}

	stats.RowCount = row.RowCount
	stats.MinTimestamp = row.MinTS
	stats.MaxTimestamp = row.MaxTS

	// The mean gap between consecutive bars equals the extent divided by
	// the number of gaps.
	if row.RowCount > 1 && row.MinTS != nil && row.MaxTS != nil {
		avgGap := row.MaxTS.Sub(*row.MinTS).Seconds() / float64(row.RowCount-1)
		stats.Interval = model.InferInterval(avgGap)
	}
	return stats, nil
}

func qualifyRelation(schema, relation string) string {
	if schema == "" {
		return fmt.Sprintf(`"%s"`, stringutil.EscapeIdentifier(relation))
	}
	return fmt.Sprintf(`"%s"."%s"`,
		stringutil.EscapeIdentifier(schema),
		stringutil.EscapeIdentifier(relation),
	)
}
