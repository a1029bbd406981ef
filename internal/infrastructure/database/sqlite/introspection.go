package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/qodeinvest/qode-engine/internal/model"
	"github.com/qodeinvest/qode-engine/internal/pkg/stringutil"
)

// GetRelations returns tables and views. SQLite has no schemas; the
// schema argument selects an attached database and defaults to main.
func (a *Adapter) GetRelations(ctx context.Context, schema string) ([]model.Relation, error) {
	if a.db == nil {
		return nil, fmt.Errorf("database not connected")
	}

	database := databaseName(schema)
	query := fmt.Sprintf(
		`SELECT name, type FROM "%s".sqlite_master WHERE type IN ('table', 'view') AND name NOT LIKE 'sqlite_%%' ORDER BY name`,
		stringutil.EscapeIdentifier(database),
	)
	rows, err := a.db.QueryxContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	var relations []model.Relation
	for rows.Next() {
		var name, relType string
		if err := rows.Scan(&name, &relType); err != nil {
			return nil, err
		}
		relations = append(relations, model.Relation{
			Name: name,
			Type: relType,
		})
	}
	return relations, rows.Err()
}

// GetColumns returns columns for a relation via PRAGMA table_info.
func (a *Adapter) GetColumns(ctx context.Context, schema, relation string) ([]model.Column, error) {
	if a.db == nil {
		return nil, fmt.Errorf("database not connected")
	}

	database := databaseName(schema)
	query := fmt.Sprintf(
		`PRAGMA "%s".table_info(%s)`,
		stringutil.EscapeIdentifier(database),
		stringutil.QuoteLiteral(relation),
	)
	rows, err := a.db.QueryxContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	var columns []model.Column
	for rows.Next() {
		var cid int
		var name, dataType string
		var notNull, pk int
		var defaultValue sql.NullString

		if err := rows.Scan(&cid, &name, &dataType, &notNull, &defaultValue, &pk); err != nil {
			return nil, err
		}

		col := model.Column{
			Name:     name,
			Ordinal:  cid,
			DataType: dataType,
			NotNull:  notNull == 1,
		}
		if defaultValue.Valid {
			col.DefaultValue = &defaultValue.String
		}
		columns = append(columns, col)
	}
	return columns, rows.Err()
}

// GetTableStats returns row count, timestamp extent and the inferred bar
// interval of a relation.
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

	database := databaseName(schema)
	target := fmt.Sprintf(`"%s"."%s"`,
		stringutil.EscapeIdentifier(database),
		stringutil.EscapeIdentifier(relation),
	)
	stats := &model.TableStats{Relation: relation, Interval: "unknown"}

	if !hasTimestamp {
		query := fmt.Sprintf(`SELECT COUNT(*) FROM %s`, target)
		if err := a.db.GetContext(ctx, &stats.RowCount, query); err != nil {
			return nil, err
		}
		return stats, nil
	}

	query := fmt.Sprintf(
		`SELECT COUNT(*), MIN("timestamp"), MAX("timestamp") FROM %s`,
		target,
	)
	row := struct {
		count int64
		min   any
		max   any
	}{}
	rows, err := a.db.QueryxContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()
	if rows.Next() {
		if err := rows.Scan(&row.count, &row.min, &row.max); err != nil {
			return nil, err
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	stats.RowCount = row.count
	stats.MinTimestamp = toTime(row.min)
	stats.MaxTimestamp = toTime(row.max)

	if stats.RowCount > 1 && stats.MinTimestamp != nil && stats.MaxTimestamp != nil {
		avgGap := stats.MaxTimestamp.Sub(*stats.MinTimestamp).Seconds() / float64(stats.RowCount-1)
		stats.Interval = model.InferInterval(avgGap)
	}
	return stats, nil
}

func databaseName(schema string) string {
	if schema == "" {
		return "main"
	}
	return schema
}

// toTime converts the loosely typed timestamp values SQLite stores into
// a time. Text values are tried against the common layouts, integers are
// read as epoch seconds.
func toTime(value any) *time.Time {
	switch v := value.(type) {
	case time.Time:
		return &v
	case int64:
		t := time.Unix(v, 0).UTC()
		return &t
	case string:
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
			if t, err := time.Parse(layout, v); err == nil {
				return &t
			}
		}
	case []byte:
		return toTime(string(v))
	}
	return nil
}
