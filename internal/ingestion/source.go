package ingestion

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/danielpatrickdp/churn-service/internal/frame"
)

// #region csv-source
// CSVSource reads the raw table from a CSV file.
type CSVSource struct {
	Path string
}

func (s CSVSource) Read(_ context.Context) (*frame.Frame, error) {
	return frame.ReadCSVFile(s.Path)
}

func (s CSVSource) Describe() string { return "csv:" + s.Path }

// #endregion csv-source

// #region postgres-source
// PostgresSource reads every row of a table.
type PostgresSource struct {
	DSN   string
	Table string
}

func (s PostgresSource) Describe() string { return "postgres:" + s.Table }

func (s PostgresSource) Read(ctx context.Context) (*frame.Frame, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", s.DSN)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	defer db.Close()

	rows, err := db.QueryxContext(ctx, "SELECT * FROM "+pq.QuoteIdentifier(s.Table))
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", s.Table, err)
	}
	defer rows.Close()

	names, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns of %s: %w", s.Table, err)
	}

	var data [][]frame.Value
	for rows.Next() {
		m := make(map[string]any, len(names))
		if err := rows.MapScan(m); err != nil {
			return nil, fmt.Errorf("scan %s row %d: %w", s.Table, len(data), err)
		}
		row := make([]frame.Value, len(names))
		for i, n := range names {
			row[i] = sqlValue(m[n])
		}
		data = append(data, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", s.Table, err)
	}
	return frame.FromRows(names, data)
}

// sqlValue converts a driver value into a cell.
func sqlValue(v any) frame.Value {
	switch x := v.(type) {
	case nil:
		return frame.Missing()
	case int64:
		return frame.Number(float64(x))
	case float64:
		return frame.Number(x)
	case bool:
		return frame.Text(strconv.FormatBool(x))
	case []byte:
		return frame.Text(string(x))
	case string:
		return frame.Text(x)
	case time.Time:
		return frame.Text(x.UTC().Format(time.RFC3339))
	default:
		return frame.Text(fmt.Sprint(x))
	}
}

// #endregion postgres-source
