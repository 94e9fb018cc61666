package datastore

import (
	"context"
	"fmt"
)

// #region types

// Column describes one dataset column.
type Column struct {
	Name string
	Type string
}

// Summary is a short description of the dataset table.
type Summary struct {
	Table   string
	Rows    int64
	Columns []Column
}

// #endregion

// #region summary

// Columns lists the dataset columns in declaration order.
func (s *Store) Columns(ctx context.Context) ([]Column, error) {
	rows, err := s.Execute(ctx, fmt.Sprintf("SELECT name, type FROM pragma_table_info('%s');", s.table))
	if err != nil {
		return nil, err
	}
	cols := make([]Column, 0, len(rows))
	for _, r := range rows {
		if len(r) < 2 {
			continue
		}
		cols = append(cols, Column{Name: fmt.Sprint(r[0]), Type: fmt.Sprint(r[1])})
	}
	return cols, nil
}

// Summarize returns the table name, row count, and columns.
func (s *Store) Summarize(ctx context.Context) (Summary, error) {
	cols, err := s.Columns(ctx)
	if err != nil {
		return Summary{}, err
	}
	sum := Summary{Table: s.table, Columns: cols}
	if len(cols) == 0 {
		return sum, fmt.Errorf("table %s not found", s.table)
	}

	rows, err := s.Execute(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s;", s.table))
	if err != nil {
		return Summary{}, err
	}
	if len(rows) == 1 && len(rows[0]) == 1 {
		if n, ok := rows[0][0].(int64); ok {
			sum.Rows = n
		}
	}
	return sum, nil
}

// #endregion
