// Package repository reads raw laptop listings from the ingestion stores and
// writes tabular run artifacts.
package repository

import (
	"context"
	"maps"
	"slices"

	"github.com/okian/lapprice/internal/domain/model"
)

// Incidental columns stripped from every ingested batch.
var droppedColumns = []string{"Unnamed: 0", "_id"} //nolint:gochecknoglobals // fixed column list

// Source fetches the full raw dataset.
type Source interface {
	// Fetch returns every row in source order.
	// Returns an error wrapping ErrStoreUnavailable if the store cannot be read.
	Fetch(ctx context.Context) (*model.RawTable, error)

	// Name identifies the source in logs and metrics.
	Name() string
}

// StaticSource serves a fixed table.
type StaticSource struct {
	Table *model.RawTable
}

// Fetch implements Source.
func (s StaticSource) Fetch(context.Context) (*model.RawTable, error) {
	if s.Table == nil {
		return &model.RawTable{}, nil
	}
	rows := make([]map[string]string, len(s.Table.Rows))
	for i, r := range s.Table.Rows {
		rows[i] = maps.Clone(r)
	}
	return strip(&model.RawTable{Columns: slices.Clone(s.Table.Columns), Rows: rows}), nil
}

// Name implements Source.
func (StaticSource) Name() string { return "static" }

// strip removes incidental index and identifier columns in place.
func strip(t *model.RawTable) *model.RawTable {
	t.Columns = slices.DeleteFunc(t.Columns, func(c string) bool { return slices.Contains(droppedColumns, c) })
	for _, row := range t.Rows {
		for _, c := range droppedColumns {
			delete(row, c)
		}
	}
	return t
}
