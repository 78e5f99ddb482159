package platform

import "context"

// SQLExecutor is the storage handle the Persistence Layer is built against.
// It mirrors the "sql.exec(query, ...binds)" collaborator named in the
// spec's external-interfaces section: a positional-placeholder query plus
// scalar bind arguments, returning one of three possible result shapes.
//
// Implementations MUST accept binds as individual scalar arguments, never
// as a single argument wrapping a slice; PL relies on this to satisfy the
// "no array-wrapped binds" testable property.
type SQLExecutor interface {
	Exec(ctx context.Context, query string, args ...any) (QueryResult, error)
}

// ResultShape identifies which of the three supported wire shapes a
// QueryResult carries. Exactly one of the corresponding fields on
// QueryResult is populated for a given shape.
type ResultShape int

const (
	// ShapeBatches is an array of row batches, each with its own column list.
	ShapeBatches ResultShape = iota
	// ShapeColumnNamesResults is a single {columnNames, results} object.
	ShapeColumnNamesResults
	// ShapeCursor is an asynchronously iterable cursor over rows.
	ShapeCursor
)

// Batch is one element of the ShapeBatches wire shape.
type Batch struct {
	Columns []string
	Rows    [][]any
}

// ColumnNamesResult is the ShapeColumnNamesResults wire shape.
type ColumnNamesResult struct {
	ColumnNames []string
	Results     [][]any
}

// Cursor is the ShapeCursor wire shape: a row at a time, with an explicit
// end-of-sequence signal, the way an async-iterable driver result would be
// consumed one await at a time.
type Cursor interface {
	// Next returns the next row's values and the fixed column list for the
	// cursor, or ok=false once exhausted.
	Next(ctx context.Context) (row []any, columns []string, ok bool, err error)
}

// QueryResult is what SQLExecutor.Exec returns. Shape selects which of
// Batches, ColumnNames, or Cursor is meaningful.
type QueryResult struct {
	Shape       ResultShape
	Batches     []Batch
	ColumnNames *ColumnNamesResult
	Cursor      Cursor
}

// Record is one normalized, column-keyed row.
type Record map[string]any

// Normalize decodes a QueryResult of any supported shape into a uniform,
// ordered sequence of column-keyed records. Column order within a record
// follows the declared column order of the source shape; map iteration
// order is irrelevant since callers look records up by key.
func Normalize(ctx context.Context, qr QueryResult) ([]Record, error) {
	switch qr.Shape {
	case ShapeBatches:
		return normalizeBatches(qr.Batches), nil
	case ShapeColumnNamesResults:
		return normalizeColumnNames(qr.ColumnNames), nil
	case ShapeCursor:
		return normalizeCursor(ctx, qr.Cursor)
	default:
		return nil, nil
	}
}

func normalizeBatches(batches []Batch) []Record {
	var out []Record
	for _, b := range batches {
		for _, row := range b.Rows {
			out = append(out, rowToRecord(b.Columns, row))
		}
	}
	return out
}

func normalizeColumnNames(cr *ColumnNamesResult) []Record {
	if cr == nil {
		return nil
	}
	out := make([]Record, 0, len(cr.Results))
	for _, row := range cr.Results {
		out = append(out, rowToRecord(cr.ColumnNames, row))
	}
	return out
}

func normalizeCursor(ctx context.Context, cur Cursor) ([]Record, error) {
	if cur == nil {
		return nil, nil
	}
	var out []Record
	for {
		row, columns, ok, err := cur.Next(ctx)
		if err != nil {
			return out, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, rowToRecord(columns, row))
	}
}

func rowToRecord(columns []string, values []any) Record {
	rec := make(Record, len(columns))
	for i, col := range columns {
		if i < len(values) {
			rec[col] = values[i]
		} else {
			rec[col] = nil
		}
	}
	return rec
}
