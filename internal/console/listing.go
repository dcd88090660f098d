package console

import (
	"context"
	"io"

	"github.com/vasiliy-maslov/rental-admin-console/internal/export"
	"github.com/vasiliy-maslov/rental-admin-console/internal/paging"
)

// Listing is a paginated resource view with its export layout, independent
// of the row type.
type Listing interface {
	Name() string
	Load(ctx context.Context) error
	Search(ctx context.Context, keyword, status string) error
	Next(ctx context.Context) error
	Prev(ctx context.Context) error
	SetSize(ctx context.Context, size int) error
	Loaded() bool
	View() any
	Page() int
	Export(w io.Writer) error
}

type listing[T any] struct {
	name    string
	sheet   string
	coll    *paging.Collection[T]
	columns []export.Column[T]
}

func newListing[T any](name, sheet string, base int, fetch paging.FetchFunc[T], columns []export.Column[T]) *listing[T] {
	return &listing[T]{
		name:    name,
		sheet:   sheet,
		coll:    paging.New(fetch, base, paging.DefaultSize),
		columns: columns,
	}
}

func (l *listing[T]) Name() string { return l.name }

func (l *listing[T]) Load(ctx context.Context) error { return l.coll.Load(ctx) }

func (l *listing[T]) Search(ctx context.Context, keyword, status string) error {
	return l.coll.Search(ctx, keyword, status)
}

func (l *listing[T]) Next(ctx context.Context) error { return l.coll.Next(ctx) }

func (l *listing[T]) Prev(ctx context.Context) error { return l.coll.Prev(ctx) }

func (l *listing[T]) SetSize(ctx context.Context, size int) error { return l.coll.SetSize(ctx, size) }

func (l *listing[T]) Loaded() bool { return l.coll.Loaded() }

func (l *listing[T]) View() any { return l.coll.View() }

func (l *listing[T]) Page() int { return l.coll.View().Page }

// Export writes only the rows currently on display.
func (l *listing[T]) Export(w io.Writer) error {
	return export.WriteXLSX(w, l.sheet, l.columns, l.coll.Items())
}
