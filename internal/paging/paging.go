// Package paging holds the list state shared by every paginated resource view:
// page index, page size, totals, keyword and status filter.
package paging

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var (
	ErrFirstPage   = errors.New("already on the first page")
	ErrLastPage    = errors.New("already on the last page")
	ErrInvalidSize = errors.New("page size must be positive")
)

const DefaultSize = 10

// Query is what a fetch receives. Page is expressed in the resource's own base.
type Query struct {
	Page    int
	Size    int
	Keyword string
	Status  string
}

// Page mirrors the backend's paged response body.
type Page[T any] struct {
	Content       []T   `json:"content"`
	TotalElements int64 `json:"totalElements"`
	TotalPages    int   `json:"totalPages"`
	Number        int   `json:"number"`
	Size          int   `json:"size"`
}

type FetchFunc[T any] func(ctx context.Context, q Query) (Page[T], error)

// View is a read-only copy of a collection's state.
type View[T any] struct {
	Items         []T    `json:"items"`
	Page          int    `json:"page"`
	Size          int    `json:"size"`
	Base          int    `json:"base"`
	TotalElements int64  `json:"totalElements"`
	TotalPages    int    `json:"totalPages"`
	Keyword       string `json:"keyword,omitempty"`
	Status        string `json:"status,omitempty"`
	HasPrev       bool   `json:"hasPrev"`
	HasNext       bool   `json:"hasNext"`
	Loaded        bool   `json:"loaded"`
}

type Collection[T any] struct {
	mu            sync.Mutex
	fetch         FetchFunc[T]
	base          int
	query         Query
	items         []T
	totalElements int64
	totalPages    int
	loaded        bool
}

// New creates a collection whose first page index is base (0 or 1).
func New[T any](fetch FetchFunc[T], base, size int) *Collection[T] {
	if size <= 0 {
		size = DefaultSize
	}
	return &Collection[T]{
		fetch: fetch,
		base:  base,
		query: Query{Page: base, Size: size},
	}
}

// Load fetches the current page and replaces the whole collection.
// On failure the collection is cleared and the error returned.
func (c *Collection[T]) Load(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loadLocked(ctx)
}

func (c *Collection[T]) loadLocked(ctx context.Context) error {
	c.loaded = true

	page, err := c.fetch(ctx, c.query)
	if err != nil {
		c.items = nil
		c.totalElements = 0
		c.totalPages = 0
		return fmt.Errorf("failed to load page %d: %w", c.query.Page, err)
	}

	c.items = page.Content
	c.totalElements = page.TotalElements
	c.totalPages = page.TotalPages
	if c.totalPages == 0 && c.totalElements > 0 {
		c.totalPages = int((c.totalElements + int64(c.query.Size) - 1) / int64(c.query.Size))
	}
	return nil
}

// Search applies a keyword and status filter and always returns to the first page.
func (c *Collection[T]) Search(ctx context.Context, keyword, status string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.query.Keyword = keyword
	c.query.Status = status
	c.query.Page = c.base
	return c.loadLocked(ctx)
}

func (c *Collection[T]) Next(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.hasNextLocked() {
		return ErrLastPage
	}
	c.query.Page++
	return c.loadLocked(ctx)
}

func (c *Collection[T]) Prev(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.hasPrevLocked() {
		return ErrFirstPage
	}
	c.query.Page--
	return c.loadLocked(ctx)
}

// SetSize changes the page size and returns to the first page.
func (c *Collection[T]) SetSize(ctx context.Context, size int) error {
	if size <= 0 {
		return ErrInvalidSize
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.query.Size = size
	c.query.Page = c.base
	return c.loadLocked(ctx)
}

func (c *Collection[T]) HasPrev() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hasPrevLocked()
}

func (c *Collection[T]) HasNext() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hasNextLocked()
}

func (c *Collection[T]) hasPrevLocked() bool {
	return c.query.Page > c.base
}

func (c *Collection[T]) hasNextLocked() bool {
	pos := int64(c.query.Page - c.base)
	if c.totalElements > 0 {
		return (pos+1)*int64(c.query.Size) < c.totalElements
	}
	return pos+1 < int64(c.totalPages)
}

func (c *Collection[T]) Loaded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loaded
}

// Items returns a copy of the currently displayed page.
func (c *Collection[T]) Items() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]T(nil), c.items...)
}

func (c *Collection[T]) View() View[T] {
	c.mu.Lock()
	defer c.mu.Unlock()

	items := append([]T{}, c.items...)
	return View[T]{
		Items:         items,
		Page:          c.query.Page,
		Size:          c.query.Size,
		Base:          c.base,
		TotalElements: c.totalElements,
		TotalPages:    c.totalPages,
		Keyword:       c.query.Keyword,
		Status:        c.query.Status,
		HasPrev:       c.hasPrevLocked(),
		HasNext:       c.hasNextLocked(),
		Loaded:        c.loaded,
	}
}
