// Package listing derives the filtered, paginated view of a snapshot.
package listing

import (
	"strings"
	"sync"
)

// DefaultPageSize is used when a controller is given a size below one.
const DefaultPageSize = 15

// Visible projects a record onto the string forms of its user-visible fields.
type Visible[T any] func(T) []string

// Controller holds the query and page position over the latest snapshot. It
// never reorders or mutates the records it is given.
type Controller[T any] struct {
	visible  Visible[T]
	pageSize int

	mu      sync.RWMutex
	records []T
	query   string
	page    int
}

// New returns a controller on page 1 with an empty query.
func New[T any](visible Visible[T], pageSize int) *Controller[T] {
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	return &Controller[T]{visible: visible, pageSize: pageSize, page: 1}
}

// SetRecords replaces the snapshot the view is derived from.
func (c *Controller[T]) SetRecords(records []T) {
	c.mu.Lock()
	c.records = records
	c.mu.Unlock()
}

// SetQuery changes the filter and always returns to page 1.
func (c *Controller[T]) SetQuery(q string) {
	c.mu.Lock()
	c.query = q
	c.page = 1
	c.mu.Unlock()
}

// SetPage moves to page n. Callers keep n within [1, PageCount].
func (c *Controller[T]) SetPage(n int) {
	c.mu.Lock()
	c.page = n
	c.mu.Unlock()
}

// Query returns the current filter text.
func (c *Controller[T]) Query() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.query
}

// CurrentPage returns the current page number.
func (c *Controller[T]) CurrentPage() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.page
}

// PageSize returns the number of records per page.
func (c *Controller[T]) PageSize() int { return c.pageSize }

// Filtered returns every record with at least one visible field containing the
// query, case-insensitively, in snapshot order.
func (c *Controller[T]) Filtered() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.filteredLocked()
}

func (c *Controller[T]) filteredLocked() []T {
	q := strings.ToLower(c.query)
	if q == "" {
		return c.records
	}
	out := make([]T, 0, len(c.records))
	for _, r := range c.records {
		for _, v := range c.visible(r) {
			if strings.Contains(strings.ToLower(v), q) {
				out = append(out, r)
				break
			}
		}
	}
	return out
}

// Page returns the n-th window of the filtered records, empty when n is out of range.
func (c *Controller[T]) Page(n int) []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return window(c.filteredLocked(), n, c.pageSize)
}

// Current returns the window for the current page.
func (c *Controller[T]) Current() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return window(c.filteredLocked(), c.page, c.pageSize)
}

// PageCount is ceil(len(Filtered()) / PageSize()).
func (c *Controller[T]) PageCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return pageCount(len(c.filteredLocked()), c.pageSize)
}

// AfterDelete is called before the deletion is reflected in the records, with
// deleted matching the removed record. If removing it leaves the current page
// empty and that page is not the first, the controller steps back one page.
// Deleting a record the query filters out never moves the page.
func (c *Controller[T]) AfterDelete(deleted func(T) bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	filtered := c.filteredLocked()
	remaining := len(filtered)
	for _, r := range filtered {
		if deleted(r) {
			remaining--
		}
	}
	if c.page > 1 && (c.page-1)*c.pageSize >= remaining {
		c.page--
	}
}

func window[T any](items []T, n, size int) []T {
	start := (n - 1) * size
	if n < 1 || start >= len(items) {
		return []T{}
	}
	end := start + size
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

func pageCount(total, size int) int {
	return (total + size - 1) / size
}
