// Package pagination implements keyset (cursor) pagination over the
// canonical transaction order: date DESC, id DESC (newest first).
//
// A cursor names a transaction id and a direction relative to that
// transaction. Before asks for the page of more-recent rows, After for
// the page of older rows. Offsets are deliberately not supported: the
// import pipeline can commit large batches mid-pagination, and a keyset
// cursor stays stable where an offset would drift.
package pagination

// Direction tells which side of the cursor transaction a page is on.
type Direction string

const (
	// Before selects rows more recent than the cursor row.
	Before Direction = "before"
	// After selects rows older than the cursor row.
	After Direction = "after"
)

// Cursor is a page boundary relative to a transaction id.
type Cursor struct {
	ID  string
	Dir Direction
}

// BeforeCursor returns a cursor for the page preceding (more recent
// than) the given transaction id.
func BeforeCursor(id string) *Cursor {
	return &Cursor{ID: id, Dir: Before}
}

// AfterCursor returns a cursor for the page following (older than) the
// given transaction id.
func AfterCursor(id string) *Cursor {
	return &Cursor{ID: id, Dir: After}
}

const (
	// DefaultLimit is the page size used when the caller does not
	// specify one.
	DefaultLimit = 50
	// MaxLimit caps the page size a caller may request.
	MaxLimit = 100
)

// ClampLimit normalizes a requested page size into [1, MaxLimit],
// substituting DefaultLimit for zero or negative values.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// NextPrev derives the next/prev cursor ids for a returned page.
// firstID and lastID are the ids of the first and last transactions of
// the page in caller-visible (descending) order; hasMore reports whether
// the underlying fetch found rows beyond the page; c is the cursor the
// page was fetched with, nil for the first page.
//
// Four cases: a first page only ever has a next; a mid-range page has
// both; a page that exhausted the Before side has only a next; a page
// that exhausted the After side has only a prev.
func NextPrev(firstID, lastID string, hasMore bool, c *Cursor) (nextID, prevID *string) {
	switch {
	case c == nil && hasMore:
		nextID = &lastID
	case c == nil:
		// Single page holding everything: nothing on either side.
	case hasMore:
		nextID = &lastID
		prevID = &firstID
	case c.Dir == Before:
		nextID = &lastID
	case c.Dir == After:
		prevID = &firstID
	}
	return nextID, prevID
}
