package library

import "time"

// Table names, shared between the core and Repository implementations.
const (
	TableAuthors         = "authors"
	TableClassifications = "classifications"
	TableItems           = "items"
	TableUsers           = "users"
	TableRentals         = "rentals"
)

// Row is the generic field map exchanged with a Repository. Keys are column
// names; values are whatever the storage engine hands back (int64 for
// integers and booleans, float64, string or []byte), so the accessors below
// normalize on read.
type Row map[string]any

func (r Row) Int(col string) int {
	switch v := r[col].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

func (r Row) Float(col string) float64 {
	switch v := r[col].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case int:
		return float64(v)
	}
	return 0
}

func (r Row) Str(col string) string {
	switch v := r[col].(type) {
	case string:
		return v
	case []byte:
		return string(v)
	}
	return ""
}

func (r Row) Bool(col string) bool {
	switch v := r[col].(type) {
	case bool:
		return v
	case int64:
		return v != 0
	case int:
		return v != 0
	}
	return false
}

// Time decodes an RFC3339 column. An empty or missing value yields the zero
// time, which the rental model uses for "no return date recorded".
func (r Row) Time(col string) time.Time {
	s := r.Str(col)
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// EncodeTime is the inverse of Row.Time. The zero time encodes as the empty
// string so nullable dates survive the round trip.
func EncodeTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

// Repository is the persistence boundary the handlers call into. All calls
// are synchronous. Implementations return ErrNotFound for missing rows and
// wrap engine failures in a StorageError.
type Repository interface {
	// Insert stores a new row and returns the generated id.
	Insert(table string, fields Row) (int, error)
	// FetchByID returns the row with the given id, deleted or not.
	FetchByID(table string, id int) (Row, error)
	// FetchAll returns every row in id order, excluding soft-deleted rows
	// unless includeDeleted is set.
	FetchAll(table string, includeDeleted bool) ([]Row, error)
	// Update issues a full-row update and returns the affected row count.
	Update(table string, id int, fields Row) (int, error)
	// SoftDelete sets the deleted flag without touching any other column.
	SoftDelete(table string, id int, deleted bool) error
	// HardDelete removes the row permanently and returns the affected count.
	HardDelete(table string, id int) (int, error)
}

// MetadataProvider supplies per-column constraint limits derived from the
// storage schema, so validation stays in sync with schema changes. Safe to
// query once and cache for a validator's lifetime.
type MetadataProvider interface {
	// MaxLength returns the declared maximum length of a text column, or 0
	// when the column carries no length bound.
	MaxLength(table, column string) (int, error)
}
