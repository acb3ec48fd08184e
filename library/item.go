package library

import (
	"errors"
	"fmt"
)

// ItemKind distinguishes the catalog item variants.
type ItemKind string

const (
	ItemLiterature ItemKind = "literature"
	ItemFilm       ItemKind = "film"
)

// Item is a lendable catalog entry. Literature items carry an ISBN, film
// items a runtime; the remaining fields are common to both kinds.
type Item struct {
	id               int
	kind             ItemKind
	title            string
	classificationID int
	authorID         int
	available        bool
	isbn             string
	runtimeMinutes   int
	deleted          bool

	v *Validator
}

// NewLiterature builds an unpersisted literature item.
func NewLiterature(v *Validator, title string, classificationID, authorID int, isbn string) (*Item, error) {
	it, err := newItem(v, ItemLiterature, title, classificationID, authorID)
	if err != nil {
		return nil, err
	}
	if err := it.SetISBN(isbn); err != nil {
		return nil, err
	}
	return it, nil
}

// NewFilm builds an unpersisted film item.
func NewFilm(v *Validator, title string, classificationID, authorID, runtimeMinutes int) (*Item, error) {
	it, err := newItem(v, ItemFilm, title, classificationID, authorID)
	if err != nil {
		return nil, err
	}
	if err := it.SetRuntimeMinutes(runtimeMinutes); err != nil {
		return nil, err
	}
	return it, nil
}

func newItem(v *Validator, kind ItemKind, title string, classificationID, authorID int) (*Item, error) {
	it := &Item{v: v, kind: kind, available: true}
	if err := it.SetTitle(title); err != nil {
		return nil, err
	}
	if err := it.SetClassificationID(classificationID); err != nil {
		return nil, err
	}
	if err := it.SetAuthorID(authorID); err != nil {
		return nil, err
	}
	return it, nil
}

func (it *Item) ID() int               { return it.id }
func (it *Item) Kind() ItemKind        { return it.kind }
func (it *Item) Title() string         { return it.title }
func (it *Item) ClassificationID() int { return it.classificationID }
func (it *Item) AuthorID() int         { return it.authorID }
func (it *Item) Available() bool       { return it.available }
func (it *Item) ISBN() string          { return it.isbn }
func (it *Item) RuntimeMinutes() int   { return it.runtimeMinutes }
func (it *Item) Deleted() bool         { return it.deleted }

// SetTitle enforces the schema-provided maximum for the title column.
func (it *Item) SetTitle(s string) error {
	if err := it.v.Title("title", TableItems, "title", s); err != nil {
		return err
	}
	it.title = s
	return nil
}

func (it *Item) SetClassificationID(id int) error {
	if err := it.v.PersistedID("classificationID", id); err != nil {
		return err
	}
	it.classificationID = id
	return nil
}

func (it *Item) SetAuthorID(id int) error {
	if err := it.v.PersistedID("authorID", id); err != nil {
		return err
	}
	it.authorID = id
	return nil
}

func (it *Item) SetAvailable(available bool) {
	it.available = available
}

func (it *Item) SetISBN(s string) error {
	if it.kind != ItemLiterature {
		return &ValidationError{Field: "isbn", Err: fmt.Errorf("only literature items carry an ISBN")}
	}
	if err := it.v.Text("isbn", TableItems, "isbn", s); err != nil {
		return err
	}
	it.isbn = s
	return nil
}

func (it *Item) SetRuntimeMinutes(minutes int) error {
	if it.kind != ItemFilm {
		return &ValidationError{Field: "runtimeMinutes", Err: fmt.Errorf("only film items carry a runtime")}
	}
	if minutes < 0 {
		return &ValidationError{Field: "runtimeMinutes", Err: errors.New("must not be negative")}
	}
	it.runtimeMinutes = minutes
	return nil
}

func (it *Item) validate() error {
	if err := it.v.EntityID("id", it.id); err != nil {
		return err
	}
	if it.kind != ItemLiterature && it.kind != ItemFilm {
		return &ValidationError{Field: "kind", Err: fmt.Errorf("unknown item kind %q", it.kind)}
	}
	if err := it.v.Title("title", TableItems, "title", it.title); err != nil {
		return err
	}
	if err := it.v.PersistedID("classificationID", it.classificationID); err != nil {
		return err
	}
	return it.v.PersistedID("authorID", it.authorID)
}

func (it *Item) fields() Row {
	return Row{
		"kind":              string(it.kind),
		"title":             it.title,
		"classification_id": it.classificationID,
		"author_id":         it.authorID,
		"available":         it.available,
		"isbn":              it.isbn,
		"runtime_minutes":   it.runtimeMinutes,
		"deleted":           it.deleted,
	}
}

func decodeItem(v *Validator, r Row) (*Item, error) {
	it := &Item{
		v:                v,
		id:               r.Int("id"),
		kind:             ItemKind(r.Str("kind")),
		title:            r.Str("title"),
		classificationID: r.Int("classification_id"),
		authorID:         r.Int("author_id"),
		available:        r.Bool("available"),
		isbn:             r.Str("isbn"),
		runtimeMinutes:   r.Int("runtime_minutes"),
		deleted:          r.Bool("deleted"),
	}
	if err := it.validate(); err != nil {
		return nil, err
	}
	return it, nil
}
