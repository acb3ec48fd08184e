package library

import (
	"errors"
	"sync"
)

// idLocks serializes handler operations per record id. The underlying
// storage is a single statement per operation, but read-modify-write
// sequences (soft delete, rental returns) need mutual exclusion when a
// handler is shared across goroutines.
type idLocks struct {
	mu    sync.Mutex
	locks map[int]*sync.Mutex
}

func (l *idLocks) lock(id int) func() {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[int]*sync.Mutex)
	}
	m, ok := l.locks[id]
	if !ok {
		m = &sync.Mutex{}
		l.locks[id] = m
	}
	l.mu.Unlock()
	m.Lock()
	return m.Unlock
}

// handler is the generic per-entity-type orchestrator. The public handlers
// wrap it with entity-specific construction; the contract of every
// operation is identical across entity types.
type handler[T any] struct {
	repo   Repository
	table  string
	encode func(T) Row
	decode func(Row) (T, error)
	check  func(T) error
	id     func(T) int
	setID  func(T, int)
	locks  idLocks
}

// storage translates a Repository failure. ErrNotFound passes through as
// the expected outcome it is; everything else becomes a PersistenceError
// with the cause attached.
func (h *handler[T]) storage(op string, err error) error {
	if errors.Is(err, ErrNotFound) {
		return ErrNotFound
	}
	return &PersistenceError{Op: h.table + " " + op, Err: err}
}

// create persists a validated, not-yet-persisted entity and assigns the
// generated id. Validation failures surface before the Repository is ever
// touched.
func (h *handler[T]) create(e T) (T, error) {
	var zero T
	if h.id(e) != 0 {
		return zero, invalid("id", ErrInvalidID, "entity is already persisted as %d", h.id(e))
	}
	if err := h.check(e); err != nil {
		return zero, err
	}
	id, err := h.repo.Insert(h.table, h.encode(e))
	if err != nil {
		return zero, h.storage("insert", err)
	}
	h.setID(e, id)
	return e, nil
}

func (h *handler[T]) getByID(id int, includeDeleted bool) (T, error) {
	var zero T
	if id <= 0 {
		return zero, invalid("id", ErrInvalidID, "%d is not a persisted id", id)
	}
	row, err := h.repo.FetchByID(h.table, id)
	if err != nil {
		return zero, h.storage("fetch", err)
	}
	if !includeDeleted && row.Bool("deleted") {
		return zero, ErrNotFound
	}
	return h.decode(row)
}

func (h *handler[T]) list(includeDeleted bool) ([]T, error) {
	rows, err := h.repo.FetchAll(h.table, includeDeleted)
	if err != nil {
		return nil, h.storage("fetch all", err)
	}
	out := make([]T, 0, len(rows))
	for _, row := range rows {
		e, err := h.decode(row)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// update re-validates the full entity and issues a full-row update.
func (h *handler[T]) update(e T) error {
	id := h.id(e)
	if id <= 0 {
		return invalid("id", ErrInvalidID, "entity was never persisted")
	}
	if err := h.check(e); err != nil {
		return err
	}
	unlock := h.locks.lock(id)
	defer unlock()
	affected, err := h.repo.Update(h.table, id, h.encode(e))
	if err != nil {
		return h.storage("update", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// softDelete flips the deleted flag. Repeating the operation in the same
// direction is a no-op that succeeds.
func (h *handler[T]) softDelete(id int, deleted bool) error {
	if id <= 0 {
		return invalid("id", ErrInvalidID, "%d is not a persisted id", id)
	}
	unlock := h.locks.lock(id)
	defer unlock()
	row, err := h.repo.FetchByID(h.table, id)
	if err != nil {
		return h.storage("fetch", err)
	}
	if row.Bool("deleted") == deleted {
		return nil
	}
	if err := h.repo.SoftDelete(h.table, id, deleted); err != nil {
		return h.storage("soft delete", err)
	}
	return nil
}

// hardDelete removes the row permanently. There is no undo.
func (h *handler[T]) hardDelete(id int) error {
	if id <= 0 {
		return invalid("id", ErrInvalidID, "%d is not a persisted id", id)
	}
	unlock := h.locks.lock(id)
	defer unlock()
	affected, err := h.repo.HardDelete(h.table, id)
	if err != nil {
		return h.storage("hard delete", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// AuthorHandler coordinates author persistence.
type AuthorHandler struct {
	h handler[*Author]
	v *Validator
}

func NewAuthorHandler(repo Repository, v *Validator) *AuthorHandler {
	return &AuthorHandler{
		v: v,
		h: handler[*Author]{
			repo:   repo,
			table:  TableAuthors,
			encode: (*Author).fields,
			decode: func(r Row) (*Author, error) { return decodeAuthor(v, r) },
			check:  (*Author).validate,
			id:     (*Author).ID,
			setID:  func(a *Author, id int) { a.id = id },
		},
	}
}

func (ah *AuthorHandler) Create(firstName, lastName, biography string) (*Author, error) {
	a, err := NewAuthor(ah.v, firstName, lastName, biography)
	if err != nil {
		return nil, err
	}
	return ah.h.create(a)
}

func (ah *AuthorHandler) GetByID(id int, includeDeleted bool) (*Author, error) {
	return ah.h.getByID(id, includeDeleted)
}

func (ah *AuthorHandler) List(includeDeleted bool) ([]*Author, error) {
	return ah.h.list(includeDeleted)
}

func (ah *AuthorHandler) Update(a *Author) error { return ah.h.update(a) }

func (ah *AuthorHandler) Delete(id int) error { return ah.h.softDelete(id, true) }

func (ah *AuthorHandler) UndoDelete(id int) error { return ah.h.softDelete(id, false) }

func (ah *AuthorHandler) HardDelete(id int) error { return ah.h.hardDelete(id) }

// ClassificationHandler coordinates classification persistence.
type ClassificationHandler struct {
	h handler[*Classification]
	v *Validator
}

func NewClassificationHandler(repo Repository, v *Validator) *ClassificationHandler {
	return &ClassificationHandler{
		v: v,
		h: handler[*Classification]{
			repo:   repo,
			table:  TableClassifications,
			encode: (*Classification).fields,
			decode: func(r Row) (*Classification, error) { return decodeClassification(v, r) },
			check:  (*Classification).validate,
			id:     (*Classification).ID,
			setID:  func(c *Classification, id int) { c.id = id },
		},
	}
}

func (ch *ClassificationHandler) Create(name, description string) (*Classification, error) {
	c, err := NewClassification(ch.v, name, description)
	if err != nil {
		return nil, err
	}
	return ch.h.create(c)
}

func (ch *ClassificationHandler) GetByID(id int, includeDeleted bool) (*Classification, error) {
	return ch.h.getByID(id, includeDeleted)
}

func (ch *ClassificationHandler) List(includeDeleted bool) ([]*Classification, error) {
	return ch.h.list(includeDeleted)
}

func (ch *ClassificationHandler) Update(c *Classification) error { return ch.h.update(c) }

func (ch *ClassificationHandler) Delete(id int) error { return ch.h.softDelete(id, true) }

func (ch *ClassificationHandler) UndoDelete(id int) error { return ch.h.softDelete(id, false) }

func (ch *ClassificationHandler) HardDelete(id int) error { return ch.h.hardDelete(id) }

// ItemHandler coordinates catalog item persistence.
type ItemHandler struct {
	h handler[*Item]
	v *Validator
}

func NewItemHandler(repo Repository, v *Validator) *ItemHandler {
	return &ItemHandler{
		v: v,
		h: handler[*Item]{
			repo:   repo,
			table:  TableItems,
			encode: (*Item).fields,
			decode: func(r Row) (*Item, error) { return decodeItem(v, r) },
			check:  (*Item).validate,
			id:     (*Item).ID,
			setID:  func(it *Item, id int) { it.id = id },
		},
	}
}

func (ih *ItemHandler) CreateLiterature(title string, classificationID, authorID int, isbn string) (*Item, error) {
	it, err := NewLiterature(ih.v, title, classificationID, authorID, isbn)
	if err != nil {
		return nil, err
	}
	return ih.h.create(it)
}

func (ih *ItemHandler) CreateFilm(title string, classificationID, authorID, runtimeMinutes int) (*Item, error) {
	it, err := NewFilm(ih.v, title, classificationID, authorID, runtimeMinutes)
	if err != nil {
		return nil, err
	}
	return ih.h.create(it)
}

func (ih *ItemHandler) GetByID(id int, includeDeleted bool) (*Item, error) {
	return ih.h.getByID(id, includeDeleted)
}

func (ih *ItemHandler) List(includeDeleted bool) ([]*Item, error) {
	return ih.h.list(includeDeleted)
}

// ListAvailable returns the non-deleted items currently available to rent.
func (ih *ItemHandler) ListAvailable() ([]*Item, error) {
	items, err := ih.h.list(false)
	if err != nil {
		return nil, err
	}
	available := items[:0]
	for _, it := range items {
		if it.Available() {
			available = append(available, it)
		}
	}
	return available, nil
}

func (ih *ItemHandler) Update(it *Item) error { return ih.h.update(it) }

func (ih *ItemHandler) Delete(id int) error { return ih.h.softDelete(id, true) }

func (ih *ItemHandler) UndoDelete(id int) error { return ih.h.softDelete(id, false) }

func (ih *ItemHandler) HardDelete(id int) error { return ih.h.hardDelete(id) }
