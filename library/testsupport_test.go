package library

import (
	"errors"
	"sort"
	"sync"
)

// fixedMeta is a MetadataProvider test double with hand-picked limits.
type fixedMeta map[string]int

func (f fixedMeta) MaxLength(table, column string) (int, error) {
	return f[table+"."+column], nil
}

func testMeta() fixedMeta {
	return fixedMeta{
		"authors.first_name":          50,
		"authors.last_name":           50,
		"authors.biography":           500,
		"classifications.name":        50,
		"classifications.description": 200,
		"items.title":                 100,
		"items.isbn":                  20,
		"users.username":              40,
	}
}

// memRepo is an in-memory Repository test double. failOn makes the named
// operation fail with a StorageError so error translation can be exercised;
// failTable narrows the failure to one table.
type memRepo struct {
	mu        sync.Mutex
	tables    map[string]map[int]Row
	nextID    map[string]int
	failOn    string
	failTable string
}

func newMemRepo() *memRepo {
	return &memRepo{
		tables: make(map[string]map[int]Row),
		nextID: make(map[string]int),
	}
}

func (m *memRepo) fail(op, table string) error {
	if m.failOn == op && (m.failTable == "" || m.failTable == table) {
		return &StorageError{Op: op, Table: table, Err: errors.New("simulated storage failure")}
	}
	return nil
}

func copyRow(r Row) Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

func (m *memRepo) Insert(table string, fields Row) (int, error) {
	if err := m.fail("insert", table); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tables[table] == nil {
		m.tables[table] = make(map[int]Row)
	}
	m.nextID[table]++
	id := m.nextID[table]
	row := copyRow(fields)
	row["id"] = id
	m.tables[table][id] = row
	return id, nil
}

func (m *memRepo) FetchByID(table string, id int) (Row, error) {
	if err := m.fail("fetch", table); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.tables[table][id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyRow(row), nil
}

func (m *memRepo) FetchAll(table string, includeDeleted bool) ([]Row, error) {
	if err := m.fail("fetch all", table); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]int, 0, len(m.tables[table]))
	for id := range m.tables[table] {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	var out []Row
	for _, id := range ids {
		row := m.tables[table][id]
		if !includeDeleted && row.Bool("deleted") {
			continue
		}
		out = append(out, copyRow(row))
	}
	return out, nil
}

func (m *memRepo) Update(table string, id int, fields Row) (int, error) {
	if err := m.fail("update", table); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.tables[table][id]
	if !ok {
		return 0, nil
	}
	for k, v := range fields {
		row[k] = v
	}
	return 1, nil
}

func (m *memRepo) SoftDelete(table string, id int, deleted bool) error {
	if err := m.fail("soft delete", table); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.tables[table][id]
	if !ok {
		return ErrNotFound
	}
	row["deleted"] = deleted
	return nil
}

func (m *memRepo) HardDelete(table string, id int) (int, error) {
	if err := m.fail("hard delete", table); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tables[table][id]; !ok {
		return 0, nil
	}
	delete(m.tables[table], id)
	return 1, nil
}

// testEnv wires every handler over a memRepo, the way main wires them over
// the SQLite store.
type testEnv struct {
	repo            *memRepo
	v               *Validator
	cfg             Config
	authors         *AuthorHandler
	classifications *ClassificationHandler
	items           *ItemHandler
	users           *UserHandler
	rentals         *RentalHandler
}

func newTestEnv() *testEnv {
	repo := newMemRepo()
	v := NewValidator(testMeta())
	cfg := DefaultConfig()
	users := NewUserHandler(repo, v, NewUsernameCache())
	items := NewItemHandler(repo, v)
	return &testEnv{
		repo:            repo,
		v:               v,
		cfg:             cfg,
		authors:         NewAuthorHandler(repo, v),
		classifications: NewClassificationHandler(repo, v),
		items:           items,
		users:           users,
		rentals:         NewRentalHandler(repo, v, cfg, users, items),
	}
}

// seedRentable creates a user and an available item ready to rent.
func (e *testEnv) seedRentable() (*User, *Item, error) {
	u, err := e.users.Create("alice", "secret", UserPatron, 3)
	if err != nil {
		return nil, nil, err
	}
	a, err := e.authors.Create("George", "Orwell", "")
	if err != nil {
		return nil, nil, err
	}
	c, err := e.classifications.Create("Fiction", "Novels")
	if err != nil {
		return nil, nil, err
	}
	it, err := e.items.CreateLiterature("1984", c.ID(), a.ID(), "978-0451524935")
	if err != nil {
		return nil, nil, err
	}
	return u, it, nil
}
