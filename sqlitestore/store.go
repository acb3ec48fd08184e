package sqlitestore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"librarydesk/library"
)

// Store implements library.Repository and library.MetadataProvider over a
// SQLite database. Rows cross the boundary as generic field maps; the
// column length limits the validator consults come straight from the
// declared schema, so the two can't drift apart.
type Store struct {
	db *sqlx.DB

	metaMu  sync.Mutex
	columns map[string]map[string]columnMeta
}

// Open opens (or creates) the SQLite database at dbPath and applies schema
// migrations.
func Open(dbPath string) (*Store, error) {
	// Ensure directory exists so first-run succeeds.
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	// Enable busy_timeout and foreign keys.
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=1", dbPath)
	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := applyMigrations(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// ---------------------------------------------------------------------------
// Schema migration
// ---------------------------------------------------------------------------

const schemaVersion = 1

func applyMigrations(db *sqlx.DB) error {
	// WAL improves write concurrency.
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return fmt.Errorf("enable WAL: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT);`); err != nil {
		return err
	}

	var current int
	_ = db.QueryRow(`SELECT value FROM meta WHERE key='schema_version';`).Scan(&current)
	if current >= schemaVersion {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS authors (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            first_name VARCHAR(50) NOT NULL,
            last_name VARCHAR(50) NOT NULL,
            biography VARCHAR(500) NOT NULL DEFAULT '',
            deleted BOOLEAN NOT NULL DEFAULT 0
        );`,
		`CREATE TABLE IF NOT EXISTS classifications (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            name VARCHAR(50) NOT NULL,
            description VARCHAR(200) NOT NULL,
            deleted BOOLEAN NOT NULL DEFAULT 0
        );`,
		`CREATE TABLE IF NOT EXISTS items (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            kind VARCHAR(20) NOT NULL,
            title VARCHAR(100) NOT NULL,
            classification_id INTEGER NOT NULL REFERENCES classifications(id),
            author_id INTEGER NOT NULL REFERENCES authors(id),
            available BOOLEAN NOT NULL DEFAULT 1,
            isbn VARCHAR(20) NOT NULL DEFAULT '',
            runtime_minutes INTEGER NOT NULL DEFAULT 0,
            deleted BOOLEAN NOT NULL DEFAULT 0
        );`,
		`CREATE TABLE IF NOT EXISTS users (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            username VARCHAR(40) NOT NULL,
            password_hash VARCHAR(100) NOT NULL,
            user_type VARCHAR(10) NOT NULL,
            allowed_rentals INTEGER NOT NULL DEFAULT 0,
            current_rentals INTEGER NOT NULL DEFAULT 0,
            late_fee REAL NOT NULL DEFAULT 0,
            deleted BOOLEAN NOT NULL DEFAULT 0
        );`,
		`CREATE TABLE IF NOT EXISTS rentals (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            user_id INTEGER NOT NULL REFERENCES users(id),
            item_id INTEGER NOT NULL REFERENCES items(id),
            rental_date VARCHAR(40) NOT NULL,
            due_date VARCHAR(40) NOT NULL,
            return_date VARCHAR(40) NOT NULL DEFAULT '',
            username VARCHAR(40) NOT NULL,
            item_title VARCHAR(100) NOT NULL,
            late_fee REAL NOT NULL DEFAULT 0,
            deleted BOOLEAN NOT NULL DEFAULT 0
        );`,
		`INSERT INTO meta(key,value) VALUES('schema_version',?)
            ON CONFLICT(key) DO UPDATE SET value=excluded.value;`,
	}

	for _, stmt := range stmts {
		var args []any
		if strings.Contains(stmt, "?") {
			args = append(args, schemaVersion)
		}
		if _, err := tx.Exec(stmt, args...); err != nil {
			return fmt.Errorf("apply migration: %w", err)
		}
	}

	return tx.Commit()
}

// knownTables guards against table names reaching SQL from anywhere but the
// core's constants.
var knownTables = map[string]struct{}{
	library.TableAuthors:         {},
	library.TableClassifications: {},
	library.TableItems:           {},
	library.TableUsers:           {},
	library.TableRentals:         {},
}

func (s *Store) checkTable(op, table string) error {
	if _, ok := knownTables[table]; !ok {
		return &library.StorageError{Op: op, Table: table, Err: errors.New("unknown table")}
	}
	return nil
}

func storageErr(op, table string, err error) error {
	return &library.StorageError{Op: op, Table: table, Err: err}
}

// sortedColumns gives a deterministic column order for generated SQL.
func sortedColumns(fields library.Row) []string {
	cols := make([]string, 0, len(fields))
	for col := range fields {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	return cols
}

// ---------------------------------------------------------------------------
// library.Repository
// ---------------------------------------------------------------------------

func (s *Store) Insert(table string, fields library.Row) (int, error) {
	if err := s.checkTable("insert", table); err != nil {
		return 0, err
	}
	cols := sortedColumns(fields)
	args := make([]any, 0, len(cols))
	for _, col := range cols {
		args = append(args, fields[col])
	}
	query := fmt.Sprintf("INSERT INTO %s(%s) VALUES(%s)",
		table, strings.Join(cols, ","), strings.TrimSuffix(strings.Repeat("?,", len(cols)), ","))
	res, err := s.db.Exec(query, args...)
	if err != nil {
		return 0, storageErr("insert", table, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, storageErr("insert", table, err)
	}
	return int(id), nil
}

func (s *Store) FetchByID(table string, id int) (library.Row, error) {
	if err := s.checkTable("fetch", table); err != nil {
		return nil, err
	}
	rows, err := s.db.Queryx(fmt.Sprintf("SELECT * FROM %s WHERE id=?", table), id)
	if err != nil {
		return nil, storageErr("fetch", table, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, storageErr("fetch", table, err)
		}
		return nil, library.ErrNotFound
	}
	return scanRow(table, rows)
}

func (s *Store) FetchAll(table string, includeDeleted bool) ([]library.Row, error) {
	if err := s.checkTable("fetch all", table); err != nil {
		return nil, err
	}
	query := fmt.Sprintf("SELECT * FROM %s ORDER BY id", table)
	if !includeDeleted {
		query = fmt.Sprintf("SELECT * FROM %s WHERE deleted=0 ORDER BY id", table)
	}
	rows, err := s.db.Queryx(query)
	if err != nil {
		return nil, storageErr("fetch all", table, err)
	}
	defer rows.Close()

	var out []library.Row
	for rows.Next() {
		row, err := scanRow(table, rows)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("fetch all", table, err)
	}
	return out, nil
}

func (s *Store) Update(table string, id int, fields library.Row) (int, error) {
	if err := s.checkTable("update", table); err != nil {
		return 0, err
	}
	cols := sortedColumns(fields)
	sets := make([]string, 0, len(cols))
	args := make([]any, 0, len(cols)+1)
	for _, col := range cols {
		sets = append(sets, col+"=?")
		args = append(args, fields[col])
	}
	args = append(args, id)
	query := fmt.Sprintf("UPDATE %s SET %s WHERE id=?", table, strings.Join(sets, ","))
	res, err := s.db.Exec(query, args...)
	if err != nil {
		return 0, storageErr("update", table, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, storageErr("update", table, err)
	}
	return int(affected), nil
}

func (s *Store) SoftDelete(table string, id int, deleted bool) error {
	if err := s.checkTable("soft delete", table); err != nil {
		return err
	}
	if _, err := s.db.Exec(fmt.Sprintf("UPDATE %s SET deleted=? WHERE id=?", table), deleted, id); err != nil {
		return storageErr("soft delete", table, err)
	}
	return nil
}

func (s *Store) HardDelete(table string, id int) (int, error) {
	if err := s.checkTable("hard delete", table); err != nil {
		return 0, err
	}
	res, err := s.db.Exec(fmt.Sprintf("DELETE FROM %s WHERE id=?", table), id)
	if err != nil {
		return 0, storageErr("hard delete", table, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, storageErr("hard delete", table, err)
	}
	return int(affected), nil
}

// scanRow turns the current sqlx row into a field map, normalizing []byte
// columns to strings.
func scanRow(table string, rows *sqlx.Rows) (library.Row, error) {
	raw := make(map[string]any)
	if err := rows.MapScan(raw); err != nil {
		return nil, storageErr("scan", table, err)
	}
	row := make(library.Row, len(raw))
	for col, val := range raw {
		if b, ok := val.([]byte); ok {
			row[col] = string(b)
			continue
		}
		row[col] = val
	}
	return row, nil
}

var _ library.Repository = (*Store)(nil)
var _ library.MetadataProvider = (*Store)(nil)
