package sqlitestore

import (
	"fmt"
	"strconv"
	"strings"
)

// Schema introspection backing library.MetadataProvider. Length limits are
// parsed from the declared column types (VARCHAR(n)) reported by
// PRAGMA table_info, so the validator always sees what the schema says.

type columnMeta struct {
	maxLen int
}

// MaxLength returns the declared maximum length of a text column, or 0 for
// columns without a length bound. Unknown tables or columns are storage
// errors.
func (s *Store) MaxLength(table, column string) (int, error) {
	if err := s.checkTable("metadata", table); err != nil {
		return 0, err
	}
	cols, err := s.tableColumns(table)
	if err != nil {
		return 0, err
	}
	meta, ok := cols[column]
	if !ok {
		return 0, storageErr("metadata", table, fmt.Errorf("unknown column %q", column))
	}
	return meta.maxLen, nil
}

func (s *Store) tableColumns(table string) (map[string]columnMeta, error) {
	s.metaMu.Lock()
	defer s.metaMu.Unlock()
	if s.columns == nil {
		s.columns = make(map[string]map[string]columnMeta)
	}
	if cols, ok := s.columns[table]; ok {
		return cols, nil
	}

	rows, err := s.db.Queryx(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return nil, storageErr("metadata", table, err)
	}
	defer rows.Close()

	cols := make(map[string]columnMeta)
	for rows.Next() {
		var (
			cid       int
			name      string
			declType  string
			notNull   int
			dfltValue any
			pk        int
		)
		if err := rows.Scan(&cid, &name, &declType, &notNull, &dfltValue, &pk); err != nil {
			return nil, storageErr("metadata", table, err)
		}
		cols[name] = columnMeta{maxLen: parseDeclaredLength(declType)}
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("metadata", table, err)
	}
	s.columns[table] = cols
	return cols, nil
}

// parseDeclaredLength extracts n from declared types like VARCHAR(40).
// Types without a parenthesized length yield 0.
func parseDeclaredLength(declType string) int {
	open := strings.IndexByte(declType, '(')
	end := strings.IndexByte(declType, ')')
	if open < 0 || end < open {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(declType[open+1 : end]))
	if err != nil {
		return 0
	}
	return n
}
