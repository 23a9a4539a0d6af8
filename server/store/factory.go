package store

import (
	"fmt"
	"strings"
)

const (
	DefaultSQLitePath = "data/reviews.db"
	MemoryDSN         = "memory://"
)

// NewStores creates review, graph and run stores based on the DSN.
// - Empty DSN: SQLite at data/reviews.db
// - postgres:// or postgresql://: PostgreSQL
// - memory://: process-local maps, lost on exit
// - Anything else: SQLite at the specified path
func NewStores(dsn string) (*Stores, error) {
	if dsn == "" {
		return NewSQLiteStores(DefaultSQLitePath)
	}

	if dsn == MemoryDSN {
		return NewMemoryStores(), nil
	}

	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		s, err := NewPostgresStores(dsn)
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		return s, nil
	}

	return NewSQLiteStores(dsn)
}
