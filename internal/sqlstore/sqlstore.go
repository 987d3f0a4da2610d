// Package sqlstore opens the single on-disk SQLite database shared by the
// Structured Query Index (internal/sqi) and the metadata store
// (internal/metastore), per spec §4.8's "one transactional database".
package sqlstore

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/sourcerack/sourcerack/internal/metastore"
	"github.com/sourcerack/sourcerack/internal/sqi"
)

// Open opens (creating if necessary) the database at path, applies both
// packages' schemas, and returns the handle along with Store wrappers for
// each. Schema application is idempotent and safe on an existing database.
func Open(path string) (*sql.DB, *sqi.Store, *metastore.Store, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open database: %w", err)
	}
	// SQLite allows only one writer at a time; indexing and GC already
	// serialize their own writes, so a single connection avoids
	// SQLITE_BUSY without needing a connection-pool-wide mutex.
	db.SetMaxOpenConns(1)

	if err := metastore.CreateSchema(db); err != nil {
		db.Close()
		return nil, nil, nil, fmt.Errorf("apply metastore schema: %w", err)
	}
	if err := sqi.CreateSchema(db); err != nil {
		db.Close()
		return nil, nil, nil, fmt.Errorf("apply sqi schema: %w", err)
	}

	return db, sqi.Open(db), metastore.Open(db), nil
}
