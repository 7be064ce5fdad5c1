// Package metastore opens the ciphered manifest database and exposes the
// name-pattern scans the indexer needs. The ciphered-SQLite engine itself
// is treated as an external collaborator per the design: this package's
// job is to hand it the derived key and the fixed pragmas, and expect
// ordinary row results back.
package metastore

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"uma-voxdump/internal/cipher"
	"uma-voxdump/internal/umaerr"
)

// Row is one manifest row: (logical name, content hash, encryption key).
type Row struct {
	Name          string
	Hash          string
	EncryptionKey int64
}

// Store wraps an open connection to the ciphered manifest table `a`.
type Store struct {
	db *sql.DB
}

// Open connects to the ciphered manifest at path, deriving the cipher
// key from baseKey/rawKey and applying the three pragmas the format
// requires: cipher='chacha20', hexkey=<derived>, cipher_use_hmac=OFF.
func Open(path string, baseKey, rawKey []byte) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, umaerr.CipherOpenf(path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, umaerr.CipherOpenf(path, err)
	}

	key := cipher.DeriveMetaKey(baseKey, rawKey)
	pragmas := []string{
		"PRAGMA cipher='chacha20'",
		fmt.Sprintf("PRAGMA hexkey='%s'", key),
		"PRAGMA cipher_use_hmac=OFF",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, umaerr.CipherOpenf(path, err)
		}
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// ScanLike runs `SELECT n, h, e FROM a WHERE n LIKE ?` and returns all
// matching rows. All three of the indexer's primary scans are this shape.
func (s *Store) ScanLike(pattern string) ([]Row, error) {
	rows, err := s.db.Query("SELECT n, h, e FROM a WHERE n LIKE ?", pattern)
	if err != nil {
		return nil, umaerr.CipherOpenf(pattern, err)
	}
	defer rows.Close()
	return collect(rows)
}

// ScanStoryTimelines runs the compound predicate used for the lazy
// storytimeline enumeration: matches '%storytimeline_%' but excludes
// '%resource%'.
func (s *Store) ScanStoryTimelines() ([]Row, error) {
	rows, err := s.db.Query("SELECT n, h, e FROM a WHERE n LIKE ? AND n NOT LIKE ?",
		"%storytimeline_%", "%resource%")
	if err != nil {
		return nil, umaerr.CipherOpenf("storytimeline scan", err)
	}
	defer rows.Close()
	return collect(rows)
}

func collect(rows *sql.Rows) ([]Row, error) {
	var out []Row
	for rows.Next() {
		var r Row
		if err := rows.Scan(&r.Name, &r.Hash, &r.EncryptionKey); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
