package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

const memoriesSchema = `CREATE TABLE IF NOT EXISTS memories (
	position INTEGER NOT NULL,
	memory_id TEXT PRIMARY KEY,
	title TEXT NOT NULL DEFAULT '',
	branch TEXT NOT NULL DEFAULT '',
	content TEXT NOT NULL DEFAULT '',
	salience REAL NOT NULL,
	memory_type TEXT NOT NULL,
	keywords TEXT NOT NULL DEFAULT '[]',
	provenance TEXT NOT NULL DEFAULT ''
);`

// sqliteDSN builds a file: URI for path so that '?' and '#' in file names are
// not read as connection parameters.
func sqliteDSN(path, mode string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(abs), RawQuery: "mode=" + mode}
	return u.String(), nil
}

// LoadSQLite reads the memories table of a SQLite seed in position order.
// Keywords are stored as a JSON array of strings.
func LoadSQLite(path string) (Dataset, error) {
	if _, err := os.Stat(path); err != nil {
		return Dataset{}, fmt.Errorf("open sqlite seed: %w", err)
	}

	dsn, err := sqliteDSN(path, "ro")
	if err != nil {
		return Dataset{}, fmt.Errorf("resolve sqlite seed path: %w", err)
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return Dataset{}, fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	rows, err := db.Query(`SELECT memory_id, title, branch, content, salience, memory_type, keywords, provenance
		FROM memories ORDER BY position ASC`)
	if err != nil {
		return Dataset{}, fmt.Errorf("query memories: %w", err)
	}
	defer rows.Close()

	var ds Dataset
	for rows.Next() {
		var (
			r        seedRecord
			keywords string
		)
		if err := rows.Scan(&r.MemoryID, &r.Title, &r.Branch, &r.Content, &r.Salience, &r.MemoryType, &keywords, &r.Provenance); err != nil {
			return Dataset{}, fmt.Errorf("scan memory row: %w", err)
		}
		if keywords != "" {
			if err := json.Unmarshal([]byte(keywords), &r.Keywords); err != nil {
				return Dataset{}, fmt.Errorf("record %s: decode keywords: %w", r.MemoryID, err)
			}
		}
		ds.Records = append(ds.Records, r.toRecord())
	}
	if err := rows.Err(); err != nil {
		return Dataset{}, fmt.Errorf("iterate memories: %w", err)
	}
	return ds, nil
}

// WriteSQLite creates (or replaces the rows of) a SQLite seed holding ds.
func WriteSQLite(path string, ds Dataset) error {
	dsn, err := sqliteDSN(path, "rwc")
	if err != nil {
		return fmt.Errorf("resolve sqlite seed path: %w", err)
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if _, err := db.Exec(memoriesSchema); err != nil {
		return fmt.Errorf("failed to init schema: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM memories`); err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT INTO memories
		(position, memory_id, title, branch, content, salience, memory_type, keywords, provenance)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, r := range ds.Records {
		kw := r.Keywords
		if kw == nil {
			kw = []string{}
		}
		kwJSON, err := json.Marshal(kw)
		if err != nil {
			return fmt.Errorf("record %s: encode keywords: %w", r.MemoryID, err)
		}
		if _, err := stmt.Exec(i, r.MemoryID, r.Title, r.Branch, r.Content, r.Salience, string(r.MemoryType), string(kwJSON), r.Provenance); err != nil {
			return fmt.Errorf("insert %s: %w", r.MemoryID, err)
		}
	}
	return tx.Commit()
}
