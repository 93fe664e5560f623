/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package asset

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	applog "novelmind/internal/log"

	// Pure-Go SQLite driver (CGO-free).
	_ "modernc.org/sqlite"
)

const (
	// IndexFileName lives next to the asset db under the hidden dir.
	IndexFileName = "index.sqlite"

	// indexSchemaVersion tracks the local SQLite schema. Bump on breaking
	// changes and add a migration.
	indexSchemaVersion = 1
)

// IndexPath returns the per-project index database path.
func IndexPath(projectRoot string) string {
	return filepath.Join(projectRoot, DatabaseDirName, IndexFileName)
}

// Index mirrors asset metadata into a searchable per-project SQLite
// database. The JSON store stays authoritative; the index is rebuilt
// from it whenever schemas drift.
type Index struct {
	db  *sql.DB
	log *slog.Logger
}

// OpenIndex ensures the index exists under the project's hidden dir,
// opens it in WAL mode and brings the schema up to date.
func OpenIndex(projectRoot string) (*Index, error) {
	l := applog.WithOperation(applog.WithComponent("assetdb"), "index_open").With(
		slog.String("root", projectRoot),
	)
	if strings.TrimSpace(projectRoot) == "" {
		return nil, errors.New("project root is required")
	}
	if err := os.MkdirAll(filepath.Join(projectRoot, DatabaseDirName), 0o755); err != nil {
		return nil, fmt.Errorf("create index dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=busy_timeout(5000)",
		filepath.ToSlash(IndexPath(projectRoot)))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if err := ensureIndexSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	l.Info("asset index ready", slog.String("path", IndexPath(projectRoot)))
	return &Index{db: db, log: applog.WithComponent("assetindex")}, nil
}

func ensureIndexSchema(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS version (
			id     INTEGER PRIMARY KEY CHECK(id=1),
			schema INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS assets (
			id            TEXT PRIMARY KEY,
			name          TEXT NOT NULL,
			type          TEXT NOT NULL,
			source_path   TEXT NOT NULL,
			imported_path TEXT NOT NULL,
			checksum      TEXT NOT NULL,
			size          INTEGER NOT NULL,
			imported_at   INTEGER NOT NULL,
			tags          TEXT NOT NULL DEFAULT ''
		);`,
		`CREATE INDEX IF NOT EXISTS idx_assets_name ON assets(name);`,
		`CREATE INDEX IF NOT EXISTS idx_assets_type ON assets(type);`,
	}
	for _, stmt := range ddl {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure index schema: %w", err)
		}
	}
	var schema int
	err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&schema)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := db.ExecContext(ctx,
			`INSERT INTO version(id, schema) VALUES (1, ?)`, indexSchemaVersion); err != nil {
			return fmt.Errorf("write schema version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read schema version: %w", err)
	case schema > indexSchemaVersion:
		return fmt.Errorf("index schema %d is newer than supported %d", schema, indexSchemaVersion)
	case schema < indexSchemaVersion:
		// Rebuild rather than migrate: the JSON store is authoritative.
		if _, err := db.ExecContext(ctx, `DELETE FROM assets`); err != nil {
			return fmt.Errorf("reset index: %w", err)
		}
		if _, err := db.ExecContext(ctx,
			`UPDATE version SET schema=? WHERE id=1`, indexSchemaVersion); err != nil {
			return fmt.Errorf("update schema version: %w", err)
		}
	}
	return nil
}

// Close releases the database handle.
func (x *Index) Close() error {
	if x == nil || x.db == nil {
		return nil
	}
	return x.db.Close()
}

// Upsert mirrors one asset's queryable fields.
func (x *Index) Upsert(m *Metadata) error {
	_, err := x.db.Exec(`
		INSERT INTO assets(id, name, type, source_path, imported_path, checksum, size, imported_at, tags)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name=excluded.name, type=excluded.type,
			source_path=excluded.source_path, imported_path=excluded.imported_path,
			checksum=excluded.checksum, size=excluded.size,
			imported_at=excluded.imported_at, tags=excluded.tags`,
		m.ID, m.Name, m.Type.String(), m.SourcePath, m.ImportedPath,
		m.Checksum, m.Size, m.ImportedAt.UnixMilli(), strings.Join(m.Tags, ","))
	if err != nil {
		return fmt.Errorf("index upsert %s: %w", m.ID, err)
	}
	return nil
}

// Delete removes one asset from the index.
func (x *Index) Delete(id string) error {
	if _, err := x.db.Exec(`DELETE FROM assets WHERE id=?`, id); err != nil {
		return fmt.Errorf("index delete %s: %w", id, err)
	}
	return nil
}

// SearchHit is one row of a Search result.
type SearchHit struct {
	ID   string
	Name string
	Type string
}

// Search finds assets whose name or tags contain the query, optionally
// narrowed to one type. Matching is case-insensitive substring.
func (x *Index) Search(query, typ string) ([]SearchHit, error) {
	q := "%" + strings.ToLower(strings.TrimSpace(query)) + "%"
	var rows *sql.Rows
	var err error
	if typ != "" {
		rows, err = x.db.Query(`
			SELECT id, name, type FROM assets
			WHERE type=? AND (LOWER(name) LIKE ? OR LOWER(tags) LIKE ?)
			ORDER BY name, id`, typ, q, q)
	} else {
		rows, err = x.db.Query(`
			SELECT id, name, type FROM assets
			WHERE LOWER(name) LIKE ? OR LOWER(tags) LIKE ?
			ORDER BY name, id`, q, q)
	}
	if err != nil {
		return nil, fmt.Errorf("index search: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var hits []SearchHit
	for rows.Next() {
		var h SearchHit
		if err := rows.Scan(&h.ID, &h.Name, &h.Type); err != nil {
			return nil, fmt.Errorf("scan search row: %w", err)
		}
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

// Count returns the number of indexed assets.
func (x *Index) Count() (int, error) {
	var n int
	if err := x.db.QueryRow(`SELECT COUNT(*) FROM assets`).Scan(&n); err != nil {
		return 0, fmt.Errorf("index count: %w", err)
	}
	return n, nil
}
