package adapters

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	debversion "github.com/knqyf263/go-deb-version"
	_ "modernc.org/sqlite"

	"compkit/internal/types"
)

const storeSchema = `
CREATE TABLE IF NOT EXISTS components (
	scope      TEXT NOT NULL DEFAULT '',
	name       TEXT NOT NULL,
	version    TEXT NOT NULL,
	document   TEXT NOT NULL,
	stored_at  TEXT NOT NULL,
	PRIMARY KEY (scope, name, version)
);
`

// SQLiteStoreAdapter persists serialized component documents in a
// single-file SQLite database. One writer connection, WAL mode.
type SQLiteStoreAdapter struct {
	db *sql.DB
}

// NewSQLiteStoreAdapter opens (or creates) the store database.
func NewSQLiteStoreAdapter(path string) (*SQLiteStoreAdapter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create store directory").
			WithCause(err)
	}
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to open component store").
			WithCause(err)
	}
	// WAL still allows only one writer; a single connection keeps the
	// write path serialized without SQLITE_BUSY churn.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(storeSchema); err != nil {
		_ = db.Close()
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to initialize component store schema").
			WithCause(err)
	}
	return &SQLiteStoreAdapter{db: db}, nil
}

func (a *SQLiteStoreAdapter) Close() error {
	return a.db.Close()
}

func (a *SQLiteStoreAdapter) LoadComponent(ctx context.Context, id types.ComponentID) (*types.ComponentDocument, error) {
	version := id.Version
	if version == "" {
		versions, err := a.ListVersions(ctx, id)
		if err != nil {
			return nil, err
		}
		if len(versions) == 0 {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeNotFound).
				WithMsg("component " + id.String() + " is not in the store")
		}
		version = versions[len(versions)-1]
	}
	row := a.db.QueryRowContext(ctx,
		`SELECT document FROM components WHERE scope = ? AND name = ? AND version = ?`,
		id.Scope, id.Name, version)
	var raw string
	if err := row.Scan(&raw); err == sql.ErrNoRows {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("component " + id.String() + " is not in the store")
	} else if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to load component " + id.String()).
			WithCause(err)
	}
	var doc types.ComponentDocument
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("stored document for " + id.String() + " is corrupt").
			WithCause(err)
	}
	return &doc, nil
}

func (a *SQLiteStoreAdapter) PutComponent(ctx context.Context, doc types.ComponentDocument) error {
	if doc.Name == "" || doc.Version == "" {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("component document needs a name and a version to be stored")
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to marshal component document").
			WithCause(err)
	}
	_, err = a.db.ExecContext(ctx,
		`INSERT INTO components (scope, name, version, document, stored_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (scope, name, version) DO UPDATE SET document = excluded.document, stored_at = excluded.stored_at`,
		doc.Scope, doc.Name, doc.Version, string(raw), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to store component " + doc.Name + "@" + doc.Version).
			WithCause(err)
	}
	return nil
}

func (a *SQLiteStoreAdapter) ModifySpecsResults(ctx context.Context, id types.ComponentID, results []types.SpecResult) error {
	return a.mutateDocument(ctx, id, func(doc *types.ComponentDocument) {
		doc.SpecsResults = results
	})
}

func (a *SQLiteStoreAdapter) UpdateDist(ctx context.Context, id types.ComponentID, dists []types.DistDocument) error {
	return a.mutateDocument(ctx, id, func(doc *types.ComponentDocument) {
		doc.Dists = &types.DistsField{Dists: dists}
	})
}

func (a *SQLiteStoreAdapter) mutateDocument(ctx context.Context, id types.ComponentID, mutate func(*types.ComponentDocument)) error {
	doc, err := a.LoadComponent(ctx, id)
	if err != nil {
		return err
	}
	mutate(doc)
	return a.PutComponent(ctx, *doc)
}

// ListVersions returns the stored versions for an identity, oldest
// first. Debian version ordering tolerates the epoch and tilde forms
// component versions may carry; unparsable versions sort
// lexicographically at the front.
func (a *SQLiteStoreAdapter) ListVersions(ctx context.Context, id types.ComponentID) ([]string, error) {
	rows, err := a.db.QueryContext(ctx,
		`SELECT version FROM components WHERE scope = ? AND name = ?`,
		id.Scope, id.Name)
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to list versions for " + id.Name).
			WithCause(err)
	}
	defer rows.Close()
	var versions []string
	for rows.Next() {
		var version string
		if err := rows.Scan(&version); err != nil {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("failed to scan version row").
				WithCause(err)
		}
		versions = append(versions, version)
	}
	if err := rows.Err(); err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to iterate version rows").
			WithCause(err)
	}
	sortVersions(versions)
	return versions, nil
}

func sortVersions(versions []string) {
	sort.SliceStable(versions, func(i, j int) bool {
		left, errLeft := debversion.NewVersion(versions[i])
		right, errRight := debversion.NewVersion(versions[j])
		if errLeft != nil || errRight != nil {
			return versions[i] < versions[j]
		}
		return left.LessThan(right)
	})
}
