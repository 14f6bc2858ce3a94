package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/calvinalkan/bookshelf/internal/book"
)

// migrations[i] upgrades a store from user_version i to i+1.
// Append only; never edit a released step.
var migrations = [][]string{
	{
		`CREATE TABLE books (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL DEFAULT '',
			author TEXT NOT NULL DEFAULT '',
			copyright INTEGER
		) WITHOUT ROWID`,
	},
	{
		"CREATE INDEX idx_books_author_title ON books(author, title)",
	},
}

// schemaVersion is the user_version a fully migrated store carries.
var schemaVersion = len(migrations)

// openSQLite opens the store database and applies the connection pragmas.
func openSQLite(ctx context.Context, path string) (*sql.DB, error) {
	if path == "" {
		return nil, errors.New("open sqlite: path is empty")
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// One connection keeps pragmas and transactions on the same handle.
	db.SetMaxOpenConns(1)

	err = db.PingContext(ctx)
	if err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	err = applyPragmas(ctx, db)
	if err != nil {
		_ = db.Close()

		return nil, err
	}

	return db, nil
}

// sqliteBusyTimeout is the time SQLite waits when the database is locked.
const sqliteBusyTimeout = 10000 // milliseconds

func applyPragmas(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, fmt.Sprintf(`
		PRAGMA busy_timeout = %d;
		PRAGMA journal_mode = WAL;
		PRAGMA synchronous = FULL;
		PRAGMA temp_store = MEMORY;
	`, sqliteBusyTimeout))
	if err != nil {
		return fmt.Errorf("apply pragmas: %w", err)
	}

	return nil
}

func userVersion(ctx context.Context, db *sql.DB) (int, error) {
	var version int

	err := db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("read user_version: %w", err)
	}

	return version, nil
}

// migrate brings the schema up to schemaVersion in a single transaction.
// It returns the version the store had before migrating.
func migrate(ctx context.Context, db *sql.DB) (int, error) {
	from, err := userVersion(ctx, db)
	if err != nil {
		return 0, err
	}

	if from > schemaVersion {
		return from, fmt.Errorf("%w: have %d, support %d", ErrSchemaTooNew, from, schemaVersion)
	}

	if from == schemaVersion {
		return from, nil
	}

	sqlTx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return from, fmt.Errorf("migrate: begin: %w", err)
	}

	defer func() { _ = sqlTx.Rollback() }()

	for v := from; v < schemaVersion; v++ {
		for i, stmt := range migrations[v] {
			_, err = sqlTx.ExecContext(ctx, stmt)
			if err != nil {
				return from, fmt.Errorf("migrate to %d: statement %d: %w", v+1, i+1, err)
			}
		}
	}

	// PRAGMA does not accept bound parameters.
	_, err = sqlTx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", schemaVersion))
	if err != nil {
		return from, fmt.Errorf("migrate: set user_version: %w", err)
	}

	err = sqlTx.Commit()
	if err != nil {
		return from, fmt.Errorf("migrate: commit: %w", err)
	}

	return from, nil
}

// loadBooks reads every stored book.
func loadBooks(ctx context.Context, db *sql.DB) (map[uuid.UUID]book.Book, error) {
	rows, err := db.QueryContext(ctx, "SELECT id, title, author, copyright FROM books")
	if err != nil {
		return nil, fmt.Errorf("load books: %w", err)
	}

	defer func() { _ = rows.Close() }()

	books := make(map[uuid.UUID]book.Book)

	for rows.Next() {
		var (
			rawID     string
			b         book.Book
			copyright sql.NullInt64
		)

		err = rows.Scan(&rawID, &b.Title, &b.Author, &copyright)
		if err != nil {
			return nil, fmt.Errorf("load books: scan: %w", err)
		}

		b.ID, err = uuid.Parse(rawID)
		if err != nil {
			return nil, fmt.Errorf("load books: invalid id %q: %w", rawID, err)
		}

		if copyright.Valid {
			b.Copyright = time.Unix(copyright.Int64, 0).UTC()
		}

		books[b.ID] = b
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("load books: %w", err)
	}

	return books, nil
}

// persist writes upserts and deletes in one SQL transaction.
func persist(ctx context.Context, db *sql.DB, upserts []book.Book, deletes []uuid.UUID) error {
	sqlTx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("persist: begin: %w", err)
	}

	defer func() { _ = sqlTx.Rollback() }()

	if len(deletes) > 0 {
		del, prepErr := sqlTx.PrepareContext(ctx, "DELETE FROM books WHERE id = ?")
		if prepErr != nil {
			return fmt.Errorf("persist: prepare delete: %w", prepErr)
		}

		defer func() { _ = del.Close() }()

		for _, id := range deletes {
			_, err = del.ExecContext(ctx, id.String())
			if err != nil {
				return fmt.Errorf("persist: delete %s: %w", id, err)
			}
		}
	}

	if len(upserts) > 0 {
		put, prepErr := sqlTx.PrepareContext(ctx, `
			INSERT INTO books (id, title, author, copyright) VALUES (?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				title = excluded.title,
				author = excluded.author,
				copyright = excluded.copyright`)
		if prepErr != nil {
			return fmt.Errorf("persist: prepare upsert: %w", prepErr)
		}

		defer func() { _ = put.Close() }()

		for _, b := range upserts {
			var copyright sql.NullInt64
			if !b.Copyright.IsZero() {
				copyright = sql.NullInt64{Int64: b.Copyright.Unix(), Valid: true}
			}

			_, err = put.ExecContext(ctx, b.ID.String(), b.Title, b.Author, copyright)
			if err != nil {
				return fmt.Errorf("persist: upsert %s: %w", b.ID, err)
			}
		}
	}

	err = sqlTx.Commit()
	if err != nil {
		return fmt.Errorf("persist: commit: %w", err)
	}

	return nil
}
