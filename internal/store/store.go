package store

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
	"github.com/natefinch/atomic"

	"github.com/calvinalkan/bookshelf/internal/book"
)

// DefaultLockTimeout is used when [Options.LockTimeout] is zero.
const DefaultLockTimeout = 5 * time.Second

// Options configures [Open].
type Options struct {
	// Path is the SQLite store file. Required.
	Path string

	// SeedPath names a default store snapshot copied to Path when Path does
	// not exist yet. A missing seed is not an error; the store starts empty.
	SeedPath string

	// LockTimeout bounds how long Open waits for another process to release
	// the store. Negative tries once.
	LockTimeout time.Duration
}

// Store is the durable Book collection.
//
// The committed snapshot lives in memory and mirrors the SQLite file;
// edits happen in [Tx] scopes and reach the file only when the root scope
// ([Store.Main]) commits.
//
// # Concurrency
//
// A Store is owned by one goroutine. Cross-process access is excluded with
// an flock on "<Path>.lock" for the lifetime of the Store.
type Store struct {
	path   string
	db     *sql.DB
	lock   *fileLock
	base   map[uuid.UUID]book.Book
	main   *Tx
	seeded bool
	closed bool
}

// Open opens or creates the store at opts.Path.
//
// On open:
//   - seeds Path from SeedPath if Path is missing
//   - migrates the schema to the current version
//   - loads the committed books into memory
func Open(ctx context.Context, opts Options) (*Store, error) {
	if ctx == nil {
		return nil, errors.New("open store: context is nil")
	}

	if opts.Path == "" {
		return nil, errors.New("open store: path is empty")
	}

	path := filepath.Clean(opts.Path)

	err := os.MkdirAll(filepath.Dir(path), 0o750)
	if err != nil {
		return nil, fmt.Errorf("open store: create directory: %w", err)
	}

	timeout := opts.LockTimeout
	if timeout == 0 {
		timeout = DefaultLockTimeout
	}

	lock, err := acquireLock(path+".lock", timeout)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	seeded, err := seedIfMissing(path, opts.SeedPath)
	if err != nil {
		_ = lock.release()

		return nil, fmt.Errorf("open store: %w", err)
	}

	db, err := openSQLite(ctx, path)
	if err != nil {
		_ = lock.release()

		return nil, fmt.Errorf("open store: %w", err)
	}

	_, err = migrate(ctx, db)
	if err != nil {
		_ = db.Close()
		_ = lock.release()

		return nil, fmt.Errorf("open store: %w", err)
	}

	books, err := loadBooks(ctx, db)
	if err != nil {
		_ = db.Close()
		_ = lock.release()

		return nil, fmt.Errorf("open store: %w", err)
	}

	s := &Store{
		path:   path,
		db:     db,
		lock:   lock,
		base:   books,
		seeded: seeded,
	}
	s.main = newTx(s, nil)

	return s, nil
}

// seedIfMissing copies seed to path when path does not exist.
// Returns whether a copy happened. A missing seed file is tolerated.
func seedIfMissing(path, seed string) (bool, error) {
	if seed == "" {
		return false, nil
	}

	_, err := os.Stat(path)
	if err == nil {
		return false, nil
	}

	if !os.IsNotExist(err) {
		return false, fmt.Errorf("stat store: %w", err)
	}

	data, err := os.ReadFile(seed)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}

		return false, fmt.Errorf("read seed: %w", err)
	}

	err = atomic.WriteFile(path, bytes.NewReader(data))
	if err != nil {
		return false, fmt.Errorf("copy seed: %w", err)
	}

	err = os.Chmod(path, 0o600)
	if err != nil {
		return false, fmt.Errorf("chmod store: %w", err)
	}

	return true, nil
}

// Path returns the store file path.
func (s *Store) Path() string { return s.path }

// Seeded reports whether Open copied the seed snapshot into place.
func (s *Store) Seeded() bool { return s.seeded }

// Main returns the root transaction. Its commits write to disk.
func (s *Store) Main() *Tx { return s.main }

// Count returns the number of committed books.
func (s *Store) Count() int { return len(s.base) }

// Close releases the database and the process lock. Uncommitted changes
// are discarded. Close is idempotent.
func (s *Store) Close() error {
	if s == nil || s.closed {
		return nil
	}

	s.closed = true

	var errs []error

	if s.db != nil {
		err := s.db.Close()
		if err != nil {
			errs = append(errs, fmt.Errorf("close sqlite: %w", err))
		}
	}

	err := s.lock.release()
	if err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// write persists a root commit and folds it into the committed snapshot.
func (s *Store) write(ctx context.Context, upserts []book.Book, deletes []uuid.UUID) error {
	if s.closed {
		return ErrClosed
	}

	err := persist(ctx, s.db, upserts, deletes)
	if err != nil {
		return err
	}

	for _, id := range deletes {
		delete(s.base, id)
	}

	for _, b := range upserts {
		s.base[b.ID] = b
	}

	return nil
}
