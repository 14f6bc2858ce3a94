package store

import "errors"

var (
	// ErrClosed indicates an operation on a closed store.
	ErrClosed = errors.New("store closed")

	// ErrLocked reports that another process holds the store lock.
	ErrLocked = errors.New("store is locked by another process")

	// ErrNotFound reports a book that is not visible in the transaction.
	ErrNotFound = errors.New("book not found")

	// ErrAmbiguous reports a short ID prefix that matches several books.
	ErrAmbiguous = errors.New("ambiguous book reference")

	// ErrExists reports an insert for an ID that is already visible.
	ErrExists = errors.New("book already exists")

	// ErrSchemaTooNew reports a store written by a newer schema than this build knows.
	ErrSchemaTooNew = errors.New("store schema is newer than supported")
)
