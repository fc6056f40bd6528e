package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	json "github.com/goccy/go-json"

	"github.com/listenupapp/bookshelf-server/internal/domain"
	"github.com/listenupapp/bookshelf-server/internal/id"
)

// GetBook returns the record stored under id.
func (s *Store) GetBook(ctx context.Context, bookID string) (*domain.Book, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var book *domain.Book
	err := s.db.View(func(txn *badger.Txn) error {
		fields, err := getRaw(txn, bookKey(bookID))
		if err != nil {
			return err
		}
		book = domain.BookFromFields(bookID, fields)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return book, nil
}

// GetBookByFilename does a direct key lookup: first the filename index, then a
// record keyed by the filename itself. It never scans.
func (s *Store) GetBookByFilename(ctx context.Context, filename string) (*domain.Book, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var book *domain.Book
	err := s.db.View(func(txn *badger.Txn) error {
		key := filename
		if bookID, err := getString(txn, filenameIndexKey(filename)); err == nil {
			key = bookID
		} else if !errors.Is(err, ErrNotFound) {
			return err
		}

		fields, err := getRaw(txn, bookKey(key))
		if err != nil {
			return err
		}
		book = domain.BookFromFields(key, fields)
		if book.Filename == "" {
			book.Filename = filename
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return book, nil
}

// PutBook writes book, assigning an ID and CreatedAt when missing, and keeps
// the filename index pointing at it.
func (s *Store) PutBook(ctx context.Context, book *domain.Book) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := prepare(book); err != nil {
		return err
	}

	data, err := json.Marshal(book)
	if err != nil {
		return fmt.Errorf("marshal book: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return writeBook(txn, book, data)
	})
}

// CreateBookIfAbsent stores book unless a record already exists for its
// filename. It reports whether a record was written.
func (s *Store) CreateBookIfAbsent(ctx context.Context, book *domain.Book) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if book.Filename == "" {
		return false, fmt.Errorf("create book: %w", ErrInvalidRecord)
	}
	if err := prepare(book); err != nil {
		return false, err
	}

	data, err := json.Marshal(book)
	if err != nil {
		return false, fmt.Errorf("marshal book: %w", err)
	}

	created := false
	err = s.db.Update(func(txn *badger.Txn) error {
		for _, key := range [][]byte{filenameIndexKey(book.Filename), bookKey(book.Filename)} {
			found, err := exists(txn, key)
			if err != nil {
				return err
			}
			if found {
				return nil
			}
		}
		created = true
		return writeBook(txn, book, data)
	})
	if err != nil {
		return false, err
	}
	return created, nil
}

// PutRawRecord stores fields verbatim under key, the way older writers did.
// A filename field, under any known alias, is indexed.
func (s *Store) PutRawRecord(ctx context.Context, key string, fields map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if key == "" {
		return ErrInvalidRecord
	}

	data, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	filename := domain.BookFromFields(key, fields).Filename

	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(bookKey(key), data); err != nil {
			return err
		}
		if filename == "" {
			return nil
		}
		return txn.Set(filenameIndexKey(filename), []byte(key))
	})
}

// ScanBooks visits every record in key order until fn returns false.
// Records that fail to decode are logged and skipped.
func (s *Store) ScanBooks(ctx context.Context, fn func(*domain.Book) bool) error {
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(bookPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			key := string(bytes.TrimPrefix(item.Key(), []byte(bookPrefix)))

			var fields map[string]any
			err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &fields)
			})
			if err != nil {
				s.logger.Warn("skipping undecodable record", "key", key, "error", err)
				continue
			}

			if !fn(domain.BookFromFields(key, fields)) {
				return nil
			}
		}
		return nil
	})
}

// ListBooks returns every record in key order.
func (s *Store) ListBooks(ctx context.Context) ([]*domain.Book, error) {
	var books []*domain.Book
	err := s.ScanBooks(ctx, func(b *domain.Book) bool {
		books = append(books, b)
		return true
	})
	if err != nil {
		return nil, err
	}
	return books, nil
}

// CountBooks returns the number of records.
func (s *Store) CountBooks(ctx context.Context) (int, error) {
	n := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(bookPrefix)
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			n++
		}
		return nil
	})
	return n, err
}

func prepare(book *domain.Book) error {
	if book.ID == "" {
		bookID, err := id.Generate("book")
		if err != nil {
			return err
		}
		book.ID = bookID
	}
	now := time.Now().UTC()
	if book.CreatedAt.IsZero() {
		book.CreatedAt = now
	}
	if book.UpdatedAt.IsZero() {
		book.UpdatedAt = now
	}
	book.Transient = false
	return nil
}

// writeBook sets the record and moves the filename index if the filename changed.
func writeBook(txn *badger.Txn, book *domain.Book, data []byte) error {
	if prev, err := getRaw(txn, bookKey(book.ID)); err == nil {
		old := domain.BookFromFields(book.ID, prev).Filename
		if old != "" && old != book.Filename {
			if err := txn.Delete(filenameIndexKey(old)); err != nil {
				return err
			}
		}
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}

	if err := txn.Set(bookKey(book.ID), data); err != nil {
		return err
	}
	if book.Filename != "" {
		return txn.Set(filenameIndexKey(book.Filename), []byte(book.ID))
	}
	return nil
}
