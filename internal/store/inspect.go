package store

import (
	"bytes"
	"context"

	"github.com/dgraph-io/badger/v4"
	json "github.com/goccy/go-json"

	"github.com/listenupapp/bookshelf-server/internal/domain"
)

// Stats describes the key layout found in the database.
type Stats struct {
	Records int `json:"records"`
	// LegacyKeyed records are stored under a key that is not their ID,
	// typically the filename.
	LegacyKeyed int `json:"legacy_keyed"`
	// Unnamed records carry no filename and cannot be resolved directly.
	Unnamed      int `json:"unnamed"`
	Undecodable  int `json:"undecodable"`
	IndexEntries int `json:"index_entries"`
	// DanglingIndex entries point at a record that no longer exists.
	DanglingIndex []string `json:"dangling_index,omitempty"`
}

// Inspect walks every record and index entry.
func (s *Store) Inspect(ctx context.Context) (*Stats, error) {
	stats := &Stats{}
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(bookPrefix)
		it := txn.NewIterator(opts)
		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				it.Close()
				return err
			}
			key := string(bytes.TrimPrefix(it.Item().Key(), []byte(bookPrefix)))

			var fields map[string]any
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &fields)
			}); err != nil {
				stats.Undecodable++
				continue
			}

			stats.Records++
			// Decoding with an empty key leaves ID unset when the record has none.
			b := domain.BookFromFields("", fields)
			if b.ID != key {
				stats.LegacyKeyed++
			}
			if b.Filename == "" {
				stats.Unnamed++
			}
		}
		it.Close()

		opts.Prefix = []byte(filenameIndexPrefix)
		idx := txn.NewIterator(opts)
		defer idx.Close()
		for idx.Rewind(); idx.Valid(); idx.Next() {
			stats.IndexEntries++
			target, err := idx.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			found, err := exists(txn, bookKey(string(target)))
			if err != nil {
				return err
			}
			if !found {
				stats.DanglingIndex = append(stats.DanglingIndex,
					string(bytes.TrimPrefix(idx.Item().Key(), []byte(filenameIndexPrefix))))
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}
