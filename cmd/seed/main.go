// Package main provides a tool to seed a development bucket with local PDFs.
//
// Every PDF in the source directory is copied under the books prefix. With
// -records a metadata record is derived from each filename; with -legacy the
// record is written the way older deployments did, keyed by filename with
// capitalized fields, so resolver fallbacks can be exercised.
//
// Usage:
//
//	go run ./cmd/seed -dir ~/Books
//	go run ./cmd/seed -dir ~/Books -records -legacy
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gabriel-vasile/mimetype"

	"github.com/listenupapp/bookshelf-server/internal/config"
	"github.com/listenupapp/bookshelf-server/internal/domain"
	"github.com/listenupapp/bookshelf-server/internal/objectstore"
	"github.com/listenupapp/bookshelf-server/internal/service"
	"github.com/listenupapp/bookshelf-server/internal/store"
)

var (
	sourceDir   = flag.String("dir", ".", "Directory of PDFs to upload")
	withRecords = flag.Bool("records", false, "Also create metadata records")
	legacy      = flag.Bool("legacy", false, "Write records in the legacy filename-keyed shape")
)

func main() {
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	key, err := objectstore.LoadOrGenerateKey(cfg.SigningKeyPath())
	if err != nil {
		log.Fatalf("Failed to load signing key: %v", err)
	}
	signer, err := objectstore.NewSigner(key)
	if err != nil {
		log.Fatalf("Failed to create signer: %v", err)
	}
	objects, err := objectstore.NewFS(cfg.Storage.ObjectRoot, "http://localhost:"+strconv.Itoa(cfg.Server.Port), signer, nil)
	if err != nil {
		log.Fatalf("Failed to open object store: %v", err)
	}

	var s *store.Store
	if *withRecords {
		s, err = store.New(filepath.Join(cfg.Storage.DataPath, "db"), nil)
		if err != nil {
			log.Fatalf("Failed to open store: %v", err)
		}
		defer s.Close() //nolint:errcheck // dev tool
	}

	entries, err := os.ReadDir(*sourceDir)
	if err != nil {
		log.Fatalf("Failed to read %s: %v", *sourceDir, err)
	}

	ctx := context.Background()
	uploaded := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		path := filepath.Join(*sourceDir, name)

		data, err := os.ReadFile(path) //#nosec G304 -- operator-supplied directory
		if err != nil {
			log.Printf("Skipping %s: %v", name, err)
			continue
		}
		mt := mimetype.Detect(data)
		if !mt.Is("application/pdf") {
			fmt.Printf("  skip %s (%s)\n", name, mt.String())
			continue
		}

		if err := objects.Put(ctx, cfg.Storage.BooksPrefix+name, data, objectstore.PutOptions{
			ContentType: "application/pdf",
		}); err != nil {
			log.Printf("Failed to upload %s: %v", name, err)
			continue
		}
		uploaded++
		fmt.Printf("  uploaded %s\n", name)

		if s != nil {
			if err := seedRecord(ctx, s, name); err != nil {
				log.Printf("Failed to create record for %s: %v", name, err)
			}
		}
	}

	fmt.Printf("\nUploaded %d books to %s\n", uploaded, filepath.Join(cfg.Storage.ObjectRoot, cfg.Storage.BooksPrefix))
}

func seedRecord(ctx context.Context, s *store.Store, filename string) error {
	book := service.BookFromFilename(filename)
	if !*legacy {
		_, err := s.CreateBookIfAbsent(ctx, book)
		return err
	}
	return s.PutRawRecord(ctx, filename, legacyFields(book))
}

func legacyFields(b *domain.Book) map[string]any {
	fields := map[string]any{
		"Filename":    b.Filename,
		"Title":       b.Title,
		"Author":      b.Author,
		"Genre":       b.Genre,
		"Description": b.Description,
	}
	if b.PublicationYear > 0 {
		fields["Year"] = b.PublicationYear
	}
	return fields
}
