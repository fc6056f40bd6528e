// Package main provides dbinspect, a read-only report on the metadata
// database key layout.
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	json "github.com/goccy/go-json"

	"github.com/listenupapp/bookshelf-server/internal/store"
)

func main() {
	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = "./data/db"
	}

	db, err := store.OpenReadOnly(dbPath, nil)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close() //nolint:errcheck // read-only

	stats, err := db.Inspect(context.Background())
	if err != nil {
		log.Fatalf("Failed to inspect database: %v", err)
	}

	if len(os.Args) > 1 && os.Args[1] == "--json" {
		out, err := json.MarshalIndent(stats, "", "  ")
		if err != nil {
			log.Fatalf("Failed to encode stats: %v", err)
		}
		fmt.Println(string(out))
		return
	}

	fmt.Println("=== Database Inspection ===")
	fmt.Println()
	fmt.Printf("Records:        %d\n", stats.Records)
	fmt.Printf("  legacy keyed: %d\n", stats.LegacyKeyed)
	fmt.Printf("  no filename:  %d\n", stats.Unnamed)
	fmt.Printf("  undecodable:  %d\n", stats.Undecodable)
	fmt.Printf("Index entries:  %d\n", stats.IndexEntries)
	fmt.Printf("  dangling:     %d\n", len(stats.DanglingIndex))
	for _, name := range stats.DanglingIndex {
		fmt.Printf("    %s\n", name)
	}
}
