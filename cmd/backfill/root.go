package main

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/listenupapp/bookshelf-server/internal/backfill"
	"github.com/listenupapp/bookshelf-server/internal/config"
	"github.com/listenupapp/bookshelf-server/internal/logger"
	"github.com/listenupapp/bookshelf-server/internal/objectstore"
	"github.com/listenupapp/bookshelf-server/internal/store"
)

type app struct {
	runner *backfill.Runner
	close  func() error
}

func newRootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Reconcile the metadata store with the book bucket",
		Long: `Backfill creates metadata records for book sources that have none,
reports drift between the store and the bucket, and snapshots or restores
the catalog as parquet.

The metadata database is opened exclusively: stop the server first.`,
		SilenceUsage: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
		},
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a YAML config file")

	open := func() (*app, error) { return openApp(configPath) }

	cmd.AddCommand(
		newRunCmd(open),
		newVerifyCmd(open),
		newSnapshotCmd(open),
		newRestoreCmd(open),
	)

	return cmd
}

func openApp(configPath string) (*app, error) {
	cfg, err := config.Load(config.Options{ConfigFile: configPath})
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log := logger.New(logger.Config{
		Level:       logger.ParseLevel(cfg.Logger.Level),
		Format:      cfg.Logger.Format,
		Environment: cfg.App.Environment,
	})

	db, err := store.New(filepath.Join(cfg.Storage.DataPath, "db"), log.Logger)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	key, err := objectstore.LoadOrGenerateKey(cfg.SigningKeyPath())
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("signing key: %w", err)
	}
	signer, err := objectstore.NewSigner(key)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	publicURL := cfg.Server.PublicURL
	if publicURL == "" {
		publicURL = "http://localhost:" + strconv.Itoa(cfg.Server.Port)
	}
	objects, err := objectstore.NewFS(cfg.Storage.ObjectRoot, publicURL, signer, log.Logger)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("object store: %w", err)
	}

	return &app{
		runner: backfill.NewRunner(db, objects, cfg.Storage.BooksPrefix, log.Logger),
		close:  db.Close,
	}, nil
}
