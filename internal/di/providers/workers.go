package providers

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/samber/do/v2"

	"github.com/listenupapp/bookshelf-server/internal/config"
	"github.com/listenupapp/bookshelf-server/internal/logger"
	"github.com/listenupapp/bookshelf-server/internal/watcher"
)

// FileWatcherHandle wraps the books directory watcher with shutdown
// capability. Watcher is nil when watching is disabled.
type FileWatcherHandle struct {
	*watcher.Watcher
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *FileWatcherHandle) Shutdown() error {
	if h.Watcher == nil {
		return nil
	}
	h.cancel()
	return h.Watcher.Stop()
}

// ProvideFileWatcher watches the books directory of the object root and
// creates a record for every source that settles there.
func ProvideFileWatcher(i do.Injector) (*FileWatcherHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if !cfg.Watcher.Enabled {
		log.Info("File watcher disabled")
		return &FileWatcherHandle{}, nil
	}

	storeHandle := do.MustInvoke[*StoreHandle](i)
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)

	booksDir := filepath.Join(cfg.Storage.ObjectRoot, filepath.FromSlash(strings.TrimSuffix(cfg.Storage.BooksPrefix, "/")))
	if err := os.MkdirAll(booksDir, 0o755); err != nil {
		return nil, fmt.Errorf("create books directory: %w", err)
	}

	w, err := watcher.New(log.Logger, watcher.Options{SettleDelay: cfg.Watcher.SettleDelay})
	if err != nil {
		return nil, err
	}
	if err := w.Watch(booksDir); err != nil {
		_ = w.Stop()
		return nil, err
	}

	cataloger := watcher.NewCataloger(storeHandle.Store, indexHandle.SearchIndex, booksDir, cfg.Storage.BooksPrefix, log.Logger)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		if err := w.Start(ctx); err != nil {
			log.Error("File watcher error", "error", err)
		}
	}()
	go cataloger.Run(ctx, w.Events(), w.Errors())

	log.Info("File watcher started", "path", booksDir, "settle_delay", cfg.Watcher.SettleDelay)

	return &FileWatcherHandle{Watcher: w, cancel: cancel}, nil
}
