package providers

import (
	"fmt"
	"strconv"

	"github.com/samber/do/v2"

	"github.com/listenupapp/bookshelf-server/internal/config"
	"github.com/listenupapp/bookshelf-server/internal/logger"
	"github.com/listenupapp/bookshelf-server/internal/media/images"
	"github.com/listenupapp/bookshelf-server/internal/objectstore"
)

// ProvideSigner provides the signed URL signer, generating its key on first start.
func ProvideSigner(i do.Injector) (*objectstore.Signer, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	keyPath := cfg.SigningKeyPath()
	key, err := objectstore.LoadOrGenerateKey(keyPath)
	if err != nil {
		return nil, fmt.Errorf("signing key: %w", err)
	}

	log.Info("Signing key loaded", "path", keyPath)

	return objectstore.NewSigner(key)
}

// ProvideObjectStore provides the filesystem object store.
func ProvideObjectStore(i do.Injector) (*objectstore.FS, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	signer := do.MustInvoke[*objectstore.Signer](i)

	publicURL := cfg.Server.PublicURL
	if publicURL == "" {
		publicURL = "http://localhost:" + strconv.Itoa(cfg.Server.Port)
	}

	fs, err := objectstore.NewFS(cfg.Storage.ObjectRoot, publicURL, signer, log.Logger)
	if err != nil {
		return nil, fmt.Errorf("object store: %w", err)
	}

	log.Info("Object store initialized", "root", cfg.Storage.ObjectRoot, "public_url", publicURL)

	return fs, nil
}

// ProvideImageProcessor provides the image processor for cover art.
func ProvideImageProcessor(i do.Injector) (*images.Processor, error) {
	cfg := do.MustInvoke[*config.Config](i)

	return images.NewProcessor(cfg.Cover.Width, cfg.Cover.Height, cfg.Cover.JPEGQuality), nil
}
