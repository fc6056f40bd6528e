package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/listenupapp/bookshelf-server/internal/config"
	"github.com/listenupapp/bookshelf-server/internal/logger"
	"github.com/listenupapp/bookshelf-server/internal/media/images"
	"github.com/listenupapp/bookshelf-server/internal/objectstore"
	"github.com/listenupapp/bookshelf-server/internal/ratelimit"
	"github.com/listenupapp/bookshelf-server/internal/resolver"
	"github.com/listenupapp/bookshelf-server/internal/service"
	"github.com/listenupapp/bookshelf-server/internal/validation"
)

// ProvideResolver provides the filename to record resolver.
func ProvideResolver(i do.Injector) (*resolver.Resolver, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return resolver.New(storeHandle.Store, log.Logger), nil
}

// ProvideValidator provides the request payload validator.
func ProvideValidator(_ do.Injector) (*validation.Validator, error) {
	return validation.New(), nil
}

// ProvideExtractLimiter provides the per-client limiter for forced cover extraction.
func ProvideExtractLimiter(i do.Injector) (*ratelimit.KeyedRateLimiter, error) {
	cfg := do.MustInvoke[*config.Config](i)

	return ratelimit.New(cfg.RateLimit.ExtractRPS, cfg.RateLimit.ExtractBurst), nil
}

// ProvideBookService provides the book service.
func ProvideBookService(i do.Injector) (*service.BookService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	objects := do.MustInvoke[*objectstore.FS](i)
	res := do.MustInvoke[*resolver.Resolver](i)
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	validator := do.MustInvoke[*validation.Validator](i)

	return service.NewBookService(storeHandle.Store, objects, res, indexHandle.SearchIndex, validator, service.BookConfig{
		BooksPrefix: cfg.Storage.BooksPrefix,
		SourceTTL:   cfg.Signing.SourceTTL,
	}, log.Logger), nil
}

// ProvideCoverService provides the cover pipeline.
func ProvideCoverService(i do.Injector) (*service.CoverService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	objects := do.MustInvoke[*objectstore.FS](i)
	chain := do.MustInvoke[*RasterChainHandle](i)
	processor := do.MustInvoke[*images.Processor](i)

	return service.NewCoverService(objects, chain.Chain, processor, service.CoverConfig{
		BooksPrefix:  cfg.Storage.BooksPrefix,
		CoversPrefix: cfg.Storage.CoversPrefix,
		CoverTTL:     cfg.Signing.CoverTTL,
		CacheControl: cfg.Cover.CacheControl,
	}, log.Logger), nil
}

// IndexCatalog loads every stored record into the search index.
func IndexCatalog(i do.Injector) {
	books := do.MustInvoke[*service.BookService](i)
	log := do.MustInvoke[*logger.Logger](i)

	n, err := books.IndexAll(context.Background())
	if err != nil {
		log.Error("Initial search indexing failed", "error", err)
		return
	}
	log.Info("Search index ready", "documents", n)
}
