package providers

import (
	"github.com/samber/do/v2"

	"github.com/listenupapp/bookshelf-server/internal/config"
	"github.com/listenupapp/bookshelf-server/internal/logger"
	"github.com/listenupapp/bookshelf-server/internal/media/raster"
)

// RasterChainHandle wraps the renderer chain and owns the PDFium pool.
type RasterChainHandle struct {
	*raster.Chain
	pdfium *raster.PDFium
}

// Shutdown implements do.Shutdownable.
func (h *RasterChainHandle) Shutdown() error {
	if h.pdfium != nil {
		return h.pdfium.Close()
	}
	return nil
}

// ProvideRasterChain provides the ordered first-page renderers, each behind
// its own circuit breaker. Renderers that cannot start are left out.
func ProvideRasterChain(i do.Injector) (*RasterChainHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	settings := raster.DefaultBreakerSettings()
	handle := &RasterChainHandle{}
	var probes []raster.Rasterizer

	if cfg.Cover.PDFiumWorkers > 0 {
		pdfium, err := raster.NewPDFium(cfg.Cover.PDFiumWorkers, cfg.Cover.DPI, cfg.Cover.RenderTimeout)
		if err != nil {
			log.Warn("PDFium renderer unavailable", "error", err)
		} else {
			handle.pdfium = pdfium
			probes = append(probes, raster.WithBreaker(pdfium, settings, log.Logger))
		}
	}

	pdftoppm := raster.NewPdftoppm(cfg.Cover.PdftoppmPaths, cfg.Cover.DPI, cfg.Cover.RenderTimeout)
	if pdftoppm.Available() {
		probes = append(probes, raster.WithBreaker(pdftoppm, settings, log.Logger))
	} else {
		log.Info("pdftoppm not found, skipping renderer")
	}

	probes = append(probes, raster.WithBreaker(raster.NewEmbeddedImage(), settings, log.Logger))

	handle.Chain = raster.NewChain(log.Logger, probes...)
	log.Info("Cover renderers ready", "probes", handle.Probes())

	return handle, nil
}
