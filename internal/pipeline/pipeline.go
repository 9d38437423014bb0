// Package pipeline assembles the response cache, catalog service and view
// model from configuration. Both entry points share it.
package pipeline

import (
	"errors"
	"fmt"

	"songpreview/internal/catalog"
	"songpreview/internal/config"
	"songpreview/internal/httpcache"
	"songpreview/internal/logger"
	"songpreview/internal/viewmodel"
)

// Pipeline holds the wired components. Close releases them in reverse order.
type Pipeline struct {
	Cache   httpcache.Store
	Service *catalog.Service
	Model   *viewmodel.Model

	disk   *httpcache.Disk
	logger *logger.Logger
}

// New builds the cache tiers, the catalog service and the view model.
// A disk cache that cannot be opened is logged and skipped.
func New(cfg config.Config, log *logger.Logger) (*Pipeline, error) {
	memory, err := httpcache.NewMemory(cfg.Cache.MemoryEntries)
	if err != nil {
		return nil, fmt.Errorf("failed to create response cache: %w", err)
	}

	p := &Pipeline{logger: log}

	var diskTier httpcache.Store
	if cfg.Cache.DiskPath != "" {
		disk, err := httpcache.OpenDisk(cfg.Cache.DiskPath, cfg.Cache.DiskEntries)
		if err != nil {
			log.Warn("Disk cache disabled: %v", err)
		} else {
			log.Debug("Disk cache: %s (%d entries)", cfg.Cache.DiskPath, cfg.Cache.DiskEntries)
			p.disk = disk
			diskTier = disk
		}
	}
	p.Cache = httpcache.NewTiered(memory, diskTier)

	p.Service = catalog.New(catalog.Options{
		APIURL:        cfg.CatalogURL,
		DefaultTerm:   cfg.DefaultTerm,
		TopLimit:      cfg.TopLimit,
		SearchTimeout: cfg.SearchTimeout,
		CacheTopSongs: cfg.CacheTopSongs,
	}, p.Cache, log)

	p.Model = viewmodel.New(p.Service, viewmodel.Options{
		SupersedeStale: cfg.SupersedeStale,
	}, log)

	return p, nil
}

// Close stops the view model and closes the disk cache.
func (p *Pipeline) Close() error {
	p.Model.Close()

	var errs []error
	if p.disk != nil {
		if err := p.disk.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close disk cache: %w", err))
		}
	}
	return errors.Join(errs...)
}
