package storage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ruteri/secret-service/interfaces"
)

// MultiSource merges several collection sources. Unavailable or failing sources
// are skipped; loading fails only when no source could be read. When two sources
// describe the same collection identifier, the first one wins.
type MultiSource struct {
	sources []interfaces.CollectionSource
	log     *slog.Logger
}

// NewMultiSource creates a merged source.
func NewMultiSource(sources []interfaces.CollectionSource, logger *slog.Logger) *MultiSource {
	if logger == nil {
		logger = slog.Default()
	}

	return &MultiSource{
		sources: sources,
		log:     logger,
	}
}

// Load reads every available source in order.
func (m *MultiSource) Load(ctx context.Context) ([]interfaces.CollectionSpec, error) {
	start := time.Now()
	var errs []error
	var specs []interfaces.CollectionSpec
	seen := make(map[string]string)
	loaded := 0

	for _, source := range m.sources {
		if !source.Available(ctx) {
			m.log.Debug("Source unavailable", slog.String("source_name", source.Name()))
			errs = append(errs, fmt.Errorf("%s: %w", source.Name(), interfaces.ErrSourceUnavailable))
			continue
		}

		collections, err := source.Load(ctx)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", source.Name(), err))
			m.log.Warn("Failed to load from source", slog.String("source_name", source.Name()), "err", err)
			continue
		}
		loaded++

		for _, c := range collections {
			if first, dup := seen[c.ID]; dup {
				m.log.Warn("Skipping duplicate collection",
					slog.String("collection", c.ID),
					slog.String("source_name", source.Name()),
					slog.String("first_source", first))
				continue
			}
			seen[c.ID] = source.Name()
			specs = append(specs, c)
		}
	}

	if loaded == 0 {
		m.log.Error("All sources failed to load",
			slog.Int("failed_sources", len(errs)),
			slog.Duration("duration", time.Since(start)))
		return nil, fmt.Errorf("all sources failed to load collections: %v", errs)
	}

	m.log.Info("Loaded collections",
		slog.Int("collections", len(specs)),
		slog.Int("sources", loaded),
		slog.Duration("duration", time.Since(start)))

	return specs, nil
}

// Available checks if any source is available.
func (m *MultiSource) Available(ctx context.Context) bool {
	for _, source := range m.sources {
		if source.Available(ctx) {
			return true
		}
	}
	return false
}

// Name returns the name of this source.
func (m *MultiSource) Name() string {
	return "multi-source"
}

// LocationURI returns a combined URI of all sources.
func (m *MultiSource) LocationURI() string {
	var locations []string
	for _, source := range m.sources {
		locations = append(locations, source.LocationURI())
	}

	return "multi:[" + strings.Join(locations, ",") + "]"
}

// Importer receives loaded collections.
type Importer interface {
	ImportCollections(specs []interfaces.CollectionSpec) error
}

// LoadInto loads every source, merged as by MultiSource, into dst.
func LoadInto(ctx context.Context, dst Importer, log *slog.Logger, sources ...interfaces.CollectionSource) error {
	if len(sources) == 0 {
		return nil
	}

	specs, err := NewMultiSource(sources, log).Load(ctx)
	if err != nil {
		return err
	}
	return dst.ImportCollections(specs)
}
