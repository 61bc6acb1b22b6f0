// Package universe resolves index constituent lists with a layered
// fallback: primary provider, constituent page scrape, built-in list.
package universe

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"corrpulse/internal/cache"
	"corrpulse/internal/fetch"
	"corrpulse/internal/metrics"
	"corrpulse/pkg/contracts/domain"
)

// Source labels attached to resolved universes so callers can see
// which rung of the fallback ladder produced the symbols.
const (
	SourcePrimary = "Finnhub index/constituents"
	SourceScrape  = "Wikipedia constituents fallback"
	SourceStatic  = "Built-in fallback universe"
)

var indexSymbols = map[domain.IndexScope]string{
	domain.ScopeSP500:     "^GSPC",
	domain.ScopeNasdaq100: "^NDX",
}

// ConstituentsProvider supplies index membership from the primary
// market data vendor.
type ConstituentsProvider interface {
	IndexConstituents(ctx context.Context, indexSymbol string) ([]string, error)
}

// ConstituentsScraper supplies index membership from public
// constituent pages.
type ConstituentsScraper interface {
	Constituents(ctx context.Context, scope domain.IndexScope) ([]string, error)
}

// Resolver resolves symbol universes and caches them for a day.
type Resolver struct {
	provider ConstituentsProvider
	scraper  ConstituentsScraper
	cache    *cache.Service
	ttl      time.Duration
	logger   *slog.Logger
}

// NewResolver wires the fallback chain together.
func NewResolver(provider ConstituentsProvider, scraper ConstituentsScraper, cacheSvc *cache.Service, ttl time.Duration, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		provider: provider,
		scraper:  scraper,
		cache:    cacheSvc,
		ttl:      ttl,
		logger:   logger,
	}
}

// Resolve returns the universe for scope. Results are cached per
// scope; the combined scope resolves both single indexes in parallel
// and unions them.
func (r *Resolver) Resolve(ctx context.Context, scope domain.IndexScope) (domain.UniverseData, error) {
	if !scope.Valid() {
		return domain.UniverseData{}, fmt.Errorf("unknown index scope %q", scope)
	}

	key := "universe:" + string(scope)
	return cache.GetOrSet(ctx, r.cache, key, r.ttl, func(ctx context.Context) (domain.UniverseData, error) {
		if scope == domain.ScopeBoth {
			return r.resolveBoth(ctx)
		}
		return r.resolveSingle(ctx, scope)
	})
}

// resolveSingle walks the fallback ladder for one index. Errors other
// than access denial from the primary provider abort resolution; a
// denial or an empty answer moves down a rung.
func (r *Resolver) resolveSingle(ctx context.Context, scope domain.IndexScope) (domain.UniverseData, error) {
	symbols, err := r.provider.IndexConstituents(ctx, indexSymbols[scope])
	if err != nil {
		if !fetch.IsAccessDenied(err) {
			return domain.UniverseData{}, err
		}
		r.logger.WarnContext(ctx, "primary constituent source denied access, falling back",
			"scope", string(scope))
	} else if len(symbols) > 0 {
		return domain.UniverseData{
			Symbols: symbols,
			Sources: []string{SourcePrimary},
		}, nil
	}

	scraped, err := r.scraper.Constituents(ctx, scope)
	if err == nil && len(scraped) > 0 {
		metrics.UniverseFallbacks.WithLabelValues("scrape").Inc()
		return domain.UniverseData{
			Symbols: scraped,
			Sources: []string{SourceScrape},
		}, nil
	}
	if err != nil {
		r.logger.WarnContext(ctx, "constituent scrape failed, using built-in list",
			"scope", string(scope), "error", err)
	}

	metrics.UniverseFallbacks.WithLabelValues("static").Inc()
	return domain.UniverseData{
		Symbols: StaticSymbols(scope),
		Sources: []string{SourceStatic},
	}, nil
}

// resolveBoth resolves both indexes concurrently and merges them into
// a sorted, deduplicated union.
func (r *Resolver) resolveBoth(ctx context.Context) (domain.UniverseData, error) {
	var sp500, nasdaq100 domain.UniverseData

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		sp500, err = r.resolveSingle(gctx, domain.ScopeSP500)
		return err
	})
	g.Go(func() error {
		var err error
		nasdaq100, err = r.resolveSingle(gctx, domain.ScopeNasdaq100)
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.UniverseData{}, err
	}

	seen := make(map[string]struct{}, len(sp500.Symbols)+len(nasdaq100.Symbols))
	var symbols []string
	for _, sym := range append(sp500.Symbols, nasdaq100.Symbols...) {
		if _, dup := seen[sym]; dup {
			continue
		}
		seen[sym] = struct{}{}
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	sourceSeen := make(map[string]struct{})
	var sources []string
	for _, src := range append(sp500.Sources, nasdaq100.Sources...) {
		if _, dup := sourceSeen[src]; dup {
			continue
		}
		sourceSeen[src] = struct{}{}
		sources = append(sources, src)
	}

	return domain.UniverseData{Symbols: symbols, Sources: sources}, nil
}
