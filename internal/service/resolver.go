package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/ajithvnr2001/edgelink/internal/models"
	"github.com/ajithvnr2001/edgelink/internal/repository"
	"github.com/ajithvnr2001/edgelink/pkg/cache"
	"github.com/ajithvnr2001/edgelink/pkg/metrics"
)

var (
	// ErrNotFound means the slug has no record. Expected traffic, not a fault.
	ErrNotFound = errors.New("short link not found")
	// ErrStoreUnavailable means the lookup failed at the infrastructure
	// level (timeout, connection). The only error class surfaced as 5xx.
	ErrStoreUnavailable = errors.New("link store unavailable")
)

// LinkStore is the point-lookup contract the resolver consumes.
type LinkStore interface {
	FindBySlug(ctx context.Context, slug string) (*models.LinkRecord, error)
}

// Options tune the resolver's caching and latency budget.
type Options struct {
	L1Size        int
	L1TTL         time.Duration
	LookupTimeout time.Duration
}

// Resolver serves link records for the redirect hot path: in-process LRU
// first, then the shared Redis cache, then Postgres. Concurrent misses for
// the same slug are collapsed into a single store round trip.
type Resolver struct {
	store LinkStore
	l1    *cache.LRU
	l2    *cache.LinkCache // nil when Redis is disabled
	group singleflight.Group

	lookupTimeout time.Duration
	log           *zap.Logger
}

func NewResolver(store LinkStore, l2 *cache.LinkCache, opts Options, log *zap.Logger) *Resolver {
	if opts.L1Size <= 0 {
		opts.L1Size = 10000
	}
	if opts.L1TTL <= 0 {
		opts.L1TTL = 30 * time.Second
	}
	if opts.LookupTimeout <= 0 {
		opts.LookupTimeout = 25 * time.Millisecond
	}

	return &Resolver{
		store:         store,
		l1:            cache.NewLRU(opts.L1Size, opts.L1TTL),
		l2:            l2,
		lookupTimeout: opts.LookupTimeout,
		log:           log,
	}
}

// Resolve fetches the link record for a slug. It returns ErrNotFound for an
// absent slug and ErrStoreUnavailable when the store cannot answer inside
// the latency budget.
func (r *Resolver) Resolve(ctx context.Context, slug string) (*models.LinkRecord, error) {
	if slug == "" {
		return nil, ErrNotFound
	}

	if cached, ok := r.l1.Get(slug); ok {
		metrics.CacheHits.WithLabelValues("l1").Inc()
		return cached.(*models.LinkRecord), nil
	}
	metrics.CacheMisses.WithLabelValues("l1").Inc()

	if r.l2 != nil {
		record, err := r.l2.Get(ctx, slug)
		if err == nil {
			metrics.CacheHits.WithLabelValues("l2").Inc()
			r.l1.Set(slug, record)
			return record, nil
		}
		if err != cache.ErrCacheMiss {
			// A broken Redis is not fatal; fall through to Postgres.
			r.log.Warn("l2 cache read failed", zap.String("slug", slug), zap.Error(err))
		}
		metrics.CacheMisses.WithLabelValues("l2").Inc()
	}

	result, err, _ := r.group.Do(slug, func() (interface{}, error) {
		return r.lookup(ctx, slug)
	})
	if err != nil {
		return nil, err
	}
	return result.(*models.LinkRecord), nil
}

func (r *Resolver) lookup(ctx context.Context, slug string) (*models.LinkRecord, error) {
	lookupCtx, cancel := context.WithTimeout(ctx, r.lookupTimeout)
	defer cancel()

	record, err := r.store.FindBySlug(lookupCtx, slug)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		// Timeouts and connection errors alike: the store could not answer.
		r.log.Error("link store lookup failed", zap.String("slug", slug), zap.Error(err))
		return nil, ErrStoreUnavailable
	}

	r.l1.Set(slug, record)
	if r.l2 != nil {
		if err := r.l2.Set(ctx, record); err != nil {
			r.log.Warn("l2 cache write failed", zap.String("slug", slug), zap.Error(err))
		}
	}
	return record, nil
}
