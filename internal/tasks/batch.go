package tasks

import (
	"context"
	"io"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/fabioc-aloha/spotify-mcpb/internal/models"
	"github.com/fabioc-aloha/spotify-mcpb/internal/services"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const (
	DefaultBatchSize   = 50
	DefaultConcurrency = 4
)

// FeatureSource fetches audio features for one chunk of track ids.
type FeatureSource interface {
	GetAudioFeatures(ctx context.Context, ids []string) ([]models.FeatureRecord, error)
}

// FeatureCache stores feature records by track id.
type FeatureCache interface {
	Get(id string) (models.FeatureRecord, bool)
	Set(id string, record models.FeatureRecord)
}

// BatchFetcherOpts contains configuration for batched feature lookups.
type BatchFetcherOpts struct {
	BatchSize         int     // Ids per request (default: 50)
	Concurrency       int     // Requests in flight (default: 4)
	RequestsPerSecond float64 // Request pacing; zero or less disables it
	Logger            *log.Logger
}

// BatchFetcher resolves track ids to feature records through the cache, fetching only what is missing.
type BatchFetcher struct {
	invoker *services.Invoker
	source  FeatureSource
	cache   FeatureCache
	limiter *rate.Limiter
	opts    BatchFetcherOpts
	logger  *log.Logger
}

// NewBatchFetcher creates a [BatchFetcher]. Every remote chunk goes through inv.
func NewBatchFetcher(inv *services.Invoker, source FeatureSource, cache FeatureCache, opts BatchFetcherOpts) *BatchFetcher {
	if opts.BatchSize <= 0 || opts.BatchSize > DefaultBatchSize {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}

	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}

	return &BatchFetcher{
		invoker: inv,
		source:  source,
		cache:   cache,
		limiter: rate.NewLimiter(limit, opts.Concurrency),
		opts:    opts,
		logger:  opts.Logger,
	}
}

// Fetch returns a map of track id to feature record.
//
// A chunk that fails is logged and contributes nothing; its ids are simply absent from the result.
// Only cancellation of ctx while waiting for the rate limiter is returned as an error.
func (f *BatchFetcher) Fetch(ctx context.Context, ids []string) (map[string]models.FeatureRecord, error) {
	result := make(map[string]models.FeatureRecord, len(ids))
	missing := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))

	for _, id := range ids {
		if _, dup := seen[id]; dup || id == "" {
			continue
		}
		seen[id] = struct{}{}

		if rec, ok := f.cache.Get(id); ok {
			result[id] = rec
		} else {
			missing = append(missing, id)
		}
	}

	if len(missing) == 0 {
		return result, nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.opts.Concurrency)

	for _, chunk := range Chunk(missing, f.opts.BatchSize) {
		g.Go(func() error {
			if err := f.limiter.Wait(gctx); err != nil {
				return err
			}

			records, err := services.Execute(gctx, f.invoker, func(ctx context.Context) ([]models.FeatureRecord, error) {
				return f.source.GetAudioFeatures(ctx, chunk)
			})
			if err != nil {
				f.logger.Warn("batch_audio_features_failed", "batch_size", len(chunk), "error", err)
				return nil
			}

			mu.Lock()
			defer mu.Unlock()
			for _, rec := range records {
				if rec.ID == "" {
					continue
				}
				f.cache.Set(rec.ID, rec)
				result[rec.ID] = rec
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return result, nil
}

// Chunk splits items into consecutive slices of at most size elements.
func Chunk[T any](items []T, size int) [][]T {
	if size <= 0 {
		size = len(items)
	}
	var chunks [][]T
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		chunks = append(chunks, items[start:end])
	}
	return chunks
}
