package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-git/go-billy/v5"

	"github.com/matzehuels/atlaspack/pkg/atlas"
	"github.com/matzehuels/atlaspack/pkg/cache"
	errs "github.com/matzehuels/atlaspack/pkg/errors"
	"github.com/matzehuels/atlaspack/pkg/observability"
	"github.com/matzehuels/atlaspack/pkg/sink"
	"github.com/matzehuels/atlaspack/pkg/source"
)

// Publisher uploads written files and returns where they ended up.
type Publisher interface {
	Publish(ctx context.Context, files []string) ([]string, error)
}

// PublisherFactory builds a Publisher for an s3:// target.
type PublisherFactory func(ctx context.Context, target string, fs billy.Filesystem, logger *log.Logger) (Publisher, error)

func defaultPublisher(ctx context.Context, target string, fs billy.Filesystem, logger *log.Logger) (Publisher, error) {
	return sink.NewS3Publisher(ctx, target, fs, logger)
}

// Runner encapsulates pipeline execution with caching.
//
// The Runner is stateless except for its collaborators; it doesn't store
// results, so one Runner can serve several runs with different options.
type Runner struct {
	FS           billy.Filesystem
	Cache        cache.Cache
	Keyer        cache.Keyer
	Logger       *log.Logger
	NewPublisher PublisherFactory
}

// NewRunner creates a runner reading and writing through fs.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(fs billy.Filesystem, c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		FS:           fs,
		Cache:        c,
		Keyer:        keyer,
		Logger:       logger,
		NewPublisher: defaultPublisher,
	}
}

// Execute runs load → pack → composite → write, then publishes when
// opts.Publish is set. Nothing is written unless packing succeeds.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	result, catalog, err := r.loadAndPack(ctx, opts)
	if err != nil {
		return nil, err
	}

	// Stage 3: Composite
	compositeStart := time.Now()
	img, err := atlas.Composite(result.Plan, catalog)
	if err != nil {
		return nil, fmt.Errorf("composite: %w", err)
	}
	result.Stats.CompositeTime = time.Since(compositeStart)

	// Stage 4: Write
	writeStart := time.Now()
	files, err := sink.WriteAtlas(r.FS, opts.OutputDir, opts.Name, img, result.Metadata)
	result.Stats.WriteTime = time.Since(writeStart)
	observability.Pipeline().OnWriteComplete(ctx, files.All(), result.Stats.WriteTime, err)
	if err != nil {
		return nil, fmt.Errorf("write: %w", err)
	}
	result.Files = files

	r.Logger.Info("wrote atlas",
		"image", files.Image,
		"metadata", files.Metadata,
		"duration", result.Stats.WriteTime)

	// Stage 5: Publish
	if opts.Publish != "" {
		publishStart := time.Now()
		pub, err := r.NewPublisher(ctx, opts.Publish, r.FS, r.Logger)
		if err != nil {
			return nil, fmt.Errorf("publish: %w", err)
		}
		uris, err := pub.Publish(ctx, files.All())
		if err != nil {
			return nil, fmt.Errorf("publish: %w", err)
		}
		result.Published = uris
		result.Stats.PublishTime = time.Since(publishStart)

		r.Logger.Info("published atlas",
			"target", opts.Publish,
			"files", len(uris),
			"duration", result.Stats.PublishTime)
	}

	return result, nil
}

// Plan loads and packs without compositing or writing anything.
func (r *Runner) Plan(ctx context.Context, opts Options) (*Result, error) {
	if err := opts.ValidateForPlan(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	result, _, err := r.loadAndPack(ctx, opts)
	return result, err
}

func (r *Runner) loadAndPack(ctx context.Context, opts Options) (*Result, atlas.Catalog, error) {
	result := &Result{}

	// Stage 1: Load
	loadStart := time.Now()
	observability.Pipeline().OnLoadStart(ctx, opts.InputDir)
	loaded, err := source.NewLoader(r.FS, r.Logger).Load(ctx, opts.InputDir, opts.Recursive)
	result.Stats.LoadTime = time.Since(loadStart)
	if err != nil {
		observability.Pipeline().OnLoadComplete(ctx, opts.InputDir, 0, 0, result.Stats.LoadTime, err)
		return nil, nil, fmt.Errorf("load: %w", err)
	}
	observability.Pipeline().OnLoadComplete(ctx, opts.InputDir, len(loaded.Catalog), len(loaded.Skipped), result.Stats.LoadTime, nil)

	result.Skipped = loaded.Skipped
	result.Stats.Images = len(loaded.Catalog)
	result.Stats.Skipped = len(loaded.Skipped)

	if len(loaded.Catalog) == 0 {
		return nil, nil, errs.New(errs.ErrCodeEmptyInput, "no valid images found in %s", opts.InputDir)
	}

	r.Logger.Info("loaded images",
		"count", result.Stats.Images,
		"skipped", result.Stats.Skipped,
		"duration", result.Stats.LoadTime)

	// Stage 2: Pack
	packStart := time.Now()
	if err := r.pack(ctx, loaded.Catalog, opts, result); err != nil {
		return nil, nil, fmt.Errorf("pack: %w", err)
	}
	result.Stats.PackTime = time.Since(packStart)
	result.Stats.Fill = fill(result.Plan)
	result.Metadata = atlas.BuildMetadata(result.Plan, sink.ImageName(opts.Name), opts.Recursive)

	r.Logger.Info("packed atlas",
		"size", fmt.Sprintf("%dx%d", result.Plan.Width, result.Plan.Height),
		"attempts", result.Plan.Attempts,
		"cached", result.CacheInfo.PlanHit,
		"duration", result.Stats.PackTime)

	return result, loaded.Catalog, nil
}

// pack fills result.Plan, from cache when possible.
func (r *Runner) pack(ctx context.Context, c atlas.Catalog, opts Options, result *Result) error {
	key := r.Keyer.PlanKey(CatalogDigest(c), opts.PlanKeyOpts())
	result.CacheInfo.Key = key

	if !opts.NoCache {
		if plan, ok := r.cachedPlan(ctx, key, c); ok {
			result.Plan = plan
			result.CacheInfo.PlanHit = true
			observability.Cache().OnCacheHit(ctx, "plan")
			return nil
		}
		observability.Cache().OnCacheMiss(ctx, "plan")
	}

	start := time.Now()
	plan, err := atlas.Pack(c, opts.Settings(),
		atlas.WithEstimateHook(func(e atlas.Estimate) {
			result.Estimate = e
			observability.Pipeline().OnPackStart(ctx, len(c), e.Width, e.Height)
			if e.Insufficient {
				r.Logger.Warn("images may not fit within the maximum atlas size",
					"area", e.TotalArea,
					"max", fmt.Sprintf("%dx%d", opts.MaxWidth, opts.MaxHeight))
			}
		}),
		atlas.WithAttemptHook(func(a atlas.Attempt) {
			result.Attempts = append(result.Attempts, a)
			observability.Pipeline().OnPackAttempt(ctx, a.Index, a.Width, a.Height, a.OK)
			r.Logger.Debug("shelf attempt",
				"attempt", a.Index,
				"size", fmt.Sprintf("%dx%d", a.Width, a.Height),
				"fit", a.OK)
		}),
	)
	if err != nil {
		observability.Pipeline().OnPackComplete(ctx, 0, 0, len(result.Attempts), time.Since(start), err)
		return err
	}
	observability.Pipeline().OnPackComplete(ctx, plan.Width, plan.Height, plan.Attempts, time.Since(start), nil)
	result.Plan = plan

	if !opts.NoCache {
		if data, err := json.Marshal(plan); err == nil {
			if err := r.Cache.Set(ctx, key, data, cache.TTLPlan); err != nil {
				r.Logger.Debug("cache write failed", "err", err)
			} else {
				observability.Cache().OnCacheSet(ctx, "plan", len(data))
			}
		}
	}
	return nil
}

// cachedPlan returns a cached plan that still satisfies the placement
// invariants and places every asset of c exactly once. Anything unreadable
// is treated as a miss.
func (r *Runner) cachedPlan(ctx context.Context, key string, c atlas.Catalog) (*atlas.Plan, bool) {
	data, hit, err := r.Cache.Get(ctx, key)
	if err != nil {
		r.Logger.Debug("cache read failed", "err", err)
		return nil, false
	}
	if !hit {
		return nil, false
	}

	var plan atlas.Plan
	if err := json.Unmarshal(data, &plan); err != nil {
		return nil, false
	}
	err = plan.Validate()
	if err == nil {
		err = plan.Covers(c)
	}
	if err != nil {
		r.Logger.Warn("discarding invalid cached plan", "err", errs.UserMessage(err))
		_ = r.Cache.Delete(ctx, key)
		return nil, false
	}
	return &plan, true
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

func fill(p *atlas.Plan) float64 {
	if p.Width == 0 || p.Height == 0 {
		return 0
	}
	used := 0
	for _, s := range p.Sprites {
		used += s.Width * s.Height
	}
	return float64(used) / float64(p.Width*p.Height)
}
