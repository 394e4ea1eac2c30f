package backends

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/semaphore"

	"nextsoundwave/pkg/interfaces"
	"nextsoundwave/pkg/logging"
	"nextsoundwave/pkg/types"
)

// DefaultEngineTimeout bounds a single engine call.
const DefaultEngineTimeout = 30 * time.Second

// PrimaryBackend extracts through a local engine.
type PrimaryBackend struct {
	engine  interfaces.Engine
	sem     *semaphore.Weighted
	timeout time.Duration
	embed   EmbedHosts
	log     *logging.Logger
}

// PrimaryOptions tunes a PrimaryBackend.
type PrimaryOptions struct {
	// Timeout bounds each engine call. Zero means DefaultEngineTimeout.
	Timeout time.Duration
	// MaxConcurrent caps engine calls in flight. Values below 1 mean 1.
	MaxConcurrent int
	Embed         EmbedHosts
}

// NewPrimaryBackend wraps engine.
func NewPrimaryBackend(engine interfaces.Engine, opts PrimaryOptions, log *logging.Logger) *PrimaryBackend {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultEngineTimeout
	}
	if opts.Embed == (EmbedHosts{}) {
		opts.Embed = DefaultEmbedHosts
	}
	return &PrimaryBackend{
		engine:  engine,
		sem:     semaphore.NewWeighted(int64(max(1, opts.MaxConcurrent))),
		timeout: opts.Timeout,
		embed:   opts.Embed,
		log:     log.WithComponent("primary-backend").WithBackend(engine.Name()),
	}
}

// Name returns the engine name.
func (b *PrimaryBackend) Name() string {
	return b.engine.Name()
}

// IsAvailable reports whether the engine can run.
func (b *PrimaryBackend) IsAvailable(ctx context.Context) bool {
	return b.engine.Available(ctx)
}

// Extract resolves url through the engine.
func (b *PrimaryBackend) Extract(ctx context.Context, url string) (types.Track, error) {
	id, err := parseID(url)
	if err != nil {
		return types.Track{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	if err := b.sem.Acquire(ctx, 1); err != nil {
		return types.Track{}, fmt.Errorf("%w: waiting for engine slot: %v", types.ErrExtractionFailed, err)
	}
	defer b.sem.Release(1)

	start := time.Now()
	info, err := b.engine.Fetch(ctx, id)
	if err != nil {
		return types.Track{}, fmt.Errorf("%w: %s: %v", types.ErrExtractionFailed, b.engine.Name(), err)
	}
	b.log.WithVideoID(id).WithDuration(time.Since(start)).Debug("engine fetch finished")

	if info == nil || info.ID == "" || info.URL == "" {
		return types.Track{}, fmt.Errorf("%w: %s returned incomplete data for %s", types.ErrExtractionFailed, b.engine.Name(), id)
	}

	codec := info.ACodec
	if codec == "" || codec == "none" {
		codec = types.DefaultCodec
	}

	track := types.Track{
		ID:       types.VideoID(info.ID),
		Title:    orDefault(info.Title, types.DefaultTitle),
		Duration: max(0, info.Duration),
		AudioURL: info.URL,
		Codec:    codec,
		Backend:  types.BackendPrimary,
		Related:  capRelated(info.Related),
	}
	b.embed.apply(&track)

	return track, nil
}
