package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/samber/mo"
	"golang.org/x/sync/errgroup"

	"nextsoundwave/pkg/interfaces"
	"nextsoundwave/pkg/logging"
	"nextsoundwave/pkg/types"
	"nextsoundwave/pkg/videoid"
)

// noBackendMessage is reported when neither backend can be used.
const noBackendMessage = "No available extraction backend"

// FallbackFactory builds a fallback backend bound to an instance.
type FallbackFactory func(instance string) interfaces.Backend

// DiscoverFunc picks the first reachable instance among candidates.
type DiscoverFunc func(ctx context.Context, candidates []string) mo.Option[string]

// OrchestratorOptions configures fallback construction.
type OrchestratorOptions struct {
	// DefaultInstance is bound when discovery finds nothing or is skipped.
	DefaultInstance string
	// Candidates are probed by discovery, in preference order.
	Candidates []string
}

// Orchestrator tries the extraction backends in priority order. It owns the
// primary backend and a fallback built on first need.
type Orchestrator struct {
	primary     interfaces.Backend
	newFallback FallbackFactory
	discover    DiscoverFunc
	opts        OrchestratorOptions
	log         *logging.Logger

	mu       sync.Mutex
	fallback interfaces.Backend
}

// NewOrchestrator creates an orchestrator. discover may be nil, in which case
// the fallback always binds to the default instance.
func NewOrchestrator(
	primary interfaces.Backend,
	newFallback FallbackFactory,
	discover DiscoverFunc,
	opts OrchestratorOptions,
	log *logging.Logger,
) *Orchestrator {
	return &Orchestrator{
		primary:     primary,
		newFallback: newFallback,
		discover:    discover,
		opts:        opts,
		log:         log.WithComponent("orchestrator"),
	}
}

// Fallback returns the fallback backend, or nil if none was built yet.
func (o *Orchestrator) Fallback() interfaces.Backend {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.fallback
}

// ensureFallback builds the fallback once. With discover set, the first
// reachable candidate replaces the default instance. Concurrent callers wait
// for the first one and share its result.
func (o *Orchestrator) ensureFallback(ctx context.Context, discover bool) interfaces.Backend {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.fallback != nil {
		return o.fallback
	}

	instance := o.opts.DefaultInstance
	if discover && o.discover != nil {
		start := time.Now()
		if found, ok := o.discover(ctx, o.opts.Candidates).Get(); ok {
			instance = found
		}
		o.log.WithDuration(time.Since(start)).Info("instance discovery finished", "instance", instance)
	}

	o.fallback = o.newFallback(instance)
	return o.fallback
}

// Extract resolves url to a track. preferred may ask for the fallback to be
// tried first when it already exists. Errors and panics from backends never
// escape; every path ends in an Outcome.
func (o *Orchestrator) Extract(ctx context.Context, url string, preferred mo.Option[types.BackendKind]) types.Outcome {
	id, ok := videoid.Parse(url).Get()
	if !ok {
		return invalidURL(url)
	}
	log := o.log.WithVideoID(id)

	if preferred.OrEmpty() == types.BackendFallback {
		if fb := o.Fallback(); fb != nil {
			track, err := o.attempt(ctx, fb, url)
			if err == nil {
				return success(track, types.BackendFallback)
			}
			if errors.Is(err, types.ErrInvalidInput) {
				return invalidURL(url)
			}
			log.WithBackend(fb.Name()).WithError(err).Warn("preferred fallback failed, trying primary")
		}
	}

	if o.available(ctx, o.primary) {
		track, err := o.attempt(ctx, o.primary, url)
		if err == nil {
			return success(track, types.BackendPrimary)
		}
		if errors.Is(err, types.ErrInvalidInput) {
			return invalidURL(url)
		}
		log.WithBackend(o.primary.Name()).WithError(err).Warn("primary extraction failed, trying fallback")
	}

	fb := o.ensureFallback(ctx, true)
	if !o.available(ctx, fb) {
		log.Error("no extraction backend available")
		return types.Failed(types.FailureNoBackend, noBackendMessage)
	}

	track, err := o.attempt(ctx, fb, url)
	if err == nil {
		return success(track, types.BackendFallback)
	}
	if errors.Is(err, types.ErrInvalidInput) {
		return invalidURL(url)
	}
	log.WithBackend(fb.Name()).WithError(err).Error("fallback extraction failed")
	return types.Failed(types.FailureExtraction, err.Error())
}

// HealthCheck probes both backends concurrently. The fallback is built with
// the default instance if it does not exist yet; discovery is not run.
func (o *Orchestrator) HealthCheck(ctx context.Context) types.HealthReport {
	fb := o.ensureFallback(ctx, false)

	var primaryOK, fallbackOK bool
	var g errgroup.Group
	g.Go(func() error {
		primaryOK = o.available(ctx, o.primary)
		return nil
	})
	g.Go(func() error {
		fallbackOK = o.available(ctx, fb)
		return nil
	})
	_ = g.Wait()

	return BuildHealthReport(
		types.BackendHealth{Name: o.primary.Name(), Available: primaryOK},
		types.BackendHealth{Name: fb.Name(), Available: fallbackOK},
	)
}

// attempt runs one extraction, converting a panic into an error.
func (o *Orchestrator) attempt(ctx context.Context, b interfaces.Backend, url string) (track types.Track, err error) {
	defer func() {
		if r := recover(); r != nil {
			o.log.WithBackend(b.Name()).Error("backend panicked", "panic", r)
			err = fmt.Errorf("%w: %s panicked: %v", types.ErrExtractionFailed, b.Name(), r)
		}
	}()

	start := time.Now()
	track, err = b.Extract(ctx, url)
	o.log.WithBackend(b.Name()).WithDuration(time.Since(start)).Debug("extraction attempt finished", "ok", err == nil)
	return track, err
}

// available runs a liveness probe. A panicking probe counts as unavailable.
func (o *Orchestrator) available(ctx context.Context, b interfaces.Backend) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			o.log.WithBackend(b.Name()).Error("availability probe panicked", "panic", r)
			ok = false
		}
	}()
	return b.IsAvailable(ctx)
}

func success(track types.Track, kind types.BackendKind) types.Outcome {
	track.Backend = kind
	return types.Success(track, kind)
}

func invalidURL(url string) types.Outcome {
	return types.Failed(types.FailureInvalidInput, "Invalid YouTube URL: "+url)
}
