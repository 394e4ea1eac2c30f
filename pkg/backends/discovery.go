package backends

import (
	"context"

	"github.com/samber/lo"
	"github.com/samber/mo"
	"golang.org/x/sync/errgroup"

	"nextsoundwave/pkg/interfaces"
	"nextsoundwave/pkg/invidious"
	"nextsoundwave/pkg/logging"
)

// DefaultDiscoveryWorkers is the number of probes allowed in flight.
const DefaultDiscoveryWorkers = 4

// ProbeFunc reports whether an instance is reachable.
type ProbeFunc func(ctx context.Context, instance string) bool

// FindWorking probes every candidate with at most workers probes in flight
// and returns the first reachable candidate in input order.
func FindWorking(ctx context.Context, candidates []string, probe ProbeFunc, workers int) mo.Option[string] {
	if len(candidates) == 0 {
		return mo.None[string]()
	}
	if workers < 1 {
		workers = DefaultDiscoveryWorkers
	}

	up := make([]bool, len(candidates))

	var g errgroup.Group
	g.SetLimit(workers)
	for i, candidate := range candidates {
		g.Go(func() error {
			up[i] = probe(ctx, candidate)
			return nil
		})
	}
	_ = g.Wait()

	_, idx, ok := lo.FindIndexOf(up, func(ok bool) bool { return ok })
	if !ok {
		return mo.None[string]()
	}
	return mo.Some(candidates[idx])
}

// InvidiousProbe builds a ProbeFunc that issues the instance liveness request
// through httpClient.
func InvidiousProbe(httpClient interfaces.HTTPClient, opts invidious.Options, log *logging.Logger) ProbeFunc {
	return func(ctx context.Context, instance string) bool {
		ok := invidious.NewClient(instance, httpClient, opts, log).Probe(ctx)
		log.WithInstance(instance).Debug("probed instance", "available", ok)
		return ok
	}
}
