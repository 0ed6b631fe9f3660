package qbit

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/soup/shelfarr/store"
)

// ResilientClient routes submissions to the primary instance, falls back to
// the secondary, and persists to the queue store when both are down. Every
// item handed to AddItems ends up in exactly one of the result partitions;
// losing a grab on a rate-limited tracker is the failure mode this whole
// layer exists to prevent.
type ResilientClient struct {
	primary   Deliverer
	secondary Deliverer
	store     *store.Store
	vpn       *VPNChecker
	limiter   *rate.Limiter
	logger    zerolog.Logger
}

// NewResilientClient creates the failover client. The secondary endpoint and
// VPN checker are optional.
func NewResilientClient(primary, secondary Deliverer, st *store.Store, logger zerolog.Logger) (*ResilientClient, error) {
	if primary == nil {
		return nil, ErrNoPrimary
	}
	if st == nil {
		return nil, ErrNoStore
	}

	return &ResilientClient{
		primary:   primary,
		secondary: secondary,
		store:     st,
		limiter:   rate.NewLimiter(rate.Inf, 1),
		logger:    logger,
	}, nil
}

// SetVPNChecker attaches an optional tunnel indicator included in health
// reports.
func (c *ResilientClient) SetVPNChecker(vpn *VPNChecker) {
	c.vpn = vpn
}

// SetRateLimit paces network delivery attempts to perSecond events/sec with
// the given burst allowance. Zero or negative perSecond disables pacing; a
// burst below one is clamped to one.
func (c *ResilientClient) SetRateLimit(perSecond float64, burst int) {
	if perSecond <= 0 {
		c.limiter = rate.NewLimiter(rate.Inf, 1)
		return
	}
	if burst < 1 {
		burst = 1
	}
	c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
}

// Health probes both endpoints in parallel and reports the aggregate state,
// including the tunnel indicator and current queue depth.
func (c *ResilientClient) Health(ctx context.Context) HealthReport {
	var report HealthReport

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		report.Primary = c.primary.Probe(gctx)
		return nil
	})
	g.Go(func() error {
		if c.secondary == nil {
			report.Secondary = Health{Status: StatusFail, Detail: "not configured"}
			return nil
		}
		report.Secondary = c.secondary.Probe(gctx)
		return nil
	})
	g.Go(func() error {
		report.VPNConnected = c.vpn.Connected(gctx)
		return nil
	})
	_ = g.Wait()

	if submissions, err := c.store.LoadAll(); err == nil {
		for _, sub := range submissions {
			report.QueueDepth += len(sub.Items)
		}
	}

	return report
}

// AddItems delivers items through the first healthy endpoint, queueing them
// durably when no endpoint accepts the batch. The returned partitions are
// disjoint and cover the input exactly. An error is returned only when even
// the durable queue could not hold the items.
func (c *ResilientClient) AddItems(ctx context.Context, items []string, targetPath string) (AddResult, error) {
	result := AddResult{}

	valid := make([]string, 0, len(items))
	for _, item := range items {
		if strings.TrimSpace(item) == "" {
			result.Failed = append(result.Failed, item)
			continue
		}
		valid = append(valid, item)
	}

	if len(valid) == 0 {
		return result, nil
	}

	endpoint, reason := c.deliverTiered(ctx, valid, targetPath)
	if endpoint != "" {
		result.Delivered = valid
		result.Endpoint = endpoint
		return result, nil
	}

	c.logger.Warn().
		Int("items", len(valid)).
		Str("reason", reason).
		Msg("No endpoint accepted submission, queueing to disk")

	if err := c.store.Append(store.NewSubmission(valid, reason, targetPath)); err != nil {
		return result, fmt.Errorf("failed to queue undeliverable items: %w", err)
	}

	result.Queued = valid
	return result, nil
}

// deliverTiered walks the endpoints in primary-then-secondary order and
// returns the name of the one that accepted the batch, or the joined failure
// causes when none did.
func (c *ResilientClient) deliverTiered(ctx context.Context, items []string, targetPath string) (string, string) {
	var causes []string
	for _, endpoint := range []Deliverer{c.primary, c.secondary} {
		if endpoint == nil {
			continue
		}

		if cause := c.tryDeliver(ctx, endpoint, items, targetPath); cause == "" {
			return endpoint.Name(), ""
		} else {
			causes = append(causes, fmt.Sprintf("%s: %s", endpoint.Name(), cause))
		}
	}

	reason := "both endpoints unreachable"
	if len(causes) > 0 {
		reason = strings.Join(causes, "; ")
	}
	return "", reason
}

// tryDeliver probes one endpoint and, when healthy, attempts the batch call.
// A delivery error after a healthy probe still falls through: the remote can
// reject the add for reasons the probe does not catch. Returns an empty
// string on success, the failure cause otherwise.
func (c *ResilientClient) tryDeliver(ctx context.Context, endpoint Deliverer, items []string, targetPath string) string {
	health := endpoint.Probe(ctx)
	if !health.OK() {
		c.logger.Debug().
			Str("endpoint", endpoint.Name()).
			Str("status", string(health.Status)).
			Msg("Skipping unhealthy endpoint")
		if health.Detail != "" {
			return fmt.Sprintf("%s (%s)", strings.ToLower(string(health.Status)), health.Detail)
		}
		return strings.ToLower(string(health.Status))
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Sprintf("cancelled while rate limited: %s", err)
	}

	if err := endpoint.Deliver(ctx, items, targetPath); err != nil {
		c.logger.Warn().Err(err).
			Str("endpoint", endpoint.Name()).
			Msg("Healthy endpoint rejected batch, trying next tier")
		return fmt.Sprintf("delivery failed (%s)", err)
	}

	return ""
}

// ProcessQueue attempts delivery of every queued submission through the same
// primary-then-secondary walk as AddItems, including falling through to the
// secondary when a healthy primary rejects the batch, but without a further
// queueing fallback: whatever still fails stays queued. The store is
// rewritten with exactly the undelivered remainder, or deleted when
// everything recovered. Calling it with nothing deliverable changes nothing.
func (c *ResilientClient) ProcessQueue(ctx context.Context) (recovered []string, failed []string, err error) {
	submissions, err := c.store.LoadAll()
	if err != nil {
		if errors.Is(err, store.ErrCorruptStore) {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("failed to load queued submissions: %w", err)
	}

	if len(submissions) == 0 {
		return nil, nil, nil
	}

	var remainder []store.QueuedSubmission
	for _, sub := range submissions {
		endpoint, reason := c.deliverTiered(ctx, sub.Items, sub.TargetPath)
		if endpoint == "" {
			c.logger.Warn().
				Str("submission", sub.ID).
				Str("reason", reason).
				Msg("Queued submission still undeliverable")
			remainder = append(remainder, sub)
			failed = append(failed, sub.Items...)
			continue
		}

		c.logger.Info().
			Str("submission", sub.ID).
			Int("items", len(sub.Items)).
			Str("endpoint", endpoint).
			Msg("Recovered queued submission")
		recovered = append(recovered, sub.Items...)
	}

	if err := c.store.ReplaceAll(remainder); err != nil {
		return recovered, failed, fmt.Errorf("failed to rewrite queue store: %w", err)
	}

	return recovered, failed, nil
}

// List returns the torrents of the first healthy endpoint, preferring primary.
func (c *ResilientClient) List(ctx context.Context) ([]*TorrentInfo, string, error) {
	endpoint := c.pickHealthyEndpoint(ctx)
	if endpoint == nil {
		return nil, "", fmt.Errorf("no healthy endpoint available")
	}
	torrents, err := endpoint.List(ctx)
	return torrents, endpoint.Name(), err
}

// ListFrom returns the torrents of the named endpoint, bypassing tier order.
func (c *ResilientClient) ListFrom(ctx context.Context, name string) ([]*TorrentInfo, error) {
	for _, endpoint := range []Deliverer{c.primary, c.secondary} {
		if endpoint == nil || endpoint.Name() != name {
			continue
		}
		if health := endpoint.Probe(ctx); !health.OK() {
			return nil, fmt.Errorf("endpoint %s is not healthy: %s", name, strings.ToLower(string(health.Status)))
		}
		return endpoint.List(ctx)
	}
	return nil, fmt.Errorf("no endpoint named %q", name)
}

func (c *ResilientClient) pickHealthyEndpoint(ctx context.Context) Deliverer {
	if c.primary.Probe(ctx).OK() {
		return c.primary
	}
	if c.secondary != nil && c.secondary.Probe(ctx).OK() {
		return c.secondary
	}
	return nil
}
