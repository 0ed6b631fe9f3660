package qbit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/autobrr/go-qbittorrent"
	"github.com/rs/zerolog"
)

const defaultProbeTimeout = 10 * time.Second

// Endpoint wraps one qBittorrent instance behind the Deliverer interface.
//
// Construction never dials the instance: the whole point of the resilient
// layer is tolerating endpoints that are down at startup, so connectivity is
// established lazily by Probe and by the API calls themselves.
type Endpoint struct {
	name         string
	client       *qbittorrent.Client
	category     string
	probeTimeout time.Duration
	logger       zerolog.Logger
}

// NewEndpoint creates an endpoint wrapper for the instance at url.
func NewEndpoint(name, url, username, password string, logger zerolog.Logger) *Endpoint {
	client := qbittorrent.NewClient(qbittorrent.Config{
		Host:     url,
		Username: username,
		Password: password,
	})

	return &Endpoint{
		name:         name,
		client:       client,
		probeTimeout: defaultProbeTimeout,
		logger:       logger.With().Str("endpoint", name).Logger(),
	}
}

// SetCategory sets the category applied to every delivered torrent.
func (e *Endpoint) SetCategory(category string) {
	e.category = category
}

// SetProbeTimeout overrides the default health-probe timeout.
func (e *Endpoint) SetProbeTimeout(timeout time.Duration) {
	if timeout > 0 {
		e.probeTimeout = timeout
	}
}

// Name returns the configured instance name.
func (e *Endpoint) Name() string {
	return e.name
}

// Probe attempts a login within the probe timeout and maps the outcome to a
// Health value. It never returns an error.
func (e *Endpoint) Probe(ctx context.Context) Health {
	ctx, cancel := context.WithTimeout(ctx, e.probeTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- e.client.LoginCtx(ctx)
	}()

	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		err = ctx.Err()
	}

	health := healthFromError(err)
	e.logger.Debug().
		Str("status", string(health.Status)).
		Str("detail", health.Detail).
		Msg("Endpoint probed")

	return health
}

// Deliver submits all items in a single torrents/add call. The Web API
// accepts newline-separated URLs, which keeps the batch atomic: either the
// whole request is accepted or none of it is.
func (e *Endpoint) Deliver(ctx context.Context, items []string, savePath string) error {
	if len(items) == 0 {
		return nil
	}

	options := map[string]string{}
	if savePath != "" {
		options["savepath"] = savePath
	}
	if e.category != "" {
		options["category"] = e.category
	}

	if err := e.client.AddTorrentFromUrlCtx(ctx, strings.Join(items, "\n"), options); err != nil {
		return fmt.Errorf("%w on %s: %s", ErrDeliveryFailed, e.name, err)
	}

	e.logger.Info().Int("items", len(items)).Str("save_path", savePath).Msg("Delivered batch")
	return nil
}

// List retrieves all torrents from the instance.
func (e *Endpoint) List(ctx context.Context) ([]*TorrentInfo, error) {
	torrents, err := e.client.GetTorrentsCtx(ctx, qbittorrent.TorrentFilterOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get torrents from %s: %w", e.name, err)
	}

	e.logger.Debug().Int("count", len(torrents)).Msg("Retrieved torrents")

	results := make([]*TorrentInfo, 0, len(torrents))
	for _, t := range torrents {
		info := &TorrentInfo{
			Hash:         t.Hash,
			Name:         t.Name,
			Category:     t.Category,
			Tags:         splitTags(t.Tags),
			State:        string(t.State),
			SavePath:     t.SavePath,
			ContentPath:  t.ContentPath,
			Size:         t.Size,
			Progress:     t.Progress,
			Ratio:        t.Ratio,
			AddedOn:      time.Unix(t.AddedOn, 0),
			CompletionOn: time.Unix(t.CompletionOn, 0),
		}
		info.IsSeeding = info.IsActivelySeeding()
		results = append(results, info)
	}

	return results, nil
}

func splitTags(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			tags = append(tags, p)
		}
	}
	return tags
}
