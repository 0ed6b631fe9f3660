package qbit

import "context"

// Deliverer is one remote torrent-client instance the resilient layer can
// route submissions to. Endpoint is the production implementation; tests
// substitute fakes.
type Deliverer interface {
	// Name identifies the instance in logs and results ("primary", "secondary").
	Name() string

	// Probe performs a bounded-time reachability/auth check. It never
	// returns an error; failures are encoded in the Health value.
	Probe(ctx context.Context) Health

	// Deliver submits all items in one batch call. The call is atomic
	// pass/fail; the Web API gives no per-item outcome.
	Deliver(ctx context.Context, items []string, savePath string) error

	// List returns the instance's current torrents.
	List(ctx context.Context) ([]*TorrentInfo, error)
}
