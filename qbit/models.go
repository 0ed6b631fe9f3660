package qbit

import "time"

// TorrentInfo contains information about a torrent on one instance
type TorrentInfo struct {
	Hash         string
	Name         string
	Category     string
	Tags         []string
	State        string
	SavePath     string
	ContentPath  string
	Size         int64
	Progress     float64
	Ratio        float64
	AddedOn      time.Time
	CompletionOn time.Time
	IsSeeding    bool
}

// IsActivelySeeding checks if the torrent is actively seeding
func (t *TorrentInfo) IsActivelySeeding() bool {
	return t.State == "uploading" || t.State == "stalledUP" || t.State == "queuedUP" || t.State == "forcedUP"
}

// IsComplete reports whether the torrent has finished downloading
func (t *TorrentInfo) IsComplete() bool {
	return t.Progress >= 1.0
}

// AddResult partitions the items of one AddItems call by outcome. The three
// slices are disjoint and their union is exactly the input.
type AddResult struct {
	// Delivered holds items accepted by an endpoint.
	Delivered []string
	// Failed holds items rejected before any delivery attempt (local
	// validation), never items an endpoint was down for.
	Failed []string
	// Queued holds items persisted to the durable queue because no
	// endpoint accepted them.
	Queued []string
	// Endpoint names the instance that accepted Delivered, if any.
	Endpoint string
}

// HealthReport aggregates the state of both endpoints plus diagnostics.
type HealthReport struct {
	Primary      Health
	Secondary    Health
	VPNConnected bool
	QueueDepth   int
}

// Healthy reports whether at least one endpoint can accept submissions.
func (r HealthReport) Healthy() bool {
	return r.Primary.OK() || r.Secondary.OK()
}
