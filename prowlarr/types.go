package prowlarr

import "time"

// Release is one search result from an indexer
type Release struct {
	GUID        string    `json:"guid"`
	Title       string    `json:"title"`
	Size        int64     `json:"size"`
	MagnetURL   string    `json:"magnetUrl"`
	DownloadURL string    `json:"downloadUrl"`
	InfoURL     string    `json:"infoUrl"`
	Indexer     string    `json:"indexer"`
	IndexerID   int       `json:"indexerId"`
	Seeders     int       `json:"seeders"`
	Leechers    int       `json:"leechers"`
	PublishDate time.Time `json:"publishDate"`
}

// GrabItem returns the URL a torrent client should be handed for this
// release, preferring the magnet link when both are present.
func (r Release) GrabItem() string {
	if r.MagnetURL != "" {
		return r.MagnetURL
	}
	return r.DownloadURL
}
