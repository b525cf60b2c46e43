package storage

import "github.com/prometheus/client_golang/prometheus"

func init() {
	// Register the metrics.
	prometheus.MustRegister(
		PromTorrentsCount,
		PromTorrentBytes,
	)
}

var (
	// PromTorrentsCount is a gauge used to hold the current total amount of
	// torrents held by a storage.
	PromTorrentsCount = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "bencode_storage_torrents_count",
		Help: "The number of torrents stored",
	})

	// PromTorrentBytes is a gauge used to hold the current total size of the
	// canonical encodings held by a storage.
	PromTorrentBytes = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "bencode_storage_torrent_bytes",
		Help: "The total size in bytes of the stored torrents",
	})
)
