package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ChecksumRequestsTotal counts checksum requests served over HTTP
	ChecksumRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rivetsum_checksum_requests_total",
			Help: "Total number of checksum requests",
		},
		[]string{"kind"},
	)

	// ChecksumBytesTotal counts bytes folded for HTTP requests
	ChecksumBytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rivetsum_checksum_bytes_total",
			Help: "Total number of bytes checksummed",
		},
		[]string{"kind"},
	)

	// ChecksumImplementation is 1 for the implementation each kind resolved to
	ChecksumImplementation = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "rivetsum_checksum_implementation",
			Help: "Checksum implementation selected at runtime",
		},
		[]string{"kind", "implementation"},
	)

	// DecompressRejectionsTotal counts requests refused by the governor
	DecompressRejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rivetsum_decompress_rejections_total",
			Help: "Total number of decompression requests rejected before allocation",
		},
		[]string{"reason"},
	)

	// ManifestFilesTotal counts manifest files by outcome
	ManifestFilesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rivetsum_manifest_files_total",
			Help: "Total number of files processed by manifest operations",
		},
		[]string{"result"},
	)

	// RateLimitRejections counts checksum requests rejected due to rate limiting
	RateLimitRejections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rivetsum_rate_limit_rejections_total",
			Help: "Total number of checksum requests rejected due to rate limiting",
		},
	)
)

// ObserveImplementation records a resolved checksum implementation.
func ObserveImplementation(kind, implementation string) {
	ChecksumImplementation.WithLabelValues(kind, implementation).Set(1)
}
