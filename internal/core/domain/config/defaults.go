// Package config holds the default values and limits shared by the commit log
// configuration surfaces.
package config

import (
	"time"

	"github.com/iamNilotpal/commitlog/internal/core/domain"
)

const (
	DefaultSegmentPrefix = "segment-"

	// DefaultMaxSegmentSize is the nominal commit log segment size. It doubles
	// as the conservative per-segment charge against the CDC budget.
	DefaultMaxSegmentSize = 32 * 1024 * 1024 // 32MB

	// MinSegmentSize guards against configurations too small to hold a single
	// mutation plus bookkeeping.
	MinSegmentSize = 1024 // 1KB

	// DefaultCDCTotalSpace caps CDC-attributable disk usage.
	DefaultCDCTotalSpace = 4096 * 1024 * 1024 // 4GB

	// DefaultCDCDiskCheckInterval bounds the frequency of CDC directory walks.
	DefaultCDCDiskCheckInterval = 250 * time.Millisecond
)

// DefaultOptions returns an Options struct with recommended defaults.
// The CDC directory defaults to a "cdc_raw" sibling of the log directory and
// must be filled in by the caller when a different layout is needed.
func DefaultOptions() *domain.Options {
	return &domain.Options{
		SegmentOptions: &domain.SegmentOptions{
			Prefix:         DefaultSegmentPrefix,
			MaxSegmentSize: DefaultMaxSegmentSize,
		},
		CDCOptions: &domain.CDCOptions{
			Enabled:           true,
			BlockWrites:       true,
			TotalSpace:        DefaultCDCTotalSpace,
			DiskCheckInterval: DefaultCDCDiskCheckInterval,
		},
	}
}
