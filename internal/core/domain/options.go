// Package domain defines the core types and configurations for the commit log system.
package domain

import (
	"time"
)

// Options defines the configuration parameters for the commit log segment manager.
// It provides control over storage layout, segment sizing, and the CDC (change
// data capture) disk budget.
type Options struct {
	// Directory specifies the base path where commit log segment files are stored.
	// The directory must be writable and should be on a durable storage device.
	Directory string

	// EnableMetrics toggles the collection of operational metrics.
	// When enabled, counters for rejected CDC writes, evictions and size
	// recalculations are recorded. Has minimal performance overhead.
	EnableMetrics bool

	// OnCommitError is the escalation hook for unrecoverable filesystem errors,
	// such as a failed CDC directory walk. It receives a description of the failed
	// operation and the underlying cause. When nil, failures are logged and the
	// node keeps running; production deployments typically install a hook that
	// halts the process.
	OnCommitError func(operation string, err error)

	// SegmentOptions defines configurable parameters for commit log segments.
	SegmentOptions *SegmentOptions

	// CDCOptions defines configurable parameters for CDC retention.
	CDCOptions *CDCOptions
}

// SegmentOptions defines configurable parameters for commit log segments.
type SegmentOptions struct {
	// MaxSegmentSize defines the maximum size a segment can grow to before the
	// manager advances to a new one. This is also the nominal size charged
	// against the CDC budget for every live segment permitted to hold CDC data.
	// Default is 32MB if set to 0.
	MaxSegmentSize int64

	// Prefix defines the filename prefix for segment files.
	// Final filename will be: prefix + segmentID + ".log"
	//
	// Default: "segment-"
	Prefix string
}

// CDCOptions defines configurable parameters for CDC retention.
type CDCOptions struct {
	// Enabled toggles CDC tracking. When false, mutations flagged as CDC-tracked
	// are treated like any other mutation and no shadow files are created.
	Enabled bool

	// Directory specifies where CDC shadow files and their index files live.
	// Every segment gets a hard-linked copy of its log file here at creation.
	Directory string

	// BlockWrites selects the backpressure policy once the CDC budget is
	// exhausted. True rejects CDC-tracked writes with CDCWriteError; false
	// evicts the oldest linked CDC segment files to make room.
	//
	// Default: true
	BlockWrites bool

	// TotalSpace is the ceiling, in bytes, for CDC-attributable disk usage.
	// Once the tracker's estimate exceeds it, new segments are forbidden from
	// accepting CDC writes (blocking mode) or old CDC files are evicted
	// (non-blocking mode).
	TotalSpace int64

	// DiskCheckInterval bounds how often the tracker may walk the CDC directory
	// to reconcile its estimate with ground truth.
	//
	// Default: 250ms
	DiskCheckInterval time.Duration
}
