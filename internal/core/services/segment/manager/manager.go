package sm

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/iamNilotpal/commitlog/internal/core/domain"
	"github.com/iamNilotpal/commitlog/internal/core/ports"
	"github.com/iamNilotpal/commitlog/internal/core/services/segment"
	pkgerrors "github.com/iamNilotpal/commitlog/pkg/errors"
	"github.com/iamNilotpal/commitlog/pkg/fs"
	"github.com/iamNilotpal/commitlog/pkg/metrics"
	"github.com/iamNilotpal/commitlog/pkg/system"
)

// SegmentManager owns the currently active segment and the rule for advancing
// to a new one when it fills, and layers the CDC admission policy on top: every
// segment is hard-linked into the CDC directory at creation, a size tracker
// keeps a conservative estimate of CDC disk usage, and CDC-tracked writes are
// gated by the active segment's CDC state.
type SegmentManager struct {
	// Configuration options controlling segment sizing and CDC retention.
	opts *domain.Options

	log *zap.SugaredLogger

	// Interface for file system operations, abstracted for testing.
	fs ports.FileSystemPort

	// Operational counters; nil when metrics are disabled.
	metrics *metrics.Metrics

	// Tracks CDC-attributable disk usage and decides new segments' CDC state.
	tracker *sizeTracker

	// Escalation hook for unrecoverable filesystem errors.
	onCommitError func(operation string, err error)

	// Segment state tracking.
	mu     sync.RWMutex     // Guards active segment and id assignment.
	active *segment.Segment // Currently active segment for writing.
	nextId uint64           // Id assigned to the next created segment.
}

// NewSegmentManager creates and initializes a SegmentManager. It performs the
// following initialization:
//  1. Applies defaults and validates the options.
//  2. Ensures the log directory and the CDC directory exist.
//  3. Discovers the highest existing segment id so new ids continue after it.
//  4. Starts the size tracker's recalculation worker.
//  5. Creates the initial active segment (deciding its CDC state).
//
// Returns an error if:
//   - Option validation fails.
//   - Directory creation fails.
//   - Creating the initial segment fails.
func NewSegmentManager(ctx context.Context, opts *domain.Options, log *zap.SugaredLogger) (*SegmentManager, error) {
	opts = prepareDefaults(opts)
	if err := Validate(opts); err != nil {
		return nil, err
	}

	m := &SegmentManager{
		log:  log,
		opts: opts,
		fs:   fs.NewLocalFileSystem(),
	}

	m.onCommitError = opts.OnCommitError
	if m.onCommitError == nil {
		m.onCommitError = func(operation string, err error) {
			log.Errorw("commit log failure", "operation", operation, "error", err)
		}
	}

	if opts.EnableMetrics {
		m.metrics = metrics.Default()
	}

	if err := m.fs.CreateDir(opts.Directory, 0755); err != nil {
		return nil, err
	}
	if opts.CDCOptions.Enabled {
		if err := m.fs.CreateDir(opts.CDCOptions.Directory, 0755); err != nil {
			return nil, err
		}
	}

	latest, found, err := m.latestSegmentId()
	if err != nil {
		return nil, err
	}
	if found {
		m.nextId = latest + 1
	}

	m.tracker = newSizeTracker(m)
	if opts.CDCOptions.Enabled {
		m.tracker.start(ctx)
	}

	active, err := m.CreateSegment()
	if err != nil {
		m.tracker.shutdown()
		return nil, err
	}

	m.mu.Lock()
	m.active = active
	m.mu.Unlock()

	return m, nil
}

// AllocatingFrom returns the segment currently accepting reservations.
func (m *SegmentManager) AllocatingFrom() *segment.Segment {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.active
}

// CreateSegment produces a new segment, establishes its CDC shadow file via a
// hard link, and registers it with the size tracker. The tracker decides the
// segment's CDC state before this returns, so callers never observe an
// undecided segment.
func (m *SegmentManager) CreateSegment() (*segment.Segment, error) {
	m.mu.Lock()
	id := m.nextId
	m.nextId++
	m.mu.Unlock()

	s, err := segment.NewSegment(&segment.Config{SegmentId: id, Options: m.opts})
	if err != nil {
		return nil, err
	}

	if m.opts.CDCOptions.Enabled {
		// Hard link into the CDC directory for realtime tracking.
		if err := m.fs.HardLink(s.Path(), s.CDCPath()); err != nil {
			if closeErr := s.Close(); closeErr != nil {
				m.log.Warnw("failed to close segment after link failure", "segment", s.ID(), "error", closeErr)
			}
			return nil, err
		}

		m.tracker.processNewSegment(s)
	}

	return s, nil
}

// Rolls the active segment forward iff current is still active. Losing the
// race to another writer is fine; the winner's segment is used by everyone.
func (m *SegmentManager) advanceAllocatingFrom(current *segment.Segment) error {
	m.mu.RLock()
	stale := m.active != current
	m.mu.RUnlock()
	if stale {
		return nil
	}

	next, err := m.CreateSegment()
	if err != nil {
		return err
	}

	m.mu.Lock()
	if m.active == current {
		m.active = next
		m.mu.Unlock()
		m.log.Debugw("advanced to new segment", "segment", next.ID())
		return nil
	}
	m.mu.Unlock()

	// Another writer advanced first; release the segment we created.
	m.Discard(next, true)
	return nil
}

// Discard releases a segment: closes it, reverses its CDC size bookkeeping,
// optionally removes its physical file, and deletes the CDC shadow and index
// files when the segment never came to contain CDC data. File removal is
// best-effort; failures are logged and swallowed.
func (m *SegmentManager) Discard(s *segment.Segment, delete bool) {
	if err := s.Close(); err != nil && err != segment.ErrSegmentClosed {
		m.log.Warnw("error closing discarded segment", "segment", s.ID(), "error", err)
	}

	if m.opts.CDCOptions.Enabled {
		m.tracker.processDiscardedSegment(s)
	}

	if delete {
		if err := m.fs.DeleteFile(s.Path()); err != nil {
			m.log.Warnw("failed to delete segment file", "path", s.Path(), "error", err)
		}
	}

	if m.opts.CDCOptions.Enabled && s.CDCState() != domain.CDCContains {
		// The shadow was never tracked by a consumer, so it goes with the
		// segment. Files may not exist when discarding during startup.
		m.deleteCDCFiles(s.CDCPath(), s.CDCIndexPath())
	}
}

// DeleteOldestLinkedCDCSegment deletes the oldest hard-linked CDC commit log
// segment file (last-modified order, not segment id - consumers may touch
// files) together with its index file, to free up space. Returns the total
// deleted file size in bytes.
//
// Precondition: the CDC directory exists and holds at least one candidate.
// Violations surface as errors carrying ErrNoCDCSegments or a directory error;
// callers must treat them as "cannot relieve overflow further".
func (m *SegmentManager) DeleteOldestLinkedCDCSegment() (int64, error) {
	cdcDir := m.opts.CDCOptions.Directory
	exists, err := m.fs.Exists(cdcDir)
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, fmt.Errorf("the CDC directory %s does not exist", cdcDir)
	}

	pattern := filepath.Join(cdcDir, m.opts.SegmentOptions.Prefix+"*"+segment.LogFileSuffix)
	candidates, err := m.fs.ReadDir(pattern)
	if err != nil {
		return 0, err
	}

	var oldest string
	var oldestMod int64
	for _, path := range candidates {
		if !segment.IsValidFileName(m.opts.SegmentOptions.Prefix, filepath.Base(path)) {
			continue
		}

		info, err := m.fs.Stat(path)
		if err != nil {
			// Deleted between listing and stat, likely by a consumer.
			continue
		}

		if mod := info.ModTime().UnixNano(); oldest == "" || mod < oldestMod {
			oldest = path
			oldestMod = mod
		}
	}

	if oldest == "" {
		return 0, fmt.Errorf("%s : %w", cdcDir, pkgerrors.ErrNoCDCSegments)
	}

	// The shadow file must actually go away for the caller's relief loop to
	// stay bounded, so its deletion is not best-effort.
	size, err := m.fs.FileSize(oldest)
	if err != nil {
		size = 0
	}
	if err := m.fs.DeleteFile(oldest); err != nil {
		return 0, fmt.Errorf("failed to evict cdc segment %s : %w", oldest, err)
	}
	total := size

	indexPath := filepath.Join(cdcDir, segment.InferCDCIndexName(filepath.Base(oldest)))
	if indexSize, err := m.fs.FileSize(indexPath); err == nil {
		if err := m.fs.DeleteFile(indexPath); err != nil {
			m.log.Warnw("failed to delete cdc index file", "path", indexPath, "error", err)
		} else {
			total += indexSize
		}
	}

	return total, nil
}

// Deletes a CDC shadow file and its companion index file, returning the summed
// bytes freed. Missing files contribute nothing; delete failures are logged.
func (m *SegmentManager) deleteCDCFiles(cdcPath, cdcIndexPath string) int64 {
	var total int64

	for _, path := range []string{cdcPath, cdcIndexPath} {
		size, err := m.fs.FileSize(path)
		if err != nil {
			continue
		}
		if err := m.fs.DeleteFile(path); err != nil {
			m.log.Warnw("failed to delete cdc file", "path", path, "error", err)
			continue
		}
		total += size
	}

	return total
}

// AddCDCSize adjusts the tracked CDC size by the given number of bytes. Used
// when replay re-links previously written segments into the CDC directory.
func (m *SegmentManager) AddCDCSize(size int64) {
	m.tracker.addSize(size)
}

// UpdateCDCTotalSize forces a ground-truth recalculation and returns the
// reconciled total CDC on-disk size. Only for tests and diagnostics; the write
// path relies on the asynchronous worker instead.
func (m *SegmentManager) UpdateCDCTotalSize() int64 {
	return m.tracker.updateTotalSize()
}

// Close performs a clean shutdown: stops accepting recalculation submissions,
// waits for any in-flight walk to finish, and closes the active segment.
func (m *SegmentManager) Close(ctx context.Context) error {
	return system.RunWithContext(ctx, func(context.Context) error {
		m.tracker.shutdown()

		m.mu.Lock()
		active := m.active
		m.active = nil
		m.mu.Unlock()

		if active != nil {
			if err := active.Close(); err != nil && err != segment.ErrSegmentClosed {
				return err
			}
		}
		return nil
	})
}

// Scans the log directory for existing segment files and returns the highest
// id in use. found is false when the directory holds no segments.
func (m *SegmentManager) latestSegmentId() (latest uint64, found bool, err error) {
	pattern := filepath.Join(m.opts.Directory, m.opts.SegmentOptions.Prefix+"*"+segment.LogFileSuffix)
	files, err := m.fs.ReadDir(pattern)
	if err != nil {
		return 0, false, fmt.Errorf("error loading latest segment id : %w", err)
	}

	for _, name := range files {
		id, err := segment.ParseID(m.opts.SegmentOptions.Prefix, filepath.Base(name))
		if err != nil {
			continue
		}
		if !found || id > latest {
			latest = id
			found = true
		}
	}

	return latest, found, nil
}
