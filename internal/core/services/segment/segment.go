package segment

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/iamNilotpal/commitlog/internal/core/domain"
	validation "github.com/iamNilotpal/commitlog/pkg/errors"
)

var (
	// ErrSegmentClosed indicates operation on closed segment
	ErrSegmentClosed = errors.New("segment is closed")
)

// Segment represents a single commit log file on disk together with its CDC
// shadow. It provides a lock-free reservation primitive for the write path and
// a per-segment lock guarding CDC lifecycle decisions, so the manager's write
// path and the tracker's background sizing path never race on the same
// segment's state.
type Segment struct {
	// Configuration options controlling segment sizing and file layout.
	options *domain.Options

	// Core segment properties
	id           uint64   // Unique monotonically increasing identifier for the segment.
	path         string   // Absolute file path where segment data is stored.
	cdcPath      string   // Hard-linked shadow copy of the segment file in the CDC directory.
	cdcIndexPath string   // Index file marking the shadow as tracked by a consumer.
	file         *os.File // Operating system file handle for I/O operations.

	createdAt time.Time // Segment creation time.

	// Position tracking. position advances by CAS on every reservation; written
	// counts the bytes actually persisted and is the segment's on-disk size.
	position atomic.Int64
	written  atomic.Int64

	// CDC lifecycle. cdcMu serializes state decisions (creation, discard,
	// re-evaluation) for this segment; cdcState is only read or written with it
	// held.
	cdcMu    sync.Mutex
	cdcState domain.CDCState

	// State management flags.
	closed atomic.Bool // Indicates if segment is closed for writing.
}

// NewSegment creates a segment file with the given id and derives the paths of
// its CDC shadow and index files. The segment starts with no CDC state; the
// size tracker decides Permitted/Forbidden before the manager publishes it.
//
// Returns an error if:
//   - The config is missing.
//   - The segment file cannot be created.
func NewSegment(config *Config) (*Segment, error) {
	if config == nil || config.Options == nil {
		return nil, validation.NewValidationError("config", nil, fmt.Errorf("config is required"))
	}

	opts := config.Options
	name := FileName(opts.SegmentOptions.Prefix, config.SegmentId)
	path := filepath.Join(opts.Directory, name)

	// 0644 permissions: owner can read/write, others can only read.
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("error creating segment file : %w", err)
	}

	return &Segment{
		id:           config.SegmentId,
		file:         file,
		path:         path,
		options:      opts,
		createdAt:    time.Now(),
		cdcPath:      filepath.Join(opts.CDCOptions.Directory, name),
		cdcIndexPath: filepath.Join(opts.CDCOptions.Directory, InferCDCIndexName(name)),
	}, nil
}

// ID returns the unique identifier of the segment.
func (s *Segment) ID() uint64 {
	return s.id
}

// Path returns the absolute path of the segment's log file.
func (s *Segment) Path() string {
	return s.path
}

// CDCPath returns the absolute path of the segment's CDC shadow file.
func (s *Segment) CDCPath() string {
	return s.cdcPath
}

// CDCIndexPath returns the absolute path of the segment's CDC index file.
func (s *Segment) CDCIndexPath() string {
	return s.cdcIndexPath
}

// CreatedAt returns the segment creation time.
func (s *Segment) CreatedAt() time.Time {
	return s.createdAt
}

// OnDiskSize returns the number of bytes persisted to the segment so far.
func (s *Segment) OnDiskSize() int64 {
	return s.written.Load()
}

// Reserve claims size bytes in the segment and returns an allocation handle,
// or nil when the segment has no room left. The reservation is a CAS loop over
// the write position, so concurrent writers never block each other here.
func (s *Segment) Reserve(size int64) *Allocation {
	if size <= 0 || s.closed.Load() {
		return nil
	}

	for {
		current := s.position.Load()
		if current+size > s.options.SegmentOptions.MaxSegmentSize {
			return nil
		}
		if s.position.CompareAndSwap(current, current+size) {
			return &Allocation{segment: s, offset: current, length: size}
		}
	}
}

// Persists payload at the reserved offset and accounts the bytes as on-disk.
func (s *Segment) writeAt(payload []byte, offset int64) error {
	if s.closed.Load() {
		return ErrSegmentClosed
	}

	n, err := s.file.WriteAt(payload, offset)
	if err != nil {
		return fmt.Errorf("failed to write entry : %w", err)
	}
	if n != len(payload) {
		return fmt.Errorf("short write: %d != %d", n, len(payload))
	}

	s.written.Add(int64(n))
	return nil
}

// CDCLock acquires the per-segment lock guarding CDC lifecycle decisions.
// Creation and discard of the same segment must hold it so two goroutines can
// never interleave the segment's state decision with its size bookkeeping.
func (s *Segment) CDCLock() {
	s.cdcMu.Lock()
}

// CDCUnlock releases the per-segment CDC lifecycle lock.
func (s *Segment) CDCUnlock() {
	s.cdcMu.Unlock()
}

// CDCState returns the segment's current CDC state.
func (s *Segment) CDCState() domain.CDCState {
	s.cdcMu.Lock()
	defer s.cdcMu.Unlock()
	return s.cdcState
}

// CDCStateLocked returns the CDC state. Callers must hold the CDC lock.
func (s *Segment) CDCStateLocked() domain.CDCState {
	return s.cdcState
}

// SetCDCStateLocked advances the CDC state. Callers must hold the CDC lock.
//
// Legal transitions:
//   - undecided -> Permitted | Forbidden (creation-time decision)
//   - Forbidden -> Permitted (re-evaluation of the active segment after a
//     ground-truth walk found headroom)
//   - Permitted -> Contains (first admitted CDC write, sticky)
//   - any state -> itself
func (s *Segment) SetCDCStateLocked(next domain.CDCState) error {
	if !next.IsValid() {
		return fmt.Errorf("invalid cdc state %d", next)
	}

	current := s.cdcState
	switch {
	case current == next:
	case current == 0 && next != domain.CDCContains:
	case current == domain.CDCForbidden && next == domain.CDCPermitted:
	case current == domain.CDCPermitted && next == domain.CDCContains:
	default:
		return fmt.Errorf("illegal cdc state transition %s -> %s", current, next)
	}

	s.cdcState = next
	return nil
}

// MarkCDCContains records that the segment holds CDC data. Called on every
// admitted CDC write; transitions beyond the first are no-ops.
func (s *Segment) MarkCDCContains() error {
	s.cdcMu.Lock()
	defer s.cdcMu.Unlock()
	return s.SetCDCStateLocked(domain.CDCContains)
}

// Close marks the segment closed and releases the file handle. Safe to call
// more than once; subsequent calls return ErrSegmentClosed.
func (s *Segment) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return ErrSegmentClosed
	}

	if err := s.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync file : %w", err)
	}
	if err := s.file.Close(); err != nil {
		return fmt.Errorf("error closing file : %w", err)
	}
	return nil
}
