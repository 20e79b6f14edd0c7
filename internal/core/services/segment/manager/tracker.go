package sm

import (
	"context"
	"sync/atomic"

	"golang.org/x/time/rate"

	"github.com/iamNilotpal/commitlog/internal/core/domain"
	"github.com/iamNilotpal/commitlog/internal/core/services/segment"
)

// sizeTracker tracks the total disk usage of the CDC subsystem: the summation
// of all live segments permitted to hold CDC data plus everything archived in
// the CDC directory.
//
// sizeInProgress is a deliberately conservative estimate. Each live
// Permitted/Contains segment is charged a full nominal segment size up front,
// and only a ground-truth directory walk replaces the estimate with the exact
// total. The estimate may over-report between walks, never under-report, so
// admission decisions err toward rejecting.
type sizeTracker struct {
	manager *SegmentManager

	// Best estimate of cumulative CDC-relevant disk usage since the last
	// ground-truth recalculation.
	sizeInProgress atomic.Int64

	// Bounds directory-walk frequency: one permit per disk check interval.
	limiter *rate.Limiter

	// Single-slot request queue for the recalculation worker. A nil channel
	// (tracker never started) makes submissions no-ops.
	requests chan struct{}
	done     chan struct{}
	cancel   context.CancelFunc
}

func newSizeTracker(m *SegmentManager) *sizeTracker {
	return &sizeTracker{
		manager: m,
		limiter: rate.NewLimiter(rate.Every(m.opts.CDCOptions.DiskCheckInterval), 1),
	}
}

// start resets the estimate and launches the single recalculation worker.
func (t *sizeTracker) start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)

	t.cancel = cancel
	t.sizeInProgress.Store(0)
	t.requests = make(chan struct{}, 1)
	t.done = make(chan struct{})

	go t.run(ctx)
}

// shutdown stops accepting new submissions and waits for any in-flight walk to
// wind down. The estimate is safe to leave at its last known value.
func (t *sizeTracker) shutdown() {
	if t.cancel == nil {
		return
	}
	t.cancel()
	<-t.done
}

func (t *sizeTracker) run(ctx context.Context) {
	defer close(t.done)

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.requests:
			t.recalculateOverflowSize(ctx)
		}
	}
}

// processNewSegment decides a freshly created segment's CDC state from the
// current estimate against the budget, runs non-blocking overflow relief, and
// charges the nominal segment size for segments permitted to hold CDC data.
//
// Runs under the segment's own CDC lock to serialize with a concurrent discard
// or re-evaluation of the same segment. A synchronous directory walk here
// would stall new segment allocation, so reconciliation is deferred to the
// async worker instead.
func (t *sizeTracker) processNewSegment(s *segment.Segment) {
	s.CDCLock()

	segmentSize := t.defaultSegmentSize()
	allowance := t.allowableCDCBytes()
	blocking := t.manager.opts.CDCOptions.BlockWrites

	state := domain.CDCPermitted
	if blocking && segmentSize+t.sizeInProgress.Load() > allowance {
		state = domain.CDCForbidden
	}
	if err := s.SetCDCStateLocked(state); err != nil {
		t.manager.log.Warnw("cdc state decision skipped", "segment", s.ID(), "error", err)
	}

	// Remove the oldest cdc segment file while exceeding the storage allowance.
	for !blocking && segmentSize+t.sizeInProgress.Load() > allowance {
		released, err := t.manager.DeleteOldestLinkedCDCSegment()
		if err != nil {
			// Nothing left to evict (or the file refused to go) despite being
			// over budget: an invariant violation, escalated rather than
			// retried. Breaking keeps the loop bounded.
			t.manager.onCommitError("cdc overflow relief", err)
			break
		}

		t.sizeInProgress.Add(-released)
		if t.manager.metrics != nil {
			t.manager.metrics.EvictedCDCSegments.Inc()
		}
		t.manager.log.Debugw("freed oldest cdc segment in non-blocking mode",
			"releasedBytes", released,
			"totalBytes", t.sizeInProgress.Load()+segmentSize,
			"allowanceBytes", allowance,
		)
	}

	// Aggressively count in the estimated size of the new segment. Actual
	// bytes accrue gradually; the walk reconciles the difference later.
	if s.CDCStateLocked() == domain.CDCPermitted {
		t.sizeInProgress.Add(segmentSize)
	}

	s.CDCUnlock()

	// Take this opportunity to pick up any consumer file deletion.
	t.submitOverflowSizeRecalculation()
}

// processDiscardedSegment reverses the bookkeeping from processNewSegment.
// Same per-segment lock discipline.
func (t *sizeTracker) processDiscardedSegment(s *segment.Segment) {
	s.CDCLock()

	// Account the real on-disk usage before releasing the provisional charge
	// so there is no window where the tracker under-counts.
	if s.CDCStateLocked() == domain.CDCContains {
		t.sizeInProgress.Add(s.OnDiskSize())
	}

	// For a segment that reached Contains this nets actual minus estimated;
	// for one still Permitted the files are deleted and the charge is simply
	// returned. Forbidden segments were never charged.
	if s.CDCStateLocked() != domain.CDCForbidden {
		t.sizeInProgress.Add(-t.defaultSegmentSize())
	}

	s.CDCUnlock()

	t.submitOverflowSizeRecalculation()
}

// submitOverflowSizeRecalculation requests an asynchronous ground-truth
// recalculation. At most one request is held while another runs; extra
// submissions are dropped since the pending walk satisfies their intent. This
// keeps write pressure from turning into a storm of directory walks.
func (t *sizeTracker) submitOverflowSizeRecalculation() {
	select {
	case t.requests <- struct{}{}:
	default:
	}
}

// Runs on the worker only. Waits out the rate limiter, walks the CDC
// directory, and re-evaluates the active segment if it was forbidden - the
// walk may have found the estimate was pessimistic, or eviction may now apply.
func (t *sizeTracker) recalculateOverflowSize(ctx context.Context) {
	if err := t.limiter.Wait(ctx); err != nil {
		return // shutting down
	}

	t.calculateSize()

	if active := t.manager.AllocatingFrom(); active != nil && active.CDCState() == domain.CDCForbidden {
		t.processNewSegment(active)
	}
}

// calculateSize overwrites the estimate with the exact sum of file sizes under
// the CDC directory. Walk failures indicate a storage malfunction and are
// escalated through the commit-failure hook, not retried here.
func (t *sizeTracker) calculateSize() {
	total, err := t.manager.fs.DirSize(t.manager.opts.CDCOptions.Directory)
	if err != nil {
		t.manager.onCommitError("cdc size calculation", err)
		return
	}

	t.sizeInProgress.Store(total)

	if t.manager.metrics != nil {
		t.manager.metrics.SizeRecalculations.Inc()
		t.manager.metrics.CDCSizeInProgress.Set(float64(total))
	}
}

// updateTotalSize runs the walk inline and returns the reconciled estimate.
// Diagnostic use only; racing with the worker is benign because both sides
// write ground truth.
func (t *sizeTracker) updateTotalSize() int64 {
	t.calculateSize()
	return t.sizeInProgress.Load()
}

func (t *sizeTracker) addSize(size int64) {
	t.sizeInProgress.Add(size)
}

func (t *sizeTracker) defaultSegmentSize() int64 {
	return t.manager.opts.SegmentOptions.MaxSegmentSize
}

func (t *sizeTracker) allowableCDCBytes() int64 {
	return t.manager.opts.CDCOptions.TotalSpace
}
