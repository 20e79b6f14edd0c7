package sm

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/iamNilotpal/commitlog/internal/core/domain"
	"github.com/iamNilotpal/commitlog/internal/core/ports"
	"github.com/iamNilotpal/commitlog/internal/core/services/segment"
	"github.com/iamNilotpal/commitlog/pkg/metrics"
)

// Writes payload through a fresh reservation so the linked CDC file grows too.
func fillSegment(t *testing.T, s *segment.Segment, n int) {
	t.Helper()
	alloc := s.Reserve(int64(n))
	require.NotNil(t, alloc)
	require.NoError(t, alloc.Write(make([]byte, n)))
}

// Estimate conservatism: a Permitted segment is charged exactly one nominal
// segment size at creation, and the charge is returned on discard.
func TestEstimateChargeAndRelease(t *testing.T) {
	m := newUnstartedManager(t, testOptions(t))

	s, err := m.CreateSegment()
	require.NoError(t, err)
	require.Equal(t, int64(testSegmentSize), m.tracker.sizeInProgress.Load())

	m.Discard(s, true)
	require.Equal(t, int64(0), m.tracker.sizeInProgress.Load())
}

// A segment that reached Contains settles at its actual on-disk size: the real
// usage is added before the provisional charge is removed.
func TestEstimateSettlesAtActualSizeForContainsSegment(t *testing.T) {
	m := newUnstartedManager(t, testOptions(t))

	s, err := m.CreateSegment()
	require.NoError(t, err)
	require.Equal(t, int64(testSegmentSize), m.tracker.sizeInProgress.Load())

	require.NoError(t, s.MarkCDCContains())
	fillSegment(t, s, 300)

	m.Discard(s, false)
	require.Equal(t, int64(300), m.tracker.sizeInProgress.Load())
}

// A Forbidden segment is never charged, so its discard changes nothing.
func TestEstimateUntouchedByForbiddenSegment(t *testing.T) {
	opts := testOptions(t)
	opts.CDCOptions.TotalSpace = 0
	m := newUnstartedManager(t, opts)

	s, err := m.CreateSegment()
	require.NoError(t, err)
	require.Equal(t, domain.CDCForbidden, s.CDCState())
	require.Equal(t, int64(0), m.tracker.sizeInProgress.Load())

	m.Discard(s, true)
	require.Equal(t, int64(0), m.tracker.sizeInProgress.Load())
}

// Non-blocking mode evicts oldest-first until the projection fits and never
// forbids the new segment.
func TestNonBlockingModeEvictsUntilProjectionFits(t *testing.T) {
	opts := testOptions(t)
	opts.CDCOptions.BlockWrites = false
	opts.CDCOptions.TotalSpace = 2*testSegmentSize + 512
	m := newUnstartedManager(t, opts)

	first, err := m.CreateSegment()
	require.NoError(t, err)
	fillSegment(t, first, 600)

	// Distinct mod times make the eviction order deterministic.
	base := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(first.CDCPath(), base, base))

	second, err := m.CreateSegment()
	require.NoError(t, err)
	fillSegment(t, second, 500)
	require.Equal(t, int64(2*testSegmentSize), m.tracker.sizeInProgress.Load())

	// Projection 3*segmentSize exceeds the budget; the oldest linked file
	// (first's shadow, 600 bytes) goes, after which the projection fits.
	third, err := m.CreateSegment()
	require.NoError(t, err)
	require.Equal(t, domain.CDCPermitted, third.CDCState())

	exists, err := m.fs.Exists(first.CDCPath())
	require.NoError(t, err)
	require.False(t, exists, "oldest shadow should have been evicted")
	exists, err = m.fs.Exists(second.CDCPath())
	require.NoError(t, err)
	require.True(t, exists)

	require.Equal(t, int64(3*testSegmentSize-600), m.tracker.sizeInProgress.Load())
}

// Blocking mode never evicts; it forbids the new segment instead.
func TestBlockingModeForbidsInsteadOfEvicting(t *testing.T) {
	opts := testOptions(t)
	opts.CDCOptions.TotalSpace = testSegmentSize // headroom for exactly one segment
	m := newUnstartedManager(t, opts)

	first, err := m.CreateSegment()
	require.NoError(t, err)
	require.Equal(t, domain.CDCPermitted, first.CDCState())

	second, err := m.CreateSegment()
	require.NoError(t, err)
	require.Equal(t, domain.CDCForbidden, second.CDCState())

	exists, err := m.fs.Exists(first.CDCPath())
	require.NoError(t, err)
	require.True(t, exists, "blocking mode must not evict")
}

// Overflow relief with nothing to evict is an invariant violation and goes
// through the commit-failure hook instead of looping.
func TestNonBlockingOverflowWithoutCandidatesEscalates(t *testing.T) {
	opts := testOptions(t)
	opts.CDCOptions.BlockWrites = false
	opts.CDCOptions.TotalSpace = 0

	var escalated atomic.Int32
	opts.OnCommitError = func(operation string, err error) { escalated.Add(1) }

	m := newUnstartedManager(t, opts)
	m.onCommitError = opts.OnCommitError

	// The new segment's own shadow is the only candidate; once it is gone the
	// loop must stop through the hook rather than spin.
	s, err := m.CreateSegment()
	require.NoError(t, err)
	require.Equal(t, domain.CDCPermitted, s.CDCState())
	require.GreaterOrEqual(t, escalated.Load(), int32(1))
}

// Ground truth reconciliation: after a walk the estimate equals the exact sum
// of file sizes under the CDC directory, regardless of prior drift.
func TestRecalculationReconcilesEstimate(t *testing.T) {
	m := newUnstartedManager(t, testOptions(t))
	cdcDir := m.opts.CDCOptions.Directory

	require.NoError(t, os.WriteFile(filepath.Join(cdcDir, "segment-1.log"), make([]byte, 100), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(cdcDir, "segment-1_cdc.idx"), make([]byte, 20), 0644))

	m.tracker.addSize(999999) // drift
	require.Equal(t, int64(120), m.tracker.updateTotalSize())
	require.Equal(t, int64(120), m.tracker.sizeInProgress.Load())
}

func TestAddCDCSize(t *testing.T) {
	m := newUnstartedManager(t, testOptions(t))

	m.AddCDCSize(500)
	m.AddCDCSize(-200)
	require.Equal(t, int64(300), m.tracker.sizeInProgress.Load())
}

// slowFS holds every directory walk until released, so tests can pin the
// worker in the "running" state.
type slowFS struct {
	ports.FileSystemPort
	walkStarted chan struct{}
	release     chan struct{}
	walks       atomic.Int32
}

func (f *slowFS) DirSize(dirPath string) (int64, error) {
	f.walks.Add(1)
	f.walkStarted <- struct{}{}
	<-f.release
	return f.FileSystemPort.DirSize(dirPath)
}

// Idempotent scheduling: submissions made while a walk is queued or running
// collapse into exactly one follow-up walk.
func TestSubmitCollapsesWhileRecalculationRuns(t *testing.T) {
	opts := testOptions(t)
	opts.CDCOptions.DiskCheckInterval = time.Millisecond
	m := newUnstartedManager(t, opts)

	sfs := &slowFS{
		FileSystemPort: m.fs,
		walkStarted:    make(chan struct{}, 16),
		release:        make(chan struct{}, 16),
	}
	m.fs = sfs
	m.metrics = metrics.New(prometheus.NewRegistry())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.tracker.start(ctx)
	defer m.tracker.shutdown()

	// First walk: submit and wait until the worker is inside it.
	m.tracker.submitOverflowSizeRecalculation()
	<-sfs.walkStarted

	// Five submissions while the walk runs: one occupies the queue slot, the
	// rest are dropped.
	for i := 0; i < 5; i++ {
		m.tracker.submitOverflowSizeRecalculation()
	}
	sfs.release <- struct{}{} // finish walk 1
	<-sfs.walkStarted         // the single queued request starts walk 2
	sfs.release <- struct{}{}

	require.Eventually(t, func() bool {
		return testutil.ToFloat64(m.metrics.SizeRecalculations) == 2
	}, 3*time.Second, 10*time.Millisecond)

	// No further walks happen.
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, int32(2), sfs.walks.Load())
}

// The background worker re-evaluates a Forbidden active segment after a walk:
// freed space can lift the ban for the segment currently allocating.
func TestRecalculationLiftsForbiddenActiveSegment(t *testing.T) {
	opts := testOptions(t)
	opts.CDCOptions.TotalSpace = testSegmentSize
	opts.CDCOptions.DiskCheckInterval = time.Millisecond
	m := newUnstartedManager(t, opts)

	first, err := m.CreateSegment()
	require.NoError(t, err)
	require.Equal(t, domain.CDCPermitted, first.CDCState())

	second, err := m.CreateSegment()
	require.NoError(t, err)
	require.Equal(t, domain.CDCForbidden, second.CDCState())

	m.mu.Lock()
	m.active = second
	m.mu.Unlock()

	// The first segment goes away entirely, freeing the budget.
	m.Discard(first, true)
	require.Equal(t, int64(0), m.tracker.sizeInProgress.Load())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.tracker.start(ctx)
	defer m.tracker.shutdown()

	m.tracker.submitOverflowSizeRecalculation()
	require.Eventually(t, func() bool {
		return second.CDCState() == domain.CDCPermitted
	}, 3*time.Second, 10*time.Millisecond)
}
