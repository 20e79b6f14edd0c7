package segment_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iamNilotpal/commitlog/internal/core/domain"
	"github.com/iamNilotpal/commitlog/internal/core/services/segment"
)

func newTestSegment(t *testing.T, maxSize int64) *segment.Segment {
	t.Helper()

	dir := t.TempDir()
	cdcDir := filepath.Join(dir, "cdc_raw")
	require.NoError(t, os.MkdirAll(cdcDir, 0755))

	s, err := segment.NewSegment(&segment.Config{
		SegmentId: 1,
		Options: &domain.Options{
			Directory:      dir,
			SegmentOptions: &domain.SegmentOptions{Prefix: "segment-", MaxSegmentSize: maxSize},
			CDCOptions:     &domain.CDCOptions{Enabled: true, Directory: cdcDir},
		},
	})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNewSegmentPaths(t *testing.T) {
	s := newTestSegment(t, 1024)

	require.Equal(t, "segment-1.log", filepath.Base(s.Path()))
	require.Equal(t, "segment-1.log", filepath.Base(s.CDCPath()))
	require.Equal(t, "segment-1_cdc.idx", filepath.Base(s.CDCIndexPath()))

	_, err := os.Stat(s.Path())
	require.NoError(t, err)
}

func TestReserveBounds(t *testing.T) {
	s := newTestSegment(t, 100)

	first := s.Reserve(60)
	require.NotNil(t, first)
	require.Equal(t, int64(0), first.Offset())
	require.Equal(t, int64(60), first.Length())

	// 60 + 50 exceeds the segment, 60 + 40 fits exactly.
	require.Nil(t, s.Reserve(50))
	second := s.Reserve(40)
	require.NotNil(t, second)
	require.Equal(t, int64(60), second.Offset())

	// Segment is now full.
	require.Nil(t, s.Reserve(1))
}

func TestReserveRejectsInvalidSizes(t *testing.T) {
	s := newTestSegment(t, 100)
	require.Nil(t, s.Reserve(0))
	require.Nil(t, s.Reserve(-5))
}

func TestAllocationWrite(t *testing.T) {
	s := newTestSegment(t, 1024)

	payload := []byte("first mutation")
	alloc := s.Reserve(int64(len(payload)))
	require.NotNil(t, alloc)
	require.NoError(t, alloc.Write(payload))
	require.Equal(t, int64(len(payload)), s.OnDiskSize())

	// Payloads larger than the reservation are refused.
	small := s.Reserve(4)
	require.NotNil(t, small)
	require.Error(t, small.Write([]byte("too large for reservation")))

	// The hard link shares the inode, so bytes show up under the CDC path too.
	require.NoError(t, os.Link(s.Path(), s.CDCPath()))
	info, err := os.Stat(s.CDCPath())
	require.NoError(t, err)
	require.Equal(t, int64(len(payload)), info.Size())
}

func TestCDCStateTransitions(t *testing.T) {
	s := newTestSegment(t, 1024)

	// Creation-time decision.
	s.CDCLock()
	require.NoError(t, s.SetCDCStateLocked(domain.CDCForbidden))
	// Re-evaluation may lift the ban.
	require.NoError(t, s.SetCDCStateLocked(domain.CDCPermitted))
	// Downgrading a live segment is illegal.
	require.Error(t, s.SetCDCStateLocked(domain.CDCForbidden))
	s.CDCUnlock()

	require.Equal(t, domain.CDCPermitted, s.CDCState())

	// First CDC write, then idempotent repeats.
	require.NoError(t, s.MarkCDCContains())
	require.NoError(t, s.MarkCDCContains())
	require.Equal(t, domain.CDCContains, s.CDCState())

	// Contains is sticky.
	s.CDCLock()
	require.Error(t, s.SetCDCStateLocked(domain.CDCPermitted))
	require.Error(t, s.SetCDCStateLocked(domain.CDCForbidden))
	s.CDCUnlock()
}

func TestMarkCDCContainsOnForbiddenSegment(t *testing.T) {
	s := newTestSegment(t, 1024)

	s.CDCLock()
	require.NoError(t, s.SetCDCStateLocked(domain.CDCForbidden))
	s.CDCUnlock()

	require.Error(t, s.MarkCDCContains())
	require.Equal(t, domain.CDCForbidden, s.CDCState())
}

func TestCloseIsIdempotent(t *testing.T) {
	s := newTestSegment(t, 1024)

	require.NoError(t, s.Close())
	require.Equal(t, segment.ErrSegmentClosed, s.Close())
	require.Nil(t, s.Reserve(10))
}
