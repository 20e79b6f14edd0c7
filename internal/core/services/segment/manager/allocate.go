package sm

import (
	"fmt"

	"github.com/iamNilotpal/commitlog/internal/core/domain"
	"github.com/iamNilotpal/commitlog/internal/core/services/segment"
	pkgerrors "github.com/iamNilotpal/commitlog/pkg/errors"
)

// Allocate reserves space in the current segment for the provided mutation or,
// if there isn't room, advances to a new segment and retries. For CDC-tracked
// mutations, allocation fails with a CDCWriteError when the segment disallows
// CDC writes; every other failure comes from the segment lifecycle itself.
//
// The call never blocks on I/O: reservations are CAS-based, and the
// recalculation triggered by a rejection runs on the tracker's worker.
func (m *SegmentManager) Allocate(mutation *domain.Mutation, size int64) (*segment.Allocation, error) {
	if mutation == nil {
		return nil, pkgerrors.NewValidationError("mutation", nil, fmt.Errorf("mutation is required"))
	}
	if size <= 0 || size > m.opts.SegmentOptions.MaxSegmentSize {
		return nil, pkgerrors.NewValidationError(
			"size", size,
			fmt.Errorf("mutation size must be between 1 and %d bytes", m.opts.SegmentOptions.MaxSegmentSize),
		)
	}

	active := m.AllocatingFrom()
	if err := m.throwIfForbidden(mutation, active); err != nil {
		return nil, err
	}

	var alloc *segment.Allocation
	for alloc = active.Reserve(size); alloc == nil; alloc = active.Reserve(size) {
		// Failed to reserve, so move to a new segment with enough room.
		if err := m.advanceAllocatingFrom(active); err != nil {
			return nil, err
		}
		active = m.AllocatingFrom()

		if err := m.throwIfForbidden(mutation, active); err != nil {
			return nil, err
		}
	}

	if m.cdcTracked(mutation) {
		if err := active.MarkCDCContains(); err != nil {
			return nil, err
		}
	}

	return alloc, nil
}

// Rejects a CDC-tracked mutation when the segment forbids CDC writes. The
// rejection kicks off a best-effort recalculation so transient overestimates
// self-correct without blocking the caller.
func (m *SegmentManager) throwIfForbidden(mutation *domain.Mutation, s *segment.Segment) error {
	if !m.cdcTracked(mutation) || s.CDCState() != domain.CDCForbidden {
		return nil
	}

	m.tracker.submitOverflowSizeRecalculation()

	if m.metrics != nil {
		m.metrics.RejectedCDCWrites.Inc()
	}

	err := pkgerrors.NewCDCWriteError(mutation.Keyspace, m.opts.CDCOptions.Directory)
	m.log.Warnw("rejecting cdc mutation",
		"keyspace", mutation.Keyspace,
		"cdcDirectory", m.opts.CDCOptions.Directory,
	)
	return err
}

func (m *SegmentManager) cdcTracked(mutation *domain.Mutation) bool {
	return m.opts.CDCOptions.Enabled && mutation.TrackedByCDC
}
