package segment

import (
	"fmt"

	"github.com/iamNilotpal/commitlog/internal/core/domain"
)

// Config holds the parameters for creating a new segment.
type Config struct {
	// SegmentId is the unique identifier for this segment. Each segment in the
	// commit log has a unique, monotonically increasing id; creation order
	// defines segment age.
	SegmentId uint64

	// Options contains the commit log configuration the segment operates under.
	Options *domain.Options
}

// Allocation is the handle returned by a successful reservation. It pins a
// byte range inside a segment; the caller persists the mutation through it.
type Allocation struct {
	segment *Segment
	offset  int64
	length  int64
}

// Segment returns the segment the reservation belongs to.
func (a *Allocation) Segment() *Segment {
	return a.segment
}

// Offset returns the byte position of the reserved range within the segment.
func (a *Allocation) Offset() int64 {
	return a.offset
}

// Length returns the size of the reserved range in bytes.
func (a *Allocation) Length() int64 {
	return a.length
}

// Write persists the payload bytes at the reserved offset. The payload must
// fit within the reservation.
func (a *Allocation) Write(payload []byte) error {
	if int64(len(payload)) > a.length {
		return fmt.Errorf("payload of %d bytes exceeds reservation of %d bytes", len(payload), a.length)
	}
	return a.segment.writeAt(payload, a.offset)
}
