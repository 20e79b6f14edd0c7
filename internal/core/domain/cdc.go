package domain

// CDCState describes a segment's position in its CDC lifecycle. The state is
// decided once when the segment is created, based on the tracker's current
// estimate against the configured budget, and only advances afterwards.
type CDCState uint8

const (
	// CDCPermitted means the segment may accept CDC-tracked writes.
	// Assigned at creation when the budget has headroom.
	CDCPermitted CDCState = iota + 1

	// CDCForbidden means the segment must reject CDC-tracked writes.
	// Assigned at creation (or re-evaluation of the active segment) when the
	// budget is exhausted and blocking mode is active. A live segment is never
	// downgraded back to CDCForbidden; freed space benefits new segments only.
	CDCForbidden

	// CDCContains means the segment holds at least one CDC-tracked write.
	// Entered on the first admitted CDC write to a permitted segment and sticky
	// for the rest of the segment's life.
	CDCContains
)

// String returns the string representation of the CDCState.
func (s CDCState) String() string {
	switch s {
	case CDCPermitted:
		return "permitted"
	case CDCForbidden:
		return "forbidden"
	case CDCContains:
		return "contains"
	default:
		return "unknown"
	}
}

// IsValid checks if the CDCState is a known valid state.
func (s CDCState) IsValid() bool {
	return s >= CDCPermitted && s <= CDCContains
}
