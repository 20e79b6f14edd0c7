package domain

// Mutation is a single durable write handed to the segment manager. The payload
// arrives already serialized; this subsystem never inspects or re-encodes it.
type Mutation struct {
	// Keyspace names the logical owner of the write. Used in rejection messages
	// so operators know which workload is being throttled.
	Keyspace string

	// Payload contains the serialized mutation bytes to persist.
	Payload []byte

	// TrackedByCDC marks the mutation as belonging to a CDC-enabled table.
	// Tracked mutations are subject to the CDC admission policy and flip their
	// segment to CDCContains on success.
	TrackedByCDC bool
}
