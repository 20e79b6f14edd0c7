package segment

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	// LogFileSuffix terminates every commit log segment file name.
	LogFileSuffix = ".log"

	// CDCIndexSuffix terminates the CDC index file derived from a segment file.
	// The index file marks the linked segment as tracked/completed for CDC
	// consumption; a shadow file without one was never handed to a consumer.
	CDCIndexSuffix = "_cdc.idx"
)

// FileName builds a segment file name from the configured prefix and the
// segment id. For example: "segment-0.log", "segment-1.log", etc.
func FileName(prefix string, id uint64) string {
	return fmt.Sprintf("%s%d%s", prefix, id, LogFileSuffix)
}

// IsValidFileName reports whether name follows the segment descriptor
// convention: prefix, decimal id, ".log". Eviction candidates are filtered
// through this so stray files in the CDC directory are never deleted.
func IsValidFileName(prefix, name string) bool {
	_, err := ParseID(prefix, name)
	return err == nil
}

// ParseID extracts the segment id encoded in a segment file name.
func ParseID(prefix, name string) (uint64, error) {
	if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, LogFileSuffix) {
		return 0, fmt.Errorf("malformed segment file name %q", name)
	}

	raw := strings.TrimSuffix(strings.TrimPrefix(name, prefix), LogFileSuffix)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed segment id in %q : %w", name, err)
	}

	return id, nil
}

// InferCDCIndexName derives the CDC index file name from a segment file name.
// "segment-7.log" becomes "segment-7_cdc.idx".
func InferCDCIndexName(name string) string {
	return strings.TrimSuffix(name, LogFileSuffix) + CDCIndexSuffix
}
