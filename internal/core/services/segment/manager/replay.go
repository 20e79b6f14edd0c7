package sm

import (
	"path/filepath"

	"github.com/iamNilotpal/commitlog/internal/core/services/segment"
)

// HandleReplayedSegment cleans up after a pre-existing segment file handed
// back by log replay. A CDC shadow file whose index file never appeared was
// never completed for a consumer and is deleted immediately; a shadow with a
// matching index is left for consumption. Delete failures are logged and do
// not abort replay.
func (m *SegmentManager) HandleReplayedSegment(path string) {
	if !m.opts.CDCOptions.Enabled {
		return
	}

	name := filepath.Base(path)
	cdcDir := m.opts.CDCOptions.Directory
	cdcPath := filepath.Join(cdcDir, name)
	cdcIndexPath := filepath.Join(cdcDir, segment.InferCDCIndexName(name))

	cdcExists, err := m.fs.Exists(cdcPath)
	if err != nil {
		m.log.Warnw("failed to inspect replayed cdc segment", "path", cdcPath, "error", err)
		return
	}
	indexExists, err := m.fs.Exists(cdcIndexPath)
	if err != nil {
		m.log.Warnw("failed to inspect cdc index file", "path", cdcIndexPath, "error", err)
		return
	}

	if cdcExists && !indexExists {
		m.log.Debugw("unopened cdc segment is no longer needed and will be deleted", "path", cdcPath)
		if err := m.fs.DeleteFile(cdcPath); err != nil {
			m.log.Warnw("failed to delete orphaned cdc segment", "path", cdcPath, "error", err)
		}
	}
}
