package sm

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path string, size int) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0o644))
}

func TestHandleReplayedSegmentDeletesOrphanedShadow(t *testing.T) {
	opts := testOptions(t)
	m := newUnstartedManager(t, opts)

	logPath := filepath.Join(opts.Directory, "segment-3.log")
	shadowPath := filepath.Join(opts.CDCOptions.Directory, "segment-3.log")
	writeFile(t, logPath, 10)
	writeFile(t, shadowPath, 10)

	m.HandleReplayedSegment(logPath)

	_, err := os.Stat(shadowPath)
	require.True(t, os.IsNotExist(err))
}

func TestHandleReplayedSegmentKeepsShadowWithIndex(t *testing.T) {
	opts := testOptions(t)
	m := newUnstartedManager(t, opts)

	logPath := filepath.Join(opts.Directory, "segment-3.log")
	shadowPath := filepath.Join(opts.CDCOptions.Directory, "segment-3.log")
	indexPath := filepath.Join(opts.CDCOptions.Directory, "segment-3_cdc.idx")
	writeFile(t, logPath, 10)
	writeFile(t, shadowPath, 10)
	writeFile(t, indexPath, 4)

	m.HandleReplayedSegment(logPath)

	// A consumer already opened this shadow; both files survive replay.
	_, err := os.Stat(shadowPath)
	require.NoError(t, err)
	_, err = os.Stat(indexPath)
	require.NoError(t, err)
}

func TestHandleReplayedSegmentNoopWhenCDCDisabled(t *testing.T) {
	opts := testOptions(t)
	opts.CDCOptions.Enabled = false
	m := newUnstartedManager(t, opts)

	logPath := filepath.Join(opts.Directory, "segment-3.log")
	shadowPath := filepath.Join(opts.CDCOptions.Directory, "segment-3.log")
	writeFile(t, logPath, 10)
	writeFile(t, shadowPath, 10)

	m.HandleReplayedSegment(logPath)

	_, err := os.Stat(shadowPath)
	require.NoError(t, err)
}

func TestHandleReplayedSegmentIgnoresMissingShadow(t *testing.T) {
	opts := testOptions(t)
	m := newUnstartedManager(t, opts)

	logPath := filepath.Join(opts.Directory, "segment-9.log")
	writeFile(t, logPath, 10)

	// Nothing to clean up; must not invent work or fail.
	m.HandleReplayedSegment(logPath)
}
