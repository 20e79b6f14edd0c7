package system

import (
	"context"
)

// RunWithContext executes a shutdown-style operation with context awareness.
// The operation runs on its own goroutine with an independent context so that
// cancelling the caller's context signals the operation to stop without
// abandoning it mid-cleanup.
//
// Returns:
//   - nil if the operation completes successfully.
//   - the operation's error if it fails.
//   - the operation's eventual result if the caller's context is cancelled;
//     the operation is signalled but still waited on so resources are not leaked.
func RunWithContext(ctx context.Context, operation func(context.Context) error) error {
	// Fast feedback if the caller was already cancelled before we started.
	if err := ctx.Err(); err != nil {
		return err
	}

	opCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Buffered so the goroutine can exit even if nobody reads immediately.
	done := make(chan error, 1)

	go func() {
		done <- operation(opCtx)
		close(done)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		// Signal the operation to stop, then wait for it to wind down.
		cancel()
		return <-done
	}
}
