// internal/session/context.go
package session

import "context"

// CombineContext creates a context cancelled when either parent is done. The
// page handle's lifecycle context and the caller's per-operation context must
// both be able to abort a browser action.
func CombineContext(parentCtx, secondaryCtx context.Context) (context.Context, context.CancelFunc) {
	combinedCtx, cancel := context.WithCancel(parentCtx)

	go func() {
		select {
		case <-secondaryCtx.Done():
			cancel()
		case <-combinedCtx.Done():
		}
	}()

	return combinedCtx, cancel
}
