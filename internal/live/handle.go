package live

import "context"

// Handle identifies one live subscription.
//
// Cancel stops future deliveries. A snapshot whose delivery has not started
// when Cancel returns is dropped; a callback already running is allowed to
// finish. Done is closed once the subscription's goroutine has exited.
type Handle struct {
	id     uint64
	name   string
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// Cancel is idempotent, non-blocking and safe on a nil handle.
func (h *Handle) Cancel() {
	if h == nil {
		return
	}
	h.cancel()
}

// Done is closed when the subscription has fully stopped. A nil handle
// reports as already stopped.
func (h *Handle) Done() <-chan struct{} {
	if h == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return h.done
}

// Cancelled reports whether Cancel was called or the engine closed.
func (h *Handle) Cancelled() bool {
	return h == nil || h.ctx.Err() != nil
}

// Name returns the query name the handle was registered with.
func (h *Handle) Name() string {
	if h == nil {
		return ""
	}
	return h.name
}

// Stop cancels h and waits for it to drain. It must not be called from
// inside h's own callbacks.
func Stop(h *Handle) {
	if h == nil {
		return
	}
	h.Cancel()
	<-h.done
}
