package live

import (
	"context"
	"sync"
)

// Switch composes two live queries. Every outer snapshot derives a new inner
// query; the running inner subscription is cancelled and drained before the
// derived one is opened, so inner deliveries never interleave. Outer errors
// and inner errors both go to onError. Cancelling the returned handle tears
// down both levels.
func Switch[O, I any](e *Engine, outer Query[O], inner func(O) Query[I], onSnapshot func(I), onError func(error)) *Handle {
	ctx, cancel := context.WithCancel(e.ctx)
	h, ok := e.register(ctx, cancel, outer.Name+".switch")
	if !ok {
		return h
	}

	var (
		mu  sync.Mutex
		cur *Handle
	)
	outerHandle := watch(e, ctx, outer, func(o O) {
		mu.Lock()
		prev := cur
		mu.Unlock()
		if prev != nil {
			prev.Cancel()
			<-prev.Done()
		}
		if ctx.Err() != nil {
			return
		}
		next := watch(e, ctx, inner(o), onSnapshot, onError)
		mu.Lock()
		cur = next
		mu.Unlock()
	}, onError)

	go func() {
		defer e.release(h)
		<-ctx.Done()
		<-outerHandle.Done()
		mu.Lock()
		last := cur
		mu.Unlock()
		if last != nil {
			<-last.Done()
		}
	}()
	return h
}
