package scene

// Loop is the single-threaded deferred-call queue of the host event loop.
//
// CallDeferred only queues; the host calls Flush at its safe point (end of frame).
// Work deferred while a flush is running is held for the next flush, so a swap
// followed by its tree-changed notification spans two flushes.
type Loop struct {
	queue []func()
}

// NewLoop returns an empty loop.
func NewLoop() *Loop { return &Loop{} }

// CallDeferred queues fn for the next Flush. Nil is ignored.
func (l *Loop) CallDeferred(fn func()) {
	if fn == nil {
		return
	}
	l.queue = append(l.queue, fn)
}

// Pending returns the number of queued calls.
func (l *Loop) Pending() int { return len(l.queue) }

// Flush runs the calls queued before it started and returns how many ran.
func (l *Loop) Flush() int {
	batch := l.queue
	l.queue = nil
	for _, fn := range batch {
		fn()
	}
	return len(batch)
}

// Drain flushes until the queue is empty or maxFlushes is reached, returning the
// number of flushes performed.
func (l *Loop) Drain(maxFlushes int) int {
	n := 0
	for n < maxFlushes && len(l.queue) > 0 {
		l.Flush()
		n++
	}
	return n
}
