package link

// loop is the connection's private event-processing context.  Each
// asynchronous step runs its blocking half on a goroutine and posts a
// completion handler here; Poll and Run execute handlers on the
// caller's goroutine, so all connection state is mutated from one
// place.  At most one step is outstanding per connection, which keeps
// the channel small and the ordering strict: a handler is the only
// thing that starts the next step.
type loop struct {
	events chan func()
}

func newLoop() *loop {
	return &loop{events: make(chan func(), 4)}
}

// post queues a completion handler for the next Poll/Run.
func (l *loop) post(h func()) {
	l.events <- h
}

// drain runs every handler that is already queued, without blocking,
// and returns how many it executed.
func (l *loop) drain() int {
	n := 0
	for {
		select {
		case h := <-l.events:
			h()
			n++
		default:
			return n
		}
	}
}

// next blocks for one handler and runs it.
func (l *loop) next() {
	h := <-l.events
	h()
}
