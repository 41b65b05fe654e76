package sequans

// ctsEdge remembers the CTS level last handed to a handler. It belongs to
// the goroutine that delivers notifications.
type ctsEdge struct {
	known bool
	last  bool
}

// observe passes level to fn unless fn has already been given it. Nothing
// is recorded while fn is nil, so a handler installed later is always told
// the current level first.
func (e *ctsEdge) observe(level bool, fn func(asserted bool)) {
	if fn == nil {
		return
	}
	if e.known && e.last == level {
		return
	}
	e.known = true
	e.last = level
	fn(level)
}

// reset forgets the delivered level, for a newly installed handler
func (e *ctsEdge) reset() {
	e.known = false
}
