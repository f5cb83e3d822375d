package reactor

// Cancel marks fd as canceled. The mark is advisory: nothing in flight is
// interrupted, long running operations are expected to poll IsCanceled.
func (r *Reactor) Cancel(fd int) {
	if fd < 0 {
		return
	}
	r.canceled[fd] = true
}

func (r *Reactor) IsCanceled(fd int) bool {
	return r.canceled[fd]
}

func (r *Reactor) ClearCancel(fd int) {
	delete(r.canceled, fd)
}
