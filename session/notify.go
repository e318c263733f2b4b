package session

type notification struct {
	state   State
	cleanup bool
}

func (m *Machine) enqueue(n notification) {
	m.notifyMu.Lock()
	defer m.notifyMu.Unlock()
	m.queue = append(m.queue, n)
}

// drain delivers queued notifications in order. Only one goroutine drains at a
// time; a caller that finds a drain running leaves its notification to it.
func (m *Machine) drain() {
	m.notifyMu.Lock()
	if m.draining {
		m.notifyMu.Unlock()
		return
	}
	m.draining = true
	m.notifyMu.Unlock()

	finished := false
	defer func() {
		// An observer panicked; let the next caller resume the queue.
		if !finished {
			m.notifyMu.Lock()
			m.draining = false
			m.notifyMu.Unlock()
		}
	}()

	for {
		m.notifyMu.Lock()
		if len(m.queue) == 0 {
			m.draining = false
			m.notifyMu.Unlock()
			finished = true
			return
		}
		n := m.queue[0]
		m.queue = m.queue[1:]
		m.notifyMu.Unlock()

		m.deliver(n)
	}
}

func (m *Machine) deliver(n notification) {
	o := m.currentObserver()
	if o == nil {
		return
	}
	if n.cleanup {
		o.OnSignedOutCleanup()
		return
	}
	o.OnStateChange(n.state)
}
