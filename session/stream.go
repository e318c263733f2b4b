package session

// Subscribe returns a channel that receives every state the machine transitions
// to, and a cancel function that closes it. A slow consumer never blocks a
// transition: when the channel buffer is full the oldest pending value is
// dropped so the newest state is always delivered.
func (m *Machine) Subscribe(buffer int) (<-chan State, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan State, buffer)

	m.subsMu.Lock()
	id := m.nextSubID
	m.nextSubID++
	m.subs[id] = ch
	m.subsMu.Unlock()

	cancel := func() {
		m.subsMu.Lock()
		defer m.subsMu.Unlock()
		if c, ok := m.subs[id]; ok {
			delete(m.subs, id)
			close(c)
		}
	}
	return ch, cancel
}

func (m *Machine) publish(s State) {
	m.subsMu.Lock()
	defer m.subsMu.Unlock()

	for _, ch := range m.subs {
		deliverLatest(ch, s)
	}
}

func deliverLatest(ch chan State, s State) {
	for {
		select {
		case ch <- s:
			return
		default:
		}
		// Full: drop the oldest pending value and retry.
		select {
		case <-ch:
		default:
		}
	}
}
