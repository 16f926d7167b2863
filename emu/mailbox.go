package emu

// portWrite is a mailbox write stamped with the writer's master cycle.
type portWrite struct {
	Port  uint8
	Value uint8
	At    uint64
}

// portSlot is a single-slot channel: a new write first commits whatever
// is still pending, so at most one value is ever in flight.
type portSlot struct {
	value   uint8
	pending uint8
	stamp   uint64
	full    bool
}

// mailbox is one direction of the four CPU/APU communication ports.
// A value written at master cycle t is visible only to reads at cycles
// strictly greater than t.
type mailbox struct {
	slots [4]portSlot
}

func (m *mailbox) write(port int, v uint8, at uint64) {
	s := &m.slots[port&3]
	if s.full {
		s.value = s.pending
	}
	s.pending = v
	s.stamp = at
	s.full = true
}

func (m *mailbox) read(port int, at uint64) uint8 {
	s := &m.slots[port&3]
	if s.full && s.stamp < at {
		s.value = s.pending
		s.full = false
	}
	return s.value
}

// clear zeroes a port, discarding any pending write. The APU's CONTROL
// register does this for its input ports.
func (m *mailbox) clear(port int) {
	m.slots[port&3] = portSlot{}
}

func (m *mailbox) reset() {
	m.slots = [4]portSlot{}
}
