package sim

import "sync"

// Target is a device attached to the simulated bus.
type Target interface {
	// Start is called when the target's address is on the bus and
	// returns whether it acknowledges.
	Start(read bool) bool
	// Write delivers a byte and returns whether it is acknowledged.
	Write(b byte) bool
	// Read produces the next byte. ack tells whether the master
	// will acknowledge it and continue.
	Read(ack bool) byte
	// Stop ends the transaction.
	Stop()
}

// Memory is a register-pointer target like a small EEPROM or a sensor
// register file. The first byte of a write selects the register pointer,
// later bytes are stored at the pointer; reads start at the pointer.
// The pointer advances after every byte and wraps.
type Memory struct {
	// Busy is the number of upcoming address phases to refuse.
	Busy int

	lock    sync.Mutex
	data    []byte
	ptr     int
	pointer bool
}

// NewMemory creates a Memory of size bytes, at most 256.
func NewMemory(size int) *Memory {
	if size <= 0 || size > 256 {
		panic("sim: memory size must be within 1..256")
	}
	return &Memory{data: make([]byte, size)}
}

// Start implements Target.
func (m *Memory) Start(read bool) bool {
	m.lock.Lock()
	defer m.lock.Unlock()
	if m.Busy > 0 {
		m.Busy--
		return false
	}
	m.pointer = !read
	return true
}

// Write implements Target.
func (m *Memory) Write(b byte) bool {
	m.lock.Lock()
	defer m.lock.Unlock()
	if m.pointer {
		m.ptr, m.pointer = int(b)%len(m.data), false
		return true
	}
	m.data[m.ptr] = b
	m.advance()
	return true
}

// Read implements Target.
func (m *Memory) Read(ack bool) byte {
	m.lock.Lock()
	defer m.lock.Unlock()
	b := m.data[m.ptr]
	m.advance()
	return b
}

// Stop implements Target.
func (m *Memory) Stop() {}

// Bytes returns a copy of the memory content.
func (m *Memory) Bytes() []byte {
	m.lock.Lock()
	defer m.lock.Unlock()
	return append([]byte(nil), m.data...)
}

// Load copies data into memory starting at offset.
func (m *Memory) Load(offset int, data []byte) {
	m.lock.Lock()
	defer m.lock.Unlock()
	copy(m.data[offset:], data)
}

// SetBusy refuses the next n address phases.
func (m *Memory) SetBusy(n int) {
	m.lock.Lock()
	m.Busy = n
	m.lock.Unlock()
}

func (m *Memory) advance() {
	if m.ptr++; m.ptr >= len(m.data) {
		m.ptr = 0
	}
}
