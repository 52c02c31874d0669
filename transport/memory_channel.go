package transport

import "sync"

// MemoryChannel is an in-memory Channel implementation connecting two ends
// of a pipe, letting listener.go's broker loop be tested without a real
// ZeroMQ socket.
type MemoryChannel struct {
	in  chan [][]byte
	out chan [][]byte

	closeOnce sync.Once
	closed    chan struct{}
}

// NewMemoryChannelPair returns two MemoryChannels wired to each other: what
// one side Sends, the other side Recvs.
func NewMemoryChannelPair(bufSize int) (a, b *MemoryChannel) {
	c1 := make(chan [][]byte, bufSize)
	c2 := make(chan [][]byte, bufSize)
	closed := make(chan struct{})
	a = &MemoryChannel{in: c1, out: c2, closed: closed}
	b = &MemoryChannel{in: c2, out: c1, closed: closed}
	return a, b
}

func (m *MemoryChannel) Recv() ([][]byte, error) {
	select {
	case frames := <-m.in:
		return frames, nil
	case <-m.closed:
		return nil, ErrChannelClosed
	}
}

func (m *MemoryChannel) Send(frames [][]byte) error {
	select {
	case m.out <- frames:
		return nil
	case <-m.closed:
		return ErrChannelClosed
	}
}

func (m *MemoryChannel) Close() error {
	m.closeOnce.Do(func() { close(m.closed) })
	return nil
}
