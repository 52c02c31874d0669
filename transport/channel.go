package transport

import "errors"

// ErrChannelClosed is returned by Recv/Send once a Channel has been closed.
var ErrChannelClosed = errors.New("transport: channel closed")

// A Channel is a duplex, multi-frame message transport: the abstraction the
// Listener is built against instead of a concrete *zmq.Socket, so the
// broker loop in listener.go can be exercised in tests without a real
// ZeroMQ context. ZMQChannel is the production implementation; MemoryChannel
// is the in-test substitute.
//
// Since this transport's clients are DEALER sockets talking directly to a
// ROUTER frontend, each inbound message is exactly
// [routingIdentity, envelopePayload], and each outbound reply mirrors the
// same two frames back to the same identity.
type Channel interface {
	// Recv blocks until a multi-frame message arrives, or the channel is
	// closed.
	Recv() ([][]byte, error)
	// Send writes a multi-frame message.
	Send(frames [][]byte) error
	// Close releases the underlying transport resource.
	Close() error
}
