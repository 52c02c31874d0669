package transport

import (
	"fmt"
	"sync"

	zmq "github.com/pebbe/zmq4"

	"github.com/arashi-labs/meshrpc/securitymanager"
)

// ZMQChannel wraps a ZeroMQ ROUTER socket as a Channel: SetRouterMandatory
// so an unreachable peer surfaces as an error rather than being silently
// dropped, IPv6 enabled, and binding accepts any of the tcp://, ipc://,
// inproc:// schemes.
type ZMQChannel struct {
	sock *zmq.Socket

	mu sync.Mutex // zmq.Socket is not safe for concurrent Send+Recv from goroutines
}

// NewZMQListenerChannel creates a ROUTER socket bound to bindURL (one of
// tcp://host:port, ipc://path, inproc://name) and wraps it as a Channel.
// sec, if non-nil, applies CURVE/IP authentication to the socket before
// binding, mirroring securitymanager.ServerSecurityManager.ApplyToServerSocket.
func NewZMQListenerChannel(bindURL string, sec *securitymanager.ServerSecurityManager) (*ZMQChannel, error) {
	zmq.SetIpv6(true)

	sock, err := zmq.NewSocket(zmq.ROUTER)
	if err != nil {
		return nil, fmt.Errorf("transport: creating ROUTER socket: %w", err)
	}
	if err := sock.SetRouterMandatory(1); err != nil {
		sock.Close()
		return nil, fmt.Errorf("transport: SetRouterMandatory: %w", err)
	}

	if sec != nil {
		if err := sec.ApplyToServerSocket(sock); err != nil {
			sock.Close()
			return nil, fmt.Errorf("transport: applying security manager: %w", err)
		}
	}

	if err := sock.Bind(bindURL); err != nil {
		sock.Close()
		return nil, fmt.Errorf("transport: binding %q: %w", bindURL, err)
	}

	return &ZMQChannel{sock: sock}, nil
}

func (c *ZMQChannel) Recv() ([][]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sock.RecvMessageBytes(0)
}

func (c *ZMQChannel) Send(frames [][]byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := c.sock.SendMessage(frames)
	return err
}

func (c *ZMQChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sock.Close()
}
