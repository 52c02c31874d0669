// Package client implements the RPC client side of the wire protocol: a
// DEALER socket connected to one or more directory or service listeners,
// round-robin request dispatch across peers, and a typed DirectoryClient
// for the directory's own control-plane RPCs. A DEALER socket is used
// instead of REQ because the Listener on the other end is a ROUTER and
// the client's retry-with-timeout loop doesn't need REQ's strict lockstep.
package client

import (
	"fmt"
	"time"

	zmq "github.com/pebbe/zmq4"
)

// ClientSecurityManager applies CURVE credentials to an outbound DEALER
// socket. It is kept minimal: a client only ever needs the server's
// public key and, optionally, its own CURVE identity.
type ClientSecurityManager struct {
	serverPublicKey        string
	clientPublic, clientPrivate string
}

// NewClientSecurityManager builds a security manager that authenticates the
// server by serverPublicKey and generates an ephemeral CURVE identity for
// the client.
func NewClientSecurityManager(serverPublicKey string) (*ClientSecurityManager, error) {
	pub, priv, err := zmq4Compat()
	if err != nil {
		return nil, err
	}
	return &ClientSecurityManager{serverPublicKey: serverPublicKey, clientPublic: pub, clientPrivate: priv}, nil
}

func zmq4Compat() (string, string, error) { return zmq.NewCurveKeypair() }

func (mgr *ClientSecurityManager) applyToSocket(sock *zmq.Socket) error {
	if mgr == nil {
		return nil
	}
	if mgr.serverPublicKey == "" {
		return fmt.Errorf("securitymanager: no server public key configured")
	}
	return sock.ClientAuthCurve(mgr.serverPublicKey, mgr.clientPublic, mgr.clientPrivate)
}

// PeerAddress is one of the URL schemes ZeroMQ accepts: tcp://host:port,
// ipc://path, or inproc://name.
type PeerAddress struct {
	url string
}

// Peer builds a tcp:// PeerAddress.
func Peer(host string, port int) PeerAddress { return PeerAddress{url: fmt.Sprintf("tcp://%s:%d", host, port)} }

// IPCPeer builds an ipc:// PeerAddress.
func IPCPeer(path string) PeerAddress { return PeerAddress{url: fmt.Sprintf("ipc://%s", path)} }

// RawPeer wraps an already-formed URL, e.g. one returned by a directory
// locate call.
func RawPeer(url string) PeerAddress { return PeerAddress{url: url} }

func (pa PeerAddress) String() string { return pa.url }

// dealerChannel wraps a DEALER socket connected to one or more peers, used
// in round-robin fashion across them.
type dealerChannel struct {
	sock  *zmq.Socket
	peers []PeerAddress
}

func newDealerChannel(sec *ClientSecurityManager) (*dealerChannel, error) {
	sock, err := zmq.NewSocket(zmq.DEALER)
	if err != nil {
		return nil, fmt.Errorf("client: creating DEALER socket: %w", err)
	}
	if err := sec.applyToSocket(sock); err != nil {
		sock.Close()
		return nil, fmt.Errorf("client: applying security manager: %w", err)
	}

	sock.SetIpv6(true)
	sock.SetLinger(0)
	sock.SetReconnectIvl(100 * time.Millisecond)
	sock.SetSndtimeo(10 * time.Second)
	sock.SetRcvtimeo(10 * time.Second)

	return &dealerChannel{sock: sock}, nil
}

func (c *dealerChannel) connect(addr PeerAddress) error {
	if err := c.sock.Connect(addr.url); err != nil {
		return fmt.Errorf("client: connecting to %s: %w", addr, err)
	}
	c.peers = append(c.peers, addr)
	return nil
}

func (c *dealerChannel) setTimeout(d time.Duration) {
	c.sock.SetSndtimeo(d)
	c.sock.SetRcvtimeo(d)
}

func (c *dealerChannel) send(payload []byte) error {
	_, err := c.sock.SendBytes(payload, 0)
	return err
}

func (c *dealerChannel) recv() ([]byte, error) {
	return c.sock.RecvBytes(0)
}

func (c *dealerChannel) close() error {
	return c.sock.Close()
}
