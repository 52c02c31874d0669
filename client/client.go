package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	pb "github.com/gogo/protobuf/proto"

	"github.com/arashi-labs/meshrpc/directorylog"
	"github.com/arashi-labs/meshrpc/wire"
)

// Client is a synchronous RPC client: thread-safe, but every call locks
// and blocks the caller. The default timeout is 10 seconds.
type Client struct {
	mu      sync.Mutex
	channel *dealerChannel

	name    string
	timeout time.Duration
	retries uint
	codec   wire.Codec

	seq uint64
}

// New connects a Client named name to peers (round-robin if more than one),
// optionally authenticated with sec.
func New(name string, sec *ClientSecurityManager, peers ...PeerAddress) (*Client, error) {
	if len(peers) == 0 {
		return nil, fmt.Errorf("client: at least one peer address is required")
	}
	ch, err := newDealerChannel(sec)
	if err != nil {
		return nil, err
	}
	for _, p := range peers {
		if err := ch.connect(p); err != nil {
			ch.close()
			return nil, err
		}
	}
	return &Client{
		channel: ch,
		name:    name,
		timeout: 10 * time.Second,
		codec:   wire.ProtoCodec{},
	}, nil
}

// SetTimeout overrides the per-call network timeout (default 10s).
func (cl *Client) SetTimeout(d time.Duration) {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	cl.timeout = d
	cl.channel.setTimeout(d)
}

// SetRetries overrides how many times a timed-out call is retried before
// giving up (default 0).
func (cl *Client) SetRetries(n uint) {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	cl.retries = n
}

// Close disconnects the client's channel. The client must not be used
// afterward.
func (cl *Client) Close() error {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	return cl.channel.close()
}

// Call invokes service.procedure with request marshalled into the
// envelope's Data, and unmarshals the reply's Data into reply. A non-OK
// wire.Status is returned as a *RemoteError.
func (cl *Client) Call(ctx context.Context, service, procedure string, request, reply pb.Message) error {
	data, err := cl.codec.Encode(request)
	if err != nil {
		return fmt.Errorf("client: encoding request: %w", err)
	}

	cl.mu.Lock()
	cl.seq++
	rpcID := fmt.Sprintf("%s-%d-%s", cl.name, cl.seq, directorylog.NewToken())
	retries := cl.retries
	cl.mu.Unlock()

	env := &wire.Envelope{
		RpcId:     rpcID,
		CallerId:  cl.name,
		Service:   service,
		Procedure: procedure,
		Data:      data,
	}
	if deadline, ok := ctx.Deadline(); ok {
		env.Deadline = deadline.UnixMicro()
	}

	payload, err := cl.codec.Encode(env)
	if err != nil {
		return fmt.Errorf("client: encoding envelope: %w", err)
	}

	var lastErr error
	for attempt := uint(0); attempt <= retries; attempt++ {
		rp, err := cl.roundTrip(payload)
		if err != nil {
			lastErr = err
			continue
		}
		if rp.Status != wire.StatusOK {
			return &RemoteError{Status: rp.Status, Message: rp.ErrorMessage}
		}
		return cl.codec.Decode(rp.Data, reply)
	}
	return fmt.Errorf("client: %s.%s failed after %d attempt(s): %w", service, procedure, retries+1, lastErr)
}

func (cl *Client) roundTrip(payload []byte) (*wire.Reply, error) {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	if err := cl.channel.send(payload); err != nil {
		return nil, fmt.Errorf("client: send: %w", err)
	}
	respData, err := cl.channel.recv()
	if err != nil {
		return nil, fmt.Errorf("client: recv: %w", err)
	}
	var rp wire.Reply
	if err := cl.codec.Decode(respData, &rp); err != nil {
		return nil, fmt.Errorf("client: decoding reply: %w", err)
	}
	return &rp, nil
}

// RemoteError wraps a non-OK wire.Status returned by the server.
type RemoteError struct {
	Status  wire.Status
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("client: remote error %s: %s", e.Status, e.Message)
}
