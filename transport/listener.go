// Package transport is the RPC broker: it accepts framed requests off
// a Channel, dispatches each to a registered Handler on the shared
// eventloop.EventLoop worker pool, and writes the reply back to the same
// routing identity. Concurrency is bounded by the EventLoop itself, so the
// broker loop talks to it directly rather than fanning requests out to a
// second layer of worker goroutines.
package transport

import (
	"context"
	"fmt"
	"sync"

	pb "github.com/gogo/protobuf/proto"

	"github.com/arashi-labs/meshrpc/directorylog"
	"github.com/arashi-labs/meshrpc/eventloop"
	"github.com/arashi-labs/meshrpc/wire"
)

// A Handler decodes args out of an Envelope's Data, performs the call, and
// encodes a result message for the Reply's Data. Returning an error fails
// the call with StatusServerError and the error's message; for
// directory-specific failure statuses (UnknownEndpoint, NoRoute, ...) wrap
// the result in a *StatusError instead.
type Handler func(ctx context.Context, data []byte) (result pb.Message, err error)

// StatusError lets a Handler report a specific wire.Status instead of the
// default StatusServerError.
type StatusError struct {
	Status  wire.Status
	Message string
}

func (e *StatusError) Error() string { return e.Message }

// Listener is the broker loop over a Channel: one "Service::procedure"
// dispatch key maps to one Handler.
type Listener struct {
	ch    Channel
	el    *eventloop.EventLoop
	codec wire.Codec
	log   *directorylog.Logger

	mu       sync.RWMutex
	handlers map[string]Handler
}

// New constructs a Listener serving requests off ch, dispatching through
// el, and logging through log. codec defaults to wire.ProtoCodec{} if nil.
func New(ch Channel, el *eventloop.EventLoop, codec wire.Codec, log *directorylog.Logger) *Listener {
	if codec == nil {
		codec = wire.ProtoCodec{}
	}
	return &Listener{
		ch:       ch,
		el:       el,
		codec:    codec,
		log:      log,
		handlers: make(map[string]Handler),
	}
}

// RegisterHandler binds signature ("Service::procedure") to fn. A
// duplicate registration is rejected and logged, the first registration
// kept.
func (l *Listener) RegisterHandler(signature string, fn Handler) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.handlers[signature]; exists {
		l.log.Warnf("transport: duplicate handler registration for %q, keeping the first", signature)
		return
	}
	l.handlers[signature] = fn
}

func (l *Listener) findHandler(signature string) (Handler, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	fn, ok := l.handlers[signature]
	return fn, ok
}

// Serve runs the broker loop until ctx is cancelled or the Channel is
// closed. Each inbound message is decoded and dispatched to a worker on the
// EventLoop; Serve itself never blocks on a single call's handler.
func (l *Listener) Serve(ctx context.Context) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			l.ch.Close()
		case <-done:
		}
	}()

	for {
		frames, err := l.ch.Recv()
		if err != nil {
			if err == ErrChannelClosed {
				return nil
			}
			return fmt.Errorf("transport: receive error: %w", err)
		}
		l.dispatch(ctx, frames)
	}
}

// dispatch decodes one [identity, envelope] message and hands it to the
// EventLoop; the reply is written back from the worker goroutine once the
// handler completes, so a slow call never head-of-line-blocks Recv.
func (l *Listener) dispatch(ctx context.Context, frames [][]byte) {
	if len(frames) != 2 {
		l.log.Warnf("transport: dropped malformed message with %d frames", len(frames))
		return
	}
	identity, payload := frames[0], frames[1]

	var env wire.Envelope
	if err := l.codec.Decode(payload, &env); err != nil {
		l.log.Warnf("transport: dropped undecodable envelope: %v", err)
		return
	}

	eventloop.Async(l.el, func() (struct{}, error) {
		reply := l.invoke(ctx, &env)
		if err := l.send(identity, reply); err != nil {
			l.log.Warnf("transport: [%s] error sending reply: %v", env.RpcId, err)
		}
		return struct{}{}, nil
	}, 0)
}

func (l *Listener) invoke(ctx context.Context, env *wire.Envelope) *wire.Reply {
	signature := env.Service + "::" + env.Procedure
	handler, ok := l.findHandler(signature)
	if !ok {
		l.log.Warnf("transport: [%s] NOT_FOUND for %s", env.RpcId, signature)
		return &wire.Reply{RpcId: env.RpcId, Status: wire.StatusNotFound, ErrorMessage: "no handler for " + signature}
	}

	result, err := handler(ctx, env.Data)
	if err != nil {
		if se, ok := err.(*StatusError); ok {
			return &wire.Reply{RpcId: env.RpcId, Status: se.Status, ErrorMessage: se.Message}
		}
		l.log.Errorf("transport: [%s] handler error for %s: %v", env.RpcId, signature, err)
		return &wire.Reply{RpcId: env.RpcId, Status: wire.StatusServerError, ErrorMessage: err.Error()}
	}

	data, err := l.codec.Encode(result)
	if err != nil {
		l.log.Errorf("transport: [%s] encoding error for %s: %v", env.RpcId, signature, err)
		return &wire.Reply{RpcId: env.RpcId, Status: wire.StatusServerError, ErrorMessage: err.Error()}
	}
	return &wire.Reply{RpcId: env.RpcId, Status: wire.StatusOK, Data: data}
}

func (l *Listener) send(identity []byte, reply *wire.Reply) error {
	data, err := l.codec.Encode(reply)
	if err != nil {
		return err
	}
	return l.ch.Send([][]byte{identity, data})
}
