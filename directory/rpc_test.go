package directory

import (
	"context"
	"testing"
	"time"

	"github.com/arashi-labs/meshrpc/directorylog"
	"github.com/arashi-labs/meshrpc/eventloop"
	"github.com/arashi-labs/meshrpc/transport"
	"github.com/arashi-labs/meshrpc/wire"
)

// call round-trips one RPC through a real transport.Listener wired to d,
// using an in-memory Channel pair instead of a ZeroMQ socket.
func call(t *testing.T, d *Directory, service, procedure string, req, resp interface {
	Reset()
	String() string
}) *wire.Reply {
	t.Helper()

	client, server := transport.NewMemoryChannelPair(4)
	defer client.Close()

	el := eventloop.New()
	defer el.Shutdown()

	l := transport.New(server, el, nil, directorylog.New("test", directorylog.LevelDebug))
	d.RegisterHandlers(l)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.Serve(ctx)

	codec := wire.ProtoCodec{}
	reqMsg := req.(interface {
		Reset()
		String() string
		ProtoMessage()
	})
	data, err := codec.Encode(reqMsg)
	if err != nil {
		t.Fatalf("encoding request: %v", err)
	}
	env := &wire.Envelope{RpcId: "t1", Service: service, Procedure: procedure, Data: data}
	envData, err := codec.Encode(env)
	if err != nil {
		t.Fatalf("encoding envelope: %v", err)
	}
	if err := client.Send([][]byte{[]byte("id"), envData}); err != nil {
		t.Fatalf("sending: %v", err)
	}

	type result struct {
		frames [][]byte
		err    error
	}
	ch := make(chan result, 1)
	go func() {
		frames, err := client.Recv()
		ch <- result{frames, err}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			t.Fatalf("receiving: %v", r.err)
		}
		var reply wire.Reply
		if err := codec.Decode(r.frames[1], &reply); err != nil {
			t.Fatalf("decoding reply: %v", err)
		}
		if reply.Status == wire.StatusOK && resp != nil {
			respMsg := resp.(interface {
				Reset()
				String() string
				ProtoMessage()
			})
			if err := codec.Decode(reply.Data, respMsg); err != nil {
				t.Fatalf("decoding result: %v", err)
			}
		}
		return &reply
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for reply")
		return nil
	}
}

func newTestDirectoryForRPC() *Directory {
	return New("m1", "host1", "1.2.3.4", 5555, directorylog.New("test", directorylog.LevelDebug))
}

func TestRPCRegisterAndLocateService(t *testing.T) {
	d := newTestDirectoryForRPC()

	reply := call(t, d, directoryService, "registerMachine",
		&wire.RegisterMachineArgs{MachineId: "m2", HostName: "host2", PublicIpv4: "5.6.7.8"}, nil)
	if reply.Status != wire.StatusOK {
		t.Fatalf("registerMachine failed: %v", reply.ErrorMessage)
	}

	var ep wire.EndpointRecord
	reply = call(t, d, directoryService, "registerEndpoint",
		&wire.RegisterEndpointArgs{Type: "worker", Name: "svc", EndpointId: "e2", MachineId: "m2", Port: 9000}, &ep)
	if reply.Status != wire.StatusOK {
		t.Fatalf("registerEndpoint failed: %v", reply.ErrorMessage)
	}
	if ep.EndpointId != "e2" {
		t.Fatalf("unexpected endpoint record: %+v", ep)
	}

	reply = call(t, d, directoryService, "registerService",
		&wire.RegisterKeyArgs{Key: "Foo::bar()", EndpointId: "e2"}, nil)
	if reply.Status != wire.StatusOK {
		t.Fatalf("registerService failed: %v", reply.ErrorMessage)
	}

	var located wire.StringValue
	reply = call(t, d, directoryService, "locateService",
		&wire.LocateArgs{Key: "Foo::bar()", ClientEndpointId: d.SelfEndpointID()}, &located)
	if reply.Status != wire.StatusOK {
		t.Fatalf("locateService failed: %v", reply.ErrorMessage)
	}
	if located.Value == "" {
		t.Fatal("expected a routable address, got empty string")
	}
}

func TestRPCRegisterEndpointUnknownMachineIsUnknownEndpointStatus(t *testing.T) {
	d := newTestDirectoryForRPC()

	reply := call(t, d, directoryService, "registerEndpoint",
		&wire.RegisterEndpointArgs{Type: "worker", Name: "svc", EndpointId: "e9", MachineId: "no-such-machine"}, nil)
	if reply.Status != wire.StatusUnknownEndpoint {
		t.Fatalf("expected StatusUnknownEndpoint, got %v", reply.Status)
	}
}

func TestRPCHealthAndPing(t *testing.T) {
	d := newTestDirectoryForRPC()

	var health wire.BoolValue
	reply := call(t, d, directoryService, "health", &wire.Empty{}, &health)
	if reply.Status != wire.StatusOK || !health.Value {
		t.Fatalf("expected healthy directory, got status=%v value=%v", reply.Status, health.Value)
	}

	d.SetLameduck(true)
	reply = call(t, d, directoryService, "health", &wire.Empty{}, &health)
	if reply.Status != wire.StatusOK || health.Value {
		t.Fatalf("expected unhealthy after lameduck, got value=%v", health.Value)
	}

	var ping wire.BoolValue
	reply = call(t, d, directoryService, "ping", &wire.Empty{}, &ping)
	if reply.Status != wire.StatusOK || !ping.Value {
		t.Fatalf("expected ping to still succeed under lameduck, got value=%v", ping.Value)
	}
}

func TestRPCUnknownProcedureIsNotFound(t *testing.T) {
	d := newTestDirectoryForRPC()

	reply := call(t, d, directoryService, "noSuchProcedure", &wire.Empty{}, nil)
	if reply.Status != wire.StatusNotFound {
		t.Fatalf("expected StatusNotFound, got %v", reply.Status)
	}
}
