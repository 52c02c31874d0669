package directory

import (
	"context"

	pb "github.com/gogo/protobuf/proto"

	"github.com/arashi-labs/meshrpc/transport"
	"github.com/arashi-labs/meshrpc/wire"
)

// RegisterHandlers binds every directory operation to a transport.Handler
// closing over d, so l.Serve can dispatch incoming wire envelopes straight
// into the directory.
//
// Dispatch keys on the short "Service::procedure" pair a wire.Envelope
// carries (env.Service + "::" + env.Procedure, see listener.go), which is
// distinct from the longer canonical "Directory::proc(argTypes...)"
// signature strings in selfSignatures: those name the directory's own
// entries in its *service registry* (what a locateService caller resolves
// against), not the transport dispatch table.
func (d *Directory) RegisterHandlers(l *transport.Listener) {
	l.RegisterHandler(directoryService+"::registerMachine", d.handleRegisterMachine)
	l.RegisterHandler(directoryService+"::registerEndpoint", d.handleRegisterEndpoint)
	l.RegisterHandler(directoryService+"::unregisterEndpoint", d.handleUnregisterEndpoint)
	l.RegisterHandler(directoryService+"::registerService", d.handleRegisterService)
	l.RegisterHandler(directoryService+"::registerTopic", d.handleRegisterTopic)
	l.RegisterHandler(directoryService+"::locateService", d.handleLocateService)
	l.RegisterHandler(directoryService+"::locateTopic", d.handleLocateTopic)
	l.RegisterHandler(directoryService+"::listServices", d.handleListServices)
	l.RegisterHandler(directoryService+"::listTopics", d.handleListTopics)
	l.RegisterHandler(directoryService+"::listMachines", d.handleListMachines)
	l.RegisterHandler(directoryService+"::listEndpoints", d.handleListEndpoints)
	l.RegisterHandler(directoryService+"::listMachine", d.handleListMachine)
	l.RegisterHandler(directoryService+"::listEndpoint", d.handleListEndpoint)
	l.RegisterHandler(directoryService+"::topicExists", d.handleTopicExists)
	l.RegisterHandler(directoryService+"::isInitialized", d.handleIsInitialized)
	l.RegisterHandler(directoryService+"::health", d.handleHealth)
	l.RegisterHandler(directoryService+"::ping", d.handlePing)
}

// directoryService is the wire.Envelope.Service value used for every
// directory RPC, matching client.directoryService.
const directoryService = "Directory"

func (d *Directory) handleRegisterMachine(ctx context.Context, data []byte) (pb.Message, error) {
	var args wire.RegisterMachineArgs
	if err := pb.Unmarshal(data, &args); err != nil {
		return nil, err
	}
	d.RegisterMachine(args.MachineId, args.HostName, args.PublicIpv4, int(args.PlatformId))
	return &wire.Empty{}, nil
}

func (d *Directory) handleRegisterEndpoint(ctx context.Context, data []byte) (pb.Message, error) {
	var args wire.RegisterEndpointArgs
	if err := pb.Unmarshal(data, &args); err != nil {
		return nil, err
	}
	ep, err := d.RegisterEndpoint(args.Type, args.Name, args.EndpointId, args.ContextId, args.MachineId, int(args.ProcessId), int(args.Port))
	if err != nil {
		return nil, &transport.StatusError{Status: wire.StatusUnknownEndpoint, Message: err.Error()}
	}
	return endpointRecord(ep), nil
}

func (d *Directory) handleUnregisterEndpoint(ctx context.Context, data []byte) (pb.Message, error) {
	var ref wire.EndpointRef
	if err := pb.Unmarshal(data, &ref); err != nil {
		return nil, err
	}
	d.UnregisterEndpoint(ref.EndpointId)
	return &wire.Empty{}, nil
}

func (d *Directory) handleRegisterService(ctx context.Context, data []byte) (pb.Message, error) {
	var args wire.RegisterKeyArgs
	if err := pb.Unmarshal(data, &args); err != nil {
		return nil, err
	}
	if err := d.RegisterService(args.Key, args.EndpointId); err != nil {
		return nil, &transport.StatusError{Status: wire.StatusUnknownEndpoint, Message: err.Error()}
	}
	return &wire.Empty{}, nil
}

func (d *Directory) handleRegisterTopic(ctx context.Context, data []byte) (pb.Message, error) {
	var args wire.RegisterKeyArgs
	if err := pb.Unmarshal(data, &args); err != nil {
		return nil, err
	}
	if err := d.RegisterTopic(args.Key, args.EndpointId); err != nil {
		return nil, &transport.StatusError{Status: wire.StatusUnknownEndpoint, Message: err.Error()}
	}
	return &wire.Empty{}, nil
}

func (d *Directory) handleLocateService(ctx context.Context, data []byte) (pb.Message, error) {
	var args wire.LocateArgs
	if err := pb.Unmarshal(data, &args); err != nil {
		return nil, err
	}
	return &wire.StringValue{Value: d.LocateService(args.Key, args.ClientEndpointId)}, nil
}

func (d *Directory) handleLocateTopic(ctx context.Context, data []byte) (pb.Message, error) {
	var args wire.LocateArgs
	if err := pb.Unmarshal(data, &args); err != nil {
		return nil, err
	}
	return &wire.StringValue{Value: d.LocateTopic(args.Key, args.ClientEndpointId)}, nil
}

func (d *Directory) handleListServices(ctx context.Context, data []byte) (pb.Message, error) {
	return stringMap(d.ListServices()), nil
}

func (d *Directory) handleListTopics(ctx context.Context, data []byte) (pb.Message, error) {
	return stringMap(d.ListTopics()), nil
}

func (d *Directory) handleListMachines(ctx context.Context, data []byte) (pb.Message, error) {
	return &wire.StringList{Values: d.ListMachines()}, nil
}

func (d *Directory) handleListEndpoints(ctx context.Context, data []byte) (pb.Message, error) {
	return &wire.StringList{Values: d.ListEndpoints()}, nil
}

func (d *Directory) handleListMachine(ctx context.Context, data []byte) (pb.Message, error) {
	var ref wire.EndpointRef
	if err := pb.Unmarshal(data, &ref); err != nil {
		return nil, err
	}
	m, ok := d.ListMachine(ref.EndpointId)
	if !ok {
		return nil, &transport.StatusError{Status: wire.StatusNotFound, Message: ErrUnknownMachine.Error()}
	}
	return &wire.MachineRecord{
		MachineId:  m.MachineID,
		HostName:   m.HostName,
		PublicIpv4: m.PublicIPv4,
		PlatformId: int32(m.PlatformID),
	}, nil
}

func (d *Directory) handleListEndpoint(ctx context.Context, data []byte) (pb.Message, error) {
	var ref wire.EndpointRef
	if err := pb.Unmarshal(data, &ref); err != nil {
		return nil, err
	}
	ep, ok := d.ListEndpoint(ref.EndpointId)
	if !ok {
		return nil, &transport.StatusError{Status: wire.StatusNotFound, Message: ErrUnknownEndpoint.Error()}
	}
	return endpointRecord(ep), nil
}

func (d *Directory) handleTopicExists(ctx context.Context, data []byte) (pb.Message, error) {
	var ref wire.EndpointRef
	if err := pb.Unmarshal(data, &ref); err != nil {
		return nil, err
	}
	return &wire.BoolValue{Value: d.TopicExists(ref.EndpointId)}, nil
}

func (d *Directory) handleIsInitialized(ctx context.Context, data []byte) (pb.Message, error) {
	return &wire.BoolValue{Value: d.IsInitialized()}, nil
}

func (d *Directory) handleHealth(ctx context.Context, data []byte) (pb.Message, error) {
	return &wire.BoolValue{Value: d.Health()}, nil
}

func (d *Directory) handlePing(ctx context.Context, data []byte) (pb.Message, error) {
	return &wire.BoolValue{Value: d.Ping()}, nil
}

func endpointRecord(ep EndpointContext) *wire.EndpointRecord {
	return &wire.EndpointRecord{
		EndpointId: ep.EndpointID,
		Name:       ep.Name,
		Type:       ep.Type,
		ContextId:  ep.ContextID,
		MachineId:  ep.MachineID,
		ProcessId:  int32(ep.ProcessID),
		Port:       int32(ep.Port),
		Addresses:  ep.Addresses,
	}
}

func stringMap(m map[string]string) *wire.StringMap {
	out := &wire.StringMap{Keys: make([]string, 0, len(m)), Values: make([]string, 0, len(m))}
	for k, v := range m {
		out.Keys = append(out.Keys, k)
		out.Values = append(out.Values, v)
	}
	return out
}
