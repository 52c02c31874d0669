package client

import (
	"context"

	"github.com/arashi-labs/meshrpc/wire"
)

// DirectoryClient is a typed convenience wrapper around Client for the
// directory's own control-plane RPCs (§4.3), so callers registering or
// looking up services don't hand-marshal wire messages themselves.
type DirectoryClient struct {
	cl *Client
}

// NewDirectoryClient wraps an already-connected Client.
func NewDirectoryClient(cl *Client) *DirectoryClient { return &DirectoryClient{cl: cl} }

const directoryService = "Directory"

// RegisterMachine registers or updates a machine record.
func (d *DirectoryClient) RegisterMachine(ctx context.Context, machineID, hostName, publicIPv4 string, platformID int32) error {
	return d.cl.Call(ctx, directoryService, "registerMachine",
		&wire.RegisterMachineArgs{MachineId: machineID, HostName: hostName, PublicIpv4: publicIPv4, PlatformId: platformID},
		&wire.Empty{})
}

// RegisterEndpoint registers a new endpoint and returns its computed
// addresses.
func (d *DirectoryClient) RegisterEndpoint(ctx context.Context, args wire.RegisterEndpointArgs) (*wire.EndpointRecord, error) {
	var out wire.EndpointRecord
	if err := d.cl.Call(ctx, directoryService, "registerEndpoint", &args, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UnregisterEndpoint removes an endpoint and its owned services/topics.
func (d *DirectoryClient) UnregisterEndpoint(ctx context.Context, endpointID string) error {
	return d.cl.Call(ctx, directoryService, "unregisterEndpoint", &wire.EndpointRef{EndpointId: endpointID}, &wire.Empty{})
}

// RegisterService binds methodSignature to endpointID.
func (d *DirectoryClient) RegisterService(ctx context.Context, methodSignature, endpointID string) error {
	return d.cl.Call(ctx, directoryService, "registerService", &wire.RegisterKeyArgs{Key: methodSignature, EndpointId: endpointID}, &wire.Empty{})
}

// RegisterTopic binds topicName to endpointID.
func (d *DirectoryClient) RegisterTopic(ctx context.Context, topicName, endpointID string) error {
	return d.cl.Call(ctx, directoryService, "registerTopic", &wire.RegisterKeyArgs{Key: topicName, EndpointId: endpointID}, &wire.Empty{})
}

// LocateService resolves methodSignature to a routable address for
// clientEndpointID, or "" if none is available.
func (d *DirectoryClient) LocateService(ctx context.Context, methodSignature, clientEndpointID string) (string, error) {
	var out wire.StringValue
	if err := d.cl.Call(ctx, directoryService, "locateService", &wire.LocateArgs{Key: methodSignature, ClientEndpointId: clientEndpointID}, &out); err != nil {
		return "", err
	}
	return out.Value, nil
}

// LocateTopic resolves topicName to a routable address for
// clientEndpointID, or "" if none is available.
func (d *DirectoryClient) LocateTopic(ctx context.Context, topicName, clientEndpointID string) (string, error) {
	var out wire.StringValue
	if err := d.cl.Call(ctx, directoryService, "locateTopic", &wire.LocateArgs{Key: topicName, ClientEndpointId: clientEndpointID}, &out); err != nil {
		return "", err
	}
	return out.Value, nil
}

// ListServices returns every methodSignature -> endpointID pair.
func (d *DirectoryClient) ListServices(ctx context.Context) (map[string]string, error) {
	var out wire.StringMap
	if err := d.cl.Call(ctx, directoryService, "listServices", &wire.Empty{}, &out); err != nil {
		return nil, err
	}
	return stringMapFromWire(&out), nil
}

// ListTopics returns every topicName -> endpointID pair.
func (d *DirectoryClient) ListTopics(ctx context.Context) (map[string]string, error) {
	var out wire.StringMap
	if err := d.cl.Call(ctx, directoryService, "listTopics", &wire.Empty{}, &out); err != nil {
		return nil, err
	}
	return stringMapFromWire(&out), nil
}

// ListMachines returns every registered machine id.
func (d *DirectoryClient) ListMachines(ctx context.Context) ([]string, error) {
	var out wire.StringList
	if err := d.cl.Call(ctx, directoryService, "listMachines", &wire.Empty{}, &out); err != nil {
		return nil, err
	}
	return out.Values, nil
}

// ListEndpoints returns every registered endpoint id.
func (d *DirectoryClient) ListEndpoints(ctx context.Context) ([]string, error) {
	var out wire.StringList
	if err := d.cl.Call(ctx, directoryService, "listEndpoints", &wire.Empty{}, &out); err != nil {
		return nil, err
	}
	return out.Values, nil
}

// ListMachine returns one machine's record.
func (d *DirectoryClient) ListMachine(ctx context.Context, machineID string) (*wire.MachineRecord, error) {
	var out wire.MachineRecord
	if err := d.cl.Call(ctx, directoryService, "listMachine", &wire.EndpointRef{EndpointId: machineID}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListEndpoint returns one endpoint's record.
func (d *DirectoryClient) ListEndpoint(ctx context.Context, endpointID string) (*wire.EndpointRecord, error) {
	var out wire.EndpointRecord
	if err := d.cl.Call(ctx, directoryService, "listEndpoint", &wire.EndpointRef{EndpointId: endpointID}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// TopicExists reports whether topicName has a registered owner.
func (d *DirectoryClient) TopicExists(ctx context.Context, topicName string) (bool, error) {
	var out wire.BoolValue
	if err := d.cl.Call(ctx, directoryService, "topicExists", &wire.EndpointRef{EndpointId: topicName}, &out); err != nil {
		return false, err
	}
	return out.Value, nil
}

// IsInitialized reports whether the directory finished self-hosting
// bootstrap.
func (d *DirectoryClient) IsInitialized(ctx context.Context) (bool, error) {
	var out wire.BoolValue
	if err := d.cl.Call(ctx, directoryService, "isInitialized", &wire.Empty{}, &out); err != nil {
		return false, err
	}
	return out.Value, nil
}

// Health reports the directory's own liveness.
func (d *DirectoryClient) Health(ctx context.Context) (bool, error) {
	var out wire.BoolValue
	if err := d.cl.Call(ctx, directoryService, "health", &wire.Empty{}, &out); err != nil {
		return false, err
	}
	return out.Value, nil
}

// Ping always succeeds if the directory process is reachable.
func (d *DirectoryClient) Ping(ctx context.Context) (bool, error) {
	var out wire.BoolValue
	if err := d.cl.Call(ctx, directoryService, "ping", &wire.Empty{}, &out); err != nil {
		return false, err
	}
	return out.Value, nil
}

func stringMapFromWire(m *wire.StringMap) map[string]string {
	out := make(map[string]string, len(m.Keys))
	for i, k := range m.Keys {
		if i < len(m.Values) {
			out[k] = m.Values[i]
		}
	}
	return out
}
