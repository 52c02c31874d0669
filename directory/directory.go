package directory

import (
	"fmt"
	"os"

	"github.com/arashi-labs/meshrpc/directorylog"
	"github.com/arashi-labs/meshrpc/registry"
)

// selfServiceEndpointType is the Type stamped on the directory's own
// self-registered EndpointContext.
const selfServiceEndpointType = "master"

// Directory is the service directory: the authoritative in-memory
// registry of machines, endpoints, services and topics, plus the
// negotiation logic (see addressmanager.go) that resolves a service or
// topic lookup into a routable address.
//
// Every mutable registry is its own mutex-protected registry.Map.
// Operations that touch more than one registry always acquire them in the
// fixed order machines → endpoints → services → topics, documented at
// each call site below; since registry.Map never holds its lock across a
// call into another registry, this ordering is a consistency discipline
// rather than a deadlock hazard, but it is preserved anyway for
// readability.
//
// Liveness of registered machines and endpoints is intentionally not
// checked anywhere in this package: there is no TTL and no heartbeat.
// Entries persist until explicitly unregistered.
type Directory struct {
	machines  *registry.Map[string, MachineContext]
	endpoints *registry.Map[string, EndpointContext]
	services  *registry.Map[string, string] // methodSignature -> endpointID
	topics    *registry.Map[string, string] // topicName -> endpointID

	log            *directorylog.Logger
	selfEndpointID string
	initialized    bool
	lameduckState  lameduck
}

// New constructs a Directory and self-hosts it: it registers a
// MachineContext for the local host, then an EndpointContext of type
// "master" describing the directory itself, and binds its own public
// methods into the service registry under that endpoint id before
// accepting any other traffic.
func New(selfMachineID, hostName, publicIPv4 string, selfPort int, log *directorylog.Logger) *Directory {
	d := &Directory{
		machines:  registry.New[string, MachineContext](),
		endpoints: registry.New[string, EndpointContext](),
		services:  registry.New[string, string](),
		topics:    registry.New[string, string](),
		log:       log,
	}

	d.RegisterMachine(selfMachineID, hostName, publicIPv4, 0)

	selfID := fmt.Sprintf("directory@%s", selfMachineID)
	// The directory registers itself directly rather than through
	// RegisterEndpoint, since RegisterEndpoint's UnknownMachine check would
	// otherwise be checking a machine registration that just happened on
	// the line above — there is no meaningful failure mode here.
	if _, err := d.RegisterEndpoint(selfServiceEndpointType, "directory", selfID, "", selfMachineID, os.Getpid(), selfPort); err != nil {
		log.Errorf("directory: failed to self-register endpoint: %v", err)
	}
	d.selfEndpointID = selfID

	for _, sig := range selfSignatures {
		d.services.Set(sig, selfID)
	}
	d.initialized = true
	return d
}

// selfSignatures lists the canonical method signatures the directory binds
// to its own endpoint id at construction time point 3.
var selfSignatures = []string{
	"Directory::registerMachine(string,string,string,int)",
	"Directory::registerEndpoint(string,string,string,string,string,int,int)",
	"Directory::unregisterEndpoint(string)",
	"Directory::registerService(string,string)",
	"Directory::registerTopic(string,string)",
	"Directory::locateService(string,string)",
	"Directory::locateTopic(string,string)",
	"Directory::listServices()",
	"Directory::listTopics()",
	"Directory::listMachines()",
	"Directory::listEndpoints()",
	"Directory::listMachine(string)",
	"Directory::listEndpoint(string)",
	"Directory::topicExists(string)",
	"Directory::isInitialized()",
	"Directory::health()",
	"Directory::ping()",
}

// SelfEndpointID returns the endpoint id the directory registered for
// itself, for wiring into the transport listener's own client identity.
func (d *Directory) SelfEndpointID() string { return d.selfEndpointID }

// RegisterMachine upserts a MachineContext. Fields other than MachineID are
// last-writer-wins on repeated calls for the same id.
func (d *Directory) RegisterMachine(machineID, hostName, publicIPv4 string, platformID int) {
	d.machines.Set(machineID, MachineContext{
		MachineID:  machineID,
		HostName:   hostName,
		PublicIPv4: publicIPv4,
		PlatformID: platformID,
	})
}

// RegisterEndpoint assembles an EndpointContext, computes its candidate
// addresses (addressmanager.go), and inserts it. Fails with
// ErrUnknownMachine if machineID has not been registered.
func (d *Directory) RegisterEndpoint(typ, name, endpointID, contextID, machineID string, processID, port int) (EndpointContext, error) {
	machine, ok := d.machines.Get(machineID)
	if !ok {
		return EndpointContext{}, fmt.Errorf("%w: %q", ErrUnknownMachine, machineID)
	}

	ep := EndpointContext{
		EndpointID: endpointID,
		Name:       name,
		Type:       typ,
		ContextID:  contextID,
		MachineID:  machineID,
		ProcessID:  processID,
		Port:       port,
		Addresses:  synthesizeAddresses(endpointID, contextID, port, machine.PublicIPv4),
	}
	d.endpoints.Set(endpointID, ep)
	return ep.clone(), nil
}

// UnregisterEndpoint removes endpointID and cascades: every service or
// topic entry currently owned by endpointID is also removed. Lock order:
// endpoints, then services, then topics.
func (d *Directory) UnregisterEndpoint(endpointID string) {
	d.endpoints.Remove(endpointID)
	d.services.FilterRemove(func(_ string, owner string) bool { return owner == endpointID })
	d.topics.FilterRemove(func(_ string, owner string) bool { return owner == endpointID })
}

// RegisterService inserts methodSignature -> endpointID. Rejected
// (logged, existing kept) if the signature is already registered by a
// different endpoint, or if the same endpoint re-registers (treated as
// idempotent success). Fails with
// ErrUnknownEndpoint if endpointID is not registered.
func (d *Directory) RegisterService(methodSignature, endpointID string) error {
	return d.registerInto(d.services, "service", methodSignature, endpointID)
}

// RegisterTopic inserts topicName -> endpointID, with the same policies as
// RegisterService.
func (d *Directory) RegisterTopic(topicName, endpointID string) error {
	return d.registerInto(d.topics, "topic", topicName, endpointID)
}

func (d *Directory) registerInto(reg *registry.Map[string, string], kind, key, endpointID string) error {
	if !d.endpoints.Contains(endpointID) {
		return fmt.Errorf("%w: %q", ErrUnknownEndpoint, endpointID)
	}
	if reg.SetIfAbsent(key, endpointID) {
		return nil
	}
	existing, _ := reg.Get(key)
	if existing == endpointID {
		return nil // idempotent success: same owner re-registering
	}
	d.log.Warnf("directory: duplicate %s registration for %q: keeping %q, rejecting %q", kind, key, existing, endpointID)
	return nil
}

// LocateService looks up methodSignature's serving endpoint, then negotiates
// an address reachable from clientEndpointID. Returns "" (not an error) if
// the service or client is unknown, or if no address is routable.
func (d *Directory) LocateService(methodSignature, clientEndpointID string) string {
	return d.locate(d.services, methodSignature, clientEndpointID)
}

// LocateTopic is LocateService's counterpart for topics.
func (d *Directory) LocateTopic(topicName, clientEndpointID string) string {
	return d.locate(d.topics, topicName, clientEndpointID)
}

func (d *Directory) locate(reg *registry.Map[string, string], key, clientEndpointID string) string {
	serverID, ok := reg.Get(key)
	if !ok {
		return ""
	}
	client, ok := d.endpoints.Get(clientEndpointID)
	if !ok {
		return ""
	}
	server, ok := d.endpoints.Get(serverID)
	if !ok {
		return ""
	}
	return negotiate(client, server)
}

// ListServices returns a snapshot of every methodSignature -> endpointID
// pair currently registered.
func (d *Directory) ListServices() map[string]string { return snapshotStringMap(d.services) }

// ListTopics returns a snapshot of every topicName -> endpointID pair.
func (d *Directory) ListTopics() map[string]string { return snapshotStringMap(d.topics) }

func snapshotStringMap(reg *registry.Map[string, string]) map[string]string {
	entries := reg.SnapshotEntries()
	out := make(map[string]string, len(entries))
	for _, e := range entries {
		out[e.Key] = e.Value
	}
	return out
}

// ListMachines returns every registered machine id.
func (d *Directory) ListMachines() []string { return d.machines.SnapshotKeys() }

// ListEndpoints returns every registered endpoint id.
func (d *Directory) ListEndpoints() []string { return d.endpoints.SnapshotKeys() }

// ListMachine returns a copy of one machine's record.
func (d *Directory) ListMachine(machineID string) (MachineContext, bool) {
	return d.machines.Get(machineID)
}

// ListEndpoint returns a copy of one endpoint's record.
func (d *Directory) ListEndpoint(endpointID string) (EndpointContext, bool) {
	ep, ok := d.endpoints.Get(endpointID)
	if !ok {
		return EndpointContext{}, false
	}
	return ep.clone(), true
}

// TopicExists reports whether topicName has a registered owner.
func (d *Directory) TopicExists(topicName string) bool { return d.topics.Contains(topicName) }

// IsInitialized reports whether the directory has finished self-hosting
// bootstrap (always true once New returns; exposed for the Health RPC).
func (d *Directory) IsInitialized() bool { return d.initialized }
