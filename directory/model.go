// Package directory implements the service directory and the address
// manager: the authoritative, in-memory registry of machines, endpoints,
// services and topics, plus the ranking logic that picks the best
// transport address between a calling client and a serving endpoint.
//
// The directory owns all mutable state exclusively; callers only ever see
// copies returned from its list/locate operations.
package directory

// MachineContext describes a host. Identity is MachineID; all other fields
// are last-writer-wins on repeated registerMachine calls for the same id.
type MachineContext struct {
	MachineID  string
	HostName   string
	PublicIPv4 string
	PlatformID int
}

// EndpointContext describes one live, addressable process. Addresses is
// computed once at registration time by the address manager from Type,
// machine's PublicIPv4 and Port (see addressmanager.go).
type EndpointContext struct {
	EndpointID string
	Name       string
	Type       string
	ContextID  string
	MachineID  string
	ProcessID  int
	Port       int
	Addresses  []string
}

// clone returns a copy of e, safe to hand to a caller outside the registry's
// lock. Addresses is a slice and must be copied explicitly.
func (e EndpointContext) clone() EndpointContext {
	c := e
	c.Addresses = append([]string(nil), e.Addresses...)
	return c
}
