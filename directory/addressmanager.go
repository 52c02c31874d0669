package directory

import (
	"fmt"
	"strings"
)

// synthesizeAddresses builds the candidate address list for a newly
// registered endpoint from its (type, host, port, machineId.publicIPv4).
// Order matters: ties in negotiate are broken by registration order, so
// the more specific schemes are appended after the universally-reachable
// one.
func synthesizeAddresses(endpointID, contextID string, port int, publicIPv4 string) []string {
	addrs := make([]string, 0, 3)
	if publicIPv4 != "" {
		addrs = append(addrs, fmt.Sprintf("tcp://%s:%d", publicIPv4, port))
	}
	addrs = append(addrs, fmt.Sprintf("ipc:///tmp/%s", endpointID))
	if contextID != "" {
		addrs = append(addrs, fmt.Sprintf("inproc://%s", contextID))
	}
	return addrs
}

// firstWithScheme returns the first address in addrs (registration order)
// whose URL scheme is prefix, or "" if none matches.
func firstWithScheme(addrs []string, prefix string) string {
	for _, a := range addrs {
		if strings.HasPrefix(a, prefix) {
			return a
		}
	}
	return ""
}

// negotiate returns the best URL on which client can reach server, by a
// deterministic ranking:
//  1. shared contextId → prefer inproc://
//  2. shared machineId → prefer ipc://, else tcp://127.0.0.1:port
//  3. otherwise → prefer tcp:// using server's machine's publicIPv4
//
// Returns "" if no rule produces a routable address (NoRoute).
func negotiate(client, server EndpointContext) string {
	if client.ContextID != "" && client.ContextID == server.ContextID {
		if addr := firstWithScheme(server.Addresses, "inproc://"); addr != "" {
			return addr
		}
	}
	if client.MachineID != "" && client.MachineID == server.MachineID {
		if addr := firstWithScheme(server.Addresses, "ipc://"); addr != "" {
			return addr
		}
		if server.Port != 0 {
			return fmt.Sprintf("tcp://127.0.0.1:%d", server.Port)
		}
		return ""
	}
	if addr := firstWithScheme(server.Addresses, "tcp://"); addr != "" {
		return addr
	}
	return ""
}
