package directory

import "errors"

// Error kinds, surfaced as distinguishable sentinel errors
// rather than thrown across the RPC boundary. Callers use errors.Is.
var (
	// ErrUnknownMachine is returned by RegisterEndpoint when machineID does
	// not reference an already-registered machine.
	ErrUnknownMachine = errors.New("directory: unknown machine")
	// ErrUnknownEndpoint is returned by operations that reference an
	// endpointID not present in the registry.
	ErrUnknownEndpoint = errors.New("directory: unknown endpoint")
)
