// Package securitymanager manages CURVE keys and IP access lists for a
// directory listener socket, following the API shape of ZeroMQ's Iron House
// pattern: generate a keypair, optionally restrict clients by Z85 public key
// or by IP address/range, and apply it all to a ROUTER socket before Bind.
package securitymanager

import (
	"errors"

	"github.com/pebbe/zmq4"
)

// ServerDomain is the ZAP domain the directory listener authenticates under.
// A single process hosts a single directory listener, so a static domain is
// sufficient.
const ServerDomain = "meshrpc.directory"

// ServerSecurityManager holds a directory listener's CURVE keypair and
// optional client allow/deny lists. The zero value is not usable; construct
// one with NewServerSecurityManager. A nil *ServerSecurityManager is valid
// wherever it's accepted and disables authentication entirely.
type ServerSecurityManager struct {
	publicKey, privateKey string

	// Z85-encoded CURVE public keys allowed to connect. Nil means any key
	// is accepted (open policy).
	allowedClientKeys []string

	// Mutually exclusive; only one of these is ever non-nil.
	allowedClientAddrs []string
	deniedClientAddrs  []string
}

// NewServerSecurityManager generates a fresh CURVE keypair for the server.
// It returns nil if keypair generation fails.
func NewServerSecurityManager() *ServerSecurityManager {
	pub, priv, err := zmq4.NewCurveKeypair()
	if err != nil {
		return nil
	}
	return &ServerSecurityManager{publicKey: pub, privateKey: priv}
}

// ApplyToServerSocket wires CURVE authentication and any configured IP
// allow/deny list onto sock. It must be called before sock.Bind. Safe to
// call on a nil manager, in which case it's a no-op.
func (mgr *ServerSecurityManager) ApplyToServerSocket(sock *zmq4.Socket) error {
	if mgr == nil {
		return nil
	}
	if mgr.publicKey == "" || mgr.privateKey == "" {
		return errors.New("securitymanager: incomplete initialization, no keypair")
	}
	if mgr.allowedClientAddrs != nil && mgr.deniedClientAddrs != nil {
		return errors.New("securitymanager: allow and deny address lists are both set, which is ambiguous")
	}

	t, err := sock.GetType()
	if err != nil {
		return err
	}
	if t != zmq4.ROUTER && t != zmq4.REP && t != zmq4.PUB {
		return errors.New("securitymanager: socket type must be ROUTER, REP, or PUB")
	}

	// Idempotent: returns an error if the auth handler is already running
	// elsewhere in the process, which is fine to ignore here.
	zmq4.AuthStart()

	switch {
	case mgr.allowedClientAddrs != nil:
		zmq4.AuthAllow(ServerDomain, mgr.allowedClientAddrs...)
	case mgr.deniedClientAddrs != nil:
		zmq4.AuthDeny(ServerDomain, mgr.deniedClientAddrs...)
	}

	if mgr.allowedClientKeys != nil {
		zmq4.AuthCurveAdd(ServerDomain, mgr.allowedClientKeys...)
	} else {
		zmq4.AuthCurveAdd(ServerDomain, zmq4.CURVE_ALLOW_ANY)
	}

	return sock.ServerAuthCurve(ServerDomain, mgr.privateKey)
}

// StopManager tears down the process-wide ZAP authentication handler.
func (mgr *ServerSecurityManager) StopManager() {
	zmq4.AuthStop()
}

// SetKeys overrides the server's keypair, e.g. to load a persisted identity
// instead of generating an ephemeral one.
func (mgr *ServerSecurityManager) SetKeys(public, private string) {
	mgr.publicKey, mgr.privateKey = public, private
}

// PublicKey returns the server's Z85-encoded CURVE public key, to be
// distributed to clients out of band.
func (mgr *ServerSecurityManager) PublicKey() string {
	return mgr.publicKey
}

// AddClientKeys whitelists additional client CURVE public keys.
func (mgr *ServerSecurityManager) AddClientKeys(keys ...string) {
	mgr.allowedClientKeys = append(mgr.allowedClientKeys, keys...)
}

// ResetClientKeys clears the key whitelist, accepting any CURVE client.
func (mgr *ServerSecurityManager) ResetClientKeys() {
	mgr.allowedClientKeys = nil
}

// ResetAddressLists clears both the IP allowlist and denylist.
func (mgr *ServerSecurityManager) ResetAddressLists() {
	mgr.allowedClientAddrs = nil
	mgr.deniedClientAddrs = nil
}

// AllowAddresses restricts connections to the given IP addresses/ranges,
// clearing any existing denylist (the two are mutually exclusive).
func (mgr *ServerSecurityManager) AllowAddresses(addrs ...string) {
	mgr.deniedClientAddrs = nil
	mgr.allowedClientAddrs = append(mgr.allowedClientAddrs, addrs...)
}

// DenyAddresses blocks connections from the given IP addresses/ranges,
// clearing any existing allowlist (the two are mutually exclusive).
func (mgr *ServerSecurityManager) DenyAddresses(addrs ...string) {
	mgr.allowedClientAddrs = nil
	mgr.deniedClientAddrs = append(mgr.deniedClientAddrs, addrs...)
}
