package securitymanager

import "testing"

func TestNewServerSecurityManagerGeneratesKeypair(t *testing.T) {
	mgr := NewServerSecurityManager()
	if mgr == nil {
		t.Fatal("expected a non-nil manager")
	}
	if mgr.PublicKey() == "" || mgr.privateKey == "" {
		t.Fatal("expected a generated CURVE keypair")
	}
}

func TestApplyToServerSocketNoopOnNil(t *testing.T) {
	var mgr *ServerSecurityManager
	if err := mgr.ApplyToServerSocket(nil); err != nil {
		t.Fatalf("expected nil manager to be a no-op, got %v", err)
	}
}

func TestClientKeyManagement(t *testing.T) {
	mgr := NewServerSecurityManager()
	mgr.AddClientKeys("a", "b", "c")
	if len(mgr.allowedClientKeys) != 3 {
		t.Fatalf("expected 3 allowed client keys, got %d", len(mgr.allowedClientKeys))
	}

	mgr.ResetClientKeys()
	if mgr.allowedClientKeys != nil {
		t.Fatal("ResetClientKeys should clear the whitelist")
	}
}

func TestAddressListsAreMutuallyExclusive(t *testing.T) {
	mgr := NewServerSecurityManager()
	mgr.AllowAddresses("a", "b", "c")
	if len(mgr.allowedClientAddrs) != 3 {
		t.Fatalf("expected 3 allowed addresses, got %d", len(mgr.allowedClientAddrs))
	}

	mgr.DenyAddresses("d", "e", "f")
	if mgr.allowedClientAddrs != nil {
		t.Fatal("DenyAddresses should clear the allowlist")
	}
	if len(mgr.deniedClientAddrs) != 3 {
		t.Fatalf("expected 3 denied addresses, got %d", len(mgr.deniedClientAddrs))
	}

	mgr.ResetAddressLists()
	if mgr.allowedClientAddrs != nil || mgr.deniedClientAddrs != nil {
		t.Fatal("ResetAddressLists should clear both lists")
	}
}

func TestApplyToServerSocketRejectsBothAddressListsSet(t *testing.T) {
	mgr := NewServerSecurityManager()
	mgr.allowedClientAddrs = []string{"a"}
	mgr.deniedClientAddrs = []string{"b"}

	if err := mgr.ApplyToServerSocket(nil); err == nil {
		t.Fatal("expected an error when both address lists are set, got nil")
	}
}

func TestSetKeys(t *testing.T) {
	mgr := NewServerSecurityManager()
	mgr.SetKeys("pub", "priv")
	if mgr.PublicKey() != "pub" {
		t.Fatalf("expected public key %q, got %q", "pub", mgr.PublicKey())
	}
	if mgr.privateKey != "priv" {
		t.Fatalf("expected private key %q, got %q", "priv", mgr.privateKey)
	}
}
