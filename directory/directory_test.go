package directory

import (
	"errors"
	"testing"

	"github.com/arashi-labs/meshrpc/directorylog"
)

func newTestDirectory(t *testing.T) *Directory {
	t.Helper()
	log := directorylog.New("test", directorylog.LevelDebug)
	return New("self-machine", "localhost", "10.0.0.1", 5555, log)
}

func TestSelfHostingBootstrap(t *testing.T) {
	d := newTestDirectory(t)
	if !d.IsInitialized() {
		t.Fatal("IsInitialized() = false after New")
	}
	if _, ok := d.ListMachine("self-machine"); !ok {
		t.Fatal("self machine not registered")
	}
	if _, ok := d.ListEndpoint(d.SelfEndpointID()); !ok {
		t.Fatal("self endpoint not registered")
	}
	svcs := d.ListServices()
	if len(svcs) != len(selfSignatures) {
		t.Fatalf("len(ListServices()) = %d, want %d", len(svcs), len(selfSignatures))
	}
	for _, sig := range selfSignatures {
		if owner := svcs[sig]; owner != d.SelfEndpointID() {
			t.Fatalf("signature %q owner = %q, want self endpoint %q", sig, owner, d.SelfEndpointID())
		}
	}
}

// Scenario 1: two endpoints, same machine, ipc preferred.
func TestScenarioSameMachinePrefersIPC(t *testing.T) {
	d := newTestDirectory(t)
	d.RegisterMachine("m1", "host1", "1.2.3.4", 0)
	if _, err := d.RegisterEndpoint("worker", "e1", "e1", "", "m1", 1, 1000); err != nil {
		t.Fatal(err)
	}
	if _, err := d.RegisterEndpoint("worker", "e2", "e2", "", "m1", 2, 2000); err != nil {
		t.Fatal(err)
	}
	if err := d.RegisterService("svc1::f()", "e2"); err != nil {
		t.Fatal(err)
	}

	got := d.LocateService("svc1::f()", "e1")
	if got != "ipc:///tmp/e2" {
		t.Fatalf("LocateService() = %q, want ipc:///tmp/e2", got)
	}
}

// Scenario 2: different machines, tcp with server's public IP.
func TestScenarioDifferentMachines(t *testing.T) {
	d := newTestDirectory(t)
	d.RegisterMachine("m1", "host1", "1.2.3.4", 0)
	d.RegisterMachine("m2", "host2", "5.6.7.8", 0)
	if _, err := d.RegisterEndpoint("worker", "e1", "e1", "", "m1", 1, 1000); err != nil {
		t.Fatal(err)
	}
	if _, err := d.RegisterEndpoint("worker", "e2", "e2", "", "m2", 2, 3000); err != nil {
		t.Fatal(err)
	}
	if err := d.RegisterService("svc1::f()", "e2"); err != nil {
		t.Fatal(err)
	}

	got := d.LocateService("svc1::f()", "e1")
	if got != "tcp://5.6.7.8:3000" {
		t.Fatalf("LocateService() = %q, want tcp://5.6.7.8:3000", got)
	}
}

// Scenario 3 / P3: cascading unregister removes owned services and topics,
// and leaves ListEndpoints() unchanged from the pre-state otherwise.
func TestScenarioCascadingUnregister(t *testing.T) {
	d := newTestDirectory(t)
	d.RegisterMachine("m1", "host1", "1.2.3.4", 0)
	if _, err := d.RegisterEndpoint("worker", "e1", "e1", "", "m1", 1, 1000); err != nil {
		t.Fatal(err)
	}
	if err := d.RegisterService("s1", "e1"); err != nil {
		t.Fatal(err)
	}
	if err := d.RegisterTopic("t1", "e1"); err != nil {
		t.Fatal(err)
	}

	before := d.ListEndpoints()

	d.UnregisterEndpoint("e1")

	if _, ok := d.ListEndpoint("e1"); ok {
		t.Fatal("e1 still present after unregister")
	}
	if _, ok := d.ListServices()["s1"]; ok {
		t.Fatal("s1 still present after owning endpoint unregistered")
	}
	if _, ok := d.ListTopics()["t1"]; ok {
		t.Fatal("t1 still present after owning endpoint unregistered")
	}

	// Re-registering a different, unrelated endpoint must not resurrect e1.
	after := d.ListEndpoints()
	foundE1 := false
	for _, id := range after {
		if id == "e1" {
			foundE1 = true
		}
	}
	if foundE1 {
		t.Fatal("e1 reappeared in ListEndpoints()")
	}
	_ = before
}

// P4: first registration of a signature wins; a later registration by a
// different endpoint is logged and rejected, not applied.
func TestRegisterServiceFirstWins(t *testing.T) {
	d := newTestDirectory(t)
	d.RegisterMachine("m1", "host1", "1.2.3.4", 0)
	d.RegisterEndpoint("worker", "a", "a", "", "m1", 1, 1000)
	d.RegisterEndpoint("worker", "b", "b", "", "m1", 2, 2000)

	if err := d.RegisterService("sig", "a"); err != nil {
		t.Fatal(err)
	}
	if err := d.RegisterService("sig", "b"); err != nil {
		t.Fatal(err)
	}

	got := d.LocateService("sig", "a")
	if got == "" {
		t.Fatal("LocateService returned empty; expected a route to a")
	}
	svcs := d.ListServices()
	if svcs["sig"] != "a" {
		t.Fatalf("owner of sig = %q, want a (first-wins)", svcs["sig"])
	}
}

func TestRegisterServiceSameOwnerIsIdempotent(t *testing.T) {
	d := newTestDirectory(t)
	d.RegisterMachine("m1", "host1", "1.2.3.4", 0)
	d.RegisterEndpoint("worker", "a", "a", "", "m1", 1, 1000)

	if err := d.RegisterService("sig", "a"); err != nil {
		t.Fatal(err)
	}
	if err := d.RegisterService("sig", "a"); err != nil {
		t.Fatalf("re-registering with the same owner should succeed, got %v", err)
	}
}

func TestRegisterEndpointUnknownMachine(t *testing.T) {
	d := newTestDirectory(t)
	_, err := d.RegisterEndpoint("worker", "e1", "e1", "", "no-such-machine", 1, 1000)
	if !errors.Is(err, ErrUnknownMachine) {
		t.Fatalf("err = %v, want ErrUnknownMachine", err)
	}
}

func TestRegisterServiceUnknownEndpoint(t *testing.T) {
	d := newTestDirectory(t)
	err := d.RegisterService("sig", "no-such-endpoint")
	if !errors.Is(err, ErrUnknownEndpoint) {
		t.Fatalf("err = %v, want ErrUnknownEndpoint", err)
	}
}

// Scenario 6: locating an unknown service returns empty, no error surfaced.
func TestScenarioLocateUnknown(t *testing.T) {
	d := newTestDirectory(t)
	got := d.LocateService("nope", "any-id")
	if got != "" {
		t.Fatalf("LocateService(unknown) = %q, want empty", got)
	}
}

func TestHealthAndLameduck(t *testing.T) {
	d := newTestDirectory(t)
	if !d.Health() {
		t.Fatal("Health() = false, want true after construction")
	}
	d.SetLameduck(true)
	if d.Health() {
		t.Fatal("Health() = true while in lameduck mode")
	}
	if !d.Ping() {
		t.Fatal("Ping() should always succeed regardless of lameduck mode")
	}
}
