package relay

import (
	"errors"
	"testing"
)

const (
	protoA Protocol = "a"
	protoB Protocol = "b"
	protoC Protocol = "c"
)

// backend is a stand-in capability implementation.
type backend struct {
	name string
}

var surface = []string{"Up", "Down", "Select"}

func newTestRelay() *Relay[*backend] {
	return New[*backend](surface, []Protocol{protoA, protoB, protoC})
}

func TestRegisterUnknownProtocol(t *testing.T) {
	r := newTestRelay()
	if err := r.Register("x", &backend{}, surface); !errors.Is(err, ErrBadRegistration) {
		t.Errorf("Register(x) error = %v, want ErrBadRegistration", err)
	}
}

func TestRegisterUnknownMethod(t *testing.T) {
	r := newTestRelay()
	if err := r.Register(protoA, &backend{}, []string{"Teleport"}); !errors.Is(err, ErrBadRegistration) {
		t.Errorf("Register with unknown method error = %v, want ErrBadRegistration", err)
	}
}

func TestResolvePriority(t *testing.T) {
	r := newTestRelay()
	a := &backend{name: "a"}
	b := &backend{name: "b"}
	if err := r.Register(protoA, a, []string{"Up", "Down"}); err != nil {
		t.Fatalf("Register(a) error = %v", err)
	}
	if err := r.Register(protoB, b, []string{"Up", "Select"}); err != nil {
		t.Fatalf("Register(b) error = %v", err)
	}

	// Both implement Up: higher priority wins.
	got, err := r.Resolve("Up")
	if err != nil {
		t.Fatalf("Resolve(Up) error = %v", err)
	}
	if got != a {
		t.Errorf("Resolve(Up) = %s, want a", got.name)
	}

	// Only the lower-priority backend implements Select.
	got, err = r.Resolve("Select")
	if err != nil {
		t.Fatalf("Resolve(Select) error = %v", err)
	}
	if got != b {
		t.Errorf("Resolve(Select) = %s, want b", got.name)
	}
}

func TestResolveWithOverridePriority(t *testing.T) {
	r := newTestRelay()
	a := &backend{name: "a"}
	b := &backend{name: "b"}
	if err := r.Register(protoA, a, []string{"Up"}); err != nil {
		t.Fatalf("Register(a) error = %v", err)
	}
	if err := r.Register(protoB, b, []string{"Up"}); err != nil {
		t.Fatalf("Register(b) error = %v", err)
	}

	// A one-off order reverses the outcome without touching the relay.
	got, err := r.ResolveWith("Up", []Protocol{protoB, protoA})
	if err != nil {
		t.Fatalf("ResolveWith(Up) error = %v", err)
	}
	if got != b {
		t.Errorf("ResolveWith(Up) = %s, want b", got.name)
	}

	// The relay's own order is unchanged.
	got, err = r.Resolve("Up")
	if err != nil {
		t.Fatalf("Resolve(Up) error = %v", err)
	}
	if got != a {
		t.Errorf("Resolve(Up) after override = %s, want a", got.name)
	}

	// An active takeover still walks ahead of the override order.
	if err := r.Takeover(protoA); err != nil {
		t.Fatalf("Takeover(a) error = %v", err)
	}
	got, err = r.ResolveWith("Up", []Protocol{protoB, protoA})
	if err != nil {
		t.Fatalf("ResolveWith(Up) under takeover error = %v", err)
	}
	if got != a {
		t.Errorf("ResolveWith(Up) under takeover = %s, want a", got.name)
	}
}

func TestResolveNotSupported(t *testing.T) {
	r := newTestRelay()
	if err := r.Register(protoA, &backend{}, []string{"Up"}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if _, err := r.Resolve("Select"); !errors.Is(err, ErrNotSupported) {
		t.Errorf("Resolve(Select) error = %v, want ErrNotSupported", err)
	}
}

func TestResolveOutsideSurface(t *testing.T) {
	r := newTestRelay()
	if err := r.Register(protoA, &backend{}, surface); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if _, err := r.Resolve("Teleport"); !errors.Is(err, ErrBadRegistration) {
		t.Errorf("Resolve(Teleport) error = %v, want ErrBadRegistration", err)
	}
}

func TestUnregisteredTagSkipped(t *testing.T) {
	r := newTestRelay()
	c := &backend{name: "c"}
	if err := r.Register(protoC, c, []string{"Up"}); err != nil {
		t.Fatalf("Register(c) error = %v", err)
	}

	got, err := r.Resolve("Up")
	if err != nil {
		t.Fatalf("Resolve(Up) error = %v", err)
	}
	if got != c {
		t.Errorf("Resolve(Up) = %s, want c", got.name)
	}
}

func TestTakeover(t *testing.T) {
	r := newTestRelay()
	a := &backend{name: "a"}
	b := &backend{name: "b"}
	r.Register(protoA, a, []string{"Up"})
	r.Register(protoB, b, []string{"Up"})

	if err := r.Takeover(protoB); err != nil {
		t.Fatalf("Takeover(b) error = %v", err)
	}
	if got, _ := r.Resolve("Up"); got != b {
		t.Errorf("Resolve(Up) under takeover = %s, want b", got.name)
	}
	if tag, _ := r.MainProtocol(); tag != protoB {
		t.Errorf("MainProtocol() under takeover = %s, want b", tag)
	}

	// A second takeover is rejected while one is active.
	if err := r.Takeover(protoA); !errors.Is(err, ErrInvalidState) {
		t.Errorf("second Takeover() error = %v, want ErrInvalidState", err)
	}

	r.Release()
	if got, _ := r.Resolve("Up"); got != a {
		t.Errorf("Resolve(Up) after release = %s, want a", got.name)
	}

	// Release with no takeover active is a no-op.
	r.Release()
}

func TestTakeoverUnknownProtocol(t *testing.T) {
	r := newTestRelay()
	if err := r.Takeover("x"); !errors.Is(err, ErrBadRegistration) {
		t.Errorf("Takeover(x) error = %v, want ErrBadRegistration", err)
	}
}

func TestMainInstance(t *testing.T) {
	r := newTestRelay()
	if _, err := r.MainInstance(); !errors.Is(err, ErrNotSupported) {
		t.Errorf("MainInstance() on empty relay error = %v, want ErrNotSupported", err)
	}

	b := &backend{name: "b"}
	r.Register(protoB, b, []string{"Up"})
	got, err := r.MainInstance()
	if err != nil {
		t.Fatalf("MainInstance() error = %v", err)
	}
	if got != b {
		t.Errorf("MainInstance() = %s, want b", got.name)
	}
	if tag, _ := r.MainProtocol(); tag != protoB {
		t.Errorf("MainProtocol() = %s, want b", tag)
	}
}

func TestReRegisterReplaces(t *testing.T) {
	r := newTestRelay()
	first := &backend{name: "first"}
	second := &backend{name: "second"}
	r.Register(protoA, first, []string{"Up"})
	r.Register(protoA, second, []string{"Up", "Down"})

	got, err := r.Resolve("Down")
	if err != nil {
		t.Fatalf("Resolve(Down) error = %v", err)
	}
	if got != second {
		t.Errorf("Resolve(Down) = %s, want second", got.name)
	}
}
