package asr

import (
	"context"
	"strings"
	"testing"
)

type nopAdapter struct {
	name string
}

func (a *nopAdapter) Name() string { return a.name }

func (a *nopAdapter) Start(ctx context.Context, onDelta DeltaFunc, onErr ErrorFunc) (*Session, error) {
	s := NewSession(a.name)
	s.SetState(StateActive)
	return s, nil
}

func (a *nopAdapter) Feed(session *Session, data []byte) error { return nil }

func (a *nopAdapter) Stop(session *Session) error {
	session.SetState(StateCompleted)
	return nil
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()

	for _, name := range []string{"beta", "alpha"} {
		name := name
		if err := r.Register(name, func() (Adapter, error) {
			return &nopAdapter{name: name}, nil
		}); err != nil {
			t.Fatalf("Failed to register %q: %v", name, err)
		}
	}

	names := r.Names()
	if len(names) != 2 || names[0] != "alpha" || names[1] != "beta" {
		t.Errorf("Expected sorted names [alpha beta], got %v", names)
	}

	adapter, err := r.New("alpha")
	if err != nil {
		t.Fatalf("Failed to build adapter: %v", err)
	}
	if adapter.Name() != "alpha" {
		t.Errorf("Expected adapter %q, got %q", "alpha", adapter.Name())
	}
}

func TestRegistryDuplicate(t *testing.T) {
	r := NewRegistry()
	factory := func() (Adapter, error) { return &nopAdapter{name: "dup"}, nil }

	if err := r.Register("dup", factory); err != nil {
		t.Fatalf("Failed to register: %v", err)
	}
	if err := r.Register("dup", factory); err == nil {
		t.Error("Expected error for duplicate registration")
	}
}

func TestRegistryUnknownProvider(t *testing.T) {
	r := NewRegistry()
	r.Register("known", func() (Adapter, error) { return &nopAdapter{name: "known"}, nil })

	_, err := r.New("missing")
	if err == nil {
		t.Fatal("Expected error for unknown provider")
	}
	if !strings.Contains(err.Error(), "known") {
		t.Errorf("Expected error to list registered providers, got %v", err)
	}
}
