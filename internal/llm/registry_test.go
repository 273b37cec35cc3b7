package llm

import (
	"context"
	"testing"
)

// mockProvider is a test implementation of Provider.
type mockProvider struct {
	name string
}

func (m *mockProvider) Name() string {
	return m.name
}

func (m *mockProvider) Propose(ctx context.Context, req Request) (string, error) {
	return `{"regions": []}`, nil
}

func (m *mockProvider) Validate() error {
	return nil
}

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()

	if r == nil {
		t.Fatal("expected non-nil registry")
	}
	if len(r.List()) != 0 {
		t.Errorf("expected 0 providers, got %d", len(r.List()))
	}
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()
	p := &mockProvider{name: "test"}

	err := r.Register(p)
	if err != nil {
		t.Fatalf("failed to register: %v", err)
	}

	if !r.Has("test") {
		t.Error("expected provider to be registered")
	}
}

func TestRegistry_RegisterDuplicate(t *testing.T) {
	r := NewRegistry()
	p1 := &mockProvider{name: "test"}
	p2 := &mockProvider{name: "test"}

	if err := r.Register(p1); err != nil {
		t.Fatalf("failed to register first: %v", err)
	}

	err := r.Register(p2)
	if err == nil {
		t.Error("expected error for duplicate registration")
	}
}

func TestRegistry_RegisterNil(t *testing.T) {
	r := NewRegistry()

	err := r.Register(nil)
	if err == nil {
		t.Error("expected error for nil provider")
	}
}

func TestRegistry_Get(t *testing.T) {
	r := NewRegistry()
	p := &mockProvider{name: "test"}
	_ = r.Register(p)

	got, err := r.Get("test")
	if err != nil {
		t.Fatalf("failed to get: %v", err)
	}

	if got.Name() != "test" {
		t.Errorf("expected 'test', got %s", got.Name())
	}
}

func TestRegistry_GetNotFound(t *testing.T) {
	r := NewRegistry()

	_, err := r.Get("nonexistent")
	if err == nil {
		t.Error("expected error for nonexistent provider")
	}
}

func TestRegistry_List(t *testing.T) {
	r := NewRegistry()
	_ = r.Register(&mockProvider{name: "gamma"})
	_ = r.Register(&mockProvider{name: "alpha"})
	_ = r.Register(&mockProvider{name: "beta"})

	names := r.List()

	if len(names) != 3 {
		t.Fatalf("expected 3 names, got %d", len(names))
	}

	// List should be sorted
	if names[0] != "alpha" || names[1] != "beta" || names[2] != "gamma" {
		t.Errorf("expected sorted list, got %v", names)
	}
}

func TestRegistry_Has(t *testing.T) {
	r := NewRegistry()
	_ = r.Register(&mockProvider{name: "test"})

	if !r.Has("test") {
		t.Error("expected Has('test') to return true")
	}
	if r.Has("nonexistent") {
		t.Error("expected Has('nonexistent') to return false")
	}
}
