package vcs

import (
	"context"
	"testing"
)

// mockVCS is a mock VCS implementation for testing
type mockVCS struct {
	name     Type
	repoRoot string
}

func (m *mockVCS) Name() Type                                        { return m.name }
func (m *mockVCS) RepoRoot() (string, error)                         { return m.repoRoot, nil }
func (m *mockVCS) ChangedFiles(context.Context) ([]FileChange, error) { return nil, nil }
func (m *mockVCS) StagedDiff(context.Context, string) (string, error) { return "", nil }
func (m *mockVCS) StagedContent(context.Context, string) ([]byte, error) {
	return nil, ErrNotFound
}
func (m *mockVCS) CommittedContent(context.Context, string) ([]byte, error) {
	return nil, ErrNotFound
}
func (m *mockVCS) WorkingDiff(context.Context, string) (string, error) { return "", nil }
func (m *mockVCS) Add(context.Context, ...string) error                { return nil }
func (m *mockVCS) Exec(context.Context, ...string) ([]byte, error)     { return nil, nil }

func newMockVCS(name Type) Constructor {
	return func(repoRoot string) (VCS, error) {
		return &mockVCS{name: name, repoRoot: repoRoot}, nil
	}
}

// registerOnce keeps repeated test runs in one process from panicking.
func registerOnce(t Type) {
	if !IsRegistered(t) {
		Register(t, newMockVCS(t))
	}
}

func TestRegister(t *testing.T) {
	const typ Type = "test-register"
	registerOnce(typ)

	if !IsRegistered(typ) {
		t.Fatalf("IsRegistered(%q) = false after Register", typ)
	}
	if IsRegistered("never-registered") {
		t.Error("IsRegistered reported an unknown type")
	}

	found := false
	for _, got := range RegisteredTypes() {
		if got == typ {
			found = true
		}
	}
	if !found {
		t.Errorf("RegisteredTypes() = %v, missing %q", RegisteredTypes(), typ)
	}
}

func TestRegisterPanics(t *testing.T) {
	const typ Type = "test-register-dup"
	registerOnce(typ)

	t.Run("duplicate", func(t *testing.T) {
		defer func() {
			if recover() == nil {
				t.Error("expected panic on duplicate registration")
			}
		}()
		Register(typ, newMockVCS(typ))
	})

	t.Run("nil constructor", func(t *testing.T) {
		defer func() {
			if recover() == nil {
				t.Error("expected panic on nil constructor")
			}
		}()
		Register("test-register-nil", nil)
	})
}

func TestRegisteredTypesSorted(t *testing.T) {
	registerOnce("test-sorted-b")
	registerOnce("test-sorted-a")

	types := RegisteredTypes()
	for i := 1; i < len(types); i++ {
		if types[i-1] > types[i] {
			t.Fatalf("RegisteredTypes() not sorted: %v", types)
		}
	}
}
