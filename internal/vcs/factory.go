package vcs

import (
	"fmt"
)

// Factory opens the backend for a path.
//
// For colocated repositories (.jj next to .git) the preferred type wins when
// its binary is installed; otherwise the other one is used.
type Factory struct {
	preferred Type
}

// FactoryOption configures the factory
type FactoryOption func(*Factory)

// WithPreferredType sets the preferred backend for colocated repos.
func WithPreferredType(t Type) FactoryOption {
	return func(f *Factory) {
		f.preferred = t
	}
}

// NewFactory creates a factory. Without options the preference comes from
// PreferredVCS.
func NewFactory(opts ...FactoryOption) *Factory {
	f := &Factory{}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Create detects the repository containing path and opens its backend.
func (f *Factory) Create(path string) (VCS, error) {
	result, err := DetectWithAvailability(path)
	if err != nil {
		return nil, err
	}
	return f.open(f.choose(result), result.RepoRoot)
}

// choose decides which implementation serves a detection result.
func (f *Factory) choose(result *DetectionResult) Type {
	switch result.Type {
	case TypeGit, TypeJJ:
		return result.Type
	case TypeColocate:
		preferred := f.preferred
		if preferred == "" {
			preferred = PreferredVCS()
		}
		if preferred == TypeJJ && result.HasJJ && IsJJAvailable() {
			return TypeJJ
		}
		if result.HasGit && IsGitAvailable() {
			return TypeGit
		}
		return TypeJJ
	default:
		return TypeGit
	}
}

func (f *Factory) open(t Type, repoRoot string) (VCS, error) {
	c := lookup(t)
	if c == nil {
		return nil, fmt.Errorf("no registered constructor for VCS type: %s (available: %v)", t, RegisteredTypes())
	}
	v, err := c(repoRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s repository: %w", t, err)
	}
	return v, nil
}

// GetForPath returns the backend for the repository containing path.
func GetForPath(path string) (VCS, error) {
	return NewFactory().Create(path)
}

// GetWithPreference returns the backend for path, forcing a preference for
// colocated repositories. An empty preference falls back to PreferredVCS.
func GetWithPreference(path string, preferred Type) (VCS, error) {
	return NewFactory(WithPreferredType(preferred)).Create(path)
}
