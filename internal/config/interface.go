package config

import "context"

// Loader is the interface for a format-specific build file loader. The HCL
// implementation lives in internal/hcl; tests construct Models directly.
type Loader interface {
	// Load reads every build file reachable from the given paths and
	// translates them into the format-agnostic model.
	Load(ctx context.Context, paths ...string) (*Model, error)
}
