package config

import "time"

// TargetKind identifies which pipeline a declared target enters.
type TargetKind int

const (
	// KindLibrary is a plain or assembly-augmented package library.
	KindLibrary TargetKind = iota
	// KindCgoLibrary is a C-interop library built by the split/merge pipeline.
	KindCgoLibrary
	// KindBinary is a linked executable.
	KindBinary
	// KindTest is a test executable built through harness generation.
	KindTest
)

// Model is the format-agnostic representation of everything declared in a
// build file tree: buildable targets plus third-party fetches.
type Model struct {
	Targets []*Target
	Fetches []*Fetch
}

// Target is one declared buildable unit. Exactly one primary artifact is
// produced per target, however many physical sub-rules realise it.
type Target struct {
	Kind TargetKind
	Name string

	// Source sets by role. Srcs is the primary set; the others are only
	// meaningful for the kinds that declare them.
	Srcs    []string // primary sources (interop sources for KindCgoLibrary)
	AsmSrcs []string // assembly sources triggering the assembly pipeline
	GoSrcs  []string // non-interop companion sources (KindCgoLibrary)
	CSrcs   []string // declared C sources (KindCgoLibrary)
	Hdrs    []string // headers

	Deps       []string
	Visibility []string

	// ImportPath is the package's import path as seen by consumers.
	ImportPath string

	// Complete marks the produced archive as link-ready. Incomplete archives
	// still await a merge against assembly or C objects.
	Complete bool
	// Static requests a fully static link (binaries only).
	Static bool
	// TestOnly restricts dependents to tests.
	TestOnly bool
	// External places test sources in a separate namespace from the package
	// under test; an internal test compiles together with it.
	External bool

	// Definitions inject link-time values into package variables.
	Definitions Definitions
	// LinkerFlags are foreign linker flags this target contributes to any
	// binary that transitively depends on it.
	LinkerFlags []string
	// PkgConfigLibs name pkg-config packages resolved at link time.
	PkgConfigLibs []string

	// Test execution policy (KindTest only).
	Timeout time.Duration
	Flaky   int
	Sandbox bool
	Worker  string
}

// Fetch declares a third-party package to acquire and install.
type Fetch struct {
	Name string
	// Get is the package path to fetch, e.g. "github.com/jtolds/gls".
	Get string
	// Revision pins the version. Empty falls back to the default branch,
	// which the planner flags as non-reproducible.
	Revision string
	// Repo overrides the repository location derived from Get.
	Repo string
	// Hashes are acceptable content hashes of the downloaded source
	// ("blake3:<hex>" or "sha256:<hex>").
	Hashes []string
	// Patch is applied after acquisition; failure to apply is fatal.
	Patch string
	// Install lists the packages to install; empty installs Get itself.
	Install []string
	// Strip removes subpaths from the fetched tree before installing.
	Strip []string
}
