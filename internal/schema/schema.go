package schema

import (
	"github.com/hashicorp/hcl/v2"
)

// --- Target Blocks ---

// Library represents a `go_library` block: a compiled package archive,
// optionally augmented with assembly sources.
type Library struct {
	Name       string   `hcl:"name,label"`
	Srcs       []string `hcl:"srcs"`
	AsmSrcs    []string `hcl:"asm_srcs,optional"`
	Hdrs       []string `hcl:"hdrs,optional"`
	Deps       []string `hcl:"deps,optional"`
	Visibility []string `hcl:"visibility,optional"`
	ImportPath string   `hcl:"import_path,optional"`
	Complete   *bool    `hcl:"complete,optional"`
	TestOnly   bool     `hcl:"test_only,optional"`
}

// CgoLibrary represents a `cgo_library` block: a C-interop package built by
// the split/merge pipeline. Srcs are the interop sources; go_srcs and c_srcs
// are the plain companions on either side of the boundary.
type CgoLibrary struct {
	Name        string   `hcl:"name,label"`
	Srcs        []string `hcl:"srcs"`
	GoSrcs      []string `hcl:"go_srcs,optional"`
	CSrcs       []string `hcl:"c_srcs,optional"`
	Hdrs        []string `hcl:"hdrs,optional"`
	Deps        []string `hcl:"deps,optional"`
	Visibility  []string `hcl:"visibility,optional"`
	ImportPath  string   `hcl:"import_path,optional"`
	TestOnly    bool     `hcl:"test_only,optional"`
	LinkerFlags []string `hcl:"linker_flags,optional"`
	PkgConfig   []string `hcl:"pkg_config,optional"`
}

// Binary represents a `go_binary` block: a linked executable.
type Binary struct {
	Name        string         `hcl:"name,label"`
	Srcs        []string       `hcl:"srcs"`
	Deps        []string       `hcl:"deps,optional"`
	Visibility  []string       `hcl:"visibility,optional"`
	ImportPath  string         `hcl:"import_path,optional"`
	Static      bool           `hcl:"static,optional"`
	Definitions hcl.Expression `hcl:"definitions,optional"`
	LinkerFlags []string       `hcl:"linker_flags,optional"`
	PkgConfig   []string       `hcl:"pkg_config,optional"`
}

// Test represents a `go_test` block: a test executable built through harness
// generation. Declaring c_srcs routes the test library through the C-interop
// pipeline.
type Test struct {
	Name        string         `hcl:"name,label"`
	Srcs        []string       `hcl:"srcs"`
	CSrcs       []string       `hcl:"c_srcs,optional"`
	Hdrs        []string       `hcl:"hdrs,optional"`
	Deps        []string       `hcl:"deps,optional"`
	Visibility  []string       `hcl:"visibility,optional"`
	ImportPath  string         `hcl:"import_path,optional"`
	External    bool           `hcl:"external,optional"`
	Static      bool           `hcl:"static,optional"`
	Definitions hcl.Expression `hcl:"definitions,optional"`
	LinkerFlags []string       `hcl:"linker_flags,optional"`
	PkgConfig   []string       `hcl:"pkg_config,optional"`
	TimeoutSecs int            `hcl:"timeout,optional"`
	Flaky       int            `hcl:"flaky,optional"`
	Sandbox     bool           `hcl:"sandbox,optional"`
	Worker      string         `hcl:"worker,optional"`
}

// Get represents a `go_get` block: a third-party package to fetch and
// install.
type Get struct {
	Name     string   `hcl:"name,label"`
	Get      string   `hcl:"get"`
	Revision string   `hcl:"revision,optional"`
	Repo     string   `hcl:"repo,optional"`
	Hashes   []string `hcl:"hashes,optional"`
	Patch    string   `hcl:"patch,optional"`
	Install  []string `hcl:"install,optional"`
	Strip    []string `hcl:"strip,optional"`
}

// BuildFile represents the top-level structure of one build file, containing
// every declared target and fetch.
type BuildFile struct {
	Libraries    []*Library    `hcl:"go_library,block"`
	CgoLibraries []*CgoLibrary `hcl:"cgo_library,block"`
	Binaries     []*Binary     `hcl:"go_binary,block"`
	Tests        []*Test       `hcl:"go_test,block"`
	Gets         []*Get        `hcl:"go_get,block"`
	Body         hcl.Body      `hcl:",remain"`
}
