package compose

import (
	"fmt"
	"strings"

	"github.com/vk/forgeplan/internal/rule"
	"github.com/vk/forgeplan/internal/toolchain"
)

// LinkOptions selects the flavour of a "link to executable" operation.
type LinkOptions struct {
	// Static forces external-linker mode with a -static flag merged with any
	// other external linker input.
	Static bool
	// ExternLDFlags are foreign linker flags, in declaration order.
	ExternLDFlags []string
	// PkgConfigLibs are package-manager library names resolved to a library
	// list at link time.
	PkgConfigLibs []string
	// Definitions are the normalised link-time variable definitions (see
	// config.Definitions.Normalize).
	Definitions []string
	// GcovLinked emits a cover variant that links against the coverage
	// runtime; meaningful for tests with instrumented C objects.
	GcovLinked bool
}

// LinkCommands composes the per-profile command text for linking archives
// into an executable, plus the set of tools the command requires beyond the
// primary toolchain driver.
//
// When neither static linking nor foreign flags are in play the command never
// enters external-linker mode, keeping the common case cheap.
func LinkCommands(tc *toolchain.Toolchain, opts LinkOptions) (rule.CommandSet, []string) {
	tools := []string{tc.Go}

	base := fmt.Sprintf("%s tool link -tmpdir %s -extld %s -L . -o %s",
		tc.Go, toolchain.TmpDir, tc.CC, toolchain.Out)
	for _, def := range opts.Definitions {
		base += fmt.Sprintf(" -X %q", def)
	}

	extern := make([]string, 0, len(opts.ExternLDFlags)+1)
	extern = append(extern, opts.ExternLDFlags...)
	if len(opts.PkgConfigLibs) > 0 {
		extern = append(extern, "`"+tc.PkgConfig+" --libs "+strings.Join(opts.PkgConfigLibs, " ")+"`")
		tools = append(tools, tc.PkgConfig)
	}

	switch {
	case opts.Static:
		flags := append([]string{"-static"}, extern...)
		base += fmt.Sprintf(" -linkmode external -extldflags %q", strings.Join(flags, " "))
		tools = append(tools, tc.CC)
	case len(extern) > 0:
		base += fmt.Sprintf(" -extldflags %q", strings.Join(extern, " "))
		tools = append(tools, tc.CC)
	}

	cmd := base + " " + toolchain.SrcsLib
	set := rule.CommandSet{Dbg: cmd, Opt: cmd}
	if opts.GcovLinked {
		cover := base
		if opts.Static || len(extern) > 0 {
			// The extldflags value already exists; append the coverage runtime
			// to it rather than emitting a second, conflicting flag.
			cover = strings.Replace(base, `-extldflags "`, `-extldflags "--coverage `, 1)
		} else {
			cover += ` -extldflags "--coverage"`
		}
		set.Cover = cover + " " + toolchain.SrcsLib
	}
	return set, tools
}
