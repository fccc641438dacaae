package compose

import (
	"fmt"

	"github.com/vk/forgeplan/internal/rule"
	"github.com/vk/forgeplan/internal/toolchain"
)

// ArchiveOptions selects the flavour of a "compile to archive" operation.
// Every pipeline that needs an archive goes through this one parametrised
// operation instead of carrying its own compile command.
type ArchiveOptions struct {
	// Complete marks the archive link-ready: the compiler may assume no
	// further objects will be merged into it.
	Complete bool
	// AllSources compiles every primary source in the package directory, not
	// just the declared ones. Internal tests use this to compile the package
	// under test together with its test sources.
	AllSources bool
	// Coverage emits the coverage-instrumented command variant.
	Coverage bool
	// FilterSources passes the declared sources through the build-constraint
	// filter tool before compiling.
	FilterSources bool
	// AbiSplit compiles against an assembly ABI descriptor and emits the
	// generated assembly header alongside the archive.
	AbiSplit bool
}

// ArchiveCommands composes the per-profile command text for compiling sources
// into a package archive. The dbg variant disables optimisation and inlining;
// opt is the compiler default; cover is present only when requested and
// prepends a per-source instrumentation pass over the same sources.
//
// The result is pure text: composing twice with the same inputs yields
// identical commands.
func ArchiveCommands(tc *toolchain.Toolchain, opts ArchiveOptions) rule.CommandSet {
	srcs := toolchain.SrcsGo
	switch {
	case opts.AllSources:
		srcs = toolchain.PkgDir + "/*.go"
	case opts.FilterSources:
		srcs = "`" + tc.Filter + " " + toolchain.SrcsGo + "`"
	}

	base := fmt.Sprintf("%s tool compile -trimpath %s -I . -pack", tc.Go, toolchain.TmpDir)
	if opts.Complete {
		base += " -complete"
	}
	if opts.AbiSplit {
		base += fmt.Sprintf(" -symabis %s -asmhdr %s/go_asm.h", toolchain.SrcsAbi, toolchain.TmpDir)
	}

	set := rule.CommandSet{
		Dbg: base + " -N -l -o " + toolchain.Out + " " + srcs,
		Opt: base + " -o " + toolchain.Out + " " + srcs,
	}
	if opts.Coverage {
		// Rewrite each source in place with counter instrumentation, keyed by
		// its sanitised file name, then run the ordinary optimised compile.
		// The loop iterates the same source set the compile consumes, so an
		// all-sources build instruments the whole package directory.
		instrument := fmt.Sprintf(
			`for SRC in %s; do mv -f $SRC _cover_tmp.go; BN=`+"`basename $SRC | sed -e 's/[^A-Za-z0-9_]/_/g'`"+`; %s tool cover -mode set -var GoCover_$BN -o $SRC _cover_tmp.go; done`,
			srcs, tc.Go)
		set.Cover = instrument + " && " + set.Opt
	}
	return set
}
