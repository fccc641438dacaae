package synth

import (
	"context"
	"fmt"

	"github.com/vk/forgeplan/internal/compose"
	"github.com/vk/forgeplan/internal/config"
	"github.com/vk/forgeplan/internal/rule"
	"github.com/vk/forgeplan/internal/toolchain"
)

// test declares the test pipeline: a test-only library archive, harness
// generation with the package-identity report, the harness compile, and the
// final link rule carrying the test execution policy.
//
// The archive is deliberately named after the declared test rule. Harness
// generation discovers the true package identity at build time; when it
// differs, the post-build correction renames the archive and rewrites the two
// downstream command sets before they execute.
func (s *Synthesizer) test(ctx context.Context, t *config.Target) error {
	libName := rule.SubRuleName(t.Name, "lib")
	mainName := rule.SubRuleName(t.Name, "main")
	mainLibName := rule.SubRuleName(t.Name, "main_lib")
	isCgo := len(t.CSrcs) > 0

	if isCgo {
		// The library under test is a C-interop library: build it through the
		// split/merge pipeline first, merging its native object exactly as a
		// non-test interop build would.
		if _, err := s.cgoArchive(ctx, t, libName, rule.ArchiveName(t.Name), rule.KindInternal, nil); err != nil {
			return err
		}
	} else {
		lib := &rule.Rule{
			Name: libName,
			Kind: rule.KindInternal,
			Srcs: map[string][]string{
				"go":   t.Srcs,
				"hdrs": t.Hdrs,
			},
			Outs:     []string{rule.ArchiveName(t.Name)},
			Deps:     t.Deps,
			TestOnly: true,
			Tools:    map[string]string{"filter": s.tc.Filter},
			Commands: compose.ArchiveCommands(s.tc, compose.ArchiveOptions{
				Complete: false,
				// An internal test compiles together with every sibling
				// source of the package under test; an external test sees
				// only its own sources.
				AllSources:    !t.External,
				Coverage:      true,
				FilterSources: t.External,
			}),
		}
		if err := s.g.Declare(ctx, lib); err != nil {
			return err
		}
	}

	// Harness generation. The generator's output stream reports the compiled
	// sources' actual package identity; the attached post-build correction
	// reconciles it with the declared name.
	main := &rule.Rule{
		Name: mainName,
		Kind: rule.KindInternal,
		Srcs: map[string][]string{
			"go": t.Srcs,
		},
		Outs:     []string{"_testmain.go"},
		Deps:     []string{libName},
		TestOnly: true,
		Tools:    map[string]string{"testmain": s.tc.TestMain},
		Commands: sameForAllProfiles(fmt.Sprintf("%s -o %s -p %s %s",
			s.tc.TestMain, toolchain.Out, importPath(t), toolchain.SrcsGo)),
	}
	main.PostBuild = s.identityCorrection(t.Name, mainLibName, t.Name)
	if err := s.g.Declare(ctx, main); err != nil {
		return err
	}

	// Compile the generated harness against the (possibly renamed) archive.
	mainLib := &rule.Rule{
		Name: mainLibName,
		Kind: rule.KindInternal,
		Srcs: map[string][]string{
			"go": []string{":" + mainName},
		},
		Outs:     []string{rule.ArchiveName(mainLibName)},
		Deps:     []string{mainName, libName},
		TestOnly: true,
		Commands: compose.ArchiveCommands(s.tc, compose.ArchiveOptions{
			Complete: true,
		}),
	}
	if err := s.g.Declare(ctx, mainLib); err != nil {
		return err
	}

	linkOpts := compose.LinkOptions{
		Static:        t.Static,
		ExternLDFlags: t.LinkerFlags,
		PkgConfigLibs: t.PkgConfigLibs,
		Definitions:   t.Definitions.Normalize(),
		GcovLinked:    isCgo,
	}
	cmds, tools := compose.LinkCommands(s.tc, linkOpts)
	link := &rule.Rule{
		Name: t.Name,
		Kind: rule.KindTest,
		Srcs: map[string][]string{
			"lib": []string{":" + mainLibName, ":" + libName},
		},
		Outs:       []string{t.Name},
		Deps:       []string{mainLibName, libName},
		Visibility: t.Visibility,
		Test:       true,
		TestOnly:   true,
		Tools:      toolMap(tools),
		Commands:   cmds,
		TestSettings: &rule.TestSettings{
			Command: testCommand(t),
			Timeout: t.Timeout,
			Flaky:   t.Flaky,
			Sandbox: t.Sandbox,
			Worker:  t.Worker,
		},
	}
	link.PreBuild = s.propagationHook(t.Name, linkOpts)
	return s.g.Declare(ctx, link)
}

// testCommand invokes the built test binary, capturing combined output into
// the results artifact. Timeout, rerun policy, sandboxing and the optional
// worker live in TestSettings; enforcing them is the scheduler's job.
func testCommand(t *config.Target) string {
	return toolchain.TestBin + " 2>&1 | tee test.results"
}
