package synth

import (
	"context"
	"fmt"
	"strings"

	"github.com/vk/forgeplan/internal/compose"
	"github.com/vk/forgeplan/internal/config"
	"github.com/vk/forgeplan/internal/rule"
	"github.com/vk/forgeplan/internal/toolchain"
)

// cgoLibrary declares the split/merge pipeline for a C-interop library.
func (s *Synthesizer) cgoLibrary(ctx context.Context, t *config.Target) error {
	_, err := s.cgoArchive(ctx, t, t.Name, rule.ArchiveName(t.Name), rule.KindLibrary, t.Visibility)
	return err
}

// cgoParts holds the rule names of the interop sub-graph so the test
// pipeline can reuse it for a cgo library under test.
type cgoParts struct {
	cgo   string
	c     string
	goLib string
	final string
}

// cgoArchive declares the preprocessing, dual-compile and merge rules that
// realise one interop archive. finalName is the merge rule's name; archive is
// the produced file (the test pipeline names it after the declared test rule
// so the identity correction's rename applies to it). The final archive holds
// both halves against a single symbol table and carries the link requirements
// the C side imposes.
func (s *Synthesizer) cgoArchive(ctx context.Context, t *config.Target, finalName, archive string, kind rule.Kind, visibility []string) (cgoParts, error) {
	parts := cgoParts{
		cgo:   rule.SubRuleName(finalName, "cgo"),
		c:     rule.SubRuleName(finalName, "c"),
		goLib: rule.SubRuleName(finalName, "go"),
		final: finalName,
	}

	// Step 1: source-to-source translation. Each interop source becomes a
	// wrapper in Go plus a generated C source; one shared type-bridging file,
	// one shared C export file and one export header round out the set.
	genGo := []string{"_cgo_gotypes.go"}
	genC := []string{"_cgo_export.c"}
	indirect := true
	for _, src := range t.Srcs {
		if rule.IsReference(src) {
			continue
		}
		indirect = false
		base := strings.TrimSuffix(src, ".go")
		genGo = append(genGo, base+".cgo1.go")
		genC = append(genC, base+".cgo2.c")
	}

	cmd := fmt.Sprintf("%s tool cgo -objdir %s -importpath %s %s",
		s.tc.Go, toolchain.TmpDir, importPath(t), toolchain.SrcsCgo)
	if !indirect {
		// Split the combined generated set into per-extension output groups.
		// When the interop sources are references to already built artifacts
		// the split is implicit in the reference and this step is skipped.
		cmd += fmt.Sprintf(" && mv %s/*.go . && mv %s/*.c . && mv %s/_cgo_export.h .",
			toolchain.TmpDir, toolchain.TmpDir, toolchain.TmpDir)
	}
	cgoRule := &rule.Rule{
		Name: parts.cgo,
		Kind: rule.KindInternal,
		Srcs: map[string][]string{
			"cgo":  t.Srcs,
			"hdrs": t.Hdrs,
		},
		Outs: append(append(append([]string{}, genGo...), genC...), "_cgo_export.h"),
		NamedOuts: map[string][]string{
			"go": genGo,
			"c":  genC,
			"h":  []string{"_cgo_export.h"},
		},
		Deps:     t.Deps,
		Commands: sameForAllProfiles(cmd),
	}
	if err := s.g.Declare(ctx, cgoRule); err != nil {
		return parts, err
	}

	// Step 2a: compile the C side into one relocatable object. Generated code
	// is not hand-reviewed, so warnings are relaxed rather than fatal.
	cCompile := fmt.Sprintf(
		"for SRC in %s; do %s -c -fPIC -I . -I %s -Wno-error -Wno-unused-parameter -o `basename ${SRC%%.c}`.o $SRC; done && %s -r -nostdlib -o %s *.o",
		toolchain.SrcsC, s.tc.CC, toolchain.TmpDir, s.tc.CC, toolchain.Out)
	cRule := &rule.Rule{
		Name: parts.c,
		Kind: rule.KindInternal,
		Srcs: map[string][]string{
			"c":    append([]string{":" + parts.cgo + "|c"}, t.CSrcs...),
			"hdrs": append([]string{":" + parts.cgo + "|h"}, t.Hdrs...),
		},
		Outs:     []string{parts.c + ".o"},
		Deps:     []string{parts.cgo},
		Commands: sameForAllProfiles(cCompile),
	}
	if err := s.g.Declare(ctx, cRule); err != nil {
		return parts, err
	}

	// Step 2b: compile the Go side into an incomplete archive; completion
	// waits on the merge below.
	goRule := &rule.Rule{
		Name: parts.goLib,
		Kind: rule.KindInternal,
		Srcs: map[string][]string{
			"go": append([]string{":" + parts.cgo + "|go"}, t.GoSrcs...),
		},
		Outs: []string{rule.ArchiveName(parts.goLib)},
		Deps: append([]string{parts.cgo}, t.Deps...),
		Commands: compose.ArchiveCommands(s.tc, compose.ArchiveOptions{
			Complete: false,
			Coverage: true,
		}),
	}
	if err := s.g.Declare(ctx, goRule); err != nil {
		return parts, err
	}

	// Step 3: pack-merge the native object into the archive so both halves
	// resolve against one symbol table, and record the link requirements the
	// C side imposes on any executable downstream.
	final := &rule.Rule{
		Name: parts.final,
		Kind: kind,
		Srcs: map[string][]string{
			"lib": []string{":" + parts.goLib},
			"obj": []string{":" + parts.c},
		},
		Outs:       []string{archive},
		Deps:       []string{parts.goLib, parts.c},
		Visibility: visibility,
		TestOnly:   t.TestOnly,
		Labels:     []string{"srclink:" + importPath(t)},
		Commands:   sameForAllProfiles(s.packMergeCommand()),
	}
	contributeLinkRequirements(final, t)
	if err := s.g.Declare(ctx, final); err != nil {
		return parts, err
	}
	return parts, nil
}
