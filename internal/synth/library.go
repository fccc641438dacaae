package synth

import (
	"context"
	"fmt"

	"github.com/vk/forgeplan/internal/compose"
	"github.com/vk/forgeplan/internal/config"
	"github.com/vk/forgeplan/internal/rule"
	"github.com/vk/forgeplan/internal/toolchain"
)

// library declares the degenerate pipeline: one rule, one direct compile of
// the declared sources. Multi-stage behaviour only appears when assembly or
// interop sources exist.
func (s *Synthesizer) library(ctx context.Context, t *config.Target) error {
	r := &rule.Rule{
		Name: t.Name,
		Kind: rule.KindLibrary,
		Srcs: map[string][]string{
			"go":   t.Srcs,
			"hdrs": t.Hdrs,
		},
		Outs:       []string{rule.ArchiveName(t.Name)},
		Deps:       t.Deps,
		Visibility: t.Visibility,
		TestOnly:   t.TestOnly,
		Tools:      map[string]string{"filter": s.tc.Filter},
		Labels:     []string{"srclink:" + importPath(t)},
		Commands: compose.ArchiveCommands(s.tc, compose.ArchiveOptions{
			Complete:      t.Complete,
			Coverage:      true,
			FilterSources: true,
		}),
	}
	contributeLinkRequirements(r, t)
	return s.g.Declare(ctx, r)
}

// asmLibrary declares the four-stage assembly pipeline. The final archive is
// indistinguishable from one built without assembly: same format, same
// lookup contract, one primary artifact.
func (s *Synthesizer) asmLibrary(ctx context.Context, t *config.Target) error {
	abiName := rule.SubRuleName(t.Name, "abi")
	libName := rule.SubRuleName(t.Name, "lib")
	asmName := rule.SubRuleName(t.Name, "asm")

	// Stage 1: extract the symbol ABI descriptor from the assembly sources.
	// Only the ABI-relevant directives matter here; the generated header does
	// not yet exist and must not be needed.
	abi := &rule.Rule{
		Name: abiName,
		Kind: rule.KindInternal,
		Srcs: map[string][]string{
			"asm":  t.AsmSrcs,
			"hdrs": t.Hdrs,
		},
		Outs:     []string{t.Name + ".symabis"},
		Commands: sameForAllProfiles(fmt.Sprintf("%s tool asm -I %s -I . -gensymabis -o %s %s",
			s.tc.Go, toolchain.TmpDir, toolchain.Out, toolchain.SrcsAsm)),
	}
	if err := s.g.Declare(ctx, abi); err != nil {
		return err
	}

	// Stage 2: compile the primary sources against the ABI descriptor into an
	// incomplete archive, emitting the assembly-visible symbol header.
	lib := &rule.Rule{
		Name: libName,
		Kind: rule.KindInternal,
		Srcs: map[string][]string{
			"go":  t.Srcs,
			"abi": []string{":" + abiName},
		},
		Outs: []string{rule.ArchiveName(libName), "go_asm.h"},
		Deps: append([]string{abiName}, t.Deps...),
		Commands: compose.ArchiveCommands(s.tc, compose.ArchiveOptions{
			Complete:      false,
			Coverage:      true,
			FilterSources: true,
			AbiSplit:      true,
		}),
		Tools: map[string]string{"filter": s.tc.Filter},
	}
	if err := s.g.Declare(ctx, lib); err != nil {
		return err
	}

	// Stage 3: assemble the same sources again, now with the generated header
	// available, producing relocatable objects.
	objs := make([]string, 0, len(t.AsmSrcs))
	for _, src := range t.AsmSrcs {
		objs = append(objs, objectName(src))
	}
	asm := &rule.Rule{
		Name: asmName,
		Kind: rule.KindInternal,
		Srcs: map[string][]string{
			"asm":  t.AsmSrcs,
			"hdrs": append([]string{":" + libName}, t.Hdrs...),
		},
		Outs: objs,
		Deps: []string{libName},
		Commands: sameForAllProfiles(fmt.Sprintf(
			"for SRC in %s; do %s tool asm -trimpath %s -I %s -I . -o ${SRC%%.s}.o $SRC; done",
			toolchain.SrcsAsm, s.tc.Go, toolchain.TmpDir, toolchain.TmpDir)),
	}
	if err := s.g.Declare(ctx, asm); err != nil {
		return err
	}

	// Stage 4: pack-merge the assembled objects into a copy of the incomplete
	// archive, yielding the single primary artifact.
	final := &rule.Rule{
		Name: t.Name,
		Kind: rule.KindLibrary,
		Srcs: map[string][]string{
			"lib": []string{":" + libName},
			"obj": []string{":" + asmName},
		},
		Outs:       []string{rule.ArchiveName(t.Name)},
		Deps:       []string{libName, asmName},
		Visibility: t.Visibility,
		TestOnly:   t.TestOnly,
		Labels:     []string{"srclink:" + importPath(t)},
		Commands:   sameForAllProfiles(s.packMergeCommand()),
	}
	contributeLinkRequirements(final, t)
	return s.g.Declare(ctx, final)
}

// packMergeCommand copies the incomplete archive to the output path and
// injects the merged objects with an add/replace member operation. Both the
// assembly and interop pipelines finish with this exact operation.
func (s *Synthesizer) packMergeCommand() string {
	return fmt.Sprintf("cp %s %s && %s tool pack r %s %s",
		toolchain.SrcsLib, toolchain.Out, s.tc.Go, toolchain.Out, toolchain.SrcsObj)
}

// contributeLinkRequirements records the target's declared foreign linker
// flags and package-manager libraries as typed requirements on its rule.
func contributeLinkRequirements(r *rule.Rule, t *config.Target) {
	for _, flag := range t.LinkerFlags {
		r.AddRequirement(rule.ReqLDFlag, flag)
	}
	for _, lib := range t.PkgConfigLibs {
		r.AddRequirement(rule.ReqPkgConfig, lib)
	}
}

// sameForAllProfiles is for tool steps whose text does not vary by profile.
func sameForAllProfiles(cmd string) rule.CommandSet {
	return rule.CommandSet{Dbg: cmd, Opt: cmd}
}

// objectName maps an assembly source to its assembled object file.
func objectName(src string) string {
	if len(src) > 2 && src[len(src)-2:] == ".s" {
		return src[:len(src)-2] + ".o"
	}
	return src + ".o"
}
