package synth

import (
	"context"

	"github.com/vk/forgeplan/internal/compose"
	"github.com/vk/forgeplan/internal/config"
	"github.com/vk/forgeplan/internal/rule"
)

// binary declares a private library compile plus the final link rule. The
// link rule carries the flag-propagation hook so foreign linker requirements
// discovered transitively are merged in just before it executes.
func (s *Synthesizer) binary(ctx context.Context, t *config.Target) error {
	libName := rule.SubRuleName(t.Name, "lib")
	lib := &rule.Rule{
		Name: libName,
		Kind: rule.KindInternal,
		Srcs: map[string][]string{
			"go": t.Srcs,
		},
		Outs:  []string{rule.ArchiveName(libName)},
		Deps:  t.Deps,
		Tools: map[string]string{"filter": s.tc.Filter},
		Commands: compose.ArchiveCommands(s.tc, compose.ArchiveOptions{
			Complete:      true,
			Coverage:      true,
			FilterSources: true,
		}),
	}
	if err := s.g.Declare(ctx, lib); err != nil {
		return err
	}

	linkOpts := compose.LinkOptions{
		Static:        t.Static,
		ExternLDFlags: t.LinkerFlags,
		PkgConfigLibs: t.PkgConfigLibs,
		Definitions:   t.Definitions.Normalize(),
	}
	cmds, tools := compose.LinkCommands(s.tc, linkOpts)
	link := &rule.Rule{
		Name: t.Name,
		Kind: rule.KindBinary,
		Srcs: map[string][]string{
			"lib": []string{":" + libName},
		},
		Outs:       []string{t.Name},
		Deps:       []string{libName},
		Visibility: t.Visibility,
		Binary:     true,
		Tools:      toolMap(tools),
		Commands:   cmds,
	}
	link.PreBuild = s.propagationHook(t.Name, linkOpts)
	return s.g.Declare(ctx, link)
}

// toolMap keys a tool list by its executable name.
func toolMap(tools []string) map[string]string {
	if len(tools) == 0 {
		return nil
	}
	m := make(map[string]string, len(tools))
	for _, t := range tools {
		m[t] = t
	}
	return m
}
