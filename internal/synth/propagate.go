package synth

import (
	"context"
	"fmt"

	"github.com/vk/forgeplan/internal/compose"
	"github.com/vk/forgeplan/internal/ctxlog"
	"github.com/vk/forgeplan/internal/rule"
)

// propagationHook returns the deferred link-flag correction for a binary or
// test link rule. At pre-build time it collects the typed link requirements
// visible through the rule's transitive dependency closure and, only when
// something was found, regenerates the command set with those flags merged
// into the originally composed options. The common case (no C dependencies)
// touches nothing.
func (s *Synthesizer) propagationHook(name string, base compose.LinkOptions) rule.PreBuildFunc {
	return func(ctx context.Context) error {
		reqs := s.g.TransitiveLinkRequirements(name)
		if len(reqs) == 0 {
			return nil
		}
		r, ok := s.g.Rule(name)
		if !ok {
			return fmt.Errorf("link-flag propagation: rule %s vanished", name)
		}

		// The closure may rediscover flags the target already declared for
		// itself, notably through a cgo test's own merge rule, so the merge
		// deduplicates against the composed base.
		opts := base
		opts.ExternLDFlags = mergeUnique(base.ExternLDFlags, ldFlagValues(reqs))
		opts.PkgConfigLibs = mergeUnique(base.PkgConfigLibs, pkgConfigValues(reqs))

		cmds, tools := compose.LinkCommands(s.tc, opts)
		r.Commands = cmds.WithPrefix(r.RenamePrefix)
		if r.Tools == nil {
			r.Tools = make(map[string]string, len(tools))
		}
		for _, t := range tools {
			r.Tools[t] = t
		}
		ctxlog.FromContext(ctx).Debug("link flags propagated",
			"rule", name, "requirements", len(reqs))
		return nil
	}
}

// mergeUnique joins base and extra preserving first-occurrence order,
// dropping duplicates across both lists.
func mergeUnique(base, extra []string) []string {
	out := make([]string, 0, len(base)+len(extra))
	seen := make(map[string]struct{}, len(base)+len(extra))
	for _, v := range append(append([]string{}, base...), extra...) {
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// ldFlagValues extracts the foreign linker flags, in discovery order.
func ldFlagValues(reqs []rule.LinkRequirement) []string {
	var out []string
	for _, req := range reqs {
		if req.Kind == rule.ReqLDFlag {
			out = append(out, req.Value)
		}
	}
	return out
}

// pkgConfigValues extracts the package-manager library names, in discovery
// order.
func pkgConfigValues(reqs []rule.LinkRequirement) []string {
	var out []string
	for _, req := range reqs {
		if req.Kind == rule.ReqPkgConfig {
			out = append(out, req.Value)
		}
	}
	return out
}
