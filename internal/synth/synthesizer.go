package synth

import (
	"context"
	"fmt"

	"github.com/vk/forgeplan/internal/config"
	"github.com/vk/forgeplan/internal/ctxlog"
	"github.com/vk/forgeplan/internal/fetch"
	"github.com/vk/forgeplan/internal/rule"
	"github.com/vk/forgeplan/internal/toolchain"
)

// Graph is the narrow surface the pipelines need from the graph engine:
// declaring rules, looking them up for deferred mutation, and querying the
// transitive link requirements gathered along dependency edges.
type Graph interface {
	Declare(ctx context.Context, r *rule.Rule) error
	Rule(name string) (*rule.Rule, bool)
	TransitiveLinkRequirements(name string) []rule.LinkRequirement
}

// Synthesizer derives rules from declared targets. It holds no per-target
// state; one instance serves a whole model.
type Synthesizer struct {
	tc *toolchain.Toolchain
	g  Graph
}

// New creates a synthesizer that declares rules into g using tc's tools.
func New(tc *toolchain.Toolchain, g Graph) *Synthesizer {
	return &Synthesizer{tc: tc, g: g}
}

// Model synthesizes every target and fetch in the model. Configuration
// errors surface here, before any rule command could possibly run.
func (s *Synthesizer) Model(ctx context.Context, m *config.Model) error {
	for _, f := range m.Fetches {
		if err := s.Fetch(ctx, f); err != nil {
			return fmt.Errorf("fetch %s: %w", f.Name, err)
		}
	}
	for _, t := range m.Targets {
		if err := s.Target(ctx, t); err != nil {
			return fmt.Errorf("target %s: %w", t.Name, err)
		}
	}
	return nil
}

// Target dispatches one declared target to its pipeline.
func (s *Synthesizer) Target(ctx context.Context, t *config.Target) error {
	logger := ctxlog.FromContext(ctx)
	switch t.Kind {
	case config.KindLibrary:
		if len(t.AsmSrcs) > 0 {
			logger.Debug("synthesizing assembly-augmented library", "target", t.Name)
			return s.asmLibrary(ctx, t)
		}
		logger.Debug("synthesizing library", "target", t.Name)
		return s.library(ctx, t)
	case config.KindCgoLibrary:
		logger.Debug("synthesizing cgo library", "target", t.Name)
		return s.cgoLibrary(ctx, t)
	case config.KindBinary:
		logger.Debug("synthesizing binary", "target", t.Name)
		return s.binary(ctx, t)
	case config.KindTest:
		logger.Debug("synthesizing test", "target", t.Name)
		return s.test(ctx, t)
	default:
		return fmt.Errorf("unknown target kind %d", t.Kind)
	}
}

// Fetch plans a third-party package acquisition and declares its rule.
func (s *Synthesizer) Fetch(ctx context.Context, f *config.Fetch) error {
	plan, err := fetch.PlanFor(ctx, f)
	if err != nil {
		return err
	}
	cmd := plan.Command(s.tc.Go)
	return s.g.Declare(ctx, &rule.Rule{
		Name:     f.Name,
		Kind:     rule.KindFetch,
		Outs:     plan.Outputs(),
		Commands: rule.CommandSet{Dbg: cmd, Opt: cmd},
		Labels:   []string{"fetch:" + f.Get},
	})
}

// importPath is the package path consumers import the target under.
func importPath(t *config.Target) string {
	if t.ImportPath != "" {
		return t.ImportPath
	}
	return t.Name
}
