package rule

import (
	"context"
	"time"
)

// Kind distinguishes the externally meaningful categories of rules. Internal
// sub-rules created by a pipeline are KindInternal regardless of what they
// produce.
type Kind int

const (
	// KindLibrary produces a link-ready (or incomplete) package archive.
	KindLibrary Kind = iota
	// KindBinary produces an executable.
	KindBinary
	// KindTest produces and runs a test executable.
	KindTest
	// KindFetch acquires and installs a third-party package.
	KindFetch
	// KindInternal is a pipeline-owned sub-rule, never user-visible.
	KindInternal
)

// ReqKind identifies the namespace of a linker requirement.
type ReqKind int

const (
	// ReqLDFlag is a literal flag passed to the external linker (e.g. "-lm").
	ReqLDFlag ReqKind = iota
	// ReqPkgConfig names a pkg-config package whose libs must be linked.
	ReqPkgConfig
)

// LinkRequirement is a cross-cutting link-time contribution made by a rule,
// discovered transitively by dependents at pre-build time. It replaces the
// older convention of encoding the same facts as "cc:ld:"/"cc:pc:" string
// labels; those labels are still emitted for external tools, but propagation
// reads this typed form only.
type LinkRequirement struct {
	Kind  ReqKind
	Value string
}

// CommandSet holds the command text for each build profile. Dbg and Opt are
// always populated; Cover is empty unless the rule is coverage-eligible.
// A deferred correction may replace the whole set before execution.
type CommandSet struct {
	Dbg   string
	Opt   string
	Cover string
}

// HasCover reports whether the coverage variant is present.
func (c CommandSet) HasCover() bool { return c.Cover != "" }

// WithPrefix prepends text to every present variant. Corrections use it to
// splice an archive rename in front of already composed commands.
func (c CommandSet) WithPrefix(prefix string) CommandSet {
	if prefix == "" {
		return c
	}
	out := CommandSet{Dbg: prefix + c.Dbg, Opt: prefix + c.Opt}
	if c.Cover != "" {
		out.Cover = prefix + c.Cover
	}
	return out
}

// PreBuildFunc is a pending mutation that the engine must run, and complete,
// strictly before the rule's command is executed. It typically replaces the
// rule's CommandSet wholesale.
type PreBuildFunc func(ctx context.Context) error

// PostBuildFunc is a pending mutation run against the rule's captured build
// output, strictly before any dependent rule executes. The test pipeline uses
// it to reconcile the discovered package identity with the declared name.
type PostBuildFunc func(ctx context.Context, output string) error

// TestSettings carries the execution policy for a test rule. The synthesis
// engine only records it; running the test binary is the scheduler's job.
type TestSettings struct {
	// Command invokes the built test binary, capturing combined output into
	// the results artifact.
	Command string
	// Timeout bounds the wall clock of one test invocation. Zero means the
	// scheduler default.
	Timeout time.Duration
	// Flaky is the bounded rerun count; any pass within it is overall
	// success. Zero or one means a single run.
	Flaky int
	// Sandbox requests sandboxed execution from the scheduler.
	Sandbox bool
	// Worker names an external worker process that must be started before
	// the test command runs.
	Worker string
}

// Rule is one build step declared to the graph engine: its inputs keyed by
// role, its outputs, its dependency edges and the command text per profile.
//
// Rules are plain data. The engine owns scheduling; the only behaviour a rule
// carries are the two pending-mutation callbacks, which the engine must invoke
// under its mutation-before-execution ordering guarantee.
type Rule struct {
	Name string
	Kind Kind

	// Srcs maps a source role (e.g. "go", "asm", "hdrs") to inputs. An input
	// beginning with ':' references another rule's output.
	Srcs map[string][]string
	// Outs lists the declared output files, relative to the rule's package.
	Outs []string
	// NamedOuts groups outputs by role for rules whose consumers need to
	// address a subset (the interop preprocessing step).
	NamedOuts map[string][]string

	Deps       []string
	Tools      map[string]string
	Visibility []string

	// Labels are opaque tags surfaced to external tooling (source-link
	// locations, legacy cc:ld:/cc:pc: mirrors of Requirements).
	Labels []string
	// Requirements are this rule's typed link-time contributions.
	Requirements []LinkRequirement

	Commands CommandSet

	// RenamePrefix is command text spliced in front of every variant when a
	// correction regenerates the set wholesale. It survives regeneration so
	// the two deferred corrections compose: the identity correction records
	// the rename here, and flag propagation re-applies it after recomposing.
	RenamePrefix string

	Binary   bool
	Test     bool
	TestOnly bool

	TestSettings *TestSettings

	// PreBuild and PostBuild are the deferred-correction hooks: explicit
	// pending mutations on the rule object, never global state. Nil means
	// no correction.
	PreBuild  PreBuildFunc
	PostBuild PostBuildFunc
}

// AddRequirement records a typed link requirement and its label mirror.
func (r *Rule) AddRequirement(kind ReqKind, value string) {
	r.Requirements = append(r.Requirements, LinkRequirement{Kind: kind, Value: value})
	switch kind {
	case ReqLDFlag:
		r.Labels = append(r.Labels, "cc:ld:"+value)
	case ReqPkgConfig:
		r.Labels = append(r.Labels, "cc:pc:"+value)
	}
}
