package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/vk/forgeplan/internal/ctxlog"
	"github.com/vk/forgeplan/internal/rule"
)

// Engine is an in-memory implementation of the narrow graph-engine interface
// the pipelines consume: declare a rule, run its pending mutations strictly
// before it is consumed, and answer transitive link-requirement queries.
//
// The production scheduler is an external collaborator; this implementation
// backs tests and the CLI's plan preview. It performs no I/O and never runs a
// command.
type Engine struct {
	mu    sync.RWMutex
	rules map[string]*rule.Rule
	order []string
	dag   *graph

	prepared map[string]bool
}

// New creates an empty engine.
func New() *Engine {
	return &Engine{
		rules:    make(map[string]*rule.Rule),
		dag:      newGraph(),
		prepared: make(map[string]bool),
	}
}

// Declare registers a rule and its dependency edges. Redeclaring a name is a
// configuration error.
func (e *Engine) Declare(ctx context.Context, r *rule.Rule) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, dup := e.rules[r.Name]; dup {
		return fmt.Errorf("rule %s declared twice", r.Name)
	}
	e.rules[r.Name] = r
	e.order = append(e.order, r.Name)
	e.dag.addNode(r.Name)
	for _, dep := range r.Deps {
		if err := e.dag.addEdge(dep, r.Name); err != nil {
			return err
		}
	}
	ctxlog.FromContext(ctx).Debug("rule declared", "rule", r.Name, "deps", len(r.Deps))
	return nil
}

// Rule looks up a declared rule by name.
func (e *Engine) Rule(name string) (*rule.Rule, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	r, ok := e.rules[name]
	return r, ok
}

// Rules returns every declared rule in declaration order.
func (e *Engine) Rules() []*rule.Rule {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]*rule.Rule, 0, len(e.order))
	for _, name := range e.order {
		out = append(out, e.rules[name])
	}
	return out
}

// Validate checks the declared topology for cycles and for edges into rules
// that were never declared.
func (e *Engine) Validate() error {
	e.mu.RLock()
	for name, r := range e.rules {
		for _, dep := range r.Deps {
			if _, ok := e.rules[dep]; !ok {
				e.mu.RUnlock()
				return fmt.Errorf("rule %s depends on undeclared rule %s", name, dep)
			}
		}
	}
	e.mu.RUnlock()
	return e.dag.detectCycles()
}

// TransitiveLinkRequirements walks the dependency closure of name depth-first
// in declaration order and returns every distinct link requirement in the
// order first encountered. Deduplication keeps a flag contributed along two
// paths from appearing twice in the final flag string.
func (e *Engine) TransitiveLinkRequirements(name string) []rule.LinkRequirement {
	e.mu.RLock()
	defer e.mu.RUnlock()

	var out []rule.LinkRequirement
	seenRule := make(map[string]bool)
	seenReq := make(map[rule.LinkRequirement]bool)

	var visit func(id string)
	visit = func(id string) {
		if seenRule[id] {
			return
		}
		seenRule[id] = true
		r, ok := e.rules[id]
		if !ok {
			return
		}
		for _, req := range r.Requirements {
			if !seenReq[req] {
				seenReq[req] = true
				out = append(out, req)
			}
		}
		deps, err := e.dag.dependencies(id)
		if err != nil {
			return
		}
		for _, dep := range deps {
			visit(dep)
		}
	}
	visit(name)
	return out
}

// Prepare runs the rule's pending pre-build mutation, if any. The scheduler
// contract is mutation-before-execution: Prepare must have returned before
// the rule's command text is consumed. Preparing twice runs the hook once.
func (e *Engine) Prepare(ctx context.Context, name string) error {
	e.mu.Lock()
	r, ok := e.rules[name]
	if !ok {
		e.mu.Unlock()
		return fmt.Errorf("prepare: rule not found: %s", name)
	}
	if e.prepared[name] {
		e.mu.Unlock()
		return nil
	}
	e.prepared[name] = true
	e.mu.Unlock()

	if r.PreBuild == nil {
		return nil
	}
	if err := r.PreBuild(ctx); err != nil {
		return fmt.Errorf("pre-build correction for %s: %w", name, err)
	}
	return nil
}

// NotifyBuilt feeds a rule's captured build output to its pending post-build
// mutation. Dependent rules must not execute until this has returned.
func (e *Engine) NotifyBuilt(ctx context.Context, name, output string) error {
	e.mu.RLock()
	r, ok := e.rules[name]
	e.mu.RUnlock()
	if !ok {
		return fmt.Errorf("notify: rule not found: %s", name)
	}
	if r.PostBuild == nil {
		return nil
	}
	if err := r.PostBuild(ctx, output); err != nil {
		return fmt.Errorf("post-build correction for %s: %w", name, err)
	}
	return nil
}
