// Package engine provides the in-memory build graph backing tests and the
// CLI plan preview. It implements the same narrow surface the pipelines
// expect from the production scheduler: rule declaration, the two deferred
// correction hooks under a mutation-before-execution ordering guarantee, and
// transitive link-requirement queries in deterministic declaration order.
package engine
