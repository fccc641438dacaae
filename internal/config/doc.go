// Package config defines the format-agnostic declaration model: targets,
// fetches, and the union-typed definitions value, together with the Loader
// interface implemented by format-specific front ends.
//
// The config.Model is the single input to the synthesis pipelines; nothing in
// this package knows about rules, commands or the graph engine.
package config
