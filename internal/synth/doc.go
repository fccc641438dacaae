// Package synth turns declared targets into concrete build rules.
//
// Each target kind has a pipeline: plain libraries compile directly;
// assembly-augmented libraries split into an ABI-extraction/compile/assemble/
// pack-merge sequence; C-interop libraries split mixed sources, compile each
// half and merge the object code back into one archive; tests layer harness
// generation and a post-build identity correction on top of a library build;
// binaries and tests get a pre-build link-flag propagation hook.
//
// The pipelines are single-threaded and side-effect-free: they declare rules
// into a Graph and attach pending mutations, nothing more. Whatever engine
// owns the Graph is responsible for running those mutations strictly before
// the rules they amend execute.
package synth
