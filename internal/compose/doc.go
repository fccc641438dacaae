// Package compose builds the per-profile command text for the two toolchain
// operations every pipeline needs: compiling sources into a package archive
// and linking archives into an executable.
//
// The composer is pure: it returns strings and tool lists, never executes
// anything, and never decides when its output applies. Deferred corrections
// call back into it to regenerate a command set with amended options.
package compose
