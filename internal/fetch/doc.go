// Package fetch plans and executes third-party package acquisition.
//
// The planner is pure: it picks a strategy per declared package path
// (archive-at-revision download, shallow clone, or the toolchain's generic
// fetch fallback) and freezes the patch/strip/install/relocate recipe into an
// immutable Plan. The Fetcher executes plans: it is the only code in this
// repo that performs network and filesystem I/O.
package fetch
