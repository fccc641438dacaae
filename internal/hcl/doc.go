// Package hcl provides the concrete HCL implementation of the build file
// loading interface defined in the `config` package. It is responsible for
// discovering build files, parsing them, and translating the declared blocks
// into the format-agnostic model.
package hcl
