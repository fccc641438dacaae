// Package toolchain describes where the compile/assemble/link/archive tools
// live and the placeholder conventions used inside generated command text.
//
// Commands are shell text executed by the graph engine inside a rule's
// sandbox. The engine substitutes the $TMP_DIR/$OUT/$SRCS_* placeholders at
// execution time; this package never runs anything itself.
package toolchain

// Placeholders substituted by the graph engine when a command executes.
const (
	TmpDir  = "$TMP_DIR"
	Out     = "$OUT"
	PkgDir  = "$PKG_DIR"
	TestBin = "$TEST"

	SrcsGo  = "$SRCS_GO"
	SrcsAbi = "$SRCS_ABI"
	SrcsAsm = "$SRCS_ASM"
	SrcsC   = "$SRCS_C"
	SrcsCgo = "$SRCS_CGO"
	SrcsLib = "$SRCS_LIB"
	SrcsObj = "$SRCS_OBJ"
)

// Toolchain holds the executables the composed commands invoke. The zero
// value is not usable; call Default or fill every field.
type Toolchain struct {
	// Go is the Go toolchain driver ("go tool compile" and friends).
	Go string
	// CC compiles the C half of interop rules and drives external linking.
	CC string
	// AR performs pack-merge operations on archives.
	AR string
	// PkgConfig resolves package-manager library names to linker flags.
	PkgConfig string
	// Filter filters a source list by build constraints before compiling.
	Filter string
	// TestMain generates the test harness main source and reports the
	// discovered package identity on its output stream.
	TestMain string
}

// Default returns a toolchain resolved from PATH-relative names.
func Default() *Toolchain {
	return &Toolchain{
		Go:        "go",
		CC:        "cc",
		AR:        "ar",
		PkgConfig: "pkg-config",
		Filter:    "forgeplan-filter",
		TestMain:  "forgeplan-testmain",
	}
}
