package hcl

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/forgeplan/internal/config"
)

func writeBuildFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoaderTranslatesEveryBlockKind(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeBuildFile(t, dir, "pkg.build.hcl", `
go_library "strutil" {
  srcs       = ["strutil.go"]
  deps       = [":base"]
  visibility = ["PUBLIC"]
}

go_library "hash" {
  srcs     = ["hash.go"]
  asm_srcs = ["hash_amd64.s"]
  complete = false
}

cgo_library "geo" {
  srcs         = ["bind.go"]
  go_srcs      = ["helpers.go"]
  c_srcs       = ["impl.c"]
  hdrs         = ["impl.h"]
  linker_flags = ["-lgeos"]
  pkg_config   = ["geos"]
}

go_binary "tool" {
  srcs   = ["main.go"]
  deps   = [":strutil"]
  static = true
  definitions = {
    "main.version" = "1.2.3"
    "main.debug"   = null
  }
}

go_test "strutil_test" {
  srcs     = ["strutil_test.go"]
  deps     = [":strutil"]
  external = true
  timeout  = 120
  flaky    = 3
}

go_test "geo_test" {
  srcs         = ["geo_test.go"]
  c_srcs       = ["check.c"]
  linker_flags = ["-lm"]
  pkg_config   = ["geos"]
  static       = true
}

go_get "gls" {
  get      = "github.com/jtolds/gls"
  revision = "v4.20.0"
  hashes   = ["blake3:deadbeef"]
  strip    = ["examples"]
}
`)

	model, err := NewLoader().Load(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, model.Targets, 6)
	require.Len(t, model.Fetches, 1)

	strutil := model.Targets[0]
	assert.Equal(t, config.KindLibrary, strutil.Kind)
	assert.Equal(t, "strutil", strutil.Name)
	assert.Equal(t, []string{"base"}, strutil.Deps, "local references lose their ':' prefix")
	assert.True(t, strutil.Complete, "libraries are complete unless declared otherwise")

	hash := model.Targets[1]
	assert.Equal(t, []string{"hash_amd64.s"}, hash.AsmSrcs)
	assert.False(t, hash.Complete)

	geo := model.Targets[2]
	assert.Equal(t, config.KindCgoLibrary, geo.Kind)
	assert.Equal(t, []string{"helpers.go"}, geo.GoSrcs)
	assert.Equal(t, []string{"impl.c"}, geo.CSrcs)
	assert.Equal(t, []string{"-lgeos"}, geo.LinkerFlags)
	assert.Equal(t, []string{"geos"}, geo.PkgConfigLibs)

	tool := model.Targets[3]
	assert.Equal(t, config.KindBinary, tool.Kind)
	assert.True(t, tool.Static)
	assert.Equal(t, []string{"main.debug", "main.version=1.2.3"}, tool.Definitions.Normalize())

	test := model.Targets[4]
	assert.Equal(t, config.KindTest, test.Kind)
	assert.True(t, test.External)
	assert.Equal(t, 120*time.Second, test.Timeout)
	assert.Equal(t, 3, test.Flaky)

	geoTest := model.Targets[5]
	assert.Equal(t, config.KindTest, geoTest.Kind)
	assert.Equal(t, []string{"check.c"}, geoTest.CSrcs)
	assert.Equal(t, []string{"-lm"}, geoTest.LinkerFlags, "interop tests declare their own link flags")
	assert.Equal(t, []string{"geos"}, geoTest.PkgConfigLibs)
	assert.True(t, geoTest.Static)

	gls := model.Fetches[0]
	assert.Equal(t, "github.com/jtolds/gls", gls.Get)
	assert.Equal(t, "v4.20.0", gls.Revision)
	assert.Equal(t, []string{"blake3:deadbeef"}, gls.Hashes)
	assert.Equal(t, []string{"examples"}, gls.Strip)
}

func TestLoaderDiscoversNestedFilesDeterministically(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeBuildFile(t, dir, "z/z.build.hcl", `go_library "z" { srcs = ["z.go"] }`)
	writeBuildFile(t, dir, "a/a.build.hcl", `go_library "a" { srcs = ["a.go"] }`)
	// Files without the build suffix are ignored.
	writeBuildFile(t, dir, "a/notes.hcl", `go_library "ghost" { srcs = ["g.go"] }`)

	model, err := NewLoader().Load(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, model.Targets, 2)
	assert.Equal(t, "a", model.Targets[0].Name, "files load in sorted path order")
	assert.Equal(t, "z", model.Targets[1].Name)
}

func TestLoaderErrors(t *testing.T) {
	t.Parallel()

	t.Run("syntax errors are reported with the file name", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		writeBuildFile(t, dir, "bad.build.hcl", `go_library "x" { srcs = [`)

		_, err := NewLoader().Load(context.Background(), dir)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bad.build.hcl")
	})

	t.Run("missing required attributes fail decoding", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		writeBuildFile(t, dir, "bad.build.hcl", `go_library "x" {}`)

		_, err := NewLoader().Load(context.Background(), dir)
		require.Error(t, err)
	})

	t.Run("non-string definitions are rejected", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		writeBuildFile(t, dir, "bad.build.hcl", `
go_binary "x" {
  srcs        = ["main.go"]
  definitions = 42
}
`)
		_, err := NewLoader().Load(context.Background(), dir)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "definitions")
	})

	t.Run("missing paths are errors", func(t *testing.T) {
		t.Parallel()
		_, err := NewLoader().Load(context.Background(), filepath.Join(t.TempDir(), "nope"))
		require.Error(t, err)
	})
}
