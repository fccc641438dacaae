package synth_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/forgeplan/internal/config"
	"github.com/vk/forgeplan/internal/engine"
	"github.com/vk/forgeplan/internal/rule"
)

func TestTestPipeline(t *testing.T) {
	t.Parallel()
	s, eng := newSynth()

	err := s.Target(context.Background(), &config.Target{
		Kind:    config.KindTest,
		Name:    "parse_test",
		Srcs:    []string{"parse_test.go"},
		Timeout: 90 * time.Second,
		Flaky:   2,
		Sandbox: true,
		Worker:  "//tools:worker",
	})
	require.NoError(t, err)
	require.Len(t, eng.Rules(), 4)

	lib := mustRule(t, eng, "_parse_test#lib")
	assert.Equal(t, []string{"parse_test.a"}, lib.Outs,
		"the archive carries the declared name until the correction learns otherwise")
	assert.True(t, strings.HasSuffix(lib.Commands.Opt, "$PKG_DIR/*.go"),
		"an internal test compiles together with the package under test")
	assert.True(t, lib.TestOnly)

	main := mustRule(t, eng, "_parse_test#main")
	assert.Equal(t, []string{"_testmain.go"}, main.Outs)
	assert.Equal(t, "forgeplan-testmain -o $OUT -p parse_test $SRCS_GO", main.Commands.Opt)
	require.NotNil(t, main.PostBuild, "harness generation carries the identity correction")

	mainLib := mustRule(t, eng, "_parse_test#main_lib")
	assert.Contains(t, mainLib.Commands.Opt, "-complete")
	assert.Contains(t, mainLib.Srcs["go"], ":_parse_test#main")

	link := mustRule(t, eng, "parse_test")
	assert.Equal(t, rule.KindTest, link.Kind)
	assert.True(t, link.Test)
	require.NotNil(t, link.TestSettings)
	assert.Equal(t, "$TEST 2>&1 | tee test.results", link.TestSettings.Command)
	assert.Equal(t, 90*time.Second, link.TestSettings.Timeout)
	assert.Equal(t, 2, link.TestSettings.Flaky)
	assert.True(t, link.TestSettings.Sandbox)
	assert.Equal(t, "//tools:worker", link.TestSettings.Worker)
	require.NotNil(t, link.PreBuild, "the link rule carries the flag propagation hook")
	assert.False(t, link.Commands.HasCover(), "a pure Go test does not link the coverage runtime")

	require.NoError(t, eng.Validate())
}

func TestExternalTestCompilesOnlyItsOwnSources(t *testing.T) {
	t.Parallel()
	s, eng := newSynth()

	err := s.Target(context.Background(), &config.Target{
		Kind:     config.KindTest,
		Name:     "api_test",
		Srcs:     []string{"api_test.go"},
		External: true,
	})
	require.NoError(t, err)

	lib := mustRule(t, eng, "_api_test#lib")
	assert.NotContains(t, lib.Commands.Opt, "$PKG_DIR/*.go")
	assert.Contains(t, lib.Commands.Opt, "`forgeplan-filter $SRCS_GO`")
}

func TestCgoTestLinksCoverageRuntime(t *testing.T) {
	t.Parallel()
	s, eng := newSynth()

	err := s.Target(context.Background(), &config.Target{
		Kind:  config.KindTest,
		Name:  "native_test",
		Srcs:  []string{"native_test.go"},
		CSrcs: []string{"stub.c"},
	})
	require.NoError(t, err)

	// The library under test went through the interop split/merge pipeline,
	// still producing an archive named after the declared test rule.
	merge := mustRule(t, eng, "_native_test#lib")
	assert.Equal(t, []string{"native_test.a"}, merge.Outs)
	_ = mustRule(t, eng, "__native_test#lib#cgo")

	link := mustRule(t, eng, "native_test")
	require.True(t, link.Commands.HasCover())
	assert.Contains(t, link.Commands.Cover, "--coverage")

	require.NoError(t, eng.Validate())
}

func TestIdentityCorrection(t *testing.T) {
	t.Parallel()

	synthesize := func(t *testing.T) (*engine.Engine, string) {
		t.Helper()
		s, eng := newSynth()
		err := s.Target(context.Background(), &config.Target{
			Kind: config.KindTest,
			Name: "query_test",
			Srcs: []string{"query_test.go"},
		})
		require.NoError(t, err)
		return eng, "_query_test#main"
	}

	t.Run("renames on mismatch and rewrites downstream commands", func(t *testing.T) {
		t.Parallel()
		eng, mainName := synthesize(t)

		err := eng.NotifyBuilt(context.Background(), mainName, "Package: query\nwrote harness\n")
		require.NoError(t, err)

		wantPrefix := "mv -f query_test.a query.a && "
		mainLib := mustRule(t, eng, "_query_test#main_lib")
		link := mustRule(t, eng, "query_test")
		assert.Equal(t, wantPrefix, mainLib.RenamePrefix)
		assert.True(t, strings.HasPrefix(mainLib.Commands.Opt, wantPrefix))
		assert.True(t, strings.HasPrefix(mainLib.Commands.Dbg, wantPrefix))
		assert.True(t, strings.HasPrefix(link.Commands.Opt, wantPrefix))
	})

	t.Run("leaves commands untouched on a match", func(t *testing.T) {
		t.Parallel()
		eng, mainName := synthesize(t)
		link := mustRule(t, eng, "query_test")
		before := link.Commands

		err := eng.NotifyBuilt(context.Background(), mainName, "Package: query_test\n")
		require.NoError(t, err)
		assert.Equal(t, before, link.Commands)
		assert.Empty(t, link.RenamePrefix)
	})

	t.Run("malformed reports are fatal", func(t *testing.T) {
		t.Parallel()
		for name, output := range map[string]string{
			"missing line": "no report here\n",
			"two lines":    "Package: a\nPackage: b\n",
			"empty name":   "Package: \n",
		} {
			eng, mainName := synthesize(t)
			err := eng.NotifyBuilt(context.Background(), mainName, output)
			require.Error(t, err, name)
		}
	})
}
