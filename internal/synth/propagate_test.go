package synth_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/forgeplan/internal/config"
)

func TestLinkFlagPropagation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("transitive foreign flags reach the binary link exactly once", func(t *testing.T) {
		t.Parallel()
		s, eng := newSynth()

		// Two paths to the same interop dependency must not duplicate its flag.
		require.NoError(t, s.Target(ctx, &config.Target{
			Kind:        config.KindCgoLibrary,
			Name:        "mathc",
			Srcs:        []string{"mathc.go"},
			LinkerFlags: []string{"-lm"},
		}))
		require.NoError(t, s.Target(ctx, &config.Target{
			Kind: config.KindLibrary,
			Name: "geometry",
			Srcs: []string{"geometry.go"},
			Deps: []string{"mathc"},
		}))
		require.NoError(t, s.Target(ctx, &config.Target{
			Kind: config.KindLibrary,
			Name: "physics",
			Srcs: []string{"physics.go"},
			Deps: []string{"mathc"},
		}))
		require.NoError(t, s.Target(ctx, &config.Target{
			Kind: config.KindBinary,
			Name: "sim",
			Srcs: []string{"main.go"},
			Deps: []string{"geometry", "physics"},
		}))

		link := mustRule(t, eng, "sim")
		assert.NotContains(t, link.Commands.Opt, "-lm",
			"composition happens before the closure is known")

		require.NoError(t, eng.Prepare(ctx, "sim"))
		assert.Contains(t, link.Commands.Opt, `-extldflags "-lm"`)
		assert.Equal(t, 1, strings.Count(link.Commands.Opt, "-lm"))
		assert.Contains(t, link.Tools, "cc")
	})

	t.Run("an interop test's own flags are not duplicated by rediscovery", func(t *testing.T) {
		t.Parallel()
		s, eng := newSynth()

		// The merge rule under the test re-registers the declared flags as
		// requirements; the link must still carry each flag once.
		require.NoError(t, s.Target(ctx, &config.Target{
			Kind:        config.KindTest,
			Name:        "fft_test",
			Srcs:        []string{"fft_test.go"},
			CSrcs:       []string{"fft.c"},
			LinkerFlags: []string{"-lm"},
		}))

		require.NoError(t, eng.Prepare(ctx, "fft_test"))
		link := mustRule(t, eng, "fft_test")
		assert.Contains(t, link.Commands.Opt, `-extldflags "-lm"`)
		assert.Equal(t, 1, strings.Count(link.Commands.Opt, "-lm"))
	})

	t.Run("no requirements leaves the command untouched", func(t *testing.T) {
		t.Parallel()
		s, eng := newSynth()

		require.NoError(t, s.Target(ctx, &config.Target{
			Kind: config.KindLibrary,
			Name: "pure",
			Srcs: []string{"pure.go"},
		}))
		require.NoError(t, s.Target(ctx, &config.Target{
			Kind: config.KindBinary,
			Name: "tool",
			Srcs: []string{"main.go"},
			Deps: []string{"pure"},
		}))

		link := mustRule(t, eng, "tool")
		before := link.Commands
		require.NoError(t, eng.Prepare(ctx, "tool"))
		assert.Equal(t, before, link.Commands)
	})

	t.Run("pkg-config requirements resolve through the propagated options", func(t *testing.T) {
		t.Parallel()
		s, eng := newSynth()

		require.NoError(t, s.Target(ctx, &config.Target{
			Kind:          config.KindCgoLibrary,
			Name:          "img",
			Srcs:          []string{"img.go"},
			PkgConfigLibs: []string{"libpng"},
		}))
		require.NoError(t, s.Target(ctx, &config.Target{
			Kind: config.KindBinary,
			Name: "thumbs",
			Srcs: []string{"main.go"},
			Deps: []string{"img"},
		}))

		require.NoError(t, eng.Prepare(ctx, "thumbs"))
		link := mustRule(t, eng, "thumbs")
		assert.Contains(t, link.Commands.Opt, "`pkg-config --libs libpng`")
		assert.Contains(t, link.Tools, "pkg-config")
	})

	t.Run("propagation preserves an earlier identity rename", func(t *testing.T) {
		t.Parallel()
		s, eng := newSynth()

		require.NoError(t, s.Target(ctx, &config.Target{
			Kind:        config.KindCgoLibrary,
			Name:        "curses",
			Srcs:        []string{"curses.go"},
			LinkerFlags: []string{"-lncurses"},
		}))
		require.NoError(t, s.Target(ctx, &config.Target{
			Kind: config.KindTest,
			Name: "ui_test",
			Srcs: []string{"ui_test.go"},
			Deps: []string{"curses"},
		}))

		// The harness report arrives first and installs the rename; the
		// propagation hook then regenerates the command set and must keep it.
		require.NoError(t, eng.NotifyBuilt(ctx, "_ui_test#main", "Package: ui\n"))
		require.NoError(t, eng.Prepare(ctx, "ui_test"))

		link := mustRule(t, eng, "ui_test")
		wantPrefix := "mv -f ui_test.a ui.a && "
		assert.True(t, strings.HasPrefix(link.Commands.Opt, wantPrefix),
			"rename prefix lost during flag propagation: %s", link.Commands.Opt)
		assert.Contains(t, link.Commands.Opt, `-extldflags "-lncurses"`)
	})
}
