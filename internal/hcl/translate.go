package hcl

import (
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/vk/forgeplan/internal/config"
	"github.com/vk/forgeplan/internal/schema"
)

// depNames normalizes local rule references (":name") to bare rule names, the
// form the graph engine keys its nodes by.
func depNames(deps []string) []string {
	if len(deps) == 0 {
		return nil
	}
	out := make([]string, len(deps))
	for i, d := range deps {
		out[i] = strings.TrimPrefix(d, ":")
	}
	return out
}

// translateLibrary converts a go_library block into the agnostic model.
// Archives are link-ready by default; complete = false keeps the archive
// open for a later merge.
func translateLibrary(s *schema.Library) *config.Target {
	complete := true
	if s.Complete != nil {
		complete = *s.Complete
	}
	return &config.Target{
		Kind:       config.KindLibrary,
		Name:       s.Name,
		Srcs:       s.Srcs,
		AsmSrcs:    s.AsmSrcs,
		Hdrs:       s.Hdrs,
		Deps:       depNames(s.Deps),
		Visibility: s.Visibility,
		ImportPath: s.ImportPath,
		Complete:   complete,
		TestOnly:   s.TestOnly,
	}
}

// translateCgoLibrary converts a cgo_library block into the agnostic model.
func translateCgoLibrary(s *schema.CgoLibrary) *config.Target {
	return &config.Target{
		Kind:          config.KindCgoLibrary,
		Name:          s.Name,
		Srcs:          s.Srcs,
		GoSrcs:        s.GoSrcs,
		CSrcs:         s.CSrcs,
		Hdrs:          s.Hdrs,
		Deps:          depNames(s.Deps),
		Visibility:    s.Visibility,
		ImportPath:    s.ImportPath,
		TestOnly:      s.TestOnly,
		LinkerFlags:   s.LinkerFlags,
		PkgConfigLibs: s.PkgConfig,
	}
}

// translateBinary converts a go_binary block into the agnostic model.
func translateBinary(s *schema.Binary) (*config.Target, error) {
	defs, err := translateDefinitions(s.Definitions, "go_binary", s.Name)
	if err != nil {
		return nil, err
	}
	return &config.Target{
		Kind:          config.KindBinary,
		Name:          s.Name,
		Srcs:          s.Srcs,
		Deps:          depNames(s.Deps),
		Visibility:    s.Visibility,
		ImportPath:    s.ImportPath,
		Static:        s.Static,
		Definitions:   defs,
		LinkerFlags:   s.LinkerFlags,
		PkgConfigLibs: s.PkgConfig,
	}, nil
}

// translateTest converts a go_test block into the agnostic model.
func translateTest(s *schema.Test) (*config.Target, error) {
	defs, err := translateDefinitions(s.Definitions, "go_test", s.Name)
	if err != nil {
		return nil, err
	}
	return &config.Target{
		Kind:          config.KindTest,
		Name:          s.Name,
		Srcs:          s.Srcs,
		CSrcs:         s.CSrcs,
		Hdrs:          s.Hdrs,
		Deps:          depNames(s.Deps),
		Visibility:    s.Visibility,
		ImportPath:    s.ImportPath,
		External:      s.External,
		Static:        s.Static,
		Definitions:   defs,
		LinkerFlags:   s.LinkerFlags,
		PkgConfigLibs: s.PkgConfig,
		Timeout:       time.Duration(s.TimeoutSecs) * time.Second,
		Flaky:         s.Flaky,
		Sandbox:       s.Sandbox,
		Worker:        s.Worker,
	}, nil
}

// translateGet converts a go_get block into the agnostic model.
func translateGet(s *schema.Get) *config.Fetch {
	return &config.Fetch{
		Name:     s.Name,
		Get:      s.Get,
		Revision: s.Revision,
		Repo:     s.Repo,
		Hashes:   s.Hashes,
		Patch:    s.Patch,
		Install:  s.Install,
		Strip:    s.Strip,
	}
}

// translateDefinitions evaluates a definitions expression into the typed
// model form. Accepts a string, a list of strings, or a map whose null
// values become bare keys.
func translateDefinitions(expr hcl.Expression, ownerKind, ownerName string) (config.Definitions, error) {
	if expr == nil {
		return config.Definitions{}, nil
	}
	val, diags := expr.Value(nil)
	if diags.HasErrors() {
		return config.Definitions{}, fmt.Errorf("invalid definitions in %s %q: %w", ownerKind, ownerName, diags)
	}
	defs, err := config.DefinitionsFromCty(val)
	if err != nil {
		return config.Definitions{}, fmt.Errorf("invalid definitions in %s %q: %w", ownerKind, ownerName, err)
	}
	return defs, nil
}
