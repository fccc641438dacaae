package hcl

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/forgeplan/internal/config"
	"github.com/vk/forgeplan/internal/ctxlog"
	"github.com/vk/forgeplan/internal/fsutil"
	"github.com/vk/forgeplan/internal/schema"
)

// BuildFileSuffix is the extension build files are discovered by.
const BuildFileSuffix = ".build.hcl"

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct{}

// NewLoader creates a new HCL build file loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses every build file reachable from the given paths and translates
// the declared blocks into the format-agnostic model. Declaration order
// within a file is preserved; files are visited in sorted path order so the
// resulting model is deterministic.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started", "path_count", len(paths))

	files, err := l.findBuildFiles(paths)
	if err != nil {
		return nil, err
	}
	logger.Debug("discovered build files", "count", len(files))

	model := &config.Model{}
	parser := hclparse.NewParser()

	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse build file %s: %w", file, diags)
		}

		var root schema.BuildFile
		diags = gohcl.DecodeBody(hclFile.Body, nil, &root)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode build file %s: %w", file, diags)
		}

		if err := l.mergeFile(model, &root); err != nil {
			return nil, fmt.Errorf("%s: %w", file, err)
		}
	}

	logger.Debug("HCL loading complete",
		"targets", len(model.Targets), "fetches", len(model.Fetches))
	return model, nil
}

// mergeFile translates one decoded build file into the model.
func (l *Loader) mergeFile(model *config.Model, root *schema.BuildFile) error {
	for _, lib := range root.Libraries {
		model.Targets = append(model.Targets, translateLibrary(lib))
	}
	for _, lib := range root.CgoLibraries {
		model.Targets = append(model.Targets, translateCgoLibrary(lib))
	}
	for _, bin := range root.Binaries {
		t, err := translateBinary(bin)
		if err != nil {
			return err
		}
		model.Targets = append(model.Targets, t)
	}
	for _, test := range root.Tests {
		t, err := translateTest(test)
		if err != nil {
			return err
		}
		model.Targets = append(model.Targets, t)
	}
	for _, get := range root.Gets {
		model.Fetches = append(model.Fetches, translateGet(get))
	}
	return nil
}

// findBuildFiles walks all given paths and returns a sorted, deduplicated
// list of build files. A directory path is searched recursively; a file path
// is taken as-is when it carries the build file suffix.
func (l *Loader) findBuildFiles(paths []string) ([]string, error) {
	var all []string
	seen := make(map[string]struct{})
	add := func(p string) {
		if _, ok := seen[p]; !ok {
			all = append(all, p)
			seen[p] = struct{}{}
		}
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("error accessing path %s: %w", path, err)
		}
		if info.IsDir() {
			found, err := fsutil.FindFilesByExtension(path, BuildFileSuffix)
			if err != nil {
				return nil, err
			}
			for _, p := range found {
				add(p)
			}
		} else {
			add(path)
		}
	}
	sort.Strings(all)
	return all, nil
}
