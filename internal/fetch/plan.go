package fetch

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/vk/forgeplan/internal/config"
	"github.com/vk/forgeplan/internal/ctxlog"
)

// Strategy is how a third-party package's source is acquired.
type Strategy int

const (
	// StrategyArchive downloads a pinned-revision source archive from a
	// recognised hosting convention, avoiding a clone entirely.
	StrategyArchive Strategy = iota
	// StrategyClone performs a shallow, tag-less clone of an explicitly
	// given repository at the requested revision.
	StrategyClone
	// StrategyGoGet falls back to the toolchain's generic fetch mechanism.
	// Strictly less capable: it cannot fetch a path containing no Go files.
	StrategyGoGet
)

// archiveHosts are hosting conventions with a predictable
// archive-at-revision download URL.
var archiveHosts = map[string]bool{
	"github.com": true,
}

// Plan is the immutable acquisition and install recipe for one declared
// external package. Computed once at graph-construction time.
type Plan struct {
	Name     string
	Path     string
	Revision string
	Pinned   bool

	Strategy   Strategy
	ArchiveURL string // StrategyArchive only
	Repo       string // StrategyClone only

	Hashes  []string
	Patch   string
	Strip   []string
	Install []string
}

// PlanFor chooses the fetch strategy for a declared external package and
// freezes everything the acquisition and install steps will need.
//
// Configuration errors (an illegal path root) are fatal here, before any
// network or toolchain activity. An unpinned revision and a hash pinned
// against a floating revision are reported as warnings only.
func PlanFor(ctx context.Context, f *config.Fetch) (*Plan, error) {
	logger := ctxlog.FromContext(ctx)

	if strings.HasPrefix(f.Get, "/") || strings.HasPrefix(f.Get, ".") {
		return nil, fmt.Errorf("illegal package path %q: must not begin with / or .", f.Get)
	}
	if f.Get == "" {
		return nil, fmt.Errorf("fetch %s declares no package path", f.Name)
	}

	p := &Plan{
		Name:     f.Name,
		Path:     f.Get,
		Revision: f.Revision,
		Pinned:   f.Revision != "",
		Hashes:   f.Hashes,
		Patch:    f.Patch,
		Strip:    f.Strip,
		Install:  f.Install,
	}
	if !p.Pinned {
		// Source-compatible fallback to the default branch; flagged because
		// a moving branch pointer makes the fetch non-reproducible.
		p.Revision = "master"
		logger.Warn("fetch revision unpinned; falling back to the default branch is not reproducible",
			"fetch", f.Name, "path", f.Get)
		if len(f.Hashes) > 0 {
			logger.Warn("content hashes pinned against a floating revision will break when the branch moves",
				"fetch", f.Name)
		}
	}

	parts := strings.Split(f.Get, "/")
	switch {
	case archiveHosts[parts[0]] && len(parts) >= 3 && f.Repo == "":
		p.Strategy = StrategyArchive
		p.ArchiveURL = fmt.Sprintf("https://%s/%s/%s/archive/%s.tar.gz",
			parts[0], parts[1], parts[2], p.Revision)
	case f.Repo != "":
		p.Strategy = StrategyClone
		p.Repo = f.Repo
	default:
		p.Strategy = StrategyGoGet
	}
	return p, nil
}

// srcDir is where the fetched tree lives relative to the rule's workspace.
func (p *Plan) srcDir() string {
	return path.Join("src", repoRoot(p.Path))
}

// repoRoot trims a sub-package path down to its repository root for the
// hosting conventions that archive whole repositories.
func repoRoot(pkgPath string) string {
	parts := strings.Split(pkgPath, "/")
	if archiveHosts[parts[0]] && len(parts) > 3 {
		return strings.Join(parts[:3], "/")
	}
	return pkgPath
}

// installList is the explicit install set, defaulting to the fetch path.
func (p *Plan) installList() []string {
	if len(p.Install) > 0 {
		return p.Install
	}
	return []string{p.Path}
}

// Outputs names the canonical artifacts the install step leaves behind:
// one relocated archive (or binary) per installed package.
func (p *Plan) Outputs() []string {
	pkgs := p.installList()
	outs := make([]string, 0, len(pkgs))
	for _, pkg := range pkgs {
		outs = append(outs, pkg+".a")
	}
	return outs
}

// Command renders the whole acquire/patch/install/relocate sequence as rule
// command text for the graph engine. goTool is the toolchain driver.
func (p *Plan) Command(goTool string) string {
	dir := p.srcDir()
	var steps []string

	switch p.Strategy {
	case StrategyArchive:
		steps = append(steps, fmt.Sprintf(
			"mkdir -p %s && curl -fsSL %s -o _fetch.tar.gz && tar -xzf _fetch.tar.gz -C %s --strip-components=1",
			dir, p.ArchiveURL, dir))
	case StrategyClone:
		// A depth-1 clone holds only the default-branch tip, so the pinned
		// revision is fetched explicitly before checkout.
		steps = append(steps, fmt.Sprintf(
			"git clone --depth=1 --no-tags --shallow-submodules %s %s && git -C %s fetch --depth=1 origin %s && git -C %s checkout FETCH_HEAD",
			p.Repo, dir, dir, p.Revision, dir))
	case StrategyGoGet:
		steps = append(steps, fmt.Sprintf("%s get -d %s", goTool, p.Path))
		if p.Pinned {
			steps = append(steps, fmt.Sprintf("git -C %s checkout %s", dir, p.Revision))
		}
	}

	// Version-control metadata never survives into the build tree.
	steps = append(steps, fmt.Sprintf("find %s -name .git -prune -exec rm -rf {} +", dir))

	if p.Patch != "" {
		steps = append(steps, fmt.Sprintf("patch -d %s -p1 < %s", dir, p.Patch))
	}
	for _, sub := range p.Strip {
		steps = append(steps, fmt.Sprintf("rm -rf %s", path.Join(dir, sub)))
	}

	steps = append(steps, fmt.Sprintf("%s install %s", goTool, strings.Join(p.installList(), " ")))

	// Relocate from the toolchain's nested output convention into the flat
	// canonical layout: binaries out of bin/, package archives out of the
	// platform-keyed pkg/ tree.
	for _, pkg := range p.installList() {
		base := path.Base(pkg)
		steps = append(steps, fmt.Sprintf(
			"if [ -f bin/%s ]; then mv bin/%s %s; else mkdir -p %s && mv pkg/*/%s.a %s.a; fi",
			base, base, base, path.Dir(pkg), pkg, pkg))
	}
	return strings.Join(steps, " && ")
}
