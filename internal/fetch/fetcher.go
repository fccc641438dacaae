package fetch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/vk/forgeplan/internal/ctxlog"
	"golang.org/x/sys/unix"
	"lukechampine.com/blake3"
)

// Fetcher executes fetch plans: it downloads or clones sources, verifies
// declared content hashes, and applies patches and subpath strips. It is the
// one component of this repo that touches the network and the filesystem.
type Fetcher struct {
	// CacheDir stores downloaded archives keyed by file name so repeated
	// plans for the same revision hit the cache.
	CacheDir string
	// Client defaults to a client with a generous timeout for large
	// source archives.
	Client *http.Client
	// Quiet suppresses the download progress bar.
	Quiet bool
}

// NewFetcher creates a Fetcher caching into cacheDir.
func NewFetcher(cacheDir string) *Fetcher {
	return &Fetcher{
		CacheDir: cacheDir,
		Client:   &http.Client{Timeout: 300 * time.Second},
	}
}

// Fetch acquires the plan's source tree under destDir and runs the
// post-acquisition steps (metadata strip, patch, subpath strips). Patch
// failure is fatal; network and clone errors propagate with the underlying
// tool's diagnostics preserved.
func (f *Fetcher) Fetch(ctx context.Context, p *Plan, destDir string) error {
	logger := ctxlog.FromContext(ctx)
	srcRoot := filepath.Join(destDir, filepath.FromSlash(p.srcDir()))

	switch p.Strategy {
	case StrategyArchive:
		cached, err := f.download(ctx, p.ArchiveURL)
		if err != nil {
			return err
		}
		if err := verifyHashes(cached, p.Hashes); err != nil {
			return err
		}
		if err := os.MkdirAll(srcRoot, 0o755); err != nil {
			return err
		}
		if err := unpackArchive(cached, srcRoot, 1); err != nil {
			return fmt.Errorf("unpacking %s: %w", p.ArchiveURL, err)
		}
	case StrategyClone:
		if err := runTool(ctx, destDir, "git", "clone", "--depth=1", "--no-tags",
			"--shallow-submodules", p.Repo, srcRoot); err != nil {
			return err
		}
		// The shallow clone holds only the default-branch tip; fetch the
		// pinned revision explicitly so any SHA or tag is reachable.
		if err := runTool(ctx, destDir, "git", "-C", srcRoot, "fetch", "--depth=1",
			"origin", p.Revision); err != nil {
			return err
		}
		if err := runTool(ctx, destDir, "git", "-C", srcRoot, "checkout", "FETCH_HEAD"); err != nil {
			return err
		}
	case StrategyGoGet:
		cmd := exec.CommandContext(ctx, "go", "get", "-d", p.Path)
		cmd.Dir = destDir
		cmd.Env = append(os.Environ(), "GOPATH="+destDir, "GO111MODULE=off")
		if out, err := cmd.CombinedOutput(); err != nil {
			return fmt.Errorf("go get %s: %w\n%s", p.Path, err, out)
		}
		if p.Pinned {
			if err := runTool(ctx, destDir, "git", "-C", srcRoot, "checkout", p.Revision); err != nil {
				return err
			}
		}
	}

	if err := stripVCSMetadata(srcRoot); err != nil {
		return err
	}
	if p.Patch != "" {
		if err := applyPatch(ctx, srcRoot, p.Patch); err != nil {
			return err
		}
	}
	for _, sub := range p.Strip {
		if err := os.RemoveAll(filepath.Join(srcRoot, filepath.FromSlash(sub))); err != nil {
			return fmt.Errorf("stripping %s: %w", sub, err)
		}
	}
	logger.Debug("fetch complete", "fetch", p.Name, "dir", srcRoot)
	return nil
}

// download fetches url into the cache, guarded by a lock file so concurrent
// fetch rules for the same archive do not clobber each other. It returns the
// cached file path.
func (f *Fetcher) download(ctx context.Context, url string) (string, error) {
	if err := os.MkdirAll(f.CacheDir, 0o755); err != nil {
		return "", err
	}
	dest := filepath.Join(f.CacheDir, cacheKey(url))

	lock, err := os.OpenFile(dest+".lock", os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return "", fmt.Errorf("creating download lock: %w", err)
	}
	defer lock.Close()
	if err := unix.Flock(int(lock.Fd()), unix.LOCK_EX); err != nil {
		return "", fmt.Errorf("locking download: %w", err)
	}
	defer unix.Flock(int(lock.Fd()), unix.LOCK_UN)

	if _, err := os.Stat(dest); err == nil {
		return dest, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	client := f.Client
	if client == nil {
		client = &http.Client{Timeout: 300 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("downloading %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("downloading %s: unexpected status %s", url, resp.Status)
	}

	tmp := dest + ".part"
	out, err := os.Create(tmp)
	if err != nil {
		return "", err
	}
	var w io.Writer = out
	if !f.Quiet {
		bar := progressbar.DefaultBytes(resp.ContentLength, filepath.Base(url))
		w = io.MultiWriter(out, bar)
	}
	if _, err := io.Copy(w, resp.Body); err != nil {
		out.Close()
		os.Remove(tmp)
		return "", fmt.Errorf("downloading %s: %w", url, err)
	}
	if err := out.Close(); err != nil {
		return "", err
	}
	if err := os.Rename(tmp, dest); err != nil {
		return "", err
	}
	return dest, nil
}

// cacheKey flattens a URL into a file name.
func cacheKey(url string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', ':', '?', '&':
			return '_'
		}
		return r
	}, url)
}

// verifyHashes checks the file against every acceptable hash; any match
// passes. Hashes are "blake3:<hex>" or "sha256:<hex>"; a bare hex string is
// treated as blake3.
func verifyHashes(path string, hashes []string) error {
	if len(hashes) == 0 {
		return nil
	}
	data, err := os.Open(path)
	if err != nil {
		return err
	}
	defer data.Close()

	b3 := blake3.New(32, nil)
	s256 := sha256.New()
	if _, err := io.Copy(io.MultiWriter(b3, s256), data); err != nil {
		return err
	}
	gotB3 := hex.EncodeToString(b3.Sum(nil))
	gotS256 := hex.EncodeToString(s256.Sum(nil))

	for _, h := range hashes {
		want := h
		algo := "blake3"
		if i := strings.IndexByte(h, ':'); i >= 0 {
			algo, want = h[:i], h[i+1:]
		}
		switch algo {
		case "blake3":
			if strings.EqualFold(want, gotB3) {
				return nil
			}
		case "sha256":
			if strings.EqualFold(want, gotS256) {
				return nil
			}
		default:
			return fmt.Errorf("unknown hash algorithm %q", algo)
		}
	}
	return fmt.Errorf("%s matches none of the declared hashes (blake3 %s, sha256 %s)",
		filepath.Base(path), gotB3, gotS256)
}

// stripVCSMetadata removes .git directories from the fetched tree.
func stripVCSMetadata(root string) error {
	var gitDirs []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() && d.Name() == ".git" {
			gitDirs = append(gitDirs, path)
			return filepath.SkipDir
		}
		return nil
	})
	if err != nil {
		return err
	}
	for _, dir := range gitDirs {
		if err := os.RemoveAll(dir); err != nil {
			return err
		}
	}
	return nil
}

// applyPatch applies a unified diff to the fetched tree. Failure to apply is
// a fatal fetch error, never skipped.
func applyPatch(ctx context.Context, srcRoot, patch string) error {
	abs, err := filepath.Abs(patch)
	if err != nil {
		return err
	}
	cmd := exec.CommandContext(ctx, "patch", "-d", srcRoot, "-p1", "-i", abs)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("applying patch %s: %w\n%s", patch, err, out)
	}
	return nil
}

// runTool runs an external tool, preserving its diagnostics verbatim in the
// returned error.
func runTool(ctx context.Context, dir string, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s %s: %w\n%s", name, strings.Join(args, " "), err, out)
	}
	return nil
}
