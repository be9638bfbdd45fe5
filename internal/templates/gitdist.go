// SPDX-License-Identifier: MPL-2.0

package templates

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/storage/memory"

	"github.com/battery-pack-rs/battery-pack/pkg/batterypack"
)

// DefaultGitURLPattern locates a pack's repository; {name} is replaced by
// the pack name.
const DefaultGitURLPattern = "https://github.com/battery-pack-rs/{name}.git"

type (
	// GitDistribution serves archives from git repositories. Version tags
	// ("v1.2.3" or "1.2.3") are the published versions, and an archive is a
	// tar.gz of a shallow clone at that tag. Git offers no upstream digest,
	// so Archive.Checksum is left empty.
	GitDistribution struct {
		urlPattern string
		auth       transport.AuthMethod
		tempDir    string
	}

	// GitOption configures a GitDistribution.
	GitOption func(*GitDistribution)

	// tempArchive removes its backing file once closed.
	tempArchive struct {
		*os.File
	}
)

// WithGitToken authenticates HTTPS clones with a token.
func WithGitToken(token string) GitOption {
	return func(d *GitDistribution) {
		if token != "" {
			d.auth = &http.BasicAuth{Username: "x-access-token", Password: token}
		}
	}
}

// WithGitTempDir sets where clones and archives are staged.
func WithGitTempDir(dir string) GitOption {
	return func(d *GitDistribution) { d.tempDir = dir }
}

// NewGitDistribution creates a GitDistribution. An empty pattern means
// DefaultGitURLPattern.
func NewGitDistribution(urlPattern string, opts ...GitOption) *GitDistribution {
	if urlPattern == "" {
		urlPattern = DefaultGitURLPattern
	}
	d := &GitDistribution{urlPattern: urlPattern}
	for _, opt := range opts {
		opt(d)
	}
	if d.auth == nil {
		d.auth = authFromEnv()
	}
	return d
}

// URL returns the repository URL of name.
func (d *GitDistribution) URL(name string) string {
	return strings.ReplaceAll(d.urlPattern, "{name}", name)
}

// ListVersions returns the semver tags of the repository, without "v".
func (d *GitDistribution) ListVersions(ctx context.Context, name string) ([]string, error) {
	remote := git.NewRemote(memory.NewStorage(), &config.RemoteConfig{
		Name: "origin",
		URLs: []string{d.URL(name)},
	})

	refs, err := remote.ListContext(ctx, &git.ListOptions{Auth: d.auth})
	if errors.Is(err, transport.ErrRepositoryNotFound) {
		return nil, fmt.Errorf("%s: %w", d.URL(name), ErrNotPublished)
	}
	if err != nil {
		return nil, fmt.Errorf("listing remote refs: %w", err)
	}

	seen := make(map[string]bool)
	var versions []string
	for _, ref := range refs {
		if !ref.Name().IsTag() {
			continue
		}
		tag := strings.TrimSuffix(ref.Name().Short(), "^{}")
		num := strings.TrimPrefix(tag, "v")
		if v, err := batterypack.ParseVersion(num); err != nil || v.Parts != 3 {
			continue
		}
		if !seen[num] {
			seen[num] = true
			versions = append(versions, num)
		}
	}
	return versions, nil
}

// Fetch shallow-clones the tag of version and streams it as a tar.gz whose
// entries live under name-version/, the layout of a published crate.
func (d *GitDistribution) Fetch(ctx context.Context, name, version string) (*Archive, error) {
	workDir, err := os.MkdirTemp(d.tempDir, "bp-git-*")
	if err != nil {
		return nil, fmt.Errorf("creating clone directory: %w", err)
	}
	defer func() { _ = os.RemoveAll(workDir) }()

	url := d.URL(name)
	cloneDir := filepath.Join(workDir, "clone")

	var tag string
	var lastErr error
	for _, candidate := range []string{"v" + version, version} {
		_, err := git.PlainCloneContext(ctx, cloneDir, false, &git.CloneOptions{
			URL:           url,
			Auth:          d.auth,
			ReferenceName: plumbing.NewTagReferenceName(candidate),
			SingleBranch:  true,
			Depth:         1,
			Tags:          git.NoTags,
		})
		if err == nil {
			tag = candidate
			break
		}
		lastErr = err
		_ = os.RemoveAll(cloneDir)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	if tag == "" {
		var noMatch git.NoMatchingRefSpecError
		switch {
		case errors.Is(lastErr, transport.ErrRepositoryNotFound):
			return nil, fmt.Errorf("%s: %w", url, ErrNotPublished)
		case errors.Is(lastErr, plumbing.ErrReferenceNotFound) || errors.As(lastErr, &noMatch):
			return nil, fmt.Errorf("%s@%s: %w", name, version, ErrVersionNotFound)
		}
		return nil, fmt.Errorf("cloning %s at %s: %w", url, version, lastErr)
	}

	out, err := os.CreateTemp(d.tempDir, "bp-git-archive-*.tar.gz")
	if err != nil {
		return nil, fmt.Errorf("creating archive: %w", err)
	}
	if err := writeTarGz(out, cloneDir, name+"-"+version); err != nil {
		_ = out.Close()
		_ = os.Remove(out.Name())
		return nil, err
	}
	if _, err := out.Seek(0, io.SeekStart); err != nil {
		_ = out.Close()
		_ = os.Remove(out.Name())
		return nil, err
	}

	return &Archive{Body: tempArchive{out}, Source: url + "#" + tag}, nil
}

// Close closes and removes the staged archive.
func (t tempArchive) Close() error {
	err := t.File.Close()
	_ = os.Remove(t.Name())
	return err
}

// writeTarGz archives the regular files and directories under src, skipping
// .git, with every path prefixed by prefix/.
func writeTarGz(w io.Writer, src, prefix string) (err error) {
	gz := gzip.NewWriter(w)
	tw := tar.NewWriter(gz)
	defer func() {
		if closeErr := tw.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
		if closeErr := gz.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	return filepath.WalkDir(src, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		if rel == ".git" && d.IsDir() {
			return filepath.SkipDir
		}
		if !d.IsDir() && !d.Type().IsRegular() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		hdr, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		hdr.Name = prefix
		if rel != "." {
			hdr.Name = prefix + "/" + filepath.ToSlash(rel)
		}
		if d.IsDir() {
			hdr.Name += "/"
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		f, err := os.Open(p)
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }() // read-only file handle
		_, err = io.Copy(tw, f)
		return err
	})
}

// authFromEnv picks up a forge token for private pack repositories.
func authFromEnv() transport.AuthMethod {
	for _, env := range []string{"GITHUB_TOKEN", "GITLAB_TOKEN", "GIT_TOKEN"} {
		if token := os.Getenv(env); token != "" {
			return &http.BasicAuth{Username: "x-access-token", Password: token}
		}
	}
	return nil
}
