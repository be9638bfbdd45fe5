// SPDX-License-Identifier: MPL-2.0

package templates

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport/http"

	"github.com/battery-pack-rs/battery-pack/internal/testutil"
)

const gitPackName = "demo-battery-pack"

// packRepo is a local repository published under file://<root>/{name}.
type packRepo struct {
	t    *testing.T
	root string
	repo *git.Repository
	wt   *git.Worktree
	dir  string
}

func newPackRepo(t *testing.T) *packRepo {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git is needed to serve file:// repositories")
	}

	root := t.TempDir()
	dir := filepath.Join(root, gitPackName)
	repo, err := git.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("PlainInit() error = %v", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		t.Fatalf("Worktree() error = %v", err)
	}
	return &packRepo{t: t, root: root, repo: repo, wt: wt, dir: dir}
}

func (r *packRepo) pattern() string {
	return "file://" + filepath.ToSlash(r.root) + "/{name}"
}

func (r *packRepo) commit(files map[string]string) plumbing.Hash {
	r.t.Helper()
	for name, content := range files {
		testutil.MustWriteFile(r.t, filepath.Join(r.dir, name), content)
		if _, err := r.wt.Add(name); err != nil {
			r.t.Fatalf("Add(%s) error = %v", name, err)
		}
	}
	hash, err := r.wt.Commit("release", &git.CommitOptions{Author: signature()})
	if err != nil {
		r.t.Fatalf("Commit() error = %v", err)
	}
	return hash
}

func (r *packRepo) tag(name string, hash plumbing.Hash, annotated bool) {
	r.t.Helper()
	var opts *git.CreateTagOptions
	if annotated {
		opts = &git.CreateTagOptions{Tagger: signature(), Message: name}
	}
	if _, err := r.repo.CreateTag(name, hash, opts); err != nil {
		r.t.Fatalf("CreateTag(%s) error = %v", name, err)
	}
}

func signature() *object.Signature {
	return &object.Signature{Name: "Pack Author", Email: "author@example.com", When: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
}

// publishDemo tags v0.1.0 and 0.2.0 as releases, plus tags that are not
// versions. v0.3.0 is annotated so its peeled ref is advertised too.
func publishDemo(t *testing.T) *packRepo {
	t.Helper()
	r := newPackRepo(t)

	first := r.commit(map[string]string{"Cargo.toml": "[package]\nname = \"demo-battery-pack\"\nversion = \"0.1.0\"\n"})
	r.tag("v0.1.0", first, false)
	r.tag("nightly", first, false)
	r.tag("v1.0", first, false)

	second := r.commit(map[string]string{
		"Cargo.toml":                 "[package]\nname = \"demo-battery-pack\"\nversion = \"0.2.0\"\n",
		"templates/default/main.rs": "fn main() {}\n",
	})
	r.tag("0.2.0", second, false)
	r.tag("v0.3.0", second, true)
	return r
}

func TestGitDistribution_ListVersions(t *testing.T) {
	t.Parallel()

	r := publishDemo(t)
	d := NewGitDistribution(r.pattern(), WithGitTempDir(t.TempDir()))

	versions, err := d.ListVersions(t.Context(), gitPackName)
	if err != nil {
		t.Fatalf("ListVersions() error = %v", err)
	}
	slices.Sort(versions)
	if want := []string{"0.1.0", "0.2.0", "0.3.0"}; !slices.Equal(versions, want) {
		t.Errorf("ListVersions() = %v, want %v", versions, want)
	}
}

func TestGitDistribution_NotPublished(t *testing.T) {
	t.Parallel()

	r := newPackRepo(t)
	d := NewGitDistribution(r.pattern(), WithGitTempDir(t.TempDir()))

	if _, err := d.ListVersions(t.Context(), "missing-battery-pack"); !errors.Is(err, ErrNotPublished) {
		t.Errorf("ListVersions() error = %v, want ErrNotPublished", err)
	}
}

func TestGitDistribution_Fetch(t *testing.T) {
	t.Parallel()

	r := publishDemo(t)
	d := NewGitDistribution(r.pattern(), WithGitTempDir(t.TempDir()))

	t.Run("v-prefixed tag", func(t *testing.T) {
		t.Parallel()

		archive, err := d.Fetch(t.Context(), gitPackName, "0.1.0")
		if err != nil {
			t.Fatalf("Fetch() error = %v", err)
		}
		defer testutil.MustClose(t, archive.Body)

		if !strings.HasSuffix(archive.Source, "#v0.1.0") || archive.Checksum != "" {
			t.Errorf("archive = {Source: %q, Checksum: %q}", archive.Source, archive.Checksum)
		}
		names := archiveNames(t, archive.Body)
		if !slices.Contains(names, "demo-battery-pack-0.1.0/Cargo.toml") {
			t.Errorf("archive entries = %v", names)
		}
	})

	t.Run("bare tag is the fallback", func(t *testing.T) {
		t.Parallel()

		archive, err := d.Fetch(t.Context(), gitPackName, "0.2.0")
		if err != nil {
			t.Fatalf("Fetch() error = %v", err)
		}
		defer testutil.MustClose(t, archive.Body)

		if !strings.HasSuffix(archive.Source, "#0.2.0") {
			t.Errorf("Source = %q, want the bare tag", archive.Source)
		}
		for _, name := range archiveNames(t, archive.Body) {
			if !strings.HasPrefix(name, "demo-battery-pack-0.2.0/") && name != "demo-battery-pack-0.2.0" {
				t.Errorf("entry %q outside the name-version prefix", name)
			}
			if strings.Contains(name, "/.git/") || strings.HasSuffix(name, "/.git") {
				t.Errorf("entry %q from .git should be skipped", name)
			}
		}
	})

	t.Run("unknown version", func(t *testing.T) {
		t.Parallel()

		if _, err := d.Fetch(t.Context(), gitPackName, "9.9.9"); !errors.Is(err, ErrVersionNotFound) {
			t.Errorf("Fetch() error = %v, want ErrVersionNotFound", err)
		}
	})
}

func TestGitDistribution_ThroughCache(t *testing.T) {
	t.Parallel()

	r := publishDemo(t)
	cache, err := New(NewGitDistribution(r.pattern(), WithGitTempDir(t.TempDir())), WithDir(t.TempDir()))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	versions, err := cache.Versions(t.Context(), gitPackName)
	if err != nil {
		t.Fatalf("Versions() error = %v", err)
	}
	if want := []string{"0.3.0", "0.2.0", "0.1.0"}; !slices.Equal(versions, want) {
		t.Errorf("Versions() = %v, want %v", versions, want)
	}

	entry, err := cache.Resolve(t.Context(), gitPackName, "~0.2")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if entry.Version != "0.2.0" || entry.Checksum == "" {
		t.Errorf("entry = %+v", entry)
	}

	manifest, err := ReadFile(entry, "Cargo.toml")
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !bytes.Contains(manifest, []byte(`version = "0.2.0"`)) {
		t.Errorf("Cargo.toml = %q", manifest)
	}
	if _, err := ReadFile(entry, "templates/default/main.rs"); err != nil {
		t.Errorf("ReadFile(template) error = %v", err)
	}
	if _, err := ReadFile(entry, ".git/HEAD"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("ReadFile(.git/HEAD) error = %v, want not exist", err)
	}
}

func TestWriteTarGz(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	testutil.MustWriteFile(t, filepath.Join(src, "Cargo.toml"), "[package]\n")
	testutil.MustWriteFile(t, filepath.Join(src, "src", "lib.rs"), "")
	testutil.MustWriteFile(t, filepath.Join(src, ".git", "HEAD"), "ref: refs/heads/main\n")

	var buf bytes.Buffer
	if err := writeTarGz(&buf, src, "demo-battery-pack-1.0.0"); err != nil {
		t.Fatalf("writeTarGz() error = %v", err)
	}

	got := archiveNames(t, io.NopCloser(&buf))
	want := []string{
		"demo-battery-pack-1.0.0/",
		"demo-battery-pack-1.0.0/Cargo.toml",
		"demo-battery-pack-1.0.0/src/",
		"demo-battery-pack-1.0.0/src/lib.rs",
	}
	if !slices.Equal(got, want) {
		t.Errorf("entries = %v, want %v", got, want)
	}
}

func TestWithGitToken(t *testing.T) {
	t.Parallel()

	d := NewGitDistribution("", WithGitToken("s3cret"))
	auth, ok := d.auth.(*http.BasicAuth)
	if !ok || auth.Password != "s3cret" {
		t.Errorf("auth = %#v, want basic auth carrying the token", d.auth)
	}
	if d.URL("cli-battery-pack") != "https://github.com/battery-pack-rs/cli-battery-pack.git" {
		t.Errorf("URL() = %q", d.URL("cli-battery-pack"))
	}
}

// archiveNames lists the entry names of a tar.gz stream.
func archiveNames(t *testing.T, r io.Reader) []string {
	t.Helper()
	gz, err := gzip.NewReader(r)
	if err != nil {
		t.Fatalf("gzip.NewReader() error = %v", err)
	}
	tr := tar.NewReader(gz)
	var names []string
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return names
		}
		if err != nil {
			t.Fatalf("tar.Next() error = %v", err)
		}
		names = append(names, hdr.Name)
	}
}
