// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/battery-pack-rs/battery-pack/internal/config"
	"github.com/battery-pack-rs/battery-pack/internal/templates"
)

type (
	// stubConfig serves a fixed configuration.
	stubConfig struct {
		cfg *config.Config
		err error
	}

	// emptyDistribution publishes nothing.
	emptyDistribution struct{}

	// testApp is an App with captured output streams.
	testApp struct {
		*App
		stdout *bytes.Buffer
		stderr *bytes.Buffer
	}
)

func (s stubConfig) Load(context.Context, config.LoadOptions) (*config.Config, error) {
	if s.err != nil {
		return nil, s.err
	}
	cfg := *s.cfg
	return &cfg, nil
}

func (emptyDistribution) ListVersions(context.Context, string) ([]string, error) {
	return nil, templates.ErrNotPublished
}

func (emptyDistribution) Fetch(_ context.Context, name, version string) (*templates.Archive, error) {
	return nil, templates.ErrNotPublished
}

// newTestApp builds an App that never touches the network or the user's
// config. The template cache lives in a temp directory.
func newTestApp(t *testing.T) *testApp {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.UI.Interactive = false
	cacheDir := filepath.Join(t.TempDir(), "cache")

	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	app := NewApp(Dependencies{
		Config: stubConfig{cfg: cfg},
		Services: func(*config.Config) (*Services, error) {
			cache, err := templates.New(emptyDistribution{}, templates.WithDir(cacheDir))
			if err != nil {
				return nil, err
			}
			return &Services{Cache: cache}, nil
		},
		Stdout: stdout,
		Stderr: stderr,
	})
	return &testApp{App: app, stdout: stdout, stderr: stderr}
}

// run executes the command tree with args.
func (ta *testApp) run(t *testing.T, args ...string) error {
	t.Helper()
	root := NewRootCommand(ta.App)
	root.SetArgs(args)
	root.SetOut(ta.stdout)
	root.SetErr(ta.stderr)
	return root.ExecuteContext(t.Context())
}

func TestGetVersionString(t *testing.T) {
	// Not parallel: subtests mutate package-level Version/Commit/BuildDate vars.

	t.Run("ldflags version", func(t *testing.T) {
		origVersion, origCommit, origBuildDate := Version, Commit, BuildDate
		t.Cleanup(func() {
			Version, Commit, BuildDate = origVersion, origCommit, origBuildDate
		})

		Version = "v0.4.0"
		Commit = "abc1234"
		BuildDate = "2026-01-10T10:00:00Z"

		got := getVersionString()
		want := "v0.4.0 (commit: abc1234, built: 2026-01-10T10:00:00Z)"
		if got != want {
			t.Errorf("getVersionString() = %q, want %q", got, want)
		}
	})

	t.Run("dev build", func(t *testing.T) {
		origVersion := Version
		t.Cleanup(func() { Version = origVersion })

		Version = "dev"
		if got := getVersionString(); got != "dev (built from source)" {
			t.Errorf("getVersionString() = %q", got)
		}
	})
}

func TestNewRootCommand_Subcommands(t *testing.T) {
	t.Parallel()

	root := NewRootCommand(NewApp(Dependencies{}))
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	got := strings.Join(names, " ")

	for _, want := range []string{"add", "cache", "completion", "config", "new", "pick", "resolve", "search", "show"} {
		if !strings.Contains(got, want) {
			t.Errorf("root command lacks %q (have %s)", want, got)
		}
	}
}

func TestRoot_BrokenConfigFallsBackToDefaults(t *testing.T) {
	t.Parallel()

	ta := newTestApp(t)
	ta.Config = stubConfig{err: errors.New("config.cue:3:1: expected '}'")}

	if err := ta.run(t, "config", "dump"); err != nil {
		t.Fatalf("config dump error = %v", err)
	}
	if !strings.Contains(ta.stderr.String(), "Warning") {
		t.Errorf("stderr = %q, want a warning", ta.stderr.String())
	}
	if !strings.Contains(ta.stdout.String(), `distribution: "crates-io"`) {
		t.Errorf("stdout = %q, want default distribution", ta.stdout.String())
	}
}

func TestRoot_InteractiveFlagOverridesConfig(t *testing.T) {
	t.Parallel()

	ta := newTestApp(t)
	if err := ta.run(t, "--interactive=true", "config", "path"); err != nil {
		t.Fatal(err)
	}
	if !ta.interactive {
		t.Error("--interactive=true should override ui.interactive = false")
	}
}

func TestCompletion(t *testing.T) {
	t.Parallel()

	ta := newTestApp(t)
	if err := ta.run(t, "completion", "bash"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(ta.stdout.String(), "bash completion") {
		t.Errorf("completion output does not look like a bash script")
	}
}
