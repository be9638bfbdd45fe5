// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/battery-pack-rs/battery-pack/internal/testutil"
	"github.com/battery-pack-rs/battery-pack/pkg/composition"
)

const (
	errorPackCUE = `
name:   "error-battery-pack"
crates: [{name: "anyhow", version: "1"}, {name: "thiserror", version: "2"}]
extends: []
`
	cliPackCUE = `
name:    "cli-battery-pack"
crates:  [{name: "clap", version: "4"}]
extends: ["error-battery-pack"]
`
)

func TestResolve_LocalPacks(t *testing.T) {
	t.Parallel()

	packs := t.TempDir()
	testutil.MustWriteFile(t, filepath.Join(packs, "error.cue"), errorPackCUE)
	testutil.MustWriteFile(t, filepath.Join(packs, "cli.cue"), cliPackCUE)

	ta := newTestApp(t)
	err := ta.run(t, "resolve", filepath.Join(packs, "cli.cue"), "--packs-dir", packs, "--offline", "--format", "json")
	if err != nil {
		t.Fatalf("resolve error = %v (stderr: %s)", err, ta.stderr.String())
	}

	var view resolutionView
	if err := json.Unmarshal(ta.stdout.Bytes(), &view); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, ta.stdout.String())
	}
	if view.Root != "cli-battery-pack" {
		t.Errorf("root = %s", view.Root)
	}
	if len(view.Packs) != 2 || view.Packs[0] != "error-battery-pack" {
		t.Errorf("packs = %v, want error-battery-pack first", view.Packs)
	}

	owners := map[string]string{}
	for _, e := range view.Entries {
		owners[e.Name] = string(e.Owner)
	}
	for name, owner := range map[string]string{
		"clap":      "cli-battery-pack",
		"anyhow":    "error-battery-pack",
		"thiserror": "error-battery-pack",
	} {
		if owners[name] != owner {
			t.Errorf("entry %s owner = %q, want %q", name, owners[name], owner)
		}
	}
}

func TestResolve_TableOutput(t *testing.T) {
	t.Parallel()

	packs := t.TempDir()
	testutil.MustWriteFile(t, filepath.Join(packs, "error.cue"), errorPackCUE)

	ta := newTestApp(t)
	if err := ta.run(t, "resolve", filepath.Join(packs, "error.cue"), "--offline"); err != nil {
		t.Fatalf("resolve error = %v", err)
	}
	out := ta.stdout.String()
	for _, want := range []string{"error-battery-pack", "NAME", "anyhow", "thiserror"} {
		if !strings.Contains(out, want) {
			t.Errorf("table output lacks %q:\n%s", want, out)
		}
	}
}

func TestResolve_Cycle(t *testing.T) {
	t.Parallel()

	packs := t.TempDir()
	testutil.MustWriteFile(t, filepath.Join(packs, "a.cue"), `
name:    "a-battery-pack"
crates:  [{name: "serde"}]
extends: ["b-battery-pack"]
`)
	testutil.MustWriteFile(t, filepath.Join(packs, "b.cue"), `
name:    "b-battery-pack"
crates:  [{name: "tokio"}]
extends: ["a-battery-pack"]
`)

	ta := newTestApp(t)
	err := ta.run(t, "resolve", filepath.Join(packs, "a.cue"), "--packs-dir", packs, "--offline")

	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("resolve error = %v, want *ExitError", err)
	}
	if exitErr.Code != ExitUsage {
		t.Errorf("exit code = %d, want %d", exitErr.Code, ExitUsage)
	}
	if !errors.Is(err, composition.ErrCyclicExtension) {
		t.Errorf("error = %v, want ErrCyclicExtension", err)
	}
}

func TestResolve_MissingParentOffline(t *testing.T) {
	t.Parallel()

	packs := t.TempDir()
	testutil.MustWriteFile(t, filepath.Join(packs, "cli.cue"), cliPackCUE)

	ta := newTestApp(t)
	err := ta.run(t, "resolve", filepath.Join(packs, "cli.cue"), "--packs-dir", packs, "--offline")
	if !errors.Is(err, composition.ErrUnresolvedExtension) {
		t.Fatalf("resolve error = %v, want ErrUnresolvedExtension", err)
	}
	if !strings.Contains(ta.stderr.String(), "--packs-dir") {
		t.Errorf("stderr = %q, want the --packs-dir suggestion", ta.stderr.String())
	}
}

func TestResolve_RejectsUnknownFormat(t *testing.T) {
	t.Parallel()

	ta := newTestApp(t)
	if err := ta.run(t, "resolve", "cli", "--format", "yaml"); err == nil {
		t.Fatal("resolve --format yaml should fail")
	}
}
