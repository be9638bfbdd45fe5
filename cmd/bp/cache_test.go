// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"strings"
	"testing"
)

func TestCache_EmptyList(t *testing.T) {
	t.Parallel()

	ta := newTestApp(t)
	if err := ta.run(t, "cache", "list"); err != nil {
		t.Fatalf("cache list error = %v", err)
	}
	if !strings.Contains(ta.stdout.String(), "cache is empty") {
		t.Errorf("stdout = %q", ta.stdout.String())
	}
}

func TestCache_ListJSON(t *testing.T) {
	t.Parallel()

	ta := newTestApp(t)
	if err := ta.run(t, "cache", "list", "--format", "json"); err != nil {
		t.Fatalf("cache list error = %v", err)
	}
	if !strings.Contains(ta.stdout.String(), `"entries"`) {
		t.Errorf("stdout = %q", ta.stdout.String())
	}
}

func TestCache_Path(t *testing.T) {
	t.Parallel()

	ta := newTestApp(t)
	if err := ta.run(t, "cache", "path"); err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(strings.TrimSpace(ta.stdout.String()), "cache") {
		t.Errorf("cache path = %q", ta.stdout.String())
	}
}

func TestCache_Invalidate(t *testing.T) {
	t.Parallel()

	ta := newTestApp(t)
	if err := ta.run(t, "cache", "invalidate", "cli", "1.0.0"); err != nil {
		t.Fatalf("invalidate error = %v", err)
	}
	if !strings.Contains(ta.stdout.String(), "cli-battery-pack@1.0.0") {
		t.Errorf("stdout = %q, want the expanded pack name", ta.stdout.String())
	}
}

func TestCache_CleanRequiresConfirmation(t *testing.T) {
	t.Parallel()

	ta := newTestApp(t)
	if err := ta.run(t, "cache", "clean"); err == nil {
		t.Error("clean without --yes in a non-interactive run should fail")
	}

	ta = newTestApp(t)
	if err := ta.run(t, "cache", "clean", "--yes"); err != nil {
		t.Fatalf("clean --yes error = %v", err)
	}
}
