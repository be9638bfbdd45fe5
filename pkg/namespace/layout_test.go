// SPDX-License-Identifier: MPL-2.0

package namespace

import (
	"errors"
	"slices"
	"testing"

	"github.com/battery-pack-rs/battery-pack/pkg/batterypack"
)

const webPackCargo = `
[package]
name = "web-battery-pack"

[package.metadata.battery]
exclude = ["hyper"]

[package.metadata.battery.root]
tokio = "*"
serde = ["Serialize", "Deserialize"]

[package.metadata.battery.modules]
cli = ["cli-battery-pack"]
http = ["reqwest", "hyper"]
type = { uuid = ["Uuid"] }

[dependencies]
battery-pack = "0.1"
cli-battery-pack = "0.3"
tokio = "1"
serde = "1"
reqwest = "0.12"
uuid = "1"
`

func parseCargo(t *testing.T, doc string) *batterypack.PackManifest {
	t.Helper()
	m, err := batterypack.ParseCargoManifest([]byte(doc), "Cargo.toml")
	if err != nil {
		t.Fatalf("ParseCargoManifest() error = %v", err)
	}
	return m
}

func layoutPacks() []*batterypack.PackManifest {
	return []*batterypack.PackManifest{
		pack("cli-battery-pack", []crate{{Name: "clap", Version: "4"}}, "error-battery-pack"),
		pack("error-battery-pack", []crate{{Name: "anyhow", Version: "1"}}),
	}
}

func TestResolve_Layout(t *testing.T) {
	t.Parallel()

	ns, err := Resolve(build(t, parseCargo(t, webPackCargo), layoutPacks()...))
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	want := []string{"serde", "tokio", "cli::anyhow", "cli::clap", "http::reqwest", "r#type::uuid"}
	if got := ns.Names(); !slices.Equal(got, want) {
		t.Fatalf("Names() = %v, want %v", got, want)
	}

	serde, _ := ns.Lookup("serde")
	if serde.Glob || !slices.Equal(serde.Items, []string{"Serialize", "Deserialize"}) || serde.Module != "" {
		t.Errorf("serde = %+v", serde)
	}
	tokio, _ := ns.Lookup("tokio")
	if !tokio.Glob || tokio.Path != "tokio" {
		t.Errorf("tokio = %+v", tokio)
	}

	anyhow, ok := ns.Lookup("cli::anyhow")
	if !ok || anyhow.Owner != "error-battery-pack" || anyhow.Path != "error_battery_pack::anyhow" {
		t.Errorf("cli::anyhow = %+v", anyhow)
	}

	uuid, _ := ns.Lookup("r#type::uuid")
	if uuid.Module != "r#type" || !slices.Equal(uuid.Items, []string{"Uuid"}) {
		t.Errorf("uuid = %+v", uuid)
	}

	if _, ok := ns.Lookup("http::hyper"); ok {
		t.Error("excluded key should not be placed")
	}
}

func TestResolve_LayoutUnknownPlacement(t *testing.T) {
	t.Parallel()

	root := parseCargo(t, `
[package]
name = "web-battery-pack"

[package.metadata.battery]
root = ["tokio", "axum"]

[dependencies]
tokio = "1"
`)
	_, err := Resolve(build(t, root))
	var unknown *UnknownPlacementError
	if !errors.As(err, &unknown) || unknown.Key != "axum" || unknown.Module != "" {
		t.Fatalf("expected *UnknownPlacementError for axum, got %T: %v", err, err)
	}
	if !errors.Is(err, ErrUnknownPlacement) {
		t.Error("errors.Is(err, ErrUnknownPlacement) = false")
	}
}

func TestResolve_LayoutGlobOnPack(t *testing.T) {
	t.Parallel()

	root := parseCargo(t, `
[package]
name = "web-battery-pack"

[package.metadata.battery.root]
cli-battery-pack = "*"

[dependencies]
cli-battery-pack = "0.3"
tokio = "1"
`)
	ns, err := Resolve(build(t, root, layoutPacks()...))
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	if got := ns.Names(); !slices.Equal(got, []string{"cli_battery_pack"}) {
		t.Fatalf("Names() = %v", got)
	}
	e := ns.Entries()[0]
	if !e.Glob || e.Path != "cli_battery_pack" || e.Owner != "cli-battery-pack" {
		t.Errorf("entry = %+v", e)
	}
}

func TestResolve_LayoutSameCrateInTwoModules(t *testing.T) {
	t.Parallel()

	root := parseCargo(t, `
[package]
name = "web-battery-pack"

[package.metadata.battery.modules]
client = ["reqwest"]
http = ["reqwest", "reqwest"]

[dependencies]
reqwest = "0.12"
`)
	ns, err := Resolve(build(t, root))
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	if got := ns.Names(); !slices.Equal(got, []string{"client::reqwest", "http::reqwest"}) {
		t.Errorf("Names() = %v", got)
	}
	want := []OwnerConstraint{{Owner: "web-battery-pack", Crate: "reqwest", Version: "0.12"}}
	if got := ns.Constraints(); !slices.Equal(got, want) {
		t.Errorf("Constraints() = %+v, want %+v", got, want)
	}
}

func TestResolve_LayoutExcludingEverythingIsEmpty(t *testing.T) {
	t.Parallel()

	root := parseCargo(t, `
[package]
name = "web-battery-pack"

[package.metadata.battery]
exclude = ["tokio"]
root = ["tokio"]

[dependencies]
tokio = "1"
`)
	if _, err := Resolve(build(t, root)); !errors.Is(err, ErrEmptyNamespace) {
		t.Errorf("Resolve() error = %v, want ErrEmptyNamespace", err)
	}
}
