// SPDX-License-Identifier: MPL-2.0

// Package cueutil holds the CUE decoding path shared by pack manifests and the
// CLI configuration file.
//
// Every caller follows the same three steps: compile an embedded schema,
// unify the user document with one of its definitions, then validate and
// decode into a Go struct. Errors are rewritten so that they carry the file
// name and a JSON-style field path:
//
//	//go:embed batterypack_schema.cue
//	var schema []byte
//
//	res, err := cueutil.ParseAndDecode[manifestDoc](
//	    schema,
//	    data,
//	    "#BatteryPack",
//	    cueutil.WithFilename("cli-battery-pack.cue"),
//	)
//	if err != nil {
//	    return nil, err // "cli-battery-pack.cue: crates[1].name: ..."
//	}
package cueutil
