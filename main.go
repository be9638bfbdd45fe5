// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/battery-pack-rs/battery-pack/cmd/bp"

func main() {
	cmd.Execute()
}
