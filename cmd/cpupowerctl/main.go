// Command cpupowerctl inspects and controls CPU frequency scaling on Linux.
package main

import "codeberg.org/mutker/cpupowerctl/internal/cli"

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	cli.Execute(version)
}
