// SPDX-License-Identifier: MPL-2.0

// Command slncrawl generates one solution per non-test project from the
// ProjectReference graph below a directory.
package main

import cmd "github.com/slncrawl/slncrawl/cmd/slncrawl"

func main() {
	cmd.Execute()
}
