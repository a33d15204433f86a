// SPDX-License-Identifier: MPL-2.0

// Package cmd contains the slncrawl command tree.
//
// Commands are built by NewRootCommand around an App, which holds the
// injectable services (configuration, filesystem, toolchain factory) and the
// output writers. Handlers never touch package-level state.
package cmd
