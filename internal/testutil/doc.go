// SPDX-License-Identifier: MPL-2.0

// Package testutil builds project-tree fixtures for tests: descriptor
// content with references and test markers, written into an afero
// filesystem or onto disk.
package testutil
