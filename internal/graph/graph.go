// SPDX-License-Identifier: MPL-2.0

// Package graph models the project reference graph: one node per descriptor,
// forward edges to the projects it depends on and back edges from the test
// projects that reference it.
package graph

import (
	"path"
	"path/filepath"
	"slices"
	"strings"
)

type (
	// ProjectPath identifies a descriptor by its slash-separated path
	// relative to the crawl root.
	ProjectPath string

	// Node holds the edges of a single project.
	Node struct {
		// Dependencies are the projects this descriptor references, in
		// declaration order without duplicates.
		Dependencies []ProjectPath
		// TestProjects are the test descriptors that reference this project.
		TestProjects []ProjectPath
		// IsTestProject reports whether the descriptor carries a test marker.
		IsTestProject bool
	}

	// Graph maps every discovered or referenced descriptor to its node.
	// A Graph returned by Builder.Build is not modified afterwards and may
	// be read concurrently.
	Graph struct {
		nodes map[ProjectPath]*Node
	}
)

// New returns an empty graph.
func New() *Graph {
	return &Graph{nodes: make(map[ProjectPath]*Node)}
}

// FromPath converts a root-relative OS path into a ProjectPath.
func FromPath(rel string) ProjectPath {
	return ProjectPath(path.Clean(filepath.ToSlash(rel)))
}

// Resolve normalizes a reference Include value found in the descriptor at
// from. Backslashes are treated as separators and the result is relative to
// the descriptor's directory, like MSBuild resolves it. absRoot is only used
// for rooted includes, which are re-expressed relative to the crawl root.
func Resolve(absRoot string, from ProjectPath, include string) ProjectPath {
	include = strings.ReplaceAll(include, `\`, "/")

	if path.IsAbs(include) || filepath.IsAbs(filepath.FromSlash(include)) {
		if rel, err := filepath.Rel(absRoot, filepath.FromSlash(include)); err == nil {
			return FromPath(rel)
		}
		return ProjectPath(path.Clean(include))
	}

	return ProjectPath(path.Join(path.Dir(string(from)), include))
}

// String returns the path as a string.
func (p ProjectPath) String() string {
	return string(p)
}

// Dir returns the directory holding the descriptor.
func (p ProjectPath) Dir() string {
	return path.Dir(string(p))
}

// Base returns the descriptor's file name.
func (p ProjectPath) Base() string {
	return path.Base(string(p))
}

// Name returns the descriptor's file name without its extension.
func (p ProjectPath) Name() string {
	base := p.Base()
	return strings.TrimSuffix(base, path.Ext(base))
}

// OSPath joins p onto an OS root directory.
func (p ProjectPath) OSPath(root string) string {
	return filepath.Join(root, filepath.FromSlash(string(p)))
}

// RelativeTo returns the slash-separated path of p as seen from dir, where
// dir is itself root-relative.
func (p ProjectPath) RelativeTo(dir string) string {
	rel, err := filepath.Rel(filepath.FromSlash(dir), filepath.FromSlash(string(p)))
	if err != nil {
		return string(p)
	}
	return filepath.ToSlash(rel)
}

// Node returns the node for p, or nil when p is unknown.
func (g *Graph) Node(p ProjectPath) *Node {
	return g.nodes[p]
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// Paths returns every node path in lexicographic order.
func (g *Graph) Paths() []ProjectPath {
	paths := make([]ProjectPath, 0, len(g.nodes))
	for p := range g.nodes {
		paths = append(paths, p)
	}
	slices.Sort(paths)
	return paths
}

// Roots returns the paths of every non-test node in lexicographic order.
func (g *Graph) Roots() []ProjectPath {
	var roots []ProjectPath
	for _, p := range g.Paths() {
		if !g.nodes[p].IsTestProject {
			roots = append(roots, p)
		}
	}
	return roots
}

// Edges returns the outgoing edges walked for a closure: dependencies first,
// then test projects.
func (n *Node) Edges() []ProjectPath {
	edges := make([]ProjectPath, 0, len(n.Dependencies)+len(n.TestProjects))
	edges = append(edges, n.Dependencies...)
	return append(edges, n.TestProjects...)
}

// ensure returns the node for p, creating an empty one if needed.
func (g *Graph) ensure(p ProjectPath) *Node {
	n, ok := g.nodes[p]
	if !ok {
		n = &Node{}
		g.nodes[p] = n
	}
	return n
}

// addDependencies records deps on p, skipping duplicates.
func (g *Graph) addDependencies(p ProjectPath, deps []ProjectPath) {
	n := g.ensure(p)
	for _, d := range deps {
		if !slices.Contains(n.Dependencies, d) {
			n.Dependencies = append(n.Dependencies, d)
		}
	}
}

// addTestProject records test as a back reference on target.
func (g *Graph) addTestProject(target, test ProjectPath) {
	n := g.ensure(target)
	if !slices.Contains(n.TestProjects, test) {
		n.TestProjects = append(n.TestProjects, test)
	}
}

func (g *Graph) freeze() {
	for _, n := range g.nodes {
		slices.Sort(n.TestProjects)
	}
}
