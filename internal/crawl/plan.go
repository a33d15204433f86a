// SPDX-License-Identifier: MPL-2.0

package crawl

import (
	"github.com/slncrawl/slncrawl/internal/graph"
)

// DefaultExtension is the solution file extension.
const DefaultExtension = "sln"

// RootPlan lists what populating one root's solution involves.
type RootPlan struct {
	Root graph.ProjectPath
	// Dir is the root-relative directory holding the descriptor and the
	// solution file.
	Dir string
	// Name is the solution name, the descriptor's base name without its
	// extension.
	Name string
	// Artifact is the solution file name.
	Artifact string
	// Self is the path added first: the descriptor itself.
	Self string
	// Additions are the closure members, relative to Dir, in walk order.
	Additions []string
}

// Plan computes the per-root operation lists for every non-test project
// without touching the filesystem or the toolchain.
func Plan(g *graph.Graph, ext string) []RootPlan {
	if ext == "" {
		ext = DefaultExtension
	}
	roots := g.Roots()
	plans := make([]RootPlan, 0, len(roots))
	for _, r := range roots {
		plans = append(plans, PlanRoot(g, r, ext))
	}
	return plans
}

// PlanRoot computes the plan for a single root.
func PlanRoot(g *graph.Graph, root graph.ProjectPath, ext string) RootPlan {
	if ext == "" {
		ext = DefaultExtension
	}
	p := RootPlan{
		Root:     root,
		Dir:      root.Dir(),
		Name:     root.Name(),
		Artifact: root.Name() + "." + ext,
		Self:     root.Base(),
	}
	for _, target := range graph.Walk(g, root) {
		p.Additions = append(p.Additions, target.RelativeTo(p.Dir))
	}
	return p
}

// Expected returns every project path the finished solution should list.
func (p RootPlan) Expected() []string {
	return append([]string{p.Self}, p.Additions...)
}
