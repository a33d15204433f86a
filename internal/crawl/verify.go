// SPDX-License-Identifier: MPL-2.0

package crawl

import (
	"fmt"
	"path/filepath"
	"slices"

	"github.com/spf13/afero"

	"github.com/slncrawl/slncrawl/internal/fsutil"
	"github.com/slncrawl/slncrawl/internal/graph"
	"github.com/slncrawl/slncrawl/internal/sln"
)

// Verification compares one existing solution with its expected closure.
type Verification struct {
	Root     graph.ProjectPath
	Artifact string
	// Absent is true when the solution file does not exist.
	Absent bool
	// Missing are expected projects the solution does not list.
	Missing []string
	// Unexpected are listed projects outside the closure.
	Unexpected []string
}

// OK reports whether the solution exists and matches exactly.
func (v Verification) OK() bool {
	return !v.Absent && len(v.Missing) == 0 && len(v.Unexpected) == 0
}

// Verify parses the solution of every non-test project under root and
// compares its projects with the closure computed from g. Solution folders
// are ignored. Errors are returned only for unreadable or malformed files.
func Verify(fs afero.Fs, root string, g *graph.Graph, ext string) ([]Verification, error) {
	plans := Plan(g, ext)
	out := make([]Verification, 0, len(plans))
	for _, plan := range plans {
		v, err := verifyRoot(fs, root, plan)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func verifyRoot(fs afero.Fs, root string, plan RootPlan) (Verification, error) {
	v := Verification{Root: plan.Root, Artifact: plan.Artifact}
	path := filepath.Join(root, filepath.FromSlash(plan.Dir), plan.Artifact)

	exists, err := fsutil.Exists(fs, path)
	if err != nil {
		return v, err
	}
	if !exists {
		v.Absent = true
		v.Missing = slices.Sorted(slices.Values(plan.Expected()))
		return v, nil
	}

	f, err := fs.Open(path)
	if err != nil {
		return v, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	solution, err := sln.ParseFile(plan.Artifact, f)
	if err != nil {
		return v, fmt.Errorf("parse %s: %w", path, err)
	}

	listed := solution.ProjectPaths()
	expected := plan.Expected()
	for _, e := range expected {
		if !slices.Contains(listed, e) {
			v.Missing = append(v.Missing, e)
		}
	}
	for _, l := range listed {
		if !slices.Contains(expected, l) {
			v.Unexpected = append(v.Unexpected, l)
		}
	}
	slices.Sort(v.Missing)
	return v, nil
}
