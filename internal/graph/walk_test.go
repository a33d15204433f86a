// SPDX-License-Identifier: MPL-2.0

package graph

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

// graphOf builds a graph directly from adjacency lists for walk tests.
func graphOf(deps map[ProjectPath][]ProjectPath, tests map[ProjectPath][]ProjectPath) *Graph {
	g := New()
	for p, d := range deps {
		g.addDependencies(p, d)
	}
	for target, ts := range tests {
		for _, tp := range ts {
			g.addTestProject(target, tp)
			g.ensure(tp).IsTestProject = true
		}
	}
	g.freeze()
	return g
}

func TestWalk(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		deps  map[ProjectPath][]ProjectPath
		tests map[ProjectPath][]ProjectPath
		root  ProjectPath
		want  []ProjectPath
	}{
		{
			name: "chain is followed transitively",
			deps: map[ProjectPath][]ProjectPath{"A": {"B"}, "B": {"C"}},
			root: "A",
			want: []ProjectPath{"B", "C"},
		},
		{
			name: "pre-order before siblings",
			deps: map[ProjectPath][]ProjectPath{"A": {"B", "C"}, "B": {"D"}},
			root: "A",
			want: []ProjectPath{"B", "D", "C"},
		},
		{
			name: "shared dependency appears once",
			deps: map[ProjectPath][]ProjectPath{"A": {"B", "C"}, "B": {"D"}, "C": {"D"}},
			root: "A",
			want: []ProjectPath{"B", "D", "C"},
		},
		{
			name: "cycle terminates without revisiting root",
			deps: map[ProjectPath][]ProjectPath{"A": {"B"}, "B": {"C"}, "C": {"A", "B"}},
			root: "A",
			want: []ProjectPath{"B", "C"},
		},
		{
			name:  "test projects after dependencies",
			deps:  map[ProjectPath][]ProjectPath{"A": {"B"}, "T2": {"A"}, "T1": {"B"}},
			tests: map[ProjectPath][]ProjectPath{"A": {"T2"}, "B": {"T1"}},
			root:  "A",
			want:  []ProjectPath{"B", "T1", "T2"},
		},
		{
			name: "no edges",
			deps: map[ProjectPath][]ProjectPath{"A": nil},
			root: "A",
			want: nil,
		},
		{
			name: "unknown root",
			deps: map[ProjectPath][]ProjectPath{"A": {"B"}},
			root: "Z",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			g := graphOf(tt.deps, tt.tests)
			assert.Equal(t, tt.want, Walk(g, tt.root))
		})
	}
}

func TestWalkDeepChain(t *testing.T) {
	t.Parallel()

	const depth = 100_000
	deps := make(map[ProjectPath][]ProjectPath, depth)
	for i := range depth - 1 {
		deps[ProjectPath(fmt.Sprint(i))] = []ProjectPath{ProjectPath(fmt.Sprint(i + 1))}
	}

	got := Walk(graphOf(deps, nil), "0")
	assert.Len(t, got, depth-1)
	assert.Equal(t, ProjectPath(fmt.Sprint(depth-1)), got[len(got)-1])
}

func TestWalkClosureIsUnionOfReachable(t *testing.T) {
	t.Parallel()

	g := graphOf(
		map[ProjectPath][]ProjectPath{
			"App": {"Svc", "Util"},
			"Svc": {"Data", "Util"},
			"Data": {"Util"},
			"Svc.Tests": {"Svc"},
			"Util.Tests": {"Util"},
		},
		map[ProjectPath][]ProjectPath{
			"Svc":  {"Svc.Tests"},
			"Util": {"Util.Tests"},
		},
	)

	got := Walk(g, "App")
	assert.ElementsMatch(t, []ProjectPath{"Svc", "Util", "Data", "Svc.Tests", "Util.Tests"}, got)

	seen := map[ProjectPath]int{}
	for _, p := range got {
		seen[p]++
	}
	for p, c := range seen {
		assert.Equal(t, 1, c, "%s added more than once", p)
	}
}
