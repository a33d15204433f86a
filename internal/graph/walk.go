// SPDX-License-Identifier: MPL-2.0

package graph

type frame struct {
	edges []ProjectPath
	next  int
}

// Walk returns every project reachable from root through dependency and
// test back-reference edges, each exactly once, in pre-order: a project is
// listed before anything reached through it, and a node's dependencies are
// explored before its test projects. The root itself is not included.
//
// The traversal keeps an explicit stack, so chain depth is bounded by memory
// rather than the goroutine stack.
func Walk(g *Graph, root ProjectPath) []ProjectPath {
	n := g.Node(root)
	if n == nil {
		return nil
	}

	visited := map[ProjectPath]struct{}{root: {}}
	var order []ProjectPath
	stack := []*frame{{edges: n.Edges()}}

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		if top.next >= len(top.edges) {
			stack = stack[:len(stack)-1]
			continue
		}
		target := top.edges[top.next]
		top.next++

		if _, seen := visited[target]; seen {
			continue
		}
		visited[target] = struct{}{}
		order = append(order, target)

		if child := g.Node(target); child != nil {
			stack = append(stack, &frame{edges: child.Edges()})
		}
	}
	return order
}
