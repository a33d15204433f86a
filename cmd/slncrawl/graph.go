// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss/tree"
	"github.com/spf13/cobra"

	"github.com/slncrawl/slncrawl/internal/graph"
)

const (
	graphFormatText = "text"
	graphFormatJSON = "json"
	graphFormatDot  = "dot"
)

type (
	graphFlagValues struct {
		format string
		from   string
	}

	// graphNodeJSON is one project in the JSON output.
	graphNodeJSON struct {
		Path         string   `json:"path"`
		IsTest       bool     `json:"is_test"`
		Dependencies []string `json:"dependencies"`
		TestProjects []string `json:"test_projects"`
		// Closure is set for non-test projects: what their solution holds.
		Closure []string `json:"closure,omitempty"`
	}

	graphJSON struct {
		Root     string          `json:"root"`
		Projects []graphNodeJSON `json:"projects"`
	}
)

func newGraphCommand(app *App, rootFlags *rootFlagValues) *cobra.Command {
	flags := &graphFlagValues{}

	cmd := &cobra.Command{
		Use:   "graph [dir]",
		Short: "Print the project reference graph",
		Long: `Print the project reference graph.

Formats:
  text  one tree per project with its dependencies and test projects
  json  every node with its edges and, for non-test projects, the closure
  dot   a Graphviz digraph; references from test projects are dashed

With --from, only the closure of that project (a path relative to dir) is
printed, as a tree in text format.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := runGraph(cmd, app, rootFlags, flags, args); err != nil {
				return app.fail(cmd, rootFlags, err)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&flags.format, "format", "f", graphFormatText, "output format: text, json or dot")
	cmd.Flags().StringVar(&flags.from, "from", "", "only show the closure of this project")
	return cmd
}

func runGraph(cmd *cobra.Command, app *App, rootFlags *rootFlagValues, flags *graphFlagValues, args []string) error {
	switch flags.format {
	case graphFormatText, graphFormatJSON, graphFormatDot:
	default:
		return fmt.Errorf("unknown graph format %q (want text, json or dot)", flags.format)
	}

	ctx := cmd.Context()
	s, err := app.open(ctx, rootFlags, args)
	if err != nil {
		return err
	}
	parser, err := s.parser(0)
	if err != nil {
		return err
	}
	g, err := s.buildGraph(ctx, app.FS, parser)
	if err != nil {
		return err
	}

	paths := g.Paths()
	if flags.from != "" {
		from := graph.FromPath(flags.from)
		if g.Node(from) == nil {
			return fmt.Errorf("project %q is not part of the graph under %s", flags.from, s.root)
		}
		paths = append([]graph.ProjectPath{from}, graph.Walk(g, from)...)
		if flags.format == graphFormatText {
			fmt.Fprint(app.stdout, closureTree(g, from).String()+"\n")
			return nil
		}
	}

	switch flags.format {
	case graphFormatJSON:
		return writeGraphJSON(app.stdout, s.root, g, paths)
	case graphFormatDot:
		writeGraphDot(app.stdout, g, paths)
		return nil
	default:
		writeGraphText(app.stdout, g, paths)
		return nil
	}
}

func projectLabel(g *graph.Graph, p graph.ProjectPath) string {
	if g.Node(p).IsTestProject {
		return PathStyle.Render(p.String()) + " " + TestStyle.Render("(test)")
	}
	return PathStyle.Render(p.String())
}

// writeGraphText prints one tree per project: its dependencies, then the
// test projects that reference it.
func writeGraphText(w io.Writer, g *graph.Graph, paths []graph.ProjectPath) {
	for _, p := range paths {
		n := g.Node(p)
		t := tree.Root(projectLabel(g, p))
		if len(n.Dependencies) > 0 {
			deps := tree.Root(SubtitleStyle.Render("depends on"))
			for _, d := range n.Dependencies {
				deps.Child(PathStyle.Render(d.String()))
			}
			t.Child(deps)
		}
		if len(n.TestProjects) > 0 {
			tests := tree.Root(SubtitleStyle.Render("tested by"))
			for _, tp := range n.TestProjects {
				tests.Child(PathStyle.Render(tp.String()))
			}
			t.Child(tests)
		}
		fmt.Fprintln(w, t.String())
	}
}

// closureTree renders the walk from root as nested edges. Projects already
// shown elsewhere in the tree appear once more as a leaf marked "seen".
func closureTree(g *graph.Graph, root graph.ProjectPath) *tree.Tree {
	type frame struct {
		node  *tree.Tree
		edges []graph.ProjectPath
		next  int
	}

	top := tree.Root(projectLabel(g, root))
	seen := map[graph.ProjectPath]bool{root: true}
	stack := []*frame{{node: top, edges: g.Node(root).Edges()}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		if f.next == len(f.edges) {
			stack = stack[:len(stack)-1]
			continue
		}
		e := f.edges[f.next]
		f.next++
		if seen[e] {
			f.node.Child(projectLabel(g, e) + " " + SubtitleStyle.Render("(seen)"))
			continue
		}
		seen[e] = true
		child := tree.Root(projectLabel(g, e))
		f.node.Child(child)
		stack = append(stack, &frame{node: child, edges: g.Node(e).Edges()})
	}
	return top
}

func writeGraphJSON(w io.Writer, root string, g *graph.Graph, paths []graph.ProjectPath) error {
	out := graphJSON{Root: root, Projects: make([]graphNodeJSON, 0, len(paths))}
	for _, p := range paths {
		n := g.Node(p)
		node := graphNodeJSON{
			Path:         p.String(),
			IsTest:       n.IsTestProject,
			Dependencies: pathStrings(n.Dependencies),
			TestProjects: pathStrings(n.TestProjects),
		}
		if !n.IsTestProject {
			node.Closure = pathStrings(graph.Walk(g, p))
		}
		out.Projects = append(out.Projects, node)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// writeGraphDot prints a Graphviz digraph. Test projects are boxes and their
// references are dashed.
func writeGraphDot(w io.Writer, g *graph.Graph, paths []graph.ProjectPath) {
	var b strings.Builder
	b.WriteString("digraph slncrawl {\n")
	b.WriteString("  rankdir=LR;\n")
	for _, p := range paths {
		shape := "ellipse"
		if g.Node(p).IsTestProject {
			shape = "box"
		}
		fmt.Fprintf(&b, "  %q [shape=%s];\n", p.String(), shape)
	}
	for _, p := range paths {
		n := g.Node(p)
		attrs := ""
		if n.IsTestProject {
			attrs = " [style=dashed]"
		}
		for _, d := range n.Dependencies {
			if slices.Contains(paths, d) {
				fmt.Fprintf(&b, "  %q -> %q%s;\n", p.String(), d.String(), attrs)
			}
		}
	}
	b.WriteString("}\n")
	fmt.Fprint(w, b.String())
}

func pathStrings(paths []graph.ProjectPath) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = p.String()
	}
	return out
}
