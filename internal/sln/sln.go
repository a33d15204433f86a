// SPDX-License-Identifier: MPL-2.0

// Package sln reads Visual Studio solution files far enough to list the
// projects they contain and their configuration mappings.
package sln

import (
	"bufio"
	"fmt"
	"io"
	"path"
	"regexp"
	"slices"
	"strings"
)

// SolutionFolderType is the project type GUID of virtual solution folders.
const SolutionFolderType = "2150E333-8FDC-42A3-9474-1A3956D46DE8"

var (
	projectLine = regexp.MustCompile(`^Project\("\{([^}]+)\}"\) = "([^"]+)", "([^"]+)", "\{([^}]+)\}"\s*$`)
	configLine  = regexp.MustCompile(`^\s*\{([^}]+)\}`)
)

type (
	// Project is one Project ... EndProject block.
	Project struct {
		TypeID string
		Name   string
		// Path is the project location relative to the solution, with
		// forward slashes.
		Path string
		ID   string
		// Body holds the lines between the header and EndProject.
		Body []string
		// Configurations are the ProjectConfigurationPlatforms entries for
		// this project, with its ID replaced by a stable token.
		Configurations []string
	}

	// Solution is a parsed solution file.
	Solution struct {
		Projects []*Project
		// Other holds every line not belonging to a project block or a
		// project configuration entry, with version markers dropped.
		Other []string
	}

	// ParseError reports an unreadable line.
	ParseError struct {
		Line int
		Text string
		Msg  string
	}
)

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %s: %q", e.Line, e.Msg, e.Text)
}

// Parse reads a solution from r.
func Parse(r io.Reader) (*Solution, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	s := &Solution{}
	byID := map[string]*Project{}
	var (
		lineNo     int
		current    *Project
		inConfigs  bool
		firstToken = true
	)

	for sc.Scan() {
		lineNo++
		line := strings.TrimRight(sc.Text(), "\r")
		if firstToken {
			line = strings.TrimPrefix(line, "\ufeff")
			firstToken = false
		}
		trimmed := strings.TrimSpace(line)

		switch {
		case current != nil:
			if trimmed == "EndProject" {
				current = nil
				continue
			}
			current.Body = append(current.Body, line)

		case inConfigs:
			if trimmed == "EndGlobalSection" {
				inConfigs = false
				s.Other = append(s.Other, line)
				continue
			}
			m := configLine.FindStringSubmatch(line)
			if m == nil {
				return nil, &ParseError{Line: lineNo, Text: line, Msg: "malformed project configuration"}
			}
			p, ok := byID[strings.ToUpper(m[1])]
			if !ok {
				return nil, &ParseError{Line: lineNo, Text: line, Msg: "configuration for unknown project"}
			}
			p.Configurations = append(p.Configurations, tokenize(trimmed, p))

		case strings.HasPrefix(trimmed, "# Visual Studio Version"), strings.HasPrefix(trimmed, "VisualStudioVersion ="):
			continue

		case strings.HasPrefix(line, "Project("):
			m := projectLine.FindStringSubmatch(line)
			if m == nil {
				return nil, &ParseError{Line: lineNo, Text: line, Msg: "malformed project header"}
			}
			current = &Project{
				TypeID: strings.ToUpper(m[1]),
				Name:   m[2],
				Path:   path.Clean(strings.ReplaceAll(m[3], `\`, "/")),
				ID:     strings.ToUpper(m[4]),
			}
			byID[current.ID] = current
			s.Projects = append(s.Projects, current)

		case strings.HasPrefix(trimmed, "GlobalSection(ProjectConfigurationPlatforms)"):
			inConfigs = true
			s.Other = append(s.Other, line)

		default:
			s.Other = append(s.Other, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read solution: %w", err)
	}
	if current != nil {
		return nil, &ParseError{Line: lineNo, Text: current.Name, Msg: "project block without EndProject"}
	}
	return s, nil
}

// ProjectPaths returns the sorted paths of every non-folder project.
func (s *Solution) ProjectPaths() []string {
	var paths []string
	for _, p := range s.Projects {
		if p.IsFolder() {
			continue
		}
		paths = append(paths, p.Path)
	}
	slices.Sort(paths)
	return paths
}

// IsFolder reports whether p is a solution folder rather than a project.
func (p *Project) IsFolder() bool {
	return p.TypeID == SolutionFolderType
}

// Token returns the placeholder used for p's ID in Configurations.
func (p *Project) Token() string {
	return "%" + p.Name + "_INTERNAL_ID%"
}

func tokenize(s string, p *Project) string {
	re := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(p.ID))
	return re.ReplaceAllLiteralString(s, p.Token())
}
