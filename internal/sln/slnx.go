// SPDX-License-Identifier: MPL-2.0

package sln

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path"
	"slices"
	"strings"
)

// ExtensionXML is the file extension of XML solution files.
const ExtensionXML = ".slnx"

type (
	slnxDocument struct {
		XMLName  xml.Name      `xml:"Solution"`
		Projects []slnxProject `xml:"Project"`
		Folders  []slnxFolder  `xml:"Folder"`
	}

	slnxFolder struct {
		Name     string        `xml:"Name,attr"`
		Projects []slnxProject `xml:"Project"`
		Folders  []slnxFolder  `xml:"Folder"`
	}

	slnxProject struct {
		Path string `xml:"Path,attr"`
		Type string `xml:"Type,attr"`
		ID   string `xml:"Id,attr"`
	}
)

// ParseXML reads an XML (.slnx) solution from r. Projects nested in
// folders are flattened in document order; folders themselves are not
// listed since they carry no project path.
func ParseXML(r io.Reader) (*Solution, error) {
	var doc slnxDocument
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		var syntaxErr *xml.SyntaxError
		if errors.As(err, &syntaxErr) {
			return nil, &ParseError{Line: syntaxErr.Line, Msg: "malformed solution XML", Text: syntaxErr.Msg}
		}
		if errors.Is(err, io.EOF) {
			return nil, &ParseError{Msg: "empty solution XML"}
		}
		return nil, fmt.Errorf("read solution: %w", err)
	}

	s := &Solution{}
	if err := s.addXMLProjects(doc.Projects); err != nil {
		return nil, err
	}
	stack := append([]slnxFolder(nil), doc.Folders...)
	for len(stack) > 0 {
		f := stack[0]
		stack = stack[1:]
		if err := s.addXMLProjects(f.Projects); err != nil {
			return nil, err
		}
		stack = slices.Concat(f.Folders, stack)
	}
	return s, nil
}

func (s *Solution) addXMLProjects(projects []slnxProject) error {
	for _, p := range projects {
		if strings.TrimSpace(p.Path) == "" {
			return &ParseError{Msg: "project without Path attribute"}
		}
		rel := path.Clean(strings.ReplaceAll(p.Path, `\`, "/"))
		base := path.Base(rel)
		s.Projects = append(s.Projects, &Project{
			TypeID: p.Type,
			Name:   strings.TrimSuffix(base, path.Ext(base)),
			Path:   rel,
			ID:     strings.ToUpper(strings.Trim(p.ID, "{}")),
		})
	}
	return nil
}

// ParseFile reads r with the parser matching name's extension.
func ParseFile(name string, r io.Reader) (*Solution, error) {
	if strings.EqualFold(path.Ext(name), ExtensionXML) {
		return ParseXML(r)
	}
	return Parse(r)
}
