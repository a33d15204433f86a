// SPDX-License-Identifier: MPL-2.0

// Package project parses MSBuild project descriptors into the two facts the
// crawler cares about: the descriptors they reference and whether they are
// test projects.
package project

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
)

// DefaultTestMarker is the package whose reference marks a test project.
const DefaultTestMarker = "Microsoft.NET.Test.Sdk"

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

type (
	// Descriptor holds what a project file says about its relationships.
	Descriptor struct {
		// References are the raw Include values of ProjectReference items,
		// in declaration order.
		References []string
		// IsTest reports whether a PackageReference names a test marker.
		IsTest bool
	}

	// Parser turns descriptor content into a Descriptor. Implementations
	// must be safe for concurrent use.
	Parser interface {
		Parse(path string, content []byte) (*Descriptor, error)
	}

	// XMLParser is the Parser used for *.csproj files.
	XMLParser struct {
		markers []string
	}

	// Option configures an XMLParser.
	Option func(*XMLParser)

	// SyntaxError is returned when the content is not a well-formed project.
	SyntaxError struct {
		Path string
		Err  error
	}

	// MissingAttributeError is returned for a ProjectReference without Include.
	MissingAttributeError struct {
		Path    string
		Element string
		Attr    string
	}

	projectXML struct {
		XMLName    xml.Name       `xml:"Project"`
		ItemGroups []itemGroupXML `xml:"ItemGroup"`
	}

	itemGroupXML struct {
		ProjectReferences []includeXML `xml:"ProjectReference"`
		PackageReferences []includeXML `xml:"PackageReference"`
	}

	includeXML struct {
		Include *string `xml:"Include,attr"`
	}
)

// Error implements the error interface.
func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s: malformed project descriptor: %v", e.Path, e.Err)
}

// Unwrap returns the decoder error.
func (e *SyntaxError) Unwrap() error {
	return e.Err
}

// Error implements the error interface.
func (e *MissingAttributeError) Error() string {
	return fmt.Sprintf("%s: %s is missing the %s attribute", e.Path, e.Element, e.Attr)
}

// WithTestMarkers replaces the package names that mark a test project.
// Empty names are ignored; an empty list keeps the default.
func WithTestMarkers(markers ...string) Option {
	return func(p *XMLParser) {
		var cleaned []string
		for _, m := range markers {
			if m = strings.TrimSpace(m); m != "" {
				cleaned = append(cleaned, m)
			}
		}
		if len(cleaned) > 0 {
			p.markers = cleaned
		}
	}
}

// NewXMLParser creates a descriptor parser.
func NewXMLParser(opts ...Option) *XMLParser {
	p := &XMLParser{markers: []string{DefaultTestMarker}}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Markers returns the configured test markers.
func (p *XMLParser) Markers() []string {
	return slices.Clone(p.markers)
}

// Parse decodes a project descriptor.
func (p *XMLParser) Parse(path string, content []byte) (*Descriptor, error) {
	content = bytes.TrimPrefix(content, utf8BOM)

	var doc projectXML
	dec := xml.NewDecoder(bytes.NewReader(content))
	dec.CharsetReader = passthroughCharset
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			err = errors.New("empty document")
		}
		return nil, &SyntaxError{Path: path, Err: err}
	}

	d := &Descriptor{}
	for _, group := range doc.ItemGroups {
		for _, ref := range group.ProjectReferences {
			if ref.Include == nil || strings.TrimSpace(*ref.Include) == "" {
				return nil, &MissingAttributeError{Path: path, Element: "ProjectReference", Attr: "Include"}
			}
			d.References = append(d.References, strings.TrimSpace(*ref.Include))
		}
		for _, pkg := range group.PackageReferences {
			if pkg.Include != nil && p.isMarker(*pkg.Include) {
				d.IsTest = true
			}
		}
	}
	return d, nil
}

func (p *XMLParser) isMarker(include string) bool {
	include = strings.TrimSpace(include)
	return slices.ContainsFunc(p.markers, func(m string) bool {
		return strings.EqualFold(m, include)
	})
}

// passthroughCharset accepts the encodings Visual Studio writes. Project
// files only carry ASCII in the attributes read here.
func passthroughCharset(label string, input io.Reader) (io.Reader, error) {
	switch strings.ToLower(label) {
	case "utf-8", "utf8", "us-ascii", "ascii", "windows-1252", "iso-8859-1":
		return input, nil
	default:
		return nil, fmt.Errorf("unsupported charset %q", label)
	}
}
