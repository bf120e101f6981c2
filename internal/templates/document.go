// Package templates implements whole-line tag substitution for firmware
// configuration templates.
//
// A template is an ordered sequence of lines. A line may carry one tag token of
// the form #{NAME}; rendering replaces every tagged line that has a binding with
// a generated preprocessor definition and copies every other line unchanged:
//
//	#define MOTHERBOARD BOARD_RAMPS_14_EFB
//	#{BAUDRATE}            ->   #define BAUDRATE 250000
//	#{SDSUPPORT}           ->   //#define SDSUPPORT
//
// Rendering is pure: it never mutates the document or the options it reads.
package templates

import (
	"fmt"
	"io/fs"
	"regexp"
	"slices"
	"strings"
)

var tagPattern = regexp.MustCompile(`#\{[^{}\s]+\}`)

// Tag returns the tag token for a name, e.g. Tag("BAUDRATE") == "#{BAUDRATE}".
func Tag(name string) string { return "#{" + name + "}" }

// validTagName reports whether Tag(name) is a token FindTag can match.
func validTagName(name string) bool {
	tok := Tag(name)
	return tagPattern.FindString(tok) == tok
}

// FindTag returns the tag token contained in line, if any.
func FindTag(line string) (string, bool) {
	tok := tagPattern.FindString(line)
	return tok, tok != ""
}

// Document is an immutable template: an ordered list of lines.
type Document struct {
	name  string
	lines []string
}

// ParseDocument splits text into lines. A trailing newline does not produce an
// extra empty line, and carriage returns are preserved as line content.
func ParseDocument(name, text string) *Document {
	if text == "" {
		return &Document{name: name}
	}
	lines := strings.Split(text, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return &Document{name: name, lines: lines}
}

// LoadDocument reads a template from fsys.
func LoadDocument(fsys fs.FS, name string) (*Document, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("read template %s: %w", name, err)
	}
	return ParseDocument(name, string(data)), nil
}

func (d *Document) Name() string { return d.name }
func (d *Document) Len() int     { return len(d.lines) }

// Lines returns a copy of the document lines.
func (d *Document) Lines() []string { return slices.Clone(d.lines) }

// Tags returns the distinct tag tokens in order of first appearance.
func (d *Document) Tags() []string {
	var tags []string
	seen := make(map[string]bool)
	for _, line := range d.lines {
		if tok, ok := FindTag(line); ok && !seen[tok] {
			seen[tok] = true
			tags = append(tags, tok)
		}
	}
	return tags
}
