/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package graph

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
)

// Markers delimiting the regenerable transition block inside a scene body.
const (
	MarkerBegin = "// @graph-begin"
	MarkerEnd   = "// @graph-end"
)

// GenerateBlock renders the transition lines for a node's outgoing edges,
// without markers and without indentation.
func GenerateBlock(targets []string) []string {
	switch len(targets) {
	case 0:
		return []string{"// (no outgoing transitions)"}
	case 1:
		return []string{"goto " + targets[0]}
	}
	lines := []string{"choice {"}
	for _, t := range targets {
		lines = append(lines, fmt.Sprintf("    %q -> goto %s;", t, t))
	}
	lines = append(lines, "}")
	return lines
}

// ProjectNode regenerates the marker-delimited block inside
// `scene <nodeID> { … }` of source from the given targets. Surrounding
// code is preserved; if the markers are absent they are inserted before
// the scene's closing brace. The scan is textual but respects string
// literals, escapes, line comments and block comments, so braces inside
// any of those never unbalance the search.
func ProjectNode(source, nodeID string, targets []string) (string, error) {
	open, close_, err := findSceneBody(source, nodeID)
	if err != nil {
		return "", err
	}
	body := source[open+1 : close_]
	beginStart, beginEnd, endStart, found, err := findMarkers(body)
	if err != nil {
		return "", fmt.Errorf("scene %s: %w", nodeID, err)
	}

	if found {
		indent := lineIndent(body, beginStart)
		var sb strings.Builder
		sb.WriteString(body[:beginEnd])
		sb.WriteString("\n")
		for _, ln := range GenerateBlock(targets) {
			sb.WriteString(indent)
			sb.WriteString(ln)
			sb.WriteString("\n")
		}
		sb.WriteString(indent)
		sb.WriteString(body[endStart:])
		return source[:open+1] + sb.String() + source[close_:], nil
	}

	// No markers: insert a fresh block before the closing brace.
	closeIndent := lineIndent(source, close_)
	indent := closeIndent + "    "
	var sb strings.Builder
	sb.WriteString(strings.TrimRight(body, " \t"))
	if !strings.HasSuffix(sb.String(), "\n") {
		sb.WriteString("\n")
	}
	sb.WriteString(indent)
	sb.WriteString(MarkerBegin)
	sb.WriteString("\n")
	for _, ln := range GenerateBlock(targets) {
		sb.WriteString(indent)
		sb.WriteString(ln)
		sb.WriteString("\n")
	}
	sb.WriteString(indent)
	sb.WriteString(MarkerEnd)
	sb.WriteString("\n")
	sb.WriteString(closeIndent)
	return source[:open+1] + sb.String() + source[close_:], nil
}

// UpdateScript rewrites one node's transition block in its script file.
func (g *Graph) UpdateScript(projectRoot string, n *Node) error {
	if n.ScriptPath == "" {
		return nil
	}
	path := n.ScriptPath
	if !filepath.IsAbs(path) {
		path = filepath.Join(projectRoot, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read script %s: %w", n.ScriptPath, err)
	}
	updated, err := ProjectNode(string(data), n.ID, g.Targets(n.ID))
	if err != nil {
		return fmt.Errorf("project node %s: %w", n.ID, err)
	}
	if updated == string(data) {
		return nil
	}
	temp := filepath.Join(filepath.Dir(path), fmt.Sprintf(".%s.tmp-%d-%d", filepath.Base(path), os.Getpid(), rand.Int()))
	if err := os.WriteFile(temp, []byte(updated), 0o644); err != nil {
		return fmt.Errorf("write temp script: %w", err)
	}
	if err := os.Rename(temp, path); err != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("replace script: %w", err)
	}
	return nil
}

// scanState tracks the lexical mode of the textual scanner.
type scanState int

const (
	inCode scanState = iota
	inString
	inChar
	inLineComment
	inBlockComment
)

// findSceneBody locates the `{` opening `scene <id> { … }` and its
// matching closing brace, both as byte offsets into src.
func findSceneBody(src, id string) (open, close_ int, err error) {
	i := 0
	n := len(src)
	state := inCode
	for i < n {
		c := src[i]
		switch state {
		case inString:
			if c == '\\' {
				i += 2
				continue
			}
			if c == '"' {
				state = inCode
			}
		case inChar:
			if c == '\\' {
				i += 2
				continue
			}
			if c == '\'' {
				state = inCode
			}
		case inLineComment:
			if c == '\n' {
				state = inCode
			}
		case inBlockComment:
			if c == '*' && i+1 < n && src[i+1] == '/' {
				state = inCode
				i += 2
				continue
			}
		case inCode:
			switch {
			case c == '"':
				state = inString
			case c == '\'':
				state = inChar
			case c == '/' && i+1 < n && src[i+1] == '/':
				state = inLineComment
				i += 2
				continue
			case c == '/' && i+1 < n && src[i+1] == '*':
				state = inBlockComment
				i += 2
				continue
			case isWordStart(c):
				start := i
				for i < n && isWordChar(src[i]) {
					i++
				}
				if src[start:i] == "scene" {
					if o, ok := matchSceneHeader(src, i, id); ok {
						c2, err := matchingBrace(src, o)
						if err != nil {
							return 0, 0, err
						}
						return o, c2, nil
					}
				}
				continue
			}
		}
		i++
	}
	return 0, 0, fmt.Errorf("scene %q not found", id)
}

// matchSceneHeader checks that the text after the `scene` keyword is the
// wanted id followed by `{`, and returns the brace offset.
func matchSceneHeader(src string, i int, id string) (int, bool) {
	n := len(src)
	for i < n && (src[i] == ' ' || src[i] == '\t') {
		i++
	}
	start := i
	for i < n && isWordChar(src[i]) {
		i++
	}
	if src[start:i] != id {
		return 0, false
	}
	for i < n && (src[i] == ' ' || src[i] == '\t' || src[i] == '\r' || src[i] == '\n') {
		i++
	}
	if i < n && src[i] == '{' {
		return i, true
	}
	return 0, false
}

// matchingBrace returns the offset of the brace closing src[open] == '{',
// skipping braces inside strings and comments.
func matchingBrace(src string, open int) (int, error) {
	depth := 0
	state := inCode
	n := len(src)
	i := open
	for i < n {
		c := src[i]
		switch state {
		case inString:
			if c == '\\' {
				i += 2
				continue
			}
			if c == '"' {
				state = inCode
			}
		case inChar:
			if c == '\\' {
				i += 2
				continue
			}
			if c == '\'' {
				state = inCode
			}
		case inLineComment:
			if c == '\n' {
				state = inCode
			}
		case inBlockComment:
			if c == '*' && i+1 < n && src[i+1] == '/' {
				state = inCode
				i += 2
				continue
			}
		case inCode:
			switch {
			case c == '"':
				state = inString
			case c == '\'':
				state = inChar
			case c == '/' && i+1 < n && src[i+1] == '/':
				state = inLineComment
				i += 2
				continue
			case c == '/' && i+1 < n && src[i+1] == '*':
				state = inBlockComment
				i += 2
				continue
			case c == '{':
				depth++
			case c == '}':
				depth--
				if depth == 0 {
					return i, nil
				}
			}
		}
		i++
	}
	return 0, fmt.Errorf("unbalanced braces")
}

// findMarkers locates the begin/end marker comments within a scene body.
// beginStart/beginEnd delimit the begin marker text, endStart is the
// start of the end marker. Both markers must be present, begin first.
func findMarkers(body string) (beginStart, beginEnd, endStart int, found bool, err error) {
	beginStart, beginEnd = findMarkerComment(body, 0, MarkerBegin)
	es, _ := findMarkerComment(body, 0, MarkerEnd)
	if beginStart < 0 && es < 0 {
		return 0, 0, 0, false, nil
	}
	if beginStart < 0 || es < 0 {
		return 0, 0, 0, false, fmt.Errorf("unpaired projection marker")
	}
	if es < beginStart {
		return 0, 0, 0, false, fmt.Errorf("projection markers out of order")
	}
	return beginStart, beginEnd, es, true, nil
}

// findMarkerComment scans for a line comment whose text equals marker,
// ignoring occurrences inside strings or block comments. Returns the
// offsets of the comment start and end, or (-1, -1).
func findMarkerComment(src string, from int, marker string) (int, int) {
	state := inCode
	n := len(src)
	i := from
	for i < n {
		c := src[i]
		switch state {
		case inString:
			if c == '\\' {
				i += 2
				continue
			}
			if c == '"' {
				state = inCode
			}
		case inChar:
			if c == '\\' {
				i += 2
				continue
			}
			if c == '\'' {
				state = inCode
			}
		case inBlockComment:
			if c == '*' && i+1 < n && src[i+1] == '/' {
				state = inCode
				i += 2
				continue
			}
		case inCode:
			switch {
			case c == '"':
				state = inString
			case c == '\'':
				state = inChar
			case c == '/' && i+1 < n && src[i+1] == '/':
				start := i
				end := strings.IndexByte(src[i:], '\n')
				if end < 0 {
					end = n
				} else {
					end += i
				}
				if strings.TrimSpace(src[start:end]) == marker {
					return start, end
				}
				i = end
				continue
			case c == '/' && i+1 < n && src[i+1] == '*':
				state = inBlockComment
				i += 2
				continue
			}
		}
		i++
	}
	return -1, -1
}

// lineIndent returns the leading whitespace of the line containing pos.
func lineIndent(src string, pos int) string {
	start := strings.LastIndexByte(src[:pos], '\n') + 1
	end := start
	for end < len(src) && (src[end] == ' ' || src[end] == '\t') {
		end++
	}
	return src[start:end]
}

func isWordStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isWordChar(c byte) bool {
	return isWordStart(c) || (c >= '0' && c <= '9')
}
