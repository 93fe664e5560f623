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
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
)

// LayoutDirName and LayoutFileName locate the hidden per-project layout
// file storing node positions and metadata plus the entry id.
const (
	LayoutDirName  = ".novelmind"
	LayoutFileName = "storygraph.json"
)

// LayoutPath returns the layout file path for a project root.
func LayoutPath(projectRoot string) string {
	return filepath.Join(projectRoot, LayoutDirName, LayoutFileName)
}

type layoutNode struct {
	ID         string   `json:"id"`
	Type       string   `json:"type"`
	Title      string   `json:"title,omitempty"`
	X          float64  `json:"x"`
	Y          float64  `json:"y"`
	ScriptPath string   `json:"scriptPath,omitempty"`
	Speaker    string   `json:"speaker,omitempty"`
	Dialogue   string   `json:"dialogueText,omitempty"`
	Choices    []string `json:"choices,omitempty"`
}

type layoutEdge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type layoutFile struct {
	Entry string       `json:"entry,omitempty"`
	Nodes []layoutNode `json:"nodes"`
	Edges []layoutEdge `json:"edges"`
}

// SaveLayout writes the layout file transactionally.
func (g *Graph) SaveLayout(projectRoot string) error {
	lf := layoutFile{Nodes: []layoutNode{}, Edges: []layoutEdge{}}
	for _, n := range g.nodes {
		if n.Entry {
			lf.Entry = n.ID
		}
		lf.Nodes = append(lf.Nodes, layoutNode{
			ID: n.ID, Type: n.Type.String(), Title: n.Title,
			X: n.X, Y: n.Y, ScriptPath: n.ScriptPath,
			Speaker: n.Speaker, Dialogue: n.Dialogue, Choices: n.Choices,
		})
		for _, to := range g.out[n.ID] {
			lf.Edges = append(lf.Edges, layoutEdge{From: n.ID, To: to})
		}
	}
	data, err := json.MarshalIndent(lf, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal graph layout: %w", err)
	}
	data = append(data, '\n')
	path := LayoutPath(projectRoot)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create layout dir: %w", err)
	}
	temp := filepath.Join(filepath.Dir(path), fmt.Sprintf(".%s.tmp-%d-%d", LayoutFileName, os.Getpid(), rand.Int()))
	if err := os.WriteFile(temp, data, 0o644); err != nil {
		return fmt.Errorf("write temp layout: %w", err)
	}
	if err := os.Rename(temp, path); err != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("replace layout: %w", err)
	}
	return nil
}

// LoadLayout rebuilds the graph from the layout file. A missing file
// leaves the graph empty. Edges that would close a cycle are skipped and
// reported: the file is author-editable and must not poison the graph.
func (g *Graph) LoadLayout(projectRoot string) error {
	data, err := os.ReadFile(LayoutPath(projectRoot))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read graph layout: %w", err)
	}
	var lf layoutFile
	if err := json.Unmarshal(data, &lf); err != nil {
		return fmt.Errorf("parse graph layout: %w", err)
	}
	for _, ln := range lf.Nodes {
		n := &Node{
			ID: ln.ID, Type: ParseNodeType(ln.Type), Title: ln.Title,
			X: ln.X, Y: ln.Y, ScriptPath: ln.ScriptPath,
			Speaker: ln.Speaker, Dialogue: ln.Dialogue, Choices: ln.Choices,
		}
		if err := g.AddNode(n); err != nil {
			return fmt.Errorf("layout node %s: %w", ln.ID, err)
		}
	}
	for _, le := range lf.Edges {
		if err := g.Connect(le.From, le.To); err != nil && g.reporter != nil {
			g.reporter.ReportGraphError(fmt.Sprintf("layout edge %s->%s dropped: %v", le.From, le.To, err))
		}
	}
	if lf.Entry != "" {
		if err := g.SetEntry(lf.Entry); err != nil && g.reporter != nil {
			g.reporter.ReportGraphError(fmt.Sprintf("layout entry %s dropped: %v", lf.Entry, err))
		}
	}
	return nil
}
