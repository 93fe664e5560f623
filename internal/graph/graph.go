/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package graph implements the story graph: an acyclic directed graph of
// script scenes whose outgoing edges are projected back into script source
// as regenerable blocks.
package graph

import (
	"fmt"
	"sort"

	"novelmind/internal/diag"
	"novelmind/internal/event"
)

// NodeType classifies story nodes.
type NodeType int

const (
	SceneNode NodeType = iota
	DialogueNode
	ChoiceNode
	EndNode
)

func (t NodeType) String() string {
	switch t {
	case DialogueNode:
		return "dialogue"
	case ChoiceNode:
		return "choice"
	case EndNode:
		return "end"
	}
	return "scene"
}

// ParseNodeType reads the textual form used in the layout file.
func ParseNodeType(s string) NodeType {
	switch s {
	case "dialogue":
		return DialogueNode
	case "choice":
		return ChoiceNode
	case "end":
		return EndNode
	}
	return SceneNode
}

// Node is a story-graph vertex. The numeric id is dense and assigned
// monotonically; the string id is stable across renames and used for
// persistence and cross-references.
type Node struct {
	NumID      uint64
	ID         string
	Type       NodeType
	Title      string
	X, Y       float64
	ScriptPath string
	Speaker    string
	Dialogue   string
	Choices    []string
	Entry      bool
	Breakpoint bool
	Executing  bool
}

// Edge is a directed transition between two nodes, by string id.
type Edge struct {
	From, To string
}

// NodeEvent is the bus payload of graph node events.
type NodeEvent struct {
	NodeID string
}

// EdgeEvent is the bus payload of graph edge events.
type EdgeEvent struct {
	From, To string
}

// Graph holds nodes and edges and enforces acyclicity on insertion.
// Not safe for concurrent use; all edits happen on the UI goroutine.
type Graph struct {
	nodes  []*Node
	index  map[string]*Node
	out    map[string][]string // adjacency, insertion-ordered
	in     map[string][]string
	nextID uint64

	bus      *event.Bus
	reporter *diag.Reporter

	// onStructureChanged fires after any node/edge mutation, so the
	// layout file and script projection stay current.
	onStructureChanged []func()
}

// New creates an empty graph. bus and reporter may be nil in tests.
func New(bus *event.Bus, reporter *diag.Reporter) *Graph {
	return &Graph{
		index: make(map[string]*Node),
		out:   make(map[string][]string),
		in:    make(map[string][]string),
		bus:   bus, reporter: reporter,
	}
}

// OnStructureChanged registers a callback fired after any mutation.
func (g *Graph) OnStructureChanged(fn func()) {
	g.onStructureChanged = append(g.onStructureChanged, fn)
}

// AddNode inserts a node under a fresh numeric id. The string id must be
// unique.
func (g *Graph) AddNode(n *Node) error {
	if n.ID == "" {
		return fmt.Errorf("node id is required")
	}
	if _, dup := g.index[n.ID]; dup {
		return fmt.Errorf("duplicate node id %q", n.ID)
	}
	if n.Entry {
		if prev := g.EntryNode(); prev != nil {
			prev.Entry = false
		}
	}
	g.nextID++
	n.NumID = g.nextID
	g.nodes = append(g.nodes, n)
	g.index[n.ID] = n
	g.emit(event.GraphNodeAdded, NodeEvent{NodeID: n.ID})
	g.structureChanged()
	return nil
}

// RemoveNode deletes a node and all edges touching it. The removed node
// and its edges are returned so a delete command can restore them.
func (g *Graph) RemoveNode(id string) (*Node, []Edge, bool) {
	n, ok := g.index[id]
	if !ok {
		return nil, nil, false
	}
	var removed []Edge
	for _, to := range g.out[id] {
		removed = append(removed, Edge{From: id, To: to})
		g.in[to] = remove(g.in[to], id)
	}
	for _, from := range g.in[id] {
		removed = append(removed, Edge{From: from, To: id})
		g.out[from] = remove(g.out[from], id)
	}
	delete(g.out, id)
	delete(g.in, id)
	delete(g.index, id)
	for i, e := range g.nodes {
		if e.ID == id {
			g.nodes = append(g.nodes[:i], g.nodes[i+1:]...)
			break
		}
	}
	g.emit(event.GraphNodeRemoved, NodeEvent{NodeID: id})
	g.structureChanged()
	return n, removed, true
}

// Node returns the node for a string id.
func (g *Graph) Node(id string) (*Node, bool) {
	n, ok := g.index[id]
	return n, ok
}

// Nodes returns all nodes in insertion order.
func (g *Graph) Nodes() []*Node { return append([]*Node(nil), g.nodes...) }

// Edges returns all edges, ordered by from-node insertion then edge
// insertion.
func (g *Graph) Edges() []Edge {
	var out []Edge
	for _, n := range g.nodes {
		for _, to := range g.out[n.ID] {
			out = append(out, Edge{From: n.ID, To: to})
		}
	}
	return out
}

// Targets returns the outgoing edge targets of a node in insertion order.
func (g *Graph) Targets(id string) []string { return append([]string(nil), g.out[id]...) }

// HasEdge reports whether from→to exists.
func (g *Graph) HasEdge(from, to string) bool {
	for _, t := range g.out[from] {
		if t == to {
			return true
		}
	}
	return false
}

// WouldCreateCycle reports whether inserting from→to closes a cycle:
// a depth-first reachability search from to looking for from.
func (g *Graph) WouldCreateCycle(from, to string) bool {
	if from == to {
		return true
	}
	seen := make(map[string]bool)
	var dfs func(id string) bool
	dfs = func(id string) bool {
		if id == from {
			return true
		}
		if seen[id] {
			return false
		}
		seen[id] = true
		for _, next := range g.out[id] {
			if dfs(next) {
				return true
			}
		}
		return false
	}
	return dfs(to)
}

// Connect inserts the edge from→to. Duplicate edges, unknown nodes and
// edges that would close a cycle are rejected; cycle attempts publish a
// Graph diagnostic.
func (g *Graph) Connect(from, to string) error {
	if _, ok := g.index[from]; !ok {
		return fmt.Errorf("unknown node %q", from)
	}
	if _, ok := g.index[to]; !ok {
		return fmt.Errorf("unknown node %q", to)
	}
	if g.HasEdge(from, to) {
		return fmt.Errorf("edge %s->%s already exists", from, to)
	}
	if g.WouldCreateCycle(from, to) {
		msg := fmt.Sprintf("connecting %s to %s would create a cycle", from, to)
		if g.reporter != nil {
			g.reporter.ReportGraphError(msg)
		}
		return fmt.Errorf("%s", msg)
	}
	g.out[from] = append(g.out[from], to)
	g.in[to] = append(g.in[to], from)
	g.emit(event.GraphEdgeAdded, EdgeEvent{From: from, To: to})
	g.structureChanged()
	return nil
}

// Disconnect removes the edge from→to; reports whether it existed.
func (g *Graph) Disconnect(from, to string) bool {
	if !g.HasEdge(from, to) {
		return false
	}
	g.out[from] = remove(g.out[from], to)
	g.in[to] = remove(g.in[to], from)
	g.emit(event.GraphEdgeRemoved, EdgeEvent{From: from, To: to})
	g.structureChanged()
	return true
}

// MoveNode updates a node's screen position.
func (g *Graph) MoveNode(id string, x, y float64) bool {
	n, ok := g.index[id]
	if !ok {
		return false
	}
	n.X, n.Y = x, y
	g.emit(event.GraphNodeMoved, NodeEvent{NodeID: id})
	g.structureChanged()
	return true
}

// EntryNode returns the single entry node, nil when unset.
func (g *Graph) EntryNode() *Node {
	for _, n := range g.nodes {
		if n.Entry {
			return n
		}
	}
	return nil
}

// SetEntry marks id as the entry node, clearing the previous one.
func (g *Graph) SetEntry(id string) error {
	n, ok := g.index[id]
	if !ok {
		return fmt.Errorf("unknown node %q", id)
	}
	if prev := g.EntryNode(); prev != nil {
		if prev == n {
			return nil
		}
		prev.Entry = false
	}
	n.Entry = true
	g.emit(event.GraphEntryChanged, NodeEvent{NodeID: id})
	g.structureChanged()
	return nil
}

// DetectCycles returns all simple cycles of the current graph. The
// insertion guard keeps the graph acyclic, so a non-empty result means a
// layout file was tampered with.
func (g *Graph) DetectCycles() [][]string {
	var cycles [][]string
	state := make(map[string]int) // 0 unvisited, 1 on stack, 2 done
	var stack []string
	var dfs func(id string)
	dfs = func(id string) {
		state[id] = 1
		stack = append(stack, id)
		for _, next := range g.out[id] {
			switch state[next] {
			case 0:
				dfs(next)
			case 1:
				for i, s := range stack {
					if s == next {
						cycles = append(cycles, append([]string(nil), stack[i:]...))
						break
					}
				}
			}
		}
		stack = stack[:len(stack)-1]
		state[id] = 2
	}
	for _, n := range g.nodes {
		if state[n.ID] == 0 {
			dfs(n.ID)
		}
	}
	return cycles
}

// FindUnreachableNodes returns ids not reachable from any entry node,
// sorted for stable reporting. With no entry set, every node is
// unreachable.
func (g *Graph) FindUnreachableNodes() []string {
	reached := make(map[string]bool)
	var walk func(id string)
	walk = func(id string) {
		if reached[id] {
			return
		}
		reached[id] = true
		for _, next := range g.out[id] {
			walk(next)
		}
	}
	for _, n := range g.nodes {
		if n.Entry {
			walk(n.ID)
		}
	}
	var out []string
	for _, n := range g.nodes {
		if !reached[n.ID] {
			out = append(out, n.ID)
		}
	}
	sort.Strings(out)
	return out
}

func (g *Graph) emit(kind event.Kind, data any) {
	if g.bus != nil {
		g.bus.Emit(kind, "graph", data)
	}
}

func (g *Graph) structureChanged() {
	for _, fn := range g.onStructureChanged {
		fn()
	}
}

func remove(list []string, v string) []string {
	for i, e := range list {
		if e == v {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}
