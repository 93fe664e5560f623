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
	"strings"
	"testing"

	"novelmind/internal/diag"
	"novelmind/internal/event"
	"novelmind/internal/undo"
)

func chain(t *testing.T, reporter *diag.Reporter, ids ...string) *Graph {
	t.Helper()
	g := New(event.NewBus(), reporter)
	for _, id := range ids {
		if err := g.AddNode(&Node{ID: id, Type: SceneNode}); err != nil {
			t.Fatalf("AddNode(%s): %v", id, err)
		}
	}
	for i := 0; i+1 < len(ids); i++ {
		if err := g.Connect(ids[i], ids[i+1]); err != nil {
			t.Fatalf("Connect(%s,%s): %v", ids[i], ids[i+1], err)
		}
	}
	return g
}

func TestConnectRejectsCycleAndReportsDiagnostic(t *testing.T) {
	reporter := diag.NewReporter()
	g := chain(t, reporter, "A", "B", "C", "D")

	err := g.Connect("D", "A")
	if err == nil {
		t.Fatalf("expected cycle rejection")
	}
	if got := len(g.Edges()); got != 3 {
		t.Fatalf("edge added despite rejection: %d edges", got)
	}
	var msg string
	for _, d := range reporter.All() {
		if d.Category == diag.Graph {
			msg = d.Message
		}
	}
	if msg == "" {
		t.Fatalf("no graph diagnostic reported")
	}
	for _, want := range []string{"cycle", "A", "D"} {
		if !strings.Contains(msg, want) {
			t.Fatalf("diagnostic %q missing %q", msg, want)
		}
	}
	if cycles := g.DetectCycles(); len(cycles) != 0 {
		t.Fatalf("graph should remain acyclic, got %v", cycles)
	}
}

func TestConnectRejectsDuplicatesAndSelfLoop(t *testing.T) {
	g := chain(t, nil, "A", "B")
	if err := g.Connect("A", "B"); err == nil {
		t.Fatalf("duplicate edge accepted")
	}
	if err := g.Connect("A", "A"); err == nil {
		t.Fatalf("self loop accepted")
	}
	if err := g.Connect("A", "missing"); err == nil {
		t.Fatalf("edge to unknown node accepted")
	}
}

func TestEntryNodeUniqueness(t *testing.T) {
	g := chain(t, nil, "A", "B")
	if err := g.SetEntry("A"); err != nil {
		t.Fatalf("SetEntry(A): %v", err)
	}
	if err := g.SetEntry("B"); err != nil {
		t.Fatalf("SetEntry(B): %v", err)
	}
	if e := g.EntryNode(); e == nil || e.ID != "B" {
		t.Fatalf("entry should move to B, got %v", e)
	}
	n, _ := g.Node("A")
	if n.Entry {
		t.Fatalf("A still flagged as entry")
	}
}

func TestFindUnreachableNodes(t *testing.T) {
	g := chain(t, nil, "A", "B")
	if err := g.AddNode(&Node{ID: "orphan", Type: DialogueNode}); err != nil {
		t.Fatalf("AddNode: %v", err)
	}
	if err := g.SetEntry("A"); err != nil {
		t.Fatalf("SetEntry: %v", err)
	}
	un := g.FindUnreachableNodes()
	if len(un) != 1 || un[0] != "orphan" {
		t.Fatalf("want [orphan], got %v", un)
	}
}

func TestDeleteNodeCommandRestoresEdges(t *testing.T) {
	g := chain(t, nil, "A", "B", "C")
	um := undo.NewManager(100)

	if err := um.Push(&DeleteNodeCommand{Graph: g, NodeID: "B"}); err != nil {
		t.Fatalf("Push: %v", err)
	}
	if _, ok := g.Node("B"); ok {
		t.Fatalf("B should be gone")
	}
	if len(g.Edges()) != 0 {
		t.Fatalf("incident edges should be gone, got %v", g.Edges())
	}
	if err := um.Undo(); err != nil {
		t.Fatalf("Undo: %v", err)
	}
	if !g.HasEdge("A", "B") || !g.HasEdge("B", "C") {
		t.Fatalf("edges not restored: %v", g.Edges())
	}
}

func TestLayoutRoundTrip(t *testing.T) {
	root := t.TempDir()
	g := chain(t, nil, "A", "B", "C")
	g.MoveNode("B", 120, 40)
	if err := g.SetEntry("A"); err != nil {
		t.Fatalf("SetEntry: %v", err)
	}
	na, _ := g.Node("A")
	na.Title = "Opening"
	na.ScriptPath = "Scripts/opening.nms"
	na.Speaker = "Narrator"
	na.Dialogue = "It was a dark night."

	if err := g.SaveLayout(root); err != nil {
		t.Fatalf("SaveLayout: %v", err)
	}

	g2 := New(event.NewBus(), nil)
	if err := g2.LoadLayout(root); err != nil {
		t.Fatalf("LoadLayout: %v", err)
	}
	if len(g2.Nodes()) != 3 || len(g2.Edges()) != 2 {
		t.Fatalf("layout lost structure: %d nodes %d edges", len(g2.Nodes()), len(g2.Edges()))
	}
	b, _ := g2.Node("B")
	if b.X != 120 || b.Y != 40 {
		t.Fatalf("position lost: (%v,%v)", b.X, b.Y)
	}
	a, _ := g2.Node("A")
	if !a.Entry || a.Title != "Opening" || a.Speaker != "Narrator" {
		t.Fatalf("node fields lost: %+v", a)
	}
	if e := g2.EntryNode(); e == nil || e.ID != "A" {
		t.Fatalf("entry lost")
	}
}

func TestLoadLayoutMissingFileIsEmptyGraph(t *testing.T) {
	g := New(event.NewBus(), nil)
	if err := g.LoadLayout(t.TempDir()); err != nil {
		t.Fatalf("LoadLayout on empty dir: %v", err)
	}
	if len(g.Nodes()) != 0 {
		t.Fatalf("expected empty graph")
	}
}
