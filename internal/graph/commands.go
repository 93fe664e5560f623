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

	"novelmind/internal/undo"
)

// CategoryGraph tags graph commands on the undo stack.
const CategoryGraph = "graph"

// CreateNodeCommand inserts a node; undo removes it again.
type CreateNodeCommand struct {
	Graph *Graph
	Node  *Node
}

func (c *CreateNodeCommand) Execute() error {
	n := *c.Node
	return c.Graph.AddNode(&n)
}

func (c *CreateNodeCommand) Undo() error {
	if _, _, ok := c.Graph.RemoveNode(c.Node.ID); !ok {
		return fmt.Errorf("node %s vanished", c.Node.ID)
	}
	return nil
}

func (c *CreateNodeCommand) Description() string { return "Create node " + c.Node.ID }
func (c *CreateNodeCommand) Category() string    { return CategoryGraph }

// DeleteNodeCommand removes a node with all touching edges; undo restores
// node and edges.
type DeleteNodeCommand struct {
	Graph  *Graph
	NodeID string
	node   *Node
	edges  []Edge
}

func (c *DeleteNodeCommand) Execute() error {
	n, edges, ok := c.Graph.RemoveNode(c.NodeID)
	if !ok {
		return fmt.Errorf("node %s not found", c.NodeID)
	}
	c.node, c.edges = n, edges
	return nil
}

func (c *DeleteNodeCommand) Undo() error {
	if c.node == nil {
		return fmt.Errorf("no snapshot for %s", c.NodeID)
	}
	n := *c.node
	if err := c.Graph.AddNode(&n); err != nil {
		return err
	}
	for _, e := range c.edges {
		if err := c.Graph.Connect(e.From, e.To); err != nil {
			return err
		}
	}
	return nil
}

func (c *DeleteNodeCommand) Description() string { return "Delete node " + c.NodeID }
func (c *DeleteNodeCommand) Category() string    { return CategoryGraph }

// ConnectCommand inserts an edge; the acyclicity guard runs on every
// Execute, including redo.
type ConnectCommand struct {
	Graph    *Graph
	From, To string
}

func (c *ConnectCommand) Execute() error { return c.Graph.Connect(c.From, c.To) }

func (c *ConnectCommand) Undo() error {
	if !c.Graph.Disconnect(c.From, c.To) {
		return fmt.Errorf("edge %s->%s vanished", c.From, c.To)
	}
	return nil
}

func (c *ConnectCommand) Description() string {
	return fmt.Sprintf("Connect %s to %s", c.From, c.To)
}
func (c *ConnectCommand) Category() string { return CategoryGraph }

// DisconnectCommand removes an edge; undo restores it.
type DisconnectCommand struct {
	Graph    *Graph
	From, To string
}

func (c *DisconnectCommand) Execute() error {
	if !c.Graph.Disconnect(c.From, c.To) {
		return fmt.Errorf("edge %s->%s not found", c.From, c.To)
	}
	return nil
}

func (c *DisconnectCommand) Undo() error { return c.Graph.Connect(c.From, c.To) }

func (c *DisconnectCommand) Description() string {
	return fmt.Sprintf("Disconnect %s from %s", c.From, c.To)
}
func (c *DisconnectCommand) Category() string { return CategoryGraph }

// MoveNodeCommand repositions a node; successive moves of the same node
// merge, so a drag is one undo step.
type MoveNodeCommand struct {
	Graph        *Graph
	NodeID       string
	FromX, FromY float64
	ToX, ToY     float64
}

func (c *MoveNodeCommand) Execute() error {
	if !c.Graph.MoveNode(c.NodeID, c.ToX, c.ToY) {
		return fmt.Errorf("node %s not found", c.NodeID)
	}
	return nil
}

func (c *MoveNodeCommand) Undo() error {
	if !c.Graph.MoveNode(c.NodeID, c.FromX, c.FromY) {
		return fmt.Errorf("node %s not found", c.NodeID)
	}
	return nil
}

func (c *MoveNodeCommand) Description() string { return "Move node " + c.NodeID }
func (c *MoveNodeCommand) Category() string    { return CategoryGraph }

func (c *MoveNodeCommand) CanMergeWith(next undo.Command) bool {
	n, ok := next.(*MoveNodeCommand)
	return ok && n.Graph == c.Graph && n.NodeID == c.NodeID
}

func (c *MoveNodeCommand) MergeWith(next undo.Command) {
	n := next.(*MoveNodeCommand)
	c.ToX, c.ToY = n.ToX, n.ToY
}

// SetNodeFieldCommand writes one editable node field reversibly. Field
// names follow the property registration pass.
type SetNodeFieldCommand struct {
	Graph  *Graph
	NodeID string
	Field  string
	Value  string
	old    string
	loaded bool
}

func nodeField(n *Node, field string) (*string, error) {
	switch field {
	case "title":
		return &n.Title, nil
	case "speaker":
		return &n.Speaker, nil
	case "dialogueText":
		return &n.Dialogue, nil
	case "scriptPath":
		return &n.ScriptPath, nil
	}
	return nil, fmt.Errorf("unknown node field %q", field)
}

func (c *SetNodeFieldCommand) Execute() error {
	n, ok := c.Graph.Node(c.NodeID)
	if !ok {
		return fmt.Errorf("node %s not found", c.NodeID)
	}
	f, err := nodeField(n, c.Field)
	if err != nil {
		return err
	}
	if !c.loaded {
		c.old = *f
		c.loaded = true
	}
	*f = c.Value
	c.Graph.structureChanged()
	return nil
}

func (c *SetNodeFieldCommand) Undo() error {
	n, ok := c.Graph.Node(c.NodeID)
	if !ok {
		return fmt.Errorf("node %s not found", c.NodeID)
	}
	f, err := nodeField(n, c.Field)
	if err != nil {
		return err
	}
	*f = c.old
	c.Graph.structureChanged()
	return nil
}

func (c *SetNodeFieldCommand) Description() string { return "Set " + c.Field }
func (c *SetNodeFieldCommand) Category() string    { return CategoryGraph }
