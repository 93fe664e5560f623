/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package editor assembles the core services into one explicitly-owned
// context: event bus, diagnostics, selection, undo, property registry,
// VFS, project manager, story graph, timeline engine, play-mode
// controller and inspector bindings. Construction order and shutdown
// order are fixed here; nothing in the core reaches for a global.
package editor

import (
	"fmt"
	"time"

	"novelmind/internal/config"
	"novelmind/internal/diag"
	"novelmind/internal/event"
	"novelmind/internal/graph"
	"novelmind/internal/inspector"
	applog "novelmind/internal/log"
	"novelmind/internal/playmode"
	"novelmind/internal/project"
	"novelmind/internal/property"
	"novelmind/internal/selection"
	"novelmind/internal/timeline"
	"novelmind/internal/undo"
	"novelmind/internal/vfs"
)

// Context owns every core service for one editor process.
type Context struct {
	Config    config.AppConfig
	Bus       *event.Bus
	Diag      *diag.Reporter
	Selection *selection.Manager
	Undo      *undo.Manager
	Registry  *property.Registry
	VFS       *vfs.VFS
	Projects  *project.Manager
	Graph     *graph.Graph
	Timeline  *timeline.Engine
	Play      *playmode.Controller
	Inspector *inspector.Manager

	// graphLoading suppresses graph persistence while LoadLayout
	// replays the layout file through the normal mutation path.
	graphLoading bool
}

// Options configure context construction.
type Options struct {
	Config config.AppConfig
	// RuntimeHost backs the play-mode controller; nil disables play
	// mode (headless tools).
	RuntimeHost playmode.RuntimeHost
	// RecentsPath overrides where the recents list persists.
	RecentsPath string
	// ConfirmClose answers the unsaved-changes prompt.
	ConfirmClose func() project.CloseChoice
}

// New builds and wires the full service graph. The property
// registration pass runs here, once.
func New(opts Options) (*Context, error) {
	cfg := opts.Config
	c := &Context{
		Config:   cfg,
		Bus:      event.NewBus(),
		Registry: property.NewRegistry(),
	}
	c.Diag = diag.NewReporter()
	c.Selection = selection.NewManager(c.Bus)
	c.Undo = undo.NewManager(cfg.Editor.UndoDepth)
	c.VFS = vfs.New(int64(cfg.Cache.ResourceCacheBytes))
	c.Projects = project.NewManager(project.Options{
		Bus:               c.Bus,
		Diag:              c.Diag,
		RecentsPath:       opts.RecentsPath,
		MaxRecentProjects: cfg.Editor.MaxRecentProjects,
		MaxBackups:        cfg.Editor.MaxBackups,
		ConfirmClose:      opts.ConfirmClose,
	})
	c.resetGraph()
	c.Bus.SubscribeKinds(c.onGraphEvent,
		event.GraphEdgeAdded, event.GraphEdgeRemoved, event.GraphEntryChanged)
	c.Timeline = timeline.NewEngine(60, c.Bus)
	if opts.RuntimeHost != nil {
		c.Play = playmode.NewController(opts.RuntimeHost, c.Bus, c.Diag)
	}
	c.Inspector = inspector.NewManager(c.Registry, c.Undo, c.Bus)

	// A failed undo drains the stack; the project can no longer be
	// assumed to match its last saved state.
	c.Undo.SetCorruptionHandler(func(err error) {
		c.Diag.Report(diag.Diagnostic{
			Severity: diag.Fatal,
			Category: diag.General,
			Code:     "F001",
			Message:  fmt.Sprintf("undo failed, history discarded: %v", err),
		})
		if c.Projects.State() == project.Open {
			c.Projects.MarkDirty()
		}
	})
	c.Undo.OnChanged(func() {
		c.Bus.Emit(event.UndoStackChanged, "undo", nil)
		if !c.Undo.IsClean() && c.Projects.State() == project.Open {
			c.Projects.MarkDirty()
		}
	})

	if err := registerEditableTypes(c.Registry); err != nil {
		return nil, fmt.Errorf("register editable types: %w", err)
	}
	applog.WithComponent("editor").Info("context initialized",
		"undo_depth", cfg.Editor.UndoDepth,
		"cache_bytes", cfg.Cache.ResourceCacheBytes)
	return c, nil
}

// OpenProject opens a project and brings the dependent services up:
// the Assets folder is mounted into the VFS, breakpoints flow to the
// play controller and autosave starts.
func (c *Context) OpenProject(root string) error {
	if err := c.Projects.OpenProject(root); err != nil {
		return err
	}
	c.afterOpen()
	return nil
}

// CreateProject scaffolds and opens a new project.
func (c *Context) CreateProject(root, name string) error {
	if err := c.Projects.CreateProject(root, name); err != nil {
		return err
	}
	c.afterOpen()
	return nil
}

// resetGraph installs a fresh story graph with its persistence hook.
// Any structural edit while a project is open rewrites the layout file
// and dirties the project.
func (c *Context) resetGraph() {
	g := graph.New(c.Bus, c.Diag)
	g.OnStructureChanged(func() {
		if c.graphLoading || c.Projects.State() != project.Open {
			return
		}
		if err := g.SaveLayout(c.Projects.Root()); err != nil {
			c.Diag.ReportWarning(diag.Graph, "W311", fmt.Sprintf("save story graph layout: %v", err))
		}
		c.Projects.MarkDirty()
	})
	c.Graph = g
}

// onGraphEvent keeps the manifest and script files in step with the
// graph: the entry node id mirrors into startScene, and edge changes
// re-project the source node's transition block.
func (c *Context) onGraphEvent(ev event.Event) {
	if c.graphLoading || c.Projects.State() != project.Open {
		return
	}
	switch ev.Kind {
	case event.GraphEntryChanged:
		id := ev.Data.(graph.NodeEvent).NodeID
		if m := c.Projects.Manifest(); m.StartScene != id {
			m.StartScene = id
			c.Projects.MarkDirty()
		}
	case event.GraphEdgeAdded, event.GraphEdgeRemoved:
		e := ev.Data.(graph.EdgeEvent)
		n, ok := c.Graph.Node(e.From)
		if !ok {
			return
		}
		if err := c.Graph.UpdateScript(c.Projects.Root(), n); err != nil {
			c.Diag.ReportWarning(diag.Graph, "W312", fmt.Sprintf("update script for %s: %v", e.From, err))
		}
	}
}

func (c *Context) afterOpen() {
	root := c.Projects.Root()
	if err := c.VFS.Mount(vfs.NewDirBackend("project", root, 10)); err != nil {
		c.Diag.ReportWarning(diag.Asset, "W310", fmt.Sprintf("mount project folder: %v", err))
	}
	c.resetGraph()
	c.graphLoading = true
	if err := c.Graph.LoadLayout(root); err != nil {
		c.Diag.ReportWarning(diag.Graph, "W311", fmt.Sprintf("load story graph layout: %v", err))
	}
	c.graphLoading = false
	if c.Play != nil {
		c.Play.SetBreakpoints(c.Projects.Breakpoints())
		c.Play.SetDescriptor(playmode.LoadDescriptor{
			ProjectPath: root,
			ScriptsPath: root + "/Scripts",
			AssetsPath:  root + "/Assets",
			StartScene:  c.Projects.Manifest().StartScene,
		})
	}
	if c.Config.Editor.AutoSaveEnabled {
		c.Projects.StartAutoSave(time.Duration(c.Config.Editor.AutoSaveIntervalSeconds) * time.Second)
	}
	c.Undo.Clear()
	c.Undo.MarkClean()
}

// SaveProject persists breakpoints from the play controller, saves the
// project and marks the undo stack clean.
func (c *Context) SaveProject() error {
	if c.Play != nil {
		c.Projects.SetBreakpoints(c.Play.Breakpoints())
	}
	if err := c.Projects.SaveProject(); err != nil {
		return err
	}
	c.Undo.MarkClean()
	return nil
}

// CloseProject tears project-scoped state down. ErrCloseCancelled
// propagates when the unsaved-changes prompt is cancelled.
func (c *Context) CloseProject() error {
	if c.Play != nil {
		_ = c.Play.Stop()
	}
	if err := c.Projects.CloseProject(); err != nil {
		return err
	}
	_ = c.VFS.Unmount("project")
	c.resetGraph()
	c.Selection.ClearSelection()
	c.Undo.Clear()
	c.Diag.Clear()
	return nil
}

// Shutdown releases everything; the context is unusable afterwards.
func (c *Context) Shutdown() {
	if c.Projects.State() == project.Open {
		if err := c.CloseProject(); err != nil {
			applog.WithComponent("editor").Warn("close on shutdown", "err", err)
		}
	}
	c.Inspector.Shutdown()
	if err := c.VFS.Shutdown(); err != nil {
		applog.WithComponent("editor").Warn("vfs shutdown", "err", err)
	}
	applog.WithComponent("editor").Info("context shut down")
}
