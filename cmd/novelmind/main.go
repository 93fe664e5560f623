/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"novelmind/internal/crash"
	"novelmind/internal/diag"
	"novelmind/internal/event"
	applog "novelmind/internal/log"
	"novelmind/internal/project"
	"novelmind/internal/version"
)

func usage() {
	fmt.Println("NovelMind editor core")
	fmt.Printf("Version: %s\n", version.String())
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  novelmind version|-v|--version      Show version")
	fmt.Println("  novelmind init <dir> <name>          Create a new project at <dir> with name <name>")
	fmt.Println("  novelmind open <dir>                 Open project at <dir> and print summary")
	fmt.Println("  novelmind save <dir>                 Open and save project at <dir>")
	fmt.Println("  novelmind import <dir> <file>...     Import files into the project's asset database")
	fmt.Println("  novelmind check <dir>                Report assets whose sources changed on disk")
}

func newManager() *project.Manager {
	return project.NewManager(project.Options{
		Bus:  event.NewBus(),
		Diag: diag.NewReporter(),
	})
}

func openOrDie(pm *project.Manager, dir string, l *slog.Logger) string {
	abs, _ := filepath.Abs(dir)
	if err := pm.OpenProject(abs); err != nil {
		l.Error("open failed", slog.Any("err", err))
		fmt.Println("Error:", err)
		os.Exit(1)
	}
	return abs
}

func main() {
	// initialize structured logging using environment defaults
	applog.Init(applog.FromEnv())
	l := applog.WithComponent("cli")
	var pm *project.Manager
	defer func() { crash.Recover(pm) }()

	args := os.Args
	l.Debug("start", slog.Int("args", len(args)))
	if len(args) > 1 {
		switch args[1] {
		case "version", "--version", "-v":
			fmt.Println(version.String())
			return
		case "init":
			if len(args) < 4 {
				fmt.Println("init requires <dir> and <name>")
				usage()
				os.Exit(2)
			}
			abs, _ := filepath.Abs(args[2])
			l.Info("init project", slog.String("root", abs), slog.String("name", args[3]))
			pm = newManager()
			if err := pm.CreateProject(abs, args[3]); err != nil {
				l.Error("init failed", slog.Any("err", err))
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			fmt.Println("Created project at", abs)
			return
		case "open":
			if len(args) < 3 {
				fmt.Println("open requires <dir>")
				usage()
				os.Exit(2)
			}
			pm = newManager()
			abs := openOrDie(pm, args[2], l)
			man := pm.Manifest()
			fmt.Printf("Opened project: %s\n", man.Name)
			fmt.Printf("Assets: %d\n", pm.Assets().Count())
			fmt.Printf("Start scene: %s\n", man.StartScene)
			fmt.Println("Root:", abs)
			return
		case "save":
			if len(args) < 3 {
				fmt.Println("save requires <dir>")
				usage()
				os.Exit(2)
			}
			pm = newManager()
			openOrDie(pm, args[2], l)
			pm.MarkDirty()
			if err := pm.SaveProject(); err != nil {
				l.Error("save failed", slog.Any("err", err))
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			fmt.Println("Saved project.")
			return
		case "import":
			if len(args) < 4 {
				fmt.Println("import requires <dir> and at least one <file>")
				usage()
				os.Exit(2)
			}
			pm = newManager()
			openOrDie(pm, args[2], l)
			for _, src := range args[3:] {
				m, err := pm.Assets().ImportAsset(src)
				if err != nil {
					l.Error("import failed", slog.String("source", src), slog.Any("err", err))
					fmt.Println("Error:", err)
					os.Exit(1)
				}
				fmt.Printf("Imported %s -> %s (%s)\n", src, m.ImportedPath, m.Type)
			}
			pm.MarkDirty()
			if err := pm.SaveProject(); err != nil {
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			return
		case "check":
			if len(args) < 3 {
				fmt.Println("check requires <dir>")
				usage()
				os.Exit(2)
			}
			pm = newManager()
			openOrDie(pm, args[2], l)
			outdated := pm.Assets().OutdatedAssets()
			if len(outdated) == 0 {
				fmt.Println("All asset sources are up to date.")
				return
			}
			for _, id := range outdated {
				if m, ok := pm.Assets().Get(id); ok {
					fmt.Printf("outdated: %s (%s)\n", m.Name, m.SourcePath)
				}
			}
			os.Exit(1)
		}
	}

	usage()
}
