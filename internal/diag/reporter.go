/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package diag aggregates editor diagnostics into a single bounded stream.
// Unlike the rest of the core, the reporter is mutex-guarded: importers and
// filesystem scans may report from worker goroutines.
package diag

import (
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
)

// Severity orders diagnostics from least to most severe.
type Severity int

const (
	Hint Severity = iota
	Info
	Warning
	Error
	Fatal
)

func (s Severity) String() string {
	switch s {
	case Hint:
		return "hint"
	case Info:
		return "info"
	case Warning:
		return "warning"
	case Error:
		return "error"
	case Fatal:
		return "fatal"
	}
	return "unknown"
}

// Category groups diagnostics by the subsystem that produced them.
type Category int

const (
	General Category = iota
	Script
	AST
	Graph
	Asset
	Voice
	Localization
	Timeline
	Scene
	Build
	Runtime
)

func (c Category) String() string {
	switch c {
	case Script:
		return "script"
	case AST:
		return "ast"
	case Graph:
		return "graph"
	case Asset:
		return "asset"
	case Voice:
		return "voice"
	case Localization:
		return "localization"
	case Timeline:
		return "timeline"
	case Scene:
		return "scene"
	case Build:
		return "build"
	case Runtime:
		return "runtime"
	}
	return "general"
}

// Location points at a position in a source file.
type Location struct {
	File   string
	Line   int
	Column int
	Span   int
}

// QuickFix is a pre-authored textual edit attached to a diagnostic.
type QuickFix struct {
	Title       string
	Replacement string
	// Replace range within the file, byte offsets.
	Start, End int
}

// Diagnostic is a single entry in the stream.
type Diagnostic struct {
	ID           int64
	Severity     Severity
	Category     Category
	Code         string // short alphanumeric code, e.g. E001
	Message      string
	Details      string
	Location     *Location
	Related      []Location
	Fixes        []QuickFix
	Time         time.Time
	Acknowledged bool
}

// Summary holds counts by severity.
type Summary struct {
	Hints    int
	Infos    int
	Warnings int
	Errors   int
	Fatals   int
}

// HasErrors reports whether any error-or-worse diagnostics exist.
func (s Summary) HasErrors() bool { return s.Errors > 0 || s.Fatals > 0 }

// Listener observes stream mutations.
type Listener interface {
	DiagnosticAdded(d Diagnostic)
	DiagnosticRemoved(id int64)
	CategoryCleared(c Category)
	AllCleared()
}

// Filter narrows queries over the stream. Zero values match everything.
type Filter struct {
	MinSeverity  Severity
	Category     *Category
	FilePattern  string // doublestar glob over Location.File
	Acknowledged *bool
}

// DefaultCap bounds the stream; oldest entries are discarded beyond it.
const DefaultCap = 1000

// Reporter collects diagnostics and notifies listeners. Safe for
// concurrent use.
type Reporter struct {
	mu        sync.Mutex
	entries   []Diagnostic
	nextID    int64
	cap       int
	listeners []Listener
	batch     int
	deferred  []func(Listener)
	navigate  func(Location)
}

func NewReporter() *Reporter { return &Reporter{cap: DefaultCap} }

// SetCap changes the retention bound. Values < 1 reset to DefaultCap.
func (r *Reporter) SetCap(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n < 1 {
		n = DefaultCap
	}
	r.cap = n
	r.trimLocked()
}

// AddListener registers a stream observer. Listeners are invoked in
// registration order, outside batches.
func (r *Reporter) AddListener(l Listener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, l)
}

// SetNavigateFunc installs the callback used to jump to a diagnostic's
// source location.
func (r *Reporter) SetNavigateFunc(fn func(Location)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.navigate = fn
}

// NavigateTo jumps to the location of the given diagnostic, if both the
// diagnostic and a navigation callback exist.
func (r *Reporter) NavigateTo(id int64) bool {
	r.mu.Lock()
	nav := r.navigate
	var loc *Location
	for i := range r.entries {
		if r.entries[i].ID == id {
			loc = r.entries[i].Location
			break
		}
	}
	r.mu.Unlock()
	if nav == nil || loc == nil {
		return false
	}
	nav(*loc)
	return true
}

// Report assigns an id and timestamp and appends the diagnostic.
// The assigned id is returned.
func (r *Reporter) Report(d Diagnostic) int64 {
	r.mu.Lock()
	r.nextID++
	d.ID = r.nextID
	if d.Time.IsZero() {
		d.Time = time.Now()
	}
	r.entries = append(r.entries, d)
	r.trimLocked()
	r.notifyLocked(func(l Listener) { l.DiagnosticAdded(d) })
	r.mu.Unlock()
	return d.ID
}

// Convenience wrappers.

func (r *Reporter) ReportError(cat Category, code, msg string) int64 {
	return r.Report(Diagnostic{Severity: Error, Category: cat, Code: code, Message: msg})
}

func (r *Reporter) ReportWarning(cat Category, code, msg string) int64 {
	return r.Report(Diagnostic{Severity: Warning, Category: cat, Code: code, Message: msg})
}

func (r *Reporter) ReportInfo(cat Category, code, msg string) int64 {
	return r.Report(Diagnostic{Severity: Info, Category: cat, Code: code, Message: msg})
}

func (r *Reporter) ReportScriptError(file string, line, col int, msg, code string) int64 {
	return r.Report(Diagnostic{
		Severity: Error, Category: Script, Code: code, Message: msg,
		Location: &Location{File: file, Line: line, Column: col},
	})
}

func (r *Reporter) ReportMissingAsset(assetID, referrer string) int64 {
	return r.Report(Diagnostic{
		Severity: Error, Category: Asset, Code: "E201",
		Message: "missing asset " + assetID + " referenced by " + referrer,
	})
}

func (r *Reporter) ReportMissingVoice(lineID, locale string) int64 {
	return r.Report(Diagnostic{
		Severity: Warning, Category: Voice, Code: "W301",
		Message: "missing voice clip for line " + lineID + " (" + locale + ")",
	})
}

func (r *Reporter) ReportGraphError(msg string) int64 {
	return r.Report(Diagnostic{Severity: Error, Category: Graph, Code: "E101", Message: msg})
}

func (r *Reporter) ReportRuntimeError(msg, details string) int64 {
	return r.Report(Diagnostic{Severity: Error, Category: Runtime, Code: "E501", Message: msg, Details: details})
}

// Acknowledge marks a diagnostic as seen.
func (r *Reporter) Acknowledge(id int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.entries {
		if r.entries[i].ID == id {
			r.entries[i].Acknowledged = true
			return true
		}
	}
	return false
}

// Remove deletes a single diagnostic by id.
func (r *Reporter) Remove(id int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.entries {
		if r.entries[i].ID == id {
			r.entries = append(r.entries[:i], r.entries[i+1:]...)
			r.notifyLocked(func(l Listener) { l.DiagnosticRemoved(id) })
			return true
		}
	}
	return false
}

// ClearCategory removes all diagnostics of one category.
func (r *Reporter) ClearCategory(c Category) {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.entries[:0]
	for _, d := range r.entries {
		if d.Category != c {
			kept = append(kept, d)
		}
	}
	r.entries = kept
	r.notifyLocked(func(l Listener) { l.CategoryCleared(c) })
}

// Clear removes everything.
func (r *Reporter) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = nil
	r.notifyLocked(func(l Listener) { l.AllCleared() })
}

// Query returns diagnostics matching the filter, oldest first.
func (r *Reporter) Query(f Filter) []Diagnostic {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Diagnostic
	for _, d := range r.entries {
		if d.Severity < f.MinSeverity {
			continue
		}
		if f.Category != nil && d.Category != *f.Category {
			continue
		}
		if f.Acknowledged != nil && d.Acknowledged != *f.Acknowledged {
			continue
		}
		if f.FilePattern != "" {
			if d.Location == nil {
				continue
			}
			ok, err := doublestar.Match(f.FilePattern, d.Location.File)
			if err != nil || !ok {
				continue
			}
		}
		out = append(out, d)
	}
	return out
}

// All returns a copy of the full stream.
func (r *Reporter) All() []Diagnostic { return r.Query(Filter{}) }

// Summarize computes counts by severity.
func (r *Reporter) Summarize() Summary {
	r.mu.Lock()
	defer r.mu.Unlock()
	var s Summary
	for _, d := range r.entries {
		switch d.Severity {
		case Hint:
			s.Hints++
		case Info:
			s.Infos++
		case Warning:
			s.Warnings++
		case Error:
			s.Errors++
		case Fatal:
			s.Fatals++
		}
	}
	return s
}

// BeginBatch defers listener notifications until EndBatch.
func (r *Reporter) BeginBatch() {
	r.mu.Lock()
	r.batch++
	r.mu.Unlock()
}

// EndBatch flushes deferred notifications in order.
func (r *Reporter) EndBatch() {
	r.mu.Lock()
	if r.batch > 0 {
		r.batch--
	}
	if r.batch > 0 {
		r.mu.Unlock()
		return
	}
	deferred := r.deferred
	r.deferred = nil
	listeners := append([]Listener(nil), r.listeners...)
	r.mu.Unlock()
	for _, fn := range deferred {
		for _, l := range listeners {
			fn(l)
		}
	}
}

// notifyLocked dispatches or defers a listener notification. Callers hold mu.
func (r *Reporter) notifyLocked(fn func(Listener)) {
	if r.batch > 0 {
		r.deferred = append(r.deferred, fn)
		return
	}
	for _, l := range r.listeners {
		fn(l)
	}
}

func (r *Reporter) trimLocked() {
	if over := len(r.entries) - r.cap; over > 0 {
		r.entries = append(r.entries[:0:0], r.entries[over:]...)
	}
}
