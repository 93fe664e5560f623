/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package diag

import (
	"fmt"
	"testing"
)

type recordingListener struct {
	added   []Diagnostic
	removed []int64
	cleared int
}

func (r *recordingListener) DiagnosticAdded(d Diagnostic) { r.added = append(r.added, d) }
func (r *recordingListener) DiagnosticRemoved(id int64)   { r.removed = append(r.removed, id) }
func (r *recordingListener) CategoryCleared(c Category)   {}
func (r *recordingListener) AllCleared()                  { r.cleared++ }

func TestReportAssignsMonotonicIDs(t *testing.T) {
	r := NewReporter()
	id1 := r.ReportError(Graph, "E101", "first")
	id2 := r.ReportWarning(Asset, "W201", "second")
	if id2 <= id1 {
		t.Fatalf("ids not monotonic: %d then %d", id1, id2)
	}
	all := r.All()
	if len(all) != 2 || all[0].Time.IsZero() {
		t.Fatalf("entries not recorded with timestamps: %+v", all)
	}
}

func TestCapDiscardsOldest(t *testing.T) {
	r := NewReporter()
	r.SetCap(10)
	for i := 0; i < 25; i++ {
		r.ReportInfo(General, "I001", fmt.Sprintf("msg %d", i))
	}
	all := r.All()
	if len(all) != 10 {
		t.Fatalf("cap not enforced: %d entries", len(all))
	}
	if all[0].Message != "msg 15" {
		t.Fatalf("oldest not discarded, first is %q", all[0].Message)
	}
}

func TestQueryFilters(t *testing.T) {
	r := NewReporter()
	r.ReportScriptError("scripts/intro.nms", 3, 1, "bad token", "E001")
	r.ReportScriptError("scripts/chapter2/end.nms", 9, 4, "unterminated string", "E002")
	r.ReportWarning(Asset, "W201", "unused asset")
	r.ReportError(Graph, "E101", "cycle")

	if got := r.Query(Filter{MinSeverity: Error}); len(got) != 3 {
		t.Errorf("severity filter: got %d, want 3", len(got))
	}
	cat := Script
	if got := r.Query(Filter{Category: &cat}); len(got) != 2 {
		t.Errorf("category filter: got %d, want 2", len(got))
	}
	if got := r.Query(Filter{FilePattern: "scripts/**/*.nms"}); len(got) != 2 {
		t.Errorf("glob filter: got %d, want 2", len(got))
	}
	if got := r.Query(Filter{FilePattern: "scripts/*.nms"}); len(got) != 1 {
		t.Errorf("narrow glob filter: got %d, want 1", len(got))
	}
}

func TestAcknowledgedFilter(t *testing.T) {
	r := NewReporter()
	id := r.ReportError(Runtime, "E501", "boom")
	r.ReportError(Runtime, "E501", "boom2")
	if !r.Acknowledge(id) {
		t.Fatalf("acknowledge failed")
	}
	acked := true
	if got := r.Query(Filter{Acknowledged: &acked}); len(got) != 1 || got[0].ID != id {
		t.Fatalf("acknowledged filter wrong: %+v", got)
	}
}

func TestSummarize(t *testing.T) {
	r := NewReporter()
	r.ReportError(Graph, "E101", "a")
	r.ReportWarning(Asset, "W201", "b")
	r.ReportInfo(General, "I001", "c")
	s := r.Summarize()
	if s.Errors != 1 || s.Warnings != 1 || s.Infos != 1 {
		t.Fatalf("summary wrong: %+v", s)
	}
	if !s.HasErrors() {
		t.Fatalf("HasErrors should be true")
	}
}

func TestListenersAndBatch(t *testing.T) {
	r := NewReporter()
	l := &recordingListener{}
	r.AddListener(l)

	r.BeginBatch()
	r.ReportError(Scene, "E401", "one")
	r.ReportError(Scene, "E401", "two")
	if len(l.added) != 0 {
		t.Fatalf("listener notified during batch")
	}
	r.EndBatch()
	if len(l.added) != 2 {
		t.Fatalf("batched notifications not flushed: %d", len(l.added))
	}

	r.Clear()
	if l.cleared != 1 {
		t.Fatalf("clear not observed")
	}
}

func TestClearCategory(t *testing.T) {
	r := NewReporter()
	r.ReportError(Graph, "E101", "graph")
	r.ReportError(Asset, "E201", "asset")
	r.ClearCategory(Graph)
	all := r.All()
	if len(all) != 1 || all[0].Category != Asset {
		t.Fatalf("clear category wrong: %+v", all)
	}
}

func TestNavigate(t *testing.T) {
	r := NewReporter()
	var navigated *Location
	r.SetNavigateFunc(func(loc Location) { navigated = &loc })
	id := r.ReportScriptError("a.nms", 7, 2, "oops", "E001")
	if !r.NavigateTo(id) {
		t.Fatalf("navigate failed")
	}
	if navigated == nil || navigated.Line != 7 {
		t.Fatalf("navigation callback not invoked correctly: %+v", navigated)
	}
}
