package crash

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"novelmind/internal/diag"
	"novelmind/internal/event"
	"novelmind/internal/project"
)

func openTestProject(t *testing.T) *project.Manager {
	t.Helper()
	pm := project.NewManager(project.Options{
		Bus:  event.NewBus(),
		Diag: diag.NewReporter(),
	})
	if err := pm.CreateProject(filepath.Join(t.TempDir(), "proj"), "Crash Test"); err != nil {
		t.Fatalf("CreateProject error: %v", err)
	}
	return pm
}

func TestWriteReportCreatesFileInTemp(t *testing.T) {
	path, err := writeReport(nil, "boom", []byte("stacktrace"))
	if err != nil {
		t.Fatalf("writeReport error: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("report file missing: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	s := string(b)
	if !strings.Contains(s, "NovelMind Crash Report") {
		t.Fatalf("report header missing")
	}
	if !strings.Contains(s, "Panic: boom") {
		t.Fatalf("panic content missing: %s", s)
	}
}

func TestWriteReportCreatesFileInProjectBackup(t *testing.T) {
	pm := openTestProject(t)

	path, err := writeReport(pm, "kaboom", []byte("stack"))
	if err != nil {
		t.Fatalf("writeReport error: %v", err)
	}
	if !strings.Contains(path, filepath.Join(pm.Root(), project.BackupDirName)) {
		t.Fatalf("expected crash report under backup dir, got %s", path)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("report file missing: %v", err)
	}
}
