package workspace

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/zip"
)

func TestNew_CreatesSessionDirectory(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	ws, err := New(dir)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if !strings.HasPrefix(filepath.Base(ws.Path), workspacePrefix) {
		t.Errorf("Unexpected workspace name %s", ws.Path)
	}
	info, err := os.Stat(ws.Path)
	if err != nil || !info.IsDir() {
		t.Fatalf("Workspace directory missing: %v", err)
	}
}

func TestCleanStale(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	staleArchive := filepath.Join(dir, archivePrefix+"20240101_000000.zip")
	if err := os.WriteFile(staleArchive, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}
	staleWorkspace := filepath.Join(dir, workspacePrefix+"20240101_000000")
	if err := os.MkdirAll(filepath.Join(staleWorkspace, "nested"), 0o755); err != nil {
		t.Fatal(err)
	}
	unrelated := filepath.Join(dir, "keep-me.txt")
	if err := os.WriteFile(unrelated, []byte("keep"), 0o644); err != nil {
		t.Fatal(err)
	}

	CleanStale(dir)

	if _, err := os.Stat(staleArchive); !os.IsNotExist(err) {
		t.Error("Stale archive should be removed")
	}
	if _, err := os.Stat(staleWorkspace); !os.IsNotExist(err) {
		t.Error("Stale workspace should be removed")
	}
	if _, err := os.Stat(unrelated); err != nil {
		t.Error("Unrelated files must survive cleanup")
	}

	// Idempotent on an already-clean directory.
	CleanStale(dir)
	CleanStale(filepath.Join(dir, "does-not-exist"))
}

func TestArchive_PreservesRelativePaths(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	ws, err := New(dir)
	if err != nil {
		t.Fatal(err)
	}

	nested := filepath.Join(ws.Path, "Course_A_do_1", "Module_B_do_2")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(nested, "pkg.zip"), []byte("payload-bytes"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(ws.Path, "Course_A_do_1", "transcript.txt"), []byte("words"), 0o644); err != nil {
		t.Fatal(err)
	}

	dest := NewArchivePath(dir)
	if err := ws.Archive(dest); err != nil {
		t.Fatalf("Archive failed: %v", err)
	}

	r, err := zip.OpenReader(dest)
	if err != nil {
		t.Fatalf("Opening archive: %v", err)
	}
	defer r.Close()

	wsName := filepath.Base(ws.Path)
	want := map[string]string{
		wsName + "/Course_A_do_1/Module_B_do_2/pkg.zip": "payload-bytes",
		wsName + "/Course_A_do_1/transcript.txt":        "words",
	}
	if len(r.File) != len(want) {
		t.Fatalf("Expected %d entries, got %d", len(want), len(r.File))
	}
	for _, f := range r.File {
		wantBody, ok := want[f.Name]
		if !ok {
			t.Errorf("Unexpected entry %s", f.Name)
			continue
		}
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("Opening entry %s: %v", f.Name, err)
		}
		body, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatal(err)
		}
		if string(body) != wantBody {
			t.Errorf("Entry %s: expected %q, got %q", f.Name, wantBody, string(body))
		}
	}
}

func TestRemove(t *testing.T) {
	t.Parallel()
	ws, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(ws.Path, "f.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := ws.Remove(); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if _, err := os.Stat(ws.Path); !os.IsNotExist(err) {
		t.Error("Workspace tree should be gone")
	}
	// Removing again is fine.
	if err := ws.Remove(); err != nil {
		t.Errorf("Second Remove must be a no-op, got %v", err)
	}
}
