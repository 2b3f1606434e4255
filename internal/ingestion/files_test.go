package ingestion

import (
	"os"
	"path/filepath"
	"testing"
)

func TestScannerFiltersAndOrders(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write("b.html", "two")
	write("a.html", "one")
	write("notes.pdf", "unsupported")
	write("empty.html", "")
	if err := os.Mkdir(filepath.Join(dir, "nested.html"), 0o755); err != nil {
		t.Fatal(err)
	}

	s := NewScanner([]string{".html"}, 50, quietLogger())
	files, err := s.Scan(dir)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("got %d files, want 2: %+v", len(files), files)
	}
	if files[0].Name != "a.html" || files[1].Name != "b.html" {
		t.Errorf("order = %s, %s; want a.html, b.html", files[0].Name, files[1].Name)
	}
}

func TestScannerMissingDir(t *testing.T) {
	s := NewScanner([]string{".html"}, 50, quietLogger())
	files, err := s.Scan(filepath.Join(t.TempDir(), "does-not-exist"))
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if len(files) != 0 {
		t.Errorf("got %d files from missing dir", len(files))
	}
}

func TestScannerSizeLimit(t *testing.T) {
	dir := t.TempDir()
	big := make([]byte, 2*1024*1024)
	if err := os.WriteFile(filepath.Join(dir, "big.html"), big, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "small.html"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	s := NewScanner([]string{".html"}, 1, quietLogger())
	files, err := s.Scan(dir)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if len(files) != 1 || files[0].Name != "small.html" {
		t.Errorf("files = %+v, want only small.html", files)
	}
}

func TestMoveFileResolvesConflicts(t *testing.T) {
	src := t.TempDir()
	dest := filepath.Join(t.TempDir(), "archive")

	first := filepath.Join(src, "report.html")
	if err := os.WriteFile(first, []byte("one"), 0o644); err != nil {
		t.Fatal(err)
	}
	moved, err := MoveFile(first, dest)
	if err != nil {
		t.Fatalf("MoveFile() error = %v", err)
	}
	if filepath.Base(moved) != "report.html" {
		t.Errorf("dest = %s, want report.html", moved)
	}

	// Same name again: suffix resolves the conflict, nothing is overwritten.
	second := filepath.Join(src, "report.html")
	if err := os.WriteFile(second, []byte("two"), 0o644); err != nil {
		t.Fatal(err)
	}
	moved2, err := MoveFile(second, dest)
	if err != nil {
		t.Fatalf("MoveFile() second error = %v", err)
	}
	if filepath.Base(moved2) != "report_1.html" {
		t.Errorf("dest = %s, want report_1.html", moved2)
	}
	kept, err := os.ReadFile(moved)
	if err != nil || string(kept) != "one" {
		t.Errorf("original archive content clobbered: %q, %v", kept, err)
	}
}
