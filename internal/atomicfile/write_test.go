package atomicfile

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func TestWrite_CreatesParents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Config", "GFX.ini")

	if err := Write(path, []byte("[Settings]\nAspectRatio = 1\n"), 0o644); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(got) != "[Settings]\nAspectRatio = 1\n" {
		t.Errorf("content = %q", got)
	}
}

func TestWrite_Overwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Dolphin.ini")
	for _, content := range []string{"old", "new"} {
		if err := Write(path, []byte(content), 0o644); err != nil {
			t.Fatalf("Write(%q): %v", content, err)
		}
	}
	got, _ := os.ReadFile(path)
	if string(got) != "new" {
		t.Errorf("content = %q, want %q", got, "new")
	}
}

func TestWrite_Permissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "emuconf.toml")
	if err := Write(path, []byte("version = 2\n"), 0o600); err != nil {
		t.Fatalf("Write: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Mode().Perm()&0o600 == 0 {
		t.Errorf("permissions = %o, want owner rw", info.Mode().Perm())
	}
}

func TestWriteFunc_FillErrorKeepsOriginal(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "GCPadNew.ini")
	if err := os.WriteFile(path, []byte("original"), 0o644); err != nil {
		t.Fatal(err)
	}

	boom := errors.New("boom")
	err := WriteFunc(path, 0o644, func(w io.Writer) error {
		io.WriteString(w, "partial")
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped boom", err)
	}

	got, _ := os.ReadFile(path)
	if string(got) != "original" {
		t.Errorf("target modified: %q", got)
	}
	assertNoTemps(t, dir)
}

func TestWriteFunc_Concurrent(t *testing.T) {
	dir := t.TempDir()
	const n = 16

	// Distinct targets: Windows refuses to rename over a file another
	// writer has open.
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			path := filepath.Join(dir, fmt.Sprintf("G%02d.ini", i))
			err := WriteFunc(path, 0o644, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "[Core]\nN = %d\n", i)
				return err
			})
			if err != nil {
				t.Errorf("writer %d: %v", i, err)
			}
		}()
	}
	wg.Wait()

	for i := range n {
		got, err := os.ReadFile(filepath.Join(dir, fmt.Sprintf("G%02d.ini", i)))
		if err != nil {
			t.Errorf("file %d: %v", i, err)
			continue
		}
		if want := fmt.Sprintf("[Core]\nN = %d\n", i); string(got) != want {
			t.Errorf("file %d = %q, want %q", i, got, want)
		}
	}
	assertNoTemps(t, dir)
}

func TestWrite_FailureLeavesNoTemp(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	if err := Write(filepath.Join(blocker, "x.ini"), []byte("data"), 0o644); err == nil {
		t.Fatal("expected error when the parent is a regular file")
	}
	assertNoTemps(t, dir)
}

func assertNoTemps(t *testing.T, dir string) {
	t.Helper()
	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		if matched, _ := filepath.Match("*.tmp.*", e.Name()); matched {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}
