package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNewCreatesLayout(t *testing.T) {
	base := filepath.Join(t.TempDir(), "state")
	st, err := New(base)
	if err != nil {
		t.Fatal(err)
	}
	for _, dir := range []string{st.GetBaseDir(), st.GeneratedDir(), st.ThemesDir()} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Errorf("directory %s missing: %v", dir, err)
		}
	}
	if st.AnalyticsPath() != filepath.Join(base, "analytics.db") {
		t.Errorf("analytics path = %s", st.AnalyticsPath())
	}
}

func TestSaveImage(t *testing.T) {
	st, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	name, err := st.SaveImage([]byte("\x89PNG"))
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Ext(name) != ".png" {
		t.Errorf("name = %q, want .png suffix", name)
	}

	path, err := st.ImagePath(name)
	if err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "\x89PNG" {
		t.Errorf("content = %q", data)
	}
}

func TestImagePathRejectsTraversal(t *testing.T) {
	st, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"", "../config.yaml", "a/b.png", ".hidden", "/"} {
		if _, err := st.ImagePath(name); err == nil {
			t.Errorf("ImagePath(%q) accepted", name)
		}
	}
	if _, err := st.ImagePath("/ok.png"); err != nil {
		t.Errorf("ImagePath(/ok.png) = %v", err)
	}
}

func TestPruneImages(t *testing.T) {
	st, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	oldName, _ := st.SaveImage([]byte("old"))
	newName, _ := st.SaveImage([]byte("new"))

	oldPath, _ := st.ImagePath(oldName)
	past := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(oldPath, past, past); err != nil {
		t.Fatal(err)
	}

	n, err := st.PruneImages(time.Now().Add(-24 * time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("removed %d, want 1", n)
	}
	if _, err := os.Stat(oldPath); !os.IsNotExist(err) {
		t.Error("old image still present")
	}
	newPath, _ := st.ImagePath(newName)
	if _, err := os.Stat(newPath); err != nil {
		t.Errorf("new image removed: %v", err)
	}
}
