package storage

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Storage lays out the application's state directory:
//
//	<base>/analytics.db   message counts
//	<base>/generated/     rendered status images
//	<base>/themes/        user theme files
//	<base>/whatsapp/      whatsapp device store
type Storage struct {
	baseDir string
	mu      sync.RWMutex
}

func New(baseDir string) (*Storage, error) {
	for _, dir := range []string{baseDir, filepath.Join(baseDir, "generated"), filepath.Join(baseDir, "themes")} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}
	return &Storage{baseDir: baseDir}, nil
}

func (s *Storage) GetBaseDir() string {
	return s.baseDir
}

func (s *Storage) AnalyticsPath() string {
	return filepath.Join(s.baseDir, "analytics.db")
}

func (s *Storage) ThemesDir() string {
	return filepath.Join(s.baseDir, "themes")
}

func (s *Storage) WhatsappDir() string {
	return filepath.Join(s.baseDir, "whatsapp")
}

func (s *Storage) GeneratedDir() string {
	return filepath.Join(s.baseDir, "generated")
}

// SaveImage writes a rendered PNG under generated/ and returns its file name.
func (s *Storage) SaveImage(data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := uuid.New().String() + ".png"
	path := filepath.Join(s.GeneratedDir(), name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to save image: %w", err)
	}
	return name, nil
}

// ImagePath resolves a generated file name, refusing anything that would
// escape the generated directory.
func (s *Storage) ImagePath(name string) (string, error) {
	name = strings.TrimPrefix(name, "/")
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("invalid file name %q", name)
	}
	return filepath.Join(s.GeneratedDir(), name), nil
}

// PruneImages removes generated images last modified before cutoff.
func (s *Storage) PruneImages(cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.GeneratedDir())
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			path := filepath.Join(s.GeneratedDir(), entry.Name())
			if err := os.Remove(path); err != nil {
				slog.Warn("failed to remove generated image", "path", path, "error", err)
				continue
			}
			removed++
		}
	}
	return removed, nil
}
