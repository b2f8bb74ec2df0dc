package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Archive keeps rendered exports on disk under a base directory.
type Archive struct {
	baseDir string
}

// NewArchive creates the base directory if needed.
func NewArchive(baseDir string) (*Archive, error) {
	if baseDir == "" {
		baseDir = "./exports"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create export archive: %w", err)
	}
	return &Archive{baseDir: baseDir}, nil
}

// Put writes body under name, replacing any previous file.
func (a *Archive) Put(name string, body []byte) error {
	path, err := a.resolve(name)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return fmt.Errorf("write archived export: %w", err)
	}
	return nil
}

// Path returns the on-disk location of name if it exists.
func (a *Archive) Path(name string) (string, error) {
	path, err := a.resolve(name)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("archived export %s: %w", name, err)
	}
	return path, nil
}

// Prune removes archived files older than ttl and returns their names.
func (a *Archive) Prune(ttl time.Duration) ([]string, error) {
	cutoff := time.Now().Add(-ttl)
	entries, err := os.ReadDir(a.baseDir)
	if err != nil {
		return nil, fmt.Errorf("list export archive: %w", err)
	}
	removed := make([]string, 0)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return removed, err
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(a.baseDir, entry.Name())); err != nil && !os.IsNotExist(err) {
			return removed, fmt.Errorf("prune %s: %w", entry.Name(), err)
		}
		removed = append(removed, entry.Name())
	}
	return removed, nil
}

// resolve keeps names flat so a token can never point outside the archive.
func (a *Archive) resolve(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("invalid archive name %q", name)
	}
	return filepath.Join(a.baseDir, name), nil
}
