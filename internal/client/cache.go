package client

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// IDCache persists the last session id between runs.
type IDCache interface {
	Load() (string, error)
	Store(id string) error
	Clear() error
}

// MemoryCache keeps the id for the life of the process.
type MemoryCache struct {
	mu sync.Mutex
	id string
}

func (c *MemoryCache) Load() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.id, nil
}

func (c *MemoryCache) Store(id string) error {
	c.mu.Lock()
	c.id = id
	c.mu.Unlock()
	return nil
}

func (c *MemoryCache) Clear() error {
	return c.Store("")
}

// FileCache stores the id in a single file.
type FileCache struct {
	Path string
}

// DefaultFileCache places the cache under the user config directory.
func DefaultFileCache() (*FileCache, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("resolve config dir: %w", err)
	}
	return &FileCache{Path: filepath.Join(dir, "cvopt", "session")}, nil
}

func (c *FileCache) Load() (string, error) {
	data, err := os.ReadFile(c.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read session cache: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

func (c *FileCache) Store(id string) error {
	if err := os.MkdirAll(filepath.Dir(c.Path), 0o700); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	if err := os.WriteFile(c.Path, []byte(id+"\n"), 0o600); err != nil {
		return fmt.Errorf("write session cache: %w", err)
	}
	return nil
}

func (c *FileCache) Clear() error {
	if err := os.Remove(c.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("clear session cache: %w", err)
	}
	return nil
}
