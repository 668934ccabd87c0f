package feed

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// Catalog holds the curated feeds offered for one-click subscription.
type Catalog struct {
	catalogDir string
	cache      map[string]*CatalogEntry
	mu         sync.RWMutex
}

func NewCatalog(catalogDir string) *Catalog {
	return &Catalog{
		catalogDir: catalogDir,
		cache:      make(map[string]*CatalogEntry),
	}
}

func (c *Catalog) Run() error {
	if _, err := os.Stat(c.catalogDir); os.IsNotExist(err) {
		return nil
	}

	files, err := filepath.Glob(filepath.Join(c.catalogDir, "*.yml"))
	if err != nil {
		return fmt.Errorf("failed to find YML files: %w", err)
	}

	for _, file := range files {
		name := strings.TrimSuffix(filepath.Base(file), ".yml")

		entry, err := c.LoadEntry(name)
		if err != nil {
			return fmt.Errorf("error loading %s: %w", file, err)
		}

		slog.Debug("Catalog entry loaded", "name", name, "category", entry.Category)
	}

	return nil
}

// Watch reloads entries as catalog files are written, renamed or removed,
// until ctx is done.
func (c *Catalog) Watch(ctx context.Context) error {
	if _, err := os.Stat(c.catalogDir); os.IsNotExist(err) {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(c.catalogDir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", c.catalogDir, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			c.handleEvent(event)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("Catalog watcher error", "error", err)
		}
	}
}

func (c *Catalog) handleEvent(event fsnotify.Event) {
	if filepath.Ext(event.Name) != ".yml" {
		return
	}
	name := strings.TrimSuffix(filepath.Base(event.Name), ".yml")

	if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		c.mu.Lock()
		delete(c.cache, name)
		c.mu.Unlock()
		slog.Info("Catalog entry removed", "name", name)
		return
	}

	if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) {
		if _, err := c.LoadEntry(name); err != nil {
			slog.Warn("Failed to reload catalog entry", "name", name, "error", err)
			return
		}
		slog.Info("Catalog entry reloaded", "name", name)
	}
}

func (c *Catalog) LoadEntry(name string) (*CatalogEntry, error) {
	file := filepath.Join(c.catalogDir, name+".yml")
	entry, err := c.parseEntry(file)
	if err != nil {
		return nil, err
	}

	entry.Name = name

	if err := c.validateEntry(entry); err != nil {
		return nil, fmt.Errorf("invalid catalog entry %s: %w", file, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache[entry.Name] = entry

	return entry, nil
}

func (c *Catalog) GetEntry(name string) (*CatalogEntry, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.cache[name]
	if !ok {
		return nil, fmt.Errorf("catalog entry '%s' not found", name)
	}
	return entry, nil
}

// GetEntries returns entries sorted by category, then title.
func (c *Catalog) GetEntries() []CatalogEntry {
	c.mu.RLock()
	entries := make([]CatalogEntry, 0, len(c.cache))
	for _, entry := range c.cache {
		entries = append(entries, *entry)
	}
	c.mu.RUnlock()

	slices.SortFunc(entries, func(a, b CatalogEntry) int {
		return cmp.Or(cmp.Compare(a.Category, b.Category), cmp.Compare(a.Title, b.Title))
	})
	return entries
}

func (c *Catalog) GetCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cache)
}

func (c *Catalog) parseEntry(file string) (*CatalogEntry, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var entry CatalogEntry
	if err := yaml.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if entry.Category == "" {
		entry.Category = "General"
	}

	return &entry, nil
}

func (c *Catalog) validateEntry(entry *CatalogEntry) error {
	if entry == nil {
		return fmt.Errorf("entry is nil")
	}

	required := map[string]string{
		"name":  entry.Name,
		"url":   entry.URL,
		"title": entry.Title,
	}
	for field, value := range required {
		if value == "" {
			return fmt.Errorf("%s is required", field)
		}
	}

	parsed, err := url.Parse(entry.URL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return fmt.Errorf("url must be an absolute http(s) URL")
	}

	return nil
}
