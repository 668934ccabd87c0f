package feed

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeCatalogFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestCatalogLoadValidEntries(t *testing.T) {
	tempDir := t.TempDir()

	writeCatalogFile(t, tempDir, "bbc-world.yml", `
url: "https://feeds.bbci.co.uk/news/world/rss.xml"
title: "BBC World"
category: "News"
description: "World news from the BBC"
`)
	writeCatalogFile(t, tempDir, "hacker-news.yml", `
url: "https://hnrss.org/frontpage"
title: "Hacker News"
category: "Technology"
`)
	writeCatalogFile(t, tempDir, "ars.yml", `
url: "https://feeds.arstechnica.com/arstechnica/index"
title: "Ars Technica"
category: "Technology"
`)

	catalog := NewCatalog(tempDir)
	if err := catalog.Run(); err != nil {
		t.Fatal(err)
	}

	if catalog.GetCount() != 3 {
		t.Errorf("Expected 3 entries, got %d", catalog.GetCount())
	}

	entry, err := catalog.GetEntry("bbc-world")
	if err != nil {
		t.Fatal(err)
	}
	if entry.Name != "bbc-world" {
		t.Errorf("Expected name 'bbc-world', got '%s'", entry.Name)
	}
	if entry.Description != "World news from the BBC" {
		t.Errorf("Expected description to load, got '%s'", entry.Description)
	}

	entries := catalog.GetEntries()
	order := []string{entries[0].Title, entries[1].Title, entries[2].Title}
	expected := []string{"BBC World", "Ars Technica", "Hacker News"}
	for i := range expected {
		if order[i] != expected[i] {
			t.Errorf("Expected order %v, got %v", expected, order)
			break
		}
	}
}

func TestCatalogDefaultsCategory(t *testing.T) {
	tempDir := t.TempDir()
	writeCatalogFile(t, tempDir, "plain.yml", `
url: "https://example.com/feed.xml"
title: "Plain"
`)

	catalog := NewCatalog(tempDir)
	if err := catalog.Run(); err != nil {
		t.Fatal(err)
	}

	entry, err := catalog.GetEntry("plain")
	if err != nil {
		t.Fatal(err)
	}
	if entry.Category != "General" {
		t.Errorf("Expected default category 'General', got '%s'", entry.Category)
	}
}

func TestCatalogInvalidEntries(t *testing.T) {
	tests := map[string]string{
		"missing url":   "title: \"No URL\"\n",
		"missing title": "url: \"https://example.com/feed.xml\"\n",
		"relative url":  "url: \"/feed.xml\"\ntitle: \"Relative\"\n",
		"bad yaml":      "url: [unterminated\n",
	}

	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			tempDir := t.TempDir()
			writeCatalogFile(t, tempDir, "entry.yml", content)

			if err := NewCatalog(tempDir).Run(); err == nil {
				t.Error("Expected error for invalid catalog entry")
			}
		})
	}
}

func TestCatalogMissingDirectory(t *testing.T) {
	catalog := NewCatalog(filepath.Join(t.TempDir(), "absent"))
	if err := catalog.Run(); err != nil {
		t.Fatal(err)
	}

	if catalog.GetCount() != 0 {
		t.Errorf("Expected 0 entries, got %d", catalog.GetCount())
	}
	if _, err := catalog.GetEntry("anything"); err == nil {
		t.Error("Expected error for unknown entry")
	}
}

func TestCatalogWatchReloads(t *testing.T) {
	tempDir := t.TempDir()
	catalog := NewCatalog(tempDir)

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan error, 1)
	go func() { stopped <- catalog.Watch(ctx) }()

	// The watcher attaches asynchronously, so keep rewriting until it notices.
	deadline := time.Now().Add(5 * time.Second)
	for catalog.GetCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("Timed out waiting for catalog entry to load")
		}
		writeCatalogFile(t, tempDir, "npr.yml", "url: \"https://feeds.npr.org/1001/rss.xml\"\ntitle: \"NPR News\"\n")
		time.Sleep(50 * time.Millisecond)
	}

	entry, err := catalog.GetEntry("npr")
	if err != nil {
		t.Fatal(err)
	}
	if entry.Title != "NPR News" {
		t.Errorf("Expected title 'NPR News', got '%s'", entry.Title)
	}

	if err := os.Remove(filepath.Join(tempDir, "npr.yml")); err != nil {
		t.Fatal(err)
	}
	for catalog.GetCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("Timed out waiting for catalog entry to be removed")
		}
		time.Sleep(20 * time.Millisecond)
	}

	cancel()
	if err := <-stopped; err != nil {
		t.Errorf("Expected clean shutdown, got: %v", err)
	}
}
