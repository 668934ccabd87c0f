package feed

import (
	"time"
)

// Feed processing types

type Metadata struct {
	Title       string
	Link        string
	Description string
}

// Entry is one normalized feed item.
type Entry struct {
	Title       string
	Content     *string // nil when neither content nor description is present
	Link        string
	PublishedAt time.Time
}

// Catalog types

type CatalogEntry struct {
	Name        string `yaml:"-" json:"name"` // derived from filename
	URL         string `yaml:"url" json:"url"`
	Title       string `yaml:"title" json:"title"`
	Category    string `yaml:"category" json:"category"`
	Description string `yaml:"description" json:"description"`
}
