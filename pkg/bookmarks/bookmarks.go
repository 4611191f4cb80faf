// Package bookmarks reads the study bookmarks owned by the bookmarking
// collaborator. The viewer only sorts and correlates them; removal is
// delegated back to the owner through a callback.
package bookmarks

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Bookmark is one saved study
type Bookmark struct {
	ID           string    `yaml:"id"`
	Title        string    `yaml:"title"`
	Journal      string    `yaml:"journal"`
	Year         int       `yaml:"year"`
	Authors      string    `yaml:"authors"`
	PMID         string    `yaml:"pmid"`
	BookmarkedAt time.Time `yaml:"bookmarkedAt"`
}

// DisplayTitle falls back to a placeholder for untitled studies
func (b Bookmark) DisplayTitle() string {
	if strings.TrimSpace(b.Title) == "" {
		return "Untitled Study"
	}
	return b.Title
}

// PubMedURL links the study on PubMed, or "" without a PMID
func (b Bookmark) PubMedURL() string {
	if b.PMID == "" {
		return ""
	}
	return fmt.Sprintf("https://pubmed.ncbi.nlm.nih.gov/%s/", b.PMID)
}

// Order selects a sort order
type Order string

const (
	ByTime    Order = "time"
	ByJournal Order = "journal"
	ByYear    Order = "year"
)

// Sorted returns a sorted copy: newest bookmark first, journal A-Z, or
// newest publication year first. Unknown orders keep the input order.
func Sorted(list []Bookmark, order Order) []Bookmark {
	out := append([]Bookmark(nil), list...)
	switch order {
	case ByTime:
		sort.SliceStable(out, func(i, j int) bool { return out[i].BookmarkedAt.After(out[j].BookmarkedAt) })
	case ByJournal:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Journal < out[j].Journal })
	case ByYear:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Year > out[j].Year })
	}
	return out
}

// List wraps the collaborator's bookmarks with its removal callback
type List struct {
	items    []Bookmark
	onRemove func(id string)
}

// NewList creates a read-only view over items. onRemove may be nil, in
// which case Remove is unavailable.
func NewList(items []Bookmark, onRemove func(id string)) *List {
	return &List{items: items, onRemove: onRemove}
}

// Len returns the number of bookmarks
func (l *List) Len() int {
	return len(l.items)
}

// IDs returns the bookmark identifiers in input order
func (l *List) IDs() []string {
	ids := make([]string, len(l.items))
	for i, b := range l.items {
		ids[i] = b.ID
	}
	return ids
}

// Contains reports whether a study is bookmarked
func (l *List) Contains(id string) bool {
	for _, b := range l.items {
		if b.ID == id {
			return true
		}
	}
	return false
}

// Sorted returns the bookmarks in the given order
func (l *List) Sorted(order Order) []Bookmark {
	return Sorted(l.items, order)
}

// CanRemove reports whether the owner exposed a removal callback
func (l *List) CanRemove() bool {
	return l.onRemove != nil
}

// Remove asks the owner to delete a bookmark. The list itself is not changed.
func (l *List) Remove(id string) error {
	if l.onRemove == nil {
		return fmt.Errorf("bookmark removal not available")
	}
	if !l.Contains(id) {
		return fmt.Errorf("bookmark %s not found", id)
	}
	l.onRemove(id)
	return nil
}

// Load reads bookmarks from a YAML file
func Load(path string) ([]Bookmark, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading bookmarks file: %w", err)
	}
	var list []Bookmark
	if err := yaml.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("error parsing bookmarks file: %w", err)
	}
	return list, nil
}
