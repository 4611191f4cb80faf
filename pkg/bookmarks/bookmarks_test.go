package bookmarks

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func sample() []Bookmark {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return []Bookmark{
		{ID: "a", Title: "Pain", Journal: "NeuroImage", Year: 2010, BookmarkedAt: t0},
		{ID: "b", Title: "", Journal: "Brain", Year: 2018, PMID: "123", BookmarkedAt: t0.Add(2 * time.Hour)},
		{ID: "c", Title: "Memory", Journal: "Cortex", Year: 2015, BookmarkedAt: t0.Add(time.Hour)},
	}
}

func ids(list []Bookmark) string {
	s := ""
	for _, b := range list {
		s += b.ID
	}
	return s
}

// TestSorted verifies each sort order
func TestSorted(t *testing.T) {
	list := sample()
	tests := []struct {
		order Order
		want  string
	}{
		{ByTime, "bca"},
		{ByJournal, "bca"},
		{ByYear, "bca"},
		{Order("other"), "abc"},
	}
	for _, tt := range tests {
		if got := ids(Sorted(list, tt.order)); got != tt.want {
			t.Errorf("Order %s: expected %s, got %s", tt.order, tt.want, got)
		}
	}
	if ids(list) != "abc" {
		t.Error("Expected input order to be preserved")
	}

	list[2].Year = 2020
	if got := ids(Sorted(list, ByYear)); got != "cba" {
		t.Errorf("Expected cba, got %s", got)
	}
}

// TestListRemove verifies removal goes through the owner's callback
func TestListRemove(t *testing.T) {
	var removed []string
	l := NewList(sample(), func(id string) { removed = append(removed, id) })

	if err := l.Remove("b"); err != nil {
		t.Fatalf("Failed to remove: %v", err)
	}
	if len(removed) != 1 || removed[0] != "b" {
		t.Errorf("Expected callback for b, got %v", removed)
	}
	if err := l.Remove("zzz"); err == nil {
		t.Error("Expected error for unknown bookmark, got nil")
	}
	if !l.Contains("b") || l.Len() != 3 {
		t.Error("Expected the list itself to stay unchanged")
	}

	if err := NewList(sample(), nil).Remove("a"); err == nil {
		t.Error("Expected error without a removal callback, got nil")
	}
}

// TestBookmarkDisplay verifies title fallback and PubMed links
func TestBookmarkDisplay(t *testing.T) {
	list := sample()
	if list[1].DisplayTitle() != "Untitled Study" {
		t.Errorf("Expected placeholder title, got %q", list[1].DisplayTitle())
	}
	if list[1].PubMedURL() != "https://pubmed.ncbi.nlm.nih.gov/123/" {
		t.Errorf("Unexpected PubMed URL %q", list[1].PubMedURL())
	}
	if list[0].PubMedURL() != "" {
		t.Error("Expected no URL without PMID")
	}
}

// TestLoad verifies YAML bookmark files
func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bookmarks.yaml")
	content := "- id: s1\n  title: Fear\n  journal: Neuron\n  year: 2012\n  pmid: \"999\"\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write fixture: %v", err)
	}

	list, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to load: %v", err)
	}
	if len(list) != 1 || list[0].ID != "s1" || list[0].Year != 2012 || list[0].PMID != "999" {
		t.Errorf("Unexpected bookmarks %+v", list)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Expected error for missing file, got nil")
	}
}
