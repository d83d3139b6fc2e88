// Package catalog holds the ordered brand-kit icon catalog used as
// reference material for generated illustrations.
package catalog

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Entry is one catalog icon.
type Entry struct {
	Title      string `yaml:"title" json:"title"`
	StorageKey string `yaml:"storageKey" json:"storageKey"`
}

// BrandReference is a catalog entry selected for a generation, with a signed URL.
type BrandReference struct {
	Title      string `json:"title"`
	StorageKey string `json:"storageKey"`
	URL        string `json:"url"`
}

// Catalog is an ordered, immutable list of entries. Order breaks similarity ties.
type Catalog struct {
	entries []Entry
}

// New validates entries and returns a catalog in the given order.
func New(entries []Entry) (*Catalog, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("catalog is empty")
	}
	seen := make(map[string]struct{}, len(entries))
	out := make([]Entry, 0, len(entries))
	for i, e := range entries {
		e.Title = strings.TrimSpace(e.Title)
		e.StorageKey = strings.Trim(strings.TrimSpace(e.StorageKey), "/")
		if e.Title == "" {
			return nil, fmt.Errorf("catalog entry %d: title is required", i)
		}
		if e.StorageKey == "" {
			return nil, fmt.Errorf("catalog entry %q: storageKey is required", e.Title)
		}
		if _, dup := seen[e.Title]; dup {
			return nil, fmt.Errorf("catalog entry %q: duplicate title", e.Title)
		}
		seen[e.Title] = struct{}{}
		out = append(out, e)
	}
	return &Catalog{entries: out}, nil
}

// Entries returns a copy of the entries in catalog order.
func (c *Catalog) Entries() []Entry {
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Titles returns the entry titles in catalog order.
func (c *Catalog) Titles() []string {
	titles := make([]string, len(c.entries))
	for i, e := range c.entries {
		titles[i] = e.Title
	}
	return titles
}

func (c *Catalog) Len() int {
	return len(c.entries)
}

type catalogFile struct {
	Entries []Entry `yaml:"entries"`
}

// LoadFile reads a YAML catalog of the form:
//
//	entries:
//	  - title: Piggy bank
//	    storageKey: brand-kit/piggy-bank.png
func LoadFile(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	var file catalogFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	return New(file.Entries)
}

// Load returns the catalog at path, or the built-in catalog when path is empty.
func Load(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}
	return LoadFile(path)
}

var defaultEntries = []Entry{
	{Title: "Lion mascot", StorageKey: "brand-kit/lion-mascot.png"},
	{Title: "Piggy bank", StorageKey: "brand-kit/piggy-bank.png"},
	{Title: "House with key", StorageKey: "brand-kit/house-with-key.png"},
	{Title: "Credit card", StorageKey: "brand-kit/credit-card.png"},
	{Title: "Mobile banking", StorageKey: "brand-kit/mobile-banking.png"},
	{Title: "Shopping bag", StorageKey: "brand-kit/shopping-bag.png"},
	{Title: "Airplane travel", StorageKey: "brand-kit/airplane-travel.png"},
	{Title: "Graduation cap", StorageKey: "brand-kit/graduation-cap.png"},
	{Title: "Coins stack", StorageKey: "brand-kit/coins-stack.png"},
	{Title: "Car", StorageKey: "brand-kit/car.png"},
	{Title: "Umbrella insurance", StorageKey: "brand-kit/umbrella-insurance.png"},
	{Title: "Handshake", StorageKey: "brand-kit/handshake.png"},
}

// Default returns the built-in brand-kit catalog.
func Default() *Catalog {
	c, err := New(defaultEntries)
	if err != nil {
		panic(err)
	}
	return c
}
