package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	c := Default()
	assert.Equal(t, 12, c.Len())
	assert.Equal(t, "Lion mascot", c.Titles()[0])
	assert.Equal(t, "brand-kit/piggy-bank.png", c.Entries()[1].StorageKey)
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name    string
		entries []Entry
	}{
		{"empty", nil},
		{"missing title", []Entry{{StorageKey: "a.png"}}},
		{"missing key", []Entry{{Title: "A"}}},
		{"duplicate", []Entry{{Title: "A", StorageKey: "a.png"}, {Title: "A", StorageKey: "b.png"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.entries)
			assert.Error(t, err)
		})
	}
}

func TestEntries_ReturnsCopy(t *testing.T) {
	c := Default()
	entries := c.Entries()
	entries[0].Title = "changed"
	assert.Equal(t, "Lion mascot", c.Entries()[0].Title)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	content := "entries:\n  - title: Rocket\n    storageKey: /kit/rocket.png\n  - title: Tree\n    storageKey: kit/tree.png\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Rocket", "Tree"}, c.Titles())
	assert.Equal(t, "kit/rocket.png", c.Entries()[0].StorageKey)
}

func TestLoadFile_Errors(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("entries: [\n"), 0o644))
	_, err = LoadFile(path)
	assert.Error(t, err)
}

func TestLoad_EmptyPathUsesDefault(t *testing.T) {
	c, err := Load("  ")
	require.NoError(t, err)
	assert.Equal(t, Default().Titles(), c.Titles())
}

func TestPalettes(t *testing.T) {
	p := Palettes()
	require.Len(t, p, 4)
	assert.Equal(t, "Orange + Sky + Maroon + Blush", p[0].Name)
	assert.Equal(t, "#FF6200, #89D6FD, #4D0020, #F689FD", p[0].Param())

	p[0].Colors[0] = "#000000"
	assert.Equal(t, "#FF6200", Palettes()[0].Colors[0])
}
