package metastore

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/aegisfs/aegisfs/pkg/types"
	"github.com/stretchr/testify/assert"
)

func TestPutGetDelete(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "meta.json"))

	meta := types.FileMeta{Blocks: []string{"b_1"}, Size: 5}
	if err := s.Put("/notes.txt", meta); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	raw, ok := s.Get("/notes.txt")
	assert.True(t, ok)

	var got types.FileMeta
	assert.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, meta, got)

	s.Delete("/notes.txt")
	_, ok = s.Get("/notes.txt")
	assert.False(t, ok)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "meta.json")
	s := New(path)

	_ = s.Put("/a", types.FileMeta{Blocks: []string{"b_a"}, Size: 1})
	_ = s.Put("/b", types.FileMeta{Blocks: []string{"b_b"}, Size: 2})
	if err := s.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded := New(path)
	if err := loaded.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	assert.ElementsMatch(t, []string{"/a", "/b"}, loaded.Keys())
}

func TestLoadMissingFileIsEmpty(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "missing.json"))
	if err := s.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	assert.Empty(t, s.Keys())
}

func TestKeysSorted(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "meta.json"))
	_ = s.Put("/z", types.FileMeta{})
	_ = s.Put("/a", types.FileMeta{})
	_ = s.Put("/m", types.FileMeta{})
	assert.Equal(t, []string{"/a", "/m", "/z"}, s.Keys())
}
