package drive

import (
	"errors"
	"testing"
)

func TestAliasCache_StoreAssignsLetters(t *testing.T) {
	cache := NewAliasCache()
	files := cache.Store([]CachedFile{
		{ID: "id-1", Name: "first"},
		{ID: "id-2", Name: "second"},
	})

	if files[0].Alias != "A" || files[1].Alias != "B" {
		t.Errorf("got aliases %q, %q, want A, B", files[0].Alias, files[1].Alias)
	}
}

func TestAliasCache_Resolve(t *testing.T) {
	cache := NewAliasCache()
	cache.Store([]CachedFile{{ID: "doc-123", Name: "notes"}})

	tests := []struct {
		ref  string
		want string
	}{
		{"A", "doc-123"},
		{"doc-456", "doc-456"},   // raw IDs pass through
		{"a", "a"},               // lowercase is not an alias
		{"AB", "AB"},             // only single letters resolve
	}
	for _, tt := range tests {
		got, err := cache.Resolve(tt.ref)
		if err != nil {
			t.Errorf("Resolve(%q) error: %v", tt.ref, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Resolve(%q) = %q, want %q", tt.ref, got, tt.want)
		}
	}
}

func TestAliasCache_ResolveUnknownAlias(t *testing.T) {
	cache := NewAliasCache()
	cache.Store([]CachedFile{{ID: "doc-123", Name: "notes"}})

	_, err := cache.Resolve("Z")
	var notFound *AliasNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("got %v, want AliasNotFoundError", err)
	}
	if notFound.Alias != "Z" {
		t.Errorf("got alias %q, want Z", notFound.Alias)
	}
}

func TestAliasCache_StoreReplacesPrevious(t *testing.T) {
	cache := NewAliasCache()
	cache.Store([]CachedFile{{ID: "old", Name: "old"}, {ID: "old-2", Name: "old-2"}})
	cache.Store([]CachedFile{{ID: "new", Name: "new"}})

	got, err := cache.Resolve("A")
	if err != nil || got != "new" {
		t.Errorf("Resolve(A) = %q, %v, want new", got, err)
	}
	if _, err := cache.Resolve("B"); err == nil {
		t.Error("stale alias B should be gone after re-store")
	}
}

func TestAliasCache_StoreCapsAtTwentySix(t *testing.T) {
	files := make([]CachedFile, 30)
	for i := range files {
		files[i] = CachedFile{ID: "id", Name: "f"}
	}
	got := NewAliasCache().Store(files)
	if len(got) != 26 {
		t.Errorf("got %d cached files, want 26", len(got))
	}
	if got[25].Alias != "Z" {
		t.Errorf("got last alias %q, want Z", got[25].Alias)
	}
}
