package snapshot

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

type countingSource struct {
	calls int
	err   error
}

func (s *countingSource) Fetch(ctx context.Context) ([]map[string]interface{}, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return []map[string]interface{}{{"type": "intro", "data": map[string]interface{}{"subtitle": "x"}}}, nil
}

func TestEmbeddedSnapshotCoversEveryType(t *testing.T) {
	docs, err := EmbeddedSource{}.Fetch(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	seen := map[string]bool{}
	for _, d := range docs {
		seen[d["type"].(string)] = true
	}
	for _, typ := range []string{"intro", "skills", "projects", "experience", "education", "capabilities", "footerAndLinks"} {
		if !seen[typ] {
			t.Errorf("snapshot missing %s", typ)
		}
	}
}

func TestCachedFetchesOnce(t *testing.T) {
	src := &countingSource{}
	c := NewCached(src)

	first, err := c.Fetch(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	first[0]["data"].(map[string]interface{})["subtitle"] = "mutated"

	second, err := c.Fetch(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if src.calls != 1 {
		t.Fatalf("source called %d times", src.calls)
	}
	if got := second[0]["data"].(map[string]interface{})["subtitle"]; got != "x" {
		t.Fatalf("cached snapshot was mutated through a returned copy: %v", got)
	}
}

func TestCachedRetriesAfterError(t *testing.T) {
	src := &countingSource{err: errors.New("boom")}
	c := NewCached(src)

	if _, err := c.Fetch(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	src.err = nil
	if _, err := c.Fetch(context.Background()); err != nil {
		t.Fatal(err)
	}
	if src.calls != 2 {
		t.Fatalf("expected a retry, calls=%d", src.calls)
	}
}

func TestFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snap.json")
	if err := os.WriteFile(path, []byte(`[{"type":"skills","data":{}}]`), 0o644); err != nil {
		t.Fatal(err)
	}
	docs, err := FileSource{Path: path}.Fetch(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 1 || docs[0]["type"] != "skills" {
		t.Fatalf("unexpected docs %v", docs)
	}

	if _, err := (FileSource{Path: filepath.Join(t.TempDir(), "missing.json")}).Fetch(context.Background()); err == nil {
		t.Fatal("expected error for missing file")
	}
}
