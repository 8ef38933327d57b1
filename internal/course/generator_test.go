package course

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pavelanni/skillforge/internal/llm"
	"github.com/pavelanni/skillforge/internal/model"
)

const validCourseJSON = `{
  "topic": "Git Basics",
  "description": "Learn git from scratch",
  "difficulty": "beginner",
  "lessons": [
    {
      "title": "Getting Started",
      "objectives": ["Initialize a repository"],
      "exercises": [
        {"instruction": "Initialize a new repository", "expected_output": "git init", "hints": ["starts with git"]}
      ]
    }
  ]
}`

type stubJSONGenerator struct {
	reply json.RawMessage
	err   error
	calls int
}

func (g *stubJSONGenerator) GenerateJSON(_ context.Context, _ llm.Request, _ json.RawMessage) (json.RawMessage, error) {
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	return g.reply, nil
}

func TestGenerateCourse(t *testing.T) {
	gen := &stubJSONGenerator{reply: json.RawMessage(validCourseJSON)}
	g := New(gen, t.TempDir())

	crs, err := g.GenerateCourse(context.Background(), "Git Basics", model.DifficultyBeginner, 5, true)
	if err != nil {
		t.Fatalf("GenerateCourse: %v", err)
	}
	if crs.Topic != "Git Basics" {
		t.Errorf("Topic = %q", crs.Topic)
	}
	// IDs missing from the LLM reply are backfilled.
	if crs.ID == "" || crs.Lessons[0].ID == "" || crs.Lessons[0].Exercises[0].ID == "" {
		t.Error("expected backfilled IDs")
	}
	if gen.calls != 1 {
		t.Errorf("expected 1 LLM call, got %d", gen.calls)
	}
}

func TestGenerateCourseParameterValidation(t *testing.T) {
	g := New(&stubJSONGenerator{reply: json.RawMessage(validCourseJSON)}, t.TempDir())

	tests := []struct {
		name    string
		topic   string
		lessons int
	}{
		{"empty topic", "", 5},
		{"whitespace topic", "   ", 5},
		{"zero lessons", "git", 0},
		{"too many lessons", "git", 21},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := g.GenerateCourse(context.Background(), tt.topic, model.DifficultyBeginner, tt.lessons, false); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestGenerateCourseInvalidReply(t *testing.T) {
	tests := []struct {
		name  string
		reply string
	}{
		{"no lessons", `{"topic": "git", "description": "d", "difficulty": "beginner", "lessons": []}`},
		{"no topic", `{"description": "d", "difficulty": "beginner", "lessons": [{"title": "t", "exercises": [{"instruction": "i"}]}]}`},
		{"lesson without exercises", `{"topic": "git", "description": "d", "difficulty": "beginner", "lessons": [{"title": "t", "exercises": []}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := New(&stubJSONGenerator{reply: json.RawMessage(tt.reply)}, t.TempDir())
			if _, err := g.GenerateCourse(context.Background(), "git", model.DifficultyBeginner, 5, false); err == nil {
				t.Error("expected parse error")
			}
		})
	}
}

func TestGenerateCourseLLMError(t *testing.T) {
	g := New(&stubJSONGenerator{err: errors.New("rate limited")}, t.TempDir())
	_, err := g.GenerateCourse(context.Background(), "git", model.DifficultyBeginner, 5, false)
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestCacheHitSkipsLLM(t *testing.T) {
	gen := &stubJSONGenerator{reply: json.RawMessage(validCourseJSON)}
	g := New(gen, t.TempDir())

	if _, err := g.GenerateCourse(context.Background(), "Git Basics", model.DifficultyBeginner, 5, true); err != nil {
		t.Fatalf("first GenerateCourse: %v", err)
	}
	crs, err := g.GenerateCourse(context.Background(), "git basics  ", model.DifficultyBeginner, 5, true)
	if err != nil {
		t.Fatalf("second GenerateCourse: %v", err)
	}
	// Topic matching is case-insensitive and trims whitespace, so the
	// second call is a cache hit.
	if gen.calls != 1 {
		t.Errorf("expected 1 LLM call, got %d", gen.calls)
	}
	if crs.Topic != "Git Basics" {
		t.Errorf("Topic = %q", crs.Topic)
	}
}

func TestCacheBypass(t *testing.T) {
	gen := &stubJSONGenerator{reply: json.RawMessage(validCourseJSON)}
	g := New(gen, t.TempDir())

	g.GenerateCourse(context.Background(), "git", model.DifficultyBeginner, 5, true)
	g.GenerateCourse(context.Background(), "git", model.DifficultyBeginner, 5, false)
	if gen.calls != 2 {
		t.Errorf("expected cache bypass to call the LLM, got %d calls", gen.calls)
	}
}

func TestCacheKeyDependsOnParameters(t *testing.T) {
	base := cacheKey("git", model.DifficultyBeginner, 5)
	if base != cacheKey("  GIT ", model.DifficultyBeginner, 5) {
		t.Error("key must ignore case and whitespace in the topic")
	}
	if base == cacheKey("git", model.DifficultyAdvanced, 5) {
		t.Error("key must change with difficulty")
	}
	if base == cacheKey("git", model.DifficultyBeginner, 6) {
		t.Error("key must change with lesson count")
	}
	if len(base) != 16 {
		t.Errorf("key length = %d, want 16", len(base))
	}
}

func TestCacheExpiry(t *testing.T) {
	gen := &stubJSONGenerator{reply: json.RawMessage(validCourseJSON)}
	// A negative TTL makes every cache entry expired on arrival.
	g := NewWithTTL(gen, t.TempDir(), -time.Second)

	g.GenerateCourse(context.Background(), "git", model.DifficultyBeginner, 5, true)
	g.GenerateCourse(context.Background(), "git", model.DifficultyBeginner, 5, true)
	if gen.calls != 2 {
		t.Errorf("expected expired cache to regenerate, got %d calls", gen.calls)
	}

	// The expired entry was deleted, not just ignored.
	stats, err := g.Stats()
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.CachedCourses != 1 {
		t.Errorf("expected 1 cached course after rewrite, got %d", stats.CachedCourses)
	}
}

func TestCorruptCacheIsDeleted(t *testing.T) {
	dir := t.TempDir()
	gen := &stubJSONGenerator{reply: json.RawMessage(validCourseJSON)}
	g := New(gen, dir)

	key := cacheKey("git", model.DifficultyBeginner, 5)
	if err := os.WriteFile(filepath.Join(dir, key+".json"), []byte("{broken"), 0o644); err != nil {
		t.Fatalf("write corrupt cache: %v", err)
	}

	if _, err := g.GenerateCourse(context.Background(), "git", model.DifficultyBeginner, 5, true); err != nil {
		t.Fatalf("GenerateCourse: %v", err)
	}
	if gen.calls != 1 {
		t.Errorf("expected regeneration past corrupt cache, got %d calls", gen.calls)
	}
}

func TestClearCacheAndStats(t *testing.T) {
	gen := &stubJSONGenerator{reply: json.RawMessage(validCourseJSON)}
	g := New(gen, t.TempDir())

	g.GenerateCourse(context.Background(), "git", model.DifficultyBeginner, 5, true)
	g.GenerateCourse(context.Background(), "docker", model.DifficultyBeginner, 5, true)

	stats, err := g.Stats()
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.CachedCourses != 2 || stats.TotalSizeBytes == 0 {
		t.Errorf("unexpected stats %+v", stats)
	}

	n, err := g.ClearCache()
	if err != nil {
		t.Fatalf("ClearCache: %v", err)
	}
	if n != 2 {
		t.Errorf("cleared %d, want 2", n)
	}
	stats, _ = g.Stats()
	if stats.CachedCourses != 0 {
		t.Errorf("expected empty cache, got %+v", stats)
	}
}

func TestClearCacheMissingDir(t *testing.T) {
	g := New(nil, filepath.Join(t.TempDir(), "nope"))
	n, err := g.ClearCache()
	if err != nil || n != 0 {
		t.Errorf("expected 0/nil for missing dir, got %d/%v", n, err)
	}
}
