// Package course generates complete learning courses through the LLM's
// JSON mode and caches them on disk so repeated runs for the same topic
// and difficulty do not burn API calls.
package course

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pavelanni/skillforge/internal/llm"
	"github.com/pavelanni/skillforge/internal/model"
)

// DefaultCacheTTL is how long a cached course stays valid.
const DefaultCacheTTL = 30 * 24 * time.Hour

const (
	minLessons = 1
	maxLessons = 20
)

// JSONGenerator is the slice of the LLM client the generator needs.
type JSONGenerator interface {
	GenerateJSON(ctx context.Context, req llm.Request, schema json.RawMessage) (json.RawMessage, error)
}

// Generator creates courses and manages the on-disk course cache.
type Generator struct {
	gen      JSONGenerator
	cacheDir string
	cacheTTL time.Duration
}

// New creates a generator caching under cacheDir with the default TTL.
func New(gen JSONGenerator, cacheDir string) *Generator {
	return &Generator{gen: gen, cacheDir: cacheDir, cacheTTL: DefaultCacheTTL}
}

// NewWithTTL is New with an explicit cache TTL.
func NewWithTTL(gen JSONGenerator, cacheDir string, ttl time.Duration) *Generator {
	return &Generator{gen: gen, cacheDir: cacheDir, cacheTTL: ttl}
}

// GenerateCourse produces a complete course for the topic. With useCache
// set, a fresh-enough cached course for the same (topic, difficulty,
// numLessons) triple is returned without calling the LLM.
func (g *Generator) GenerateCourse(ctx context.Context, topic string, difficulty model.Difficulty, numLessons int, useCache bool) (*model.Course, error) {
	if strings.TrimSpace(topic) == "" {
		return nil, fmt.Errorf("topic cannot be empty")
	}
	if numLessons < minLessons || numLessons > maxLessons {
		return nil, fmt.Errorf("number of lessons must be between %d and %d, got %d", minLessons, maxLessons, numLessons)
	}

	key := cacheKey(topic, difficulty, numLessons)
	if useCache {
		if cached := g.loadFromCache(key); cached != nil {
			return cached, nil
		}
	}

	raw, err := g.gen.GenerateJSON(ctx, llm.Request{
		Prompt:       buildCoursePrompt(topic, difficulty, numLessons),
		SystemPrompt: courseSystemPrompt,
		Temperature:  0.7,
		MaxTokens:    4096,
	}, json.RawMessage(courseSchema))
	if err != nil {
		return nil, fmt.Errorf("generate course for %q: %w", topic, err)
	}

	crs, err := parseCourseData(raw)
	if err != nil {
		return nil, fmt.Errorf("parse course for %q: %w", topic, err)
	}

	if useCache {
		g.saveToCache(key, crs)
	}
	return crs, nil
}

// parseCourseData decodes the LLM response into a course, backfills any
// missing IDs, and validates the structure.
func parseCourseData(raw json.RawMessage) (*model.Course, error) {
	var crs model.Course
	if err := json.Unmarshal(raw, &crs); err != nil {
		return nil, fmt.Errorf("decode course JSON: %w", err)
	}

	if crs.ID == "" {
		crs.ID = uuid.NewString()
	}
	for i := range crs.Lessons {
		lesson := &crs.Lessons[i]
		if lesson.ID == "" {
			lesson.ID = uuid.NewString()
		}
		for j := range lesson.Exercises {
			if lesson.Exercises[j].ID == "" {
				lesson.Exercises[j].ID = uuid.NewString()
			}
		}
	}

	if err := validateCourse(&crs); err != nil {
		return nil, err
	}
	return &crs, nil
}

func validateCourse(crs *model.Course) error {
	if strings.TrimSpace(crs.Topic) == "" {
		return fmt.Errorf("course has no topic")
	}
	if len(crs.Lessons) == 0 {
		return fmt.Errorf("course %q has no lessons", crs.Topic)
	}
	for i := range crs.Lessons {
		lesson := &crs.Lessons[i]
		if strings.TrimSpace(lesson.Title) == "" {
			return fmt.Errorf("lesson %d has no title", i+1)
		}
		if len(lesson.Exercises) == 0 {
			return fmt.Errorf("lesson %q has no exercises", lesson.Title)
		}
		for j := range lesson.Exercises {
			if strings.TrimSpace(lesson.Exercises[j].Instruction) == "" {
				return fmt.Errorf("lesson %q exercise %d has no instruction", lesson.Title, j+1)
			}
		}
	}
	if crs.Difficulty == "" {
		crs.Difficulty = model.DifficultyBeginner
	}
	return nil
}

// cacheKey derives a stable 16-hex-character key from the generation
// parameters. Topic matching is case-insensitive and ignores surrounding
// whitespace.
func cacheKey(topic string, difficulty model.Difficulty, numLessons int) string {
	input := struct {
		Difficulty string `json:"difficulty"`
		NumLessons int    `json:"num_lessons"`
		Topic      string `json:"topic"`
	}{
		Difficulty: string(difficulty),
		NumLessons: numLessons,
		Topic:      strings.ToLower(strings.TrimSpace(topic)),
	}
	data, _ := json.Marshal(input)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])[:16]
}

func (g *Generator) cachePath(key string) string {
	return filepath.Join(g.cacheDir, key+".json")
}

// loadFromCache returns the cached course for key, or nil on miss.
// Expired and unparsable cache files are deleted.
func (g *Generator) loadFromCache(key string) *model.Course {
	path := g.cachePath(key)
	info, err := os.Stat(path)
	if err != nil {
		return nil
	}

	if time.Since(info.ModTime()) > g.cacheTTL {
		os.Remove(path)
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var crs model.Course
	if err := json.Unmarshal(data, &crs); err != nil || validateCourse(&crs) != nil {
		os.Remove(path)
		return nil
	}
	return &crs
}

// saveToCache writes the course to the cache. Write errors are ignored;
// a cold cache only costs a regeneration.
func (g *Generator) saveToCache(key string, crs *model.Course) {
	if err := os.MkdirAll(g.cacheDir, 0o755); err != nil {
		return
	}
	data, err := json.MarshalIndent(crs, "", "  ")
	if err != nil {
		return
	}
	os.WriteFile(g.cachePath(key), data, 0o644)
}

// ClearCache deletes all cached courses and reports how many were removed.
func (g *Generator) ClearCache() (int, error) {
	entries, err := os.ReadDir(g.cacheDir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("read cache dir: %w", err)
	}
	count := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		if err := os.Remove(filepath.Join(g.cacheDir, entry.Name())); err == nil {
			count++
		}
	}
	return count, nil
}

// CacheStats describes the current state of the course cache.
type CacheStats struct {
	CachedCourses  int    `json:"cached_courses"`
	TotalSizeBytes int64  `json:"total_size_bytes"`
	CacheDir       string `json:"cache_dir"`
}

// Stats reports the number and total size of cached courses.
func (g *Generator) Stats() (CacheStats, error) {
	stats := CacheStats{CacheDir: g.cacheDir}
	entries, err := os.ReadDir(g.cacheDir)
	if err != nil {
		if os.IsNotExist(err) {
			return stats, nil
		}
		return stats, fmt.Errorf("read cache dir: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		stats.CachedCourses++
		stats.TotalSizeBytes += info.Size()
	}
	return stats, nil
}
