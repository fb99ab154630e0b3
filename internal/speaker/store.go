// Store persists SpeakerProfiles, one binary file per profile, and
// implements the cosine-similarity matching and EMA refinement from
// spec.md §4.6. Adapted from the teacher's voiceprint.Store: same
// atomic write-tmp+rename persistence idiom, but one file per speaker
// (keyed by slug) rather than a single speakers.json, and the fixed
// 0.95/0.05 EMA coefficient spec.md requires instead of the teacher's
// seenCount-weighted running average.
package speaker

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

const flushEveryNUpdates = 10

// Store is the in-memory ProfileStore of spec.md §3: dirty count
// drives debounced flush.
type Store struct {
	dir string

	mu       sync.RWMutex
	profiles map[string]*Profile // keyed by slug
	dirty    int
}

func NewStore(dir string) (*Store, error) {
	s := &Store{dir: dir, profiles: make(map[string]*Profile)}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) load() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read profiles dir: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".bin" {
			continue
		}
		path := filepath.Join(s.dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			slog.Warn("skipping unreadable speaker profile", "path", path, "error", err)
			continue
		}
		profile, err := UnmarshalProfile(data)
		if err != nil {
			slog.Warn("skipping corrupt speaker profile", "path", path, "error", err)
			continue
		}
		slug := entry.Name()[:len(entry.Name())-len(".bin")]
		s.profiles[slug] = &profile
	}
	return nil
}

// All returns a copy of every profile currently held.
func (s *Store) All() []Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Profile, 0, len(s.profiles))
	for _, p := range s.profiles {
		out = append(out, *p)
	}
	return out
}

// Add creates a new profile (from enrollment) and writes it atomically
// immediately, since enrollment is an explicit, low-frequency operation
// unlike the pipeline's debounced per-chunk refinement.
func (s *Store) Add(name string, embedding Embedding) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	slug := Slug(name)
	profile := &Profile{Name: name, Embedding: embedding.Normalise()}
	s.profiles[slug] = profile
	return s.writeProfile(slug, profile)
}

// Remove deletes a profile's file and in-memory entry.
func (s *Store) Remove(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	slug := Slug(name)
	if _, ok := s.profiles[slug]; !ok {
		return fmt.Errorf("speaker profile not found: %s", name)
	}
	delete(s.profiles, slug)
	path := filepath.Join(s.dir, slug+".bin")
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove profile file: %w", err)
	}
	return nil
}

// Match computes cosine similarity against every profile and returns
// the best match. If max_sim < minConfidence it returns ok=false
// ("unknown"), per spec.md §4.6.
func (s *Store) Match(e Embedding, minConfidence float32) (name string, similarity float32, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var bestName string
	var bestSim float32 = -2
	for _, p := range s.profiles {
		sim := CosineSimilarity(e, p.Embedding)
		if sim > bestSim {
			bestSim = sim
			bestName = p.Name
		}
	}

	if bestName == "" || bestSim < minConfidence {
		return "", bestSim, false
	}
	return bestName, bestSim, true
}

// Refine updates the matched profile's embedding via EMA and marks the
// store dirty; actual persistence is debounced (see MaybeFlush).
func (s *Store) Refine(name string, newEmbedding Embedding) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	slug := Slug(name)
	p, ok := s.profiles[slug]
	if !ok {
		return fmt.Errorf("speaker profile not found: %s", name)
	}
	p.Embedding = p.Embedding.Refine(newEmbedding)
	p.UpdateCount++
	s.dirty++
	return nil
}

// MaybeFlush writes every profile to disk if the store has accumulated
// at least flushEveryNUpdates unflushed refinements, per spec.md §4.9.
func (s *Store) MaybeFlush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dirty < flushEveryNUpdates {
		return nil
	}
	return s.flushLocked()
}

// Flush unconditionally writes every profile to disk, used on
// pipeline shutdown regardless of the debounce counter.
func (s *Store) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushLocked()
}

func (s *Store) flushLocked() error {
	for slug, p := range s.profiles {
		if err := s.writeProfile(slug, p); err != nil {
			return err
		}
	}
	s.dirty = 0
	return nil
}

// writeProfile persists one profile atomically via write-to-tmp +
// rename, per spec.md §4.6 and §6. Caller must hold s.mu.
func (s *Store) writeProfile(slug string, p *Profile) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create profiles dir: %w", err)
	}

	data, err := p.Marshal()
	if err != nil {
		return fmt.Errorf("marshal profile %s: %w", p.Name, err)
	}

	path := filepath.Join(s.dir, slug+".bin")
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write temp profile: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp profile: %w", err)
	}
	return nil
}
