// Package topicregistry tracks the set of live topics and their backing
// topiclog.Topic handles, enumerating existing topic directories at
// startup and lazily creating new ones on demand.
package topicregistry

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"eventqueued/internal/rlog"
	"eventqueued/internal/topiclog"
)

// Registry is the single source of truth for "what topics exist." It
// caches each topic's open *topiclog.Topic behind a read-write lock, the
// same shape the teacher used to cache per-topic metadata behind a
// concurrent structure, generalized here to a construct-under-lock
// map since get_or_create needs to check-then-create atomically.
type Registry struct {
	dataDir string

	mu     sync.RWMutex
	topics map[string]*topiclog.Topic
}

// Open enumerates dataDir for existing topic subdirectories, opening
// (and recovering) each one, then returns a ready Registry.
func Open(dataDir string) (*Registry, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("topicregistry: create data directory %q: %w", dataDir, err)
	}

	r := &Registry{
		dataDir: dataDir,
		topics:  make(map[string]*topiclog.Topic),
	}

	entries, err := os.ReadDir(dataDir)
	if err != nil {
		return nil, fmt.Errorf("topicregistry: read data directory %q: %w", dataDir, err)
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()
		topic, err := topiclog.Open(filepath.Join(dataDir, name), name)
		if err != nil {
			return nil, fmt.Errorf("topicregistry: recover topic %q: %w", name, err)
		}
		r.topics[name] = topic
		rlog.Info("topicregistry: recovered topic %q at next_offset=%d", name, topic.NextOffset())
	}
	return r, nil
}

// GetOrCreate returns the topic's handle, opening and recovering it from
// disk the first time it's requested, and creating it if it has never
// existed.
func (r *Registry) GetOrCreate(name string) (*topiclog.Topic, error) {
	if name == "" {
		return nil, topiclog.ErrEmptyName
	}

	r.mu.RLock()
	topic, ok := r.topics[name]
	r.mu.RUnlock()
	if ok {
		return topic, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if topic, ok := r.topics[name]; ok {
		return topic, nil
	}

	topic, err := topiclog.Open(filepath.Join(r.dataDir, name), name)
	if err != nil {
		return nil, fmt.Errorf("topicregistry: create topic %q: %w", name, err)
	}
	r.topics[name] = topic
	rlog.Info("topicregistry: created topic %q", name)
	return topic, nil
}

// Get returns the topic's handle without creating it.
func (r *Registry) Get(name string) (*topiclog.Topic, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	topic, ok := r.topics[name]
	return topic, ok
}

// List returns every known topic name, sorted for deterministic output.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.topics))
	for name := range r.topics {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close closes every open topic, returning the first error encountered.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var firstErr error
	for name, topic := range r.topics {
		if err := topic.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("topicregistry: close topic %q: %w", name, err)
		}
	}
	return firstErr
}
