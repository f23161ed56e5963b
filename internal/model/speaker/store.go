package speaker

import "strings"

// Store exposes speaker retrieval for handlers and the orchestrator.
type Store interface {
	List() []Speaker
	FindByName(name string) (Speaker, bool)
}

// MemoryStore implements Store with an in-memory slice.
type MemoryStore struct {
	items []Speaker
}

// NewMemoryStore returns a MemoryStore preloaded with the supplied speakers.
func NewMemoryStore(items []Speaker) *MemoryStore {
	return &MemoryStore{items: append([]Speaker(nil), items...)}
}

// List returns the fixed speaker roster.
func (s *MemoryStore) List() []Speaker {
	return append([]Speaker(nil), s.items...)
}

// FindByName looks up a speaker by case-insensitive name.
func (s *MemoryStore) FindByName(name string) (Speaker, bool) {
	for _, item := range s.items {
		if strings.EqualFold(item.Name, name) {
			return item, true
		}
	}
	return Speaker{}, false
}
