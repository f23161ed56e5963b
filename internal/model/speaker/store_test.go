package speaker_test

import (
	"testing"

	"github.com/okulov/planettalk/backend/internal/model/speaker"
)

func TestSeedRoster(t *testing.T) {
	roster := speaker.Seed()
	if len(roster) != 10 {
		t.Fatalf("expected 10 planets, got %d", len(roster))
	}

	seen := make(map[string]bool)
	for _, sp := range roster {
		if sp.Name == "" || sp.AvatarURL == "" {
			t.Fatalf("incomplete speaker: %+v", sp)
		}
		if seen[sp.Name] {
			t.Fatalf("duplicate speaker: %s", sp.Name)
		}
		seen[sp.Name] = true
	}
}

func TestFindByNameCaseInsensitive(t *testing.T) {
	store := speaker.NewMemoryStore(speaker.Seed())

	for _, name := range []string{"Mars", "mars", "MARS"} {
		sp, ok := store.FindByName(name)
		if !ok {
			t.Fatalf("FindByName(%q) missed", name)
		}
		if sp.Name != "Mars" {
			t.Fatalf("unexpected speaker: %s", sp.Name)
		}
	}

	if _, ok := store.FindByName("Earth"); ok {
		t.Fatal("Earth is not in the roster")
	}
}
