package turn

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/cloudwego/eino/schema"

	"github.com/okulov/planettalk/backend/internal/model/astro"
	chatModel "github.com/okulov/planettalk/backend/internal/model/chat"
	"github.com/okulov/planettalk/backend/internal/model/speaker"
	chatservice "github.com/okulov/planettalk/backend/internal/service/chat"
)

// stubGenerator streams two fragments per speaker, or an injected error.
type stubGenerator struct {
	failFor map[string]error
}

func (g *stubGenerator) StreamReply(_ context.Context, name string, record astro.BodyRecord, _ []chatModel.Message) (*schema.StreamReader[*schema.Message], error) {
	if err := record.Validate(); err != nil {
		return nil, err
	}

	if err, ok := g.failFor[name]; ok {
		reader, writer := schema.Pipe[*schema.Message](1)
		writer.Send(nil, err)
		writer.Close()
		return reader, nil
	}

	return schema.StreamReaderFromArray([]*schema.Message{
		schema.AssistantMessage("greetings from ", nil),
		schema.AssistantMessage(name, nil),
	}), nil
}

// recordingSink counts events per speaker; safe for concurrent use.
type recordingSink struct {
	mu        sync.Mutex
	started   []string
	fragments map[string][]string
	finals    map[string]string
	errored   map[string]error
}

func newRecordingSink() *recordingSink {
	return &recordingSink{
		fragments: make(map[string][]string),
		finals:    make(map[string]string),
		errored:   make(map[string]error),
	}
}

func (s *recordingSink) StartMessage(speaker string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = append(s.started, speaker)
}

func (s *recordingSink) Fragment(speaker, fragment string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fragments[speaker] = append(s.fragments[speaker], fragment)
}

func (s *recordingSink) FinalizeMessage(speaker, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finals[speaker] = content
}

func (s *recordingSink) SpeakerError(speaker string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errored[speaker] = err
}

func record(name string) astro.BodyRecord {
	return astro.BodyRecord{
		Name:     name,
		Quality:  "Cardinal",
		Element:  "Fire",
		Sign:     "Aries",
		Position: 10.5,
		House:    "First",
	}
}

func fullChart(names ...string) astro.Chart {
	chart := make(astro.Chart, len(names))
	for _, name := range names {
		chart[strings.ToLower(name)] = record(name)
	}
	return chart
}

func setup(t *testing.T, roster []speaker.Speaker, chart astro.Chart, gen Generator, sampleSize int) (*Orchestrator, *chatservice.Service, string) {
	t.Helper()

	chatSvc := chatservice.NewService(chatservice.NewMemoryStore())
	session, err := chatSvc.CreateSession(context.Background())
	if err != nil {
		t.Fatalf("CreateSession err: %v", err)
	}
	if chart != nil {
		if err := chatSvc.SaveChart(context.Background(), session.ID, chart); err != nil {
			t.Fatalf("SaveChart err: %v", err)
		}
	}

	store := speaker.NewMemoryStore(roster)
	return NewOrchestrator(chatSvc, gen, store, sampleSize), chatSvc, session.ID
}

func assistantMessages(t *testing.T, chatSvc *chatservice.Service, sessionID string) []chatModel.Message {
	t.Helper()

	messages, err := chatSvc.LoadTranscript(context.Background(), sessionID)
	if err != nil {
		t.Fatalf("LoadTranscript err: %v", err)
	}

	var assistants []chatModel.Message
	for _, msg := range messages {
		if msg.Role == chatModel.RoleAssistant {
			assistants = append(assistants, msg)
		}
	}
	return assistants
}

func TestRunTurnAppendsAllResponses(t *testing.T) {
	roster := speaker.Seed()
	names := make([]string, 0, len(roster))
	for _, sp := range roster {
		names = append(names, sp.Name)
	}

	orc, chatSvc, sessionID := setup(t, roster, fullChart(names...), &stubGenerator{}, 6)
	sink := newRecordingSink()

	if err := orc.RunTurn(context.Background(), sessionID, "how is my week looking?", sink); err != nil {
		t.Fatalf("RunTurn err: %v", err)
	}

	assistants := assistantMessages(t, chatSvc, sessionID)
	if len(assistants) != 6 {
		t.Fatalf("expected 6 assistant messages, got %d", len(assistants))
	}
	for _, msg := range assistants {
		if want := "greetings from " + msg.Speaker; msg.Content != want {
			t.Fatalf("partial or corrupted append for %s: %q", msg.Speaker, msg.Content)
		}
	}
	if len(sink.finals) != 6 {
		t.Fatalf("expected 6 finalized messages, got %d", len(sink.finals))
	}
	for name, fragments := range sink.fragments {
		if len(fragments) != 2 {
			t.Fatalf("expected 2 fragments for %s, got %d", name, len(fragments))
		}
	}
}

func TestRunTurnSkipsSpeakersWithoutChartData(t *testing.T) {
	roster := speaker.Seed()[:6]
	// Record available for only half of the roster.
	chart := fullChart(roster[0].Name, roster[1].Name, roster[2].Name)

	orc, chatSvc, sessionID := setup(t, roster, chart, &stubGenerator{}, 6)
	sink := newRecordingSink()

	if err := orc.RunTurn(context.Background(), sessionID, "hello", sink); err != nil {
		t.Fatalf("RunTurn err: %v", err)
	}

	if got := len(assistantMessages(t, chatSvc, sessionID)); got != 3 {
		t.Fatalf("expected 3 assistant messages, got %d", got)
	}
	if len(sink.errored) != 0 {
		t.Fatalf("missing chart data should be skipped silently, got errors: %v", sink.errored)
	}
}

func TestRunTurnSpeakerFailureDoesNotCancelSiblings(t *testing.T) {
	roster := speaker.Seed()[:6]
	names := make([]string, 0, len(roster))
	for _, sp := range roster {
		names = append(names, sp.Name)
	}

	transportErr := fmt.Errorf("connection reset by peer")
	gen := &stubGenerator{failFor: map[string]error{"Mars": transportErr}}
	orc, chatSvc, sessionID := setup(t, roster, fullChart(names...), gen, 6)
	sink := newRecordingSink()

	err := orc.RunTurn(context.Background(), sessionID, "hello", sink)
	if !errors.Is(err, ErrGeneration) {
		t.Fatalf("err = %v, want ErrGeneration", err)
	}

	assistants := assistantMessages(t, chatSvc, sessionID)
	if len(assistants) != 5 {
		t.Fatalf("expected 5 assistant messages, got %d", len(assistants))
	}
	for _, msg := range assistants {
		if msg.Speaker == "Mars" {
			t.Fatal("failed speaker must not land in history")
		}
	}
	if _, ok := sink.errored["Mars"]; !ok {
		t.Fatal("expected speaker error event for Mars")
	}
}

func TestRunTurnSkipsIncompleteRecords(t *testing.T) {
	roster := speaker.Seed()[:2]
	chart := fullChart(roster[0].Name, roster[1].Name)
	broken := chart[strings.ToLower(roster[1].Name)]
	broken.Sign = ""
	chart[strings.ToLower(roster[1].Name)] = broken

	orc, chatSvc, sessionID := setup(t, roster, chart, &stubGenerator{}, 2)
	sink := newRecordingSink()

	if err := orc.RunTurn(context.Background(), sessionID, "hello", sink); err != nil {
		t.Fatalf("incomplete record must not fail the turn: %v", err)
	}

	if got := len(assistantMessages(t, chatSvc, sessionID)); got != 1 {
		t.Fatalf("expected 1 assistant message, got %d", got)
	}
}

func TestRunTurnInsufficientSpeakers(t *testing.T) {
	roster := speaker.Seed()[:3]
	orc, _, sessionID := setup(t, roster, fullChart("Sun", "Moon", "Mercury"), &stubGenerator{}, 6)

	err := orc.RunTurn(context.Background(), sessionID, "hello", newRecordingSink())
	if !errors.Is(err, ErrInsufficientSpeakers) {
		t.Fatalf("err = %v, want ErrInsufficientSpeakers", err)
	}
}

func TestSampleSpeakersSizeAndUniqueness(t *testing.T) {
	orc, _, _ := setup(t, speaker.Seed(), nil, &stubGenerator{}, 6)

	for i := 0; i < 50; i++ {
		selected, err := orc.sampleSpeakers()
		if err != nil {
			t.Fatalf("sampleSpeakers err: %v", err)
		}
		if len(selected) != 6 {
			t.Fatalf("expected 6 speakers, got %d", len(selected))
		}

		seen := make(map[string]bool, len(selected))
		for _, sp := range selected {
			if seen[sp.Name] {
				t.Fatalf("duplicate speaker in sample: %s", sp.Name)
			}
			seen[sp.Name] = true
		}
	}
}

func TestSampleSpeakersVariesAcrossTurns(t *testing.T) {
	orc, _, _ := setup(t, speaker.Seed(), nil, &stubGenerator{}, 6)

	sets := make(map[string]bool)
	for i := 0; i < 100; i++ {
		selected, err := orc.sampleSpeakers()
		if err != nil {
			t.Fatalf("sampleSpeakers err: %v", err)
		}
		names := make([]string, 0, len(selected))
		for _, sp := range selected {
			names = append(names, sp.Name)
		}
		sets[strings.Join(names, ",")] = true
	}

	// 100 draws of 6-of-10 collapsing to one ordering would mean the
	// sampler is not random at all.
	if len(sets) < 2 {
		t.Fatalf("expected varied samples, got %d distinct", len(sets))
	}
}

func TestChartTriggerNormalization(t *testing.T) {
	cases := []struct {
		text      string
		isTrigger bool
		want      string
	}{
		{"create my chart", true, DefaultChartQuestion},
		{"Create My Chart", true, DefaultChartQuestion},
		{"  CREATE MY CHART  ", true, DefaultChartQuestion},
		{"create my chart please", true, "create my chart please"},
		{"what about mars?", false, "what about mars?"},
	}

	for _, tc := range cases {
		if got := IsChartTrigger(tc.text); got != tc.isTrigger {
			t.Errorf("IsChartTrigger(%q) = %v, want %v", tc.text, got, tc.isTrigger)
		}
		if got := NormalizeUserMessage(tc.text); got != tc.want {
			t.Errorf("NormalizeUserMessage(%q) = %q, want %q", tc.text, got, tc.want)
		}
	}
}
