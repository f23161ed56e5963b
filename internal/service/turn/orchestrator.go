package turn

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"

	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"

	"github.com/okulov/planettalk/backend/internal/logging"
	"github.com/okulov/planettalk/backend/internal/model/astro"
	"github.com/okulov/planettalk/backend/internal/model/chat"
	"github.com/okulov/planettalk/backend/internal/model/speaker"
	chatservice "github.com/okulov/planettalk/backend/internal/service/chat"
)

var (
	// ErrInsufficientSpeakers means the roster is smaller than the
	// configured sample size. This is a misconfiguration and fatal to
	// the turn.
	ErrInsufficientSpeakers = errors.New("not enough speakers for turn")
	// ErrGeneration wraps a failed streaming generation request.
	ErrGeneration = errors.New("generation failed")
)

// ChartTrigger starts the birth-data flow. Matched case-insensitively
// by prefix; a message that is nothing but the trigger is replaced by
// DefaultChartQuestion before the turn runs.
const ChartTrigger = "create my chart"

// DefaultChartQuestion substitutes for a bare chart trigger so the
// planets have something to answer.
const DefaultChartQuestion = "please tell about your influence on my life; try to be helpful, include details and numbers, avoid warnings"

// IsChartTrigger reports whether the message starts the chart flow.
func IsChartTrigger(text string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(text)), ChartTrigger)
}

// NormalizeUserMessage swaps a bare chart trigger for the default
// question and leaves everything else untouched.
func NormalizeUserMessage(text string) string {
	if strings.ToLower(strings.TrimSpace(text)) == ChartTrigger {
		return DefaultChartQuestion
	}
	return text
}

// Generator opens one streaming generation request for a speaker.
// Implemented by the AI service; faked in tests.
type Generator interface {
	StreamReply(ctx context.Context, speaker string, record astro.BodyRecord, history []chat.Message) (*schema.StreamReader[*schema.Message], error)
}

// Orchestrator runs one turn: it appends the user message, samples the
// roster, launches one responder per sampled speaker and waits for all
// of them to reach a terminal state.
type Orchestrator struct {
	chatSvc    *chatservice.Service
	generator  Generator
	speakers   speaker.Store
	sampleSize int
}

// NewOrchestrator wires the turn dependencies.
func NewOrchestrator(chatSvc *chatservice.Service, generator Generator, speakers speaker.Store, sampleSize int) *Orchestrator {
	return &Orchestrator{
		chatSvc:    chatSvc,
		generator:  generator,
		speakers:   speakers,
		sampleSize: sampleSize,
	}
}

// RunTurn executes one user turn against the session's chart. Speakers
// whose chart record is absent are skipped. A failing responder does
// not cancel its siblings; all failures are joined into the returned
// error after every responder has finished.
func (o *Orchestrator) RunTurn(ctx context.Context, sessionID, userMessage string, sink EventSink) error {
	if err := o.chatSvc.AppendMessage(ctx, chat.Message{
		SessionID: sessionID,
		Role:      chat.RoleUser,
		Content:   userMessage,
	}); err != nil {
		return err
	}

	chart, _, err := o.chatSvc.Chart(ctx, sessionID)
	if err != nil {
		return err
	}

	selected, err := o.sampleSpeakers()
	if err != nil {
		return err
	}

	// Every responder generates against the same snapshot, taken right
	// after the user message landed. Completed sibling replies within
	// this turn are deliberately not part of each other's context.
	history, err := o.chatSvc.LoadTranscript(ctx, sessionID)
	if err != nil {
		return err
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	var failures []error

	for _, sp := range selected {
		record, ok := chart.Lookup(sp.Name)
		if !ok {
			logging.AppLogger.Info("speaker data not found in chart, skipping",
				zap.String("speaker", sp.Name),
				zap.String("session", sessionID),
			)
			continue
		}

		wg.Add(1)
		go func(name string, record astro.BodyRecord) {
			defer wg.Done()
			if err := o.respondAs(ctx, sessionID, name, record, history, sink); err != nil {
				sink.SpeakerError(name, err)
				mu.Lock()
				failures = append(failures, fmt.Errorf("%s: %w", name, err))
				mu.Unlock()
			}
		}(sp.Name, record)
	}

	wg.Wait()
	return errors.Join(failures...)
}

// sampleSpeakers picks sampleSize speakers uniformly at random without
// replacement.
func (o *Orchestrator) sampleSpeakers() ([]speaker.Speaker, error) {
	all := o.speakers.List()
	if len(all) < o.sampleSize {
		return nil, fmt.Errorf("%w: need %d, roster has %d", ErrInsufficientSpeakers, o.sampleSize, len(all))
	}

	selected := make([]speaker.Speaker, 0, o.sampleSize)
	for _, idx := range rand.Perm(len(all))[:o.sampleSize] {
		selected = append(selected, all[idx])
	}
	return selected, nil
}
