package ai

import (
	"errors"
	"strings"
	"testing"

	"github.com/okulov/planettalk/backend/internal/model/astro"
)

func sampleRecord() astro.BodyRecord {
	return astro.BodyRecord{
		Name:       "Sun",
		Quality:    "Cardinal",
		Element:    "Fire",
		Sign:       "Aries",
		Position:   22.1,
		House:      "First",
		Retrograde: false,
	}
}

func TestRenderSpeakerPrompt(t *testing.T) {
	got, err := RenderSpeakerPrompt("Sun", sampleRecord())
	if err != nil {
		t.Fatalf("RenderSpeakerPrompt err: %v", err)
	}

	want := "speak as Sun. You are the Sun, with the quality Cardinal and element Fire. " +
		"Currently, at the moment of my birth you are in the sign of Aries at position 22.1. " +
		"You are in the First house and moving in a direct motion."
	if got != want {
		t.Fatalf("unexpected prompt:\n got: %s\nwant: %s", got, want)
	}
}

func TestRenderSpeakerPromptDeterministic(t *testing.T) {
	first, err := RenderSpeakerPrompt("Mars", sampleRecord())
	if err != nil {
		t.Fatalf("RenderSpeakerPrompt err: %v", err)
	}
	second, err := RenderSpeakerPrompt("Mars", sampleRecord())
	if err != nil {
		t.Fatalf("RenderSpeakerPrompt err: %v", err)
	}
	if first != second {
		t.Fatal("expected identical output for identical input")
	}
}

func TestRenderSpeakerPromptRetrograde(t *testing.T) {
	record := sampleRecord()
	record.Retrograde = true

	got, err := RenderSpeakerPrompt("Mercury", record)
	if err != nil {
		t.Fatalf("RenderSpeakerPrompt err: %v", err)
	}
	if want := "moving in a retrograde motion."; !strings.Contains(got, want) {
		t.Fatalf("expected %q in prompt, got: %s", want, got)
	}
}

func TestRenderSpeakerPromptMissingAttribute(t *testing.T) {
	record := sampleRecord()
	record.Quality = ""

	if _, err := RenderSpeakerPrompt("Sun", record); !errors.Is(err, astro.ErrMissingAttribute) {
		t.Fatalf("err = %v, want ErrMissingAttribute", err)
	}
}
