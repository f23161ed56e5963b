package ai

import (
	"fmt"
	"strconv"

	"github.com/okulov/planettalk/backend/internal/model/astro"
)

// RenderSpeakerPrompt builds the in-character instruction for one
// celestial body from its chart record. The output is a pure function
// of its inputs. A record missing a required attribute fails with
// astro.ErrMissingAttribute so the caller can skip the speaker.
func RenderSpeakerPrompt(speaker string, record astro.BodyRecord) (string, error) {
	if err := record.Validate(); err != nil {
		return "", fmt.Errorf("render prompt for %s: %w", speaker, err)
	}

	motion := "direct"
	if record.Retrograde {
		motion = "retrograde"
	}

	return fmt.Sprintf(
		"speak as %s. You are the %s, with the quality %s and element %s. "+
			"Currently, at the moment of my birth you are in the sign of %s at position %s. "+
			"You are in the %s house and moving in a %s motion.",
		speaker,
		record.Name,
		record.Quality,
		record.Element,
		record.Sign,
		strconv.FormatFloat(record.Position, 'g', -1, 64),
		record.House,
		motion,
	), nil
}
