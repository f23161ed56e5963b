package turn

// EventSink receives turn events for delivery to the chat UI.
// Responders for different speakers call it from separate goroutines,
// so implementations must serialize their writes. Fragments for one
// speaker arrive in generation order; fragments of different speakers
// interleave in whatever order the streams produce them.
type EventSink interface {
	// StartMessage opens an empty message authored by the speaker.
	StartMessage(speaker string)
	// Fragment appends one streamed fragment to the speaker's open message.
	Fragment(speaker, fragment string)
	// FinalizeMessage closes the speaker's message with its full content.
	FinalizeMessage(speaker, content string)
	// SpeakerError reports that the speaker's reply failed. Other
	// speakers are unaffected.
	SpeakerError(speaker string, err error)
}
