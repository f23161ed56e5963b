package turn

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"

	"github.com/okulov/planettalk/backend/internal/logging"
	"github.com/okulov/planettalk/backend/internal/model/astro"
	"github.com/okulov/planettalk/backend/internal/model/chat"
)

// respondAs runs one speaker's reply: open the stream, forward each
// fragment to the sink as it arrives, then append the accumulated
// message to the shared history and finalize the UI message. The
// history append is a single store operation, so concurrent responders
// never interleave partial writes.
func (o *Orchestrator) respondAs(ctx context.Context, sessionID, speaker string, record astro.BodyRecord, history []chat.Message, sink EventSink) error {
	stream, err := o.generator.StreamReply(ctx, speaker, record, history)
	if err != nil {
		if errors.Is(err, astro.ErrMissingAttribute) {
			// Incomplete record: skip the speaker, not a turn failure.
			logging.AppLogger.Info("chart record incomplete, skipping speaker",
				zap.String("speaker", speaker),
				zap.String("session", sessionID),
				zap.Error(err),
			)
			return nil
		}
		return fmt.Errorf("%w: %w", ErrGeneration, err)
	}
	defer stream.Close()

	sink.StartMessage(speaker)

	chunks := make([]*schema.Message, 0, 8)
	for {
		chunk, recvErr := stream.Recv()
		if errors.Is(recvErr, io.EOF) {
			break
		}
		if recvErr != nil {
			return fmt.Errorf("%w: %w", ErrGeneration, recvErr)
		}
		if chunk == nil {
			continue
		}

		chunks = append(chunks, chunk)
		if chunk.Content != "" {
			sink.Fragment(speaker, chunk.Content)
		}
	}

	content := ""
	if len(chunks) > 0 {
		full, err := schema.ConcatMessages(chunks)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrGeneration, err)
		}
		content = full.Content
	}

	if err := o.chatSvc.AppendMessage(ctx, chat.Message{
		SessionID: sessionID,
		Role:      chat.RoleAssistant,
		Speaker:   speaker,
		Content:   content,
	}); err != nil {
		return err
	}

	sink.FinalizeMessage(speaker, content)
	return nil
}
