package ai

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"

	"github.com/okulov/planettalk/backend/internal/config"
	"github.com/okulov/planettalk/backend/internal/logging"
	"github.com/okulov/planettalk/backend/internal/model/astro"
	"github.com/okulov/planettalk/backend/internal/model/chat"
)

// defaultSystemPrompt is used when a session history carries no system
// message of its own.
const defaultSystemPrompt = "You're entering a conversation with the celestial bodies of our solar system. Please ask them any question or advice you seek."

// Service generates in-character streaming replies for speakers.
type Service struct {
	chatModel model.ChatModel
	cfg       config.AIConfig
	chain     compose.Runnable[map[string]any, *schema.Message]
}

// NewService builds the chat model and compiles the prompt chain.
func NewService(ctx context.Context, cfg config.AIConfig) (*Service, error) {
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}

	return &Service{
		chatModel: chatModel,
		cfg:       cfg,
		chain:     runnable,
	}, nil
}

// StreamReply opens a streaming generation request for one speaker. The
// rendered chart prompt rides as the final user message so the model
// answers in character against the shared history.
func (s *Service) StreamReply(ctx context.Context, speaker string, record astro.BodyRecord, history []chat.Message) (*schema.StreamReader[*schema.Message], error) {
	query, err := RenderSpeakerPrompt(speaker, record)
	if err != nil {
		return nil, err
	}

	input := map[string]any{
		"system":  systemPromptFrom(history),
		"history": historyMessages(history),
		"query":   query,
	}

	stream, err := s.chain.Stream(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to stream reply for %s: %w", speaker, err)
	}

	logging.AppLogger.Info("generation stream opened", zap.String("speaker", speaker))
	return stream, nil
}

// systemPromptFrom picks the session's seeded system message, falling
// back to the default when the history lacks one.
func systemPromptFrom(history []chat.Message) string {
	for _, msg := range history {
		if msg.Role == chat.RoleSystem {
			return msg.Content
		}
	}
	return defaultSystemPrompt
}

func historyMessages(history []chat.Message) []*schema.Message {
	if len(history) == 0 {
		return nil
	}

	messages := make([]*schema.Message, 0, len(history))
	for _, msg := range history {
		switch msg.Role {
		case chat.RoleUser:
			messages = append(messages, schema.UserMessage(msg.Content))
		case chat.RoleAssistant:
			messages = append(messages, schema.AssistantMessage(msg.Content, nil))
		}
	}

	return messages
}
