package ai

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"

	"github.com/antoniopedrola/synthetic-research/internal/config"
	"github.com/antoniopedrola/synthetic-research/internal/model/chat"
	"github.com/antoniopedrola/synthetic-research/internal/model/evidence"
	"github.com/antoniopedrola/synthetic-research/internal/model/persona"
)

// historyExchanges is how many past exchanges are forwarded to the model as
// role-tagged messages. The condensed textual summary in the system prompt
// covers a slightly longer window; see PromptConfig.HistoryWindow.
const historyExchanges = 2

// Service generates grounded persona answers through an eino chat chain.
type Service struct {
	cfg       config.AIConfig
	promptCfg PromptConfig
	chain     compose.Runnable[map[string]any, *schema.Message]
	log       *zap.Logger
}

// NewService creates the chat model from configuration and compiles the
// prompt chain. Missing credentials surface here, before any traffic.
func NewService(ctx context.Context, cfg config.AIConfig, promptCfg PromptConfig, log *zap.Logger) (*Service, error) {
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
		cfg:       cfg,
		promptCfg: promptCfg,
		chain:     runnable,
		log:       log,
	}, nil
}

// StreamingEnabled indicates whether streaming output is configured.
func (s *Service) StreamingEnabled() bool {
	return s.cfg.Stream
}

// Reply produces a grounded answer for one turn.
func (s *Service) Reply(ctx context.Context, p persona.Persona, history []chat.Turn, question string, items []evidence.Item) (string, error) {
	input := s.buildChainInput(p, history, question, items)

	response, err := s.chain.Invoke(ctx, input)
	if err != nil {
		return "", fmt.Errorf("chat model invocation failed: %w", err)
	}

	s.log.Info("generated response",
		zap.String("persona", p.ID),
		zap.Int("evidence", len(items)),
		zap.Int("length", len(response.Content)))
	return response.Content, nil
}

// Stream produces the same answer as Reply but as a chunk stream.
func (s *Service) Stream(ctx context.Context, p persona.Persona, history []chat.Turn, question string, items []evidence.Item) (*schema.StreamReader[*schema.Message], error) {
	if !s.StreamingEnabled() {
		return nil, fmt.Errorf("streaming disabled in configuration")
	}

	input := s.buildChainInput(p, history, question, items)

	stream, err := s.chain.Stream(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("chat model stream failed: %w", err)
	}
	return stream, nil
}

func (s *Service) buildChainInput(p persona.Persona, history []chat.Turn, question string, items []evidence.Item) map[string]any {
	return map[string]any{
		"system":  BuildSystemPrompt(p, items, history, s.promptCfg),
		"history": buildHistoryMessages(history),
		"query":   question,
	}
}

// buildHistoryMessages converts the most recent exchanges into role-tagged
// messages so the model sees the actual back-and-forth, not just the summary.
func buildHistoryMessages(history []chat.Turn) []*schema.Message {
	if len(history) == 0 {
		return nil
	}

	start := 0
	if len(history) > historyExchanges {
		start = len(history) - historyExchanges
	}

	messages := make([]*schema.Message, 0, (len(history)-start)*2)
	for _, turn := range history[start:] {
		messages = append(messages, schema.UserMessage(turn.Question))
		messages = append(messages, schema.AssistantMessage(turn.Answer, nil))
	}
	return messages
}
