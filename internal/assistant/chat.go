package assistant

import (
	"context"
	"fmt"

	openai "github.com/openai/openai-go/v3"

	"jarvis/internal/command"
)

const chatSystemPrompt = `You are JARVIS, a concise voice assistant.
Answer in one or two short spoken sentences. No markdown, no lists,
no code blocks; the reply is read out loud.`

// NewChatHandler builds the free-form chat handler on top of an
// OpenAI-compatible endpoint (a local model server works through
// option.WithBaseURL on the client). Wire it with
// proc.Register(command.IntentChat, NewChatHandler(client, model)).
func NewChatHandler(client openai.Client, model string) command.Handler {
	return func(ctx context.Context, cmd *command.Command) (*command.Result, error) {
		resp, err := client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
			Messages: []openai.ChatCompletionMessageParamUnion{
				openai.SystemMessage(chatSystemPrompt),
				openai.UserMessage(cmd.Text),
			},
			Model: openai.ChatModel(model),
		})
		if err != nil {
			return nil, fmt.Errorf("chat completion: %w", err)
		}
		if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
			return nil, fmt.Errorf("empty chat completion")
		}

		return &command.Result{
			Success:  true,
			Response: resp.Choices[0].Message.Content,
			Speak:    true,
		}, nil
	}
}
