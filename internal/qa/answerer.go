// Package qa answers ad hoc questions against an already-extracted policy
// text. It is independent of the analysis pipeline.
package qa

import (
	"context"
	"fmt"
	"strings"

	"github.com/polisight/polisight/internal/ollama"
)

// maxContext bounds how much policy text is handed to the model per question.
const maxContext = 2000

const systemPrompt = "You answer questions about an insurance policy using only the " +
	"policy excerpt provided. If the excerpt does not contain the answer, say so."

// Chatter is the chat-completion collaborator, satisfied by *ollama.Client.
type Chatter interface {
	Chat(ctx context.Context, model string, messages []ollama.Message) (string, error)
}

// Answerer answers questions with a fixed model.
type Answerer struct {
	client Chatter
	model  string
}

// New creates an Answerer using the given chat client and model name.
func New(client Chatter, model string) *Answerer {
	return &Answerer{client: client, model: model}
}

// Answer responds to question using contextText as the only source material.
func (a *Answerer) Answer(ctx context.Context, question, contextText string) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", fmt.Errorf("question is empty")
	}
	if len(contextText) > maxContext {
		contextText = contextText[:maxContext]
	}

	answer, err := a.client.Chat(ctx, a.model, []ollama.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: "Policy excerpt:\n" + contextText + "\n\nQuestion: " + question},
	})
	if err != nil {
		return "", fmt.Errorf("answering question: %w", err)
	}
	return strings.TrimSpace(answer), nil
}
