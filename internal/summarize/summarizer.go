// Package summarize produces short policy summaries via a local chat model.
// Long documents are summarized window by window and the partial summaries
// concatenated, so a single oversized prompt never reaches the model.
package summarize

import (
	"context"
	"fmt"
	"strings"

	"github.com/polisight/polisight/internal/ollama"
)

const (
	windowSize   = 1000
	windowStride = 800 // 200 characters of overlap between windows
	maxWindows   = 3
	minWindow    = 50 // windows with fewer meaningful characters are skipped

	systemPrompt = "You summarize insurance policy text. Reply with a concise summary " +
		"of 30 to 150 words. State coverage, costs and conditions plainly; do not " +
		"add opinions or information that is not in the text."
)

// Chatter is the chat-completion collaborator, satisfied by *ollama.Client.
type Chatter interface {
	Chat(ctx context.Context, model string, messages []ollama.Message) (string, error)
}

// Summarizer generates summaries with a fixed model.
type Summarizer struct {
	client Chatter
	model  string
}

// New creates a Summarizer using the given chat client and model name.
func New(client Chatter, model string) *Summarizer {
	return &Summarizer{client: client, model: model}
}

// Summarize returns a summary of text, built from up to three overlapping
// windows summarized in order. A model failure on any window fails the whole
// summary; the caller degrades the report field instead of aborting analysis.
func (s *Summarizer) Summarize(ctx context.Context, text string) (string, error) {
	var parts []string
	for i, window := range Windows(text) {
		if len(strings.TrimSpace(window)) <= minWindow {
			continue
		}
		part, err := s.client.Chat(ctx, s.model, []ollama.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: window},
		})
		if err != nil {
			return "", fmt.Errorf("summarizing window %d: %w", i+1, err)
		}
		parts = append(parts, strings.TrimSpace(part))
	}
	return strings.Join(parts, " "), nil
}

// Windows splits text into up to maxWindows overlapping windows of windowSize
// characters, starting every windowStride characters.
func Windows(text string) []string {
	var windows []string
	for start := 0; start < len(text) && len(windows) < maxWindows; start += windowStride {
		end := start + windowSize
		if end > len(text) {
			end = len(text)
		}
		windows = append(windows, text[start:end])
	}
	return windows
}
