package summarize

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/polisight/polisight/internal/ollama"
)

type fakeChatter struct {
	replies []string
	calls   []string // user message per call
	err     error
}

func (f *fakeChatter) Chat(ctx context.Context, model string, messages []ollama.Message) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.calls = append(f.calls, messages[len(messages)-1].Content)
	reply := fmt.Sprintf("summary %d", len(f.calls))
	if len(f.replies) >= len(f.calls) {
		reply = f.replies[len(f.calls)-1]
	}
	return reply, nil
}

func TestWindows(t *testing.T) {
	tests := []struct {
		name    string
		textLen int
		want    int
	}{
		{"empty", 0, 0},
		{"single short window", 100, 1},
		{"exactly one window", 1000, 2}, // second window holds the 200-char tail overlap
		{"two windows", 1500, 2},
		{"capped at three", 10000, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text := strings.Repeat("x", tt.textLen)
			if got := len(Windows(text)); got != tt.want {
				t.Errorf("len(Windows(%d chars)) = %d, want %d", tt.textLen, got, tt.want)
			}
		})
	}
}

func TestWindows_Overlap(t *testing.T) {
	text := strings.Repeat("x", 2000)

	windows := Windows(text)
	if len(windows) != 3 {
		t.Fatalf("len(windows) = %d, want 3", len(windows))
	}
	if len(windows[0]) != 1000 {
		t.Errorf("len(windows[0]) = %d, want 1000", len(windows[0]))
	}
	// Second window starts at 800, overlapping the first by 200 characters.
	if len(windows[1]) != 1000 {
		t.Errorf("len(windows[1]) = %d, want 1000", len(windows[1]))
	}
	if len(windows[2]) != 400 {
		t.Errorf("len(windows[2]) = %d, want 400 (tail)", len(windows[2]))
	}
}

func TestSummarize_JoinsWindowSummaries(t *testing.T) {
	chatter := &fakeChatter{}
	s := New(chatter, "llama3.2")

	text := strings.Repeat("policy terms and conditions ", 100) // ~2800 chars, 3 windows
	got, err := s.Summarize(context.Background(), text)
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}

	if got != "summary 1 summary 2 summary 3" {
		t.Errorf("summary = %q, want three joined parts", got)
	}
	if len(chatter.calls) != 3 {
		t.Errorf("model calls = %d, want 3", len(chatter.calls))
	}
}

func TestSummarize_SkipsShortWindows(t *testing.T) {
	chatter := &fakeChatter{}
	s := New(chatter, "llama3.2")

	// 820 chars: the second window is a 20-char tail below the minimum.
	text := strings.Repeat("x", 820)
	if _, err := s.Summarize(context.Background(), text); err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}

	if len(chatter.calls) != 1 {
		t.Errorf("model calls = %d, want 1 (short tail window skipped)", len(chatter.calls))
	}
}

func TestSummarize_EmptyText(t *testing.T) {
	chatter := &fakeChatter{}
	s := New(chatter, "llama3.2")

	got, err := s.Summarize(context.Background(), "")
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}
	if got != "" {
		t.Errorf("summary = %q, want empty", got)
	}
	if len(chatter.calls) != 0 {
		t.Errorf("model calls = %d, want 0", len(chatter.calls))
	}
}

func TestSummarize_ModelError(t *testing.T) {
	chatter := &fakeChatter{err: errors.New("model not loaded")}
	s := New(chatter, "llama3.2")

	_, err := s.Summarize(context.Background(), strings.Repeat("x", 500))
	if err == nil {
		t.Fatal("Summarize succeeded, want error")
	}
	if !strings.Contains(err.Error(), "model not loaded") {
		t.Errorf("error = %v, want wrapped model error", err)
	}
}
