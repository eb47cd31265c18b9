// Package audio renders report text as speech through the platform TTS
// command (say on macOS, espeak elsewhere). It is a pure sink: nothing in the
// analysis pipeline depends on its output, and failures are reported to the
// caller but never fed back into a report.
package audio

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

const defaultRate = 150 // words per minute

// Speaker speaks text aloud or renders it to an audio file.
type Speaker struct {
	rate int
}

// NewSpeaker creates a Speaker. rate is words per minute; values <= 0 use the
// default of 150.
func NewSpeaker(rate int) *Speaker {
	if rate <= 0 {
		rate = defaultRate
	}
	return &Speaker{rate: rate}
}

// Speak plays text through the system TTS engine, blocking until done.
func (s *Speaker) Speak(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	name, args := speakArgs(s.rate, text)
	if err := exec.CommandContext(ctx, name, args...).Run(); err != nil {
		return fmt.Errorf("speech synthesis (%s): %w", name, err)
	}
	return nil
}

// SaveTo renders text as speech into an audio file at path.
func (s *Speaker) SaveTo(ctx context.Context, text, path string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("nothing to render")
	}
	name, args := saveArgs(s.rate, text, path)
	if err := exec.CommandContext(ctx, name, args...).Run(); err != nil {
		return fmt.Errorf("rendering audio (%s): %w", name, err)
	}
	return nil
}
