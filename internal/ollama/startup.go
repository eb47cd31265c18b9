package ollama

import (
	"context"
	"fmt"
	"io"
	"time"
)

// EnsureReady checks that Ollama is running and the summarization and
// embedding models are available, pulling any that are missing with progress
// output written to w. After both models are available it warms up the
// summarization model so the first analysis doesn't pay the cold-load penalty.
// Returns a non-nil error if Ollama is unreachable.
func EnsureReady(ctx context.Context, c *Client, summaryModel, embedModel string, w io.Writer) error {
	if !c.IsRunning(ctx) {
		return fmt.Errorf("Ollama is not running. Start it with: ollama serve")
	}

	for _, model := range []string{summaryModel, embedModel} {
		if err := ensureModel(ctx, c, model, w); err != nil {
			return err
		}
	}

	warmUp(ctx, c, summaryModel, w)
	return nil
}

func ensureModel(ctx context.Context, c *Client, model string, w io.Writer) error {
	if c.HasModel(ctx, model) {
		fmt.Fprintf(w, "model %s: ready\n", model)
		return nil
	}

	fmt.Fprintf(w, "model %s: pulling...\n", model)
	err := c.PullModel(ctx, model, func(p PullProgress) {
		if p.Total > 0 {
			fmt.Fprintf(w, "  %s %.0f%%\n", p.Status, float64(p.Completed)/float64(p.Total)*100)
		} else {
			fmt.Fprintf(w, "  %s\n", p.Status)
		}
	})
	if err != nil {
		return fmt.Errorf("pulling model %s: %w", model, err)
	}
	fmt.Fprintf(w, "model %s: ready\n", model)
	return nil
}

// warmUp sends a trivial chat request so the model stays loaded in memory.
// Failure is non-fatal: the first real summarization will load it instead.
func warmUp(ctx context.Context, c *Client, model string, w io.Writer) {
	fmt.Fprintf(w, "model %s: warming up...\n", model)
	warmCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if _, err := c.Chat(warmCtx, model, []Message{{Role: "user", Content: "ping"}}); err != nil {
		fmt.Fprintf(w, "model %s: warm-up failed (non-fatal): %v\n", model, err)
		return
	}
	fmt.Fprintf(w, "model %s: warm\n", model)
}
