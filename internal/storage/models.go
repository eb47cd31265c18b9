package storage

import (
	"errors"
	"time"

	"github.com/polisight/polisight/internal/patterns"
	"github.com/polisight/polisight/internal/scoring"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// AnalysisRecord is one completed policy analysis. Records are created once,
// never mutated, and retained indefinitely; the corpus only grows. Embeddings
// are deliberately not persisted; the similarity index recomputes them from
// RawText so results stay consistent across embedder model upgrades.
type AnalysisRecord struct {
	ID             int64                       `json:"id"`
	DocumentID     string                      `json:"document_id"`
	Summary        string                      `json:"summary"`
	Dates          map[patterns.DateKind]string `json:"dates"`
	Risks          patterns.RiskFindings       `json:"risks"`
	Recommendation scoring.Recommendation      `json:"recommendation"`
	RawText        string                      `json:"-"`
	CreatedAt      time.Time                   `json:"created_at"`
}
