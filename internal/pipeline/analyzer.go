// Package pipeline orchestrates a full policy analysis: text extraction,
// pattern extraction, summarization, scoring, similarity lookup against the
// stored corpus, and persistence of the finished record.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/polisight/polisight/internal/document"
	"github.com/polisight/polisight/internal/patterns"
	"github.com/polisight/polisight/internal/scoring"
	"github.com/polisight/polisight/internal/similarity"
	"github.com/polisight/polisight/internal/storage"
)

// SummaryUnavailable is the summary placeholder when the model call fails.
const SummaryUnavailable = "Summary could not be generated. Please review the policy manually."

// TextExtractor converts uploaded bytes into a Document.
type TextExtractor interface {
	Extract(data []byte, name string) (document.Document, error)
}

// SummaryProvider produces a short summary of policy text.
type SummaryProvider interface {
	Summarize(ctx context.Context, text string) (string, error)
}

// DocumentEmbedder produces the candidate document's embedding.
type DocumentEmbedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// RecordStore is the append-only analysis corpus.
type RecordStore interface {
	Append(rec storage.AnalysisRecord) (int64, error)
	All() ([]storage.AnalysisRecord, error)
}

// ReuseHint points at a prior analysis close enough to the candidate that its
// results could have been reused. The hint is advisory: the pipeline always
// recomputes and persists the new analysis in full.
type ReuseHint struct {
	ID         int64   `json:"id"`
	DocumentID string  `json:"document_id"`
	Similarity float64 `json:"similarity"`
}

// SimilarPolicy is one prior analysis surfaced alongside the report.
type SimilarPolicy struct {
	ID         int64          `json:"id"`
	DocumentID string         `json:"document_id"`
	Summary    string         `json:"summary"`
	Verdict    scoring.Verdict `json:"verdict"`
	Similarity float64        `json:"similarity"`
}

// Report is the user-facing result of one analysis. Collaborator failures
// degrade individual fields (the *Error strings carry the reason); the report
// itself always renders once text extraction has succeeded.
type Report struct {
	ID         int64  `json:"id,omitempty"` // store-assigned; 0 when not saved
	DocumentID string `json:"document_id"`

	Summary      string `json:"summary"`
	SummaryError string `json:"summary_error,omitempty"`

	Dates          map[patterns.DateKind]string `json:"dates"`
	Risks          patterns.RiskFindings        `json:"risks"`
	Recommendation scoring.Recommendation       `json:"recommendation"`

	ReuseOf         *ReuseHint      `json:"reuse_of,omitempty"`
	Similar         []SimilarPolicy `json:"similar,omitempty"`
	SimilarityError string          `json:"similarity_error,omitempty"`

	Saved     bool      `json:"saved"`
	SaveError string    `json:"save_error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Config holds the orchestrator's thresholds.
type Config struct {
	// ReuseThreshold is the similarity at which a prior analysis counts as a
	// near-duplicate of the candidate.
	ReuseThreshold float64
	// SimilarThreshold is the lower bar for surfacing related prior analyses.
	SimilarThreshold float64
	// MaxSimilar caps the surfaced related analyses.
	MaxSimilar int
}

// DefaultConfig mirrors the documented defaults: 0.85 reuse, 0.75 display,
// top 3 shown.
func DefaultConfig() Config {
	return Config{ReuseThreshold: 0.85, SimilarThreshold: 0.75, MaxSimilar: 3}
}

// Analyzer runs the analysis pipeline with injected collaborators.
type Analyzer struct {
	extractor  TextExtractor
	summarizer SummaryProvider
	embedder   DocumentEmbedder
	index      similarity.Index
	store      RecordStore
	cfg        Config
	logger     *slog.Logger
}

// NewAnalyzer wires an Analyzer. Zero thresholds in cfg fall back to defaults.
func NewAnalyzer(extractor TextExtractor, summarizer SummaryProvider, embedder DocumentEmbedder, index similarity.Index, store RecordStore, cfg Config) *Analyzer {
	def := DefaultConfig()
	if cfg.ReuseThreshold <= 0 {
		cfg.ReuseThreshold = def.ReuseThreshold
	}
	if cfg.SimilarThreshold <= 0 {
		cfg.SimilarThreshold = def.SimilarThreshold
	}
	if cfg.MaxSimilar <= 0 {
		cfg.MaxSimilar = def.MaxSimilar
	}
	return &Analyzer{
		extractor:  extractor,
		summarizer: summarizer,
		embedder:   embedder,
		index:      index,
		store:      store,
		cfg:        cfg,
		logger:     slog.Default(),
	}
}

// Analyze runs the full pipeline on an uploaded document. Only text
// extraction failure aborts the analysis; every other collaborator failure
// degrades its report field and the pipeline carries on. The finished record
// is appended to the corpus unconditionally; a reuse hit does not
// short-circuit computation or skip persistence.
func (a *Analyzer) Analyze(ctx context.Context, data []byte, name string) (Report, error) {
	doc, err := a.extractor.Extract(data, name)
	if err != nil {
		return Report{}, fmt.Errorf("extracting %q: %w", name, err)
	}

	rpt := Report{
		DocumentID: doc.ID,
		CreatedAt:  time.Now().UTC(),
	}

	rpt.Dates = patterns.ExtractDates(doc.Text)
	rpt.Risks = patterns.ExtractRisks(doc.Text)

	summary, err := a.summarizer.Summarize(ctx, doc.Text)
	if err != nil {
		a.logger.Warn("summary generation failed", "document", doc.ID, "error", err)
		rpt.Summary = SummaryUnavailable
		rpt.SummaryError = err.Error()
	} else {
		rpt.Summary = summary
	}

	rpt.Recommendation = scoring.Score(rpt.Risks, doc.Text)

	// Similarity runs against the corpus as it was before this analysis, so
	// the record appended below never matches itself.
	a.findSimilar(ctx, doc.Text, &rpt)

	id, err := a.store.Append(storage.AnalysisRecord{
		DocumentID:     doc.ID,
		Summary:        rpt.Summary,
		Dates:          rpt.Dates,
		Risks:          rpt.Risks,
		Recommendation: rpt.Recommendation,
		RawText:        doc.Text,
		CreatedAt:      rpt.CreatedAt,
	})
	if err != nil {
		a.logger.Warn("persisting analysis failed", "document", doc.ID, "error", err)
		rpt.SaveError = err.Error()
	} else {
		rpt.ID = id
		rpt.Saved = true
	}

	return rpt, nil
}

// findSimilar fills the ReuseOf and Similar report fields. Any failure along
// the way (corpus read, embedding, index scan) degrades both fields at once.
func (a *Analyzer) findSimilar(ctx context.Context, text string, rpt *Report) {
	corpus, err := a.store.All()
	if err != nil {
		a.logger.Warn("similarity lookup failed", "stage", "corpus", "error", err)
		rpt.SimilarityError = err.Error()
		return
	}
	if len(corpus) == 0 {
		return
	}

	vec, err := a.embedder.Embed(ctx, text)
	if err != nil {
		a.logger.Warn("similarity lookup failed", "stage", "embed", "error", err)
		rpt.SimilarityError = err.Error()
		return
	}

	ranked, err := a.index.RankAbove(ctx, vec, corpus, a.cfg.SimilarThreshold)
	if err != nil {
		a.logger.Warn("similarity lookup failed", "stage", "scan", "error", err)
		rpt.SimilarityError = err.Error()
		return
	}
	if len(ranked) == 0 {
		return
	}

	// The top-ranked record doubles as the reuse hint when it clears the
	// higher threshold. Advisory only; see Analyze.
	if best := ranked[0]; best.Similarity >= a.cfg.ReuseThreshold {
		rpt.ReuseOf = &ReuseHint{
			ID:         best.Record.ID,
			DocumentID: best.Record.DocumentID,
			Similarity: best.Similarity,
		}
		a.logger.Info("near-duplicate of prior analysis",
			"prior_id", best.Record.ID, "similarity", best.Similarity)
	}

	for _, m := range ranked {
		if len(rpt.Similar) == a.cfg.MaxSimilar {
			break
		}
		rpt.Similar = append(rpt.Similar, SimilarPolicy{
			ID:         m.Record.ID,
			DocumentID: m.Record.DocumentID,
			Summary:    m.Record.Summary,
			Verdict:    m.Record.Recommendation.Verdict,
			Similarity: m.Similarity,
		})
	}
}

// Narration renders the spoken-summary text for a report.
func (r Report) Narration() string {
	return fmt.Sprintf(
		"Policy analysis summary. %s Key risk factors: %d high risk, %d medium risk factors identified. Recommendation: %s. %s",
		r.Summary, len(r.Risks.High), len(r.Risks.Medium), r.Recommendation.Verdict, r.Recommendation.Reason)
}
