package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/polisight/polisight/internal/document"
	"github.com/polisight/polisight/internal/scoring"
	"github.com/polisight/polisight/internal/similarity"
	"github.com/polisight/polisight/internal/storage"
)

type fakeExtractor struct {
	err error
}

func (f *fakeExtractor) Extract(data []byte, name string) (document.Document, error) {
	if f.err != nil {
		return document.Document{}, f.err
	}
	id := name
	if id == "" {
		id = "unnamed"
	}
	return document.Document{ID: id, Name: name, Text: string(data)}, nil
}

type fakeSummarizer struct {
	summary string
	err     error
}

func (f *fakeSummarizer) Summarize(ctx context.Context, text string) (string, error) {
	return f.summary, f.err
}

type fakeEmbedder struct {
	err error
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []float32{1, 0, 0}, nil
}

type fakeIndex struct {
	matches    []similarity.Match
	err        error
	corpusSize int
}

func (f *fakeIndex) BestMatch(ctx context.Context, candidate []float32, corpus []storage.AnalysisRecord, threshold float64) (*similarity.Match, error) {
	if f.err != nil {
		return nil, f.err
	}
	if len(f.matches) == 0 || f.matches[0].Similarity < threshold {
		return nil, nil
	}
	return &f.matches[0], nil
}

func (f *fakeIndex) RankAbove(ctx context.Context, candidate []float32, corpus []storage.AnalysisRecord, threshold float64) ([]similarity.Match, error) {
	f.corpusSize = len(corpus)
	if f.err != nil {
		return nil, f.err
	}
	var above []similarity.Match
	for _, m := range f.matches {
		if m.Similarity >= threshold {
			above = append(above, m)
		}
	}
	return above, nil
}

type fakeStore struct {
	records   []storage.AnalysisRecord
	appendErr error
	allErr    error
}

func (f *fakeStore) Append(rec storage.AnalysisRecord) (int64, error) {
	if f.appendErr != nil {
		return 0, f.appendErr
	}
	rec.ID = int64(len(f.records) + 1)
	f.records = append(f.records, rec)
	return rec.ID, nil
}

func (f *fakeStore) All() ([]storage.AnalysisRecord, error) {
	if f.allErr != nil {
		return nil, f.allErr
	}
	return f.records, nil
}

func match(id int64, sim float64) similarity.Match {
	return similarity.Match{
		Record: storage.AnalysisRecord{
			ID:         id,
			DocumentID: "prior-doc",
			Summary:    "prior summary",
			Recommendation: scoring.Recommendation{
				Verdict: scoring.NotRecommended,
			},
		},
		Similarity: sim,
	}
}

func newTestAnalyzer(store *fakeStore, summarizer *fakeSummarizer, embedder *fakeEmbedder, index *fakeIndex) *Analyzer {
	return NewAnalyzer(&fakeExtractor{}, summarizer, embedder, index, store, DefaultConfig())
}

const policyText = "The policy effective date: 01/01/2024. Exclusions apply. No age limit."

func TestAnalyze_FullReport(t *testing.T) {
	store := &fakeStore{}
	a := newTestAnalyzer(store, &fakeSummarizer{summary: "short summary"}, &fakeEmbedder{}, &fakeIndex{})

	rpt, err := a.Analyze(context.Background(), []byte(policyText), "policy.txt")
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if rpt.DocumentID != "policy.txt" {
		t.Errorf("DocumentID = %q, want %q", rpt.DocumentID, "policy.txt")
	}
	if rpt.Summary != "short summary" {
		t.Errorf("Summary = %q, want %q", rpt.Summary, "short summary")
	}
	if rpt.SummaryError != "" {
		t.Errorf("SummaryError = %q, want empty", rpt.SummaryError)
	}
	if len(rpt.Dates) != 1 {
		t.Errorf("Dates = %v, want 1 entry", rpt.Dates)
	}
	if high, _, low := rpt.Risks.Counts(); high != 1 || low != 1 {
		t.Errorf("risk counts = (%d high, %d low), want (1, 1)", high, low)
	}
	if rpt.Recommendation.Verdict != scoring.NotRecommended {
		t.Errorf("Verdict = %s, want %s", rpt.Recommendation.Verdict, scoring.NotRecommended)
	}
	if !rpt.Saved || rpt.ID != 1 {
		t.Errorf("Saved = %v, ID = %d, want saved with id 1", rpt.Saved, rpt.ID)
	}
	if len(store.records) != 1 {
		t.Fatalf("stored records = %d, want 1", len(store.records))
	}
	if store.records[0].RawText != policyText {
		t.Errorf("stored RawText = %q, want the extracted text", store.records[0].RawText)
	}
}

func TestAnalyze_ExtractionFailureIsFatal(t *testing.T) {
	store := &fakeStore{}
	a := NewAnalyzer(
		&fakeExtractor{err: document.ErrExtraction},
		&fakeSummarizer{}, &fakeEmbedder{}, &fakeIndex{}, store, DefaultConfig(),
	)

	_, err := a.Analyze(context.Background(), []byte("ignored"), "broken.pdf")
	if !errors.Is(err, document.ErrExtraction) {
		t.Fatalf("err = %v, want wrapped ErrExtraction", err)
	}
	if len(store.records) != 0 {
		t.Errorf("stored records = %d, want 0 (nothing persisted on extraction failure)", len(store.records))
	}
}

func TestAnalyze_SummaryFailureDegrades(t *testing.T) {
	store := &fakeStore{}
	a := newTestAnalyzer(store, &fakeSummarizer{err: errors.New("model timeout")}, &fakeEmbedder{}, &fakeIndex{})

	rpt, err := a.Analyze(context.Background(), []byte(policyText), "policy.txt")
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if rpt.Summary != SummaryUnavailable {
		t.Errorf("Summary = %q, want placeholder", rpt.Summary)
	}
	if !strings.Contains(rpt.SummaryError, "model timeout") {
		t.Errorf("SummaryError = %q, want the model error", rpt.SummaryError)
	}
	if !rpt.Saved {
		t.Error("report not saved despite degraded summary")
	}
	if store.records[0].Summary != SummaryUnavailable {
		t.Errorf("stored Summary = %q, want placeholder persisted", store.records[0].Summary)
	}
}

func TestAnalyze_ReuseHitStillAppends(t *testing.T) {
	store := &fakeStore{records: []storage.AnalysisRecord{{ID: 1, DocumentID: "prior-doc", RawText: policyText}}}
	index := &fakeIndex{matches: []similarity.Match{match(1, 0.97)}}
	a := newTestAnalyzer(store, &fakeSummarizer{summary: "s"}, &fakeEmbedder{}, index)

	rpt, err := a.Analyze(context.Background(), []byte(policyText), "policy.txt")
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if rpt.ReuseOf == nil {
		t.Fatal("ReuseOf = nil, want reuse hint for near-duplicate")
	}
	if rpt.ReuseOf.ID != 1 || rpt.ReuseOf.Similarity != 0.97 {
		t.Errorf("ReuseOf = %+v, want prior record 1 at 0.97", rpt.ReuseOf)
	}
	if len(rpt.Similar) != 1 {
		t.Errorf("Similar = %d entries, want 1", len(rpt.Similar))
	}
	// The hit is advisory: the new analysis is computed and appended anyway.
	if !rpt.Saved || rpt.ID != 2 {
		t.Errorf("Saved = %v, ID = %d, want appended as record 2", rpt.Saved, rpt.ID)
	}
	if len(store.records) != 2 {
		t.Errorf("stored records = %d, want 2", len(store.records))
	}
	// The similarity scan saw only the pre-append corpus.
	if index.corpusSize != 1 {
		t.Errorf("corpus size at scan = %d, want 1 (snapshot before append)", index.corpusSize)
	}
}

func TestAnalyze_BelowReuseThresholdIsJustSimilar(t *testing.T) {
	store := &fakeStore{records: []storage.AnalysisRecord{{ID: 1, DocumentID: "prior-doc"}}}
	index := &fakeIndex{matches: []similarity.Match{match(1, 0.80)}}
	a := newTestAnalyzer(store, &fakeSummarizer{summary: "s"}, &fakeEmbedder{}, index)

	rpt, err := a.Analyze(context.Background(), []byte(policyText), "policy.txt")
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if rpt.ReuseOf != nil {
		t.Errorf("ReuseOf = %+v, want nil below 0.85", rpt.ReuseOf)
	}
	if len(rpt.Similar) != 1 {
		t.Errorf("Similar = %d entries, want 1 at display threshold", len(rpt.Similar))
	}
}

func TestAnalyze_SimilarCapped(t *testing.T) {
	store := &fakeStore{records: []storage.AnalysisRecord{{ID: 1}, {ID: 2}, {ID: 3}, {ID: 4}, {ID: 5}}}
	index := &fakeIndex{matches: []similarity.Match{
		match(1, 0.84), match(2, 0.83), match(3, 0.82), match(4, 0.81), match(5, 0.80),
	}}
	a := newTestAnalyzer(store, &fakeSummarizer{summary: "s"}, &fakeEmbedder{}, index)

	rpt, err := a.Analyze(context.Background(), []byte(policyText), "policy.txt")
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if len(rpt.Similar) != 3 {
		t.Errorf("Similar = %d entries, want capped at 3", len(rpt.Similar))
	}
}

func TestAnalyze_EmbedFailureDegradesSimilarity(t *testing.T) {
	store := &fakeStore{records: []storage.AnalysisRecord{{ID: 1}}}
	a := newTestAnalyzer(store, &fakeSummarizer{summary: "s"}, &fakeEmbedder{err: errors.New("ollama down")}, &fakeIndex{})

	rpt, err := a.Analyze(context.Background(), []byte(policyText), "policy.txt")
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if !strings.Contains(rpt.SimilarityError, "ollama down") {
		t.Errorf("SimilarityError = %q, want the embed error", rpt.SimilarityError)
	}
	if rpt.ReuseOf != nil || len(rpt.Similar) != 0 {
		t.Errorf("similarity fields = (%+v, %v), want empty when degraded", rpt.ReuseOf, rpt.Similar)
	}
	if !rpt.Saved {
		t.Error("report not saved despite degraded similarity")
	}
}

func TestAnalyze_EmptyCorpusSkipsEmbedding(t *testing.T) {
	store := &fakeStore{}
	embedder := &fakeEmbedder{err: errors.New("should not be called")}
	a := newTestAnalyzer(store, &fakeSummarizer{summary: "s"}, embedder, &fakeIndex{})

	rpt, err := a.Analyze(context.Background(), []byte(policyText), "policy.txt")
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if rpt.SimilarityError != "" {
		t.Errorf("SimilarityError = %q, want empty (no corpus, no embed call)", rpt.SimilarityError)
	}
}

func TestAnalyze_SaveFailureDegrades(t *testing.T) {
	store := &fakeStore{appendErr: errors.New("disk full")}
	a := newTestAnalyzer(store, &fakeSummarizer{summary: "s"}, &fakeEmbedder{}, &fakeIndex{})

	rpt, err := a.Analyze(context.Background(), []byte(policyText), "policy.txt")
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if rpt.Saved {
		t.Error("Saved = true, want false on append failure")
	}
	if !strings.Contains(rpt.SaveError, "disk full") {
		t.Errorf("SaveError = %q, want the store error", rpt.SaveError)
	}
	if rpt.Summary != "s" {
		t.Errorf("Summary = %q, want analysis results intact", rpt.Summary)
	}
}

func TestNarration(t *testing.T) {
	rpt := Report{
		Summary: "Covers hospitalization.",
		Recommendation: scoring.Recommendation{
			Verdict: scoring.Recommended,
			Reason:  "Good value.",
		},
	}

	n := rpt.Narration()
	for _, want := range []string{"Covers hospitalization.", "RECOMMENDED", "Good value."} {
		if !strings.Contains(n, want) {
			t.Errorf("Narration() = %q, missing %q", n, want)
		}
	}
}
