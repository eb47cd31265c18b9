// Package similarity finds prior analyses whose text is close to a candidate
// document, by cosine similarity over embeddings. Corpus embeddings are never
// persisted: each query re-embeds every record's raw text, so one embedding
// call per corpus record per query. Brute force is fine at the corpus sizes
// this tool sees; Index is an interface so an ANN-backed implementation can
// replace LinearIndex without touching the pipeline.
package similarity

import (
	"context"
	"math"
	"sort"

	"github.com/polisight/polisight/internal/storage"
)

// Match pairs a prior analysis with its cosine similarity to the candidate.
type Match struct {
	Record     storage.AnalysisRecord
	Similarity float64
}

// Index locates prior analyses similar to a candidate embedding.
type Index interface {
	// BestMatch returns the single most similar record if its similarity
	// meets threshold, nil otherwise. An empty corpus is not an error.
	BestMatch(ctx context.Context, candidate []float32, corpus []storage.AnalysisRecord, threshold float64) (*Match, error)

	// RankAbove returns all records at or above threshold, most similar
	// first. Ties keep corpus scan order.
	RankAbove(ctx context.Context, candidate []float32, corpus []storage.AnalysisRecord, threshold float64) ([]Match, error)
}

// LinearIndex is the brute-force Index over the full corpus.
type LinearIndex struct {
	embedder *Embedder
}

// NewLinearIndex creates a LinearIndex that re-embeds corpus records with embedder.
func NewLinearIndex(embedder *Embedder) *LinearIndex {
	return &LinearIndex{embedder: embedder}
}

var _ Index = (*LinearIndex)(nil)

// BestMatch scans the whole corpus and returns the highest-similarity record
// at or above threshold. When several records tie exactly, the first one in
// scan order (creation order) wins.
func (x *LinearIndex) BestMatch(ctx context.Context, candidate []float32, corpus []storage.AnalysisRecord, threshold float64) (*Match, error) {
	matches, err := x.scoreCorpus(ctx, candidate, corpus)
	if err != nil {
		return nil, err
	}

	var best *Match
	for i := range matches {
		if best == nil || matches[i].Similarity > best.Similarity {
			best = &matches[i]
		}
	}
	if best == nil || best.Similarity < threshold {
		return nil, nil
	}
	return best, nil
}

// RankAbove scans the whole corpus and returns every record at or above
// threshold, sorted by similarity descending. The sort is stable so exact
// ties stay in scan order.
func (x *LinearIndex) RankAbove(ctx context.Context, candidate []float32, corpus []storage.AnalysisRecord, threshold float64) ([]Match, error) {
	matches, err := x.scoreCorpus(ctx, candidate, corpus)
	if err != nil {
		return nil, err
	}

	var above []Match
	for _, m := range matches {
		if m.Similarity >= threshold {
			above = append(above, m)
		}
	}
	sort.SliceStable(above, func(i, j int) bool { return above[i].Similarity > above[j].Similarity })
	return above, nil
}

// scoreCorpus re-embeds every record's raw text and pairs it with its cosine
// similarity to the candidate, in corpus order.
func (x *LinearIndex) scoreCorpus(ctx context.Context, candidate []float32, corpus []storage.AnalysisRecord) ([]Match, error) {
	if len(corpus) == 0 {
		return nil, nil
	}

	texts := make([]string, len(corpus))
	for i, rec := range corpus {
		texts[i] = rec.RawText
	}
	vectors, err := x.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, err
	}

	matches := make([]Match, len(corpus))
	for i, rec := range corpus {
		matches[i] = Match{Record: rec, Similarity: Cosine(candidate, vectors[i])}
	}
	return matches, nil
}

// Cosine returns the cosine similarity of two vectors, 0 when either has zero
// norm or the lengths differ.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, aNormSq, bNormSq float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		aNormSq += float64(a[i]) * float64(a[i])
		bNormSq += float64(b[i]) * float64(b[i])
	}
	if aNormSq == 0 || bNormSq == 0 {
		return 0
	}
	return dot / (math.Sqrt(aNormSq) * math.Sqrt(bNormSq))
}
