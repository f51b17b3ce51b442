package correspond

import (
	"context"

	"subalign/internal/services"
	"subalign/internal/subtitle"
	"subalign/internal/textutil"
)

// LexicalScorer scores correspondence by IDF-weighted token overlap. It needs
// no backend and suits same-language tracks where wording survives retiming.
type LexicalScorer struct {
	idf map[string]float64
}

// NewLexicalScorer builds token statistics over the reference sequence so
// ubiquitous words weigh less than distinctive ones.
func NewLexicalScorer(reference []subtitle.Cue) *LexicalScorer {
	corpus := textutil.NewCorpus()
	for _, cue := range reference {
		corpus.Add(textutil.NewFingerprint(cue.Text))
	}
	return &LexicalScorer{idf: corpus.IDF()}
}

// Name reports the scorer name used in logs and cache keys.
func (s *LexicalScorer) Name() string {
	return "lexical"
}

// Model reports the scoring function identifier used in cache keys.
func (s *LexicalScorer) Model() string {
	return "cosine-idf"
}

// ScoreBatch computes cosine similarity for every candidate pair in the
// batch. It never fails except on context cancellation.
func (s *LexicalScorer) ScoreBatch(ctx context.Context, batch []Request) (BatchResult, error) {
	var result BatchResult
	for _, req := range batch {
		if err := ctx.Err(); err != nil {
			return BatchResult{}, services.Wrap(services.ErrCancelled, s.Name(), "score", "", err)
		}
		source := textutil.NewFingerprint(req.Source.Text).WithIDF(s.idf)
		if source == nil {
			continue
		}
		for _, cand := range req.Candidates {
			reference := textutil.NewFingerprint(cand.Cue.Text).WithIDF(s.idf)
			result.Scores = append(result.Scores, PairScore{
				Source:    req.Position,
				Reference: cand.Position,
				Score:     textutil.CosineSimilarity(source, reference),
			})
		}
	}
	return result, nil
}
