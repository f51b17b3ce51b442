package correspond

import (
	"context"

	"subalign/internal/services"
	"subalign/internal/subtitle"
)

// Pair identifies a source/reference cue pair by position (0-based) in the
// run's sequences.
type Pair struct {
	Source    int
	Reference int
}

// Candidate is one reference cue offered for scoring against a source cue.
type Candidate struct {
	Position int
	Cue      subtitle.Cue
}

// Request asks the scorer to judge one source cue against its candidate
// reference cues.
type Request struct {
	Position   int
	Source     subtitle.Cue
	Candidates []Candidate
}

// PairScore is one judged pair. Scores are confidences in [0, 1].
type PairScore struct {
	Source    int
	Reference int
	Score     float64
}

// BatchResult carries the outcome of one ScoreBatch call. Pairs the scorer
// could not judge are simply absent from Scores.
type BatchResult struct {
	Scores []PairScore
	Usage  services.Usage
}

// Scorer estimates cross-lingual correspondence between cue pairs. Scores
// need not be bit-exact across calls; they only need to rank candidates
// meaningfully. Name and Model identify the judging backend for logs and
// cache keys.
type Scorer interface {
	Name() string
	Model() string
	ScoreBatch(ctx context.Context, batch []Request) (BatchResult, error)
}
