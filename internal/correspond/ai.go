package correspond

import (
	"context"
	"encoding/json"
	"sort"

	"subalign/internal/services"
)

// Completer is the slice of a backend client the AI scorer needs. The
// openai, grok, and gemini clients all satisfy it.
type Completer interface {
	Name() string
	Model() string
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, services.Usage, error)
}

// AIScorer scores cue correspondence through a JSON-completion backend. One
// ScoreBatch call becomes one backend request carrying the batch's
// deduplicated reference cues and every segment's candidate list.
type AIScorer struct {
	backend Completer
	prompt  string
}

// NewAIScorer constructs a scorer over the supplied backend. Language names
// are optional prompt context ("English", "Japanese"); pass empty strings
// when unknown.
func NewAIScorer(backend Completer, sourceLanguage, referenceLanguage string) *AIScorer {
	return &AIScorer{
		backend: backend,
		prompt:  buildScoringPrompt(sourceLanguage, referenceLanguage),
	}
}

// Name reports the judging backend's name.
func (s *AIScorer) Name() string {
	return s.backend.Name()
}

// Model reports the judging backend's model identifier.
func (s *AIScorer) Model() string {
	return s.backend.Model()
}

type scoringReference struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

type scoringSegment struct {
	Index      int    `json:"index"`
	Text       string `json:"text"`
	Candidates []int  `json:"candidates"`
}

type scoringPayload struct {
	Reference []scoringReference `json:"reference"`
	Segments  []scoringSegment   `json:"segments"`
}

type scoredSegment struct {
	Index  int `json:"index"`
	Scores []struct {
		Ref   int     `json:"ref"`
		Score float64 `json:"score"`
	} `json:"scores"`
}

// ScoreBatch sends the batch as one JSON completion request and decodes the
// per-segment score lists. Entries for unknown segment or reference indices
// are ignored; scores are clamped to [0, 1].
func (s *AIScorer) ScoreBatch(ctx context.Context, batch []Request) (BatchResult, error) {
	var result BatchResult
	if len(batch) == 0 {
		return result, nil
	}

	payload, allowed := buildScoringPayload(batch)
	encoded, err := json.Marshal(payload)
	if err != nil {
		return result, services.Wrap(services.ErrBackend, s.Name(), "score", "encode payload", err)
	}

	content, usage, err := s.backend.CompleteJSON(ctx, s.prompt, string(encoded))
	result.Usage = usage
	if err != nil {
		return result, err
	}

	var parsed []scoredSegment
	if err := services.DecodeJSON(content, &parsed); err != nil {
		return result, services.Wrap(services.ErrBackend, s.Name(), "score", "parse payload", err)
	}

	for _, entry := range parsed {
		candidates, ok := allowed[entry.Index]
		if !ok {
			continue
		}
		for _, scored := range entry.Scores {
			if _, ok := candidates[scored.Ref]; !ok {
				continue
			}
			result.Scores = append(result.Scores, PairScore{
				Source:    entry.Index,
				Reference: scored.Ref,
				Score:     clampScore(scored.Score),
			})
		}
	}
	return result, nil
}

// buildScoringPayload flattens a batch into the wire shape: reference cues
// deduplicated across segments, candidate lists by reference index. The
// returned allowed map mirrors the candidate lists for response filtering.
func buildScoringPayload(batch []Request) (scoringPayload, map[int]map[int]struct{}) {
	var payload scoringPayload
	allowed := make(map[int]map[int]struct{}, len(batch))
	referenceSeen := make(map[int]string)

	for _, req := range batch {
		candidates := make(map[int]struct{}, len(req.Candidates))
		indices := make([]int, 0, len(req.Candidates))
		for _, cand := range req.Candidates {
			if _, dup := candidates[cand.Position]; dup {
				continue
			}
			candidates[cand.Position] = struct{}{}
			indices = append(indices, cand.Position)
			if _, seen := referenceSeen[cand.Position]; !seen {
				referenceSeen[cand.Position] = cand.Cue.Text
			}
		}
		sort.Ints(indices)
		allowed[req.Position] = candidates
		payload.Segments = append(payload.Segments, scoringSegment{
			Index:      req.Position,
			Text:       req.Source.Text,
			Candidates: indices,
		})
	}

	refIndices := make([]int, 0, len(referenceSeen))
	for idx := range referenceSeen {
		refIndices = append(refIndices, idx)
	}
	sort.Ints(refIndices)
	for _, idx := range refIndices {
		payload.Reference = append(payload.Reference, scoringReference{Index: idx, Text: referenceSeen[idx]})
	}
	return payload, allowed
}

func clampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
