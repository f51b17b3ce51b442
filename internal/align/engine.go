package align

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"subalign/internal/correspond"
	"subalign/internal/logging"
	"subalign/internal/ratelimit"
	"subalign/internal/scorecache"
	"subalign/internal/services"
	"subalign/internal/subtitle"
)

const (
	// DefaultThreshold is the minimum correspondence score accepted as a
	// match. Chosen conservatively high: a false match damages timing more
	// than a gap, which interpolation can absorb.
	DefaultThreshold = 0.65
	// DefaultWindow is the initial candidate half-width on the reference
	// axis.
	DefaultWindow = 8
	// DefaultMaxWindow caps adaptive window expansion.
	DefaultMaxWindow = 32
	// DefaultMatchBonus is added to every accepted match's gain so longer
	// matched runs win over one isolated high-confidence match.
	DefaultMatchBonus = 0.3
)

// Options tunes one alignment run. Zero values fall back to the package
// defaults; Budget zero means unlimited backend calls.
type Options struct {
	Threshold   float64
	Window      int
	MaxWindow   int
	MatchBonus  float64
	BatchSize   int
	Concurrency int
	Budget      int
	CallTimeout time.Duration
	Limiter     *ratelimit.KeyedLimiter
	Cache       *scorecache.Store
	Logger      *slog.Logger
}

// Stats summarizes one run for reporting.
type Stats struct {
	RunID         string
	SourceCues    int
	ReferenceCues int
	Matched       int
	Gaps          int
	Repairs       int
	Rounds        int
	Backend       correspond.Stats
	Elapsed       time.Duration
}

// Result carries the outputs of one run: the retimed cues, the matching that
// produced them, and the run counters.
type Result struct {
	Cues      []subtitle.Cue
	Alignment Alignment
	Stats     Stats
}

// Engine aligns source cue sequences to reference timings through a
// correspondence scorer. An Engine is stateless across runs and safe for
// sequential reuse.
type Engine struct {
	scorer correspond.Scorer
	opts   Options
	logger *slog.Logger
}

// New builds an engine over the supplied scorer. The scorer must not be nil.
func New(scorer correspond.Scorer, opts Options) *Engine {
	if opts.Threshold <= 0 {
		opts.Threshold = DefaultThreshold
	}
	if opts.Window <= 0 {
		opts.Window = DefaultWindow
	}
	if opts.MaxWindow <= 0 {
		opts.MaxWindow = DefaultMaxWindow
	}
	if opts.MatchBonus <= 0 {
		opts.MatchBonus = DefaultMatchBonus
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Engine{
		scorer: scorer,
		opts:   opts,
		logger: logging.NewComponentLogger(logger, "align"),
	}
}

// Align retimes the source sequence against the reference sequence. Both
// inputs must satisfy the cue sequence invariants; violations are rejected
// before any backend call. An empty source or reference yields the source
// timing unchanged with an empty matching, never an error.
func (e *Engine) Align(ctx context.Context, source, reference []subtitle.Cue) (*Result, error) {
	started := time.Now()
	runID := uuid.NewString()
	ctx = services.WithRunID(ctx, runID)
	logger := logging.WithContext(ctx, e.logger)

	if err := subtitle.Validate(source); err != nil {
		return nil, services.Wrap(services.ErrInvalidInput, "align", "validate source", "", err)
	}
	if err := subtitle.Validate(reference); err != nil {
		return nil, services.Wrap(services.ErrInvalidInput, "align", "validate reference", "", err)
	}

	result := &Result{
		Alignment: Alignment{SourceLen: len(source), ReferenceLen: len(reference)},
	}
	if len(source) == 0 || len(reference) == 0 {
		result.Cues = subtitle.Clone(source)
		result.Stats = Stats{
			RunID:         runID,
			SourceCues:    len(source),
			ReferenceCues: len(reference),
			Gaps:          len(source),
			Elapsed:       time.Since(started),
		}
		logger.Info("nothing to align",
			logging.Int("source_cues", len(source)),
			logging.Int("reference_cues", len(reference)))
		return result, nil
	}

	logger.Info("alignment run starting",
		logging.Int("source_cues", len(source)),
		logging.Int("reference_cues", len(reference)),
		logging.String("backend", e.scorer.Name()),
		logging.String("model", e.scorer.Model()))

	executor := correspond.NewExecutor(e.scorer, source, reference, correspond.Options{
		BatchSize:   e.opts.BatchSize,
		Concurrency: e.opts.Concurrency,
		Budget:      e.opts.Budget,
		CallTimeout: e.opts.CallTimeout,
		Limiter:     e.opts.Limiter,
		Cache:       e.opts.Cache,
		Logger:      e.opts.Logger,
	})
	planner := newWindowPlanner(len(source), len(reference), e.opts.Window, e.opts.MaxWindow)

	var matches []Match
	rounds := 0
	for {
		rounds++
		scores, err := executor.Score(ctx, planner.pairs())
		if err != nil {
			return nil, err
		}
		matches = solve(len(source), len(reference), scores, e.opts.Threshold, e.opts.MatchBonus)
		unmatched := unmatchedSources(len(source), matches)
		if len(unmatched) == 0 || executor.Stats().BudgetExhausted {
			break
		}
		if !planner.widen(unmatched) {
			break
		}
		logger.Debug("widening candidate windows",
			logging.Int("round", rounds),
			logging.Int("unmatched", len(unmatched)))
	}

	result.Alignment.Matches = matches
	output := interpolate(source, reference, result.Alignment)
	repairs, err := repair(output)
	if err != nil {
		return nil, err
	}
	result.Cues = output

	backend := executor.Stats()
	result.Stats = Stats{
		RunID:         runID,
		SourceCues:    len(source),
		ReferenceCues: len(reference),
		Matched:       len(matches),
		Gaps:          len(source) - len(matches),
		Repairs:       repairs,
		Rounds:        rounds,
		Backend:       backend,
		Elapsed:       time.Since(started),
	}
	logger.Info("alignment complete",
		logging.Int("matched", result.Stats.Matched),
		logging.Int("gaps", result.Stats.Gaps),
		logging.Int("repairs", repairs),
		logging.Int("rounds", rounds),
		logging.Int("backend_calls", backend.BackendCalls),
		logging.Int("failed_calls", backend.FailedCalls),
		logging.Int64("tokens", backend.Usage.Total()),
		logging.Duration("elapsed", result.Stats.Elapsed))
	return result, nil
}
